package main

import (
	"encoding/json"
	"net/http"
	"strings"
)

// categoryOrderings — допустимые значения ordering для списка категорий.
var categoryOrderings = map[string]string{
	"title":    "goal_categories.title asc",
	"-title":   "goal_categories.title desc",
	"created":  "goal_categories.created_at asc",
	"-created": "goal_categories.created_at desc",
}

// goalOrderings — допустимые значения ordering для списка целей.
var goalOrderings = map[string]string{
	"title":    "goals.title asc",
	"-title":   "goals.title desc",
	"created":  "goals.created_at asc",
	"-created": "goals.created_at desc",
}

// participantPayload описывает участника доски в запросе обновления.
type participantPayload struct {
	User string `json:"user"`
	Role int    `json:"role"`
}

// participantResponse описывает участника доски в ответе.
type participantResponse struct {
	ID    uint   `json:"id"`
	Board uint   `json:"board"`
	User  string `json:"user"`
	Role  int    `json:"role"`
}

// boardResponse описывает доску вместе с участниками.
type boardResponse struct {
	Board
	Participants []participantResponse `json:"participants"`
}

// handleBoardCreate создает доску, автор становится владельцем.
func (a *API) handleBoardCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requirePost(w, r)
	if !ok {
		return
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	payload.Title = strings.TrimSpace(payload.Title)
	if payload.Title == "" {
		writeFieldErrors(w, map[string]string{"title": "title is required"})
		return
	}

	board, err := a.store.CreateBoard(r.Context(), userID, payload.Title)
	if err != nil {
		http.Error(w, "failed to create board", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, board)
}

// handleBoardList возвращает доски пользователя.
func (a *API) handleBoardList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireGet(w, r)
	if !ok {
		return
	}

	limit, offset := pageFromQuery(r)
	boards, count, err := a.store.ListBoards(r.Context(), userID, limit, offset)
	if err != nil {
		http.Error(w, "failed to list boards", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Count: count, Results: boards})
}

// handleBoardByID обрабатывает запросы для конкретной доски.
func (a *API) handleBoardByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	boardID, ok := pathID(r, "/goals/board/")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		board, participants, err := a.store.BoardByID(r.Context(), userID, boardID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		a.writeBoard(w, r, http.StatusOK, board, participants)
	case http.MethodPut:
		a.handleBoardUpdate(w, r, userID, boardID)
	case http.MethodDelete:
		if err := a.store.DeleteBoard(r.Context(), userID, boardID); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleBoardUpdate меняет название доски и состав участников.
func (a *API) handleBoardUpdate(w http.ResponseWriter, r *http.Request, userID, boardID uint) {
	var payload struct {
		Title        string               `json:"title"`
		Participants []participantPayload `json:"participants"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	payload.Title = strings.TrimSpace(payload.Title)
	if payload.Title == "" {
		writeFieldErrors(w, map[string]string{"title": "title is required"})
		return
	}

	participants := make([]BoardParticipant, 0, len(payload.Participants))
	for _, participant := range payload.Participants {
		if participant.Role != RoleWriter && participant.Role != RoleReader {
			writeFieldErrors(w, map[string]string{"participants": "role must be writer or reader"})
			return
		}
		user, found, err := a.store.UserByUsername(r.Context(), participant.User)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !found {
			writeFieldErrors(w, map[string]string{"participants": "user " + participant.User + " not found"})
			return
		}
		participants = append(participants, BoardParticipant{UserID: user.ID, Role: participant.Role})
	}

	board, err := a.store.UpdateBoard(r.Context(), userID, boardID, payload.Title, participants)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	_, updated, err := a.store.BoardByID(r.Context(), userID, boardID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	a.writeBoard(w, r, http.StatusOK, board, updated)
}

// writeBoard сериализует доску с участниками, подставляя имена пользователей.
func (a *API) writeBoard(w http.ResponseWriter, r *http.Request, status int, board Board, participants []BoardParticipant) {
	response := boardResponse{Board: board, Participants: make([]participantResponse, 0, len(participants))}
	for _, participant := range participants {
		user, _, err := a.store.UserByID(r.Context(), participant.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		response.Participants = append(response.Participants, participantResponse{
			ID:    participant.ID,
			Board: participant.BoardID,
			User:  user.Username,
			Role:  participant.Role,
		})
	}
	writeJSON(w, status, response)
}

// handleCategoryCreate создает категорию на доске.
func (a *API) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requirePost(w, r)
	if !ok {
		return
	}

	var payload struct {
		Board uint   `json:"board"`
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	payload.Title = strings.TrimSpace(payload.Title)
	if payload.Title == "" || payload.Board == 0 {
		writeFieldErrors(w, map[string]string{"title": "title and board are required"})
		return
	}

	category, err := a.store.CreateCategory(r.Context(), userID, payload.Board, payload.Title)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// handleCategoryList возвращает категории на досках пользователя.
func (a *API) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireGet(w, r)
	if !ok {
		return
	}

	limit, offset := pageFromQuery(r)
	filter := CategoryFilter{
		BoardID: uintFromQuery(r, "board"),
		OrderBy: orderingFromQuery(r, categoryOrderings),
		Limit:   limit,
		Offset:  offset,
	}
	categories, count, err := a.store.ListCategories(r.Context(), userID, filter)
	if err != nil {
		http.Error(w, "failed to list categories", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Count: count, Results: categories})
}

// handleCategoryByID обрабатывает запросы для конкретной категории.
func (a *API) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	categoryID, ok := pathID(r, "/goals/goal_category/")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		category, err := a.store.CategoryByID(r.Context(), userID, categoryID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, category)
	case http.MethodPut:
		var payload struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		payload.Title = strings.TrimSpace(payload.Title)
		if payload.Title == "" {
			writeFieldErrors(w, map[string]string{"title": "title is required"})
			return
		}
		category, err := a.store.UpdateCategory(r.Context(), userID, categoryID, payload.Title)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, category)
	case http.MethodDelete:
		if err := a.store.DeleteCategory(r.Context(), userID, categoryID); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGoalCreate создает цель в категории.
func (a *API) handleGoalCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requirePost(w, r)
	if !ok {
		return
	}

	goal, ok := a.decodeGoal(w, r)
	if !ok {
		return
	}
	if goal.CategoryID == 0 {
		writeFieldErrors(w, map[string]string{"category": "category is required"})
		return
	}
	if err := a.store.CreateGoal(r.Context(), userID, &goal); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

// decodeGoal разбирает и проверяет тело запроса создания или обновления цели.
func (a *API) decodeGoal(w http.ResponseWriter, r *http.Request) (Goal, bool) {
	var payload struct {
		Category    uint   `json:"category"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Status      int    `json:"status"`
		Priority    int    `json:"priority"`
		DueDate     string `json:"due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return Goal{}, false
	}

	fields := map[string]string{}
	payload.Title = strings.TrimSpace(payload.Title)
	if payload.Title == "" {
		fields["title"] = "title is required"
	}
	if payload.Status < 0 || payload.Status > StatusArchived {
		fields["status"] = "unknown status"
	}
	if payload.Priority < 0 || payload.Priority > PriorityCritical {
		fields["priority"] = "unknown priority"
	}
	dueDate, ok := parseDate(payload.DueDate)
	if !ok {
		fields["due_date"] = "use format 2006-01-02"
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return Goal{}, false
	}

	return Goal{
		CategoryID:  payload.Category,
		Title:       payload.Title,
		Description: payload.Description,
		Status:      payload.Status,
		Priority:    payload.Priority,
		DueDate:     dueDate,
	}, true
}

// handleGoalList возвращает цели на досках пользователя с учетом фильтров.
func (a *API) handleGoalList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireGet(w, r)
	if !ok {
		return
	}

	limit, offset := pageFromQuery(r)
	filter := GoalFilter{
		CategoryID: uintFromQuery(r, "category"),
		Status:     int(uintFromQuery(r, "status")),
		Priority:   int(uintFromQuery(r, "priority")),
		DueFrom:    dateFromQuery(r, "due_date__gte"),
		DueTo:      dateFromQuery(r, "due_date__lte"),
		Search:     r.URL.Query().Get("search"),
		OrderBy:    orderingFromQuery(r, goalOrderings),
		Limit:      limit,
		Offset:     offset,
	}
	goals, count, err := a.store.ListGoals(r.Context(), userID, filter)
	if err != nil {
		http.Error(w, "failed to list goals", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Count: count, Results: goals})
}

// handleGoalByID обрабатывает запросы для конкретной цели.
func (a *API) handleGoalByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	goalID, ok := pathID(r, "/goals/goal/")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		goal, err := a.store.GoalByID(r.Context(), userID, goalID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, goal)
	case http.MethodPut:
		goal, ok := a.decodeGoal(w, r)
		if !ok {
			return
		}
		current, err := a.store.GoalByID(r.Context(), userID, goalID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		goal.ID = goalID
		goal.CategoryID = current.CategoryID
		if goal.Status == 0 {
			goal.Status = current.Status
		}
		if goal.Priority == 0 {
			goal.Priority = current.Priority
		}
		if err := a.store.UpdateGoal(r.Context(), userID, &goal); err != nil {
			writeStoreError(w, err)
			return
		}
		updated, err := a.store.GoalByID(r.Context(), userID, goalID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := a.store.DeleteGoal(r.Context(), userID, goalID); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleCommentCreate добавляет комментарий к цели.
func (a *API) handleCommentCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requirePost(w, r)
	if !ok {
		return
	}

	var payload struct {
		Goal uint   `json:"goal"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	payload.Text = strings.TrimSpace(payload.Text)
	if payload.Text == "" || payload.Goal == 0 {
		writeFieldErrors(w, map[string]string{"text": "text and goal are required"})
		return
	}

	comment, err := a.store.CreateComment(r.Context(), userID, payload.Goal, payload.Text)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// handleCommentList возвращает комментарии к целям пользователя, новые первыми.
func (a *API) handleCommentList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireGet(w, r)
	if !ok {
		return
	}

	limit, offset := pageFromQuery(r)
	filter := CommentFilter{
		GoalID: uintFromQuery(r, "goal"),
		Limit:  limit,
		Offset: offset,
	}
	comments, count, err := a.store.ListComments(r.Context(), userID, filter)
	if err != nil {
		http.Error(w, "failed to list comments", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Count: count, Results: comments})
}

// handleCommentByID обрабатывает запросы для конкретного комментария.
func (a *API) handleCommentByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	commentID, ok := pathID(r, "/goals/goal_comment/")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		comment, err := a.store.CommentByID(r.Context(), userID, commentID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, comment)
	case http.MethodPut:
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		payload.Text = strings.TrimSpace(payload.Text)
		if payload.Text == "" {
			writeFieldErrors(w, map[string]string{"text": "text is required"})
			return
		}
		comment, err := a.store.UpdateComment(r.Context(), userID, commentID, payload.Text)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, comment)
	case http.MethodDelete:
		if err := a.store.DeleteComment(r.Context(), userID, commentID); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// requirePost проверяет метод POST и наличие авторизованного пользователя.
func requirePost(w http.ResponseWriter, r *http.Request) (uint, bool) {
	return requireMethod(w, r, http.MethodPost)
}

// requireGet проверяет метод GET и наличие авторизованного пользователя.
func requireGet(w http.ResponseWriter, r *http.Request) (uint, bool) {
	return requireMethod(w, r, http.MethodGet)
}

// requireMethod проверяет HTTP-метод и возвращает пользователя из контекста.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) (uint, bool) {
	if r.Method != method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return 0, false
	}
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}
