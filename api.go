package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ChatNotifier отправляет уведомление в чат Telegram.
type ChatNotifier interface {
	Notify(chatID int64, text string)
}

// API описывает HTTP API приложения.
type API struct {
	store    *Store
	secret   string
	notifier ChatNotifier
}

// NewAPI создает API с заданным хранилищем, секретом токенов и ботом.
func NewAPI(store *Store, secret string, notifier ChatNotifier) *API {
	return &API{store: store, secret: secret, notifier: notifier}
}

// Handler возвращает http.Handler со всеми маршрутами API.
func (a *API) Handler() http.Handler {
	protected := http.NewServeMux()
	protected.HandleFunc("/core/profile", a.handleProfile)
	protected.HandleFunc("/core/update_password", a.handleUpdatePassword)
	protected.HandleFunc("/goals/board/create", a.handleBoardCreate)
	protected.HandleFunc("/goals/board/list", a.handleBoardList)
	protected.HandleFunc("/goals/board/", a.handleBoardByID)
	protected.HandleFunc("/goals/goal_category/create", a.handleCategoryCreate)
	protected.HandleFunc("/goals/goal_category/list", a.handleCategoryList)
	protected.HandleFunc("/goals/goal_category/", a.handleCategoryByID)
	protected.HandleFunc("/goals/goal/create", a.handleGoalCreate)
	protected.HandleFunc("/goals/goal/list", a.handleGoalList)
	protected.HandleFunc("/goals/goal/", a.handleGoalByID)
	protected.HandleFunc("/goals/goal_comment/create", a.handleCommentCreate)
	protected.HandleFunc("/goals/goal_comment/list", a.handleCommentList)
	protected.HandleFunc("/goals/goal_comment/", a.handleCommentByID)
	protected.HandleFunc("/bot/verify", a.handleBotVerify)

	auth := AuthMiddleware{Secret: a.secret}
	mux := http.NewServeMux()
	mux.HandleFunc("/core/signup", a.handleSignup)
	mux.HandleFunc("/core/login", a.handleLogin)
	mux.Handle("/", auth.Wrap(protected))

	return LoggingMiddleware(mux)
}

// pageResponse — конверт ответа для списочных ручек.
type pageResponse struct {
	Count   int64 `json:"count"`
	Results any   `json:"results"`
}

// writeJSON сериализует ответ в JSON.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeFieldErrors возвращает ошибки валидации по полям.
func writeFieldErrors(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, fields)
}

// writeStoreError переводит ошибку хранилища в HTTP-статус.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case err == errNotFound:
		http.Error(w, "not found", http.StatusNotFound)
	case err == errForbidden:
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// pathID извлекает числовой идентификатор из пути после префикса.
func pathID(r *http.Request, prefix string) (uint, bool) {
	trimmed := strings.TrimPrefix(r.URL.Path, prefix)
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return 0, false
	}
	id, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// pageFromQuery извлекает limit и offset из параметров запроса.
func pageFromQuery(r *http.Request) (limit, offset int) {
	if value, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && value > 0 {
		limit = value
	}
	if value, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && value > 0 {
		offset = value
	}
	return limit, offset
}

// uintFromQuery извлекает числовой параметр запроса, 0 — параметр не задан.
func uintFromQuery(r *http.Request, key string) uint {
	value, err := strconv.ParseUint(r.URL.Query().Get(key), 10, 64)
	if err != nil {
		return 0
	}
	return uint(value)
}

// dateFromQuery извлекает дату из параметра запроса в формате 2006-01-02.
func dateFromQuery(r *http.Request, key string) *time.Time {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &parsed
}

// parseDate разбирает дату из тела запроса: сначала 2006-01-02, затем RFC3339.
func parseDate(value string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	if parsed, err := time.Parse("2006-01-02", value); err == nil {
		return &parsed, true
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return &parsed, true
	}
	return nil, false
}

// orderingFromQuery переводит параметр ordering в SQL с проверкой по списку.
func orderingFromQuery(r *http.Request, allowed map[string]string) string {
	return allowed[r.URL.Query().Get("ordering")]
}
