package main

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// CategoryFilter задает параметры выборки списка категорий.
type CategoryFilter struct {
	BoardID uint
	OrderBy string
	Limit   int
	Offset  int
}

// GoalFilter задает параметры выборки списка целей.
type GoalFilter struct {
	CategoryID uint
	Status     int
	Priority   int
	DueFrom    *time.Time
	DueTo      *time.Time
	Search     string
	OrderBy    string
	Limit      int
	Offset     int
}

// CommentFilter задает параметры выборки списка комментариев.
type CommentFilter struct {
	GoalID uint
	Limit  int
	Offset int
}

// CreateBoard создает доску и записывает автора владельцем.
func (s *Store) CreateBoard(ctx context.Context, userID uint, title string) (Board, error) {
	board := Board{Title: title}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&board).Error; err != nil {
			return err
		}
		participant := BoardParticipant{BoardID: board.ID, UserID: userID, Role: RoleOwner}
		return tx.Create(&participant).Error
	})
	if err != nil {
		return Board{}, err
	}
	return board, nil
}

// ListBoards возвращает неудаленные доски, в которых участвует пользователь.
func (s *Store) ListBoards(ctx context.Context, userID uint, limit, offset int) ([]Board, int64, error) {
	query := s.db.WithContext(ctx).Model(&Board{}).
		Joins("JOIN board_participants ON board_participants.board_id = boards.id").
		Where("board_participants.user_id = ? AND boards.is_deleted = ?", userID, false)

	var count int64
	if err := query.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var boards []Board
	err := applyPage(query.Order("boards.title asc"), limit, offset).Find(&boards).Error
	if err != nil {
		return nil, 0, err
	}
	return boards, count, nil
}

// BoardByID возвращает доску пользователя вместе со списком участников.
func (s *Store) BoardByID(ctx context.Context, userID, boardID uint) (Board, []BoardParticipant, error) {
	var board Board
	err := s.db.WithContext(ctx).Model(&Board{}).
		Joins("JOIN board_participants ON board_participants.board_id = boards.id").
		Where("board_participants.user_id = ? AND boards.is_deleted = ? AND boards.id = ?", userID, false, boardID).
		First(&board).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Board{}, nil, errNotFound
	}
	if err != nil {
		return Board{}, nil, err
	}

	var participants []BoardParticipant
	err = s.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("role asc, user_id asc").
		Find(&participants).Error
	if err != nil {
		return Board{}, nil, err
	}
	return board, participants, nil
}

// UpdateBoard меняет название доски и приводит список участников к переданному.
// Доступно только владельцу; запись владельца не изменяется и не удаляется.
func (s *Store) UpdateBoard(ctx context.Context, userID, boardID uint, title string, participants []BoardParticipant) (Board, error) {
	role, ok, err := s.boardRole(ctx, userID, boardID)
	if err != nil {
		return Board{}, err
	}
	if !ok {
		return Board{}, errNotFound
	}
	if role != RoleOwner {
		return Board{}, errForbidden
	}

	newByUser := make(map[uint]int, len(participants))
	for _, participant := range participants {
		if participant.UserID == userID {
			continue
		}
		newByUser[participant.UserID] = participant.Role
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Board{}).Where("id = ?", boardID).Update("title", title).Error; err != nil {
			return err
		}

		var existing []BoardParticipant
		if err := tx.Where("board_id = ? AND user_id <> ?", boardID, userID).Find(&existing).Error; err != nil {
			return err
		}
		for _, old := range existing {
			newRole, keep := newByUser[old.UserID]
			if !keep {
				if err := tx.Delete(&BoardParticipant{}, old.ID).Error; err != nil {
					return err
				}
				continue
			}
			if newRole != old.Role {
				if err := tx.Model(&BoardParticipant{}).Where("id = ?", old.ID).Update("role", newRole).Error; err != nil {
					return err
				}
			}
			delete(newByUser, old.UserID)
		}
		for newUserID, newRole := range newByUser {
			participant := BoardParticipant{BoardID: boardID, UserID: newUserID, Role: newRole}
			if err := tx.Create(&participant).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Board{}, err
	}

	board, _, err := s.BoardByID(ctx, userID, boardID)
	return board, err
}

// DeleteBoard помечает доску удаленной, «удаляет» ее категории и архивирует цели.
func (s *Store) DeleteBoard(ctx context.Context, userID, boardID uint) error {
	role, ok, err := s.boardRole(ctx, userID, boardID)
	if err != nil {
		return err
	}
	if !ok {
		return errNotFound
	}
	if role != RoleOwner {
		return errForbidden
	}

	categoryIDs := s.db.Model(&GoalCategory{}).Select("id").Where("board_id = ?", boardID)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Board{}).Where("id = ?", boardID).Update("is_deleted", true).Error; err != nil {
			return err
		}
		if err := tx.Model(&GoalCategory{}).Where("board_id = ?", boardID).Update("is_deleted", true).Error; err != nil {
			return err
		}
		return tx.Model(&Goal{}).
			Where("category_id IN (?)", categoryIDs).
			Update("status", StatusArchived).Error
	})
}

// CreateCategory создает категорию на доске. Требует роли владельца или редактора.
func (s *Store) CreateCategory(ctx context.Context, userID, boardID uint, title string) (GoalCategory, error) {
	var board Board
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", boardID, false).
		First(&board).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return GoalCategory{}, errNotFound
	}
	if err != nil {
		return GoalCategory{}, err
	}

	role, ok, err := s.boardRole(ctx, userID, boardID)
	if err != nil {
		return GoalCategory{}, err
	}
	if !ok {
		return GoalCategory{}, errNotFound
	}
	if role != RoleOwner && role != RoleWriter {
		return GoalCategory{}, errForbidden
	}

	category := GoalCategory{BoardID: boardID, Title: title, UserID: userID}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return GoalCategory{}, err
	}
	return category, nil
}

// ListCategories возвращает неудаленные категории на досках пользователя.
func (s *Store) ListCategories(ctx context.Context, userID uint, filter CategoryFilter) ([]GoalCategory, int64, error) {
	query := s.scopedCategories(ctx, userID)
	if filter.BoardID != 0 {
		query = query.Where("goal_categories.board_id = ?", filter.BoardID)
	}

	var count int64
	if err := query.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "goal_categories.title asc"
	}
	var categories []GoalCategory
	err := applyPage(query.Order(orderBy), filter.Limit, filter.Offset).Find(&categories).Error
	if err != nil {
		return nil, 0, err
	}
	return categories, count, nil
}

// CategoryByID возвращает неудаленную категорию с доски пользователя.
func (s *Store) CategoryByID(ctx context.Context, userID, categoryID uint) (GoalCategory, error) {
	var category GoalCategory
	err := s.scopedCategories(ctx, userID).
		Where("goal_categories.id = ?", categoryID).
		First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return GoalCategory{}, errNotFound
	}
	if err != nil {
		return GoalCategory{}, err
	}
	return category, nil
}

// CategoryByTitle ищет категорию по точному названию среди досок пользователя.
// Используется ботом при выборе категории.
func (s *Store) CategoryByTitle(ctx context.Context, userID uint, title string) (GoalCategory, bool, error) {
	var category GoalCategory
	err := s.scopedCategories(ctx, userID).
		Where("goal_categories.title = ?", title).
		First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return GoalCategory{}, false, nil
	}
	if err != nil {
		return GoalCategory{}, false, err
	}
	return category, true, nil
}

// UpdateCategory меняет название категории. Требует роли владельца или редактора.
func (s *Store) UpdateCategory(ctx context.Context, userID, categoryID uint, title string) (GoalCategory, error) {
	category, err := s.CategoryByID(ctx, userID, categoryID)
	if err != nil {
		return GoalCategory{}, err
	}
	if err := s.requireWriterRole(ctx, userID, category.BoardID); err != nil {
		return GoalCategory{}, err
	}
	err = s.db.WithContext(ctx).Model(&GoalCategory{}).
		Where("id = ?", categoryID).
		Update("title", title).Error
	if err != nil {
		return GoalCategory{}, err
	}
	category.Title = title
	return category, nil
}

// DeleteCategory помечает категорию удаленной и архивирует ее цели.
func (s *Store) DeleteCategory(ctx context.Context, userID, categoryID uint) error {
	category, err := s.CategoryByID(ctx, userID, categoryID)
	if err != nil {
		return err
	}
	if err := s.requireWriterRole(ctx, userID, category.BoardID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&GoalCategory{}).Where("id = ?", categoryID).Update("is_deleted", true).Error; err != nil {
			return err
		}
		return tx.Model(&Goal{}).
			Where("category_id = ?", categoryID).
			Update("status", StatusArchived).Error
	})
}

// CreateGoal создает цель в категории, доступной пользователю для записи.
func (s *Store) CreateGoal(ctx context.Context, userID uint, goal *Goal) error {
	category, err := s.CategoryByID(ctx, userID, goal.CategoryID)
	if err != nil {
		return err
	}
	if err := s.requireWriterRole(ctx, userID, category.BoardID); err != nil {
		return err
	}

	goal.UserID = userID
	if goal.Status == 0 {
		goal.Status = StatusToDo
	}
	if goal.Priority == 0 {
		goal.Priority = PriorityMedium
	}
	return s.db.WithContext(ctx).Create(goal).Error
}

// ListGoals возвращает неархивные цели на досках пользователя с учетом фильтров.
func (s *Store) ListGoals(ctx context.Context, userID uint, filter GoalFilter) ([]Goal, int64, error) {
	query := s.scopedGoals(ctx, userID).
		Where("goals.status <> ?", StatusArchived)
	if filter.CategoryID != 0 {
		query = query.Where("goals.category_id = ?", filter.CategoryID)
	}
	if filter.Status != 0 {
		query = query.Where("goals.status = ?", filter.Status)
	}
	if filter.Priority != 0 {
		query = query.Where("goals.priority = ?", filter.Priority)
	}
	if filter.DueFrom != nil {
		query = query.Where("goals.due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("goals.due_date <= ?", *filter.DueTo)
	}
	if filter.Search != "" {
		query = query.Where("goals.title LIKE ?", "%"+filter.Search+"%")
	}

	var count int64
	if err := query.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "goals.title asc"
	}
	var goals []Goal
	err := applyPage(query.Order(orderBy), filter.Limit, filter.Offset).Find(&goals).Error
	if err != nil {
		return nil, 0, err
	}
	return goals, count, nil
}

// GoalByID возвращает цель с доски пользователя, включая архивную.
func (s *Store) GoalByID(ctx context.Context, userID, goalID uint) (Goal, error) {
	var goal Goal
	err := s.scopedGoals(ctx, userID).
		Where("goals.id = ?", goalID).
		First(&goal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Goal{}, errNotFound
	}
	if err != nil {
		return Goal{}, err
	}
	return goal, nil
}

// UpdateGoal обновляет поля цели. Требует роли владельца или редактора.
func (s *Store) UpdateGoal(ctx context.Context, userID uint, goal *Goal) error {
	current, err := s.GoalByID(ctx, userID, goal.ID)
	if err != nil {
		return err
	}
	category, err := s.CategoryByID(ctx, userID, current.CategoryID)
	if err != nil {
		return err
	}
	if err := s.requireWriterRole(ctx, userID, category.BoardID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&Goal{}).
		Where("id = ?", goal.ID).
		Updates(map[string]any{
			"title":       goal.Title,
			"description": goal.Description,
			"status":      goal.Status,
			"priority":    goal.Priority,
			"due_date":    goal.DueDate,
		}).Error
}

// DeleteGoal не удаляет цель физически, а переводит ее в статус архива.
func (s *Store) DeleteGoal(ctx context.Context, userID, goalID uint) error {
	goal, err := s.GoalByID(ctx, userID, goalID)
	if err != nil {
		return err
	}
	category, err := s.CategoryByID(ctx, userID, goal.CategoryID)
	if err != nil {
		return err
	}
	if err := s.requireWriterRole(ctx, userID, category.BoardID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&Goal{}).
		Where("id = ?", goalID).
		Update("status", StatusArchived).Error
}

// CreateComment добавляет комментарий к цели. Требует роли владельца или редактора.
func (s *Store) CreateComment(ctx context.Context, userID, goalID uint, text string) (GoalComment, error) {
	goal, err := s.GoalByID(ctx, userID, goalID)
	if err != nil {
		return GoalComment{}, err
	}
	category, err := s.CategoryByID(ctx, userID, goal.CategoryID)
	if err != nil {
		return GoalComment{}, err
	}
	if err := s.requireWriterRole(ctx, userID, category.BoardID); err != nil {
		return GoalComment{}, err
	}

	comment := GoalComment{GoalID: goalID, UserID: userID, Text: text}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return GoalComment{}, err
	}
	return comment, nil
}

// ListComments возвращает комментарии к целям на досках пользователя, новые первыми.
func (s *Store) ListComments(ctx context.Context, userID uint, filter CommentFilter) ([]GoalComment, int64, error) {
	query := s.scopedComments(ctx, userID)
	if filter.GoalID != 0 {
		query = query.Where("goal_comments.goal_id = ?", filter.GoalID)
	}

	var count int64
	if err := query.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var comments []GoalComment
	err := applyPage(query.Order("goal_comments.created_at desc, goal_comments.id desc"), filter.Limit, filter.Offset).
		Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}
	return comments, count, nil
}

// CommentByID возвращает комментарий к цели с доски пользователя.
func (s *Store) CommentByID(ctx context.Context, userID, commentID uint) (GoalComment, error) {
	var comment GoalComment
	err := s.scopedComments(ctx, userID).
		Where("goal_comments.id = ?", commentID).
		First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return GoalComment{}, errNotFound
	}
	if err != nil {
		return GoalComment{}, err
	}
	return comment, nil
}

// UpdateComment меняет текст комментария. Доступно только автору.
func (s *Store) UpdateComment(ctx context.Context, userID, commentID uint, text string) (GoalComment, error) {
	comment, err := s.CommentByID(ctx, userID, commentID)
	if err != nil {
		return GoalComment{}, err
	}
	if comment.UserID != userID {
		return GoalComment{}, errForbidden
	}
	err = s.db.WithContext(ctx).Model(&GoalComment{}).
		Where("id = ?", commentID).
		Update("text", text).Error
	if err != nil {
		return GoalComment{}, err
	}
	comment.Text = text
	return comment, nil
}

// DeleteComment удаляет комментарий. Доступно только автору.
func (s *Store) DeleteComment(ctx context.Context, userID, commentID uint) error {
	comment, err := s.CommentByID(ctx, userID, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return errForbidden
	}
	return s.db.WithContext(ctx).Delete(&GoalComment{}, commentID).Error
}

// boardRole возвращает роль пользователя на доске, если он ее участник.
func (s *Store) boardRole(ctx context.Context, userID, boardID uint) (int, bool, error) {
	var participant BoardParticipant
	err := s.db.WithContext(ctx).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return participant.Role, true, nil
}

// requireWriterRole проверяет, что пользователь — владелец или редактор доски.
func (s *Store) requireWriterRole(ctx context.Context, userID, boardID uint) error {
	role, ok, err := s.boardRole(ctx, userID, boardID)
	if err != nil {
		return err
	}
	if !ok {
		return errNotFound
	}
	if role != RoleOwner && role != RoleWriter {
		return errForbidden
	}
	return nil
}

// scopedCategories ограничивает выборку категорий досками пользователя.
func (s *Store) scopedCategories(ctx context.Context, userID uint) *gorm.DB {
	return s.db.WithContext(ctx).Model(&GoalCategory{}).
		Joins("JOIN board_participants ON board_participants.board_id = goal_categories.board_id").
		Joins("JOIN boards ON boards.id = goal_categories.board_id").
		Where("board_participants.user_id = ? AND goal_categories.is_deleted = ? AND boards.is_deleted = ?",
			userID, false, false)
}

// scopedGoals ограничивает выборку целей досками пользователя.
func (s *Store) scopedGoals(ctx context.Context, userID uint) *gorm.DB {
	return s.db.WithContext(ctx).Model(&Goal{}).
		Joins("JOIN goal_categories ON goal_categories.id = goals.category_id").
		Joins("JOIN board_participants ON board_participants.board_id = goal_categories.board_id").
		Where("board_participants.user_id = ?", userID)
}

// scopedComments ограничивает выборку комментариев досками пользователя.
func (s *Store) scopedComments(ctx context.Context, userID uint) *gorm.DB {
	return s.db.WithContext(ctx).Model(&GoalComment{}).
		Joins("JOIN goals ON goals.id = goal_comments.goal_id").
		Joins("JOIN goal_categories ON goal_categories.id = goals.category_id").
		Joins("JOIN board_participants ON board_participants.board_id = goal_categories.board_id").
		Where("board_participants.user_id = ?", userID)
}

// applyPage применяет limit/offset к запросу. Нулевой limit означает «без ограничения».
func applyPage(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
