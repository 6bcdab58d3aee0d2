package main

import "time"

// Роли участников доски.
const (
	RoleOwner  = 1
	RoleWriter = 2
	RoleReader = 3
)

// Статусы целей. Архив — терминальный статус вместо физического удаления.
const (
	StatusToDo       = 1
	StatusInProgress = 2
	StatusDone       = 3
	StatusArchived   = 4
)

// Приоритеты целей.
const (
	PriorityLow      = 1
	PriorityMedium   = 2
	PriorityHigh     = 3
	PriorityCritical = 4
)

// User описывает зарегистрированного пользователя приложения.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"size:150;uniqueIndex"`
	Password  string    `json:"-"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

// Board описывает доску с категориями и целями.
type Board struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"size:255"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

// BoardParticipant описывает участие пользователя в доске с ролью.
type BoardParticipant struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BoardID   uint      `json:"board" gorm:"uniqueIndex:idx_board_user"`
	UserID    uint      `json:"user" gorm:"uniqueIndex:idx_board_user"`
	Role      int       `json:"role"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

// GoalCategory описывает категорию целей внутри доски.
type GoalCategory struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BoardID   uint      `json:"board"`
	Title     string    `json:"title" gorm:"size:255"`
	UserID    uint      `json:"user"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

// Goal описывает цель пользователя внутри категории.
type Goal struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"size:255"`
	Description string     `json:"description"`
	Status      int        `json:"status"`
	Priority    int        `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	UserID      uint       `json:"user"`
	CategoryID  uint       `json:"category"`
	CreatedAt   time.Time  `json:"created"`
	UpdatedAt   time.Time  `json:"updated"`
}

// GoalComment описывает комментарий пользователя к цели.
type GoalComment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Text      string    `json:"text"`
	UserID    uint      `json:"user"`
	GoalID    uint      `json:"goal"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

// TgUser связывает пользователя Telegram с аккаунтом на сайте.
// UserID остается пустым до подтверждения кода на сайте.
type TgUser struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	TgChatID         int64  `json:"tg_chat_id"`
	TgUserID         int64  `json:"tg_user_id" gorm:"uniqueIndex"`
	UserID           *uint  `json:"user"`
	VerificationCode string `json:"verification_code" gorm:"size:10;uniqueIndex"`
}
