package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramBot отвечает за обработку сообщений Telegram.
type TelegramBot struct {
	store    *Store
	api      *tgbotapi.BotAPI
	sessions *sessionManager
}

// NewTelegramBot создает бот с доступом к хранилищу и проверяет токен.
func NewTelegramBot(store *Store, token string) (*TelegramBot, error) {
	if token == "" {
		return nil, errMissingBotToken
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = false

	return &TelegramBot{store: store, api: api, sessions: newSessionManager()}, nil
}

// Start запускает цикл получения обновлений.
func (b *TelegramBot) Start(ctx context.Context) error {
	log.Printf("Authorized on account %s", b.api.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			chatID := update.Message.Chat.ID
			text := strings.TrimSpace(update.Message.Text)
			for _, reply := range b.handleMessage(ctx, chatID, update.Message.From.ID, text) {
				b.Notify(chatID, reply)
			}
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		}
	}
}

// Notify отправляет сообщение в чат. Безопасен при выключенном боте.
func (b *TelegramBot) Notify(chatID int64, text string) {
	if b == nil {
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send message error: %v", err)
	}
}

// handleMessage маршрутизирует сообщение пользователя и возвращает ответы.
func (b *TelegramBot) handleMessage(ctx context.Context, chatID, tgUserID int64, text string) []string {
	var replies []string

	tgUser, created, err := b.store.GetOrCreateTgUser(ctx, tgUserID, chatID)
	if err != nil {
		log.Printf("get or create tg user error: %v", err)
		return []string{"Не удалось обработать сообщение. Попробуйте позже."}
	}
	if created {
		replies = append(replies, verificationPrompt(tgUser.VerificationCode))
	}

	switch text {
	case "/goals":
		replies = append(replies, b.handleGoals(ctx, tgUser))
	case "/create":
		replies = append(replies, b.handleCreate(ctx, chatID, tgUser))
	case "/cancel":
		b.sessions.reset(chatID)
		replies = append(replies, "Операция отменена")
	case "/verify":
		if !created {
			replies = append(replies, b.handleVerify(ctx, tgUser))
		}
	default:
		session := b.sessions.get(chatID)
		switch session.state {
		case stateCategoryChoose:
			replies = append(replies, b.handleCategoryChoose(ctx, chatID, tgUser, text))
		case stateGoalCreate:
			replies = append(replies, b.handleGoalCreate(ctx, chatID, tgUser, session.categoryID, text))
		default:
			replies = append(replies, fmt.Sprintf("Неизвестная команда %s", text))
		}
	}
	return replies
}

// handleVerify выписывает новый код подтверждения, затирая старый.
func (b *TelegramBot) handleVerify(ctx context.Context, tgUser TgUser) string {
	if tgUser.UserID != nil {
		return "Аккаунт уже подтвержден."
	}
	code, err := b.store.RefreshVerificationCode(ctx, tgUser.TgUserID)
	if err != nil {
		log.Printf("refresh verification code error: %v", err)
		return "Не удалось выписать новый код. Попробуйте позже."
	}
	return verificationPrompt(code)
}

// handleGoals выводит список неархивных целей на досках пользователя.
func (b *TelegramBot) handleGoals(ctx context.Context, tgUser TgUser) string {
	if tgUser.UserID == nil {
		return verificationReminder()
	}
	goals, _, err := b.store.ListGoals(ctx, *tgUser.UserID, GoalFilter{})
	if err != nil {
		log.Printf("list goals error: %v", err)
		return "Не удалось получить цели. Попробуйте позже."
	}
	if len(goals) == 0 {
		return "Целей пока нет."
	}

	lines := make([]string, 0, len(goals)+1)
	lines = append(lines, "Список целей:")
	for _, goal := range goals {
		lines = append(lines, goal.Title)
	}
	return strings.Join(lines, "\n")
}

// handleCreate показывает категории пользователя и начинает диалог создания цели.
func (b *TelegramBot) handleCreate(ctx context.Context, chatID int64, tgUser TgUser) string {
	if tgUser.UserID == nil {
		return verificationReminder()
	}
	categories, _, err := b.store.ListCategories(ctx, *tgUser.UserID, CategoryFilter{})
	if err != nil {
		log.Printf("list categories error: %v", err)
		return "Не удалось получить категории. Попробуйте позже."
	}

	lines := make([]string, 0, len(categories)+1)
	lines = append(lines, "Выберите категорию:")
	for _, category := range categories {
		lines = append(lines, "- "+category.Title)
	}
	b.sessions.set(chatID, chatSession{state: stateCategoryChoose})
	return strings.Join(lines, "\n")
}

// handleCategoryChoose проверяет выбранную категорию по точному названию.
func (b *TelegramBot) handleCategoryChoose(ctx context.Context, chatID int64, tgUser TgUser, text string) string {
	if tgUser.UserID == nil {
		b.sessions.reset(chatID)
		return verificationReminder()
	}
	category, found, err := b.store.CategoryByTitle(ctx, *tgUser.UserID, text)
	if err != nil {
		log.Printf("category by title error: %v", err)
		return "Не удалось проверить категорию. Попробуйте позже."
	}
	if !found {
		return fmt.Sprintf("Категории %q не существует", text)
	}
	b.sessions.set(chatID, chatSession{state: stateGoalCreate, categoryID: category.ID})
	return "Введите название цели"
}

// handleGoalCreate создает цель с присланным названием и сегодняшней датой.
func (b *TelegramBot) handleGoalCreate(ctx context.Context, chatID int64, tgUser TgUser, categoryID uint, text string) string {
	if tgUser.UserID == nil {
		b.sessions.reset(chatID)
		return verificationReminder()
	}

	today := todayDate()
	goal := Goal{Title: text, CategoryID: categoryID, DueDate: &today}
	err := b.store.CreateGoal(ctx, *tgUser.UserID, &goal)
	switch {
	case err == errNotFound:
		b.sessions.reset(chatID)
		return "Категория больше недоступна. Начните заново: /create"
	case err == errForbidden:
		b.sessions.reset(chatID)
		return "Недостаточно прав для создания цели в этой категории."
	case err != nil:
		log.Printf("create goal error: %v", err)
		return "Не удалось создать цель. Попробуйте позже."
	}

	b.sessions.reset(chatID)
	return fmt.Sprintf("Цель %q создана", goal.Title)
}

// verificationPrompt возвращает приглашение подтвердить аккаунт на сайте.
func verificationPrompt(code string) string {
	return fmt.Sprintf("Подтвердите свой аккаунт. Для подтверждения необходимо ввести код: %s на сайте", code)
}

// verificationReminder возвращает напоминание о подтверждении без кода.
func verificationReminder() string {
	return "Сначала подтвердите аккаунт на сайте. Новый код можно получить командой /verify."
}

// todayDate возвращает текущую дату без времени.
func todayDate() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
