package main

import (
	"context"
	"strings"
	"testing"
	"time"
)

// newTestBot создает бот без подключения к Telegram.
func newTestBot(store *Store) *TelegramBot {
	return &TelegramBot{store: store, sessions: newSessionManager()}
}

// linkTgUser создает и подтверждает запись Telegram для пользователя.
func linkTgUser(t *testing.T, store *Store, userID uint, tgUserID, chatID int64) {
	t.Helper()
	ctx := context.Background()
	tgUser, _, err := store.GetOrCreateTgUser(ctx, tgUserID, chatID)
	if err != nil {
		t.Fatalf("GetOrCreateTgUser: %v", err)
	}
	if _, err := store.ConfirmVerificationCode(ctx, tgUser.VerificationCode, userID); err != nil {
		t.Fatalf("ConfirmVerificationCode: %v", err)
	}
}

func TestFirstContact(t *testing.T) {
	store := newTestStore(t)
	bot := newTestBot(store)
	ctx := context.Background()

	replies := bot.handleMessage(ctx, 200, 100, "привет")
	if len(replies) != 2 {
		t.Fatalf("replies = %d, want prompt and unknown command", len(replies))
	}

	tgUser, found, err := store.TgUserByID(ctx, 100)
	if err != nil || !found {
		t.Fatalf("identity not created: %v", err)
	}
	if tgUser.UserID != nil {
		t.Error("new identity already linked")
	}

	withCode := 0
	for _, reply := range replies {
		if strings.Contains(reply, tgUser.VerificationCode) {
			withCode++
		}
	}
	if withCode != 1 {
		t.Errorf("replies with code = %d, want exactly 1", withCode)
	}
	if !strings.Contains(replies[1], "Неизвестная команда") {
		t.Errorf("second reply = %q, want unknown command", replies[1])
	}

	// Повторное сообщение не создает запись и не шлет код заново.
	replies = bot.handleMessage(ctx, 200, 100, "привет")
	if len(replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(replies))
	}
	if strings.Contains(replies[0], tgUser.VerificationCode) {
		t.Error("code resent without /verify")
	}
}

func TestUnlinkedCommands(t *testing.T) {
	store := newTestStore(t)
	bot := newTestBot(store)
	ctx := context.Background()

	bot.handleMessage(ctx, 200, 100, "привет")

	for _, command := range []string{"/goals", "/create"} {
		replies := bot.handleMessage(ctx, 200, 100, command)
		if len(replies) != 1 || !strings.Contains(replies[0], "подтвердите аккаунт") {
			t.Errorf("%s replies = %q, want verification reminder", command, replies)
		}
	}
	if state := bot.sessions.get(200); state.state != stateIdle {
		t.Error("unlinked /create changed session state")
	}
}

func TestVerifyCommandRefreshesCode(t *testing.T) {
	store := newTestStore(t)
	bot := newTestBot(store)
	ctx := context.Background()

	bot.handleMessage(ctx, 200, 100, "привет")
	before, _, _ := store.TgUserByID(ctx, 100)

	replies := bot.handleMessage(ctx, 200, 100, "/verify")
	after, _, _ := store.TgUserByID(ctx, 100)
	if after.VerificationCode == before.VerificationCode {
		t.Error("code not refreshed")
	}
	if len(replies) != 1 || !strings.Contains(replies[0], after.VerificationCode) {
		t.Errorf("replies = %q, want prompt with new code", replies)
	}
}

func TestCreateGoalFlow(t *testing.T) {
	store := newTestStore(t)
	bot := newTestBot(store)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	board, _ := store.CreateBoard(ctx, alice.ID, "Доска")
	if _, err := store.CreateCategory(ctx, alice.ID, board.ID, "Здоровье"); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	linkTgUser(t, store, alice.ID, 100, 200)

	replies := bot.handleMessage(ctx, 200, 100, "/create")
	if len(replies) != 1 || !strings.Contains(replies[0], "- Здоровье") {
		t.Fatalf("replies = %q, want category list", replies)
	}
	if bot.sessions.get(200).state != stateCategoryChoose {
		t.Fatal("state != stateCategoryChoose after /create")
	}

	// Несуществующая категория не меняет состояние.
	replies = bot.handleMessage(ctx, 200, 100, "Отдых")
	if len(replies) != 1 || !strings.Contains(replies[0], "не существует") {
		t.Errorf("replies = %q, want not found", replies)
	}
	if bot.sessions.get(200).state != stateCategoryChoose {
		t.Error("state changed on invalid category")
	}

	replies = bot.handleMessage(ctx, 200, 100, "Здоровье")
	if len(replies) != 1 || !strings.Contains(replies[0], "Введите название цели") {
		t.Fatalf("replies = %q, want title prompt", replies)
	}
	if bot.sessions.get(200).state != stateGoalCreate {
		t.Fatal("state != stateGoalCreate after category")
	}

	replies = bot.handleMessage(ctx, 200, 100, "Бегать по утрам")
	if len(replies) != 1 || !strings.Contains(replies[0], "создана") {
		t.Fatalf("replies = %q, want confirmation", replies)
	}
	if bot.sessions.get(200).state != stateIdle {
		t.Error("state not reset after goal creation")
	}

	goals, _, err := store.ListGoals(ctx, alice.ID, GoalFilter{})
	if err != nil {
		t.Fatalf("ListGoals: %v", err)
	}
	if len(goals) != 1 || goals[0].Title != "Бегать по утрам" {
		t.Fatalf("goals = %+v, want one created goal", goals)
	}
	if goals[0].DueDate == nil || !goals[0].DueDate.Equal(todayDate()) {
		t.Errorf("due date = %v, want today", goals[0].DueDate)
	}
}

func TestCancelFromAnyState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	board, _ := store.CreateBoard(ctx, alice.ID, "Доска")
	if _, err := store.CreateCategory(ctx, alice.ID, board.ID, "Здоровье"); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	setup := map[string][]string{
		"idle":            {},
		"category choose": {"/create"},
		"goal create":     {"/create", "Здоровье"},
	}
	for name, steps := range setup {
		t.Run(name, func(t *testing.T) {
			bot := newTestBot(store)
			linkTgUser(t, store, alice.ID, 100, 200)
			for _, step := range steps {
				bot.handleMessage(ctx, 200, 100, step)
			}
			replies := bot.handleMessage(ctx, 200, 100, "/cancel")
			if len(replies) != 1 || replies[0] != "Операция отменена" {
				t.Errorf("replies = %q", replies)
			}
			if bot.sessions.get(200).state != stateIdle {
				t.Error("state != stateIdle after /cancel")
			}
		})
	}
}

func TestGoalsIgnoresState(t *testing.T) {
	store := newTestStore(t)
	bot := newTestBot(store)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	board, _ := store.CreateBoard(ctx, alice.ID, "Доска")
	category, _ := store.CreateCategory(ctx, alice.ID, board.ID, "Здоровье")
	goal := Goal{Title: "Бегать", CategoryID: category.ID}
	if err := store.CreateGoal(ctx, alice.ID, &goal); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	linkTgUser(t, store, alice.ID, 100, 200)

	bot.handleMessage(ctx, 200, 100, "/create")
	replies := bot.handleMessage(ctx, 200, 100, "/goals")
	if len(replies) != 1 || !strings.Contains(replies[0], "Бегать") {
		t.Errorf("replies = %q, want goal list", replies)
	}
	if bot.sessions.get(200).state != stateCategoryChoose {
		t.Error("/goals changed session state")
	}
}

func TestSessionsPerChat(t *testing.T) {
	store := newTestStore(t)
	bot := newTestBot(store)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")
	aliceBoard, _ := store.CreateBoard(ctx, alice.ID, "Доска Алисы")
	bobBoard, _ := store.CreateBoard(ctx, bob.ID, "Доска Боба")
	if _, err := store.CreateCategory(ctx, alice.ID, aliceBoard.ID, "Здоровье"); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := store.CreateCategory(ctx, bob.ID, bobBoard.ID, "Работа"); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	linkTgUser(t, store, alice.ID, 100, 200)
	linkTgUser(t, store, bob.ID, 101, 201)

	// Алиса входит в диалог, Боб остается в исходном состоянии.
	bot.handleMessage(ctx, 200, 100, "/create")
	if bot.sessions.get(201).state != stateIdle {
		t.Fatal("bob entered dialog started by alice")
	}

	// Боб начинает свой диалог и не видит чужую категорию.
	bot.handleMessage(ctx, 201, 101, "/create")
	replies := bot.handleMessage(ctx, 201, 101, "Здоровье")
	if len(replies) != 1 || !strings.Contains(replies[0], "не существует") {
		t.Errorf("replies = %q, want not found for foreign category", replies)
	}

	// Диалог Алисы не пострадал.
	replies = bot.handleMessage(ctx, 200, 100, "Здоровье")
	if len(replies) != 1 || !strings.Contains(replies[0], "Введите название цели") {
		t.Errorf("replies = %q, want title prompt", replies)
	}
}

func TestTodayDate(t *testing.T) {
	today := todayDate()
	if today.Hour() != 0 || today.Minute() != 0 || today.Second() != 0 {
		t.Errorf("todayDate = %v, want midnight", today)
	}
	if now := time.Now().UTC(); today.Year() != now.Year() || today.YearDay() != now.YearDay() {
		t.Errorf("todayDate = %v, want current day", today)
	}
}
