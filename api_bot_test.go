package main

import (
	"context"
	"net/http"
	"testing"
)

func TestBotVerify(t *testing.T) {
	env := newTestEnv(t)
	env.signup("alice", "password123")
	env.signup("bob", "password123")
	aliceToken := env.login("alice", "password123")
	bobToken := env.login("bob", "password123")

	ctx := context.Background()
	tgUser, _, err := env.store.GetOrCreateTgUser(ctx, 100, 200)
	if err != nil {
		t.Fatalf("GetOrCreateTgUser: %v", err)
	}

	// Неверный код не привязывает аккаунт.
	rec := env.do(http.MethodPatch, "/bot/verify", aliceToken, map[string]string{
		"verification_code": "nosuchcode",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid code: status = %d, want 400", rec.Code)
	}
	stored, _, _ := env.store.TgUserByID(ctx, 100)
	if stored.UserID != nil {
		t.Fatal("identity linked by invalid code")
	}

	rec = env.do(http.MethodPatch, "/bot/verify", aliceToken, map[string]string{
		"verification_code": tgUser.VerificationCode,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("verify: status = %d, body = %s", rec.Code, rec.Body)
	}
	stored, _, _ = env.store.TgUserByID(ctx, 100)
	if stored.UserID == nil {
		t.Fatal("identity not linked")
	}
	if env.notifier.chatID != 200 || len(env.notifier.texts) != 1 || env.notifier.texts[0] != "Успешно" {
		t.Errorf("notifications = %v to chat %d", env.notifier.texts, env.notifier.chatID)
	}

	// Чужой аккаунт не может перепривязать подтвержденный чат.
	rec = env.do(http.MethodPatch, "/bot/verify", bobToken, map[string]string{
		"verification_code": tgUser.VerificationCode,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("relink: status = %d, want 400", rec.Code)
	}

	// Повторное подтверждение тем же аккаунтом допустимо.
	rec = env.do(http.MethodPatch, "/bot/verify", aliceToken, map[string]string{
		"verification_code": tgUser.VerificationCode,
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("repeat verify: status = %d, want 201", rec.Code)
	}

	// Без авторизации ручка недоступна.
	rec = env.do(http.MethodPatch, "/bot/verify", "", map[string]string{
		"verification_code": tgUser.VerificationCode,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated verify: status = %d, want 401", rec.Code)
	}
}
