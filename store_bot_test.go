package main

import (
	"context"
	"strings"
	"testing"
)

func TestGetOrCreateTgUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tgUser, created, err := store.GetOrCreateTgUser(ctx, 100, 200)
	if err != nil {
		t.Fatalf("GetOrCreateTgUser: %v", err)
	}
	if !created {
		t.Error("created = false on first contact")
	}
	if tgUser.UserID != nil {
		t.Error("new identity already linked")
	}
	if len(tgUser.VerificationCode) != codeLength {
		t.Errorf("code length = %d, want %d", len(tgUser.VerificationCode), codeLength)
	}

	again, created, err := store.GetOrCreateTgUser(ctx, 100, 200)
	if err != nil {
		t.Fatalf("GetOrCreateTgUser: %v", err)
	}
	if created {
		t.Error("created = true on repeat contact")
	}
	if again.VerificationCode != tgUser.VerificationCode {
		t.Error("verification code changed without refresh")
	}
}

func TestConfirmVerificationCode(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")

	tgUser, _, err := store.GetOrCreateTgUser(ctx, 100, 200)
	if err != nil {
		t.Fatalf("GetOrCreateTgUser: %v", err)
	}

	if _, err := store.ConfirmVerificationCode(ctx, "nosuchcode", alice.ID); err != errNotFound {
		t.Errorf("unknown code: err = %v, want errNotFound", err)
	}

	linked, err := store.ConfirmVerificationCode(ctx, tgUser.VerificationCode, alice.ID)
	if err != nil {
		t.Fatalf("ConfirmVerificationCode: %v", err)
	}
	if linked.UserID == nil || *linked.UserID != alice.ID {
		t.Fatal("identity not linked to alice")
	}

	// Повторное подтверждение тем же аккаунтом допустимо.
	if _, err := store.ConfirmVerificationCode(ctx, tgUser.VerificationCode, alice.ID); err != nil {
		t.Errorf("repeat confirm by same user: %v", err)
	}
	// Чужой аккаунт не может перепривязать чат.
	if _, err := store.ConfirmVerificationCode(ctx, tgUser.VerificationCode, bob.ID); err != errAlreadyLinked {
		t.Errorf("confirm by other user: err = %v, want errAlreadyLinked", err)
	}

	stored, found, err := store.TgUserByID(ctx, 100)
	if err != nil || !found {
		t.Fatalf("TgUserByID: %v, found = %v", err, found)
	}
	if stored.UserID == nil || *stored.UserID != alice.ID {
		t.Error("link overwritten by failed confirm")
	}
}

func TestRefreshVerificationCode(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, store, "alice")

	tgUser, _, err := store.GetOrCreateTgUser(ctx, 100, 200)
	if err != nil {
		t.Fatalf("GetOrCreateTgUser: %v", err)
	}

	code, err := store.RefreshVerificationCode(ctx, 100)
	if err != nil {
		t.Fatalf("RefreshVerificationCode: %v", err)
	}
	if code == tgUser.VerificationCode {
		t.Error("code not refreshed")
	}

	// Старый код больше не действует.
	if _, err := store.ConfirmVerificationCode(ctx, tgUser.VerificationCode, alice.ID); err != errNotFound {
		t.Errorf("old code: err = %v, want errNotFound", err)
	}
	if _, err := store.ConfirmVerificationCode(ctx, code, alice.ID); err != nil {
		t.Errorf("new code: %v", err)
	}

	if _, err := store.RefreshVerificationCode(ctx, 999); err != errNotFound {
		t.Errorf("unknown tg user: err = %v, want errNotFound", err)
	}
}

func TestRandomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := randomCode(codeLength)
		if err != nil {
			t.Fatalf("randomCode: %v", err)
		}
		if len(code) != codeLength {
			t.Fatalf("length = %d, want %d", len(code), codeLength)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q outside alphabet", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 50 {
		t.Errorf("only %d distinct codes out of 50", len(seen))
	}
}
