package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeNotifier записывает отправленные уведомления вместо Telegram.
type fakeNotifier struct {
	chatID int64
	texts  []string
}

func (f *fakeNotifier) Notify(chatID int64, text string) {
	f.chatID = chatID
	f.texts = append(f.texts, text)
}

// testEnv связывает хранилище, API и фальшивый Telegram для тестов.
type testEnv struct {
	t        *testing.T
	store    *Store
	handler  http.Handler
	notifier *fakeNotifier
}

// newTestEnv поднимает API на sqlite в памяти.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newTestStore(t)
	notifier := &fakeNotifier{}
	api := NewAPI(store, "test-secret", notifier)
	return &testEnv{t: t, store: store, handler: api.Handler(), notifier: notifier}
}

// do выполняет запрос к API с JSON-телом и токеном авторизации.
func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// signup регистрирует пользователя и проверяет статус ответа.
func (e *testEnv) signup(username, password string) {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/core/signup", "", map[string]string{
		"username":        username,
		"password":        password,
		"password_repeat": password,
	})
	if rec.Code != http.StatusCreated {
		e.t.Fatalf("signup %s: status = %d, body = %s", username, rec.Code, rec.Body)
	}
}

// login входит в аккаунт и возвращает токен.
func (e *testEnv) login(username, password string) string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/core/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		e.t.Fatalf("login %s: status = %d, body = %s", username, rec.Code, rec.Body)
	}
	var response struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		e.t.Fatalf("decode login response: %v", err)
	}
	if response.Token == "" {
		e.t.Fatal("empty token in login response")
	}
	return response.Token
}

func TestSignupLoginProfile(t *testing.T) {
	env := newTestEnv(t)
	env.signup("alice", "password123")

	// Повторная регистрация того же имени запрещена.
	rec := env.do(http.MethodPost, "/core/signup", "", map[string]string{
		"username":        "alice",
		"password":        "password123",
		"password_repeat": "password123",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate signup: status = %d, want 400", rec.Code)
	}

	rec = env.do(http.MethodPost, "/core/login", "", map[string]string{
		"username": "alice",
		"password": "wrongwrong",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("wrong password login: status = %d, want 400", rec.Code)
	}

	token := env.login("alice", "password123")

	rec = env.do(http.MethodGet, "/core/profile", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: status = %d", rec.Code)
	}
	var profile User
	if err := json.NewDecoder(rec.Body).Decode(&profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Username != "alice" {
		t.Errorf("username = %q, want alice", profile.Username)
	}

	if rec := env.do(http.MethodGet, "/core/profile", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("profile without token: status = %d, want 401", rec.Code)
	}
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{
			"short password",
			map[string]string{"username": "bob", "password": "short", "password_repeat": "short"},
			"password",
		},
		{
			"mismatch",
			map[string]string{"username": "bob", "password": "password123", "password_repeat": "password456"},
			"password_repeat",
		},
		{
			"empty username",
			map[string]string{"username": "  ", "password": "password123", "password_repeat": "password123"},
			"username",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/core/signup", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var fields map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&fields); err != nil {
				t.Fatalf("decode fields: %v", err)
			}
			if fields[tt.field] == "" {
				t.Errorf("no error for field %q: %v", tt.field, fields)
			}
		})
	}
}

func TestProfileUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.signup("alice", "password123")
	token := env.login("alice", "password123")

	rec := env.do(http.MethodPut, "/core/profile", token, map[string]string{
		"username":   "alice",
		"first_name": "Алиса",
		"email":      "alice@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update profile: status = %d, body = %s", rec.Code, rec.Body)
	}
	var profile User
	if err := json.NewDecoder(rec.Body).Decode(&profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.FirstName != "Алиса" || profile.Email != "alice@example.com" {
		t.Errorf("profile = %+v", profile)
	}

	if rec := env.do(http.MethodDelete, "/core/profile", token, nil); rec.Code != http.StatusNoContent {
		t.Errorf("logout: status = %d, want 204", rec.Code)
	}
}

func TestUpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	env.signup("alice", "password123")
	token := env.login("alice", "password123")

	rec := env.do(http.MethodPut, "/core/update_password", token, map[string]string{
		"old_password": "wrongwrong",
		"new_password": "newpassword1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("wrong old password: status = %d, want 400", rec.Code)
	}

	rec = env.do(http.MethodPut, "/core/update_password", token, map[string]string{
		"old_password": "password123",
		"new_password": "newpassword1",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("update password: status = %d, body = %s", rec.Code, rec.Body)
	}

	env.login("alice", "newpassword1")
	rec = env.do(http.MethodPost, "/core/login", "", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("old password still works: status = %d", rec.Code)
	}
}
