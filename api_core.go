package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// minPasswordLength — минимальная длина пароля.
const minPasswordLength = 8

// handleSignup регистрирует нового пользователя.
func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Username       string `json:"username"`
		Password       string `json:"password"`
		PasswordRepeat string `json:"password_repeat"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		Email          string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	fields := map[string]string{}
	payload.Username = strings.TrimSpace(payload.Username)
	if payload.Username == "" {
		fields["username"] = "username is required"
	}
	if len(payload.Password) < minPasswordLength {
		fields["password"] = "password must be at least 8 characters"
	}
	if payload.Password != payload.PasswordRepeat {
		fields["password_repeat"] = "passwords do not match"
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	hash, err := hashPassword(payload.Password)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	user := User{
		Username:  payload.Username,
		Password:  hash,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
	}
	if err := a.store.CreateUser(r.Context(), &user); err != nil {
		if err == errUsernameTaken {
			writeFieldErrors(w, map[string]string{"username": "username already exists"})
			return
		}
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// handleLogin проверяет учетные данные и возвращает токен авторизации.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	user, found, err := a.store.UserByUsername(r.Context(), payload.Username)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !found || !checkPassword(user.Password, payload.Password) {
		http.Error(w, "invalid username or password", http.StatusBadRequest)
		return
	}

	token, err := issueToken(a.secret, user.ID, time.Now())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		User
		Token string `json:"token"`
	}{User: user, Token: token})
}

// handleProfile возвращает, обновляет профиль или завершает сессию.
func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, found, err := a.store.UserByID(r.Context(), userID)
		if err != nil || !found {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut:
		a.handleProfileUpdate(w, r, userID)
	case http.MethodDelete:
		// Токены не хранятся на сервере, клиенту достаточно забыть свой.
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleProfileUpdate обновляет данные профиля пользователя.
func (a *API) handleProfileUpdate(w http.ResponseWriter, r *http.Request, userID uint) {
	var payload struct {
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	payload.Username = strings.TrimSpace(payload.Username)
	if payload.Username == "" {
		writeFieldErrors(w, map[string]string{"username": "username is required"})
		return
	}

	user := User{
		ID:        userID,
		Username:  payload.Username,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
	}
	if err := a.store.UpdateProfile(r.Context(), &user); err != nil {
		if err == errUsernameTaken {
			writeFieldErrors(w, map[string]string{"username": "username already exists"})
			return
		}
		http.Error(w, "failed to update profile", http.StatusInternalServerError)
		return
	}

	updated, _, err := a.store.UserByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleUpdatePassword меняет пароль после проверки текущего.
func (a *API) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	user, found, err := a.store.UserByID(r.Context(), userID)
	if err != nil || !found {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !checkPassword(user.Password, payload.OldPassword) {
		writeFieldErrors(w, map[string]string{"old_password": "wrong password"})
		return
	}
	if len(payload.NewPassword) < minPasswordLength {
		writeFieldErrors(w, map[string]string{"new_password": "password must be at least 8 characters"})
		return
	}

	hash, err := hashPassword(payload.NewPassword)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := a.store.UpdatePassword(r.Context(), userID, hash); err != nil {
		http.Error(w, "failed to update password", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
