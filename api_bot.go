package main

import (
	"encoding/json"
	"net/http"
)

// handleBotVerify привязывает аккаунт пользователя к Telegram по коду подтверждения.
func (a *API) handleBotVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var payload struct {
		VerificationCode string `json:"verification_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if payload.VerificationCode == "" {
		writeFieldErrors(w, map[string]string{"verification_code": "verification_code is required"})
		return
	}

	tgUser, err := a.store.ConfirmVerificationCode(r.Context(), payload.VerificationCode, userID)
	if err != nil {
		switch err {
		case errNotFound:
			writeFieldErrors(w, map[string]string{"verification_code": "invalid verification code"})
		case errAlreadyLinked:
			writeFieldErrors(w, map[string]string{"verification_code": "code belongs to another account"})
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	if a.notifier != nil {
		a.notifier.Notify(tgUser.TgChatID, "Успешно")
	}
	writeJSON(w, http.StatusCreated, struct {
		VerificationCode string `json:"verification_code"`
	}{VerificationCode: payload.VerificationCode})
}
