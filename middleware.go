package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"
)

// ctxKey — тип ключей контекста запроса.
type ctxKey int

// ctxKeyUserID хранит идентификатор авторизованного пользователя.
const ctxKeyUserID ctxKey = iota

// AuthMiddleware проверяет токен авторизации для HTTP API.
type AuthMiddleware struct {
	Secret string
}

// Wrap добавляет проверку заголовка Authorization к обработчику
// и кладет идентификатор пользователя в контекст запроса.
func (a AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := a.authorized(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer realm=todolist")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authorized извлекает и проверяет токен из заголовка Authorization.
func (a AuthMiddleware) authorized(r *http.Request) (uint, bool) {
	if a.Secret == "" {
		return 0, false
	}
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return 0, false
	}
	userID, err := parseToken(a.Secret, strings.TrimPrefix(header, prefix))
	if err != nil {
		return 0, false
	}
	return userID, true
}

// userIDFromContext возвращает идентификатор пользователя из контекста запроса.
func userIDFromContext(ctx context.Context) (uint, bool) {
	userID, ok := ctx.Value(ctxKeyUserID).(uint)
	return userID, ok
}

// LoggingMiddleware выводит в лог информацию о запросе.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("http %s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
