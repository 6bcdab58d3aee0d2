package main

import "sync"

// sessionState — этап диалога создания цели.
type sessionState int

const (
	stateIdle sessionState = iota
	stateCategoryChoose
	stateGoalCreate
)

// chatSession хранит этап диалога и выбранную категорию для одного чата.
// CategoryID заполнен только на этапе stateGoalCreate.
type chatSession struct {
	state      sessionState
	categoryID uint
}

// sessionManager хранит состояния диалогов по идентификатору чата.
type sessionManager struct {
	mu       sync.Mutex
	sessions map[int64]chatSession
}

// newSessionManager создает пустой набор сессий.
func newSessionManager() *sessionManager {
	return &sessionManager{sessions: make(map[int64]chatSession)}
}

// get возвращает сессию чата. Для неизвестного чата — исходное состояние.
func (m *sessionManager) get(chatID int64) chatSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[chatID]
}

// set сохраняет сессию чата.
func (m *sessionManager) set(chatID int64, session chatSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = session
}

// reset возвращает чат в исходное состояние.
func (m *sessionManager) reset(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}
