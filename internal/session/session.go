package session

import "sync"

// Board is the results message kept up to date in one chat.
type Board struct {
	MessageID int
	Text      string
}

type Manager struct {
	mu     sync.RWMutex
	boards map[int64]*Board
}

func NewManager() *Manager {
	return &Manager{
		boards: make(map[int64]*Board),
	}
}

// Get returns the board for chatID, or nil if none was posted yet.
func (m *Manager) Get(chatID int64) *Board {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.boards[chatID]
}

func (m *Manager) Set(chatID int64, b *Board) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[chatID] = b
}
