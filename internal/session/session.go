// Package session tracks per-conversation state between chat updates.
package session

import (
	"strconv"
	"sync"

	"github.com/jqlim/expense-bot/internal/model"
)

// Conversation types. The type decides how the next free-text message from
// the same user is interpreted.
const (
	// TypeDefault means no special flow is active; free text goes through
	// the one-shot extraction pipeline.
	TypeDefault = "default"
	// TypeReceipt means a receipt candidate is awaiting confirmation; free
	// text is treated as a correction instruction.
	TypeReceipt = "receipt"
	// TypeMessage means a text candidate is awaiting confirmation.
	TypeMessage = "message"
)

// PendingEdit marks that the bot asked the user to type a new value for one
// candidate field and is waiting for the reply.
type PendingEdit struct {
	// Field is the candidate field being overwritten.
	Field string
	// PromptID is the message ID of the "send me the new value" prompt, so
	// it can be deleted once the reply arrives.
	PromptID int
}

// Session is the conversational state for one user in one chat.
type Session struct {
	// Type selects the active flow.
	Type string
	// Candidate is the expense being confirmed, nil outside a confirm flow.
	Candidate *model.ExpenseCandidate
	// ControlID is the message ID of the confirmation card the inline
	// keyboard is attached to.
	ControlID int
	// Pending is set while the bot waits for a typed field value.
	Pending *PendingEdit
}

// Key derives the store key for a chat/user pair. Sessions are per user so
// two people in the same group chat never clobber each other's flow.
func Key(chatID, userID int64) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(userID, 10)
}

// Store holds sessions keyed by Key. Implementations must be safe for
// concurrent use; the bot handles updates from many chats at once.
type Store interface {
	// Get returns the session for key, or nil when none exists.
	Get(key string) *Session
	// Set stores or replaces the session for key.
	Set(key string, s *Session)
	// Clear removes the session for key.
	Clear(key string)
}

// MemoryStore is an in-process Store. State does not survive a restart;
// an interrupted confirm flow simply starts over.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Get implements the Store interface.
func (m *MemoryStore) Get(key string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[key]
}

// Set implements the Store interface.
func (m *MemoryStore) Set(key string, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = s
}

// Clear implements the Store interface.
func (m *MemoryStore) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
