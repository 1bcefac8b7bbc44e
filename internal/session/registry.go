package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chengzr01/jobscout/internal/dialogue"
)

// ErrNotFound is returned when no session is open for an identity. An
// identity may legitimately have no session (for example, not logged in
// yet), so callers must treat this as a distinguishable result, not a fault.
var ErrNotFound = errors.New("no open session for identity")

// MessageStore is the persisted chat-message log consumed by flush and
// reset. Implemented by storage.Store.
type MessageStore interface {
	DeleteMessagesFor(identity string) error
	DeleteAllMessages() error
}

// ControllerFactory builds a fresh dialogue controller for an identity.
type ControllerFactory func(identity string) *dialogue.Controller

// Session bundles one identity with its live dialogue controller.
type Session struct {
	Identity   string
	Controller *dialogue.Controller
}

// Registry maps each user identity to exactly one live session. Different
// identities never block each other; per-session turn ordering is enforced
// by the controller's own lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  ControllerFactory
	messages MessageStore
}

// NewRegistry creates an empty registry. messages may be nil when no
// persisted chat log is attached (tests).
func NewRegistry(factory ControllerFactory, messages MessageStore) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
		messages: messages,
	}
}

// Open returns the session for identity, creating it on first contact.
// The boolean reports whether a new session was created: a second Open for
// an already-registered identity is a no-op returning the existing session
// and false, so concurrent logins never produce two independent trackers.
func (r *Registry) Open(identity string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[identity]; ok {
		return s, false
	}
	s := &Session{
		Identity:   identity,
		Controller: r.factory(identity),
	}
	r.sessions[identity] = s
	return s, true
}

// Close removes the identity's session. Returns false if none was open.
// The persisted chat log is untouched; only FlushUser and ResetAll discard
// stored messages.
func (r *Registry) Close(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[identity]; !ok {
		return false
	}
	delete(r.sessions, identity)
	return true
}

// Get returns the identity's session, or ErrNotFound.
func (r *Registry) Get(identity string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[identity]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// FlushUser clears the identity's dialogue history and profile mapping and
// discards that identity's persisted chat messages. Other sessions are
// untouched.
func (r *Registry) FlushUser(identity string) error {
	s, err := r.Get(identity)
	if err != nil {
		return err
	}

	s.Controller.Flush()
	if r.messages != nil {
		if err := r.messages.DeleteMessagesFor(identity); err != nil {
			return fmt.Errorf("discarding stored messages for %s: %w", identity, err)
		}
	}
	return nil
}

// ResetAll clears every open session's history and mapping and discards all
// persisted chat messages globally.
func (r *Registry) ResetAll() error {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		s.Controller.Flush()
	}
	if r.messages != nil {
		if err := r.messages.DeleteAllMessages(); err != nil {
			return fmt.Errorf("discarding all stored messages: %w", err)
		}
	}
	return nil
}
