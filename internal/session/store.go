package session

import (
	"sync"
	"time"

	"stripbot/internal/cache"
)

// StoreConfig bounds the sessions kept in memory.
type StoreConfig struct {
	MaxSessions int
	IdleTTL     time.Duration // sessions not updated for this long are forgotten
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		MaxSessions: 10000,
		IdleTTL:     7 * 24 * time.Hour,
	}
}

// Store is an in-memory session store. Every mutation of one user's session
// runs under the store lock, so sessions never observe each other's writes.
// Only updates create sessions; reading an unknown user yields defaults.
// Beyond MaxSessions the least recently used session is dropped.
type Store struct {
	mu       sync.Mutex
	sessions *cache.LRUCache[int64, *Session]
	now      func() time.Time
}

func NewStore() *Store {
	return NewStoreWithConfig(DefaultStoreConfig())
}

func NewStoreWithConfig(cfg StoreConfig) *Store {
	def := DefaultStoreConfig()
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = def.IdleTTL
	}
	return &Store{
		sessions: cache.NewLRUCache[int64, *Session](cfg.MaxSessions, cfg.IdleTTL),
		now:      time.Now,
	}
}

// Get returns a snapshot of the user's session, or a default session when
// the user has none.
func (s *Store) Get(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions.Get(userID); ok {
		return sess.clone()
	}
	return *newSession(userID, s.now())
}

// Update applies fn to the user's session, creating it if needed. When fn
// fails the session is left unchanged.
//
// fn works on a shallow copy: it may append to or replace the slices of the
// session, but must not modify their existing elements.
func (s *Store) Update(userID int64, fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sessions.Get(userID)
	if !ok {
		cur = newSession(userID, s.now())
	}
	work := *cur
	if err := fn(&work); err != nil {
		return err
	}
	work.UserID = userID
	work.UpdatedAt = s.now()
	*cur = work
	s.sessions.Set(userID, cur)
	return nil
}

// Delete forgets the user entirely, preferences included.
func (s *Store) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions.Delete(userID)
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	return s.sessions.Size()
}
