package store

import (
	"sync"
	"time"

	"saral/internal/util"
)

type memorySession struct {
	userID  string
	expires time.Time
}

// MemorySessionStore keeps opaque tokens in-process (single instance only).
type MemorySessionStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	sess  map[string]memorySession
	nowFn func() time.Time
}

// NewMemorySessionStore builds an in-memory session store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{ttl: ttl, sess: make(map[string]memorySession), nowFn: time.Now}
}

func (s *MemorySessionStore) NewSession(userID string) (string, error) {
	token := util.NewID()
	s.mu.Lock()
	s.sess[token] = memorySession{userID: userID, expires: s.nowFn().Add(s.ttl)}
	s.mu.Unlock()
	return token, nil
}

func (s *MemorySessionStore) GetUserIDByToken(token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sess[token]
	if !ok {
		return "", false, nil
	}
	if s.ttl > 0 && s.nowFn().After(sess.expires) {
		delete(s.sess, token)
		return "", false, nil
	}
	return sess.userID, true, nil
}

func (s *MemorySessionStore) DeleteSession(token string) error {
	s.mu.Lock()
	delete(s.sess, token)
	s.mu.Unlock()
	return nil
}
