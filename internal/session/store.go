package session

import (
	"sync"
	"time"
)

// Record holds the authenticated user's identity attributes for one browser
// session. It lives in the session store only, never in the database.
type Record struct {
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the record has passed its expiry.
func (r Record) Expired() bool {
	return time.Now().After(r.ExpiresAt)
}

// Store is an in-memory key-value store of session records keyed by session
// ID. Safe for concurrent use. Expired records are treated as absent and
// reaped by a background janitor.
type Store struct {
	mu      sync.RWMutex
	records map[string]Record
	ttl     time.Duration

	stop chan struct{}
	once sync.Once
}

// NewStore creates a session store whose records expire after ttl and starts
// the expiry janitor. Call Close to stop it.
func NewStore(ttl time.Duration) *Store {
	s := &Store{
		records: make(map[string]Record),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Put writes the record under sessionID, stamping creation and expiry.
func (s *Store) Put(sessionID string, rec Record) {
	now := time.Now()
	rec.CreatedAt = now
	rec.ExpiresAt = now.Add(s.ttl)

	s.mu.Lock()
	s.records[sessionID] = rec
	s.mu.Unlock()
}

// Get returns the record for sessionID. Expired or missing records report
// ok=false.
func (s *Store) Get(sessionID string) (Record, bool) {
	s.mu.RLock()
	rec, ok := s.records[sessionID]
	s.mu.RUnlock()

	if !ok || rec.Expired() {
		return Record{}, false
	}
	return rec, true
}

// Delete removes the record for sessionID, if any.
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.records, sessionID)
	s.mu.Unlock()
}

// Len returns the number of live (unexpired) records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rec := range s.records {
		if !rec.Expired() {
			n++
		}
	}
	return n
}

// Close stops the janitor. The store remains usable, records just stop
// being reaped in the background.
func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Store) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reap()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) reap() {
	now := time.Now()

	s.mu.Lock()
	for id, rec := range s.records {
		if now.After(rec.ExpiresAt) {
			delete(s.records, id)
		}
	}
	s.mu.Unlock()
}
