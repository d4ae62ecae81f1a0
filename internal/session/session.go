package session

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/hcpdash/internal/ingest"
	"github.com/KaramelBytes/hcpdash/internal/schema"
	"github.com/KaramelBytes/hcpdash/internal/table"
)

// Session is one user's dashboard context. Nothing in it outlives the process.
type Session struct {
	ID            uuid.UUID
	Authenticated bool
	// Files holds every sheet uploaded so far, in upload order.
	Files      []table.Raw
	FileErrors []string
	Mapping    schema.Mapping
	Schema     string
	CreatedAt  time.Time
	TouchedAt  time.Time
}

// AddUploads appends parsed sheets and per-file errors.
func (s *Session) AddUploads(raws []table.Raw, errs []*ingest.FileError) {
	s.Files = append(append([]table.Raw{}, s.Files...), raws...)
	for _, e := range errs {
		s.FileErrors = append(s.FileErrors, e.Error())
	}
}

// ClearUploads forgets every uploaded sheet and file error.
func (s *Session) ClearUploads() {
	s.Files = nil
	s.FileErrors = nil
}

// Sources lists the distinct uploaded file names in upload order.
func (s *Session) Sources() []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, f := range s.Files {
		if _, ok := seen[f.Source]; ok {
			continue
		}
		seen[f.Source] = struct{}{}
		out = append(out, f.Source)
	}
	return out
}

// Store keeps sessions in memory and drops those idle for longer than the TTL.
type Store struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Session
	ttl   time.Duration
	now   func() time.Time
}

// NewStore returns an empty store. A non-positive ttl disables expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{items: make(map[uuid.UUID]*Session), ttl: ttl, now: time.Now}
}

// Create starts an unauthenticated session with an auto-detect mapping.
func (s *Store) Create(schemaName string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	sess := &Session{
		ID:        uuid.New(),
		Mapping:   schema.Mapping{},
		Schema:    schemaName,
		CreatedAt: now,
		TouchedAt: now,
	}
	s.items[sess.ID] = sess
	return *sess
}

// Get returns a copy of the session and marks it as used.
func (s *Store) Get(id uuid.UUID) (Session, bool) {
	return s.Update(id, func(*Session) {})
}

// Update applies fn to the stored session under the store lock and returns the result.
func (s *Store) Update(id uuid.UUID, fn func(*Session)) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	sess, ok := s.items[id]
	if !ok {
		return Session{}, false
	}
	fn(sess)
	sess.TouchedAt = now
	return *sess, true
}

// Rotate moves the session to a fresh ID, applies fn and returns the result. The old ID
// stops resolving.
func (s *Store) Rotate(id uuid.UUID, fn func(*Session)) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	sess, ok := s.items[id]
	if !ok {
		return Session{}, false
	}
	delete(s.items, id)
	sess.ID = uuid.New()
	fn(sess)
	sess.TouchedAt = now
	s.items[sess.ID] = sess
	return *sess, true
}

// Delete removes a session.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked(s.now())
	return len(s.items)
}

func (s *Store) purgeExpiredLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for k, v := range s.items {
		if now.Sub(v.TouchedAt) > s.ttl {
			delete(s.items, k)
		}
	}
}

// CheckPassword compares a submitted password with the configured shared secret in
// constant time.
func CheckPassword(given, configured string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(configured)) == 1
}
