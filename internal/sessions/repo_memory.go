package sessions

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores sessions in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Session
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo. A ttl of zero keeps sessions forever.
func NewMemoryRepo(ttl time.Duration) *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[string]Session),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Create stores a new session and sweeps expired ones.
func (r *MemoryRepo) Create(ctx context.Context, s Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, existing := range r.byID {
		if existing.Expired(now, r.ttl) {
			delete(r.byID, id)
		}
	}
	r.byID[s.ID] = clone(s)
	return nil
}

// Get returns a session by ID.
func (r *MemoryRepo) Get(ctx context.Context, id string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.RLock()
	s, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return Session{}, ErrNotFound
	}
	if s.Expired(r.now(), r.ttl) {
		r.mu.Lock()
		delete(r.byID, id)
		r.mu.Unlock()
		return Session{}, ErrNotFound
	}
	return clone(s), nil
}

// Save overwrites the stored session and refreshes its timestamp.
func (r *MemoryRepo) Save(ctx context.Context, s Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[s.ID]; !ok {
		return ErrNotFound
	}
	s.UpdatedAt = r.now().UTC()
	r.byID[s.ID] = clone(s)
	return nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

// Len reports how many sessions are held, expired ones included.
func (r *MemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// clone copies the slices a caller could otherwise mutate in place.
func clone(s Session) Session {
	if s.SummaryPDF != nil {
		s.SummaryPDF = append([]byte(nil), s.SummaryPDF...)
	}
	if s.Chat.Transcript != nil {
		s.Chat.Transcript = append(s.Chat.Transcript[:0:0], s.Chat.Transcript...)
	}
	if s.Chat.Profile != nil {
		p := *s.Chat.Profile
		s.Chat.Profile = &p
	}
	if s.Recommendations != nil {
		rs := *s.Recommendations
		rs.Alternatives = append(rs.Alternatives[:0:0], rs.Alternatives...)
		s.Recommendations = &rs
	}
	if s.Chat.Recommendations != nil {
		rs := *s.Chat.Recommendations
		rs.Alternatives = append(rs.Alternatives[:0:0], rs.Alternatives...)
		s.Chat.Recommendations = &rs
	}
	if s.Validation != nil {
		v := *s.Validation
		s.Validation = &v
	}
	if s.Quote != nil {
		q := *s.Quote
		s.Quote = &q
	}
	return s
}
