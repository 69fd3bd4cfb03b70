// Package session persists per-user conversation state between turns.
// Records are opaque to this package: the conversation engine encodes its
// flow into Flow and Data.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is the persisted state of one user's conversation.
type Record struct {
	// ActiveTenantID survives every flow reset.
	ActiveTenantID uuid.UUID       `json:"active_tenant_id"`
	Flow           string          `json:"flow,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Store loads and saves session records.
// Load returns a zero Record and no error when the user has no session.
type Store interface {
	Load(ctx context.Context, userID string) (Record, error)
	Save(ctx context.Context, userID string, rec Record) error
	Delete(ctx context.Context, userID string) error
}

// MemoryStore keeps records in process memory with optional expiry.
type MemoryStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	records   map[string]Record
	lastSweep time.Time
}

// NewMemoryStore creates an in-memory store. A zero ttl keeps records forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		records: make(map[string]Record),
	}
}

// Load returns the user's record.
func (s *MemoryStore) Load(ctx context.Context, userID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return Record{}, nil
	}
	if s.expired(rec, s.now()) {
		delete(s.records, userID)
		return Record{}, nil
	}
	rec.Data = append(json.RawMessage(nil), rec.Data...)
	return rec, nil
}

// Save stores the user's record, stamping UpdatedAt.
func (s *MemoryStore) Save(ctx context.Context, userID string, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	rec.UpdatedAt = now
	rec.Data = append(json.RawMessage(nil), rec.Data...)
	s.records[userID] = rec
	return nil
}

func (s *MemoryStore) expired(rec Record, now time.Time) bool {
	return s.ttl > 0 && now.Sub(rec.UpdatedAt) > s.ttl
}

// sweep drops expired records of users who never came back. It runs at most
// once per ttl.
func (s *MemoryStore) sweep(now time.Time) {
	if s.ttl <= 0 || now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.lastSweep = now
	for userID, rec := range s.records {
		if s.expired(rec, now) {
			delete(s.records, userID)
		}
	}
}

// Len returns the number of records held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Delete removes the user's record.
func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, userID)
	return nil
}
