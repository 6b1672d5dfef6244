// Package memory provides a process-local quote store.
// It backs tests and the "memory" store driver; nothing survives a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/inspira/internal/adapters/store/storeutil"
	"github.com/jsamuelsen/inspira/internal/domain"
)

// Store is a mutex-guarded map of quotes.
type Store struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
	now    func() time.Time
	newID  func() string
	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the source of DateCreated.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces UUID generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		quotes: make(map[string]domain.Quote),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return domain.NewUnavailableError(s.Name(), "store is closed")
	}

	return ctx.Err()
}

// Close marks the store closed; later calls fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// ListAll implements ports.QuoteStore.
func (s *Store) ListAll(ctx context.Context) ([]domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, domain.NewUnavailableError(s.Name(), "store is closed")
	}

	out := make([]domain.Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		out = append(out, q.Clone())
	}

	storeutil.SortNewestFirst(out)

	return out, nil
}

// Create implements ports.QuoteStore.
func (s *Store) Create(ctx context.Context) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.Quote{}, domain.NewUnavailableError(s.Name(), "store is closed")
	}

	q := domain.Quote{ID: s.newID(), DateCreated: s.now()}
	s.quotes[q.ID] = q

	return q, nil
}

// Get implements ports.QuoteStore.
func (s *Store) Get(ctx context.Context, id string) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return domain.Quote{}, domain.NewUnavailableError(s.Name(), "store is closed")
	}

	q, ok := s.quotes[id]
	if !ok {
		return domain.Quote{}, domain.NewNotFoundError("quote", id)
	}

	return q.Clone(), nil
}

// Update implements ports.QuoteStore.
func (s *Store) Update(ctx context.Context, id string, update domain.QuoteUpdate) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.Quote{}, domain.NewUnavailableError(s.Name(), "store is closed")
	}

	q, ok := s.quotes[id]
	if !ok {
		return domain.Quote{}, domain.NewNotFoundError("quote", id)
	}

	update.Apply(&q)
	s.quotes[id] = q

	return q.Clone(), nil
}

// Delete implements ports.QuoteStore.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.NewUnavailableError(s.Name(), "store is closed")
	}

	if _, ok := s.quotes[id]; !ok {
		return domain.NewNotFoundError("quote", id)
	}

	delete(s.quotes, id)

	return nil
}
