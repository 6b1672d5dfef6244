// Package badger implements the quote store on an embedded BadgerDB.
//
// Each quote is one JSON value under the key "quote/<id>". Listing is a
// prefix scan followed by an in-memory sort, which is fine for a personal
// notebook of a few thousand entries.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/jsamuelsen/inspira/internal/adapters/store/storeutil"
	"github.com/jsamuelsen/inspira/internal/domain"
)

const keyPrefix = "quote/"

// record is the persisted form of a quote.
type record struct {
	ID                    string    `json:"id"`
	Text                  string    `json:"text"`
	Creator               string    `json:"creator"`
	DescriptionOfHowFound string    `json:"descriptionOfHowFound"`
	Interpretation        string    `json:"interpretation"`
	ImageData             []byte    `json:"imageData,omitempty"`
	DateCreated           time.Time `json:"dateCreated"`
}

func toRecord(q domain.Quote) record {
	return record{
		ID:                    q.ID,
		Text:                  q.Text,
		Creator:               q.Creator,
		DescriptionOfHowFound: q.DescriptionOfHowFound,
		Interpretation:        q.Interpretation,
		ImageData:             q.ImageData,
		DateCreated:           q.DateCreated,
	}
}

func (r record) toDomain() domain.Quote {
	q := domain.Quote{
		ID:                    r.ID,
		Text:                  r.Text,
		Creator:               r.Creator,
		DescriptionOfHowFound: r.DescriptionOfHowFound,
		Interpretation:        r.Interpretation,
		DateCreated:           r.DateCreated,
	}
	if len(r.ImageData) > 0 {
		q.ImageData = r.ImageData
	}

	return q
}

func key(id string) []byte {
	return []byte(keyPrefix + id)
}

// Store is a ports.QuoteStore backed by BadgerDB.
type Store struct {
	db     *badger.DB
	gc     *gcRunner
	now    func() time.Time
	newID  func() string
	closed atomic.Bool
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

// New opens the database described by cfg. A GC runner is started for
// persistent databases when cfg.GCInterval is positive.
func New(cfg Config, opts ...Option) (*Store, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		logger := cfg.Logger
		if logger == nil {
			logger = slog.Default()
		}

		runner, err := newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, logger)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create GC runner: %w", err)
		}

		s.gc = runner
		runner.start()
	}

	return s, nil
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "badger" }

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	if s.closed.Load() || s.db.IsClosed() {
		return domain.NewUnavailableError(s.Name(), "database is closed")
	}

	return ctx.Err()
}

// Close stops GC and closes the database. Safe to call twice.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	if s.gc != nil {
		s.gc.stop()
	}

	return s.db.Close()
}

// ListAll implements ports.QuoteStore.
func (s *Store) ListAll(ctx context.Context) ([]domain.Quote, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var out []domain.Quote

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var r record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}

			out = append(out, r.toDomain())
		}

		return nil
	})
	if err != nil {
		return nil, domain.NewStorageError("list", err)
	}

	storeutil.SortNewestFirst(out)

	return out, nil
}

// Create implements ports.QuoteStore.
func (s *Store) Create(ctx context.Context) (domain.Quote, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Quote{}, err
	}

	q := domain.Quote{ID: s.newID(), DateCreated: s.now()}

	err := s.db.Update(func(txn *badger.Txn) error {
		return put(txn, q)
	})
	if err != nil {
		return domain.Quote{}, domain.NewStorageError("create", err)
	}

	return q, nil
}

// Get implements ports.QuoteStore.
func (s *Store) Get(ctx context.Context, id string) (domain.Quote, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Quote{}, err
	}

	var q domain.Quote

	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		q, err = get(txn, id)

		return err
	})
	if err != nil {
		return domain.Quote{}, translate("get", id, err)
	}

	return q, nil
}

// Update implements ports.QuoteStore.
func (s *Store) Update(ctx context.Context, id string, update domain.QuoteUpdate) (domain.Quote, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Quote{}, err
	}

	var q domain.Quote

	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		if q, err = get(txn, id); err != nil {
			return err
		}

		update.Apply(&q)

		return put(txn, q)
	})
	if err != nil {
		return domain.Quote{}, translate("update", id, err)
	}

	return q, nil
}

// Delete implements ports.QuoteStore.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key(id)); err != nil {
			return err
		}

		return txn.Delete(key(id))
	})

	return translate("delete", id, err)
}

func (s *Store) ready(ctx context.Context) error {
	if s.closed.Load() {
		return domain.NewUnavailableError(s.Name(), "database is closed")
	}

	return ctx.Err()
}

func get(txn *badger.Txn, id string) (domain.Quote, error) {
	item, err := txn.Get(key(id))
	if err != nil {
		return domain.Quote{}, err
	}

	var r record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	}); err != nil {
		return domain.Quote{}, fmt.Errorf("decoding quote %s: %w", id, err)
	}

	return r.toDomain(), nil
}

func put(txn *badger.Txn, q domain.Quote) error {
	val, err := json.Marshal(toRecord(q))
	if err != nil {
		return fmt.Errorf("encoding quote %s: %w", q.ID, err)
	}

	return txn.Set(key(q.ID), val)
}

func translate(op, id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return domain.NewNotFoundError("quote", id)
	default:
		return domain.NewStorageError(op, err)
	}
}
