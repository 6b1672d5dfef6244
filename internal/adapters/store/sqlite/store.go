// Package sqlite implements the quote store on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/inspira/internal/domain"
)

const selectColumns = `id, text, creator, description_of_how_found, interpretation, image_data, date_created`

// Store is a ports.QuoteStore backed by SQLite.
type Store struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
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

// New opens the database at path, applies the schema and returns a Store.
func New(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}

	s, err := NewWithDB(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// NewWithDB wires a Store over an existing connection.
func NewWithDB(ctx context.Context, db *sql.DB, opts ...Option) (*Store, error) {
	if err := EnsureSchema(ctx, db); err != nil {
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

	return s, nil
}

// DB exposes the underlying connection.
func (s *Store) DB() *sql.DB { return s.db }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "sqlite" }

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.NewUnavailableError(s.Name(), err.Error())
	}

	return nil
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListAll implements ports.QuoteStore.
func (s *Store) ListAll(ctx context.Context) ([]domain.Quote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM quotes ORDER BY date_created DESC, id DESC`)
	if err != nil {
		return nil, domain.NewStorageError("list", err)
	}
	defer rows.Close()

	var out []domain.Quote

	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, domain.NewStorageError("list", err)
		}

		out = append(out, q)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list", err)
	}

	return out, nil
}

// Create implements ports.QuoteStore.
func (s *Store) Create(ctx context.Context) (domain.Quote, error) {
	q := domain.Quote{ID: s.newID(), DateCreated: s.now()}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quotes (id, date_created) VALUES (?, ?)`,
		q.ID, q.DateCreated.UnixNano())
	if err != nil {
		return domain.Quote{}, domain.NewStorageError("create", err)
	}

	return q, nil
}

// Get implements ports.QuoteStore.
func (s *Store) Get(ctx context.Context, id string) (domain.Quote, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM quotes WHERE id = ?`, id)

	q, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quote{}, domain.NewNotFoundError("quote", id)
	}

	if err != nil {
		return domain.Quote{}, domain.NewStorageError("get", err)
	}

	return q, nil
}

// Update implements ports.QuoteStore. The read and write share one transaction.
func (s *Store) Update(ctx context.Context, id string, update domain.QuoteUpdate) (domain.Quote, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Quote{}, domain.NewStorageError("update", err)
	}
	defer func() { _ = tx.Rollback() }()

	q, err := scanQuote(tx.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM quotes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quote{}, domain.NewNotFoundError("quote", id)
	}

	if err != nil {
		return domain.Quote{}, domain.NewStorageError("update", err)
	}

	update.Apply(&q)

	_, err = tx.ExecContext(ctx,
		`UPDATE quotes SET text = ?, creator = ?, description_of_how_found = ?, interpretation = ?, image_data = ? WHERE id = ?`,
		q.Text, q.Creator, q.DescriptionOfHowFound, q.Interpretation, imageArg(q.ImageData), id)
	if err != nil {
		return domain.Quote{}, domain.NewStorageError("update", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Quote{}, domain.NewStorageError("update", err)
	}

	return q, nil
}

// Delete implements ports.QuoteStore.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = ?`, id)
	if err != nil {
		return domain.NewStorageError("delete", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewStorageError("delete", err)
	}

	if n == 0 {
		return domain.NewNotFoundError("quote", id)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuote(row scanner) (domain.Quote, error) {
	var (
		q       domain.Quote
		image   []byte
		created int64
	)

	err := row.Scan(&q.ID, &q.Text, &q.Creator, &q.DescriptionOfHowFound, &q.Interpretation, &image, &created)
	if err != nil {
		return domain.Quote{}, err
	}

	if len(image) > 0 {
		q.ImageData = image
	}

	q.DateCreated = time.Unix(0, created).UTC()

	return q, nil
}

// imageArg stores an absent image as NULL rather than an empty blob.
func imageArg(data []byte) any {
	if len(data) == 0 {
		return nil
	}

	return data
}
