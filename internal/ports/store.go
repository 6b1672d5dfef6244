// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never driver rows or storage encodings
//   - Error returns use domain error types (ErrNotFound, ErrStorage, etc.)
//   - Keep interfaces small and focused
package ports

import (
	"context"

	"github.com/jsamuelsen/inspira/internal/domain"
)

// QuoteStore is the durable home of every quote.
// Implementations must be safe for concurrent use and must hand out copies,
// never buffers they keep writing to.
type QuoteStore interface {
	// ListAll returns every quote, newest DateCreated first.
	// Ties are broken by ID, descending, so the order is stable.
	ListAll(ctx context.Context) ([]domain.Quote, error)

	// Create stores a new empty quote stamped with the current time.
	Create(ctx context.Context) (domain.Quote, error)

	// Get returns one quote.
	// Returns domain.ErrNotFound if the quote does not exist.
	Get(ctx context.Context, id string) (domain.Quote, error)

	// Update applies a partial update and returns the stored result.
	// Returns domain.ErrNotFound if the quote does not exist.
	Update(ctx context.Context, id string, update domain.QuoteUpdate) (domain.Quote, error)

	// Delete removes a quote permanently.
	// Returns domain.ErrNotFound if the quote does not exist.
	Delete(ctx context.Context, id string) error
}

// SessionObserver is told about every change a presentation layer renders.
// Callbacks run synchronously after the session state is updated and
// receive copies that are safe to keep.
type SessionObserver interface {
	// OnDisplayedRecordChanged carries the newly displayed quote, or nil.
	OnDisplayedRecordChanged(quote *domain.Quote)

	// OnListChanged carries the full ordered list after any change.
	OnListChanged(quotes []domain.Quote)

	// OnStorageError reports a store failure the session absorbed.
	OnStorageError(err error)
}

// ObserverFuncs adapts optional functions to SessionObserver.
// Nil fields are skipped.
type ObserverFuncs struct {
	DisplayedChanged func(quote *domain.Quote)
	ListChanged      func(quotes []domain.Quote)
	StorageError     func(err error)
}

// OnDisplayedRecordChanged implements SessionObserver.
func (o ObserverFuncs) OnDisplayedRecordChanged(quote *domain.Quote) {
	if o.DisplayedChanged != nil {
		o.DisplayedChanged(quote)
	}
}

// OnListChanged implements SessionObserver.
func (o ObserverFuncs) OnListChanged(quotes []domain.Quote) {
	if o.ListChanged != nil {
		o.ListChanged(quotes)
	}
}

// OnStorageError implements SessionObserver.
func (o ObserverFuncs) OnStorageError(err error) {
	if o.StorageError != nil {
		o.StorageError(err)
	}
}
