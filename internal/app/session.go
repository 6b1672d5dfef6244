// Package app contains application services that orchestrate use cases.
// This is the application layer - it coordinates domain rules and the
// quote store through ports.
//
// Application Layer Responsibilities:
//   - Keep the list/detail projection in step with the store
//   - Enforce the single-draft invariant before drafts are created or records shown
//   - Decide which record is displayed after a deletion
//   - Tell presentation layers what changed
//
// What does NOT belong here:
//   - HTTP or terminal rendering (that's adapters and cmd)
//   - Storage encodings and queries (that's store adapters)
//   - Field and emptiness rules (that's the domain layer)
package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/inspira/internal/domain"
	"github.com/jsamuelsen/inspira/internal/ports"
)

// DeletionPolicy decides what is displayed once the last record is deleted.
type DeletionPolicy string

const (
	// DeletionStartsDraft creates a fresh draft so there is always something to edit.
	DeletionStartsDraft DeletionPolicy = "new_draft"

	// DeletionLeavesEmpty leaves nothing displayed.
	DeletionLeavesEmpty DeletionPolicy = "leave_empty"
)

// ParseDeletionPolicy converts a configuration value into a DeletionPolicy.
// An empty string selects DeletionStartsDraft.
func ParseDeletionPolicy(s string) (DeletionPolicy, error) {
	switch DeletionPolicy(s) {
	case "", DeletionStartsDraft:
		return DeletionStartsDraft, nil
	case DeletionLeavesEmpty:
		return DeletionLeavesEmpty, nil
	default:
		return "", domain.NewValidationErrorWithValue("deletion_policy", "must be new_draft or leave_empty", s)
	}
}

// Session is the list/detail sync controller.
// It owns the ordered projection of the store and the displayed record.
// All operations are serialized; one Session should own a store's projection.
type Session struct {
	mu sync.Mutex

	store     ports.QuoteStore
	drafts    *DraftReconciler
	policy    DeletionPolicy
	logger    *slog.Logger
	metrics   *sessionMetrics
	observers []ports.SessionObserver

	quotes      []domain.Quote
	displayedID string
}

// SessionConfig contains dependencies and policies for a Session.
type SessionConfig struct {
	Store  ports.QuoteStore
	Logger *slog.Logger

	// EmptinessRule defaults to domain.EmptinessIgnoresImage.
	EmptinessRule domain.EmptinessRule

	// DeletionPolicy defaults to DeletionStartsDraft.
	DeletionPolicy DeletionPolicy

	// StrictInvariants fails operations that find more than one draft.
	StrictInvariants bool

	Observers []ports.SessionObserver
}

// NewSession creates a session with an empty projection. Call Refresh to load it.
// It panics without a store.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Store == nil {
		panic("app: Session requires a QuoteStore")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	policy := cfg.DeletionPolicy
	if policy == "" {
		policy = DeletionStartsDraft
	}

	s := &Session{
		store:     cfg.Store,
		policy:    policy,
		logger:    logger.With(slog.String("component", "app.Session")),
		metrics:   newSessionMetrics(),
		observers: slices.Clone(cfg.Observers),
	}

	s.drafts = NewDraftReconciler(DraftReconcilerConfig{
		Store:          cfg.Store,
		Rule:           cfg.EmptinessRule,
		Strict:         cfg.StrictInvariants,
		Logger:         logger,
		OnStorageError: s.notifyStorageError,
	})

	return s
}

// Subscribe adds an observer. It is called for every later change, while the
// session is locked, so observers must not call back into the Session.
func (s *Session) Subscribe(o ports.SessionObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observers = append(s.observers, o)
}

// EmptinessRule returns the rule used to recognize drafts.
func (s *Session) EmptinessRule() domain.EmptinessRule {
	return s.drafts.Rule()
}

// Quotes returns a copy of the ordered projection.
func (s *Session) Quotes() []domain.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneQuotes(s.quotes)
}

// Displayed returns a copy of the displayed record and its position.
// It returns nil and NoPosition when nothing is displayed.
func (s *Session) Displayed() (*domain.Quote, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.displayedPosition()
	if pos == NoPosition {
		return nil, NoPosition
	}

	q := s.quotes[pos].Clone()

	return &q, pos
}

// Refresh reloads the projection from the store.
// On failure the previous projection is kept and returned with the error.
func (s *Session) Refresh(ctx context.Context) ([]domain.Quote, error) {
	ctx, span := tracer().Start(ctx, "Session.Refresh")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	quotes, err := s.store.ListAll(ctx)
	if err != nil {
		err = s.storageFailed(ctx, span, "list", err)
		return cloneQuotes(s.quotes), err
	}

	hadDisplayed := s.displayedID != ""
	s.quotes = quotes

	if hadDisplayed && s.displayedPosition() == NoPosition {
		s.logger.InfoContext(ctx, "displayed quote vanished from store",
			slog.String("quote_id", s.displayedID),
		)
		s.displayedID = ""
		s.notifyDisplayed()
	}

	s.notifyList()
	span.SetAttributes(attribute.Int("quotes", len(quotes)))

	return cloneQuotes(s.quotes), nil
}

// StartNewEntry removes any stray draft, creates a new empty quote at the
// top of the list and displays it.
func (s *Session) StartNewEntry(ctx context.Context) (domain.Quote, error) {
	ctx, span := tracer().Start(ctx, "Session.StartNewEntry")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.startNewEntry(ctx, span)
}

func (s *Session) startNewEntry(ctx context.Context, span trace.Span) (domain.Quote, error) {
	quotes, _, err := s.drafts.Reconcile(ctx, s.quotes, NoPosition)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile")
		return domain.Quote{}, err
	}

	changed := len(quotes) != len(s.quotes)
	s.quotes = quotes

	quote, err := s.store.Create(ctx)
	if err != nil {
		err = s.storageFailed(ctx, span, "create", err)

		if changed {
			s.afterProjectionShrank()
			s.notifyList()
		}

		return domain.Quote{}, err
	}

	s.quotes = slices.Insert(s.quotes, 0, quote)
	s.displayedID = quote.ID
	s.metrics.recordCreated(ctx)

	s.logger.InfoContext(ctx, "started new entry", slog.String("quote_id", quote.ID))
	span.SetAttributes(attribute.String("quote_id", quote.ID))

	s.notifyList()
	s.notifyDisplayed()

	return quote.Clone(), nil
}

// SelectExisting displays the record at position, after removing any stray
// draft elsewhere in the list. The returned quote is the same logical record
// even when the draft removal shifted its position.
func (s *Session) SelectExisting(ctx context.Context, position int) (domain.Quote, error) {
	ctx, span := tracer().Start(ctx, "Session.SelectExisting",
		trace.WithAttributes(attribute.Int("position", position)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if position < 0 || position >= len(s.quotes) {
		return domain.Quote{}, domain.NewNotFoundError("quote at position", strconv.Itoa(position))
	}

	quotes, adjusted, err := s.drafts.Reconcile(ctx, s.quotes, position)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile")
		return domain.Quote{}, err
	}

	changed := len(quotes) != len(s.quotes)
	s.quotes = quotes

	selected := s.quotes[adjusted]
	previous := s.displayedID
	s.displayedID = selected.ID

	s.logger.DebugContext(ctx, "selected quote",
		slog.String("quote_id", selected.ID),
		slog.Int("position", adjusted),
	)

	if changed {
		s.notifyList()
	}
	if previous != selected.ID {
		s.notifyDisplayed()
	}

	return selected.Clone(), nil
}

// DeleteCurrent deletes the displayed record and displays its successor.
// When the list runs out, the deletion policy decides between a new draft
// and nothing. It returns the newly displayed record, or nil.
func (s *Session) DeleteCurrent(ctx context.Context) (*domain.Quote, error) {
	ctx, span := tracer().Start(ctx, "Session.DeleteCurrent")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.displayedPosition()
	if pos == NoPosition {
		return nil, domain.NewConflictError("quote", "no quote is displayed")
	}

	id := s.quotes[pos].ID
	span.SetAttributes(attribute.String("quote_id", id), attribute.Int("position", pos))

	if err := s.store.Delete(ctx, id); err != nil {
		if !domain.IsNotFound(err) {
			return nil, s.storageFailed(ctx, span, "delete", err)
		}

		s.logger.WarnContext(ctx, "displayed quote was already gone from store",
			slog.String("quote_id", id),
		)
	}

	s.metrics.recordDeleted(ctx)
	s.logger.InfoContext(ctx, "deleted quote", slog.String("quote_id", id))

	s.quotes = slices.Delete(s.quotes, pos, pos+1)

	if next, ok := domain.NextAfterRemoval(pos, len(s.quotes)); ok {
		s.displayedID = s.quotes[next].ID
		s.notifyList()
		s.notifyDisplayed()

		q := s.quotes[next].Clone()

		return &q, nil
	}

	s.displayedID = ""
	s.notifyList()

	if s.policy == DeletionLeavesEmpty {
		s.notifyDisplayed()
		return nil, nil
	}

	quote, err := s.startNewEntry(ctx, span)
	if err != nil {
		s.notifyDisplayed()
		return nil, fmt.Errorf("starting replacement draft: %w", err)
	}

	return &quote, nil
}

// UpdateField writes one text field of the displayed record.
func (s *Session) UpdateField(ctx context.Context, field domain.Field, value string) (domain.Quote, error) {
	ctx, span := tracer().Start(ctx, "Session.UpdateField",
		trace.WithAttributes(attribute.String("field", string(field))))
	defer span.End()

	update, err := domain.FieldUpdate(field, value)
	if err != nil {
		return domain.Quote{}, err
	}

	return s.updateDisplayed(ctx, span, update)
}

// SetImage attaches an encoded image to the displayed record.
// An empty data slice removes the image.
func (s *Session) SetImage(ctx context.Context, data []byte) (domain.Quote, error) {
	ctx, span := tracer().Start(ctx, "Session.SetImage",
		trace.WithAttributes(attribute.Int("bytes", len(data))))
	defer span.End()

	return s.updateDisplayed(ctx, span, domain.QuoteUpdate{ImageData: data, SetImage: true})
}

func (s *Session) updateDisplayed(ctx context.Context, span trace.Span, update domain.QuoteUpdate) (domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.displayedPosition()
	if pos == NoPosition {
		return domain.Quote{}, domain.NewConflictError("quote", "no quote is displayed")
	}

	id := s.quotes[pos].ID

	updated, err := s.store.Update(ctx, id, update)
	if err != nil {
		return domain.Quote{}, s.storageFailed(ctx, span, "update", err)
	}

	s.quotes[pos] = updated

	s.notifyList()
	s.notifyDisplayed()

	return updated.Clone(), nil
}

// displayedPosition finds the displayed record. Callers hold s.mu.
func (s *Session) displayedPosition() int {
	if s.displayedID == "" {
		return NoPosition
	}

	for i := range s.quotes {
		if s.quotes[i].ID == s.displayedID {
			return i
		}
	}

	return NoPosition
}

// afterProjectionShrank drops the displayed record if reconciliation removed it.
func (s *Session) afterProjectionShrank() {
	if s.displayedID != "" && s.displayedPosition() == NoPosition {
		s.displayedID = ""
		s.notifyDisplayed()
	}
}

// storageFailed logs, counts and reports a store failure, returning it as a
// domain error. Callers hold s.mu.
func (s *Session) storageFailed(ctx context.Context, span trace.Span, op string, err error) error {
	err = domain.NewStorageError(op, err)

	s.logger.ErrorContext(ctx, "quote store operation failed",
		slog.String("op", op),
		slog.Any("error", err),
	)
	s.metrics.storageError(ctx, op)

	span.RecordError(err)
	span.SetStatus(codes.Error, op)

	s.notifyStorageError(ctx, err)

	return err
}

func (s *Session) notifyStorageError(_ context.Context, err error) {
	for _, o := range s.observers {
		o.OnStorageError(err)
	}
}

func (s *Session) notifyList() {
	for _, o := range s.observers {
		o.OnListChanged(cloneQuotes(s.quotes))
	}
}

func (s *Session) notifyDisplayed() {
	pos := s.displayedPosition()
	for _, o := range s.observers {
		if pos == NoPosition {
			o.OnDisplayedRecordChanged(nil)
			continue
		}

		q := s.quotes[pos].Clone()
		o.OnDisplayedRecordChanged(&q)
	}
}

func cloneQuotes(quotes []domain.Quote) []domain.Quote {
	out := make([]domain.Quote, len(quotes))
	for i := range quotes {
		out[i] = quotes[i].Clone()
	}

	return out
}
