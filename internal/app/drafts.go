package app

import (
	"context"
	"log/slog"
	"slices"

	"github.com/jsamuelsen/inspira/internal/domain"
	"github.com/jsamuelsen/inspira/internal/ports"
)

// NoPosition marks the absence of a list position.
const NoPosition = -1

// DraftReconciler keeps at most one empty draft in the store.
// It removes a stray draft before another draft is created or another
// record is displayed.
type DraftReconciler struct {
	store          ports.QuoteStore
	rule           domain.EmptinessRule
	strict         bool
	logger         *slog.Logger
	metrics        *sessionMetrics
	onStorageError func(ctx context.Context, err error)
}

// DraftReconcilerConfig contains dependencies for the reconciler.
type DraftReconcilerConfig struct {
	Store ports.QuoteStore

	// Rule decides what counts as empty. Defaults to domain.EmptinessIgnoresImage.
	Rule domain.EmptinessRule

	// Strict makes an invariant violation fail without touching the store.
	// Lenient mode logs the violation and removes the first draft only.
	Strict bool

	Logger *slog.Logger

	// OnStorageError is told about deletions that failed. Optional.
	OnStorageError func(ctx context.Context, err error)
}

// NewDraftReconciler creates a reconciler. It panics without a store.
func NewDraftReconciler(cfg DraftReconcilerConfig) *DraftReconciler {
	if cfg.Store == nil {
		panic("app: DraftReconciler requires a QuoteStore")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rule := cfg.Rule
	if rule == "" {
		rule = domain.EmptinessIgnoresImage
	}

	return &DraftReconciler{
		store:          cfg.Store,
		rule:           rule,
		strict:         cfg.Strict,
		logger:         logger.With(slog.String("component", "app.DraftReconciler")),
		metrics:        newSessionMetrics(),
		onStorageError: cfg.OnStorageError,
	}
}

// Rule returns the emptiness rule in force.
func (r *DraftReconciler) Rule() domain.EmptinessRule {
	return r.rule
}

// Reconcile removes the empty draft sitting anywhere but keepIndex.
// Pass NoPosition when no record must be kept.
//
// It returns the list without the draft and keepIndex shifted so it still
// points at the same record. The input slice is never modified.
// More than one draft is an invariant violation: in strict mode nothing is
// deleted and the error is returned.
//
// A failed store deletion is logged; the list is still updated.
func (r *DraftReconciler) Reconcile(
	ctx context.Context,
	list []domain.Quote,
	keepIndex int,
) ([]domain.Quote, int, error) {
	var drafts []int
	for i := range list {
		if i != keepIndex && r.rule.IsEmpty(&list[i]) {
			drafts = append(drafts, i)
		}
	}

	if len(drafts) == 0 {
		return list, keepIndex, nil
	}

	if len(drafts) > 1 {
		violation := domain.NewInvariantViolationError(len(drafts))
		r.logger.ErrorContext(ctx, "more than one empty draft found",
			slog.Int("count", len(drafts)),
			slog.Bool("strict", r.strict),
		)

		if r.strict {
			return list, keepIndex, violation
		}
	}

	pos := drafts[0]
	draft := list[pos]

	if err := r.store.Delete(ctx, draft.ID); err != nil && !domain.IsNotFound(err) {
		err = domain.NewStorageError("delete", err)
		r.logger.WarnContext(ctx, "failed to delete stray draft, dropping it from the list anyway",
			slog.String("quote_id", draft.ID),
			slog.Any("error", err),
		)
		r.metrics.storageError(ctx, "delete")

		if r.onStorageError != nil {
			r.onStorageError(ctx, err)
		}
	}

	r.logger.DebugContext(ctx, "removed stray draft",
		slog.String("quote_id", draft.ID),
		slog.Int("position", pos),
	)
	r.metrics.draftReconciled(ctx)

	updated := slices.Delete(slices.Clone(list), pos, pos+1)

	if keepIndex != NoPosition && pos < keepIndex && keepIndex > 0 {
		keepIndex--
	}

	return updated, keepIndex, nil
}
