package services

import (
	"context"
	"errors"
	"fmt"

	"hogar/internal/core"
	"hogar/internal/log"
	"hogar/internal/storage"
)

// ReconcileObserver receives the outcome of each reconcile run.
// *metrics.Metrics satisfies it.
type ReconcileObserver interface {
	ObserveReconcile(cleared int64)
}

// Reconciler reclassifies orphaned expenses as personal: rows still stamped
// with a household after their owner's membership was deleted. It runs at
// membership-change time (inline or via the worker), never inside reads.
type Reconciler struct {
	store    storage.Store
	logger   *log.Logger
	observer ReconcileObserver
}

// NewReconciler builds a reconciler. observer may be nil when nothing is
// collecting metrics.
func NewReconciler(store storage.Store, logger *log.Logger, observer ReconcileObserver) *Reconciler {
	return &Reconciler{
		store:    store,
		logger:   logger.WithComponent(log.ComponentReconcile),
		observer: observer,
	}
}

// Reconcile nulls the household reference on the user's expenses when the
// user has no membership. A user who still belongs to a household is left
// untouched: their stamped expenses are legitimate. Idempotent; a second
// run finds nothing to clear.
func (r *Reconciler) Reconcile(ctx context.Context, userID string) (int64, error) {
	_, err := r.store.GetMembershipByUser(ctx, userID)
	switch {
	case err == nil:
		r.logger.DebugContext(ctx, "Reconcile skipped, user still has a membership",
			log.FieldUserID, userID)
		return 0, nil
	case errors.Is(err, core.ErrNotFound):
		// No membership: anything still stamped is orphaned.
	default:
		return 0, fmt.Errorf("reconcile: %w", err)
	}

	cleared, err := r.store.ClearHouseholdRefs(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}
	if r.observer != nil {
		r.observer.ObserveReconcile(cleared)
	}
	if cleared > 0 {
		r.logger.InfoContext(ctx, "Reclassified orphaned expenses as personal",
			log.FieldUserID, userID,
			"cleared", cleared)
	}
	return cleared, nil
}
