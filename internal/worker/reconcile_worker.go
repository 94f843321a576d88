// Package worker runs the background reconcile loop that repairs expenses
// orphaned by membership changes.
package worker

import (
	"context"
	"fmt"
	"time"

	"hogar/internal/amqp"
	"hogar/internal/log"
	"hogar/internal/services"
)

// ReconcileWorker consumes membership change events and reclassifies the
// affected user's expenses.
type ReconcileWorker struct {
	reconciler *services.Reconciler
	logger     *log.Logger
}

func NewReconcileWorker(reconciler *services.Reconciler, logger *log.Logger) *ReconcileWorker {
	return &ReconcileWorker{
		reconciler: reconciler,
		logger:     logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMembershipChange processes a single event. Returning an error makes
// the consumer requeue the delivery, so only transient failures bubble up.
func (w *ReconcileWorker) HandleMembershipChange(ctx context.Context, msg *amqp.MembershipChangeMessage) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cleared, err := w.reconciler.Reconcile(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("reconcile user %s: %w", msg.UserID, err)
	}

	w.logger.InfoContext(ctx, "Membership change handled",
		log.FieldUserID, msg.UserID,
		"reason", msg.Reason,
		"cleared", cleared)
	return nil
}
