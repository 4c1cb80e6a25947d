package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/billing/domain"
	"go.uber.org/zap"
)

const reconcileTimeout = 20 * time.Second

// AsyncReconciler decouples inventory mutations from billing convergence.
// Failures are logged; the next mutation retries.
type AsyncReconciler struct {
	svc domain.Service
	log *zap.Logger
}

func NewReconciler(svc domain.Service, log *zap.Logger) domain.Reconciler {
	return &AsyncReconciler{svc: svc, log: log.Named("billing.reconciler")}
}

func (r *AsyncReconciler) InventoryChanged(_ context.Context, ownerID snowflake.ID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
		defer cancel()

		if _, err := r.svc.Reconcile(ctx, ownerID); err != nil {
			r.log.Warn("billing.reconcile_failed",
				zap.String("owner_id", ownerID.String()),
				zap.Error(err),
			)
		}
	}()
}
