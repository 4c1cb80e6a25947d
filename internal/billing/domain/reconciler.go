package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Reconciler recomputes billable quantities for an owner and converges the
// external subscription items. Implementations never block the caller:
// failures are logged and retried on the next inventory mutation.
type Reconciler interface {
	InventoryChanged(ctx context.Context, ownerID snowflake.ID)
}
