package events

import (
	"context"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
)

// Publisher emits expense lifecycle events to whoever subscribes (notifications, audit).
type Publisher interface {
	PublishExpenseStatusChanged(ctx context.Context, evt domain.ExpenseStatusChanged) error
}
