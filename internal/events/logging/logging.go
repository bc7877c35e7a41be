// Package logging provides the log-only event publisher and code notifier used when no broker or mailer is configured.
package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/events"
	portssvc "github.com/SscSPs/disbursement_ledger/internal/core/ports/services"
	"github.com/SscSPs/disbursement_ledger/internal/middleware"
)

type Publisher struct{}

var _ events.Publisher = Publisher{}

func (Publisher) PublishExpenseStatusChanged(ctx context.Context, evt domain.ExpenseStatusChanged) error {
	middleware.GetLoggerFromCtx(ctx).Info("Expense status changed",
		slog.String("event_id", evt.EventID),
		slog.String("expense_id", evt.ExpenseID),
		slog.String("from", string(evt.From)),
		slog.String("to", string(evt.To)),
		slog.String("mode", string(evt.Mode)),
		slog.Int("succeeded", evt.Succeeded),
		slog.Int("failed", evt.Failed))
	return nil
}

// Notifier logs code issuance. The code itself is only logged when IncludeCode is set (never in production).
type Notifier struct {
	IncludeCode bool
}

var _ portssvc.CodeNotifier = Notifier{}

func (n Notifier) NotifyCode(ctx context.Context, identifier, code string, expiresAt time.Time) error {
	attrs := []any{
		slog.String("identifier", identifier),
		slog.Time("expires_at", expiresAt),
	}
	if n.IncludeCode {
		attrs = append(attrs, slog.String("code", code))
	}
	middleware.GetLoggerFromCtx(ctx).Info("One-time code issued", attrs...)
	return nil
}
