package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/providers"
)

type payoutOutcome int

const (
	payoutSkipped payoutOutcome = iota
	payoutPaid
	payoutFailed
)

func (o payoutOutcome) String() string {
	switch o {
	case payoutSkipped:
		return "skipped"
	case payoutPaid:
		return "paid"
	default:
		return "failed"
	}
}

// payoutTally is what payBeneficiaries reports back.
type payoutTally struct {
	paid        int
	alreadyPaid int
	failures    []apperrors.BeneficiaryFailure
}

func (t payoutTally) paidTotal() int {
	return t.paid + t.alreadyPaid
}

// payBeneficiaries pays every unpaid beneficiary. Beneficiaries are visited in position order; with
// Concurrency above 1 up to that many are in flight at once. A failure never stops its siblings.
func (s *disbursementService) payBeneficiaries(ctx context.Context, run *disbursementRun) payoutTally {
	type result struct {
		outcome payoutOutcome
		err     error
	}
	results := make([]result, len(run.beneficiaries))

	limit := s.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, b := range run.beneficiaries {
		g.Go(func() error {
			bctx := ctx
			if s.cfg.PayoutTimeout > 0 {
				var cancel context.CancelFunc
				bctx, cancel = context.WithTimeout(ctx, s.cfg.PayoutTimeout)
				defer cancel()
			}
			outcome, err := s.payBeneficiary(bctx, run, b)
			results[i] = result{outcome: outcome, err: err}
			s.Metrics.IncPayout(run.provider.Name(), outcome.String())
			return nil
		})
	}
	_ = g.Wait()

	var tally payoutTally
	for i, r := range results {
		b := run.beneficiaries[i]
		switch r.outcome {
		case payoutSkipped:
			tally.alreadyPaid++
		case payoutPaid:
			tally.paid++
		default:
			tally.failures = append(tally.failures, apperrors.BeneficiaryFailure{
				BeneficiaryID: b.BeneficiaryID,
				Name:          b.Name,
				Err:           r.err,
			})
		}
	}
	return tally
}

// payBeneficiary moves one beneficiary forward through its payout state machine.
//
// A recorded reference is always checked with the provider before anything is sent,
// so a transfer whose outcome was lost is never sent twice.
func (s *disbursementService) payBeneficiary(ctx context.Context, run *disbursementRun, b domain.ExpenseBeneficiary) (payoutOutcome, error) {
	logger := s.GetLogger(ctx).With(
		slog.String("beneficiary_id", b.BeneficiaryID),
		slog.Int("position", b.Position))

	if b.PayoutState() == domain.PayoutSettled {
		logger.Debug("Beneficiary already paid")
		return payoutSkipped, nil
	}

	if b.TransferReference != "" {
		status, err := run.provider.CheckTransferStatus(ctx, b.TransferReference)
		if err != nil {
			// Outcome unknown, leave the record as is and try again on the next run.
			logger.Warn("Could not check previous transfer",
				slog.String("reference", b.TransferReference),
				slog.String("error", err.Error()))
			return payoutFailed, err
		}
		switch status {
		case domain.TransferSuccess:
			err := s.expenseRepo.MarkBeneficiaryPaid(ctx, b.BeneficiaryID, b.TransferReference, s.now().UTC())
			if errors.Is(err, apperrors.ErrInvalidState) {
				// Confirmed by a concurrent reconciliation.
				return payoutPaid, nil
			}
			if err != nil {
				logger.Error("Failed to mark beneficiary paid after provider confirmed transfer",
					slog.String("reference", b.TransferReference),
					slog.String("error", err.Error()))
				return payoutFailed, err
			}
			logger.Info("Previous transfer confirmed, beneficiary marked paid",
				slog.String("reference", b.TransferReference))
			return payoutPaid, nil
		case domain.TransferPending:
			logger.Warn("Previous transfer still pending, not resending",
				slog.String("reference", b.TransferReference))
			return payoutFailed, fmt.Errorf("%w: reference %s", apperrors.ErrTransferPending, b.TransferReference)
		default:
			logger.Info("Previous transfer did not go through, sending a new one",
				slog.String("reference", b.TransferReference),
				slog.String("provider_status", string(status)))
		}
	}

	return s.sendTransfer(ctx, run, b, logger)
}

func (s *disbursementService) sendTransfer(ctx context.Context, run *disbursementRun, b domain.ExpenseBeneficiary, logger *slog.Logger) (payoutOutcome, error) {
	provider := run.provider
	recipient := domain.RecipientRequest{
		Name:          b.Name,
		AccountNumber: b.AccountNumber,
		BankCode:      b.BankCode,
		CurrencyCode:  run.expense.CurrencyCode,
	}

	if !b.SkipResolution {
		holder, err := provider.ResolveAccountHolder(ctx, b.AccountNumber, b.BankCode)
		if err != nil {
			return s.failBeneficiary(ctx, b, err, logger)
		}
		logger.Debug("Bank account resolved", slog.String("account_name", holder.AccountName))
		if holder.AccountName != "" {
			recipient.Name = holder.AccountName
		}
	}

	handle := b.RecipientHandle
	if handle == "" {
		var err error
		handle, err = provider.RegisterRecipient(ctx, recipient)
		if err != nil {
			return s.failBeneficiary(ctx, b, err, logger)
		}
	}

	attempt := b.Attempts + 1
	reference := transferReference(b.BeneficiaryID, attempt)
	if err := s.expenseRepo.RecordBeneficiaryAttempt(ctx, b.BeneficiaryID, reference, handle, attempt, s.now().UTC()); err != nil {
		logger.Error("Failed to record transfer attempt, transfer not sent", slog.String("error", err.Error()))
		return payoutFailed, err
	}

	res, err := provider.InitiateTransfer(ctx, domain.TransferRequest{
		Amount:          b.Amount,
		CurrencyCode:    run.expense.CurrencyCode,
		RecipientHandle: handle,
		Recipient:       recipient,
		Memo:            memo(run.expense.Description),
		Reference:       reference,
	})
	if err != nil {
		return s.failBeneficiary(ctx, b, err, logger)
	}
	if res.Status == domain.TransferFailed {
		return s.failBeneficiary(ctx, b, providers.NewProviderError(provider.Name(), "transfer", res.Message, apperrors.ErrTransferRejected), logger)
	}

	if err := s.expenseRepo.MarkBeneficiaryPaid(ctx, b.BeneficiaryID, reference, s.now().UTC()); err != nil {
		// The transfer is out; the next run finds the reference and confirms it with the provider.
		logger.Error("Transfer accepted but beneficiary could not be marked paid",
			slog.String("reference", reference),
			slog.String("error", err.Error()))
		return payoutFailed, err
	}

	logger.Info("Beneficiary paid",
		slog.String("reference", reference),
		slog.String("provider_id", res.ProviderID),
		slog.String("provider_status", string(res.Status)),
		slog.Int("attempt", attempt))
	return payoutPaid, nil
}

func (s *disbursementService) failBeneficiary(ctx context.Context, b domain.ExpenseBeneficiary, cause error, logger *slog.Logger) (payoutOutcome, error) {
	logger.Warn("Beneficiary payout failed", slog.String("error", cause.Error()))
	if err := s.expenseRepo.RecordBeneficiaryFailure(ctx, b.BeneficiaryID, cause.Error(), s.now().UTC()); err != nil {
		logger.Error("Failed to record payout failure", slog.String("error", err.Error()))
	}
	return payoutFailed, cause
}

// transferReference is unique per beneficiary and attempt, and only uses characters every rail accepts.
func transferReference(beneficiaryID string, attempt int) string {
	return fmt.Sprintf("dsb_%s_%d", strings.ReplaceAll(beneficiaryID, "-", ""), attempt)
}
