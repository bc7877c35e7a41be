package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/disbursement_ledger/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `transaction_id, description, transaction_date, status, reference, metadata,
	currency_code, amount, created_at, created_by, last_updated_at, last_updated_by`

type PgxLedgerRepository struct {
	db querier
}

// newPgxLedgerRepository creates a new repository for transactions and entries.
func newPgxLedgerRepository(db querier) *PgxLedgerRepository {
	return &PgxLedgerRepository{db: db}
}

var (
	_ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)
	_ portsrepo.LedgerTxRepository     = (*PgxLedgerRepository)(nil)
)

func toModelTransaction(d domain.Transaction) models.LedgerTransaction {
	m := models.LedgerTransaction{
		TransactionID:   d.TransactionID,
		Description:     d.Description,
		TransactionDate: d.TransactionDate,
		Status:          string(d.Status),
		CurrencyCode:    d.CurrencyCode,
		Amount:          d.Amount,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}
	m.Reference.String, m.Reference.Valid = d.Reference, d.Reference != ""
	m.Metadata.String, m.Metadata.Valid = d.Metadata, d.Metadata != ""
	return m
}

func toDomainTransaction(m models.LedgerTransaction) domain.Transaction {
	return domain.Transaction{
		TransactionID:   m.TransactionID,
		Description:     m.Description,
		TransactionDate: m.TransactionDate,
		Status:          domain.TransactionStatus(m.Status),
		Reference:       m.Reference.String,
		Metadata:        m.Metadata.String,
		CurrencyCode:    m.CurrencyCode,
		Amount:          m.Amount,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var m models.LedgerTransaction
	err := row.Scan(
		&m.TransactionID,
		&m.Description,
		&m.TransactionDate,
		&m.Status,
		&m.Reference,
		&m.Metadata,
		&m.CurrencyCode,
		&m.Amount,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return domain.Transaction{}, err
	}
	return toDomainTransaction(m), nil
}

// SaveTransaction inserts the header and queues every entry insert in one batch.
func (r *PgxLedgerRepository) SaveTransaction(ctx context.Context, txn domain.Transaction, entries []domain.LedgerEntry) error {
	m := toModelTransaction(txn)

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO ledger_transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`,
		m.TransactionID,
		m.Description,
		m.TransactionDate,
		m.Status,
		m.Reference,
		m.Metadata,
		m.CurrencyCode,
		m.Amount,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)

	entryQuery := `
		INSERT INTO ledger_entries (entry_id, transaction_id, account_id, amount, direction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	for _, e := range entries {
		batch.Queue(entryQuery, e.EntryID, m.TransactionID, e.AccountID, e.Amount, string(e.Direction), e.CreatedAt)
	}

	br := r.db.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return mapWriteError(err, "transaction "+m.TransactionID)
	}
	return nil
}

// FindTransactionByID retrieves a transaction header by its ID.
func (r *PgxLedgerRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transactions WHERE transaction_id = $1;`
	txn, err := scanTransaction(r.db.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}
	return &txn, nil
}

// FindTransactionsByReference lists transactions carrying reference, oldest first.
func (r *PgxLedgerRepository) FindTransactionsByReference(ctx context.Context, reference string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transactions WHERE reference = $1 ORDER BY created_at;`
	rows, err := r.db.Query(ctx, query, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions by reference %s: %w", reference, err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return txns, nil
}

// FindEntriesByTransactionID retrieves the entries of a transaction.
func (r *PgxLedgerRepository) FindEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	query := `
		SELECT entry_id, transaction_id, account_id, amount, direction, created_at
		FROM ledger_entries
		WHERE transaction_id = $1
		ORDER BY direction DESC, entry_id;
	`
	rows, err := r.db.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries for transaction %s: %w", transactionID, err)
	}
	defer rows.Close()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		var m models.LedgerEntry
		if err := rows.Scan(&m.EntryID, &m.TransactionID, &m.AccountID, &m.Amount, &m.Direction, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, domain.LedgerEntry{
			EntryID:       m.EntryID,
			TransactionID: m.TransactionID,
			AccountID:     m.AccountID,
			Amount:        m.Amount,
			Direction:     domain.EntryDirection(m.Direction),
			CreatedAt:     m.CreatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}
	return entries, nil
}

// SumEntriesByAccount totals debits and credits ever posted to an account.
func (r *PgxLedgerRepository) SumEntriesByAccount(ctx context.Context, accountID string) (decimal.Decimal, decimal.Decimal, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE direction = 'DEBIT'), 0),
			COALESCE(SUM(amount) FILTER (WHERE direction = 'CREDIT'), 0)
		FROM ledger_entries
		WHERE account_id = $1;
	`
	var debits, credits decimal.Decimal
	if err := r.db.QueryRow(ctx, query, accountID).Scan(&debits, &credits); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to sum entries for account %s: %w", accountID, err)
	}
	return debits, credits, nil
}
