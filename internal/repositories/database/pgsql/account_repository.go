package pgsql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/disbursement_ledger/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const accountColumns = `account_id, name, code, account_type, currency_code, description, is_active,
	provider_name, provider_behavior, provider_secret,
	created_at, created_by, last_updated_at, last_updated_by, balance`

type PgxAccountRepository struct {
	db querier
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(db querier) *PgxAccountRepository {
	return &PgxAccountRepository{db: db}
}

var (
	_ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)
	_ portsrepo.AccountTxRepository     = (*PgxAccountRepository)(nil)
)

// Helper to convert domain.Account to models.Account for DB storage
func toModelAccount(d domain.Account) models.Account {
	m := models.Account{
		AccountID:    d.AccountID,
		Name:         d.Name,
		Code:         d.Code,
		AccountType:  string(d.AccountType),
		CurrencyCode: d.CurrencyCode,
		Description:  d.Description,
		IsActive:     d.IsActive,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
		Balance: d.Balance,
	}
	if d.Provider != nil {
		m.ProviderName.String, m.ProviderName.Valid = d.Provider.Provider, true
		m.ProviderBehavior.String, m.ProviderBehavior.Valid = string(d.Provider.Behavior), true
		m.ProviderSecret.String, m.ProviderSecret.Valid = d.Provider.SecretKey, d.Provider.SecretKey != ""
	}
	return m
}

// Helper to convert models.Account from DB to domain.Account
func toDomainAccount(m models.Account) domain.Account {
	d := domain.Account{
		AccountID:    m.AccountID,
		Name:         m.Name,
		Code:         m.Code,
		AccountType:  domain.AccountType(m.AccountType),
		CurrencyCode: m.CurrencyCode,
		Description:  m.Description,
		IsActive:     m.IsActive,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
		Balance: m.Balance,
	}
	if m.ProviderName.Valid {
		d.Provider = &domain.ProviderBinding{
			Provider:  m.ProviderName.String,
			Behavior:  domain.ProviderBehavior(m.ProviderBehavior.String),
			SecretKey: m.ProviderSecret.String,
		}
	}
	return d
}

func scanAccount(row pgx.Row) (domain.Account, error) {
	var m models.Account
	err := row.Scan(
		&m.AccountID,
		&m.Name,
		&m.Code,
		&m.AccountType,
		&m.CurrencyCode,
		&m.Description,
		&m.IsActive,
		&m.ProviderName,
		&m.ProviderBehavior,
		&m.ProviderSecret,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.Balance,
	)
	if err != nil {
		return domain.Account{}, err
	}
	return toDomainAccount(m), nil
}

// SaveAccount inserts a new account.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	m := toModelAccount(account)
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := r.db.Exec(ctx, query,
		m.AccountID,
		m.Name,
		m.Code,
		m.AccountType,
		m.CurrencyCode,
		m.Description,
		m.IsActive,
		m.ProviderName,
		m.ProviderBehavior,
		m.ProviderSecret,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
		m.Balance,
	)
	if err != nil {
		return mapWriteError(err, "account "+m.Code)
	}
	return nil
}

// FindAccountByID retrieves an account by its ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`
	acc, err := scanAccount(r.db.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account by ID %s: %w", accountID, err)
	}
	return &acc, nil
}

// FindAccountByCode retrieves an account by its unique code.
func (r *PgxAccountRepository) FindAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE code = $1;`
	acc, err := scanAccount(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account by code %s: %w", code, err)
	}
	return &acc, nil
}

// FindAccountsByIDs retrieves multiple accounts by their IDs.
func (r *PgxAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1);`
	return r.queryAccounts(ctx, query, accountIDs)
}

// FindAccountsByIDsForUpdate locks the rows in ID order so concurrent postings cannot deadlock.
func (r *PgxAccountRepository) FindAccountsByIDsForUpdate(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1) ORDER BY account_id FOR UPDATE;`
	return r.queryAccounts(ctx, query, accountIDs)
}

func (r *PgxAccountRepository) queryAccounts(ctx context.Context, query string, accountIDs []string) (map[string]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[string]domain.Account{}, nil
	}

	rows, err := r.db.Query(ctx, query, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts by IDs: %w", err)
	}
	defer rows.Close()

	accountsMap := make(map[string]domain.Account, len(accountIDs))
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row during batch fetch: %w", err)
		}
		accountsMap[acc.AccountID] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows during batch fetch: %w", err)
	}

	// Missing IDs are simply absent; the caller checks.
	return accountsMap, nil
}

// UpdateAccountBalances applies every delta as an atomic increment.
func (r *PgxAccountRepository) UpdateAccountBalances(ctx context.Context, balanceChanges map[string]decimal.Decimal, userID string, now time.Time) error {
	if len(balanceChanges) == 0 {
		return nil
	}

	ids := make([]string, 0, len(balanceChanges))
	for id := range balanceChanges {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	batch := &pgx.Batch{}
	query := `
		UPDATE accounts
		SET balance = balance + $2, last_updated_at = $3, last_updated_by = $4
		WHERE account_id = $1;
	`
	for _, id := range ids {
		batch.Queue(query, id, balanceChanges[id], now, userID)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for _, id := range ids {
		tag, err := br.Exec()
		if err != nil {
			return fmt.Errorf("failed to update balance for account %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
		}
	}
	return br.Close()
}
