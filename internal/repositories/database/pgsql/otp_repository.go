package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/disbursement_ledger/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxOTPRepository struct {
	db *pgxpool.Pool
}

func newPgxOTPRepository(db *pgxpool.Pool) *PgxOTPRepository {
	return &PgxOTPRepository{db: db}
}

var _ portsrepo.OTPRepository = (*PgxOTPRepository)(nil)

// ReplaceCode keeps at most one code per identifier; the primary key enforces it.
func (r *PgxOTPRepository) ReplaceCode(ctx context.Context, code domain.OneTimeCode) error {
	query := `
		INSERT INTO one_time_codes (identifier, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identifier) DO UPDATE SET
			code_hash = EXCLUDED.code_hash,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at;
	`
	if _, err := r.db.Exec(ctx, query, code.Identifier, code.CodeHash, code.ExpiresAt, code.CreatedAt); err != nil {
		return fmt.Errorf("failed to store one-time code: %w", err)
	}
	return nil
}

func (r *PgxOTPRepository) FindActiveCode(ctx context.Context, identifier string, now time.Time) (*domain.OneTimeCode, error) {
	query := `
		SELECT identifier, code_hash, expires_at, created_at
		FROM one_time_codes
		WHERE identifier = $1 AND expires_at > $2;
	`
	var m models.OneTimeCode
	err := r.db.QueryRow(ctx, query, identifier, now).Scan(&m.Identifier, &m.CodeHash, &m.ExpiresAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find one-time code: %w", err)
	}
	return &domain.OneTimeCode{
		Identifier: m.Identifier,
		CodeHash:   m.CodeHash,
		ExpiresAt:  m.ExpiresAt,
		CreatedAt:  m.CreatedAt,
	}, nil
}

func (r *PgxOTPRepository) ConsumeCode(ctx context.Context, identifier, codeHash string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM one_time_codes WHERE identifier = $1 AND code_hash = $2;`, identifier, codeHash)
	if err != nil {
		return false, fmt.Errorf("failed to consume one-time code: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
