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
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxUserRepository struct {
	db *pgxpool.Pool
}

func newPgxUserRepository(db *pgxpool.Pool) *PgxUserRepository {
	return &PgxUserRepository{db: db}
}

// Ensure PgxUserRepository implements portsrepo.UserRepositoryFacade
var _ portsrepo.UserRepositoryFacade = (*PgxUserRepository)(nil)

func toModelUser(d domain.User) models.User {
	m := models.User{
		UserID: d.UserID,
		Email:  d.Email,
		Name:   d.Name,
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}
	if d.DeletedAt != nil {
		m.DeletedAt.Time, m.DeletedAt.Valid = *d.DeletedAt, true
	}
	return m
}

func toDomainUser(m models.User) domain.User {
	d := domain.User{
		UserID: m.UserID,
		Email:  m.Email,
		Name:   m.Name,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
		Permissions: []domain.Permission{},
	}
	if m.DeletedAt.Valid {
		deletedAt := m.DeletedAt.Time
		d.DeletedAt = &deletedAt
	}
	return d
}

// SaveUser upserts the user and replaces its permission set.
func (r *PgxUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	modelUser := toModelUser(user)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	batch.Queue(`
        INSERT INTO users (user_id, email, name, created_at, created_by, last_updated_at, last_updated_by, deleted_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (user_id) DO UPDATE SET
            email = EXCLUDED.email,
            name = EXCLUDED.name,
            last_updated_at = EXCLUDED.last_updated_at,
            last_updated_by = EXCLUDED.last_updated_by,
            deleted_at = EXCLUDED.deleted_at;`,
		modelUser.UserID,
		modelUser.Email,
		modelUser.Name,
		modelUser.CreatedAt,
		modelUser.CreatedBy,
		modelUser.LastUpdatedAt,
		modelUser.LastUpdatedBy,
		modelUser.DeletedAt,
	)
	batch.Queue(`DELETE FROM user_permissions WHERE user_id = $1;`, modelUser.UserID)
	for _, p := range user.Permissions {
		batch.Queue(`INSERT INTO user_permissions (user_id, permission) VALUES ($1, $2);`, modelUser.UserID, string(p))
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return mapWriteError(err, "user "+user.UserID)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewInternalError("failed to commit user "+user.UserID, err)
	}
	return nil
}

func (r *PgxUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, email, name, created_at, created_by, last_updated_at, last_updated_by, deleted_at
		FROM users
		WHERE user_id = $1 AND deleted_at IS NULL;
	`
	var modelUser models.User
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&modelUser.UserID,
		&modelUser.Email,
		&modelUser.Name,
		&modelUser.CreatedAt,
		&modelUser.CreatedBy,
		&modelUser.LastUpdatedAt,
		&modelUser.LastUpdatedBy,
		&modelUser.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID %s: %w", userID, err)
	}

	domainUser := toDomainUser(modelUser)

	rows, err := r.db.Query(ctx, `SELECT permission FROM user_permissions WHERE user_id = $1 ORDER BY permission;`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions for user %s: %w", userID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan permission row: %w", err)
		}
		domainUser.Permissions = append(domainUser.Permissions, domain.Permission(p))
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating permission rows: %w", rows.Err())
	}

	return &domainUser, nil
}
