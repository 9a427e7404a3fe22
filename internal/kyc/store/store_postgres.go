package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"custody/internal/kyc/models"
	"custody/internal/platform/postgres"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
)

// PostgresAccountStore persists accounts in kyc_accounts.
type PostgresAccountStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

func (s *PostgresAccountStore) Create(ctx context.Context, a *models.Account) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO kyc_accounts (
			account, tier, approved, enhanced_verified,
			full_name, country, document_ref, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(a.ID), int(a.Tier), a.Approved, a.EnhancedVerified,
		a.Data.FullName, a.Data.Country, a.Data.DocumentRef, a.CreatedAt, a.UpdatedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("account %s: %w", a.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) FindByID(ctx context.Context, account id.AccountID) (*models.Account, error) {
	var (
		a    models.Account
		tier int
	)
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT account, tier, approved, enhanced_verified,
			   full_name, country, document_ref, created_at, updated_at
		FROM kyc_accounts
		WHERE account = $1`, string(account),
	).Scan(&a.ID, &tier, &a.Approved, &a.EnhancedVerified,
		&a.Data.FullName, &a.Data.Country, &a.Data.DocumentRef, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", account, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select account: %w", err)
	}
	a.Tier = id.Tier(tier)
	return &a, nil
}

func (s *PostgresAccountStore) Save(ctx context.Context, a *models.Account) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE kyc_accounts
		SET tier = $2, approved = $3, enhanced_verified = $4, updated_at = $5
		WHERE account = $1`,
		string(a.ID), int(a.Tier), a.Approved, a.EnhancedVerified, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %s: %w", a.ID, sentinel.ErrNotFound)
	}
	return nil
}
