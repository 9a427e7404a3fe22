package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"custody/internal/platform/postgres"
	"custody/internal/router/models"
	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
	"custody/pkg/platform/sentinel"
)

// PostgresOperationStore persists operations in the operations table.
type PostgresOperationStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresOperationStore {
	return &PostgresOperationStore{db: db}
}

const operationColumns = `id, kind, status, account, amount, from_token, to_token, external_ref,
	COALESCE(idempotency_key, ''), pending_step, enhanced_verification, failure_code,
	failure_reason, resolution, created_at, updated_at`

func (s *PostgresOperationStore) Create(ctx context.Context, op *models.Operation) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO operations (id, kind, status, account, amount, from_token, to_token, external_ref,
			idempotency_key, pending_step, enhanced_verification, failure_code, failure_reason,
			resolution, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13, $14, $15, $16)`,
		uuid.UUID(op.ID), string(op.Kind), string(op.Status), string(op.Account), op.Amount,
		string(op.FromToken), string(op.ToToken), op.ExternalRef, op.IdempotencyKey,
		string(op.PendingStep), op.EnhancedVerification, string(op.FailureCode), op.FailureReason,
		op.Resolution, op.CreatedAt, op.UpdatedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("operation %s: %w", op.ID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

// Save updates the mutable fields. Kind, account and amounts never change.
func (s *PostgresOperationStore) Save(ctx context.Context, op *models.Operation) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE operations SET status = $2, external_ref = $3, pending_step = $4,
			enhanced_verification = $5, failure_code = $6, failure_reason = $7,
			resolution = $8, updated_at = $9
		WHERE id = $1`,
		uuid.UUID(op.ID), string(op.Status), op.ExternalRef, string(op.PendingStep),
		op.EnhancedVerification, string(op.FailureCode), op.FailureReason, op.Resolution, op.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update operation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update operation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("operation %s: %w", op.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresOperationStore) FindByID(ctx context.Context, opID id.OperationID) (*models.Operation, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE id = $1`, uuid.UUID(opID))
	op, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("operation %s: %w", opID, sentinel.ErrNotFound)
	}
	return op, err
}

func (s *PostgresOperationStore) FindByIdempotencyKey(ctx context.Context, account id.AccountID, key string) (*models.Operation, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE account = $1 AND idempotency_key = $2`,
		string(account), key)
	op, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("idempotency key %q: %w", key, sentinel.ErrNotFound)
	}
	return op, err
}

func (s *PostgresOperationStore) ListByAccount(ctx context.Context, account id.AccountID) ([]models.Operation, error) {
	return s.list(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE account = $1 ORDER BY created_at, id`,
		string(account))
}

func (s *PostgresOperationStore) ListByStatus(ctx context.Context, status models.Status, updatedBefore time.Time) ([]models.Operation, error) {
	return s.list(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE status = $1 AND updated_at < $2 ORDER BY created_at, id`,
		string(status), updatedBefore)
}

func (s *PostgresOperationStore) list(ctx context.Context, query string, args ...any) ([]models.Operation, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var out []models.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOperation(row scanner) (*models.Operation, error) {
	var (
		op                              models.Operation
		opID                            uuid.UUID
		kind, status, account, from, to string
		pendingStep, failureCode        string
	)
	err := row.Scan(&opID, &kind, &status, &account, &op.Amount, &from, &to, &op.ExternalRef,
		&op.IdempotencyKey, &pendingStep, &op.EnhancedVerification, &failureCode,
		&op.FailureReason, &op.Resolution, &op.CreatedAt, &op.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan operation: %w", err)
	}
	op.ID = id.OperationID(opID)
	op.Kind = id.OperationKind(kind)
	op.Status = models.Status(status)
	op.Account = id.AccountID(account)
	op.FromToken = id.TokenSymbol(from)
	op.ToToken = id.TokenSymbol(to)
	op.PendingStep = models.PendingStep(pendingStep)
	op.FailureCode = dErrors.Code(failureCode)
	return &op, nil
}
