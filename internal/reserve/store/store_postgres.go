package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"custody/internal/platform/postgres"
	"custody/internal/reserve/models"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
)

// PostgresEntryStore persists the reserve ledger in reserve_entries.
type PostgresEntryStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresEntryStore {
	return &PostgresEntryStore{db: db}
}

const entryColumns = `tx_id, direction, amount, confirmations, address,
	operation_ref, pending_mint, pending_mint_ref, recorded_at`

func (s *PostgresEntryStore) Insert(ctx context.Context, e *models.Entry) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO reserve_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(e.TxID), string(e.Direction), e.Amount, e.Confirmations, string(e.Address),
		e.OperationRef, e.PendingMint, e.PendingMintRef, e.RecordedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("reserve entry %s: %w", e.TxID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert reserve entry: %w", err)
	}
	return nil
}

func (s *PostgresEntryStore) FindByTxID(ctx context.Context, txID id.BitcoinTxID) (*models.Entry, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM reserve_entries WHERE tx_id = $1`, string(txID))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reserve entry %s: %w", txID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select reserve entry: %w", err)
	}
	return e, nil
}

func (s *PostgresEntryStore) List(ctx context.Context) ([]models.Entry, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+entryColumns+` FROM reserve_entries ORDER BY tx_id`)
	if err != nil {
		return nil, fmt.Errorf("list reserve entries: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reserve entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *PostgresEntryStore) Totals(ctx context.Context) (models.Totals, error) {
	var t models.Totals
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE direction = 'deposit'), 0)::BIGINT,
			COALESCE(SUM(amount) FILTER (WHERE direction = 'withdrawal'), 0)::BIGINT,
			COUNT(*)
		FROM reserve_entries`,
	).Scan(&t.Deposits, &t.Withdrawals, &t.Entries)
	if err != nil {
		return models.Totals{}, fmt.Errorf("sum reserve entries: %w", err)
	}
	return t, nil
}

func (s *PostgresEntryStore) SetPendingMint(ctx context.Context, txID id.BitcoinTxID, pending bool, ref string) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE reserve_entries SET pending_mint = $2, pending_mint_ref = $3
		WHERE tx_id = $1`,
		string(txID), pending, ref,
	)
	if err != nil {
		return fmt.Errorf("update pending mint: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("reserve entry %s: %w", txID, sentinel.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.Entry, error) {
	var (
		e         models.Entry
		txID      string
		direction string
		address   string
	)
	if err := row.Scan(&txID, &direction, &e.Amount, &e.Confirmations, &address,
		&e.OperationRef, &e.PendingMint, &e.PendingMintRef, &e.RecordedAt); err != nil {
		return nil, err
	}
	e.TxID = id.BitcoinTxID(txID)
	e.Direction = models.Direction(direction)
	e.Address = id.BitcoinAddress(address)
	return &e, nil
}
