package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"custody/internal/platform/postgres"
	"custody/internal/token/models"
	id "custody/pkg/domain"
	"custody/pkg/platform/sentinel"
)

// PostgresLedgerStore persists balances in token_balances and movements in
// token_journal.
type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{db: db}
}

func (s *PostgresLedgerStore) Balance(ctx context.Context, symbol id.TokenSymbol, account id.AccountID) (int64, error) {
	var balance int64
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT balance FROM token_balances WHERE symbol = $1 AND account = $2`,
		string(symbol), string(account),
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select balance: %w", err)
	}
	return balance, nil
}

func (s *PostgresLedgerStore) TotalSupply(ctx context.Context, symbol id.TokenSymbol) (int64, error) {
	var supply int64
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT COALESCE(SUM(balance), 0)::BIGINT FROM token_balances WHERE symbol = $1`,
		string(symbol),
	).Scan(&supply)
	if err != nil {
		return 0, fmt.Errorf("sum balances: %w", err)
	}
	return supply, nil
}

func (s *PostgresLedgerStore) FindJournal(ctx context.Context, symbol id.TokenSymbol, ref string) (*models.JournalEntry, error) {
	var (
		e              models.JournalEntry
		kind, from, to string
	)
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT kind, from_account, to_account, amount, recorded_at
		FROM token_journal WHERE symbol = $1 AND ref = $2`,
		string(symbol), ref,
	).Scan(&kind, &from, &to, &e.Amount, &e.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("journal %s/%s: %w", symbol, ref, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select journal: %w", err)
	}
	e.Symbol = symbol
	e.Ref = ref
	e.Kind = models.Kind(kind)
	e.From = id.AccountID(from)
	e.To = id.AccountID(to)
	return &e, nil
}

// Apply records the journal entry and moves balances in one transaction.
func (s *PostgresLedgerStore) Apply(ctx context.Context, e *models.JournalEntry) error {
	return postgres.RunInTx(ctx, s.db, func(ctx context.Context) error {
		conn := postgres.Conn(ctx, s.db)
		_, err := conn.ExecContext(ctx, `
			INSERT INTO token_journal (symbol, ref, kind, from_account, to_account, amount, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			string(e.Symbol), e.Ref, string(e.Kind), string(e.From), string(e.To), e.Amount, e.RecordedAt,
		)
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("journal %s/%s: %w", e.Symbol, e.Ref, sentinel.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert journal: %w", err)
		}

		if !e.From.IsNil() {
			res, err := conn.ExecContext(ctx, `
				UPDATE token_balances SET balance = balance - $3
				WHERE symbol = $1 AND account = $2 AND balance >= $3`,
				string(e.Symbol), string(e.From), e.Amount,
			)
			if err != nil {
				return fmt.Errorf("debit balance: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("balance of %s: %w", e.From, sentinel.ErrInvalidState)
			}
		}
		if !e.To.IsNil() {
			_, err := conn.ExecContext(ctx, `
				INSERT INTO token_balances (symbol, account, balance)
				VALUES ($1, $2, $3)
				ON CONFLICT (symbol, account) DO UPDATE
				SET balance = token_balances.balance + EXCLUDED.balance`,
				string(e.Symbol), string(e.To), e.Amount,
			)
			if err != nil {
				return fmt.Errorf("credit balance: %w", err)
			}
		}
		return nil
	})
}
