package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "custody/pkg/domain"
	audit "custody/pkg/platform/audit"
	txcontext "custody/pkg/platform/tx"
)

// Store implements audit.Store on the compliance_events table. Rows are only ever
// inserted; ids make appends idempotent.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const selectColumns = `
	SELECT id, category, event_type, account, detail, operation_id,
		   actor_id, request_id, occurred_at
	FROM compliance_events`

// Append inserts an event. Duplicate ids are ignored.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Category == "" {
		event.Category = event.Type.Category()
	}

	query := `
		INSERT INTO compliance_events (
			id, category, event_type, account, detail, operation_id,
			actor_id, request_id, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		string(event.Type),
		string(event.Account),
		event.Detail,
		event.OperationID,
		event.ActorID,
		event.RequestID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert compliance event: %w", err)
	}
	return nil
}

// ListByAccount returns an account's events oldest first.
func (s *Store) ListByAccount(ctx context.Context, account id.AccountID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE account = $1
		ORDER BY occurred_at ASC, id ASC`, string(account))
	if err != nil {
		return nil, fmt.Errorf("query compliance events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListByTypes returns the most recent events of the given types, oldest first.
func (s *Store) ListByTypes(ctx context.Context, types []audit.EventType, limit int) ([]audit.Event, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	if limit <= 0 {
		limit = 1000
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT * FROM (`+selectColumns+`
			WHERE event_type = ANY($1)
			ORDER BY occurred_at DESC, id DESC
			LIMIT $2
		) recent ORDER BY occurred_at ASC, id ASC`, pq.Array(names), limit)
	if err != nil {
		return nil, fmt.Errorf("query compliance events by type: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns the last limit events, oldest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT * FROM (`+selectColumns+`
			ORDER BY occurred_at DESC, id DESC
			LIMIT $1
		) recent ORDER BY occurred_at ASC, id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent compliance events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event     audit.Event
			category  string
			eventType string
			account   string
		)
		err := rows.Scan(
			&event.ID,
			&category,
			&eventType,
			&account,
			&event.Detail,
			&event.OperationID,
			&event.ActorID,
			&event.RequestID,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan compliance event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		event.Type = audit.EventType(eventType)
		event.Account = id.AccountID(account)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compliance events: %w", err)
	}
	return events, nil
}
