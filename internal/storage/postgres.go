package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDB wraps a PostgreSQL connection pool holding issued passes.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS passes (
		serial_number   TEXT PRIMARY KEY,
		chat_id         BIGINT NOT NULL,
		ticket_uid      TEXT NOT NULL,
		url             TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		cleared_at      TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_passes_chat ON passes(chat_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_passes_ticket ON passes(ticket_uid);
	`

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SavePass inserts or refreshes a pass reference. Saving a pass again
// restores it to the chat's list.
func (d *PostgresDB) SavePass(ctx context.Context, p Pass) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO passes (serial_number, chat_id, ticket_uid, url, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (serial_number) DO UPDATE SET
			url = EXCLUDED.url,
			cleared_at = NULL
	`, p.SerialNumber, p.ChatID, p.TicketUID, p.URL, createdAt)
	if err != nil {
		return fmt.Errorf("save pass: %w", err)
	}
	return nil
}

// ListPasses returns the passes of a chat that have not been cleared, oldest first.
func (d *PostgresDB) ListPasses(ctx context.Context, chatID int64) ([]Pass, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT serial_number, chat_id, ticket_uid, url, created_at, cleared_at
		FROM passes
		WHERE chat_id = $1 AND cleared_at IS NULL
		ORDER BY created_at
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list passes: %w", err)
	}
	defer rows.Close()

	var passes []Pass
	for rows.Next() {
		var p Pass
		if err := rows.Scan(&p.SerialNumber, &p.ChatID, &p.TicketUID, &p.URL, &p.CreatedAt, &p.ClearedAt); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		passes = append(passes, p)
	}
	return passes, rows.Err()
}

// ClearPasses marks every listed pass of a chat as cleared and returns how
// many were affected.
func (d *PostgresDB) ClearPasses(ctx context.Context, chatID int64) (int64, error) {
	tag, err := d.pool.Exec(ctx, `
		UPDATE passes SET cleared_at = NOW()
		WHERE chat_id = $1 AND cleared_at IS NULL
	`, chatID)
	if err != nil {
		return 0, fmt.Errorf("clear passes: %w", err)
	}
	return tag.RowsAffected(), nil
}
