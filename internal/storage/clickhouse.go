package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseDB wraps a ClickHouse connection for outcome analytics.
type ClickHouseDB struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr()},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := pingOrClose(ctx, conn); err != nil {
		return nil, err
	}

	return &ClickHouseDB{conn: conn}, nil
}

type pingCloser interface {
	Ping(ctx context.Context) error
	Close() error
}

// pingOrClose tests the connection and releases it when the server is not
// reachable.
func pingOrClose(ctx context.Context, conn pingCloser) error {
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return fmt.Errorf("ping clickhouse: %w", err)
	}
	return nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse tables.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	err := d.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS outcomes (
		id              UUID,
		submission_id   String,
		source          LowCardinality(String),
		page            UInt16,
		parser          LowCardinality(String),
		status          LowCardinality(String),
		error_kind      LowCardinality(String),
		error_text      String,
		ticket_uid      String,
		parsed_at       DateTime64(3),
		created_at      DateTime64(3) DEFAULT now64(3)
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(parsed_at)
	ORDER BY (status, error_kind, parsed_at, id)
	SETTINGS index_granularity = 8192`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// InsertOutcomes stores outcomes in one batch.
func (d *ClickHouseDB) InsertOutcomes(ctx context.Context, outcomes []Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO outcomes (id, submission_id, source, page, parser, status, error_kind, error_text, ticket_uid, parsed_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range outcomes {
		err := batch.Append(o.ID, o.SubmissionID, o.Source, uint16(o.Page), o.Parser, o.Status,
			o.ErrorKind, o.ErrorText, o.TicketUID, o.ParsedAt)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// FailureKinds returns failure counts by error kind since the given time,
// most frequent first.
func (d *ClickHouseDB) FailureKinds(ctx context.Context, since time.Time) ([]KindCount, error) {
	rows, err := d.conn.Query(ctx, `
		SELECT error_kind, count() AS n
		FROM outcomes
		WHERE status = 'failed' AND parsed_at >= ?
		GROUP BY error_kind
		ORDER BY n DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query failure kinds: %w", err)
	}
	defer rows.Close()

	var kinds []KindCount
	for rows.Next() {
		var k KindCount
		if err := rows.Scan(&k.Kind, &k.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		kinds = append(kinds, k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return kinds, nil
}

// SubmissionOutcomes returns the outcomes of one submission ordered by page.
func (d *ClickHouseDB) SubmissionOutcomes(ctx context.Context, submissionID string) ([]Outcome, error) {
	rows, err := d.conn.Query(ctx, `
		SELECT toString(id), submission_id, source, page, parser, status, error_kind, error_text, ticket_uid, parsed_at
		FROM outcomes
		WHERE submission_id = ?
		ORDER BY page
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		var page uint16
		if err := rows.Scan(&o.ID, &o.SubmissionID, &o.Source, &page, &o.Parser, &o.Status,
			&o.ErrorKind, &o.ErrorText, &o.TicketUID, &o.ParsedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		o.Page = int(page)
		o.ParsedAt = o.ParsedAt.UTC()
		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return outcomes, nil
}
