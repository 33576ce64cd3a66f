package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteDB wraps a SQLite database holding a local outcome log.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

// createSchema creates the database tables and indices.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS outcomes (
		id TEXT PRIMARY KEY,
		submission_id TEXT NOT NULL,
		source TEXT NOT NULL,
		page INTEGER NOT NULL,
		parser TEXT,
		status TEXT NOT NULL,
		error_kind TEXT,
		error_text TEXT,
		parsed_at TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_submission ON outcomes(submission_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_status ON outcomes(status);
	CREATE INDEX IF NOT EXISTS idx_outcomes_parsed_at ON outcomes(parsed_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return err
	}

	// Run migrations for existing databases.
	return migrateSchema(db)
}

// migrateSchema adds columns introduced after the first release.
func migrateSchema(db *sql.DB) error {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('outcomes') WHERE name='ticket_uid'`).Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		if _, err := db.Exec(`ALTER TABLE outcomes ADD COLUMN ticket_uid TEXT`); err != nil {
			return err
		}
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_outcomes_ticket_uid ON outcomes(ticket_uid)`); err != nil {
			return err
		}
	}

	return nil
}

// timeLayout is a fixed-width UTC layout, so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const insertOutcomeSQL = `
	INSERT INTO outcomes (id, submission_id, source, page, parser, status, error_kind, error_text, ticket_uid, parsed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// InsertOutcome stores a single outcome.
func (d *SQLiteDB) InsertOutcome(ctx context.Context, o Outcome) error {
	_, err := d.db.ExecContext(ctx, insertOutcomeSQL, outcomeArgs(o)...)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// InsertOutcomes stores outcomes in a single transaction.
func (d *SQLiteDB) InsertOutcomes(ctx context.Context, outcomes []Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertOutcomeSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, o := range outcomes {
		if _, err := stmt.ExecContext(ctx, outcomeArgs(o)...); err != nil {
			return fmt.Errorf("insert outcome: %w", err)
		}
	}

	return tx.Commit()
}

func outcomeArgs(o Outcome) []any {
	return []any{
		o.ID, o.SubmissionID, o.Source, o.Page, o.Parser, o.Status,
		o.ErrorKind, o.ErrorText, o.TicketUID, o.ParsedAt.UTC().Format(timeLayout),
	}
}

// OutcomeStats holds aggregate counts over stored outcomes.
type OutcomeStats struct {
	Total    int
	ByStatus map[string]int
	ByKind   map[string]int // Failed outcomes only.
	ByParser map[string]int // Successful outcomes only.
}

// OutcomeStats returns statistics about the stored outcomes.
func (d *SQLiteDB) OutcomeStats(ctx context.Context) (*OutcomeStats, error) {
	stats := &OutcomeStats{
		ByStatus: make(map[string]int),
		ByKind:   make(map[string]int),
		ByParser: make(map[string]int),
	}

	row := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM outcomes")
	if err := row.Scan(&stats.Total); err != nil {
		return nil, err
	}

	groups := []struct {
		query string
		into  map[string]int
	}{
		{"SELECT status, COUNT(*) FROM outcomes GROUP BY status", stats.ByStatus},
		{"SELECT error_kind, COUNT(*) FROM outcomes WHERE status = 'failed' GROUP BY error_kind", stats.ByKind},
		{"SELECT parser, COUNT(*) FROM outcomes WHERE status = 'ok' GROUP BY parser", stats.ByParser},
	}
	for _, g := range groups {
		if err := d.countInto(ctx, g.query, g.into); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

func (d *SQLiteDB) countInto(ctx context.Context, query string, into map[string]int) error {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key sql.NullString
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		into[key.String] = count
	}
	return rows.Err()
}

// SubmissionOutcomes returns the outcomes of one submission ordered by page.
func (d *SQLiteDB) SubmissionOutcomes(ctx context.Context, submissionID string) ([]Outcome, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, submission_id, source, page, parser, status, error_kind, error_text, ticket_uid, parsed_at
		FROM outcomes WHERE submission_id = ? ORDER BY page
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		var parser, kind, text, uid sql.NullString
		var parsedAt string
		if err := rows.Scan(&o.ID, &o.SubmissionID, &o.Source, &o.Page, &parser, &o.Status, &kind, &text, &uid, &parsedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		o.Parser, o.ErrorKind, o.ErrorText, o.TicketUID = parser.String, kind.String, text.String, uid.String
		o.ParsedAt, _ = time.Parse(timeLayout, parsedAt)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// FailureKinds returns failure counts by error kind since the given time,
// most frequent first.
func (d *SQLiteDB) FailureKinds(ctx context.Context, since time.Time) ([]KindCount, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT error_kind, COUNT(*) AS n
		FROM outcomes
		WHERE status = 'failed' AND parsed_at >= ?
		GROUP BY error_kind
		ORDER BY n DESC, error_kind
	`, since.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("query failure kinds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var kinds []KindCount
	for rows.Next() {
		var kind sql.NullString
		var k KindCount
		if err := rows.Scan(&kind, &k.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		k.Kind = kind.String
		kinds = append(kinds, k)
	}
	return kinds, rows.Err()
}
