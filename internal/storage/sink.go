package storage

import (
	"context"
	"fmt"
)

var (
	_ OutcomeStore = (*SQLiteDB)(nil)
	_ OutcomeStore = (*ClickHouseDB)(nil)
	_ PassStore    = (*PostgresDB)(nil)
)

// OpenOutcomeSink opens the configured outcome store: ClickHouse when a host
// is set, else the SQLite file, else none. The returned close function is
// never nil.
func OpenOutcomeSink(ctx context.Context, cfg Config) (OutcomeStore, func(), error) {
	switch {
	case cfg.ClickHouse.Enabled():
		ch, err := OpenClickHouse(ctx, cfg.ClickHouse)
		if err != nil {
			return nil, func() {}, err
		}
		if err := ch.CreateSchema(ctx); err != nil {
			_ = ch.Close()
			return nil, func() {}, fmt.Errorf("clickhouse: %w", err)
		}
		return ch, func() { _ = ch.Close() }, nil

	case cfg.SQLitePath != "":
		db, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, func() {}, err
		}
		return db, func() { _ = db.Close() }, nil

	default:
		return nil, func() {}, nil
	}
}
