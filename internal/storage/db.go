package storage

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// Config holds connection settings for every backing store. Each section is
// optional: a component opens only the stores it needs.
type Config struct {
	SQLitePath string           `yaml:"sqlite_path" env:"SQLITE_PATH"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Postgres   PostgresConfig   `yaml:"postgres"`
}

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string `yaml:"host" env:"CLICKHOUSE_HOST"`
	Port     int    `yaml:"port" env:"CLICKHOUSE_PORT" env-default:"9000"`
	Database string `yaml:"database" env:"CLICKHOUSE_DB" env-default:"uzpass"`
	User     string `yaml:"user" env:"CLICKHOUSE_USER" env-default:"default"`
	Password string `yaml:"password" env:"CLICKHOUSE_PASSWORD"`
}

// Enabled reports whether a ClickHouse host is configured.
func (c ClickHouseConfig) Enabled() bool { return c.Host != "" }

// Addr returns the host:port address.
func (c ClickHouseConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	Database string `yaml:"database" env:"POSTGRES_DB" env-default:"uzpass"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"uzpass"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"uzpass"`
}

// Enabled reports whether a PostgreSQL host is configured.
func (c PostgresConfig) Enabled() bool { return c.Host != "" }

// DSN returns the connection string for pgx.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
