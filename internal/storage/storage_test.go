package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uzpass/internal/document"
	"uzpass/internal/extractor"
)

func sampleResult() extractor.Result {
	return extractor.Result{
		SubmissionID: "sub-1",
		Source:       document.SourcePDF,
		Outcomes: []extractor.PageOutcome{
			{Page: 1, Kind: "no_time_found", Err: errors.New("positional: no time has been found")},
			{Page: 2, Parser: "positional", TicketID: "1234-56789012-3456"},
		},
	}
}

func TestOutcomesFrom(t *testing.T) {
	at := time.Date(2021, 12, 24, 14, 5, 0, 0, time.FixedZone("EET", 7200))

	outcomes := OutcomesFrom(sampleResult(), at)
	require.Len(t, outcomes, 2)

	failed := outcomes[0]
	assert.NotEmpty(t, failed.ID)
	assert.Equal(t, "sub-1", failed.SubmissionID)
	assert.Equal(t, "pdf", failed.Source)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "no_time_found", failed.ErrorKind)
	assert.Equal(t, "positional: no time has been found", failed.ErrorText)
	assert.Empty(t, failed.TicketUID)
	assert.Equal(t, time.UTC, failed.ParsedAt.Location())

	ok := outcomes[1]
	assert.Equal(t, StatusOK, ok.Status)
	assert.Equal(t, "positional", ok.Parser)
	assert.Equal(t, "1234-56789012-3456", ok.TicketUID)
	assert.Empty(t, ok.ErrorKind)
	assert.NotEqual(t, failed.ID, ok.ID)
}

func TestConfigHelpers(t *testing.T) {
	pg := PostgresConfig{Host: "db", Port: 5432, Database: "uzpass", User: "u", Password: "p"}
	assert.True(t, pg.Enabled())
	assert.Equal(t, "postgres://u:p@db:5432/uzpass?sslmode=disable", pg.DSN())

	pg.User, pg.Password = "pass@bot", "p@ss/w:rd?#"
	parsed, err := pgxpool.ParseConfig(pg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "pass@bot", parsed.ConnConfig.User)
	assert.Equal(t, "p@ss/w:rd?#", parsed.ConnConfig.Password)
	assert.Equal(t, "db", parsed.ConnConfig.Host)
	assert.Equal(t, uint16(5432), parsed.ConnConfig.Port)

	ch := ClickHouseConfig{Host: "ch", Port: 9000}
	assert.True(t, ch.Enabled())
	assert.Equal(t, "ch:9000", ch.Addr())

	assert.False(t, PostgresConfig{}.Enabled())
	assert.False(t, ClickHouseConfig{}.Enabled())
}
