// Package schema answers ad-hoc "what columns does this source table actually
// have" questions against the billing database, for chasing down cache
// extraction surprises without leaving the tool.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/rs/zerolog/log"
)

const columnsQuery = `
SELECT column_name, data_type, character_maximum_length
FROM information_schema.columns
WHERE table_name = $1
ORDER BY ordinal_position`

// Column is one INFORMATION_SCHEMA row.
type Column struct {
	Name      string        `db:"column_name"`
	DataType  string        `db:"data_type"`
	MaxLength sql.NullInt64 `db:"character_maximum_length"`
}

// Inspector runs introspection queries over one connection.
type Inspector struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects and pings the source database.
func Open(dsn string) (*Inspector, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open source database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping source database: %w", err)
	}

	return &Inspector{db: db, timeout: 15 * time.Second}, nil
}

// Close releases the connection.
func (i *Inspector) Close() error {
	return i.db.Close()
}

// Columns lists the columns of a table in ordinal position order.
func (i *Inspector) Columns(ctx context.Context, table string) ([]Column, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	var cols []Column
	if err := i.db.SelectContext(ctx, &cols, columnsQuery, table); err != nil {
		return nil, fmt.Errorf("introspect %s: %w", table, err)
	}

	log.Debug().Str("table", table).Int("columns", len(cols)).Msg("table introspected")
	return cols, nil
}

// Print writes the column listing as an aligned table.
func Print(w io.Writer, table string, cols []Column) {
	fmt.Fprintf(w, "%s (%d columns)\n", table, len(cols))
	fmt.Fprintf(w, "%-40s %-20s %s\n", "COLUMN", "TYPE", "MAX LENGTH")
	for _, c := range cols {
		maxLen := "-"
		if c.MaxLength.Valid {
			maxLen = fmt.Sprintf("%d", c.MaxLength.Int64)
		}
		fmt.Fprintf(w, "%-40s %-20s %s\n", c.Name, c.DataType, maxLen)
	}
}
