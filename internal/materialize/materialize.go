// Package materialize lands scanned rows in a PostgreSQL warehouse. It
// creates the destination table from the planned column set and streams
// rows over the COPY protocol, so a sync never buffers the remote table
// in memory.
package materialize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"rowbridge/cli/internal/dsn"
	"rowbridge/cli/internal/schema"
)

const connectTimeout = 5 * time.Second

// Target identifies a destination table as schema plus name.
type Target struct {
	Schema string
	Table  string
}

// ParseTarget splits a destination spec into schema and table. A bare
// table name lands in public.
func ParseTarget(spec string) (Target, error) {
	parts := strings.Split(spec, ".")
	switch len(parts) {
	case 1:
		if parts[0] == "" {
			return Target{}, fmt.Errorf("destination table name is empty")
		}
		return Target{Schema: "public", Table: parts[0]}, nil
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return Target{}, fmt.Errorf("destination %q has an empty schema or table part", spec)
		}
		return Target{Schema: parts[0], Table: parts[1]}, nil
	}
	return Target{}, fmt.Errorf("destination %q must be table or schema.table", spec)
}

// Identifier returns the target in the driver's quotable form.
func (t Target) Identifier() pgx.Identifier {
	return pgx.Identifier{t.Schema, t.Table}
}

func (t Target) String() string {
	return t.Schema + "." + t.Table
}

// pgType maps a planned column type to its warehouse column type.
func pgType(t schema.Type) string {
	switch t {
	case schema.TypeBigint:
		return "bigint"
	case schema.TypeNumeric:
		return "numeric"
	case schema.TypeBoolean:
		return "boolean"
	case schema.TypeTimestamp:
		return "timestamptz"
	case schema.TypeJSONB:
		return "jsonb"
	}
	return "text"
}

// CreateDDL renders the CREATE TABLE statement for a planned column set.
// Identifiers are quoted, so mixed-case remote field names survive.
func CreateDDL(target Target, cols []schema.Column) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(target.Identifier().Sanitize())
	b.WriteString(" (")
	for i, col := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgx.Identifier{col.Name}.Sanitize())
		b.WriteString(" ")
		b.WriteString(pgType(col.Type))
	}
	b.WriteString(")")
	return b.String()
}

// Writer owns the warehouse connection pool for one sync run.
type Writer struct {
	pool *pgxpool.Pool
}

// Connect normalizes the DSN, opens a pool, and verifies connectivity
// before any scan traffic starts.
func Connect(ctx context.Context, rawDSN string) (*Writer, error) {
	normalized, err := dsn.Parse(rawDSN)
	if err != nil {
		return nil, err
	}

	ctxPing, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	pool, err := pgxpool.New(ctxPing, normalized)
	if err != nil {
		return nil, fmt.Errorf("warehouse DSN rejected by driver: %w", err)
	}
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("warehouse connection failed: %w", err)
	}
	return &Writer{pool: pool}, nil
}

// Close releases the pool.
func (w *Writer) Close() {
	w.pool.Close()
}

// EnsureTable creates the destination table when it does not exist yet.
// An existing table is left as found, whatever its shape.
func (w *Writer) EnsureTable(ctx context.Context, target Target, cols []schema.Column) error {
	ddl := CreateDDL(target, cols)
	log.Debug().Str("table", target.String()).Msg("ensuring destination table")
	if _, err := w.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	return nil
}

// Truncate empties the destination table before a full reload.
func (w *Writer) Truncate(ctx context.Context, target Target) error {
	if _, err := w.pool.Exec(ctx, "TRUNCATE TABLE "+target.Identifier().Sanitize()); err != nil {
		return fmt.Errorf("truncate %s: %w", target, err)
	}
	return nil
}

// CopyRows streams rows from src into the destination table and returns
// the row count. COPY aborts atomically when src reports an error, so a
// failed scan leaves no partial load behind.
func (w *Writer) CopyRows(ctx context.Context, target Target, cols []schema.Column, src pgx.CopyFromSource) (int64, error) {
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	n, err := w.pool.CopyFrom(ctx, target.Identifier(), names, src)
	if err != nil {
		return n, fmt.Errorf("copy into %s: %w", target, err)
	}
	return n, nil
}
