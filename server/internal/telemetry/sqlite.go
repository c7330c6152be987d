package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/mattn/go-sqlite3"

	"github.com/obsidianstack/regionmetrics/pkg/types"
)

// tableName restricts table identifiers, since they cannot be bound as
// query parameters.
var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadSQLite reads every row of table from the SQLite database at path.
// The table must have region, latency_ms and uptime columns. The database
// is opened read-only and closed before returning.
func LoadSQLite(ctx context.Context, path, table string) (*Dataset, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("telemetry: invalid table name %q", table)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %q: %w", path, err)
	}
	defer db.Close()

	query := fmt.Sprintf("SELECT region, latency_ms, uptime FROM %s", table)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("telemetry: query %q: %w", path, err)
	}
	defer rows.Close()

	var samples []types.Sample
	for rows.Next() {
		var s types.Sample
		if err := rows.Scan(&s.Region, &s.LatencyMs, &s.Uptime); err != nil {
			return nil, fmt.Errorf("telemetry: scan row: %w", err)
		}
		if s.Region == "" {
			return nil, fmt.Errorf("telemetry: row %d: region is required", len(samples)+1)
		}
		if s.LatencyMs < 0 {
			return nil, fmt.Errorf("telemetry: row %d: latency_ms %v must not be negative", len(samples)+1, s.LatencyMs)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("telemetry: read rows: %w", err)
	}
	return New(samples), nil
}
