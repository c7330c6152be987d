package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/obsidianstack/regionmetrics/pkg/types"
	"github.com/obsidianstack/regionmetrics/server/internal/config"
)

// Load builds the Dataset described by cfg.
func Load(ctx context.Context, cfg config.DatasetConfig) (*Dataset, error) {
	switch cfg.Source {
	case config.SourceJSON, "":
		return LoadJSON(cfg.Path)
	case config.SourceSQLite:
		return LoadSQLite(ctx, cfg.Path, cfg.EffectiveTable())
	default:
		return nil, fmt.Errorf("telemetry: unsupported source %q", cfg.Source)
	}
}

// LoadJSON reads a JSON array of samples from path.
func LoadJSON(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: read %q: %w", path, err)
	}

	var samples []types.Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("telemetry: parse %q: %w", path, err)
	}
	return New(samples), nil
}
