// Package config loads the service configuration from config.yaml.
//
// Sections:
//   - server: HTTP port, POST routes (default "/" and "/api"), metrics path,
//     body limit, timeouts, CORS policy, API key auth
//   - dataset: telemetry source (json | sqlite), path, SQLite table
//   - logging: level, format (json | text), optional rotating log file
//
// Load(path) applies defaults before unmarshalling, then REGIONMETRICS_*
// environment overrides, then validates. An empty path means defaults only.
// Watch(ctx, logger, path, running, fn) re-reads the file on change. Only
// logging.level is applied live, through fn; edits to other sections are
// reported by RestartRequired and logged as needing a restart. A reload that
// fails validation is logged and skipped.
package config
