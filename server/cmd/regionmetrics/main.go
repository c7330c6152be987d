// Command regionmetrics serves per-region latency and uptime summaries.
package main

import "github.com/obsidianstack/regionmetrics/server/internal/cli"

func main() {
	cli.Execute()
}
