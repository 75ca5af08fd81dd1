// Package version holds build metadata stamped by the release pipeline.
// A plain go build keeps the dev defaults.
package version

//nolint:revive // Set via -ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
