// Package version exposes the build metadata stamped into the quiz binary.
package version

// Overridden at build time via -ldflags "-X judgequiz/internal/version.Version=...".
var (
	// Version is the release tag, or "dev" for local builds
	Version = "dev"
	// Commit is the short git commit hash the binary was built from
	Commit = "dev"
	// BuildTime is the UTC timestamp of the build
	BuildTime = "unknown"
)
