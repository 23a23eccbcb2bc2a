// Package version provides build version information for the guardkit CLI.
// These variables are set at build time via ldflags.
// Example: go build -ldflags "-X guardkit/pkg/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // These must be package-level vars for ldflags injection.
package version

var (
	// Version is the semantic version ("dev" for development builds).
	Version = "dev"

	// Commit is the git commit SHA of the build.
	Commit = "none"

	// Date is the build date in ISO format.
	Date = "unknown"
)
