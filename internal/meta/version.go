package meta

import (
	"fmt"
)

var (
	// Version is the semantic version of Scout.
	// This value is injected at build time via ldflags.
	Version = "HEAD"

	// Commit is the git commit hash.
	// This value is injected at build time via ldflags.
	Commit = "UNKNOWN"
)

// UserAgent returns the User-Agent header value for probe requests.
func UserAgent() string {
	return fmt.Sprintf("scout/%s health check", Version)
}
