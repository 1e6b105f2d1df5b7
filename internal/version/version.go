// Package version holds build-time metadata injected via ldflags.
package version

// Set at build time:
//
//	-X 'github.com/janekbaraniewski/aggscope/internal/version.Version=...'
//	-X 'github.com/janekbaraniewski/aggscope/internal/version.CommitHash=...'
//	-X 'github.com/janekbaraniewski/aggscope/internal/version.BuildDate=...'
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// String returns "<version> (<commit>) built <date>".
func String() string {
	return Version + " (" + CommitHash + ") built " + BuildDate
}
