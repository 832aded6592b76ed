package version

import "fmt"

// Version is the release version embedded in the binary.
// Override at build time with
// -ldflags "-X github.com/oukeidos/photomotion/internal/version.Version=0.2.0".
var Version = "0.1.0"

// Commit is the git commit hash embedded in the binary.
var Commit = "unknown"

// BuildDate is the RFC3339 build timestamp embedded in the binary.
var BuildDate = "unknown"

// Info returns a multi-line version string for CLI output.
func Info() string {
	return fmt.Sprintf("photomotion %s\ncommit: %s\nbuild: %s", Version, Commit, BuildDate)
}

// UserAgent identifies outbound download requests.
func UserAgent() string {
	return "photomotion/" + Version
}
