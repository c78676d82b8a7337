package common

// Version is the application version, overridden at build time with
// -ldflags "-X github.com/marketsentry/marketsentry/internal/common.Version=..."
var Version = "0.1.0-dev"

// GetVersion returns the application version string
func GetVersion() string {
	return Version
}
