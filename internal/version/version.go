// Package version carries build identification, overridden at link
// time:
//
//	go build -ldflags "-X github.com/geopulse-data/geopulse/internal/version.Version=v1.2.0"
package version

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)
