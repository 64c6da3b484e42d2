// Package version carries the build version shown by -version and in the
// CLI usage header.
package version

// Version is stamped at build time via
//
//	-ldflags "-X github.com/Montcharles/germitrack/internal/version.Version=v1.2.0"
//
// and reads "dev" in unstamped builds.
var Version = "dev"
