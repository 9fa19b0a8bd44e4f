// Package version provides build and protocol version information.
package version

import (
	"fmt"
	"runtime"

	"github.com/metal-test/metal/internal/constants"
)

var (
	// Version is the semantic version (set by build flags)
	Version = "dev"

	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"

	// BuildDate is the build timestamp (set by build flags)
	BuildDate = "unknown"
)

// Protocol is the wire protocol tag this host accepts from targets.
const Protocol = constants.VersionString

// String renders the build information, one field per line.
func String() string {
	return fmt.Sprintf("metal-serial version %s\nGit commit: %s\nBuild date: %s\nGo version: %s\nProtocol: %s\n",
		Version, GitCommit, BuildDate, runtime.Version(), Protocol)
}
