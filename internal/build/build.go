// Package build provides build information that is linked into the application. Other
// packages within this project can use this information in logs etc..
package build

var (
	// Version is the build version of the application. It is set at build time
	// with -ldflags "-X github.com/openfga/consentsync/internal/build.Version=<version>".
	Version = "dev"

	// Commit is the commit hash the application was built from.
	Commit = "none"

	// Date is the date the application was built.
	Date = "unknown"

	// ProjectName is the name used in user agents and trace resources.
	ProjectName = "consentsync"
)
