// Package buildinfo carries build metadata stamped at link time via
// -ldflags "-X github.com/myfimport/citabot/core/buildinfo.Commit=...".
package buildinfo

var (
	// Version is the release version of the binary.
	Version = "dev"
	// Commit is the VCS revision the binary was built from.
	Commit = "unknown"
	// Date is the build timestamp.
	Date = "unknown"
)
