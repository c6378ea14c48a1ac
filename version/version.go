// Package version exposes the build version of skiaicoach. The value is
// overridden at build time via ldflags.
package version

// Version is the current version of skiaicoach.
var Version = "dev"
