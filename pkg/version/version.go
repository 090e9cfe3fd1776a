// Package version holds the build version, overridden via -ldflags at release time.
package version

// Version is the application version.
var Version = "v0.3.0"
