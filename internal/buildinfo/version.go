// Package buildinfo holds values stamped at link time.
package buildinfo

// Version is set with -ldflags "-X github.com/catdevz/boidsweb/internal/buildinfo.Version=v1.2.3".
var Version = "dev"
