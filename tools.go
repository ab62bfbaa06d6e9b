//go:build tools

// Package tools keeps track of toolchain dependencies that are required at
// build time (e.g. gomobile/gobind for the bridge package) but not imported
// by the ggtv-kit code.
package tools

import (
	_ "golang.org/x/mobile/bind"
)
