//go:build ios || android

package bridge

import "runtime/debug"

const (
	// mobileMemoryLimit is the soft heap ceiling for the Go runtime sharing
	// the host app's process. The engine keeps one connection and a small
	// worker pool, so it stays well below it.
	mobileMemoryLimit = 16 << 20
	mobileGCPercent   = 50
)

func init() {
	debug.SetMemoryLimit(mobileMemoryLimit)
	debug.SetGCPercent(mobileGCPercent)
}
