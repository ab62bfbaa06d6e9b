// Package log is the process-wide logging facade used by every ggtv-kit
// package. It is backed by zap; SetLogger swaps the underlying logger, which
// is how the bridge routes entries to the host application.
package log

import (
	"sync"

	"go.uber.org/zap"
)

var (
	_globalMu sync.RWMutex
	_globalL  *zap.Logger
	_globalS  *zap.SugaredLogger
)

func init() {
	SetLogger(zap.Must(zap.NewProduction()))
}

// SetLogger replaces the global logger. A nil logger installs a no-op logger.
func SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	_globalMu.Lock()
	defer _globalMu.Unlock()
	_globalL = logger
	// One extra frame for the facade functions below.
	_globalS = logger.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

// L returns the current structured logger.
func L() *zap.Logger {
	_globalMu.RLock()
	defer _globalMu.RUnlock()
	return _globalL
}

func sugar() *zap.SugaredLogger {
	_globalMu.RLock()
	defer _globalMu.RUnlock()
	return _globalS
}

func Debugf(template string, args ...any) {
	sugar().Debugf(template, args...)
}

func Infof(template string, args ...any) {
	sugar().Infof(template, args...)
}

func Warnf(template string, args ...any) {
	sugar().Warnf(template, args...)
}

func Errorf(template string, args ...any) {
	sugar().Errorf(template, args...)
}

// Sync flushes any buffered entries.
func Sync() error {
	return L().Sync()
}
