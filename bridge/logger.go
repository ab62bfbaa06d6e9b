//  Logger.go
//  ggtv-kit Bridge
//
//  Routes the Go log facade to the host's logger.

package bridge

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/TienBeta/ggtv-kit/config"
	"github.com/TienBeta/ggtv-kit/log"
)

// LogSink allows the host to receive ggtv-kit log entries. level is one of
// debug, info, warn or error.
type LogSink interface {
	Log(level string, message string)
}

// SetLogSink installs a zap logger that forwards entries to sink. An empty
// level uses GGTV_LOG_LEVEL. Pass a nil sink to revert to zap's production
// logger.
func SetLogSink(sink LogSink, level string) error {
	if sink == nil {
		log.SetLogger(zap.Must(zap.NewProduction()))
		return nil
	}

	if level == "" {
		level = config.LoadOrDefault().LogLevel
	}
	minLevel, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}

	core := &sinkCore{
		sink:     sink,
		minLevel: minLevel,
	}
	log.SetLogger(zap.New(core, zap.AddCaller()))
	return nil
}

type sinkCore struct {
	sink     LogSink
	minLevel zapcore.Level
	fields   []zapcore.Field
}

func (c *sinkCore) Enabled(level zapcore.Level) bool {
	return level >= c.minLevel
}

func (c *sinkCore) With(fields []zapcore.Field) zapcore.Core {
	return &sinkCore{
		sink:     c.sink,
		minLevel: c.minLevel,
		fields:   append(slices.Clip(c.fields), fields...),
	}
}

func (c *sinkCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *sinkCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, field := range c.fields {
		field.AddTo(enc)
	}
	for _, field := range fields {
		field.AddTo(enc)
	}

	var b strings.Builder
	if ent.Caller.Defined {
		b.WriteString(ent.Caller.TrimmedPath())
		b.WriteString(" ")
	}
	if msg := strings.TrimSpace(ent.Message); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString(ent.Level.String())
	}
	if len(enc.Fields) > 0 {
		b.WriteString(" ")
		b.WriteString(formatFields(enc.Fields))
	}

	c.sink.Log(hostLevel(ent.Level), b.String())
	return nil
}

func (c *sinkCore) Sync() error { return nil }

// hostLevel folds zap's panic and fatal levels into error.
func hostLevel(l zapcore.Level) string {
	if l > zapcore.ErrorLevel {
		return zapcore.ErrorLevel.String()
	}
	return l.String()
}

func formatFields(values map[string]any) string {
	var b strings.Builder
	b.WriteString("[")
	for i, key := range slices.Sorted(maps.Keys(values)) {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%v", key, values[key])
	}
	b.WriteString("]")
	return b.String()
}
