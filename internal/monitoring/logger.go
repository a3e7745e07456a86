// Package monitoring holds the process-wide leveled logger.
package monitoring

import (
	"log"
	"strings"

	"github.com/leesper/holmes"
)

type logFunc func(format string, v ...interface{})

// The level functions default to the standard logger until Start is called.
// Tests can redirect or mute them with SetLogger.
var (
	Debugf logFunc = func(string, ...interface{}) {}
	Infof  logFunc = log.Printf
	Warnf  logFunc = log.Printf
	Errorf logFunc = log.Printf
)

// SetLogger routes every level to f. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	Debugf, Infof, Warnf, Errorf = f, f, f, f
}

// Start installs holmes as the backing logger. The returned function stops
// it and must be called before exit so buffered lines are flushed.
func Start(level, path string) func() {
	lvl := holmes.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = holmes.DebugLevel
	case "warn", "warning":
		lvl = holmes.WarnLevel
	case "error":
		lvl = holmes.ErrorLevel
	}

	var logger holmes.Logger
	if path != "" {
		logger = holmes.Start(lvl, holmes.LogFilePath(path), holmes.AlsoStdout)
	} else {
		logger = holmes.Start(lvl)
	}

	Debugf = holmes.Debugf
	Infof = holmes.Infof
	Warnf = holmes.Warnf
	Errorf = holmes.Errorf
	return logger.Stop
}
