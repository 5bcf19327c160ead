// Package monitoring holds the diagnostic logger and Prometheus metrics shared
// by the reconstruction packages.
package monitoring

import "log"

// Logger is the logging capability handed to algorithms at construction time.
// It has the same shape as Logf so any printf-style function can be used.
type Logger func(format string, v ...interface{})

// Logf receives diagnostics from components built without an explicit
// Logger. It starts as log.Printf; the CLI swaps in zap.
var Logf Logger = log.Printf

// SetLogger replaces Logf. nil mutes it.
func SetLogger(f Logger) {
	if f == nil {
		Logf = Nop
		return
	}
	Logf = f
}

// Resolve returns l, or a Logger that forwards to the current package logger
// when l is nil. Forwarding happens at call time so a later SetLogger is honoured.
func Resolve(l Logger) Logger {
	if l != nil {
		return l
	}
	return func(format string, v ...interface{}) {
		Logf(format, v...)
	}
}

// Nop discards everything.
func Nop(string, ...interface{}) {}
