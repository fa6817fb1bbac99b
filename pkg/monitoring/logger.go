// Package monitoring holds the diagnostic logger shared by the kernel packages.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf and may
// be replaced with SetLogger, e.g. to route lines into the TUI log box.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}
