package monitoring

import "log"

// Logf reports filter anomalies (uniform resampling after all-zero weights)
// and trial batch summaries. It defaults to log.Printf; tests swap it with
// SetLogger to capture or mute those lines.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
