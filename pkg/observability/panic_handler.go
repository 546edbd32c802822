package observability

import "runtime/debug"

// RecoverPanic logs a recovered panic with its stack trace. Meant for defer
// in background goroutines where a panic must not take down the process.
func RecoverPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		logPanic(logger, where, r)
	}
}

// RecoverPanicWithCallback additionally runs cleanup after logging the
// panic, such as writing an error response or closing a channel. The
// cleanup does not run when no panic occurred.
func RecoverPanicWithCallback(logger *Logger, where string, cleanup func()) {
	if r := recover(); r != nil {
		logPanic(logger, where, r)
		if cleanup != nil {
			cleanup()
		}
	}
}

func logPanic(logger *Logger, where string, r interface{}) {
	logger.WithFields(map[string]interface{}{
		"panic": r,
		"stack": string(debug.Stack()),
		"where": where,
	}).Error("panic recovered")
}
