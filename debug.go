package ember

import "log"

// globalDebug gates diagnostic logging for soft conditions (capped spawns,
// failed animation fetches). Off by default; toggled by SetDebugMode.
var globalDebug bool

// SetDebugMode enables or disables debug logging. When enabled, soft
// per-frame conditions that are otherwise silent (spawn requests capped by a
// full pool, suppressed emitters after a failed animation fetch) are logged
// to the standard logger with an "ember:" prefix.
func SetDebugMode(enabled bool) {
	globalDebug = enabled
}

func debugf(format string, args ...any) {
	if globalDebug {
		log.Printf("ember: "+format, args...)
	}
}
