// Package obslog adapts the go-ethereum slog-based logger to the
// package-level logger convention used throughout this repository:
// one `WithContext` call per package, structured key/value pairs on
// every call site.
package obslog

import (
	"github.com/ethereum/go-ethereum/log"
)

// Logger is the structured logger interface every package depends on.
type Logger = log.Logger

// WithContext returns a logger carrying the given static key/value
// pairs (e.g. "pkg", "revocation") on every subsequent record.
func WithContext(ctx ...any) Logger {
	return log.New(ctx...)
}
