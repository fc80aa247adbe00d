package swapstate

import "github.com/btcsuite/btclog"

// log is the package-wide logger, disabled by default.
var log = btclog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}
