package chainntnfs

import "github.com/btcsuite/btclog"

// log is the package-wide logger for the chain-watcher subsystem. It is
// disabled by default and wired up to a real backend by UseLogger, matching
// daemon/log.go's per-package logging convention.
var log = btclog.Disabled

// UseLogger sets the package-wide logger. It must be called before the
// chain watchers are started, or log output prior to the call is discarded.
func UseLogger(logger btclog.Logger) {
	log = logger
}
