package chainntnfs

import (
	"context"
	"time"

	"github.com/breez/swapd/ledger"
)

// WithRetry calls fn, retrying on error with exponential backoff bounded by
// ledger.MaxBackoff, until it succeeds or ctx is cancelled. Every attempt is
// itself bounded by ledger.RPCTimeout. This implements the design's
// "Per-RPC timeouts ... prevent permanent stalls; timed-out calls are
// retried with exponential backoff bounded by MAX_BACKOFF" and classifies
// every failure along the way as LedgerConnectorUnavailable:
// transient, logged, never surfaced to the state machine.
// ErrCatastrophicGap is the one exception: it is not a connector failure,
// so it is returned to the caller at once instead of being retried.
//
// Grounded on daemon/chainregistry.go's connection-retry shape.
func WithRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := 500 * time.Millisecond

	for {
		callCtx, cancel := context.WithTimeout(ctx, ledger.RPCTimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if err == ErrCatastrophicGap {
			return err
		}
		log.Warnf("ledger connector call failed, retrying in %s: %v", backoff, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > ledger.MaxBackoff {
			backoff = ledger.MaxBackoff
		}
	}
}
