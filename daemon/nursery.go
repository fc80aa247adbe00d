package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/breez/swapd/chainntnfs"
	"github.com/breez/swapd/htlc"
	"github.com/breez/swapd/swap"
	"github.com/breez/swapd/swapstate"
)

// Nursery tracks HTLC expiries across every swap currently held in the
// state store and logs the moment a leg's refund becomes available,
// independent of anything asking.
// swaphttp's get_actions already derives refund availability on demand from
// wall-clock time at request time; Nursery exists so that fact is visible
// to operators even when no client happens to poll right after expiry.
//
// Grounded on daemon/utxonursery.go's height-indexed maturity tracking,
// adapted from a new-block trigger to a wall-clock ticker: a swap's two
// legs can live on different chains, so there is no single "new block"
// event to hang this on the way utxonursery hangs off one chain's blocks.
type Nursery struct {
	store    *swapstate.Store
	interval time.Duration

	mu       sync.Mutex
	notified map[uuid.UUID]map[chainntnfs.Leg]bool
}

// NewNursery constructs a Nursery that sweeps store every interval.
func NewNursery(store *swapstate.Store, interval time.Duration) *Nursery {
	return &Nursery{
		store:    store,
		interval: interval,
		notified: make(map[uuid.UUID]map[chainntnfs.Leg]bool),
	}
}

// Run drives the sweep ticker until ctx is cancelled.
func (n *Nursery) Run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			n.sweep(now)
		case <-ctx.Done():
			return
		}
	}
}

func (n *Nursery) sweep(now time.Time) {
	for _, st := range n.store.All() {
		if st.Communication.Phase != swap.Accepted || st.FSM.IsTerminal() {
			n.forget(st.ID)
			continue
		}

		req := st.Communication.Request
		n.checkLeg(st.ID, chainntnfs.Alpha, req.AlphaExpiry, st.FSM.Alpha, now)
		n.checkLeg(st.ID, chainntnfs.Beta, req.BetaExpiry, st.FSM.Beta, now)
	}
}

func (n *Nursery) checkLeg(swapID uuid.UUID, leg chainntnfs.Leg, expiry time.Time, ls htlc.LedgerState, now time.Time) {
	if now.Before(expiry) {
		return
	}
	if ls.State != htlc.Funded && ls.State != htlc.IncorrectlyFunded {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	legs, ok := n.notified[swapID]
	if !ok {
		legs = make(map[chainntnfs.Leg]bool)
		n.notified[swapID] = legs
	}
	if legs[leg] {
		return
	}
	legs[leg] = true

	swpdLog.Warnf("swap %s: %s leg past expiry %s while %s, refund now available", swapID, leg, expiry, ls.State)
}

// forget drops swapID's notification bookkeeping once it leaves the active
// set, so a later swap id reusing the map (impossible in practice, but
// cheap to guard) never inherits stale state.
func (n *Nursery) forget(swapID uuid.UUID) {
	n.mu.Lock()
	delete(n.notified, swapID)
	n.mu.Unlock()
}
