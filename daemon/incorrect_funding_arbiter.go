package daemon

import (
	"sync"

	"github.com/google/uuid"

	"github.com/breez/swapd/asset"
	"github.com/breez/swapd/chainntnfs"
)

// IncorrectlyFundedEvent is raised once per (swap, leg) the first time a
// watcher reports a funding transaction that delivered the wrong quantity.
type IncorrectlyFundedEvent struct {
	SwapID   uuid.UUID
	Leg      chainntnfs.Leg
	Expected asset.Asset
}

// IncorrectFundingArbiter is fed every IncorrectlyFundedEvent observed
// across all swaps (the design scenario 3: a Refund becomes available
// immediately, with no expiry wait). Grounded on daemon/breacharbiter.go's
// shape — a dedicated goroutine draining a channel of consuming events and
// handing each to a handler — reduced here because the remedy itself
// ("make Refund(leg) appear in the action set") already happens the moment
// swapfsm.State reflects IncorrectlyFunded; this arbiter exists to surface
// the event to operators, not to broadcast a remedial transaction itself.
type IncorrectFundingArbiter struct {
	events chan IncorrectlyFundedEvent
	quit   chan struct{}
	wg     sync.WaitGroup
}

// NewIncorrectFundingArbiter constructs an arbiter with a small input
// buffer; Engine.fanIn is its only producer.
func NewIncorrectFundingArbiter() *IncorrectFundingArbiter {
	return &IncorrectFundingArbiter{
		events: make(chan IncorrectlyFundedEvent, 16),
		quit:   make(chan struct{}),
	}
}

// Start launches the observer goroutine.
func (a *IncorrectFundingArbiter) Start() {
	a.wg.Add(1)
	go a.observer()
}

// Stop signals the observer to exit and waits for it.
func (a *IncorrectFundingArbiter) Stop() {
	close(a.quit)
	a.wg.Wait()
}

// Notify reports an IncorrectlyFunded observation. Called from
// Engine.fanIn, never blocks past Stop.
func (a *IncorrectFundingArbiter) Notify(ev IncorrectlyFundedEvent) {
	select {
	case a.events <- ev:
	case <-a.quit:
	}
}

func (a *IncorrectFundingArbiter) observer() {
	defer a.wg.Done()
	for {
		select {
		case ev := <-a.events:
			swpdLog.Warnf("swap %s: %s leg incorrectly funded (expected %s), refund available immediately", ev.SwapID, ev.Leg, ev.Expected)
		case <-a.quit:
			return
		}
	}
}
