package daemon

import (
	"time"

	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/breez/swapd/asset"
	"github.com/breez/swapd/chainntnfs"
)

func TestIncorrectFundingArbiterObservesEvents(t *testing.T) {
	a := NewIncorrectFundingArbiter()
	a.Start()
	defer a.Stop()

	ev := IncorrectlyFundedEvent{
		SwapID:   uuid.New(),
		Leg:      chainntnfs.Alpha,
		Expected: asset.Asset{Type: asset.Bitcoin, Sats: 100000},
	}

	done := make(chan struct{})
	go func() {
		a.Notify(ev)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked")
	}
}

func TestIncorrectFundingArbiterStopDrainsCleanly(t *testing.T) {
	a := NewIncorrectFundingArbiter()
	a.Start()

	a.Notify(IncorrectlyFundedEvent{SwapID: uuid.New(), Leg: chainntnfs.Beta})

	stopped := make(chan struct{})
	go func() {
		a.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}

	// Notify after Stop must not block forever: the quit channel is
	// already closed, so the select in Notify always has a ready branch
	// (quit, or the buffered send while the buffer has room).
	done := make(chan struct{})
	go func() {
		a.Notify(IncorrectlyFundedEvent{SwapID: uuid.New()})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify after Stop blocked")
	}
}
