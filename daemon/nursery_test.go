package daemon

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/breez/swapd/asset"
	"github.com/breez/swapd/chainntnfs"
	"github.com/breez/swapd/ledger"
	"github.com/breez/swapd/swap"
	"github.com/breez/swapd/swapfsm"
	"github.com/breez/swapd/swapstate"
)

func acceptedSwap(id uuid.UUID, alphaExpiry, betaExpiry time.Time) swapstate.SwapState {
	req := swap.Request{
		SwapID:      id,
		AlphaLedger: ledger.BitcoinRegtest,
		BetaLedger:  ledger.Ethereum(1337),
		AlphaAsset:  asset.Asset{Type: asset.Bitcoin, Sats: 100000},
		BetaAsset:   asset.Asset{Type: asset.Ether},
		AlphaExpiry: alphaExpiry,
		BetaExpiry:  betaExpiry,
	}
	comm := swap.NewProposed(req).WithAccept(swap.Accept{SwapID: id})
	return swapstate.SwapState{
		ID:            id,
		Role:          swap.Alice,
		Communication: comm,
		FSM:           swapfsm.Start(),
	}
}

func TestNurseryWarnsOncePerLegPastExpiry(t *testing.T) {
	store := swapstate.New(nil)
	store.Start()
	defer store.Stop()

	id := uuid.New()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	st := acceptedSwap(id, past, future)
	st.FSM.Alpha = st.FSM.Alpha.WithDeployed(ledger.NewBitcoinHtlcLocation(ledger.BitcoinOutpoint{Vout: 0}), ledger.Transaction{}).WithFunded(ledger.Transaction{})
	require.NoError(t, store.Put(st))

	n := NewNursery(store, time.Minute)

	n.sweep(time.Now())
	legs := n.notified[id]
	require.True(t, legs[chainntnfs.Alpha])
	require.False(t, legs[chainntnfs.Beta])

	// A second sweep must not re-warn: the dedup map already has this leg.
	n.sweep(time.Now())
	require.Len(t, n.notified[id], 1)
}

func TestNurseryIgnoresLegsNotYetFunded(t *testing.T) {
	store := swapstate.New(nil)
	store.Start()
	defer store.Stop()

	id := uuid.New()
	past := time.Now().Add(-time.Hour)
	st := acceptedSwap(id, past, past)
	require.NoError(t, store.Put(st))

	n := NewNursery(store, time.Minute)
	n.sweep(time.Now())

	require.Empty(t, n.notified[id])
}

func TestNurseryForgetsTerminalSwaps(t *testing.T) {
	store := swapstate.New(nil)
	store.Start()
	defer store.Stop()

	id := uuid.New()
	past := time.Now().Add(-time.Hour)
	st := acceptedSwap(id, past, past)
	st.FSM.Alpha = st.FSM.Alpha.WithDeployed(ledger.NewBitcoinHtlcLocation(ledger.BitcoinOutpoint{Vout: 0}), ledger.Transaction{}).WithFunded(ledger.Transaction{})
	require.NoError(t, store.Put(st))

	n := NewNursery(store, time.Minute)
	n.notified[id] = map[chainntnfs.Leg]bool{chainntnfs.Alpha: true}

	st.FSM.Outcome = swapfsm.OutcomeRefunded
	require.NoError(t, store.Put(st))

	n.sweep(time.Now())
	_, ok := n.notified[id]
	require.False(t, ok)
}
