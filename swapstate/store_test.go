package swapstate

import (
	"errors"
	"testing"
	"time"

	"github.com/breez/swapd/chainntnfs"
	"github.com/breez/swapd/ledger"
	"github.com/breez/swapd/swap"
	"github.com/breez/swapd/swapfsm"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestSwap(id uuid.UUID) SwapState {
	return SwapState{
		ID:   id,
		Role: swap.Alice,
		FSM:  swapfsm.Start(),
	}
}

func TestStorePutGet(t *testing.T) {
	s := New(nil)
	s.Start()
	defer s.Stop()

	id := uuid.New()
	st := newTestSwap(id)
	require.NoError(t, s.Put(st))

	got, ok := s.Get(id)
	require.True(t, ok)
	require.Equal(t, swap.Alice, got.Role)

	_, ok = s.Get(uuid.New())
	require.False(t, ok)
}

func TestStorePersistHookError(t *testing.T) {
	s := New(func(SwapState) error { return errors.New("persist failed") })
	s.Start()
	defer s.Stop()

	err := s.Put(newTestSwap(uuid.New()))
	require.Error(t, err)
}

func TestApplyAdvancesFSM(t *testing.T) {
	s := New(nil)
	s.Start()
	defer s.Stop()

	id := uuid.New()
	require.NoError(t, s.Put(newTestSwap(id)))

	loc := ledger.NewBitcoinHtlcLocation(ledger.BitcoinOutpoint{Vout: 0})
	ev := chainntnfs.Event{
		Leg: chainntnfs.Alpha, Kind: chainntnfs.EventDeployed,
		HtlcLocation: loc,
	}

	got, err := s.Apply(id, ev)
	require.NoError(t, err)
	require.Equal(t, "AlphaDeployedBetaNotDeployed", got.FSM.Phase())
}

func TestSubscribeDeliversImmediatelyWhenAlreadyMatching(t *testing.T) {
	s := New(nil)
	s.Start()
	defer s.Stop()

	id := uuid.New()
	st := newTestSwap(id)
	st.FSM.Outcome = swapfsm.OutcomeSuccess
	require.NoError(t, s.Put(st))

	sub := s.Subscribe(id, func(s SwapState) bool { return s.FSM.IsTerminal() })
	defer sub.Cancel()

	got, ok := sub.Wait(time.Second)
	require.True(t, ok)
	require.True(t, got.FSM.IsTerminal())
}

func TestSubscribeDeliversOnLaterMatch(t *testing.T) {
	s := New(nil)
	s.Start()
	defer s.Stop()

	id := uuid.New()
	require.NoError(t, s.Put(newTestSwap(id)))

	sub := s.Subscribe(id, func(s SwapState) bool { return s.FSM.IsTerminal() })
	defer sub.Cancel()

	go func() {
		time.Sleep(10 * time.Millisecond)
		st, _ := s.Get(id)
		st.FSM.Outcome = swapfsm.OutcomeRefunded
		_ = s.Put(st)
	}()

	got, ok := sub.Wait(time.Second)
	require.True(t, ok)
	require.Equal(t, swapfsm.OutcomeRefunded, got.FSM.Outcome)
}
