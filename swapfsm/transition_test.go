package swapfsm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/breez/swapd/chainntnfs"
	"github.com/breez/swapd/htlc"
	"github.com/breez/swapd/ledger"
	"github.com/breez/swapd/swapseed"
)

func deployEvent(leg chainntnfs.Leg) chainntnfs.Event {
	return chainntnfs.Event{
		Leg: leg, Kind: chainntnfs.EventDeployed,
		HtlcLocation: ledger.NewBitcoinHtlcLocation(ledger.BitcoinOutpoint{Vout: 0}),
		DeployTx:     ledger.NewBitcoinTransaction([32]byte{1}, nil),
	}
}

func fundedEvent(leg chainntnfs.Leg) chainntnfs.Event {
	return chainntnfs.Event{
		Leg: leg, Kind: chainntnfs.EventFunded,
		FundTx: ledger.NewBitcoinTransaction([32]byte{2}, nil),
	}
}

func redeemedEvent(leg chainntnfs.Leg) chainntnfs.Event {
	return chainntnfs.Event{
		Leg: leg, Kind: chainntnfs.EventRedeemed,
		RedeemTx: ledger.NewBitcoinTransaction([32]byte{3}, nil),
		Secret:   swapseed.Secret{4},
	}
}

func refundedEvent(leg chainntnfs.Leg) chainntnfs.Event {
	return chainntnfs.Event{
		Leg: leg, Kind: chainntnfs.EventRefunded,
		RefundTx: ledger.NewBitcoinTransaction([32]byte{5}, nil),
	}
}

func TestTransitionDeployThenFund(t *testing.T) {
	s := Start()
	s = Transition(s, deployEvent(chainntnfs.Alpha))
	require.Equal(t, htlc.Deployed, s.Alpha.State)

	s = Transition(s, fundedEvent(chainntnfs.Alpha))
	require.Equal(t, htlc.Funded, s.Alpha.State)
	require.False(t, s.IsTerminal())
	require.Equal(t, "AlphaFundedBetaNotDeployed", s.Phase())
}

func TestTransitionRedeemOneLegIsImmediatelyTerminalSuccess(t *testing.T) {
	s := Start()
	s = Transition(s, deployEvent(chainntnfs.Alpha))
	s = Transition(s, fundedEvent(chainntnfs.Alpha))
	s = Transition(s, redeemedEvent(chainntnfs.Alpha))

	require.True(t, s.IsTerminal())
	require.Equal(t, OutcomeSuccess, s.Outcome)
	require.Equal(t, "Final(success)", s.Phase())
}

func TestTransitionRefundIsTerminal(t *testing.T) {
	s := Start()
	s = Transition(s, deployEvent(chainntnfs.Alpha))
	s = Transition(s, fundedEvent(chainntnfs.Alpha))
	s = Transition(s, refundedEvent(chainntnfs.Alpha))

	require.True(t, s.IsTerminal())
	require.Equal(t, OutcomeRefunded, s.Outcome)
}

func TestTransitionIsNoOpOnceTerminal(t *testing.T) {
	s := Start()
	s = Transition(s, deployEvent(chainntnfs.Alpha))
	s = Transition(s, fundedEvent(chainntnfs.Alpha))
	s = Transition(s, redeemedEvent(chainntnfs.Alpha))
	terminal := s

	s = Transition(s, deployEvent(chainntnfs.Beta))
	require.Equal(t, terminal, s)
}

func TestTransitionReplayOfDeployIsNoOp(t *testing.T) {
	s := Start()
	s = Transition(s, deployEvent(chainntnfs.Alpha))
	once := s
	s = Transition(s, deployEvent(chainntnfs.Alpha))
	require.Equal(t, once, s)
}

func TestTransitionRedeemFromNotDeployedIsProtocolViolation(t *testing.T) {
	s := Start()
	s = Transition(s, redeemedEvent(chainntnfs.Alpha))

	require.True(t, s.Failed)
	require.False(t, s.IsTerminal())
	require.Equal(t, "Error", s.Phase())
}

func TestTransitionFirstFailureReasonSticks(t *testing.T) {
	s := Start()
	s = Transition(s, redeemedEvent(chainntnfs.Alpha))
	first := s.FailReason
	require.NotEmpty(t, first)

	s = Transition(s, refundedEvent(chainntnfs.Alpha))
	require.Equal(t, first, s.FailReason)
}

func TestTransitionInvalidLegIsProtocolViolation(t *testing.T) {
	s := Start()
	s = Transition(s, chainntnfs.Event{Leg: chainntnfs.LegInvalid, Kind: chainntnfs.EventDeployed})
	require.True(t, s.Failed)
}

func TestPhaseAccepted(t *testing.T) {
	require.Equal(t, "Accepted", Start().Phase())
}
