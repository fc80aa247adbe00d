package swapfsm

import (
	"github.com/breez/swapd/chainntnfs"
	"github.com/breez/swapd/htlc"
)

// Transition is the total function over (state, event) the design requires:
// every (State, Event) pair maps to a State, never an error return — a
// protocol violation becomes the Failed flag on the returned State rather
// than a Go error, since the swap itself (not the caller) must carry that
// outcome forward.
//
// Once a swap has reached a terminal Outcome, Transition is a no-op: this is
// what makes a reorg-rewind replay of an already-applied event safe. The
// state machine is idempotent on identical events and tolerates a single
// rewind from a non-terminal state, covering a reorg re-emitting the same
// fund.
func Transition(s State, ev chainntnfs.Event) State {
	if s.IsTerminal() {
		return s
	}

	leg := s.legPointer(ev.Leg)
	if leg == nil {
		return s.withFailure("protocol_violation: event tagged with invalid leg")
	}

	switch ev.Kind {
	case chainntnfs.EventDeployed:
		switch leg.State {
		case htlc.NotDeployed:
			*leg = leg.WithDeployed(ev.HtlcLocation, ev.DeployTx)
		case htlc.Deployed, htlc.Funded, htlc.IncorrectlyFunded, htlc.Redeemed, htlc.Refunded:
			// Replay of an already-observed deploy (reorg rewind); no-op.
		}
		return s

	case chainntnfs.EventFunded:
		switch leg.State {
		case htlc.NotDeployed, htlc.Deployed:
			*leg = leg.WithFunded(ev.FundTx)
			return s
		case htlc.Funded:
			return s
		default:
			return s.withFailure("protocol_violation: funded event from " + leg.State.String())
		}

	case chainntnfs.EventIncorrectlyFunded:
		switch leg.State {
		case htlc.NotDeployed, htlc.Deployed:
			*leg = leg.WithIncorrectlyFunded(ev.FundTx)
			return s
		case htlc.IncorrectlyFunded:
			return s
		default:
			return s.withFailure("protocol_violation: incorrectly-funded event from " + leg.State.String())
		}

	case chainntnfs.EventRedeemed:
		switch leg.State {
		case htlc.Funded:
			*leg = leg.WithRedeemed(ev.RedeemTx, ev.Secret)
			// "AlphaFundedBetaRedeemed" is already a terminal Success:
			// once the secret is revealed on one leg,
			// the safety margin between alpha_expiry and beta_expiry
			// guarantees the other party can redeem the remaining leg
			// before its own expiry, so the swap's outcome is decided here
			// rather than held open until that mechanical second redeem is
			// also observed on-chain.
			return s.withOutcome(OutcomeSuccess)
		case htlc.Redeemed:
			return s
		default:
			return s.withFailure("protocol_violation: redeemed event from " + leg.State.String())
		}

	case chainntnfs.EventRefunded:
		switch leg.State {
		case htlc.Funded, htlc.IncorrectlyFunded:
			*leg = leg.WithRefunded(ev.RefundTx)
			return s.withOutcome(OutcomeRefunded)
		case htlc.Refunded:
			return s
		default:
			return s.withFailure("protocol_violation: refunded event from " + leg.State.String())
		}

	default:
		return s.withFailure("protocol_violation: unknown event kind")
	}
}

func (s *State) legPointer(leg chainntnfs.Leg) *htlc.LedgerState {
	switch leg {
	case chainntnfs.Alpha:
		return &s.Alpha
	case chainntnfs.Beta:
		return &s.Beta
	default:
		return nil
	}
}

// withOutcome sets Outcome if it hasn't already been decided — "first
// observed wins" (same tie-break rule applied at the swap
// level): once Success or Refunded is reached, later events are handled by
// Transition's terminal no-op above and never reach here.
func (s State) withOutcome(o Outcome) State {
	if s.Outcome == OutcomeNone {
		s.Outcome = o
	}
	return s
}

// withFailure marks the swap Failed without forcing it terminal: failure
// isolation keeps watchers running so a late, legitimate refund can still
// be observed and bring the swap to a proper Final(Refunded).
func (s State) withFailure(reason string) State {
	s.Failed = true
	if s.FailReason == "" {
		s.FailReason = reason
	}
	return s
}
