package chainntnfs

import (
	"github.com/breez/swapd/ledger"
	"github.com/breez/swapd/swapseed"
)

// Leg tags an Event with which side of the swap it concerns, so a single
// fan-in channel can feed both watchers into one state machine (the design
// "emit ... Deployed, Funded, then exactly one of Redeemed or Refunded";
// the design "Watcher/state-machine coupling": each watcher owns a send
// endpoint of a bounded channel, the state machine owns the receive end).
type Leg uint8

const (
	LegInvalid Leg = iota
	Alpha
	Beta
)

func (l Leg) String() string {
	switch l {
	case Alpha:
		return "alpha"
	case Beta:
		return "beta"
	default:
		return "invalid"
	}
}

// Kind discriminates the Event variant.
type Kind uint8

const (
	KindInvalid Kind = iota
	EventDeployed
	EventFunded
	EventIncorrectlyFunded
	EventRedeemed
	EventRefunded
)

func (k Kind) String() string {
	switch k {
	case EventDeployed:
		return "deployed"
	case EventFunded:
		return "funded"
	case EventIncorrectlyFunded:
		return "incorrectly_funded"
	case EventRedeemed:
		return "redeemed"
	case EventRefunded:
		return "refunded"
	default:
		return "invalid"
	}
}

// Event is what a watcher sends on its channel when it observes one of the
// four pattern matches.
type Event struct {
	Leg  Leg
	Kind Kind

	HtlcLocation ledger.HtlcLocation
	DeployTx     ledger.Transaction
	FundTx       ledger.Transaction
	RedeemTx     ledger.Transaction
	RefundTx     ledger.Transaction
	Secret       swapseed.Secret

	// ObservedAt is the on-chain block timestamp at which this event was
	// recognized — never wall-clock.
	ObservedAt BlockHeader
}

// Sink is the send endpoint a watcher uses to report events. It is a plain
// channel type alias so watchers and the state machine agree on the wire
// shape without an interface indirection.
type Sink = chan<- Event
