package htlc

import (
	"github.com/breez/swapd/ledger"
	"github.com/breez/swapd/swapseed"
)

// State discriminates the LedgerState variant. Grounded directly on
// original_source/comit/src/rfc003/ledger_state.rs's EnumDiscriminants
// (HtlcState), reduced to a plain Go enum.
type State uint8

const (
	NotDeployed State = iota
	Deployed
	Funded
	Redeemed
	Refunded
	IncorrectlyFunded
)

func (s State) String() string {
	switch s {
	case NotDeployed:
		return "NOT_DEPLOYED"
	case Deployed:
		return "DEPLOYED"
	case Funded:
		return "FUNDED"
	case Redeemed:
		return "REDEEMED"
	case Refunded:
		return "REFUNDED"
	case IncorrectlyFunded:
		return "INCORRECTLY_FUNDED"
	default:
		return "INVALID"
	}
}

// Terminal reports whether s is one of the three terminal leaves a ledger
// state never transitions out of.
func (s State) Terminal() bool {
	return s == Redeemed || s == Refunded || s == IncorrectlyFunded
}

// LedgerState is the per-(swap, ledger) lifecycle record. Only
// the fields relevant to the current State are populated; callers must
// dispatch on State before reading them.
type LedgerState struct {
	State State

	HtlcLocation ledger.HtlcLocation
	DeployTx     ledger.Transaction
	FundTx       ledger.Transaction
	RedeemTx     ledger.Transaction
	RefundTx     ledger.Transaction
	Secret       swapseed.Secret
}

// WithDeployed returns the Deployed transition of ls. Valid only from
// NotDeployed.
func (ls LedgerState) WithDeployed(loc ledger.HtlcLocation, deployTx ledger.Transaction) LedgerState {
	return LedgerState{State: Deployed, HtlcLocation: loc, DeployTx: deployTx}
}

// WithFunded returns the Funded transition of ls. Valid only from Deployed,
// or directly from NotDeployed on Bitcoin where fund == deploy.
func (ls LedgerState) WithFunded(fundTx ledger.Transaction) LedgerState {
	ls.State = Funded
	ls.FundTx = fundTx
	return ls
}

// WithIncorrectlyFunded returns the IncorrectlyFunded transition of ls.
func (ls LedgerState) WithIncorrectlyFunded(fundTx ledger.Transaction) LedgerState {
	ls.State = IncorrectlyFunded
	ls.FundTx = fundTx
	return ls
}

// WithRedeemed returns the Redeemed transition of ls.
func (ls LedgerState) WithRedeemed(redeemTx ledger.Transaction, secret swapseed.Secret) LedgerState {
	ls.State = Redeemed
	ls.RedeemTx = redeemTx
	ls.Secret = secret
	return ls
}

// WithRefunded returns the Refunded transition of ls.
func (ls LedgerState) WithRefunded(refundTx ledger.Transaction) LedgerState {
	ls.State = Refunded
	ls.RefundTx = refundTx
	return ls
}
