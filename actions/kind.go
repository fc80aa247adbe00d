// Package actions implements the pure action-derivation function:
// Actions(state, role) -> []Action, never signing or broadcasting,
// only describing what a wallet could do next.
//
// Grounded on original_source/cnd/src/actions.rs's Actions trait and its
// per-ledger implementations in actions/{bitcoin,erc20}.rs, re-expressed as
// one role-symmetric function instead of per-ledger trait impls: the design
// observes that each role only ever deploys/funds/refunds its own leg and
// redeems the counterparty's leg, a fact that falls directly out of how
// htlc.AlphaParams/BetaParams assign RedeemIdentity/RefundIdentity.
package actions

import "github.com/breez/swapd/chainntnfs"

// Kind discriminates the action variant the design enumerates.
type Kind uint8

const (
	KindInvalid Kind = iota
	Accept
	Decline
	Deploy
	Fund
	Redeem
	Refund
)

func (k Kind) String() string {
	switch k {
	case Accept:
		return "accept"
	case Decline:
		return "decline"
	case Deploy:
		return "deploy"
	case Fund:
		return "fund"
	case Redeem:
		return "redeem"
	case Refund:
		return "refund"
	default:
		return "invalid"
	}
}

// Action is one concrete, unsigned thing the caller's wallet could do next.
// Exactly one payload field is populated, selected by Kind; Leg names which
// ledger it applies to for the four ledger-scoped kinds (Deploy/Fund/
// Redeem/Refund). Accept/Decline are swap-communication actions and carry
// neither Leg nor a payload.
type Action struct {
	Kind Kind
	Leg  chainntnfs.Leg

	SendToAddress  *SendToAddress
	SpendOutput    *SpendOutput
	DeployContract *DeployContract
	CallContract   *CallContract
}
