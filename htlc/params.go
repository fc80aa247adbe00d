// Package htlc implements the HtlcParams value type and the per-ledger
// LedgerState lifecycle record.
package htlc

import (
	"time"

	"github.com/breez/swapd/asset"
	"github.com/breez/swapd/ledger"
)

// Params is the immutable, value-typed HTLC description bound to one ledger,
// derived once per side at swap acceptance.
type Params struct {
	Ledger         ledger.Kind
	Asset          asset.Asset
	RedeemIdentity ledger.Identity
	RefundIdentity ledger.Identity
	Expiry         time.Time
	SecretHash     [32]byte
}

// AlphaParams derives alpha's HtlcParams from a swap Request+Accept.
// Alpha is Alice's outgoing ledger: Alice funds it and Bob redeems it.
func AlphaParams(alphaLedger ledger.Kind, alphaAsset asset.Asset, expiry time.Time, secretHash [32]byte, aliceRefund, bobRedeem ledger.Identity) Params {
	return Params{
		Ledger:         alphaLedger,
		Asset:          alphaAsset,
		RedeemIdentity: bobRedeem,
		RefundIdentity: aliceRefund,
		Expiry:         expiry,
		SecretHash:     secretHash,
	}
}

// BetaParams derives beta's HtlcParams from a swap Request+Accept. Beta is
// Bob's outgoing ledger: Bob funds it and Alice redeems it.
func BetaParams(betaLedger ledger.Kind, betaAsset asset.Asset, expiry time.Time, secretHash [32]byte, aliceRedeem, bobRefund ledger.Identity) Params {
	return Params{
		Ledger:         betaLedger,
		Asset:          betaAsset,
		RedeemIdentity: aliceRedeem,
		RefundIdentity: bobRefund,
		Expiry:         expiry,
		SecretHash:     secretHash,
	}
}
