// Package swap defines the wire-level swap messages (Request, Accept,
// Decline) and the role/communication-phase data model.
package swap

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/breez/swapd/asset"
	"github.com/breez/swapd/ledger"
)

// ID is the 128-bit swap identifier, the primary key used throughout.
type ID = uuid.UUID

// NewID allocates a fresh random swap id.
func NewID() ID { return uuid.New() }

// Request is the terms Alice proposes to Bob.
type Request struct {
	SwapID ID

	AlphaLedger ledger.Kind
	BetaLedger  ledger.Kind

	AlphaAsset asset.Asset
	BetaAsset  asset.Asset

	AlphaExpiry time.Time
	BetaExpiry  time.Time

	SecretHash [32]byte

	// AlphaRefundIdentity is Alice's own refund identity on alpha.
	AlphaRefundIdentity ledger.Identity
	// BetaRedeemIdentity is Alice's own redeem identity on beta.
	BetaRedeemIdentity ledger.Identity
}

// Accept is Bob's response, supplying the two identities missing from the
// Request.
type Accept struct {
	SwapID ID

	// AlphaRedeemIdentity is Bob's redeem identity on alpha.
	AlphaRedeemIdentity ledger.Identity
	// BetaRefundIdentity is Bob's refund identity on beta.
	BetaRefundIdentity ledger.Identity
}

// Decline is Bob's terminal rejection of a Request.
type Decline struct {
	SwapID ID
	Reason string
}

var (
	// ErrExpiryOrder is returned when alpha_expiry does not leave enough
	// room ahead of beta_expiry (the design invariant, boundary behavior
	// "alpha_expiry <= beta_expiry: request is rejected before it ever
	// reaches the state machine").
	ErrExpiryOrder = errors.New("swap: alpha_expiry must exceed beta_expiry + safety margin")
	// ErrExpiryPast is returned when an expiry is not in the future.
	ErrExpiryPast = errors.New("swap: expiry must be in the future")
	// ErrBadSecretHash is returned when the secret hash is not 32 bytes
	// of non-zero data.
	ErrBadSecretHash = errors.New("swap: secret_hash must be a non-zero 32-byte value")
	// ErrBadIdentity is returned when an identity's family does not match
	// its ledger's family.
	ErrBadIdentity = errors.New("swap: identity family does not match ledger family")
	// ErrBadAsset is returned when an asset is not well-formed for its
	// ledger.
	ErrBadAsset = errors.New("swap: asset is not valid for its ledger")
)

// Validate checks the Request invariants. It is called at the
// boundary (the design: Deserialization/InvalidRequest "rejected at the
// boundary; never reaches the core") — a Request that fails Validate is
// never handed to the state store.
func (r Request) Validate(now time.Time) error {
	if !r.AlphaExpiry.After(r.BetaExpiry.Add(ledger.SafetyMargin)) {
		return ErrExpiryOrder
	}
	if !r.AlphaExpiry.After(now) || !r.BetaExpiry.After(now) {
		return ErrExpiryPast
	}
	if r.SecretHash == ([32]byte{}) {
		return ErrBadSecretHash
	}
	if !identityMatches(r.AlphaRefundIdentity, r.AlphaLedger) {
		return ErrBadIdentity
	}
	if !identityMatches(r.BetaRedeemIdentity, r.BetaLedger) {
		return ErrBadIdentity
	}
	if !assetMatchesLedger(r.AlphaAsset, r.AlphaLedger) || !r.AlphaAsset.Valid() {
		return ErrBadAsset
	}
	if !assetMatchesLedger(r.BetaAsset, r.BetaLedger) || !r.BetaAsset.Valid() {
		return ErrBadAsset
	}
	return nil
}

// Validate checks that the Accept's identities belong to the ledgers named
// by the corresponding Request.
func (a Accept) Validate(req Request) error {
	if !identityMatches(a.AlphaRedeemIdentity, req.AlphaLedger) {
		return ErrBadIdentity
	}
	if !identityMatches(a.BetaRefundIdentity, req.BetaLedger) {
		return ErrBadIdentity
	}
	return nil
}

// Equal reports whether two Accepts carry the same identities, used to
// implement idempotent re-acceptance.
func (a Accept) Equal(other Accept) bool {
	return a.SwapID == other.SwapID &&
		a.AlphaRedeemIdentity.Bytes() != nil &&
		string(a.AlphaRedeemIdentity.Bytes()) == string(other.AlphaRedeemIdentity.Bytes()) &&
		string(a.BetaRefundIdentity.Bytes()) == string(other.BetaRefundIdentity.Bytes())
}

func identityMatches(id ledger.Identity, k ledger.Kind) bool {
	if !id.Valid() {
		return false
	}
	switch k.Family {
	case ledger.FamilyBitcoin:
		return id.Family() == ledger.FamilyBitcoin
	case ledger.FamilyEthereum:
		return id.Family() == ledger.FamilyEthereum
	default:
		return false
	}
}

func assetMatchesLedger(a asset.Asset, k ledger.Kind) bool {
	switch k.Family {
	case ledger.FamilyBitcoin:
		return a.Type == asset.Bitcoin
	case ledger.FamilyEthereum:
		return a.Type == asset.Ether || a.Type == asset.Erc20
	default:
		return false
	}
}
