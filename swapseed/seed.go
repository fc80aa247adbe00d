// Package swapseed implements the per-swap deterministic seed derivation
// : a 32-byte root seed, derived per swap from a node root seed
// and the swap id, supporting tagged sub-derivation. All secret and identity
// material the engine ever uses flows through here, which is what makes
// restart-after-crash safe.
package swapseed

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/google/uuid"
)

// Tag selects which sub-secret is derived from a swap seed.
type Tag string

const (
	// TagRedeem derives the redeem identity's secret key.
	TagRedeem Tag = "REDEEM"
	// TagRefund derives the refund identity's secret key.
	TagRefund Tag = "REFUND"
	// TagSecret derives the HTLC preimage. Alice-only: Bob never calls
	// Derive(TagSecret) because he does not own the root seed's secret
	// derivation path for this swap — he learns the secret by observing
	// Alice's redeem.
	TagSecret Tag = "SECRET"
)

// Seed is a 32-byte per-swap root value.
type Seed [32]byte

// FromNodeSeed derives a swap seed from a node's root seed and the swap id:
// sha256(nodeSeed ∥ swapID).
func FromNodeSeed(nodeSeed [32]byte, swapID uuid.UUID) Seed {
	h := sha256.New()
	h.Write(nodeSeed[:])
	idBytes, _ := swapID.MarshalBinary()
	h.Write(idBytes)
	var out Seed
	copy(out[:], h.Sum(nil))
	return out
}

// Derive computes sha256(seed ∥ tag), the tagged sub-derivation the design
// defines: derive(tag) = sha256(seed ∥ tag).
func (s Seed) Derive(tag Tag) [32]byte {
	h := sha256.New()
	h.Write(s[:])
	h.Write([]byte(tag))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// RedeemKey derives the redeem identity's secp256k1 secret key.
func (s Seed) RedeemKey() *btcec.PrivateKey {
	raw := s.Derive(TagRedeem)
	priv, _ := btcec.PrivKeyFromBytes(raw[:])
	return priv
}

// RefundKey derives the refund identity's secp256k1 secret key.
func (s Seed) RefundKey() *btcec.PrivateKey {
	raw := s.Derive(TagRefund)
	priv, _ := btcec.PrivKeyFromBytes(raw[:])
	return priv
}

// Secret is the 32-byte HTLC preimage.
type Secret [32]byte

// Hash returns sha256(secret), the value published in Request.SecretHash.
func (s Secret) Hash() [32]byte {
	return sha256.Sum256(s[:])
}

// DeriveSecret derives the preimage for this swap. Only Alice's role calls
// this; Bob's state never holds a Seed capable of a meaningful TagSecret
// derivation for a swap he didn't initiate — enforced at the swap.Role
// layer, not here, since the tagged derivation itself is symmetric.
func (s Seed) DeriveSecret() Secret {
	return Secret(s.Derive(TagSecret))
}
