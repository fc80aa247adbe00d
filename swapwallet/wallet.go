// Package swapwallet bridges swapseed's raw per-swap key material to the
// ledger.Identity values the rest of the engine consumes, the one
// capability a concrete key-management backend must supply. Signing and
// broadcasting are out of scope — only identity/secret derivation is.
//
// Grounded on lnwallet/wallet.go's Config embedding a WalletController
// capability interface: the engine takes a Wallet the same way
// LightningWallet takes a WalletController, so a future hardware-backed or
// remote-signer implementation can replace DefaultWallet without touching
// daemon/engine.go.
package swapwallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/breez/swapd/ledger"
	"github.com/breez/swapd/swapseed"
)

// Wallet derives the identities and secret a swap needs from its seed,
// dispatching on ledger family.
type Wallet interface {
	// RefundIdentity derives the identity used to refund a leg on kind.
	RefundIdentity(seed swapseed.Seed, kind ledger.Kind) (ledger.Identity, error)
	// RedeemIdentity derives the identity used to redeem a leg on kind.
	RedeemIdentity(seed swapseed.Seed, kind ledger.Kind) (ledger.Identity, error)
	// Secret derives the HTLC preimage for seed. Only meaningful for
	// Alice's role; Bob's engine code never calls it.
	Secret(seed swapseed.Seed) swapseed.Secret
}

// DefaultWallet derives identities directly from swapseed's tagged
// sub-keys, with no external signer involved.
type DefaultWallet struct{}

var _ Wallet = DefaultWallet{}

// RefundIdentity implements Wallet.
func (DefaultWallet) RefundIdentity(seed swapseed.Seed, kind ledger.Kind) (ledger.Identity, error) {
	return identityFor(kind, seed.RefundKey())
}

// RedeemIdentity implements Wallet.
func (DefaultWallet) RedeemIdentity(seed swapseed.Seed, kind ledger.Kind) (ledger.Identity, error) {
	return identityFor(kind, seed.RedeemKey())
}

// Secret implements Wallet.
func (DefaultWallet) Secret(seed swapseed.Seed) swapseed.Secret {
	return seed.DeriveSecret()
}

func identityFor(kind ledger.Kind, priv *btcec.PrivateKey) (ledger.Identity, error) {
	switch {
	case kind.IsBitcoin():
		return ledger.NewBitcoinIdentity(priv.PubKey()), nil
	case kind.IsEthereum():
		ethPriv, err := crypto.ToECDSA(priv.Serialize())
		if err != nil {
			return ledger.Identity{}, fmt.Errorf("swapwallet: derive ethereum key: %w", err)
		}
		return ledger.NewEthereumIdentity(crypto.PubkeyToAddress(ethPriv.PublicKey)), nil
	default:
		return ledger.Identity{}, fmt.Errorf("swapwallet: unknown ledger family for %s", kind)
	}
}
