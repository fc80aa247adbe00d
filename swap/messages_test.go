package swap

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/breez/swapd/asset"
	"github.com/breez/swapd/ledger"
)

func validRequest(t *testing.T, now time.Time) Request {
	redeemKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	refundKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	return Request{
		SwapID:              NewID(),
		AlphaLedger:         ledger.BitcoinRegtest,
		BetaLedger:          ledger.BitcoinRegtest,
		AlphaAsset:          asset.Asset{Type: asset.Bitcoin, Sats: 100000},
		BetaAsset:           asset.Asset{Type: asset.Bitcoin, Sats: 100000},
		AlphaExpiry:         now.Add(3 * time.Hour),
		BetaExpiry:          now.Add(time.Hour),
		SecretHash:          [32]byte{1, 2, 3},
		AlphaRefundIdentity: ledger.NewBitcoinIdentity(refundKey.PubKey()),
		BetaRedeemIdentity:  ledger.NewBitcoinIdentity(redeemKey.PubKey()),
	}
}

func TestRequestValidateAccepts(t *testing.T) {
	now := time.Now()
	require.NoError(t, validRequest(t, now).Validate(now))
}

func TestRequestValidateRejectsInsufficientSafetyMargin(t *testing.T) {
	now := time.Now()
	req := validRequest(t, now)
	req.AlphaExpiry = req.BetaExpiry.Add(time.Minute)
	require.ErrorIs(t, req.Validate(now), ErrExpiryOrder)
}

func TestRequestValidateRejectsPastExpiry(t *testing.T) {
	now := time.Now()
	req := validRequest(t, now)
	req.AlphaExpiry = now.Add(-time.Minute)
	req.BetaExpiry = now.Add(-2 * time.Hour)
	require.ErrorIs(t, req.Validate(now), ErrExpiryPast)
}

func TestRequestValidateRejectsZeroSecretHash(t *testing.T) {
	now := time.Now()
	req := validRequest(t, now)
	req.SecretHash = [32]byte{}
	require.ErrorIs(t, req.Validate(now), ErrBadSecretHash)
}

func TestRequestValidateRejectsMismatchedIdentityFamily(t *testing.T) {
	now := time.Now()
	req := validRequest(t, now)
	req.BetaLedger = ledger.Ethereum(1337)
	// BetaRedeemIdentity is still a Bitcoin identity; the ledger is now
	// Ethereum, so the families no longer match.
	require.ErrorIs(t, req.Validate(now), ErrBadIdentity)
}

func TestRequestValidateRejectsAssetLedgerMismatch(t *testing.T) {
	now := time.Now()
	req := validRequest(t, now)
	req.AlphaAsset = asset.Asset{Type: asset.Ether}
	require.ErrorIs(t, req.Validate(now), ErrBadAsset)
}

func TestAcceptValidate(t *testing.T) {
	now := time.Now()
	req := validRequest(t, now)

	redeemKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	refundKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	accept := Accept{
		SwapID:              req.SwapID,
		AlphaRedeemIdentity: ledger.NewBitcoinIdentity(redeemKey.PubKey()),
		BetaRefundIdentity:  ledger.NewBitcoinIdentity(refundKey.PubKey()),
	}
	require.NoError(t, accept.Validate(req))
}

func TestAcceptEqual(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	id := ledger.NewBitcoinIdentity(key.PubKey())

	swapID := NewID()
	a := Accept{SwapID: swapID, AlphaRedeemIdentity: id, BetaRefundIdentity: id}
	b := Accept{SwapID: swapID, AlphaRedeemIdentity: id, BetaRefundIdentity: id}
	require.True(t, a.Equal(b))

	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	c := Accept{SwapID: swapID, AlphaRedeemIdentity: ledger.NewBitcoinIdentity(other.PubKey()), BetaRefundIdentity: id}
	require.False(t, a.Equal(c))
}
