package htlc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/breez/swapd/asset"
	"github.com/breez/swapd/ledger"
)

func TestAlphaParamsBobRedeemsAliceRefunds(t *testing.T) {
	aliceRefund := ledger.NewBitcoinIdentity(nil)
	bobRedeem := ledger.NewBitcoinIdentity(nil)
	expiry := time.Now().Add(time.Hour)
	secretHash := [32]byte{1}

	p := AlphaParams(ledger.BitcoinRegtest, asset.Asset{Type: asset.Bitcoin, Sats: 1000}, expiry, secretHash, aliceRefund, bobRedeem)

	require.Equal(t, bobRedeem, p.RedeemIdentity)
	require.Equal(t, aliceRefund, p.RefundIdentity)
	require.Equal(t, secretHash, p.SecretHash)
	require.Equal(t, expiry, p.Expiry)
}

func TestBetaParamsAliceRedeemsBobRefunds(t *testing.T) {
	aliceRedeem := ledger.NewBitcoinIdentity(nil)
	bobRefund := ledger.NewBitcoinIdentity(nil)
	expiry := time.Now().Add(time.Hour)
	secretHash := [32]byte{2}

	p := BetaParams(ledger.Ethereum(1337), asset.Asset{Type: asset.Ether}, expiry, secretHash, aliceRedeem, bobRefund)

	require.Equal(t, aliceRedeem, p.RedeemIdentity)
	require.Equal(t, bobRefund, p.RefundIdentity)
	require.Equal(t, secretHash, p.SecretHash)
}
