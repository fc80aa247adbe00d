package ledger

import "github.com/btcsuite/btcd/chaincfg"

// BitcoinFundTarget is the address and amount a Bitcoin fund action sends
// to, derived purely from Params — the same script the watcher matches
// against (the design "Bitcoin fund: SendToAddress{address derived from the
// HTLC script, amount}"). Grounded on original_source/cnd/src/
// swap_protocols/rfc003/actions/bitcoin.rs's fund_action, reduced to a value
// builder since this module never signs or broadcasts.
func BitcoinFundTarget(params Params) (script []byte, address BitcoinHTLCAddressInfo, err error) {
	redeemKey := params.RedeemIdentity.BitcoinKey()
	refundKey := params.RefundIdentity.BitcoinKey()

	script, err = BitcoinHTLCScript(redeemKey, refundKey, params.SecretHash, params.Expiry.Unix())
	if err != nil {
		return nil, BitcoinHTLCAddressInfo{}, err
	}

	chainParams := ChainParamsFor(params.Ledger)
	addr, err := BitcoinHTLCAddress(script, chainParams)
	if err != nil {
		return nil, BitcoinHTLCAddressInfo{}, err
	}

	return script, BitcoinHTLCAddressInfo{Address: addr.EncodeAddress(), ChainParams: chainParams}, nil
}

// BitcoinHTLCAddressInfo names the address a Bitcoin fund action sends to.
type BitcoinHTLCAddressInfo struct {
	Address     string
	ChainParams *chaincfg.Params
}

// BitcoinSpendTarget describes everything actions/derive.go needs to build
// a SpendOutput for either the redeem or the refund branch: the located
// output, the HTLC script (both branches spend through the same script),
// and the nLockTime the refund branch needs. The secret that selects the
// redeem branch is not carried here. This package never signs; the
// signature slot is left for the caller's wallet.
type BitcoinSpendTarget struct {
	Outpoint BitcoinOutpoint
	Script   []byte
	Amount   int64
	// LockTime is the transaction nLockTime required to satisfy
	// OP_CHECKLOCKTIMEVERIFY on the refund branch; zero for redeem, which
	// spends via OP_IF unconditionally of locktime.
	LockTime uint32
}

// BitcoinRedeemTarget builds the spend target for the redeem branch: spends
// params.Asset.Sats (the expected amount) through the HTLC script's OP_IF
// branch. Grounded on actions/bitcoin.rs's redeem_action, which spends the
// full located output value; this module derives the amount from Params
// rather than re-parsing the raw fund transaction, documented as a
// simplification in DESIGN.md.
func BitcoinRedeemTarget(params Params, loc HtlcLocation, script []byte) BitcoinSpendTarget {
	return BitcoinSpendTarget{
		Outpoint: loc.BitcoinOutpoint(),
		Script:   script,
		Amount:   int64(params.Asset.Sats),
	}
}

// BitcoinRefundTarget builds the spend target for the refund branch: valid
// only once params.Expiry has passed, and requires LockTime == expiry to
// satisfy CHECKLOCKTIMEVERIFY.
func BitcoinRefundTarget(params Params, loc HtlcLocation, script []byte) BitcoinSpendTarget {
	return BitcoinSpendTarget{
		Outpoint: loc.BitcoinOutpoint(),
		Script:   script,
		Amount:   int64(params.Asset.Sats),
		LockTime: uint32(params.Expiry.Unix()),
	}
}
