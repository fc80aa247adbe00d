package ledger

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcutil"
)

// BitcoinHTLCScript builds the redeem script for a Bitcoin HTLC:
//
//	OP_IF
//	    OP_SHA256 <secretHash> OP_EQUALVERIFY
//	    <redeemKey> OP_CHECKSIG
//	OP_ELSE
//	    <expiry> OP_CHECKLOCKTIMEVERIFY OP_DROP
//	    <refundKey> OP_CHECKSIG
//	OP_ENDIF
//
// Grounded on submarine/submarine.go's genSubmarineSwapScript, generalized
// from CSV-relative refund to an absolute expiry (CLTV), since expiry here
// is an absolute timestamp shared by both branches' watcher pattern, not a
// relative delay from funding.
func BitcoinHTLCScript(redeemKey, refundKey *btcec.PublicKey, secretHash [32]byte, expiry int64) ([]byte, error) {
	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_SHA256)
	builder.AddData(secretHash[:])
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddData(redeemKey.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(expiry)
	builder.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(refundKey.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ENDIF)

	return builder.Script()
}

// BitcoinHTLCAddress computes the P2WSH address the funding action sends to.
func BitcoinHTLCAddress(script []byte, params *chaincfg.Params) (btcutil.Address, error) {
	sum := sha256.Sum256(script)
	return btcutil.NewAddressWitnessScriptHash(sum[:], params)
}

// RedeemWitness builds the witness stack that spends an HTLC via the
// preimage branch: <sig> <secret> <TRUE> <script>.
func RedeemWitness(sig, secret, script []byte) [][]byte {
	return [][]byte{sig, secret, {1}, script}
}

// RefundWitness builds the witness stack that spends an HTLC via the
// timeout branch: <sig> <FALSE> <script>. The empty second element is the
// "empty preimage slot" the design uses to distinguish refund from redeem.
func RefundWitness(sig, script []byte) [][]byte {
	return [][]byte{sig, {}, script}
}

// ChainParamsFor returns the btcsuite chain parameters for a Bitcoin Kind.
func ChainParamsFor(k Kind) *chaincfg.Params {
	switch k.Network {
	case Mainnet:
		return &chaincfg.MainNetParams
	case Testnet:
		return &chaincfg.TestNet3Params
	case Regtest:
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.RegressionNetParams
	}
}
