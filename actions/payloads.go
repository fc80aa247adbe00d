package actions

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/breez/swapd/ledger"
)

// SendToAddress is a Bitcoin-family deploy-and-fund payload: one output,
// one amount, one network (the design "Bitcoin fund: SendToAddress{address,
// amount, network}"). Bitcoin has no separate deploy action — the funding
// output itself creates the HTLC.
type SendToAddress struct {
	Address string
	Amount  int64
	Network string
}

// SpendOutput is a Bitcoin-family redeem/refund payload: the outpoint to
// spend, the script it commits to, the amount, and (for refund only) the
// locktime needed to satisfy CHECKLOCKTIMEVERIFY. No signature: this module
// never signs, the caller's wallet does.
type SpendOutput struct {
	Outpoint ledger.BitcoinOutpoint
	Script   []byte
	Amount   int64
	LockTime uint32
	// Secret is populated for the redeem branch only; nil selects the
	// refund branch's witness shape.
	Secret *[32]byte
}

// DeployContract is an Ethereum-family deploy payload: the init code to
// submit in a contract-creation transaction, plus the value to attach for
// Ether HTLCs (zero for ERC20, which funds via a separate CallContract).
type DeployContract struct {
	Bytecode []byte
	Value    *big.Int
	GasLimit uint64
	ChainID  *big.Int
}

// CallContract is an Ethereum-family fund/redeem/refund payload: a call to
// an already-located contract or token address. Data is empty for the
// refund branch and the 32-byte
// secret for redeem; for an ERC20 fund it is the ERC20 transfer(to, qty)
// calldata (see ledger.ERC20TransferCalldata).
type CallContract struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit uint64
	ChainID  *big.Int
}
