package ledger

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
)

// Identity is the per-ledger "who can spend this" value: a compressed
// secp256k1 public key for Bitcoin, a 20-byte address for Ethereum.
type Identity struct {
	family Family

	btcKey  *btcec.PublicKey
	ethAddr common.Address
}

// NewBitcoinIdentity wraps a compressed secp256k1 public key.
func NewBitcoinIdentity(key *btcec.PublicKey) Identity {
	return Identity{family: FamilyBitcoin, btcKey: key}
}

// NewEthereumIdentity wraps a 20-byte Ethereum address.
func NewEthereumIdentity(addr common.Address) Identity {
	return Identity{family: FamilyEthereum, ethAddr: addr}
}

// Family reports which ledger family this identity belongs to.
func (id Identity) Family() Family { return id.family }

// BitcoinKey returns the wrapped public key. It panics if this identity is
// not a Bitcoin identity; callers dispatch on Family() first.
func (id Identity) BitcoinKey() *btcec.PublicKey {
	if id.family != FamilyBitcoin {
		panic("ledger: BitcoinKey called on non-bitcoin identity")
	}
	return id.btcKey
}

// EthereumAddress returns the wrapped address. It panics if this identity is
// not an Ethereum identity; callers dispatch on Family() first.
func (id Identity) EthereumAddress() common.Address {
	if id.family != FamilyEthereum {
		panic("ledger: EthereumAddress called on non-ethereum identity")
	}
	return id.ethAddr
}

// Bytes renders the identity in its canonical wire form: 33-byte compressed
// pubkey for Bitcoin, 20-byte address for Ethereum.
func (id Identity) Bytes() []byte {
	switch id.family {
	case FamilyBitcoin:
		return id.btcKey.SerializeCompressed()
	case FamilyEthereum:
		return id.ethAddr.Bytes()
	default:
		return nil
	}
}

func (id Identity) String() string {
	switch id.family {
	case FamilyBitcoin:
		return hex.EncodeToString(id.Bytes())
	case FamilyEthereum:
		return id.ethAddr.Hex()
	default:
		return "invalid-identity"
	}
}

// Valid reports whether the identity carries the right underlying value for
// its family.
func (id Identity) Valid() bool {
	switch id.family {
	case FamilyBitcoin:
		return id.btcKey != nil
	case FamilyEthereum:
		return id.ethAddr != (common.Address{})
	default:
		return false
	}
}

// HtlcLocation is the per-ledger "where the HTLC lives" value: an outpoint
// for Bitcoin (the funding output carries both deploy and fund in one), a
// contract address for Ethereum.
type HtlcLocation struct {
	family Family

	btcOutpoint BitcoinOutpoint
	ethAddr     common.Address
}

// BitcoinOutpoint identifies a transaction output by txid and index.
type BitcoinOutpoint struct {
	Txid [32]byte
	Vout uint32
}

func (o BitcoinOutpoint) String() string {
	return fmt.Sprintf("%x:%d", o.Txid, o.Vout)
}

// NewBitcoinHtlcLocation wraps a funding outpoint.
func NewBitcoinHtlcLocation(op BitcoinOutpoint) HtlcLocation {
	return HtlcLocation{family: FamilyBitcoin, btcOutpoint: op}
}

// NewEthereumHtlcLocation wraps a deployed contract address.
func NewEthereumHtlcLocation(addr common.Address) HtlcLocation {
	return HtlcLocation{family: FamilyEthereum, ethAddr: addr}
}

// Family reports which ledger family this location belongs to.
func (l HtlcLocation) Family() Family { return l.family }

// BitcoinOutpoint returns the wrapped outpoint. Panics off-family.
func (l HtlcLocation) BitcoinOutpoint() BitcoinOutpoint {
	if l.family != FamilyBitcoin {
		panic("ledger: BitcoinOutpoint called on non-bitcoin location")
	}
	return l.btcOutpoint
}

// EthereumAddress returns the wrapped contract address. Panics off-family.
func (l HtlcLocation) EthereumAddress() common.Address {
	if l.family != FamilyEthereum {
		panic("ledger: EthereumAddress called on non-ethereum location")
	}
	return l.ethAddr
}

func (l HtlcLocation) String() string {
	switch l.family {
	case FamilyBitcoin:
		return l.btcOutpoint.String()
	case FamilyEthereum:
		return l.ethAddr.Hex()
	default:
		return "invalid-htlc-location"
	}
}

// Transaction is the per-ledger "a thing that happened on chain" value. The
// core never interprets transaction contents beyond what the watcher's
// pattern matchers extract; callers that need the raw bytes type-switch on
// Family and read BitcoinTx/EthereumTx.
type Transaction struct {
	family Family

	BitcoinTxid   [32]byte
	BitcoinRaw    []byte
	EthereumHash  common.Hash
	EthereumInput []byte
}

// NewBitcoinTransaction wraps a raw Bitcoin transaction and its txid.
func NewBitcoinTransaction(txid [32]byte, raw []byte) Transaction {
	return Transaction{family: FamilyBitcoin, BitcoinTxid: txid, BitcoinRaw: raw}
}

// NewEthereumTransaction wraps an Ethereum transaction hash and call input.
func NewEthereumTransaction(hash common.Hash, input []byte) Transaction {
	return Transaction{family: FamilyEthereum, EthereumHash: hash, EthereumInput: input}
}

// Family reports which ledger family this transaction belongs to.
func (t Transaction) Family() Family { return t.family }

func (t Transaction) String() string {
	switch t.family {
	case FamilyBitcoin:
		return hex.EncodeToString(t.BitcoinTxid[:])
	case FamilyEthereum:
		return t.EthereumHash.Hex()
	default:
		return "invalid-transaction"
	}
}
