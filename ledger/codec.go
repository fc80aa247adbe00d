package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
)

// EncodeKind renders a Kind as a fixed-width packed value for durable
// storage, following submarine/submarine.go's netID-byte-prefix style:
// family tag, then network or chain ID depending on family.
func EncodeKind(k Kind) []byte {
	out := make([]byte, 10)
	out[0] = byte(k.Family)
	switch k.Family {
	case FamilyBitcoin:
		out[1] = byte(k.Network)
	case FamilyEthereum:
		binary.BigEndian.PutUint64(out[2:10], k.ChainID)
	}
	return out
}

// DecodeKind is the inverse of EncodeKind.
func DecodeKind(b []byte) (Kind, error) {
	if len(b) != 10 {
		return Kind{}, fmt.Errorf("ledger: bad encoded kind length %d", len(b))
	}
	k := Kind{Family: Family(b[0])}
	switch k.Family {
	case FamilyBitcoin:
		k.Network = Network(b[1])
	case FamilyEthereum:
		k.ChainID = binary.BigEndian.Uint64(b[2:10])
	default:
		return Kind{}, fmt.Errorf("ledger: unknown family tag %d", b[0])
	}
	return k, nil
}

// EncodeIdentity renders an Identity as a family tag followed by its
// canonical bytes (33-byte compressed pubkey, or 20-byte address).
func EncodeIdentity(id Identity) []byte {
	out := make([]byte, 1+len(id.Bytes()))
	out[0] = byte(id.family)
	copy(out[1:], id.Bytes())
	return out
}

// DecodeIdentity is the inverse of EncodeIdentity.
func DecodeIdentity(b []byte) (Identity, error) {
	if len(b) == 0 {
		return Identity{}, fmt.Errorf("ledger: empty encoded identity")
	}
	family := Family(b[0])
	payload := b[1:]
	switch family {
	case FamilyBitcoin:
		key, err := btcec.ParsePubKey(payload)
		if err != nil {
			return Identity{}, fmt.Errorf("ledger: decode bitcoin identity: %w", err)
		}
		return NewBitcoinIdentity(key), nil
	case FamilyEthereum:
		if len(payload) != 20 {
			return Identity{}, fmt.Errorf("ledger: bad ethereum identity length %d", len(payload))
		}
		return NewEthereumIdentity(common.BytesToAddress(payload)), nil
	default:
		return Identity{}, fmt.Errorf("ledger: unknown identity family tag %d", b[0])
	}
}
