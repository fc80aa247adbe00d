package asset

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Encode renders an Asset as a packed value for durable storage: a type
// tag followed by the fixed-width fields that type needs, following
// submarine/submarine.go's byte-prefix-then-fixed-fields packing style.
func Encode(a Asset) []byte {
	switch a.Type {
	case Bitcoin:
		out := make([]byte, 9)
		out[0] = byte(Bitcoin)
		binary.BigEndian.PutUint64(out[1:9], uint64(a.Sats))
		return out
	case Ether:
		out := make([]byte, 1+32)
		out[0] = byte(Ether)
		wei := a.Wei.Bytes32()
		copy(out[1:], wei[:])
		return out
	case Erc20:
		out := make([]byte, 1+32+20)
		out[0] = byte(Erc20)
		wei := a.Wei.Bytes32()
		copy(out[1:33], wei[:])
		copy(out[33:], a.Contract.Bytes())
		return out
	default:
		return []byte{byte(Invalid)}
	}
}

// Decode is the inverse of Encode.
func Decode(b []byte) (Asset, error) {
	if len(b) == 0 {
		return Asset{}, fmt.Errorf("asset: empty encoded asset")
	}
	switch Type(b[0]) {
	case Bitcoin:
		if len(b) != 9 {
			return Asset{}, fmt.Errorf("asset: bad bitcoin asset length %d", len(b))
		}
		return NewBitcoin(int64(binary.BigEndian.Uint64(b[1:9]))), nil
	case Ether:
		if len(b) != 33 {
			return Asset{}, fmt.Errorf("asset: bad ether asset length %d", len(b))
		}
		var wei [32]byte
		copy(wei[:], b[1:33])
		return NewEther(new(uint256.Int).SetBytes32(wei[:])), nil
	case Erc20:
		if len(b) != 53 {
			return Asset{}, fmt.Errorf("asset: bad erc20 asset length %d", len(b))
		}
		var wei [32]byte
		copy(wei[:], b[1:33])
		contract := common.BytesToAddress(b[33:53])
		return NewErc20(contract, new(uint256.Int).SetBytes32(wei[:])), nil
	default:
		return Asset{}, fmt.Errorf("asset: unknown type tag %d", b[0])
	}
}
