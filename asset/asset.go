// Package asset defines the closed set of asset kinds a swap can move:
// Bitcoin (satoshis), Ether (wei) and ERC20 tokens (contract + quantity).
package asset

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Type discriminates the closed asset-kind variant.
type Type uint8

const (
	// Invalid is the zero value; a valid Asset always has Type != Invalid.
	Invalid Type = iota
	Bitcoin
	Ether
	Erc20
)

func (t Type) String() string {
	switch t {
	case Bitcoin:
		return "bitcoin"
	case Ether:
		return "ether"
	case Erc20:
		return "erc20"
	default:
		return "invalid"
	}
}

// Asset is a value-typed description of the quantity of value moved on one
// side of a swap. Exactly one of the Amount/Quantity fields is meaningful,
// selected by Type.
type Asset struct {
	Type Type

	// Sats is populated when Type == Bitcoin.
	Sats btcutil.Amount

	// Wei is populated when Type == Ether or Type == Erc20 (token quantity).
	Wei *uint256.Int

	// Contract is populated when Type == Erc20.
	Contract common.Address
}

// NewBitcoin constructs a Bitcoin asset from a satoshi amount.
func NewBitcoin(sats int64) Asset {
	return Asset{Type: Bitcoin, Sats: btcutil.Amount(sats)}
}

// NewEther constructs an Ether asset from a wei quantity.
func NewEther(wei *uint256.Int) Asset {
	return Asset{Type: Ether, Wei: wei}
}

// NewErc20 constructs an ERC20 asset from a contract address and quantity.
func NewErc20(contract common.Address, quantity *uint256.Int) Asset {
	return Asset{Type: Erc20, Contract: contract, Wei: quantity}
}

// Valid reports whether the asset is a well-formed member of one of the
// three variants.
func (a Asset) Valid() bool {
	switch a.Type {
	case Bitcoin:
		return a.Sats > 0
	case Ether:
		return a.Wei != nil && !a.Wei.IsZero()
	case Erc20:
		return a.Wei != nil && !a.Wei.IsZero() && a.Contract != (common.Address{})
	default:
		return false
	}
}

// Compare compares the quantity of two assets of the same Type using integer
// arithmetic. It panics
// if the two assets are of different Type, since that comparison is never
// meaningful — callers always compare delivered-vs-expected for one side of
// one swap leg.
func (a Asset) Compare(b Asset) int {
	if a.Type != b.Type {
		panic(fmt.Sprintf("asset: cannot compare %s with %s", a.Type, b.Type))
	}
	switch a.Type {
	case Bitcoin:
		switch {
		case a.Sats < b.Sats:
			return -1
		case a.Sats > b.Sats:
			return 1
		default:
			return 0
		}
	case Ether, Erc20:
		return a.Wei.Cmp(b.Wei)
	default:
		panic("asset: comparing invalid assets")
	}
}

// String renders the asset for logging/diagnostics only; the HTTP surface
// renders amounts itself (decimal integers, never this format).
func (a Asset) String() string {
	switch a.Type {
	case Bitcoin:
		return fmt.Sprintf("%d sats", int64(a.Sats))
	case Ether:
		return fmt.Sprintf("%s wei", a.Wei.Dec())
	case Erc20:
		return fmt.Sprintf("%s of %s", a.Wei.Dec(), a.Contract.Hex())
	default:
		return "invalid asset"
	}
}
