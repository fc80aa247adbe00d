package asset

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestAssetValid(t *testing.T) {
	require.True(t, NewBitcoin(1).Valid())
	require.False(t, NewBitcoin(0).Valid())

	require.True(t, NewEther(uint256.NewInt(1)).Valid())
	require.False(t, NewEther(uint256.NewInt(0)).Valid())
	require.False(t, Asset{Type: Ether}.Valid())

	contract := common.HexToAddress("0x1111111111111111111111111111111111111111")
	require.True(t, NewErc20(contract, uint256.NewInt(1)).Valid())
	require.False(t, NewErc20(common.Address{}, uint256.NewInt(1)).Valid())
	require.False(t, NewErc20(contract, uint256.NewInt(0)).Valid())

	require.False(t, Asset{}.Valid())
}

func TestAssetCompare(t *testing.T) {
	require.Equal(t, -1, NewBitcoin(1).Compare(NewBitcoin(2)))
	require.Equal(t, 1, NewBitcoin(2).Compare(NewBitcoin(1)))
	require.Equal(t, 0, NewBitcoin(5).Compare(NewBitcoin(5)))

	require.Equal(t, -1, NewEther(uint256.NewInt(1)).Compare(NewEther(uint256.NewInt(2))))
}

func TestAssetCompareDifferentTypesPanics(t *testing.T) {
	require.Panics(t, func() {
		NewBitcoin(1).Compare(NewEther(uint256.NewInt(1)))
	})
}
