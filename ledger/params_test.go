package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReorgWindowPerLedger(t *testing.T) {
	require.Equal(t, uint32(1), BitcoinRegtest.ReorgWindow())
	require.Equal(t, uint32(6), BitcoinMainnet.ReorgWindow())
	require.Equal(t, uint32(12), Ethereum(1).ReorgWindow())
	require.Equal(t, uint32(4), Ethereum(1337).ReorgWindow())
}

func TestBlockPollIntervalIsClamped(t *testing.T) {
	require.Equal(t, 500*time.Millisecond, BitcoinRegtest.BlockPollInterval())
	require.Equal(t, 30*time.Second, BitcoinMainnet.BlockPollInterval())
	require.LessOrEqual(t, Ethereum(1).BlockPollInterval(), 30*time.Second)
}
