package ethereumwatch

import (
	"context"
	"crypto/sha256"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/breez/swapd/asset"
	"github.com/breez/swapd/chainntnfs"
	"github.com/breez/swapd/htlc"
	"github.com/breez/swapd/ledger"
	"github.com/breez/swapd/swapseed"
)

type fakeConnector struct {
	receipts map[common.Hash]*types.Receipt
}

func (f fakeConnector) LatestBlock(context.Context) (Block, error)              { return Block{}, nil }
func (f fakeConnector) BlockByHash(context.Context, common.Hash) (Block, error) { return Block{}, nil }
func (f fakeConnector) ReceiptByHash(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	return f.receipts[hash], nil
}

func testParams(expiry time.Time) htlc.Params {
	redeemAddr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	refundAddr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	return htlc.Params{
		Ledger:         ledger.Ethereum(1337),
		Asset:          asset.Asset{Type: asset.Ether, Wei: uint256.NewInt(1000)},
		RedeemIdentity: ledger.NewEthereumIdentity(redeemAddr),
		RefundIdentity: ledger.NewEthereumIdentity(refundAddr),
		Expiry:         expiry,
		SecretHash:     [32]byte{9, 9, 9},
	}
}

func deployTx(bytecode []byte, value *big.Int) *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce: 0,
		Value: value,
		Gas:   1_000_000,
		Data:  bytecode,
	})
}

func newTestWatcher(t *testing.T, bytecode []byte, expiry time.Time) (*Watcher, chan chainntnfs.Event, common.Hash, *fakeConnector) {
	params := testParams(expiry)
	sink := make(chan chainntnfs.Event, 8)
	bytecodeHash := sha256.Sum256(bytecode)
	conn := &fakeConnector{receipts: map[common.Hash]*types.Receipt{}}
	w := New(conn, params, bytecodeHash, chainntnfs.Beta, sink, time.Now(), nil)
	return w, sink, bytecodeHash, conn
}

func TestProcessBlockDeploysAndFundsEther(t *testing.T) {
	bytecode := []byte("htlc-bytecode")
	w, sink, _, conn := newTestWatcher(t, bytecode, time.Now().Add(time.Hour))

	contractAddr := common.HexToAddress("0x3333333333333333333333333333333333333333")
	tx := deployTx(bytecode, big.NewInt(1000))
	conn.receipts[tx.Hash()] = &types.Receipt{ContractAddress: contractAddr}

	done, err := w.processBlock(context.Background(), Block{Txs: []*types.Transaction{tx}})
	require.NoError(t, err)
	require.False(t, done)
	require.NotNil(t, w.located)
	require.Equal(t, contractAddr, *w.located)

	deployed := <-sink
	require.Equal(t, chainntnfs.EventDeployed, deployed.Kind)
	funded := <-sink
	require.Equal(t, chainntnfs.EventFunded, funded.Kind)
}

func TestProcessBlockUnderfundedEtherIsIncorrectlyFunded(t *testing.T) {
	bytecode := []byte("htlc-bytecode")
	w, sink, _, conn := newTestWatcher(t, bytecode, time.Now().Add(time.Hour))

	contractAddr := common.HexToAddress("0x4444444444444444444444444444444444444444")
	tx := deployTx(bytecode, big.NewInt(1))
	conn.receipts[tx.Hash()] = &types.Receipt{ContractAddress: contractAddr}

	_, err := w.processBlock(context.Background(), Block{Txs: []*types.Transaction{tx}})
	require.NoError(t, err)

	<-sink // deployed
	funded := <-sink
	require.Equal(t, chainntnfs.EventIncorrectlyFunded, funded.Kind)
}

func TestProcessBlockIgnoresNonMatchingBytecode(t *testing.T) {
	bytecode := []byte("htlc-bytecode")
	w, _, _, _ := newTestWatcher(t, bytecode, time.Now().Add(time.Hour))

	tx := deployTx([]byte("unrelated-bytecode"), big.NewInt(1000))
	done, err := w.processBlock(context.Background(), Block{Txs: []*types.Transaction{tx}})
	require.NoError(t, err)
	require.False(t, done)
	require.Nil(t, w.located)
}

func TestResumeForcesHistoricalScanFirst(t *testing.T) {
	w, _, _, _ := newTestWatcher(t, []byte("htlc-bytecode"), time.Now().Add(time.Hour))
	require.False(t, w.resume)
	w.Resume()
	require.True(t, w.resume)
}

func testErc20Params(expiry time.Time, contract common.Address) htlc.Params {
	redeemAddr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	refundAddr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	return htlc.Params{
		Ledger:         ledger.Ethereum(1337),
		Asset:          asset.NewErc20(contract, uint256.NewInt(1000)),
		RedeemIdentity: ledger.NewEthereumIdentity(redeemAddr),
		RefundIdentity: ledger.NewEthereumIdentity(refundAddr),
		Expiry:         expiry,
		SecretHash:     [32]byte{9, 9, 9},
	}
}

func callTx(to common.Address, data []byte) *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce: 1,
		To:    &to,
		Gas:   100_000,
		Data:  data,
	})
}

// addressTopic zero-pads addr into a 32-byte log topic, the shape an
// indexed ERC20 Transfer argument takes.
func addressTopic(addr common.Address) common.Hash {
	var h common.Hash
	copy(h[12:], addr.Bytes())
	return h
}

func TestProcessBlockErc20TransferFundsHtlc(t *testing.T) {
	bytecode := []byte("erc20-htlc-bytecode")
	bytecodeHash := sha256.Sum256(bytecode)
	contract := common.HexToAddress("0x6666666666666666666666666666666666666666")
	params := testErc20Params(time.Now().Add(time.Hour), contract)

	sink := make(chan chainntnfs.Event, 8)
	conn := &fakeConnector{receipts: map[common.Hash]*types.Receipt{}}
	w := New(conn, params, bytecodeHash, chainntnfs.Alpha, sink, time.Now(), nil)

	contractAddr := common.HexToAddress("0x7777777777777777777777777777777777777777")
	deploy := deployTx(bytecode, big.NewInt(0))
	conn.receipts[deploy.Hash()] = &types.Receipt{ContractAddress: contractAddr}

	done, err := w.processBlock(context.Background(), Block{Txs: []*types.Transaction{deploy}})
	require.NoError(t, err)
	require.False(t, done)
	require.False(t, w.funded) // Erc20 HTLCs are never funded at deploy

	deployed := <-sink
	require.Equal(t, chainntnfs.EventDeployed, deployed.Kind)

	transferTx := callTx(contract, nil)
	qty := uint256.NewInt(1000).Bytes32()
	conn.receipts[transferTx.Hash()] = &types.Receipt{
		Logs: []*types.Log{{
			Topics: []common.Hash{
				erc20TransferTopic,
				addressTopic(common.HexToAddress("0x8888888888888888888888888888888888888888")),
				addressTopic(contractAddr),
			},
			Data: qty[:],
		}},
	}

	done, err = w.processBlock(context.Background(), Block{Txs: []*types.Transaction{transferTx}})
	require.NoError(t, err)
	require.False(t, done)
	require.True(t, w.funded)

	funded := <-sink
	require.Equal(t, chainntnfs.EventFunded, funded.Kind)
}

func TestProcessBlockValidRedeemEmitsSecret(t *testing.T) {
	bytecode := []byte("htlc-bytecode")
	w, sink, _, conn := newTestWatcher(t, bytecode, time.Now().Add(time.Hour))

	contractAddr := common.HexToAddress("0x9999999999999999999999999999999999999999")
	deploy := deployTx(bytecode, big.NewInt(1000))
	conn.receipts[deploy.Hash()] = &types.Receipt{ContractAddress: contractAddr}

	_, err := w.processBlock(context.Background(), Block{Txs: []*types.Transaction{deploy}})
	require.NoError(t, err)
	<-sink // deployed
	<-sink // funded

	var secret swapseed.Secret
	secret[0] = 0xAB
	w.params.SecretHash = secret.Hash()

	redeemTx := callTx(contractAddr, secret[:])
	done, err := w.processBlock(context.Background(), Block{Txs: []*types.Transaction{redeemTx}})
	require.NoError(t, err)
	require.True(t, done)

	redeemed := <-sink
	require.Equal(t, chainntnfs.EventRedeemed, redeemed.Kind)
	require.Equal(t, secret, redeemed.Secret)
}

func TestProcessBlockRefundAfterExpiryIsTerminal(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	bytecode := []byte("htlc-bytecode")
	w, sink, _, conn := newTestWatcher(t, bytecode, expiry)

	contractAddr := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	deploy := deployTx(bytecode, big.NewInt(1000))
	conn.receipts[deploy.Hash()] = &types.Receipt{ContractAddress: contractAddr}

	_, err := w.processBlock(context.Background(), Block{Txs: []*types.Transaction{deploy}})
	require.NoError(t, err)
	<-sink // deployed
	<-sink // funded

	refundTx := callTx(contractAddr, nil)
	done, err := w.processBlock(context.Background(), Block{
		Txs: []*types.Transaction{refundTx},
	})
	require.NoError(t, err)
	require.False(t, done) // block timestamp still before expiry

	block := Block{Txs: []*types.Transaction{refundTx}, Timestamp: expiry.Add(time.Minute)}
	done, err = w.processBlock(context.Background(), block)
	require.NoError(t, err)
	require.True(t, done)

	refunded := <-sink
	require.Equal(t, chainntnfs.EventRefunded, refunded.Kind)
}
