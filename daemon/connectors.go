package daemon

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/breez/swapd/chainntnfs/bitcoinwatch"
	"github.com/breez/swapd/chainntnfs/ethereumwatch"
)

// bitcoinConnector implements bitcoinwatch.Connector over a btcd/bitcoind
// RPC endpoint. Grounded on daemon/chainregistry.go's pattern of opening one
// long-lived rpcclient.Client per configured chain backend.
type bitcoinConnector struct {
	client *rpcclient.Client
}

func newBitcoinConnector(cfg BitcoinConfig) (*bitcoinConnector, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.RPCHost,
		User:         cfg.RPCUser,
		Pass:         cfg.RPCPass,
		HTTPPostMode: true,
		DisableTLS:   cfg.RPCCert == "",
	}
	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, err
	}
	return &bitcoinConnector{client: client}, nil
}

func (c *bitcoinConnector) LatestBlock(ctx context.Context) (bitcoinwatch.Block, error) {
	height, err := c.client.GetBlockCount()
	if err != nil {
		return bitcoinwatch.Block{}, err
	}
	hash, err := c.client.GetBlockHash(height)
	if err != nil {
		return bitcoinwatch.Block{}, err
	}
	return c.BlockByHash(ctx, *hash)
}

func (c *bitcoinConnector) BlockByHash(ctx context.Context, hash chainhash.Hash) (bitcoinwatch.Block, error) {
	block, err := c.client.GetBlock(&hash)
	if err != nil {
		return bitcoinwatch.Block{}, err
	}
	header, err := c.client.GetBlockHeaderVerbose(&hash)
	if err != nil {
		return bitcoinwatch.Block{}, err
	}
	return bitcoinwatch.Block{
		Hash:       hash,
		ParentHash: block.Header.PrevBlock,
		Height:     uint64(header.Height),
		Timestamp:  time.Unix(block.Header.Timestamp.Unix(), 0),
		Txs:        transactionsOf(block),
	}, nil
}

func transactionsOf(block *wire.MsgBlock) []*wire.MsgTx {
	return block.Transactions
}

// ethereumConnector implements ethereumwatch.Connector over a go-ethereum
// JSON-RPC endpoint.
type ethereumConnector struct {
	client *ethclient.Client
}

func newEthereumConnector(cfg EthereumConfig) (*ethereumConnector, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, err
	}
	return &ethereumConnector{client: client}, nil
}

func (c *ethereumConnector) LatestBlock(ctx context.Context) (ethereumwatch.Block, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return ethereumwatch.Block{}, err
	}
	return c.blockFromHeader(ctx, header)
}

func (c *ethereumConnector) BlockByHash(ctx context.Context, hash common.Hash) (ethereumwatch.Block, error) {
	header, err := c.client.HeaderByHash(ctx, hash)
	if err != nil {
		return ethereumwatch.Block{}, err
	}
	return c.blockFromHeader(ctx, header)
}

func (c *ethereumConnector) blockFromHeader(ctx context.Context, header *types.Header) (ethereumwatch.Block, error) {
	block, err := c.client.BlockByHash(ctx, header.Hash())
	if err != nil {
		return ethereumwatch.Block{}, err
	}

	return ethereumwatch.Block{
		Hash:       header.Hash(),
		ParentHash: header.ParentHash,
		Height:     header.Number.Uint64(),
		Timestamp:  time.Unix(int64(header.Time), 0),
		Txs:        block.Transactions(),
	}, nil
}

// ReceiptByHash implements ethereumwatch.Connector's per-transaction
// receipt fetch, used to inspect logs for ERC20 Transfer events and
// contract-creation addresses.
func (c *ethereumConnector) ReceiptByHash(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.client.TransactionReceipt(ctx, txHash)
}
