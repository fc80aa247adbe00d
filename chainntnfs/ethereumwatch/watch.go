// Package ethereumwatch implements the Ethereum-family chain watcher from
// the design: deploy and fund are two steps (contract creation, then value
// transfer), redeem extracts the secret from call data, refund is gated on
// block timestamp rather than a witness shape.
//
// Grounded on chainntnfs/bitcoinwatch/watch.go's poll/dispatch loop, adapted
// from inline-witness pattern matching to log/receipt inspection the way
// other_examples' klingdex secret_monitor.go and htlc-client.go watch
// KlingonHTLC's SwapCreated/SwapClaimed/SwapRefunded events.
package ethereumwatch

import (
	"context"
	"crypto/sha256"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/breez/swapd/asset"
	"github.com/breez/swapd/chainntnfs"
	"github.com/breez/swapd/htlc"
	"github.com/breez/swapd/ledger"
	"github.com/breez/swapd/swapseed"
)

// erc20TransferTopic is keccak256("Transfer(address,address,uint256)").
var erc20TransferTopic = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

// Block is the Ethereum view of connector contract: transactions
// are present, but logs live in receipts and must be fetched per-tx.
type Block struct {
	Hash       common.Hash
	ParentHash common.Hash
	Height     uint64
	Timestamp  time.Time
	Txs        []*types.Transaction
}

// Connector is the Ethereum-family ledger connector.
type Connector interface {
	LatestBlock(ctx context.Context) (Block, error)
	BlockByHash(ctx context.Context, hash common.Hash) (Block, error)
	ReceiptByHash(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type headerSource struct{ c Connector }

func (h headerSource) LatestBlock(ctx context.Context) (chainntnfs.BlockHeader, error) {
	b, err := h.c.LatestBlock(ctx)
	if err != nil {
		return chainntnfs.BlockHeader{}, err
	}
	return toHeader(b), nil
}

func (h headerSource) BlockByHash(ctx context.Context, hash [32]byte) (chainntnfs.BlockHeader, error) {
	b, err := h.c.BlockByHash(ctx, common.Hash(hash))
	if err != nil {
		return chainntnfs.BlockHeader{}, err
	}
	return toHeader(b), nil
}

func toHeader(b Block) chainntnfs.BlockHeader {
	return chainntnfs.BlockHeader{
		Hash:       b.Hash,
		ParentHash: b.ParentHash,
		Height:     b.Height,
		Timestamp:  b.Timestamp,
	}
}

// Watcher watches one Ethereum-family HTLC to completion, emitting
// chainntnfs.Events on Sink in the order the design requires.
type Watcher struct {
	conn   Connector
	params htlc.Params
	leg    chainntnfs.Leg
	sink   chainntnfs.Sink

	bytecodeHash [32]byte // expected HTLC deployment bytecode hash

	walker      *chainntnfs.FrontierWalker
	ticker      chainntnfs.Ticker
	startOfSwap time.Time

	located  *common.Address
	deployTx ledger.Transaction
	funded   bool
	resume   bool
}

// Resume marks the watcher as having been constructed for a swap already
// known to the durable store: Run performs one historical scan
// from startOfSwap before settling into its normal poll loop.
func (w *Watcher) Resume() {
	w.resume = true
}

// New constructs a Watcher for the given HTLC params. bytecodeHash is the
// expected hash of the HTLC contract's deployment bytecode (the design
// "Deploy pattern": "a contract-creation transaction whose deployment
// bytecode hashes to the expected HTLC bytecode").
func New(conn Connector, params htlc.Params, bytecodeHash [32]byte, leg chainntnfs.Leg, sink chainntnfs.Sink, startOfSwap time.Time, ticker chainntnfs.Ticker) *Watcher {
	return &Watcher{
		conn:         conn,
		params:       params,
		leg:          leg,
		sink:         sink,
		bytecodeHash: bytecodeHash,
		walker:       chainntnfs.NewFrontierWalker(headerSource{conn}, params.Ledger.ReorgWindow(), startOfSwap),
		ticker:       ticker,
		startOfSwap:  startOfSwap,
		// Ether HTLCs fund at deploy; ERC20
		// funding is a separate Transfer log observed after deploy.
		funded: params.Asset.Type == asset.Ether,
	}
}

// Run drives the watcher until ctx is cancelled or a terminal event
// (Redeemed/Refunded) has been emitted; it keeps watching after
// IncorrectlyFunded so the later refund is still observed.
func (w *Watcher) Run(ctx context.Context) error {
	if w.resume {
		w.resume = false
		if err := w.historicalScan(ctx); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.ticker.Ticks():
		}

		var blocks []chainntnfs.BlockHeader
		err := chainntnfs.WithRetry(ctx, func(callCtx context.Context) error {
			var e error
			blocks, e = w.walker.Advance(callCtx)
			return e
		})
		if err == chainntnfs.ErrCatastrophicGap {
			if err := w.historicalScan(ctx); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		for _, hdr := range blocks {
			block, err := w.conn.BlockByHash(ctx, common.Hash(hdr.Hash))
			if err != nil {
				return err
			}
			done, err := w.processBlock(ctx, block)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

func (w *Watcher) historicalScan(ctx context.Context) error {
	tip, err := w.conn.LatestBlock(ctx)
	if err != nil {
		return err
	}

	var chain []Block
	cur := tip
	for cur.Timestamp.After(w.walkerStartBoundary()) {
		chain = append([]Block{cur}, chain...)
		if cur.Height == 0 {
			break
		}
		parent, err := w.conn.BlockByHash(ctx, cur.ParentHash)
		if err != nil {
			return err
		}
		cur = parent
	}
	chain = append([]Block{cur}, chain...)

	for _, block := range chain {
		done, err := w.processBlock(ctx, block)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	w.walker.Rewind(toHeader(tip))
	return nil
}

func (w *Watcher) walkerStartBoundary() time.Time {
	return w.startOfSwap.Add(-reorgWindowMargin(w.params.Ledger))
}

func reorgWindowMargin(k ledger.Kind) time.Duration {
	return k.BlockInterval() * time.Duration(k.ReorgWindow())
}

// processBlock matches the active pattern against block's transactions in
// ascending tx-index order, returning true once a terminal event has fired.
func (w *Watcher) processBlock(ctx context.Context, block Block) (bool, error) {
	hdr := toHeader(block)

	if w.located == nil {
		for _, tx := range block.Txs {
			if tx.To() != nil {
				continue // not a contract creation
			}
			if sha256.Sum256(tx.Data()) != w.bytecodeHash {
				continue
			}

			receipt, err := w.conn.ReceiptByHash(ctx, tx.Hash())
			if err != nil {
				return false, err
			}
			contractAddr := receipt.ContractAddress

			loc := ledger.NewEthereumHtlcLocation(contractAddr)
			w.deployTx = ledger.NewEthereumTransaction(tx.Hash(), tx.Data())
			w.located = &contractAddr

			w.emit(chainntnfs.Event{
				Leg: w.leg, Kind: chainntnfs.EventDeployed,
				HtlcLocation: loc, DeployTx: w.deployTx, ObservedAt: hdr,
			})

			if w.funded {
				// Ether HTLC: deploy carries funding via tx.Value(). Even
				// if insufficient, the contract is still callable; keep
				// watching it below for the eventual refund.
				w.emitFundOutcome(loc, w.deployTx, tx.Value(), hdr)
			}
			break
		}
		if w.located == nil {
			return false, nil
		}
	}

	if !w.funded {
		if done, err := w.scanForErc20Fund(ctx, block, hdr); err != nil || done {
			return done, err
		}
		return false, nil
	}

	// HTLC is funded; watch for the call that redeems or refunds it.
	for _, tx := range block.Txs {
		if tx.To() == nil || *tx.To() != *w.located {
			continue
		}

		data := tx.Data()
		if len(data) == 32 {
			var secret swapseed.Secret
			copy(secret[:], data)
			if secret.Hash() != w.params.SecretHash {
				continue // does not validate; not our redeem
			}
			w.emit(chainntnfs.Event{
				Leg: w.leg, Kind: chainntnfs.EventRedeemed,
				HtlcLocation: ledger.NewEthereumHtlcLocation(*w.located),
				RedeemTx:     ledger.NewEthereumTransaction(tx.Hash(), data),
				Secret:       secret,
				ObservedAt:   hdr,
			})
			return true, nil
		}

		if len(data) == 0 && !hdr.Timestamp.Before(w.params.Expiry) {
			w.emit(chainntnfs.Event{
				Leg: w.leg, Kind: chainntnfs.EventRefunded,
				HtlcLocation: ledger.NewEthereumHtlcLocation(*w.located),
				RefundTx:     ledger.NewEthereumTransaction(tx.Hash(), data),
				ObservedAt:   hdr,
			})
			return true, nil
		}
	}

	return false, nil
}

// scanForErc20Fund looks for the ERC20 Transfer log that funds an ERC20
// HTLC: any Transfer event with to == contract address.
func (w *Watcher) scanForErc20Fund(ctx context.Context, block Block, hdr chainntnfs.BlockHeader) (bool, error) {
	for _, tx := range block.Txs {
		if tx.To() == nil || *tx.To() != w.params.Asset.Contract {
			continue
		}
		receipt, err := w.conn.ReceiptByHash(ctx, tx.Hash())
		if err != nil {
			return false, err
		}
		for _, log := range receipt.Logs {
			if len(log.Topics) != 3 || log.Topics[0] != erc20TransferTopic {
				continue
			}
			to := common.BytesToAddress(log.Topics[2].Bytes())
			if to != *w.located {
				continue
			}
			qty := new(uint256.Int).SetBytes(log.Data)
			fundTx := ledger.NewEthereumTransaction(tx.Hash(), tx.Data())
			w.funded = true
			w.emitFundOutcome(ledger.NewEthereumHtlcLocation(*w.located), fundTx, qty.ToBig(), hdr)
			return false, nil
		}
	}
	return false, nil
}

// emitFundOutcome compares delivered (wei, or token quantity for ERC20)
// against params.Asset using integer arithmetic and emits Funded or
// IncorrectlyFunded. Even an
// insufficient transfer leaves the contract callable, so the watcher keeps
// running afterward to observe the eventual refund.
func (w *Watcher) emitFundOutcome(loc ledger.HtlcLocation, fundTx ledger.Transaction, delivered *big.Int, hdr chainntnfs.BlockHeader) {
	expected := w.params.Asset.Wei.ToBig()
	kind := chainntnfs.EventFunded
	if delivered.Cmp(expected) < 0 {
		kind = chainntnfs.EventIncorrectlyFunded
	}
	w.emit(chainntnfs.Event{
		Leg: w.leg, Kind: kind,
		HtlcLocation: loc, DeployTx: w.deployTx, FundTx: fundTx, ObservedAt: hdr,
	})
}

func (w *Watcher) emit(ev chainntnfs.Event) {
	w.sink <- ev
}
