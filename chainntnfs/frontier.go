// Package chainntnfs implements the shared chain-watching machinery: a
// frontier-tracking poll loop, forward walk, backward historical scan on
// catastrophic gaps, and reorg tolerance. The two
// ledger-specific watchers (bitcoinwatch, ethereumwatch) supply a BlockSource
// and drive a FrontierWalker; the pattern-matching itself (deploy/fund/
// redeem/refund) is ledger-specific and lives in those subpackages.
//
// Grounded on chainntnfs/txconfnotifier.go's height/hash bookkeeping,
// generalized from "track confirmations of registered txids" to "track the
// frontier block this watcher has fully processed".
package chainntnfs

import (
	"context"
	"errors"
	"time"
)

// BlockHeader is the ledger-agnostic subset of a block a FrontierWalker
// needs: identity, lineage, and the timestamp watchers use instead of
// wall-clock for expiry comparisons.
type BlockHeader struct {
	Hash       [32]byte
	ParentHash [32]byte
	Height     uint64
	Timestamp  time.Time
}

// BlockSource is the ledger-agnostic half of ledger connector
// contract: latest_block() and block_by_hash(h).
type BlockSource interface {
	LatestBlock(ctx context.Context) (BlockHeader, error)
	BlockByHash(ctx context.Context, hash [32]byte) (BlockHeader, error)
}

// ErrCatastrophicGap is returned by Advance when the tip's ancestry can't be
// walked back to the frontier within ReorgWindow blocks. The watchers
// answer it with a historical scan from startOfSwap, run inline: forward
// polling does not resume until that scan has finished.
var ErrCatastrophicGap = errors.New("chainntnfs: gap between frontier and tip exceeds reorg window")

// FrontierWalker tracks the last block a watcher has fully processed and
// computes, on each poll tick, the ordered list of new blocks to process.
type FrontierWalker struct {
	src         BlockSource
	reorgWindow uint32
	startOfSwap time.Time

	frontier BlockHeader
	started  bool
}

// NewFrontierWalker constructs a walker that will begin at the chain tip the
// first time Advance is called.
func NewFrontierWalker(src BlockSource, reorgWindow uint32, startOfSwap time.Time) *FrontierWalker {
	return &FrontierWalker{src: src, reorgWindow: reorgWindow, startOfSwap: startOfSwap}
}

// Frontier returns the last block fully processed, or the zero value before
// the first Advance.
func (w *FrontierWalker) Frontier() BlockHeader { return w.frontier }

// SetFrontier seeds the walker's frontier directly and marks the walker
// started, so the next Advance walks from h instead of adopting the tip.
// Nothing in this module calls it; resumed swaps use the watchers'
// historical scan instead.
func (w *FrontierWalker) SetFrontier(h BlockHeader) {
	w.frontier = h
	w.started = true
}

// Advance fetches the tip and returns the ordered (ascending) list of blocks
// the caller must process to catch up to it. If the tip is already the
// frontier, it returns an empty, nil-error result (the design step 1: "sleep
// BLOCK_POLL_INTERVAL and retry"). If the gap between frontier and tip
// exceeds ReorgWindow, it returns ErrCatastrophicGap and leaves the frontier
// unchanged; Advance does not perform the historical scan itself. The
// watchers run that scan in the same goroutine as forward polling, which
// pauses until the scan completes.
func (w *FrontierWalker) Advance(ctx context.Context) ([]BlockHeader, error) {
	tip, err := w.src.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}

	if !w.started {
		w.frontier = tip
		w.started = true
		return nil, nil
	}

	if tip.Hash == w.frontier.Hash {
		return nil, nil
	}

	if tip.ParentHash == w.frontier.Hash {
		w.frontier = tip
		return []BlockHeader{tip}, nil
	}

	// Walk parents backward until we reach the frontier or exceed the
	// reorg window.
	var chain []BlockHeader
	cur := tip
	for depth := uint32(0); depth <= w.reorgWindow; depth++ {
		chain = append([]BlockHeader{cur}, chain...)

		if cur.ParentHash == w.frontier.Hash {
			w.frontier = tip
			return chain, nil
		}

		if cur.Height == 0 {
			break
		}

		parent, err := w.src.BlockByHash(ctx, cur.ParentHash)
		if err != nil {
			return nil, err
		}
		cur = parent
	}

	return nil, ErrCatastrophicGap
}

// Rewind replays the walker's frontier back to block h, tolerating a single
// reorg rewind from a non-terminal state (the design "Tie-breaks": "the state
// machine is idempotent on identical events and tolerates a single rewind
// from a non-terminal state").
func (w *FrontierWalker) Rewind(h BlockHeader) {
	w.frontier = h
}
