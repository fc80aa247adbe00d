package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/breez/swapd/swap"
	"github.com/breez/swapd/swapdb"
	"github.com/breez/swapd/swapfsm"
	"github.com/breez/swapd/swapseed"
	"github.com/breez/swapd/swapstate"
)

// replayScanWindow bounds how far back a resumed swap's watchers scan for
// on-chain state they never recorded (the design: the durable store keeps
// only (swap_id, role, request, accept), so the watcher's historical scan
// is what rediscovers Deployed/Funded/Redeemed/Refunded across a restart).
// A swap's own alpha_expiry is always a later, tighter bound than this
// constant; this just guards against an unexpectedly long outage.
const replayScanWindow = 30 * 24 * time.Hour

// Replay reconstructs in-memory SwapState for every durably accepted swap
// and re-spawns its watcher pipeline (the design "On restart, the daemon
// reconstructs SwapState(Accepted) for every swap whose durable Accept is
// present and resumes the watcher/state-machine pipeline").
//
// Grounded on original_source/cnd/src/load_swaps.rs's
// load_swaps_from_database: enumerate every persisted swap, log and skip
// (never abort startup on) any one that fails to reconstruct, and hand each
// surviving swap to the same per-swap start routine a freshly accepted swap
// takes (init_accepted_swap there, Engine.ResumeSwap here).
func Replay(ctx context.Context, db *swapdb.Store, store *swapstate.Store, engine *Engine, nodeSeed [32]byte) error {
	records, err := db.All()
	if err != nil {
		return fmt.Errorf("daemon: replay: load records: %w", err)
	}

	swpdLog.Infof("replay: %d swaps in durable store", len(records))

	for _, rec := range records {
		if rec.Decline != nil {
			continue
		}
		if rec.Accept == nil {
			swpdLog.Warnf("swap %s: no accept recorded, skipping replay", rec.SwapID)
			continue
		}

		comm := swap.NewProposed(rec.Request).WithAccept(*rec.Accept)
		st := swapstate.SwapState{
			ID:            rec.SwapID,
			Role:          rec.Role,
			Communication: comm,
			FSM:           swapfsm.Start(),
			Seed:          swapseed.FromNodeSeed(nodeSeed, rec.SwapID),
		}

		if err := store.Put(st); err != nil {
			swpdLog.Errorf("swap %s: replay Put failed: %v", rec.SwapID, err)
			continue
		}

		startOfSwap := time.Now().Add(-replayScanWindow)
		if err := engine.ResumeSwap(ctx, st, startOfSwap); err != nil {
			swpdLog.Errorf("swap %s: replay ResumeSwap failed: %v", rec.SwapID, err)
			continue
		}

		swpdLog.Infof("swap %s: resumed from durable store", rec.SwapID)
	}

	return nil
}
