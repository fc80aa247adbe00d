// Engine wires the durable store, the in-memory state store, and the two
// chain watchers into one running subsystem. Grounded on
// daemon/server.go's subsystem-wiring shape, trimmed to this domain's
// collaborators: a state store, a durable store, two ledger watchers, and a
// wallet, in place of lnd's channel/routing/peer subsystem graph.
package daemon

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/breez/swapd/actions"
	"github.com/breez/swapd/chainntnfs"
	"github.com/breez/swapd/chainntnfs/bitcoinwatch"
	"github.com/breez/swapd/chainntnfs/ethereumwatch"
	"github.com/breez/swapd/htlc"
	"github.com/breez/swapd/ledger"
	"github.com/breez/swapd/swap"
	"github.com/breez/swapd/swapdb"
	"github.com/breez/swapd/swaphttp"
	"github.com/breez/swapd/swapseed"
	"github.com/breez/swapd/swapstate"
	"github.com/breez/swapd/swapwallet"
)

// Engine runs the watcher/state-machine pipeline for every Accepted swap:
// one bitcoinwatch or ethereumwatch Watcher per leg, fanned into
// swapstate.Store.Apply, stopped once swapfsm.State.IsTerminal() — once
// terminal, the engine stops the watchers.
type Engine struct {
	store    *swapstate.Store
	db       *swapdb.Store
	wallet   swapwallet.Wallet
	bitcoin  bitcoinwatch.Connector
	ethereum ethereumwatch.Connector
	arbiter  *IncorrectFundingArbiter

	nodeSeed  [32]byte
	pollEvery time.Duration

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

// NewEngine constructs an Engine, starts its IncorrectFundingArbiter, and
// installs the action-derivation closure into swaphttp (the design's
// get_actions calls back into whatever the daemon wired at startup).
func NewEngine(store *swapstate.Store, db *swapdb.Store, wallet swapwallet.Wallet, bitcoin bitcoinwatch.Connector, ethereum ethereumwatch.Connector, nodeSeed [32]byte, pollEvery time.Duration) *Engine {
	e := &Engine{
		store:     store,
		db:        db,
		wallet:    wallet,
		bitcoin:   bitcoin,
		ethereum:  ethereum,
		arbiter:   NewIncorrectFundingArbiter(),
		nodeSeed:  nodeSeed,
		pollEvery: pollEvery,
		cancels:   make(map[uuid.UUID]context.CancelFunc),
	}
	e.arbiter.Start()
	swaphttp.SetActionsFunc(e.actionsFor)
	return e
}

// Stop tears down the arbiter goroutine. Watcher/fan-in goroutines are
// stopped individually via stopSwap or by cancelling the context passed to
// StartSwap/ResumeSwap.
func (e *Engine) Stop() {
	e.arbiter.Stop()
}

// runner is the common shape of bitcoinwatch.Watcher and ethereumwatch.
// Watcher, letting StartSwap spawn either behind one goroutine body.
type runner interface {
	Run(ctx context.Context) error
}

// resumer is implemented by both watcher types' Resume method.
type resumer interface {
	Resume()
}

// paramsFor derives the alpha/beta htlc.Params pair for an Accepted swap.
// It returns ok=false for a swap still Proposed or Declined: those never
// reach the watcher pipeline.
func (e *Engine) paramsFor(st swapstate.SwapState) (alpha, beta htlc.Params, ok bool) {
	comm := st.Communication
	if comm.Phase != swap.Accepted {
		return htlc.Params{}, htlc.Params{}, false
	}
	req := comm.Request
	accept := comm.Accept

	alpha = htlc.AlphaParams(req.AlphaLedger, req.AlphaAsset, req.AlphaExpiry, req.SecretHash, req.AlphaRefundIdentity, accept.AlphaRedeemIdentity)
	beta = htlc.BetaParams(req.BetaLedger, req.BetaAsset, req.BetaExpiry, req.SecretHash, req.BetaRedeemIdentity, accept.BetaRefundIdentity)
	return alpha, beta, true
}

// StartSwap spawns the alpha/beta watcher pair for an already-Accepted
// swap and the fan-in goroutine that drives swapstate.Store.Apply.
// startOfSwap bounds the watchers' historical scan; a
// freshly-accepted swap starts it at now; Replay passes now minus
// replayScanWindow, since the accept time is not persisted.
func (e *Engine) StartSwap(parentCtx context.Context, st swapstate.SwapState, startOfSwap time.Time) error {
	return e.startSwap(parentCtx, st, startOfSwap, false)
}

// ResumeSwap is StartSwap for a swap reconstructed from the durable store
// on daemon startup: both watchers perform one historical scan
// from startOfSwap before joining the normal poll loop, since any HTLC
// state reached while the daemon was down is otherwise invisible to a
// watcher that simply adopts the current tip as its starting frontier.
func (e *Engine) ResumeSwap(parentCtx context.Context, st swapstate.SwapState, startOfSwap time.Time) error {
	return e.startSwap(parentCtx, st, startOfSwap, true)
}

func (e *Engine) startSwap(parentCtx context.Context, st swapstate.SwapState, startOfSwap time.Time, resume bool) error {
	alphaParams, betaParams, ok := e.paramsFor(st)
	if !ok {
		return fmt.Errorf("daemon: swap %s is not accepted", st.ID)
	}

	e.mu.Lock()
	if _, exists := e.cancels[st.ID]; exists {
		e.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(parentCtx)
	e.cancels[st.ID] = cancel
	e.mu.Unlock()

	sink := make(chan chainntnfs.Event, 8)

	alphaWatcher, err := e.newWatcher(alphaParams, chainntnfs.Alpha, sink, startOfSwap, resume)
	if err != nil {
		e.stopSwap(st.ID)
		return fmt.Errorf("daemon: alpha watcher for %s: %w", st.ID, err)
	}
	betaWatcher, err := e.newWatcher(betaParams, chainntnfs.Beta, sink, startOfSwap, resume)
	if err != nil {
		e.stopSwap(st.ID)
		return fmt.Errorf("daemon: beta watcher for %s: %w", st.ID, err)
	}

	go e.runWatcher(ctx, st.ID, alphaWatcher)
	go e.runWatcher(ctx, st.ID, betaWatcher)
	go e.fanIn(ctx, st.ID, sink)

	swpdLog.Infof("swap %s: watchers started (alpha=%s, beta=%s)", st.ID, alphaParams.Ledger, betaParams.Ledger)
	return nil
}

// newWatcher builds the bitcoinwatch or ethereumwatch Watcher appropriate
// for params.Ledger's family.
func (e *Engine) newWatcher(params htlc.Params, leg chainntnfs.Leg, sink chainntnfs.Sink, startOfSwap time.Time, resume bool) (runner, error) {
	ticker := chainntnfs.NewTicker(e.pollEvery)

	var w runner
	if params.Ledger.IsBitcoin() {
		bw, err := bitcoinwatch.New(e.bitcoin, params, leg, sink, startOfSwap, ticker)
		if err != nil {
			ticker.Stop()
			return nil, err
		}
		w = bw
	} else {
		redeemAddr := params.RedeemIdentity.EthereumAddress()
		refundAddr := params.RefundIdentity.EthereumAddress()
		bytecode := ledger.EthereumHTLCBytecode(redeemAddr, refundAddr, params.SecretHash, params.Expiry.Unix())
		bytecodeHash := sha256.Sum256(bytecode)
		w = ethereumwatch.New(e.ethereum, params, bytecodeHash, leg, sink, startOfSwap, ticker)
	}

	if resume {
		w.(resumer).Resume()
	}
	return w, nil
}

func (e *Engine) runWatcher(ctx context.Context, swapID uuid.UUID, w runner) {
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		swpdLog.Errorf("swap %s: watcher exited: %v", swapID, err)
	}
}

// fanIn reads events off sink and applies them through the state store
// until the swap reaches a terminal outcome or ctx is cancelled (the design
// "Event delivery goes through a message channel so the state store
// remains the single writer").
func (e *Engine) fanIn(ctx context.Context, swapID uuid.UUID, sink <-chan chainntnfs.Event) {
	for {
		select {
		case ev := <-sink:
			st, err := e.store.Apply(swapID, ev)
			if err != nil {
				swpdLog.Errorf("swap %s: apply %s: %v", swapID, ev.Kind, err)
				continue
			}
			if ev.Kind == chainntnfs.EventIncorrectlyFunded {
				expected := st.Communication.Request.AlphaAsset
				if ev.Leg == chainntnfs.Beta {
					expected = st.Communication.Request.BetaAsset
				}
				e.arbiter.Notify(IncorrectlyFundedEvent{SwapID: swapID, Leg: ev.Leg, Expected: expected})
			}
			if st.FSM.IsTerminal() {
				swpdLog.Infof("swap %s: reached %s, stopping watchers", swapID, st.FSM.Phase())
				e.stopSwap(swapID)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// stopSwap cancels the running watcher/fan-in goroutines for swapID, if
// any, and forgets them.
func (e *Engine) stopSwap(swapID uuid.UUID) {
	e.mu.Lock()
	cancel, ok := e.cancels[swapID]
	delete(e.cancels, swapID)
	e.mu.Unlock()

	if ok {
		cancel()
	}
}

// actionsFor is the closure installed into swaphttp.SetActionsFunc: it
// reconstructs the htlc.Params pair for st and derives the current action
// set via actions.Actions, supplying the self-derived secret only for
// Alice.
func (e *Engine) actionsFor(st swapstate.SwapState) []actions.Action {
	alphaParams, betaParams, ok := e.paramsFor(st)
	if !ok {
		return actions.Actions(st.Communication, st.Role, st.FSM, htlc.Params{}, htlc.Params{}, nil, time.Now())
	}

	var secret *swapseed.Secret
	if st.Role == swap.Alice {
		s := st.Seed.DeriveSecret()
		secret = &s
	}

	return actions.Actions(st.Communication, st.Role, st.FSM, alphaParams, betaParams, secret, time.Now())
}
