// Main is the true entry point for swapd. This function is required since
// defers created in the top-level scope of a main package aren't executed
// if os.Exit() is called (the same reasoning daemon/lnd.go gives for
// LndMain).
package daemon

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/breez/swapd/swap"
	"github.com/breez/swapd/swapdb"
	"github.com/breez/swapd/swaphttp"
	"github.com/breez/swapd/swapstate"
	"github.com/breez/swapd/swapwallet"
)

const (
	nodeSeedFilename  = "node_seed"
	swapDBFilename    = "swaps.db"
	nurseryInterval   = time.Minute
	watcherPollPeriod = 15 * time.Second
	longPollBudget    = 25 * time.Second
)

// Main loads configuration, wires every subsystem, replays the durable
// store, and serves the HTTP surface until interrupted.
func Main(args []string) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		if _, ok := err.(*flags.Error); ok {
			return nil
		}
		return err
	}

	swpdLog.Infof("swapd starting, data_dir=%s", cfg.DataDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		swpdLog.Infof("received shutdown signal")
		cancel()
	}()

	nodeSeed, err := loadOrCreateNodeSeed(filepath.Join(cfg.DataDir, nodeSeedFilename))
	if err != nil {
		return fmt.Errorf("daemon: node seed: %w", err)
	}

	db, err := swapdb.Open(filepath.Join(cfg.DataDir, swapDBFilename))
	if err != nil {
		return fmt.Errorf("daemon: open store: %w", err)
	}
	defer db.Close()

	bitcoin, err := newBitcoinConnector(cfg.Bitcoin)
	if err != nil {
		return fmt.Errorf("daemon: bitcoin connector: %w", err)
	}
	ethereum, err := newEthereumConnector(cfg.Ethereum)
	if err != nil {
		return fmt.Errorf("daemon: ethereum connector: %w", err)
	}

	// peerHandler is assigned after store's persist closure is built; the
	// closure captures the variable, not its (as-yet-nil) value, so the
	// two can be constructed in either order (persisted-state
	// index needs the registered counterparty, which only PeerHandler
	// tracks).
	var peerHandler *PeerHandler
	store := swapstate.New(func(st swapstate.SwapState) error {
		return persistCommunication(db, peerHandler, st)
	})
	store.Start()
	defer store.Stop()

	wallet := swapwallet.DefaultWallet{}
	engine := NewEngine(store, db, wallet, bitcoin, ethereum, nodeSeed, watcherPollPeriod)
	defer engine.Stop()

	peerHandler = NewPeerHandler(store, db, engine, nodeSeed)
	swaphttp.SetPeerForwarder(peerHandler.Forward)

	nursery := NewNursery(store, nurseryInterval)
	go nursery.Run(ctx)

	if err := Replay(ctx, db, store, engine, nodeSeed); err != nil {
		return fmt.Errorf("daemon: replay: %w", err)
	}

	server := swaphttp.New(store, longPollBudget)
	httpSrv := &http.Server{
		Addr:    cfg.HTTPListen,
		Handler: server.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		swpdLog.Infof("HTTP surface listening on %s", cfg.HTTPListen)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpSrv.Shutdown(shutdownCtx)
		<-serveErr
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("daemon: http surface: %w", err)
		}
	}

	swpdLog.Infof("swapd shutdown complete")
	return nil
}

// persistCommunication is swapstate.Store's persist hook: it saves the
// Request, Accept, or Decline a just-applied SwapState carries, keyed by
// swap id (the design "needs exactly (swap_id, role, request, accept) —
// nothing more"). Called on every Put/Apply, including pure FSM-state
// advances, for which it is a cheap idempotent no-op re-save of the same
// immutable Request/Accept/Decline already on disk.
func persistCommunication(db *swapdb.Store, peerHandler *PeerHandler, st swapstate.SwapState) error {
	switch st.Communication.Phase {
	case swap.Proposed:
		counterpartyID := ""
		if peerHandler != nil {
			if p, ok := peerHandler.Peer(st.ID); ok {
				counterpartyID = p.ID()
			}
		}
		return db.PutRequest(st.Role, counterpartyID, st.Communication.Request)
	case swap.Accepted:
		return db.PutAccept(st.Communication.Accept)
	case swap.Declined:
		return db.PutDecline(st.Communication.Decline)
	default:
		return nil
	}
}

// loadOrCreateNodeSeed reads the 32-byte root seed swapseed.FromNodeSeed
// derives every per-swap seed from, generating and persisting a fresh one
// on first run. This is plain file I/O rather than an encrypted seed
// vault (aezeed) deliberately: the value here is a coordinator's internal
// derivation root, not a wallet's recovery mnemonic the operator ever
// needs to read or transcribe.
func loadOrCreateNodeSeed(path string) ([32]byte, error) {
	var seed [32]byte

	data, err := os.ReadFile(path)
	if err == nil && len(data) == 32 {
		copy(seed[:], data)
		return seed, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return seed, err
	}

	if _, err := rand.Read(seed[:]); err != nil {
		return seed, fmt.Errorf("generate node seed: %w", err)
	}
	if err := os.WriteFile(path, seed[:], 0600); err != nil {
		return seed, fmt.Errorf("persist node seed: %w", err)
	}
	return seed, nil
}
