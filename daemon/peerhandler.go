package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/breez/swapd/swap"
	"github.com/breez/swapd/swapdb"
	"github.com/breez/swapd/swapfsm"
	"github.com/breez/swapd/swappeer"
	"github.com/breez/swapd/swapseed"
	"github.com/breez/swapd/swapstate"
)

// PeerHandler implements swappeer.InboundHandler, bridging the three
// message kinds peer wire contract names (SwapRequest, Accept,
// Decline) into the same local bookkeeping swaphttp's handlers perform for
// the operator-facing API. Peer transport itself (request/response framing
// between nodes) is out of scope; this is the
// consuming side of swappeer.Peer the core actually owns.
//
// Grounded on htlcswitch's inbound-message dispatch shape, reduced to
// three message kinds instead of the full Lightning wire protocol.
type PeerHandler struct {
	store    *swapstate.Store
	db       *swapdb.Store
	engine   *Engine
	nodeSeed [32]byte

	mu    sync.Mutex
	peers map[uuid.UUID]swappeer.Peer
}

// NewPeerHandler constructs a PeerHandler and wires swaphttp's peer
// forwarder so locally-made Accept/Decline decisions reach the registered
// counterparty.
func NewPeerHandler(store *swapstate.Store, db *swapdb.Store, engine *Engine, nodeSeed [32]byte) *PeerHandler {
	h := &PeerHandler{
		store:    store,
		db:       db,
		engine:   engine,
		nodeSeed: nodeSeed,
		peers:    make(map[uuid.UUID]swappeer.Peer),
	}
	return h
}

func (h *PeerHandler) registerPeer(swapID uuid.UUID, p swappeer.Peer) {
	h.mu.Lock()
	h.peers[swapID] = p
	h.mu.Unlock()
}

// Peer returns the counterparty registered for swapID, if any.
func (h *PeerHandler) Peer(swapID uuid.UUID) (swappeer.Peer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.peers[swapID]
	return p, ok
}

// Forward implements the closure swaphttp.SetPeerForwarder installs:
// relay a locally-recorded Accept/Decline to the registered peer, if one
// is known for this swap id (best-effort — with no peer transport
// implemented, this is a no-op unless a concrete swappeer.Peer registered
// itself via OnRequest).
func (h *PeerHandler) Forward(swapID uuid.UUID, accept *swap.Accept, decline *swap.Decline) {
	p, ok := h.Peer(swapID)
	if !ok {
		return
	}
	var err error
	switch {
	case accept != nil:
		err = p.SendAccept(*accept)
	case decline != nil:
		err = p.SendDecline(*decline)
	}
	if err != nil {
		peerLog.Errorf("swap %s: forward to %s failed: %v", swapID, p.ID(), err)
	}
}

// OnRequest handles an inbound SwapRequest: Bob receives Alice's proposal.
func (h *PeerHandler) OnRequest(from swappeer.Peer, req swap.Request) {
	if err := req.Validate(time.Now()); err != nil {
		peerLog.Warnf("rejecting request %s from %s: %v", req.SwapID, from.ID(), err)
		return
	}

	h.registerPeer(req.SwapID, from)

	st := swapstate.SwapState{
		ID:            req.SwapID,
		Role:          swap.Bob,
		Communication: swap.NewProposed(req),
		FSM:           swapfsm.Start(),
		Seed:          swapseed.FromNodeSeed(h.nodeSeed, req.SwapID),
	}
	if err := h.store.Put(st); err != nil {
		peerLog.Errorf("swap %s: store request: %v", req.SwapID, err)
		return
	}
	if err := h.db.PutRequest(swap.Bob, from.ID(), req); err != nil {
		peerLog.Errorf("swap %s: persist request: %v", req.SwapID, err)
	}
}

// OnAccept handles an inbound Accept: Alice receives Bob's acceptance of
// her proposal. A retransmitted Accept for an already-accepted swap is a
// silent no-op only if it matches the recorded Accept exactly, matching
// swaphttp's idempotent re-acceptance policy (postAccept); a mismatched
// retransmit is a protocol violation and is rejected instead of applied.
func (h *PeerHandler) OnAccept(from swappeer.Peer, accept swap.Accept) {
	st, ok := h.store.Get(accept.SwapID)
	if !ok {
		peerLog.Warnf("accept for unknown swap %s", accept.SwapID)
		return
	}

	switch st.Communication.Phase {
	case swap.Proposed:
		if err := accept.Validate(st.Communication.Request); err != nil {
			peerLog.Warnf("rejecting accept %s from %s: %v", accept.SwapID, from.ID(), err)
			return
		}

	case swap.Accepted:
		if !st.Communication.Accept.Equal(accept) {
			peerLog.Warnf("accept %s from %s mismatches previously recorded accept", accept.SwapID, from.ID())
			return
		}
		return

	default:
		return
	}

	h.registerPeer(accept.SwapID, from)

	st.Communication = st.Communication.WithAccept(accept)
	if err := h.store.Put(st); err != nil {
		peerLog.Errorf("swap %s: store accept: %v", accept.SwapID, err)
		return
	}
	if err := h.db.PutAccept(accept); err != nil {
		peerLog.Errorf("swap %s: persist accept: %v", accept.SwapID, err)
	}
	if err := h.engine.StartSwap(context.Background(), st, time.Now()); err != nil {
		peerLog.Errorf("swap %s: start watchers: %v", accept.SwapID, err)
	}
}

// OnDecline handles an inbound Decline: Alice receives Bob's rejection of
// her proposal.
func (h *PeerHandler) OnDecline(from swappeer.Peer, decline swap.Decline) {
	st, ok := h.store.Get(decline.SwapID)
	if !ok || st.Communication.Phase != swap.Proposed {
		return
	}

	st.Communication = st.Communication.WithDecline(decline)
	if err := h.store.Put(st); err != nil {
		peerLog.Errorf("swap %s: store decline: %v", decline.SwapID, err)
		return
	}
	if err := h.db.PutDecline(decline); err != nil {
		peerLog.Errorf("swap %s: persist decline: %v", decline.SwapID, err)
	}
}
