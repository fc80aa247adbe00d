// Package swaphttp implements the HTTP surface: get_swap,
// get_actions, post_accept, post_decline, rendered over
// github.com/go-chi/chi/v5 instead of hand-rolled http.ServeMux routing.
//
// Grounded on rpcserver.go's per-method handler shape (translate the wire
// request into a domain call, log a one-liner, translate the domain result
// back into the wire response) re-expressed for chi instead of gRPC: no
// .proto toolchain runs as part of this module, so the wire format here is
// plain JSON rather than protobuf.
package swaphttp

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/breez/swapd/actions"
	"github.com/breez/swapd/swap"
	"github.com/breez/swapd/swapstate"
)

// Server is the swap coordination HTTP surface.
type Server struct {
	store       *swapstate.Store
	longPollFor time.Duration
}

// New constructs a Server backed by store. longPollFor bounds how long
// get_swap holds a wait=terminal request open waiting for a state change
// before falling back to the current snapshot; get_actions never waits (the design: long polling keyed
// on the state store's subscription predicate).
func New(store *swapstate.Store, longPollFor time.Duration) *Server {
	return &Server{store: store, longPollFor: longPollFor}
}

// Router builds the chi router for this surface.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/swaps/{id}", s.getSwap)
	r.Get("/swaps/{id}/actions", s.getActions)
	r.Post("/swaps/{id}/accept", s.postAccept)
	r.Post("/swaps/{id}/decline", s.postDecline)
	return r
}

func (s *Server) swapID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "bad swap id")
		return uuid.UUID{}, false
	}
	return id, true
}

// getSwap implements GET /swaps/{id}. If the query string carries
// wait=terminal it long-polls until IsTerminal() or the
// server's long-poll budget elapses.
func (s *Server) getSwap(w http.ResponseWriter, r *http.Request) {
	id, ok := s.swapID(w, r)
	if !ok {
		return
	}

	st, found := s.store.Get(id)
	if !found {
		httpError(w, http.StatusNotFound, "unknown swap")
		return
	}

	if r.URL.Query().Get("wait") == "terminal" && !st.FSM.IsTerminal() {
		sub := s.store.Subscribe(id, func(st swapstate.SwapState) bool {
			return st.FSM.IsTerminal()
		})
		defer sub.Cancel()
		if waited, ok := sub.Wait(s.longPollFor); ok {
			st = waited
		}
	}

	writeJSON(w, http.StatusOK, renderSwap(st))
}

// getActions implements GET /swaps/{id}/actions: the
// current actionable set for this swap, per the pure derivation in the
// actions package.
func (s *Server) getActions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.swapID(w, r)
	if !ok {
		return
	}

	st, found := s.store.Get(id)
	if !found {
		httpError(w, http.StatusNotFound, "unknown swap")
		return
	}

	acts := currentActions(st)
	writeJSON(w, http.StatusOK, renderActions(acts))
}

// postAccept implements POST /swaps/{id}/accept.
func (s *Server) postAccept(w http.ResponseWriter, r *http.Request) {
	id, ok := s.swapID(w, r)
	if !ok {
		return
	}

	var body acceptBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, "malformed accept body")
		return
	}

	accept, err := body.toAccept(id)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, found := s.store.Get(id)
	if !found {
		httpError(w, http.StatusNotFound, "unknown swap")
		return
	}

	switch st.Communication.Phase {
	case swap.Proposed:
		if err := accept.Validate(st.Communication.Request); err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		st.Communication = st.Communication.WithAccept(accept)

	case swap.Accepted:
		// Duplicate Accept: idempotent no-op if
		// identical, ProtocolViolation otherwise.
		if !st.Communication.Accept.Equal(accept) {
			httpError(w, http.StatusConflict, "accept mismatches previously recorded accept")
			return
		}

	default:
		httpError(w, http.StatusConflict, "swap is not awaiting accept")
		return
	}

	if err := s.store.Put(st); err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if peerForwarder != nil {
		peerForwarder(id, &accept, nil)
	}

	writeJSON(w, http.StatusOK, renderSwap(st))
}

// postDecline implements POST /swaps/{id}/decline.
func (s *Server) postDecline(w http.ResponseWriter, r *http.Request) {
	id, ok := s.swapID(w, r)
	if !ok {
		return
	}

	var body declineBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, "malformed decline body")
		return
	}

	st, found := s.store.Get(id)
	if !found {
		httpError(w, http.StatusNotFound, "unknown swap")
		return
	}
	if st.Communication.Phase != swap.Proposed {
		httpError(w, http.StatusConflict, "swap is not awaiting a response")
		return
	}

	decline := swap.Decline{SwapID: id, Reason: body.Reason}
	st.Communication = st.Communication.WithDecline(decline)
	if err := s.store.Put(st); err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if peerForwarder != nil {
		peerForwarder(id, nil, &decline)
	}

	writeJSON(w, http.StatusOK, renderSwap(st))
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// currentActions is set by daemon/engine.go at startup to the wiring that
// has access to alpha/beta htlc.Params and the swap's role and seed; it
// defaults to returning nothing so this package has no import-cycle back
// into daemon or actions' callers.
var currentActions = func(st swapstate.SwapState) []actions.Action { return nil }

// SetActionsFunc installs the closure used to derive the actionable set for
// a SwapState snapshot. daemon/engine.go calls this once at startup.
func SetActionsFunc(f func(swapstate.SwapState) []actions.Action) {
	currentActions = f
}

// peerForwarder, when set, is called after a locally recorded Accept or
// Decline commits to the store, so the daemon can relay the decision to
// the counterparty over whatever peer transport is wired in (the design's
// peer wire contract is consumed, never implemented, by this package).
// Exactly one of accept/decline is non-nil per call. nil by default, so
// this package never needs to import a concrete transport.
var peerForwarder func(swapID uuid.UUID, accept *swap.Accept, decline *swap.Decline)

// SetPeerForwarder installs the relay closure daemon/peerhandler.go uses to
// forward locally-made Accept/Decline decisions to the registered Peer.
func SetPeerForwarder(f func(uuid.UUID, *swap.Accept, *swap.Decline)) {
	peerForwarder = f
}
