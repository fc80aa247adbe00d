// Package swappeer defines the wire contract the engine uses to reach a
// swap counterparty, independent of whatever peer-to-peer transport
// (libp2p, bare TCP, a relay) actually carries the bytes.
//
// Grounded on lnpeer/peer.go's Peer interface: a small capability surface
// (send, identify, detect disconnect) that the rest of the codebase depends
// on only through the interface, never a concrete transport type.
package swappeer

import (
	"github.com/breez/swapd/swap"
)

// Peer represents the remote counterparty of one swap negotiation.
type Peer interface {
	// SendRequest proposes req to the peer (Alice's outbound message).
	SendRequest(req swap.Request) error

	// SendAccept sends Bob's acceptance of a previously received Request.
	SendAccept(accept swap.Accept) error

	// SendDecline sends Bob's rejection of a previously received Request.
	SendDecline(decline swap.Decline) error

	// ID returns a stable identifier for the remote peer, stored in
	// swapdb's swaps index alongside (swap_id, role).
	ID() string

	// QuitSignal returns a channel closed when the underlying transport
	// to this peer goes away, so callers waiting on a reply can cancel.
	QuitSignal() <-chan struct{}
}

// InboundHandler is implemented by the engine to receive messages a Peer
// delivers on behalf of its transport.
type InboundHandler interface {
	OnRequest(from Peer, req swap.Request)
	OnAccept(from Peer, accept swap.Accept)
	OnDecline(from Peer, decline swap.Decline)
}
