package daemon

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/breez/swapd/asset"
	"github.com/breez/swapd/ledger"
	"github.com/breez/swapd/swap"
	"github.com/breez/swapd/swapdb"
	"github.com/breez/swapd/swappeer"
	"github.com/breez/swapd/swapstate"
)

type fakePeer struct {
	id      string
	accepts []swap.Accept
	quit    chan struct{}
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{id: id, quit: make(chan struct{})}
}

func (p *fakePeer) SendRequest(swap.Request) error { return nil }
func (p *fakePeer) SendAccept(a swap.Accept) error {
	p.accepts = append(p.accepts, a)
	return nil
}
func (p *fakePeer) SendDecline(swap.Decline) error { return nil }
func (p *fakePeer) ID() string                     { return p.id }
func (p *fakePeer) QuitSignal() <-chan struct{}    { return p.quit }

func testPeerRequest(t *testing.T) swap.Request {
	t.Helper()
	btcKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	return swap.Request{
		SwapID:              uuid.New(),
		AlphaLedger:         ledger.BitcoinRegtest,
		BetaLedger:          ledger.Ethereum(1337),
		AlphaAsset:          asset.NewBitcoin(50_000),
		BetaAsset:           asset.NewEther(uint256.NewInt(1_000_000_000_000_000_000)),
		AlphaExpiry:         time.Now().Add(48 * time.Hour),
		BetaExpiry:          time.Now().Add(24 * time.Hour),
		SecretHash:          [32]byte{9, 9, 9},
		AlphaRefundIdentity: ledger.NewBitcoinIdentity(btcKey.PubKey()),
		BetaRedeemIdentity:  ledger.NewEthereumIdentity(common.HexToAddress("0x4444444444444444444444444444444444444444")),
	}
}

func testPeerAccept(t *testing.T, swapID uuid.UUID) swap.Accept {
	t.Helper()
	btcKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	return swap.Accept{
		SwapID:              swapID,
		AlphaRedeemIdentity: ledger.NewBitcoinIdentity(btcKey.PubKey()),
		BetaRefundIdentity:  ledger.NewEthereumIdentity(common.HexToAddress("0x5555555555555555555555555555555555555555")),
	}
}

func newTestPeerHandler(t *testing.T) (*PeerHandler, *swapstate.Store) {
	t.Helper()
	store := swapstate.New(nil)
	store.Start()
	t.Cleanup(store.Stop)

	db, err := swapdb.Open(filepath.Join(t.TempDir(), "swapdb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	engine := NewEngine(store, db, nil, nil, nil, [32]byte{}, time.Second)
	t.Cleanup(engine.Stop)

	return NewPeerHandler(store, db, engine, [32]byte{1}), store
}

func TestOnAcceptAppliesValidAcceptFromProposed(t *testing.T) {
	h, store := newTestPeerHandler(t)

	req := testPeerRequest(t)
	h.OnRequest(newFakePeer("alice"), req)

	peer := newFakePeer("bob")
	accept := testPeerAccept(t, req.SwapID)
	h.OnAccept(peer, accept)

	st, ok := store.Get(req.SwapID)
	require.True(t, ok)
	require.Equal(t, swap.Accepted, st.Communication.Phase)
	require.True(t, st.Communication.Accept.Equal(accept))
}

func TestOnAcceptDuplicateIdenticalIsNoOp(t *testing.T) {
	h, store := newTestPeerHandler(t)

	req := testPeerRequest(t)
	h.OnRequest(newFakePeer("alice"), req)

	accept := testPeerAccept(t, req.SwapID)
	h.OnAccept(newFakePeer("bob"), accept)
	h.OnAccept(newFakePeer("bob"), accept)

	st, ok := store.Get(req.SwapID)
	require.True(t, ok)
	require.Equal(t, swap.Accepted, st.Communication.Phase)
	require.True(t, st.Communication.Accept.Equal(accept))
}

// TestOnAcceptMismatchedDuplicateIsRejected guards the bug where a
// retransmitted Accept carrying different identities than the one already
// recorded was silently folded into the already-Accepted early return
// instead of being flagged as a protocol violation.
func TestOnAcceptMismatchedDuplicateIsRejected(t *testing.T) {
	h, store := newTestPeerHandler(t)

	req := testPeerRequest(t)
	h.OnRequest(newFakePeer("alice"), req)

	first := testPeerAccept(t, req.SwapID)
	h.OnAccept(newFakePeer("bob"), first)

	mismatched := testPeerAccept(t, req.SwapID)
	h.OnAccept(newFakePeer("bob"), mismatched)

	st, ok := store.Get(req.SwapID)
	require.True(t, ok)
	require.Equal(t, swap.Accepted, st.Communication.Phase)
	require.True(t, st.Communication.Accept.Equal(first))
	require.False(t, st.Communication.Accept.Equal(mismatched))
}

func TestOnAcceptUnknownSwapIsIgnored(t *testing.T) {
	h, _ := newTestPeerHandler(t)
	h.OnAccept(newFakePeer("bob"), testPeerAccept(t, uuid.New()))
}

func TestOnDeclineFromProposed(t *testing.T) {
	h, store := newTestPeerHandler(t)

	req := testPeerRequest(t)
	h.OnRequest(newFakePeer("alice"), req)

	h.OnDecline(newFakePeer("bob"), swap.Decline{SwapID: req.SwapID, Reason: "no"})

	st, ok := store.Get(req.SwapID)
	require.True(t, ok)
	require.Equal(t, swap.Declined, st.Communication.Phase)
}

var _ swappeer.Peer = (*fakePeer)(nil)
