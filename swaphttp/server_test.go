package swaphttp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/breez/swapd/actions"
	"github.com/breez/swapd/ledger"
	"github.com/breez/swapd/swap"
	"github.com/breez/swapd/swapfsm"
	"github.com/breez/swapd/swapstate"
)

func testBitcoinIdentity(t *testing.T) ledger.Identity {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return ledger.NewBitcoinIdentity(key.PubKey())
}

func newTestServer(t *testing.T) (*Server, *swapstate.Store, uuid.UUID) {
	t.Helper()
	store := swapstate.New(nil)
	store.Start()
	t.Cleanup(store.Stop)

	id := uuid.New()
	req := swap.Request{
		SwapID:              id,
		AlphaLedger:         ledger.BitcoinTestnet,
		BetaLedger:          ledger.Ethereum(5),
		AlphaExpiry:         time.Now().Add(48 * time.Hour),
		BetaExpiry:          time.Now().Add(24 * time.Hour),
		SecretHash:          [32]byte{9, 9, 9},
		AlphaRefundIdentity: testBitcoinIdentity(t),
		BetaRedeemIdentity:  ledger.NewEthereumIdentity(common.HexToAddress("0x1111111111111111111111111111111111111111")),
	}
	st := swapstate.SwapState{
		ID:            id,
		Role:          swap.Bob,
		Communication: swap.NewProposed(req),
		FSM:           swapfsm.Start(),
	}
	require.NoError(t, store.Put(st))

	s := New(store, 200*time.Millisecond)
	return s, store, id
}

func TestGetSwapNotFound(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/swaps/"+uuid.New().String(), nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSwapReturnsPhase(t *testing.T) {
	s, _, id := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/swaps/"+id.String(), nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var view swapView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	require.Equal(t, "bob", view.Role)
	require.Equal(t, "Accepted", view.Phase)
}

func TestPostAcceptTransitionsPhase(t *testing.T) {
	s, store, id := newTestServer(t)

	redeemKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	body := acceptBody{
		AlphaRedeemIdentity: hexutil.Encode(ledger.EncodeIdentity(ledger.NewBitcoinIdentity(redeemKey.PubKey()))),
		BetaRefundIdentity:  hexutil.Encode(ledger.EncodeIdentity(ledger.NewEthereumIdentity(common.HexToAddress("0x2222222222222222222222222222222222222222")))),
	}
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/swaps/"+id.String()+"/accept", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	st, ok := store.Get(id)
	require.True(t, ok)
	require.Equal(t, swap.Accepted, st.Communication.Phase)
}

func TestPostDeclineTransitionsPhase(t *testing.T) {
	s, store, id := newTestServer(t)

	payload, err := json.Marshal(declineBody{Reason: "terms unacceptable"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/swaps/"+id.String()+"/decline", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	st, ok := store.Get(id)
	require.True(t, ok)
	require.Equal(t, swap.Declined, st.Communication.Phase)
	require.Equal(t, "terms unacceptable", st.Communication.Decline.Reason)
}

func TestGetActionsUsesInstalledFunc(t *testing.T) {
	s, _, id := newTestServer(t)

	SetActionsFunc(func(st swapstate.SwapState) []actions.Action {
		return []actions.Action{{Kind: actions.Accept}}
	})
	t.Cleanup(func() { SetActionsFunc(func(swapstate.SwapState) []actions.Action { return nil }) })

	req := httptest.NewRequest(http.MethodGet, "/swaps/"+id.String()+"/actions", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var views []actionView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&views))
	require.Len(t, views, 1)
	require.Equal(t, "accept", views[0].Kind)
}
