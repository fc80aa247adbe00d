package swaphttp

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"github.com/breez/swapd/actions"
	"github.com/breez/swapd/ledger"
	"github.com/breez/swapd/swap"
	"github.com/breez/swapd/swapstate"
)

// swapView is the JSON rendering of a SwapState for get_swap.
type swapView struct {
	SwapID string `json:"swap_id"`
	Role   string `json:"role"`
	Phase  string `json:"phase"`
	Failed bool   `json:"failed"`
}

func renderSwap(st swapstate.SwapState) swapView {
	return swapView{
		SwapID: st.ID.String(),
		Role:   st.Role.String(),
		Phase:  st.FSM.Phase(),
		Failed: st.FSM.Failed,
	}
}

// actionView is the JSON rendering of one actions.Action: Bitcoin addresses
// render via btcutil.Address.EncodeAddress() already baked into
// SendToAddress.Address, Ethereum byte fields via hexutil.Encode, every
// amount as a decimal string rather than a float or bare number.
type actionView struct {
	Kind string `json:"kind"`
	Leg  string `json:"leg,omitempty"`

	Address string `json:"address,omitempty"`
	Amount  string `json:"amount,omitempty"`
	Network string `json:"network,omitempty"`

	Outpoint string  `json:"outpoint,omitempty"`
	Script   string  `json:"script,omitempty"`
	LockTime *uint32 `json:"lock_time,omitempty"`
	Secret   string  `json:"secret,omitempty"`

	Bytecode string `json:"bytecode,omitempty"`
	Value    string `json:"value,omitempty"`
	GasLimit string `json:"gas_limit,omitempty"`
	ChainID  string `json:"chain_id,omitempty"`
	To       string `json:"to,omitempty"`
	Data     string `json:"data,omitempty"`
}

func renderActions(acts []actions.Action) []actionView {
	out := make([]actionView, 0, len(acts))
	for _, a := range acts {
		out = append(out, renderAction(a))
	}
	return out
}

func renderAction(a actions.Action) actionView {
	v := actionView{Kind: a.Kind.String()}
	if a.Leg != 0 {
		v.Leg = a.Leg.String()
	}

	switch {
	case a.SendToAddress != nil:
		v.Address = a.SendToAddress.Address
		v.Amount = strconv.FormatInt(a.SendToAddress.Amount, 10)
		v.Network = a.SendToAddress.Network

	case a.SpendOutput != nil:
		v.Outpoint = a.SpendOutput.Outpoint.String()
		v.Script = hex.EncodeToString(a.SpendOutput.Script)
		v.Amount = strconv.FormatInt(a.SpendOutput.Amount, 10)
		if a.SpendOutput.LockTime != 0 {
			v.LockTime = &a.SpendOutput.LockTime
		}
		if a.SpendOutput.Secret != nil {
			v.Secret = hexutil.Encode(a.SpendOutput.Secret[:])
		}

	case a.DeployContract != nil:
		v.Bytecode = hexutil.Encode(a.DeployContract.Bytecode)
		v.Value = a.DeployContract.Value.String()
		v.GasLimit = strconv.FormatUint(a.DeployContract.GasLimit, 10)
		v.ChainID = a.DeployContract.ChainID.String()

	case a.CallContract != nil:
		v.To = a.CallContract.To.Hex()
		v.Data = hexutil.Encode(a.CallContract.Data)
		v.Value = a.CallContract.Value.String()
		v.GasLimit = strconv.FormatUint(a.CallContract.GasLimit, 10)
		v.ChainID = a.CallContract.ChainID.String()
	}

	return v
}

// acceptBody is the JSON request body for post_accept.
type acceptBody struct {
	AlphaRedeemIdentity string `json:"alpha_redeem_identity"`
	BetaRefundIdentity  string `json:"beta_refund_identity"`
}

func (b acceptBody) toAccept(swapID uuid.UUID) (swap.Accept, error) {
	alphaRedeem, err := decodeIdentityHex(b.AlphaRedeemIdentity)
	if err != nil {
		return swap.Accept{}, fmt.Errorf("alpha_redeem_identity: %w", err)
	}
	betaRefund, err := decodeIdentityHex(b.BetaRefundIdentity)
	if err != nil {
		return swap.Accept{}, fmt.Errorf("beta_refund_identity: %w", err)
	}
	return swap.Accept{
		SwapID:              swapID,
		AlphaRedeemIdentity: alphaRedeem,
		BetaRefundIdentity:  betaRefund,
	}, nil
}

func decodeIdentityHex(s string) (ledger.Identity, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return ledger.Identity{}, err
	}
	return ledger.DecodeIdentity(b)
}

// declineBody is the JSON request body for post_decline.
type declineBody struct {
	Reason string `json:"reason"`
}
