package actions

import (
	"math/big"
	"time"

	"github.com/breez/swapd/asset"
	"github.com/breez/swapd/chainntnfs"
	"github.com/breez/swapd/htlc"
	"github.com/breez/swapd/ledger"
	"github.com/breez/swapd/swap"
	"github.com/breez/swapd/swapfsm"
	"github.com/breez/swapd/swapseed"
)

// Actions derives the exactly-now-safe-and-useful action set for role at
// state. secret is the self-derived preimage, supplied only for
// Alice (the secret owner, swapseed.Seed.DeriveSecret()); callers pass nil
// for Bob, who never self-derives — his redeem action becomes available
// only once he observes his own leg's redeem (the leg Alice redeems),
// learning the secret from the chain watcher, not from this argument.
//
// Grounded on original_source/cnd/src/actions.rs's Actions trait: each
// ledger contributed one Fund/Redeem/Refund-Action impl there; here the
// role symmetry collapses them into one function parametrized by "own leg"
// (deploy/fund/refund) and "counterparty leg" (redeem), per
// htlc.AlphaParams/BetaParams's RedeemIdentity/RefundIdentity assignment.
func Actions(comm swap.Communication, role swap.Role, state swapfsm.State, alphaParams, betaParams htlc.Params, secret *swapseed.Secret, now time.Time) []Action {
	switch comm.Phase {
	case swap.Proposed:
		// Only the responder can Accept or Decline a proposal still
		// awaiting a reply (Action set includes Accept/
		// Decline; only Bob, the receiver of Alice's Request, ever
		// sees them).
		if role == swap.Bob {
			return []Action{{Kind: Accept}, {Kind: Decline}}
		}
		return nil
	case swap.Declined:
		return nil
	}

	ownLeg, cpLeg := chainntnfs.Alpha, chainntnfs.Beta
	ownParams, cpParams := alphaParams, betaParams
	ownState, cpState := state.Alpha, state.Beta
	if role == swap.Bob {
		ownLeg, cpLeg = chainntnfs.Beta, chainntnfs.Alpha
		ownParams, cpParams = betaParams, alphaParams
		ownState, cpState = state.Beta, state.Alpha
	}

	var out []Action

	// Once the swap's outcome is decided as a success, the role's own
	// leg will be redeemed by the counterparty momentarily; offering a
	// refund here would race a spend that is already settled in
	// principle.
	if state.Outcome != swapfsm.OutcomeSuccess {
		out = append(out, ownLegActions(ownLeg, ownParams, ownState, now)...)
	}

	cpSecret := secret
	if role == swap.Bob {
		cpSecret = nil
		if ownState.State == htlc.Redeemed {
			s := ownState.Secret
			cpSecret = &s
		}
	}
	out = append(out, cpLegActions(cpLeg, cpParams, cpState, cpSecret)...)

	return out
}

func ownLegActions(leg chainntnfs.Leg, params htlc.Params, st htlc.LedgerState, now time.Time) []Action {
	switch st.State {
	case htlc.NotDeployed:
		if params.Ledger.IsBitcoin() {
			return []Action{fundBitcoinAction(leg, params)}
		}
		return []Action{deployEthereumAction(leg, params)}

	case htlc.Deployed:
		// Only reachable for an ERC20 HTLC: Ether HTLCs fund at deploy
		// and never observe a standalone Deployed state.
		return []Action{fundErc20Action(leg, params, st.HtlcLocation)}

	case htlc.Funded:
		if !now.Before(params.Expiry) {
			return []Action{refundAction(leg, params, st.HtlcLocation)}
		}
		return nil

	case htlc.IncorrectlyFunded:
		// A dedicated refund-only state: the delivered
		// asset already doesn't match params.Asset, so there is nothing
		// worth waiting for expiry to protect — refund is immediately
		// safe (the design scenario 3: "Refund(alpha) immediately").
		return []Action{refundAction(leg, params, st.HtlcLocation)}

	default: // Redeemed, Refunded
		return nil
	}
}

func cpLegActions(leg chainntnfs.Leg, params htlc.Params, st htlc.LedgerState, secret *swapseed.Secret) []Action {
	if secret == nil {
		return nil
	}
	switch st.State {
	case htlc.Funded, htlc.IncorrectlyFunded:
		return []Action{redeemAction(leg, params, st.HtlcLocation, *secret)}
	default:
		return nil
	}
}

func fundBitcoinAction(leg chainntnfs.Leg, params htlc.Params) Action {
	_, addrInfo, err := ledger.BitcoinFundTarget(params)
	if err != nil {
		return Action{Kind: Fund, Leg: leg}
	}
	return Action{
		Kind: Fund,
		Leg:  leg,
		SendToAddress: &SendToAddress{
			Address: addrInfo.Address,
			Amount:  int64(params.Asset.Sats),
			Network: addrInfo.ChainParams.Name,
		},
	}
}

func deployEthereumAction(leg chainntnfs.Leg, params htlc.Params) Action {
	redeemAddr := params.RedeemIdentity.EthereumAddress()
	refundAddr := params.RefundIdentity.EthereumAddress()
	bytecode := ledger.EthereumHTLCBytecode(redeemAddr, refundAddr, params.SecretHash, params.Expiry.Unix())

	value := big.NewInt(0)
	if params.Asset.Type == asset.Ether {
		value = params.Asset.Wei.ToBig()
	}

	return Action{
		Kind: Deploy,
		Leg:  leg,
		DeployContract: &DeployContract{
			Bytecode: bytecode,
			Value:    value,
			GasLimit: ledger.EthereumDeployGasLimit,
			ChainID:  chainID(params),
		},
	}
}

func fundErc20Action(leg chainntnfs.Leg, params htlc.Params, loc ledger.HtlcLocation) Action {
	return Action{
		Kind: Fund,
		Leg:  leg,
		CallContract: &CallContract{
			To:       params.Asset.Contract,
			Data:     ledger.ERC20TransferCalldata(loc.EthereumAddress(), params.Asset.Wei),
			Value:    big.NewInt(0),
			GasLimit: ledger.Erc20FundGasLimit,
			ChainID:  chainID(params),
		},
	}
}

func refundAction(leg chainntnfs.Leg, params htlc.Params, loc ledger.HtlcLocation) Action {
	if params.Ledger.IsBitcoin() {
		redeemKey := params.RedeemIdentity.BitcoinKey()
		refundKey := params.RefundIdentity.BitcoinKey()
		script, err := ledger.BitcoinHTLCScript(redeemKey, refundKey, params.SecretHash, params.Expiry.Unix())
		if err != nil {
			return Action{Kind: Refund, Leg: leg}
		}
		target := ledger.BitcoinRefundTarget(params, loc, script)
		return Action{
			Kind: Refund,
			Leg:  leg,
			SpendOutput: &SpendOutput{
				Outpoint: target.Outpoint,
				Script:   target.Script,
				Amount:   target.Amount,
				LockTime: target.LockTime,
			},
		}
	}

	return Action{
		Kind: Refund,
		Leg:  leg,
		CallContract: &CallContract{
			To:       loc.EthereumAddress(),
			Data:     nil,
			Value:    big.NewInt(0),
			GasLimit: ledger.EthereumHTLCCallGasLimit,
			ChainID:  chainID(params),
		},
	}
}

func redeemAction(leg chainntnfs.Leg, params htlc.Params, loc ledger.HtlcLocation, secret swapseed.Secret) Action {
	if params.Ledger.IsBitcoin() {
		redeemKey := params.RedeemIdentity.BitcoinKey()
		refundKey := params.RefundIdentity.BitcoinKey()
		script, err := ledger.BitcoinHTLCScript(redeemKey, refundKey, params.SecretHash, params.Expiry.Unix())
		if err != nil {
			return Action{Kind: Redeem, Leg: leg}
		}
		target := ledger.BitcoinRedeemTarget(params, loc, script)
		secretCopy := [32]byte(secret)
		return Action{
			Kind: Redeem,
			Leg:  leg,
			SpendOutput: &SpendOutput{
				Outpoint: target.Outpoint,
				Script:   target.Script,
				Amount:   target.Amount,
				Secret:   &secretCopy,
			},
		}
	}

	secretBytes := make([]byte, 32)
	copy(secretBytes, secret[:])
	return Action{
		Kind: Redeem,
		Leg:  leg,
		CallContract: &CallContract{
			To:       loc.EthereumAddress(),
			Data:     secretBytes,
			Value:    big.NewInt(0),
			GasLimit: ledger.EthereumHTLCCallGasLimit,
			ChainID:  chainID(params),
		},
	}
}

func chainID(params htlc.Params) *big.Int {
	return new(big.Int).SetUint64(params.Ledger.ChainID)
}
