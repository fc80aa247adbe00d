package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/urfave/cli"
)

// client is a thin wrapper over swapd's plain JSON-over-HTTP surface
// (swaphttp). There is no .proto toolchain or gRPC client here: the wire
// format is JSON, so this talks net/http directly rather than generating
// a stub.
type client struct {
	baseURL string
	http    *http.Client
}

func getClient(ctx *cli.Context) *client {
	return &client{
		baseURL: "http://" + ctx.GlobalString("rpcserver"),
		http:    &http.Client{},
	}
}

func (c *client) do(method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return fmt.Errorf("swapd: %s", errBody.Error)
		}
		return fmt.Errorf("swapd: unexpected status %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printJSON(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(b))
}

// swapView mirrors swaphttp's get_swap response.
type swapView struct {
	SwapID string `json:"swap_id"`
	Role   string `json:"role"`
	Phase  string `json:"phase"`
	Failed bool   `json:"failed"`
}

// actionView mirrors swaphttp's get_actions response, one entry per
// actions.Action.
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

var getSwapCommand = cli.Command{
	Name:      "get-swap",
	Category:  "Swaps",
	Usage:     "Show a swap's current state.",
	ArgsUsage: "swap-id",
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "wait-terminal",
			Usage: "block until the swap reaches a terminal outcome",
		},
	},
	Action: actionDecorator(getSwap),
}

func getSwap(ctx *cli.Context) error {
	swapID := ctx.Args().First()
	if swapID == "" {
		return fmt.Errorf("swap-id argument required")
	}

	c := getClient(ctx)
	path := "/swaps/" + swapID
	if ctx.Bool("wait-terminal") {
		path += "?wait=terminal"
	}

	var view swapView
	if err := c.do(http.MethodGet, path, nil, &view); err != nil {
		return err
	}
	printJSON(view)
	return nil
}

var getActionsCommand = cli.Command{
	Name:      "get-actions",
	Category:  "Swaps",
	Usage:     "List the actions currently available for a swap.",
	ArgsUsage: "swap-id",
	Action:    actionDecorator(getActions),
}

func getActions(ctx *cli.Context) error {
	swapID := ctx.Args().First()
	if swapID == "" {
		return fmt.Errorf("swap-id argument required")
	}

	c := getClient(ctx)
	var views []actionView
	if err := c.do(http.MethodGet, "/swaps/"+swapID+"/actions", nil, &views); err != nil {
		return err
	}
	printJSON(views)
	return nil
}

var acceptCommand = cli.Command{
	Name:      "accept",
	Category:  "Swaps",
	Usage:     "Accept a proposed swap.",
	ArgsUsage: "swap-id",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "alpha_redeem_identity",
			Usage: "hex-encoded identity that will redeem the alpha leg",
		},
		cli.StringFlag{
			Name:  "beta_refund_identity",
			Usage: "hex-encoded identity that will refund the beta leg",
		},
	},
	Action: actionDecorator(accept),
}

func accept(ctx *cli.Context) error {
	swapID := ctx.Args().First()
	if swapID == "" {
		return fmt.Errorf("swap-id argument required")
	}

	body := struct {
		AlphaRedeemIdentity string `json:"alpha_redeem_identity"`
		BetaRefundIdentity  string `json:"beta_refund_identity"`
	}{
		AlphaRedeemIdentity: ctx.String("alpha_redeem_identity"),
		BetaRefundIdentity:  ctx.String("beta_refund_identity"),
	}

	c := getClient(ctx)
	var view swapView
	if err := c.do(http.MethodPost, "/swaps/"+swapID+"/accept", body, &view); err != nil {
		return err
	}
	printJSON(view)
	return nil
}

var declineCommand = cli.Command{
	Name:      "decline",
	Category:  "Swaps",
	Usage:     "Decline a proposed swap.",
	ArgsUsage: "swap-id",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "reason",
			Usage: "human-readable decline reason",
		},
	},
	Action: actionDecorator(decline),
}

func decline(ctx *cli.Context) error {
	swapID := ctx.Args().First()
	if swapID == "" {
		return fmt.Errorf("swap-id argument required")
	}

	body := struct {
		Reason string `json:"reason"`
	}{Reason: ctx.String("reason")}

	c := getClient(ctx)
	var view swapView
	if err := c.do(http.MethodPost, "/swaps/"+swapID+"/decline", body, &view); err != nil {
		return err
	}
	printJSON(view)
	return nil
}

// actionDecorator mirrors lncli's decorator shape, reduced since there is
// no gRPC status code to special-case over a plain JSON error body.
func actionDecorator(f func(*cli.Context) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		return f(c)
	}
}
