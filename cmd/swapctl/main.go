package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

const (
	defaultRpcPort     = "8080"
	defaultRpcHostPort = "localhost:" + defaultRpcPort
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[swapctl] %v\n", err)
	os.Exit(1)
}

func main() {
	app := cli.NewApp()
	app.Name = "swapctl"
	app.Usage = "control plane for swapd"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rpcserver",
			Value: defaultRpcHostPort,
			Usage: "host:port of swapd's HTTP surface",
		},
	}
	app.Commands = []cli.Command{
		getSwapCommand,
		getActionsCommand,
		acceptCommand,
		declineCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
