// Copyright 2024 The unisave-go Authors
// This file is part of the unisave-go library.
//
// The unisave-go library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The unisave-go library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the unisave-go library. If not, see <http://www.gnu.org/licenses/>.

// unisave deploys and inspects exchange contracts.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML or YAML configuration file",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "Write logs to a size-rotated file instead of the terminal",
	}
	rpcFlag = &cli.StringFlag{
		Name:  "rpc",
		Usage: "JSON-RPC endpoint of the target chain",
	}
	keyFlag = &cli.StringFlag{
		Name:  "key",
		Usage: "File holding the hex-encoded deployer private key",
	}
	simFlag = &cli.BoolFlag{
		Name:  "sim",
		Usage: "Use an in-process simulated chain with funded wallets",
	}
	walletsFlag = &cli.IntFlag{
		Name:  "sim.wallets",
		Usage: "Number of funded wallets on the simulated chain",
		Value: 2,
	}
	artifactsFlag = &cli.StringFlag{
		Name:  "artifacts",
		Usage: "Directory with the compiled WETH9, factory and router artifacts",
	}
	gasLimitFlag = &cli.Uint64Flag{
		Name:  "gaslimit",
		Usage: "Fixed gas limit for deployments (0 = estimate)",
	}
	ledgerFlag = &cli.StringFlag{
		Name:  "ledger",
		Usage: "SQLite deployment ledger",
	}
	hotCacheFlag = &cli.BoolFlag{
		Name:  "hotcache",
		Usage: "Read the deployed factory back through the hot state cache",
	}
)

// configFlags are the flags that override configuration file values.
var configFlags = []cli.Flag{
	rpcFlag,
	keyFlag,
	simFlag,
	walletsFlag,
	artifactsFlag,
	gasLimitFlag,
	ledgerFlag,
	hotCacheFlag,
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "unisave",
		Usage: "deploy and inspect Unisave exchange contracts",
		Flags: []cli.Flag{
			configFileFlag,
			verbosityFlag,
			logFileFlag,
		},
		Commands: []*cli.Command{
			deployCommand,
			verifyCommand,
			abiCommand,
			ledgerCommand,
			dumpConfigCommand,
		},
		Before: setupLogging,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
