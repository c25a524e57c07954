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

package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/unisave/unisave-go/contracts/artifact"
	"github.com/unisave/unisave-go/contracts/deploy"
	"github.com/unisave/unisave-go/core"
	"github.com/unisave/unisave-go/core/ledger"
	"github.com/unisave/unisave-go/core/state/hotcache"
	"github.com/unisave/unisave-go/internal/simchain"
	"github.com/unisave/unisave-go/internal/testcontracts"
)

var (
	factoryFlag = &cli.StringFlag{
		Name:     "factory",
		Usage:    "Address of the deployed factory",
		Required: true,
	}
	routerFlag = &cli.StringFlag{
		Name:  "router",
		Usage: "Address of the deployed router (router checks are skipped when empty)",
	}
	deployerFlag = &cli.StringFlag{
		Name:  "deployer",
		Usage: "Account expected to hold the fee roles (defaults to the --key account)",
	}
)

var deployCommand = &cli.Command{
	Action: deployExchange,
	Name:   "deploy",
	Usage:  "Deploy the wrapped native token, the factory and the router",
	Flags:  configFlags,
	Description: `
Deploys WETH9, the pair factory and the router, in that order, then checks that
the router points at the factory and that the deployer holds both fee roles.
With --sim the contracts go to an in-process chain; without --artifacts the
built-in stand-in contracts are used there.`,
}

var verifyCommand = &cli.Command{
	Action: verifyExchange,
	Name:   "verify",
	Usage:  "Check the initial state of deployed exchange contracts",
	Flags:  []cli.Flag{rpcFlag, keyFlag, factoryFlag, routerFlag, deployerFlag},
}

// chain is an open connection to the deployment target.
type chain struct {
	backend deploy.Backend
	reader  core.ChainReader
	key     *ecdsa.PrivateKey
	close   func()
}

func openChain(ctx context.Context, cfg chainConfig) (*chain, error) {
	if cfg.Simulated {
		provider := simchain.New(cfg.Wallets)
		log.Info("Started simulated chain", "wallets", cfg.Wallets)
		return &chain{
			backend: provider.Backend(),
			reader:  provider.Backend(),
			key:     provider.Wallets()[0].Key,
			close:   func() { provider.Close() },
		}, nil
	}
	if cfg.RPC == "" {
		return nil, errors.New("either --rpc or --sim is required")
	}
	var key *ecdsa.PrivateKey
	if cfg.KeyFile != "" {
		var err error
		if key, err = crypto.LoadECDSA(cfg.KeyFile); err != nil {
			return nil, fmt.Errorf("failed to load key: %w", err)
		}
	}
	client, err := ethclient.DialContext(ctx, cfg.RPC)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.RPC, err)
	}
	return &chain{backend: client, reader: client, key: key, close: client.Close}, nil
}

func loadArtifacts(cfg unisaveConfig) (*artifact.Set, error) {
	if cfg.Deploy.Artifacts != "" {
		return artifact.LoadSet(cfg.Deploy.Artifacts)
	}
	if cfg.Chain.Simulated {
		log.Warn("No artifacts given, deploying stand-in contracts")
		return testcontracts.Set(), nil
	}
	return nil, errors.New("--artifacts is required outside the simulated chain")
}

// deployExchange is the deploy command.
func deployExchange(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	c, err := openChain(ctx.Context, cfg.Chain)
	if err != nil {
		return err
	}
	defer c.close()
	if c.key == nil {
		return errors.New("--key is required to deploy")
	}
	set, err := loadArtifacts(cfg)
	if err != nil {
		return err
	}

	d, err := deploy.NewDeployer(ctx.Context, c.backend, c.key)
	if err != nil {
		return err
	}
	if cfg.Deploy.GasLimit > 0 {
		d.SetGasLimit(cfg.Deploy.GasLimit)
	}
	ex, err := core.DeployExchange(ctx.Context, d, set)
	if err != nil {
		return err
	}
	if cfg.HotCache.Enabled {
		if err := readThroughHotCache(ctx.Context, ex, cfg.HotCache, c.reader); err != nil {
			return err
		}
	}
	if err := ex.Verify(ctx.Context); err != nil {
		return err
	}
	if cfg.Ledger.Path != "" {
		l, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return err
		}
		defer l.Close()
		if err := ex.Record(ctx.Context, l); err != nil {
			return err
		}
		log.Info("Recorded deployment", "run", ex.RunID, "ledger", cfg.Ledger.Path)
	}
	printExchange(ctx.App.Writer, ex)
	return nil
}

// readThroughHotCache loads the new factory into a hot cache and checks the
// cached slots against the chain.
func readThroughHotCache(ctx context.Context, ex *core.Exchange, config hotcache.Config, reader core.ChainReader) error {
	ex.AttachHotCache(hotcache.New(config))
	if err := ex.RefreshHotCache(ctx, reader); err != nil {
		return err
	}
	state, err := ex.HotCachedFactoryState()
	if err != nil {
		return err
	}
	log.Info("Cached factory state", "feeTo", state.FeeTo, "feeToSetter", state.FeeToSetter, "pairs", state.AllPairsLength)
	return ex.HotCache().Validate(ctx, hotcache.NewClientReader(reader, nil))
}

func printExchange(w io.Writer, ex *core.Exchange) {
	fmt.Fprintf(w, "Run %s on chain %d, deployer %s\n", ex.RunID, ex.ChainID, ex.Deployer.Hex())

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Contract", "Address", "Transaction", "Block"})
	for _, c := range ex.Contracts() {
		table.Append([]string{c.Name, c.Address.Hex(), c.TxHash.Hex(), strconv.FormatUint(c.Block, 10)})
	}
	table.Render()
}

func parseAddressFlag(ctx *cli.Context, flag *cli.StringFlag) (common.Address, error) {
	s := ctx.String(flag.Name)
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid --%s address %q", flag.Name, s)
	}
	return common.HexToAddress(s), nil
}

// verifyExchange is the verify command.
func verifyExchange(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	factory, err := parseAddressFlag(ctx, factoryFlag)
	if err != nil {
		return err
	}
	router, err := parseAddressFlag(ctx, routerFlag)
	if err != nil {
		return err
	}
	deployer, err := parseAddressFlag(ctx, deployerFlag)
	if err != nil {
		return err
	}
	c, err := openChain(ctx.Context, cfg.Chain)
	if err != nil {
		return err
	}
	defer c.close()

	if deployer == (common.Address{}) {
		if c.key == nil {
			return errors.New("either --deployer or --key is required")
		}
		deployer = crypto.PubkeyToAddress(c.key.PublicKey)
	}
	return runVerify(ctx.Context, ctx.App.Writer, c.backend, deployer, factory, router)
}

// runVerify binds the given contracts and reports every initial-state check
// that fails.
func runVerify(ctx context.Context, w io.Writer, backend deploy.Backend, deployer, factory, router common.Address) error {
	ex, err := core.BindExchange(ctx, backend, deployer, factory, router)
	if err != nil {
		return err
	}
	err = ex.Verify(ctx)

	var verr *core.VerificationError
	switch {
	case err == nil:
		color.New(color.FgGreen).Fprintln(w, "PASS", "exchange at", factory.Hex(), "is in its initial state")
		return nil
	case errors.As(err, &verr):
		for _, failure := range verr.Failures {
			color.New(color.FgRed).Fprintln(w, "FAIL", failure)
		}
	}
	return err
}
