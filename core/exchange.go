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

// Package core stands up an exchange (wrapped native token, pair factory and
// router) and checks that the deployed contracts start out consistent.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/unisave/unisave-go/contracts/abis"
	"github.com/unisave/unisave-go/contracts/artifact"
	"github.com/unisave/unisave-go/contracts/deploy"
	"github.com/unisave/unisave-go/core/ledger"
	"github.com/unisave/unisave-go/core/state/hotcache"
)

var (
	ErrNoRouter  = errors.New("router not deployed")
	ErrNoFactory = errors.New("factory not deployed")
)

// Exchange is a deployed set of exchange contracts.
type Exchange struct {
	WETH    *deploy.Contract
	Factory *deploy.Contract
	Router  *deploy.Contract

	Deployer common.Address
	ChainID  uint64
	RunID    uuid.UUID

	hotCache *hotcache.Cache
}

// DeployBase deploys the wrapped native token and the factory, in that
// order. The router is left for DeployRouter.
func DeployBase(ctx context.Context, d *deploy.Deployer, set *artifact.Set) (*Exchange, error) {
	chainID, err := d.Backend().ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve chain id: %w", err)
	}
	ex := &Exchange{
		Deployer: d.From(),
		ChainID:  chainID.Uint64(),
		RunID:    uuid.New(),
	}
	log.Info("Deploying exchange", "run", ex.RunID, "chain", ex.ChainID, "deployer", ex.Deployer)

	if ex.WETH, err = d.Deploy(ctx, set.WETH9); err != nil {
		return nil, err
	}
	if ex.Factory, err = d.Deploy(ctx, set.Factory, factoryArgs(set.Factory.ABI, ex.Deployer)...); err != nil {
		return nil, err
	}
	return ex, nil
}

// factoryArgs supplies the deployer as fee setter to factories whose
// constructor takes one. Factories that record msg.sender take no arguments.
func factoryArgs(parsed abi.ABI, deployer common.Address) []interface{} {
	inputs := parsed.Constructor.Inputs
	if len(inputs) == 1 && inputs[0].Type.T == abi.AddressTy {
		return []interface{}{deployer}
	}
	return nil
}

// DeployRouter deploys the router against the exchange's factory and
// wrapped native token.
func (ex *Exchange) DeployRouter(ctx context.Context, d *deploy.Deployer, art *artifact.Artifact) error {
	if ex.Factory == nil || ex.WETH == nil {
		return ErrNoFactory
	}
	log.Info("Deploying router", "factory", ex.Factory.Address, "weth", ex.WETH.Address)

	router, err := d.Deploy(ctx, art, ex.Factory.Address, ex.WETH.Address)
	if err != nil {
		return err
	}
	ex.Router = router
	if ex.hotCache != nil {
		ex.hotCache.Watch(router.Address)
	}
	return nil
}

// DeployExchange deploys all three contracts sequentially.
func DeployExchange(ctx context.Context, d *deploy.Deployer, set *artifact.Set) (*Exchange, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	ex, err := DeployBase(ctx, d, set)
	if err != nil {
		return nil, err
	}
	if err := ex.DeployRouter(ctx, d, set.Router); err != nil {
		return nil, err
	}
	return ex, nil
}

// BindExchange returns an exchange made of contracts that are already
// deployed. The wrapped native token is looked up through the router; a zero
// router address binds the factory alone.
func BindExchange(ctx context.Context, backend deploy.Backend, deployer, factory, router common.Address) (*Exchange, error) {
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve chain id: %w", err)
	}
	ex := &Exchange{
		Factory:  deploy.Bind(artifact.FactoryName, factory, abis.FactoryInterface.ABI(), backend),
		Deployer: deployer,
		ChainID:  chainID.Uint64(),
		RunID:    uuid.New(),
	}
	if router == (common.Address{}) {
		return ex, nil
	}
	ex.Router = deploy.Bind(artifact.RouterName, router, abis.Router02Interface.ABI(), backend)
	weth, err := ex.RouterWETH(ctx)
	if err != nil {
		return nil, err
	}
	ex.WETH = deploy.Bind(artifact.WETH9Name, weth, abis.WETH9Interface.ABI(), backend)
	return ex, nil
}

// Contracts returns the deployed contracts in deployment order.
func (ex *Exchange) Contracts() []*deploy.Contract {
	var out []*deploy.Contract
	for _, c := range []*deploy.Contract{ex.WETH, ex.Factory, ex.Router} {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// RouterFactory returns the factory address stored in the router.
func (ex *Exchange) RouterFactory(ctx context.Context) (common.Address, error) {
	if ex.Router == nil {
		return common.Address{}, ErrNoRouter
	}
	return ex.Router.CallAddress(ctx, "factory")
}

// RouterWETH returns the wrapped native token address stored in the router.
func (ex *Exchange) RouterWETH(ctx context.Context) (common.Address, error) {
	if ex.Router == nil {
		return common.Address{}, ErrNoRouter
	}
	return ex.Router.CallAddress(ctx, "WETH")
}

// FeeTo returns the factory's protocol fee recipient.
func (ex *Exchange) FeeTo(ctx context.Context) (common.Address, error) {
	if ex.Factory == nil {
		return common.Address{}, ErrNoFactory
	}
	return ex.Factory.CallAddress(ctx, "feeTo")
}

// FeeToSetter returns the account allowed to change the fee recipient.
func (ex *Exchange) FeeToSetter(ctx context.Context) (common.Address, error) {
	if ex.Factory == nil {
		return common.Address{}, ErrNoFactory
	}
	return ex.Factory.CallAddress(ctx, "feeToSetter")
}

// AllPairsLength returns the number of pairs the factory has created.
func (ex *Exchange) AllPairsLength(ctx context.Context) (uint64, error) {
	if ex.Factory == nil {
		return 0, ErrNoFactory
	}
	n, err := ex.Factory.CallBig(ctx, "allPairsLength")
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("allPairsLength %s out of range", n)
	}
	return n.Uint64(), nil
}

// VerificationError lists every failed initial-state check.
type VerificationError struct {
	Failures []error
}

func (e *VerificationError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, err := range e.Failures {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d check(s) failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}

func (e *VerificationError) Unwrap() []error {
	return e.Failures
}

// Verify checks the state a freshly deployed exchange must be in: the
// router points at the factory and the wrapped token, both fee roles belong
// to the deployer and no pair exists yet. Router checks are skipped when no
// router has been deployed.
func (ex *Exchange) Verify(ctx context.Context) error {
	if ex.Factory == nil {
		return ErrNoFactory
	}
	var failures []error
	check := func(err error) {
		if err != nil {
			failures = append(failures, err)
		}
	}
	if ex.Router != nil {
		check(deploy.ExpectAddress(ctx, ex.Router, "factory", ex.Factory.Address))
		if ex.WETH != nil {
			check(deploy.ExpectAddress(ctx, ex.Router, "WETH", ex.WETH.Address))
		}
	}
	check(deploy.ExpectAddress(ctx, ex.Factory, "feeToSetter", ex.Deployer))
	check(deploy.ExpectAddress(ctx, ex.Factory, "feeTo", ex.Deployer))
	check(deploy.ExpectUint(ctx, ex.Factory, "allPairsLength", 0))

	if len(failures) > 0 {
		log.Warn("Exchange verification failed", "run", ex.RunID, "failures", len(failures), "err", errors.Join(failures...))
		return &VerificationError{Failures: failures}
	}
	log.Info("Exchange verified", "run", ex.RunID, "factory", ex.Factory.Address, "router", routerAddress(ex))
	return nil
}

func routerAddress(ex *Exchange) common.Address {
	if ex.Router == nil {
		return common.Address{}
	}
	return ex.Router.Address
}

// Record stores every deployed contract of the exchange in the ledger under
// the exchange's run id.
func (ex *Exchange) Record(ctx context.Context, l *ledger.Ledger) error {
	for _, c := range ex.Contracts() {
		err := l.Record(ctx, ledger.Deployment{
			RunID:    ex.RunID,
			ChainID:  ex.ChainID,
			Name:     c.Name,
			Address:  c.Address,
			TxHash:   c.TxHash,
			Deployer: ex.Deployer,
			Block:    c.Block,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
