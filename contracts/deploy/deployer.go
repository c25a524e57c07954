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

// Package deploy puts compiled contracts on chain and reads them back.
package deploy

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/unisave/unisave-go/contracts/artifact"
)

var (
	ErrDeployReverted  = errors.New("deployment reverted")
	ErrNoCode          = errors.New("no code at deployed address")
	ErrConstructorArgs = errors.New("invalid constructor arguments")
)

var (
	deployCounter = metrics.NewRegisteredCounter("deploy/contracts", nil)
	callCounter   = metrics.NewRegisteredCounter("deploy/calls", nil)
	deployTimer   = metrics.NewRegisteredTimer("deploy/duration", nil)
)

// Backend is the chain access needed to deploy and query contracts. Both
// ethclient.Client and the simulated client satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Committer is implemented by simulated backends that only mine on request.
type Committer interface {
	Commit() common.Hash
}

// Deployer sends creation transactions signed by a single key.
type Deployer struct {
	backend Backend
	opts    *bind.TransactOpts
}

// NewDeployer binds a signing key to the backend's chain.
func NewDeployer(ctx context.Context, backend Backend, key *ecdsa.PrivateKey) (*Deployer, error) {
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve chain id: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, err
	}
	return &Deployer{backend: backend, opts: opts}, nil
}

// From returns the deploying account.
func (d *Deployer) From() common.Address {
	return d.opts.From
}

// Backend returns the chain the deployer sends to.
func (d *Deployer) Backend() Backend {
	return d.backend
}

// SetGasLimit fixes the gas limit of creation transactions. Zero restores
// estimation.
func (d *Deployer) SetGasLimit(limit uint64) {
	d.opts.GasLimit = limit
}

// Deploy creates a contract from art with the given constructor arguments
// and waits until it is mined. The returned handle is bound to the new
// address.
func (d *Deployer) Deploy(ctx context.Context, art *artifact.Artifact, args ...interface{}) (*Contract, error) {
	if !art.Deployable() {
		return nil, fmt.Errorf("%w: %s", artifact.ErrNoBytecode, art.Name)
	}
	if _, err := art.ABI.Pack("", args...); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConstructorArgs, art.Name, err)
	}
	start := time.Now()

	opts := *d.opts
	opts.Context = ctx
	addr, tx, bound, err := bind.DeployContract(&opts, art.ABI, art.Bytecode, d.backend, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", art.Name, err)
	}
	if c, ok := d.backend.(Committer); ok {
		c.Commit()
	}
	receipt, err := bind.WaitMined(ctx, d.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for %s deployment: %w", art.Name, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s (tx %s)", ErrDeployReverted, art.Name, tx.Hash().Hex())
	}
	code, err := d.backend.CodeAt(ctx, addr, receipt.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s code: %w", art.Name, err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: %s at %s", ErrNoCode, art.Name, addr.Hex())
	}
	deployCounter.Inc(1)
	deployTimer.UpdateSince(start)

	log.Info("Deployed contract", "name", art.Name, "address", addr, "tx", tx.Hash(),
		"block", receipt.BlockNumber, "gas", receipt.GasUsed, "elapsed", common.PrettyDuration(time.Since(start)))

	return &Contract{
		Name:    art.Name,
		Address: addr,
		TxHash:  tx.Hash(),
		Block:   receipt.BlockNumber.Uint64(),
		abi:     art.ABI,
		bound:   bound,
	}, nil
}
