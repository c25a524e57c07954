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

// Package simchain runs an in-process simulated chain with deterministic,
// pre-funded wallets for deployment tests.
package simchain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
)

// DefaultBalance is the genesis balance of every wallet: one million ether.
var DefaultBalance = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1e18))

// Wallet is a funded externally owned account.
type Wallet struct {
	Key     *ecdsa.PrivateKey
	Address common.Address
}

// Backend is the simulated client plus the ability to mine pending
// transactions on demand.
type Backend struct {
	simulated.Client
	sim *simulated.Backend
}

// Commit seals a block with all pending transactions.
func (b *Backend) Commit() common.Hash {
	return b.sim.Commit()
}

// Provider owns a simulated chain and its wallets.
type Provider struct {
	sim     *simulated.Backend
	backend *Backend
	wallets []*Wallet
}

// New starts a simulated chain with n funded wallets. Wallet keys depend only
// on their index, so addresses are stable across runs.
func New(n int) *Provider {
	wallets := make([]*Wallet, n)
	alloc := make(types.GenesisAlloc, n)
	for i := range wallets {
		key := WalletKey(i)
		w := &Wallet{Key: key, Address: crypto.PubkeyToAddress(key.PublicKey)}
		wallets[i] = w
		alloc[w.Address] = types.Account{Balance: new(big.Int).Set(DefaultBalance)}
	}
	sim := simulated.NewBackend(alloc)
	return &Provider{
		sim:     sim,
		backend: &Backend{Client: sim.Client(), sim: sim},
		wallets: wallets,
	}
}

// WalletKey derives the private key of wallet i.
func WalletKey(i int) *ecdsa.PrivateKey {
	seed := crypto.Keccak256([]byte(fmt.Sprintf("unisave simchain wallet %d", i)))
	key, err := crypto.ToECDSA(seed)
	if err != nil {
		panic(err)
	}
	return key
}

// Wallets returns the funded wallets in index order.
func (p *Provider) Wallets() []*Wallet {
	return p.wallets
}

// Backend returns the chain client.
func (p *Provider) Backend() *Backend {
	return p.backend
}

// Commit seals a block with all pending transactions.
func (p *Provider) Commit() common.Hash {
	return p.sim.Commit()
}

// Close stops the chain.
func (p *Provider) Close() error {
	return p.sim.Close()
}
