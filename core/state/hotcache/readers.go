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

package hotcache

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
)

// StateReader provides read access to contract storage.
type StateReader interface {
	GetState(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error)
}

// StateDBReader adapts a state.StateDB. Reads are serialized because the
// state database is not safe for concurrent use.
type StateDBReader struct {
	mu sync.Mutex
	db *state.StateDB
}

// NewStateDBReader creates a StateReader from a StateDB.
func NewStateDBReader(db *state.StateDB) *StateDBReader {
	return &StateDBReader{db: db}
}

// GetState implements StateReader.
func (r *StateDBReader) GetState(_ context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.GetState(addr, slot), nil
}

// ClientReader reads storage over a chain client at a fixed block. A nil
// block reads the latest state.
type ClientReader struct {
	client ethereum.ChainStateReader
	block  *big.Int
}

// NewClientReader creates a StateReader backed by a chain client.
func NewClientReader(client ethereum.ChainStateReader, block *big.Int) *ClientReader {
	return &ClientReader{client: client, block: block}
}

// GetState implements StateReader.
func (r *ClientReader) GetState(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	value, err := r.client.StorageAt(ctx, addr, slot, r.block)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(value), nil
}
