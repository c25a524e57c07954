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

package core

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/unisave/unisave-go/core/state/hotcache"
)

var (
	ErrHotCacheDisabled = errors.New("hot cache is disabled")
	ErrHotCacheNotFound = errors.New("contract not in hot cache")
)

// ChainReader is the chain access needed to refresh the hot cache.
type ChainReader interface {
	ethereum.ChainStateReader
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// AttachHotCache makes cache follow the exchange: the factory is watched and
// decoded, the router is watched for raw slot access.
func (ex *Exchange) AttachHotCache(cache *hotcache.Cache) {
	ex.hotCache = cache
	if ex.Factory != nil {
		cache.RegisterDecoder(ex.Factory.Address, &hotcache.FactoryDecoder{})
		cache.Watch(ex.Factory.Address)
	}
	if ex.Router != nil {
		cache.Watch(ex.Router.Address)
	}
}

// HotCache returns the attached hot state cache, or nil if none is attached
// or it is disabled.
func (ex *Exchange) HotCache() *hotcache.Cache {
	if ex.hotCache == nil || !ex.hotCache.IsEnabled() {
		return nil
	}
	return ex.hotCache
}

// RefreshHotCache reads the watched contracts at the latest block.
func (ex *Exchange) RefreshHotCache(ctx context.Context, chain ChainReader) error {
	cache := ex.HotCache()
	if cache == nil {
		return ErrHotCacheDisabled
	}
	header, err := chain.HeaderByNumber(ctx, nil)
	if err != nil {
		return err
	}
	return cache.Update(ctx, header, hotcache.NewClientReader(chain, header.Number))
}

// HotCacheSnapshot returns the current hot cache snapshot.
func (ex *Exchange) HotCacheSnapshot() (*hotcache.Snapshot, error) {
	cache := ex.HotCache()
	if cache == nil {
		return nil, ErrHotCacheDisabled
	}
	return cache.GetSnapshot(), nil
}

// HotCachedContractState returns the cached state of a contract.
func (ex *Exchange) HotCachedContractState(addr common.Address) (*hotcache.ContractState, error) {
	cache := ex.HotCache()
	if cache == nil {
		return nil, ErrHotCacheDisabled
	}
	state, err := cache.GetContractState(addr)
	if errors.Is(err, hotcache.ErrNotFound) {
		return nil, ErrHotCacheNotFound
	}
	return state, err
}

// HotCachedFactoryState returns the decoded factory state from the cache.
func (ex *Exchange) HotCachedFactoryState() (*hotcache.FactoryState, error) {
	if ex.Factory == nil {
		return nil, ErrNoFactory
	}
	cache := ex.HotCache()
	if cache == nil {
		return nil, ErrHotCacheDisabled
	}
	state, err := cache.GetFactoryState(ex.Factory.Address)
	if errors.Is(err, hotcache.ErrNotFound) {
		return nil, ErrHotCacheNotFound
	}
	return state, err
}

// HotCacheStatistics returns the counters of the attached cache.
func (ex *Exchange) HotCacheStatistics() (hotcache.Statistics, error) {
	cache := ex.HotCache()
	if cache == nil {
		return hotcache.Statistics{}, ErrHotCacheDisabled
	}
	return cache.GetStatistics(), nil
}
