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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCache(t *testing.T) {
	cache := New(Config{
		Enabled:      true,
		Watchlist:    []common.Address{common.HexToAddress("0x1")},
		ShadowMode:   true,
		MaxSnapshots: 64,
	})
	require.NotNil(t, cache)

	assert.True(t, cache.IsEnabled())
	assert.True(t, cache.IsWatched(common.HexToAddress("0x1")))
	assert.False(t, cache.IsWatched(common.HexToAddress("0x2")))
}

func TestNewCacheDefaults(t *testing.T) {
	cache := New(Config{Enabled: true})
	assert.Equal(t, 64, cache.config.MaxSnapshots)
	assert.Equal(t, 8, cache.config.Concurrency)
}

func TestCacheDisabledByDefault(t *testing.T) {
	assert.False(t, New(DefaultConfig()).IsEnabled())
}

func TestWatchUnwatch(t *testing.T) {
	cache := New(Config{Enabled: true})
	a, b := common.HexToAddress("0xa"), common.HexToAddress("0xb")

	cache.Watch(a, b)
	assert.ElementsMatch(t, []common.Address{a, b}, cache.watched())

	cache.Unwatch(a)
	assert.False(t, cache.IsWatched(a))
	assert.True(t, cache.IsWatched(b))
}

func TestGetSnapshot(t *testing.T) {
	snapshot := New(Config{Enabled: true}).GetSnapshot()
	require.NotNil(t, snapshot)
	assert.Zero(t, snapshot.BlockNumber)
	assert.Empty(t, snapshot.Contracts)
}

func TestGetContractState(t *testing.T) {
	cache := New(Config{Enabled: true})
	addr := common.HexToAddress("0x1")

	_, err := cache.GetContractState(addr)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = cache.GetRawSlot(addr, common.Hash{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = cache.GetFactoryState(addr)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = cache.GetPairState(addr)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterDecoder(t *testing.T) {
	cache := New(Config{Enabled: true})
	addr := common.HexToAddress("0x1")

	_, ok := cache.decoder(addr)
	assert.False(t, ok)

	cache.RegisterDecoder(addr, &PairDecoder{})
	d, ok := cache.decoder(addr)
	require.True(t, ok)
	assert.Equal(t, ContractTypePair, d.Type())
}

func TestGetStatistics(t *testing.T) {
	cache := New(Config{Enabled: true})
	assert.Equal(t, Statistics{}, cache.GetStatistics())

	cache.GetContractState(common.HexToAddress("0x1"))
	cache.GetContractState(common.HexToAddress("0x2"))
	assert.Equal(t, uint64(2), cache.GetStatistics().Misses)
	assert.Zero(t, cache.GetStatistics().Hits)
}

func TestContractTypeString(t *testing.T) {
	assert.Equal(t, "Factory", ContractTypeFactory.String())
	assert.Equal(t, "Pair", ContractTypePair.String())
	assert.Equal(t, "Unknown", ContractTypeUnknown.String())
	assert.Equal(t, "Unknown", ContractType(42).String())
}

func BenchmarkGetSnapshot(b *testing.B) {
	config := Config{Enabled: true, Watchlist: make([]common.Address, 100)}
	for i := range config.Watchlist {
		config.Watchlist[i] = common.BigToAddress(common.Big1)
	}
	cache := New(config)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cache.GetSnapshot()
	}
}

func BenchmarkGetContractState(b *testing.B) {
	addr := common.HexToAddress("0x1")
	cache := New(Config{Enabled: true, Watchlist: []common.Address{addr}})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = cache.GetContractState(addr)
	}
}
