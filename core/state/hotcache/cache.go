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

// Package hotcache keeps the decoded storage of a watchlist of exchange
// contracts (factories and pairs) in memory. Every processed block produces
// an immutable snapshot; readers load the current one without locking.
package hotcache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	ErrNotFound          = errors.New("contract not in cache")
	ErrNotWatched        = errors.New("contract not in watchlist")
	ErrInconsistentState = errors.New("cache state inconsistent with canonical state")
	ErrMissingSlot       = errors.New("missing storage slot")
)

var (
	hitMeter        = metrics.NewRegisteredMeter("hotcache/hits", nil)
	missMeter       = metrics.NewRegisteredMeter("hotcache/misses", nil)
	updateTimer     = metrics.NewRegisteredTimer("hotcache/update", nil)
	validationMeter = metrics.NewRegisteredMeter("hotcache/validation/errors", nil)
)

// Config contains configuration for the hot state cache.
type Config struct {
	// Enabled controls whether the cache is active
	Enabled bool

	// Watchlist is the initial list of contract addresses to cache
	Watchlist []common.Address

	// ShadowMode enables validation against canonical state
	ShadowMode bool

	// MaxSnapshots is the number of historical snapshots kept for reorgs
	MaxSnapshots int

	// Concurrency bounds the number of contracts read in parallel per update
	Concurrency int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		Watchlist:    []common.Address{},
		ShadowMode:   true,
		MaxSnapshots: 64,
		Concurrency:  8,
	}
}

// Cache maintains an in-memory cache of exchange contract state.
type Cache struct {
	config Config

	// Current snapshot, swapped atomically on every update
	current atomic.Pointer[Snapshot]

	// Historical snapshots for reorg handling, keyed by block hash
	snapshots  map[common.Hash]*Snapshot
	snapshotMu sync.RWMutex

	watchlist map[common.Address]bool
	watchMu   sync.RWMutex

	decoders  map[common.Address]ContractDecoder
	decoderMu sync.RWMutex

	stats counters
}

type counters struct {
	hits             atomic.Uint64
	misses           atomic.Uint64
	updates          atomic.Uint64
	validationErrors atomic.Uint64
	reorgs           atomic.Uint64
}

// Statistics is a point-in-time copy of the cache counters.
type Statistics struct {
	Hits             uint64
	Misses           uint64
	Updates          uint64
	ValidationErrors uint64
	Reorgs           uint64
}

// Snapshot is a point-in-time view of cached contract states. Snapshots are
// never modified once published.
type Snapshot struct {
	BlockNumber uint64
	BlockHash   common.Hash
	BlockTime   uint64

	Contracts map[common.Address]*ContractState
}

// ContractState holds the cached state of a single contract.
type ContractState struct {
	Address common.Address
	Type    ContractType

	// Raw storage slots (always populated for decoded contracts)
	RawSlots map[common.Hash]common.Hash

	// Decoded state, nil when no decoder is registered
	Decoded interface{}

	LastUpdated uint64 // block number
}

// ContractType identifies the contract type for specialized decoding.
type ContractType uint8

const (
	ContractTypeUnknown ContractType = iota
	ContractTypeFactory
	ContractTypePair
)

func (t ContractType) String() string {
	switch t {
	case ContractTypeFactory:
		return "Factory"
	case ContractTypePair:
		return "Pair"
	default:
		return "Unknown"
	}
}

// ContractDecoder turns raw storage of one contract type into a structured
// value.
type ContractDecoder interface {
	// Type returns the contract type
	Type() ContractType

	// Decode decodes raw storage slots into a structured format
	Decode(slots map[common.Hash]common.Hash) (interface{}, error)

	// RequiredSlots returns the storage slots needed for decoding
	RequiredSlots() []common.Hash
}

// New creates a hot state cache with the given configuration.
func New(config Config) *Cache {
	if config.MaxSnapshots <= 0 {
		config.MaxSnapshots = 64
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	watchlist := make(map[common.Address]bool, len(config.Watchlist))
	for _, addr := range config.Watchlist {
		watchlist[addr] = true
	}
	cache := &Cache{
		config:    config,
		snapshots: make(map[common.Hash]*Snapshot),
		watchlist: watchlist,
		decoders:  make(map[common.Address]ContractDecoder),
	}
	cache.current.Store(&Snapshot{Contracts: make(map[common.Address]*ContractState)})

	if config.Enabled {
		log.Info("Hot state cache initialized",
			"watchlist", len(config.Watchlist),
			"shadowMode", config.ShadowMode,
			"maxSnapshots", config.MaxSnapshots)
	}
	return cache
}

// IsEnabled returns whether the cache is enabled.
func (c *Cache) IsEnabled() bool {
	return c.config.Enabled
}

// IsWatched returns whether an address is in the watchlist.
func (c *Cache) IsWatched(addr common.Address) bool {
	c.watchMu.RLock()
	defer c.watchMu.RUnlock()
	return c.watchlist[addr]
}

// Watch adds addresses to the watchlist. They are picked up by the next
// update.
func (c *Cache) Watch(addrs ...common.Address) {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	for _, addr := range addrs {
		c.watchlist[addr] = true
	}
}

// Unwatch removes an address from the watchlist.
func (c *Cache) Unwatch(addr common.Address) {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	delete(c.watchlist, addr)
}

func (c *Cache) watched() []common.Address {
	c.watchMu.RLock()
	defer c.watchMu.RUnlock()
	addrs := make([]common.Address, 0, len(c.watchlist))
	for addr := range c.watchlist {
		addrs = append(addrs, addr)
	}
	return addrs
}

// RegisterDecoder registers a decoder for a specific contract address.
func (c *Cache) RegisterDecoder(addr common.Address, decoder ContractDecoder) {
	c.decoderMu.Lock()
	defer c.decoderMu.Unlock()
	c.decoders[addr] = decoder
	log.Debug("Registered contract decoder", "address", addr, "type", decoder.Type())
}

func (c *Cache) decoder(addr common.Address) (ContractDecoder, bool) {
	c.decoderMu.RLock()
	defer c.decoderMu.RUnlock()
	d, ok := c.decoders[addr]
	return d, ok
}

// GetSnapshot returns the current cache snapshot.
func (c *Cache) GetSnapshot() *Snapshot {
	return c.current.Load()
}

// GetContractState returns the cached state for a specific contract.
func (c *Cache) GetContractState(addr common.Address) (*ContractState, error) {
	state, ok := c.GetSnapshot().Contracts[addr]
	if !ok {
		c.stats.misses.Add(1)
		missMeter.Mark(1)
		return nil, ErrNotFound
	}
	c.stats.hits.Add(1)
	hitMeter.Mark(1)
	return state, nil
}

// GetRawSlot returns a raw storage slot value for a contract.
func (c *Cache) GetRawSlot(addr common.Address, slot common.Hash) (common.Hash, error) {
	state, err := c.GetContractState(addr)
	if err != nil {
		return common.Hash{}, err
	}
	value, ok := state.RawSlots[slot]
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrMissingSlot, slot.Hex())
	}
	return value, nil
}

// GetFactoryState returns the decoded state of a cached factory.
func (c *Cache) GetFactoryState(addr common.Address) (*FactoryState, error) {
	state, err := c.GetContractState(addr)
	if err != nil {
		return nil, err
	}
	fs, ok := state.Decoded.(*FactoryState)
	if !ok {
		return nil, fmt.Errorf("contract %s is cached as %s, not a factory", addr.Hex(), state.Type)
	}
	return fs, nil
}

// GetPairState returns the decoded state of a cached pair.
func (c *Cache) GetPairState(addr common.Address) (*PairState, error) {
	state, err := c.GetContractState(addr)
	if err != nil {
		return nil, err
	}
	ps, ok := state.Decoded.(*PairState)
	if !ok {
		return nil, fmt.Errorf("contract %s is cached as %s, not a pair", addr.Hex(), state.Type)
	}
	return ps, nil
}

// GetStatistics returns a copy of the current cache statistics.
func (c *Cache) GetStatistics() Statistics {
	return Statistics{
		Hits:             c.stats.hits.Load(),
		Misses:           c.stats.misses.Load(),
		Updates:          c.stats.updates.Load(),
		ValidationErrors: c.stats.validationErrors.Load(),
		Reorgs:           c.stats.reorgs.Load(),
	}
}
