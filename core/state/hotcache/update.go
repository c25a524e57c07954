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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"
)

// Update reads the watched contracts at the given block and publishes the
// result as the current snapshot. Contracts that fail to read or decode are
// logged and left out of the snapshot.
func (c *Cache) Update(ctx context.Context, header *types.Header, reader StateReader) error {
	if !c.config.Enabled {
		return nil
	}
	start := time.Now()
	c.stats.updates.Add(1)

	number := header.Number.Uint64()
	snapshot := &Snapshot{
		BlockNumber: number,
		BlockHash:   header.Hash(),
		BlockTime:   header.Time,
		Contracts:   make(map[common.Address]*ContractState),
	}
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(c.config.Concurrency)
	for _, addr := range c.watched() {
		g.Go(func() error {
			state, err := c.updateContract(ctx, addr, number, reader)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn("Failed to update contract state", "address", addr, "block", number, "err", err)
				return nil
			}
			mu.Lock()
			snapshot.Contracts[addr] = state
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.snapshotMu.Lock()
	c.snapshots[snapshot.BlockHash] = snapshot
	c.cleanupOldSnapshots(number)
	c.snapshotMu.Unlock()

	c.current.Store(snapshot)
	updateTimer.UpdateSince(start)

	log.Debug("Hot cache updated", "block", number, "hash", snapshot.BlockHash, "contracts", len(snapshot.Contracts))
	return nil
}

// updateContract reads and decodes state for a single contract.
func (c *Cache) updateContract(ctx context.Context, addr common.Address, number uint64, reader StateReader) (*ContractState, error) {
	state := &ContractState{
		Address:     addr,
		Type:        ContractTypeUnknown,
		RawSlots:    make(map[common.Hash]common.Hash),
		LastUpdated: number,
	}
	decoder, ok := c.decoder(addr)
	if !ok {
		return state, nil
	}
	state.Type = decoder.Type()
	for _, slot := range decoder.RequiredSlots() {
		value, err := reader.GetState(ctx, addr, slot)
		if err != nil {
			return nil, fmt.Errorf("failed to read slot %s: %w", slot.Hex(), err)
		}
		state.RawSlots[slot] = value
	}
	decoded, err := decoder.Decode(state.RawSlots)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", decoder.Type(), err)
	}
	state.Decoded = decoded

	log.Trace("Contract state decoded", "address", addr, "type", decoder.Type(), "slots", len(state.RawSlots))
	return state, nil
}

// Validate checks every cached slot against the canonical state. It only
// runs in shadow mode.
func (c *Cache) Validate(ctx context.Context, reader StateReader) error {
	if !c.config.ShadowMode {
		return nil
	}
	snapshot := c.GetSnapshot()
	for _, cached := range snapshot.Contracts {
		if err := c.validateState(ctx, cached, reader); err != nil {
			return err
		}
	}
	log.Debug("Cache validation passed", "block", snapshot.BlockNumber)
	return nil
}

// ValidateContract validates a specific contract's cached state.
func (c *Cache) ValidateContract(ctx context.Context, addr common.Address, reader StateReader) error {
	if !c.config.ShadowMode {
		return nil
	}
	cached, err := c.GetContractState(addr)
	if err != nil {
		return err
	}
	return c.validateState(ctx, cached, reader)
}

func (c *Cache) validateState(ctx context.Context, cached *ContractState, reader StateReader) error {
	for slot, value := range cached.RawSlots {
		canonical, err := reader.GetState(ctx, cached.Address, slot)
		if err != nil {
			return err
		}
		if value != canonical {
			c.stats.validationErrors.Add(1)
			validationMeter.Mark(1)
			return fmt.Errorf("%w: contract=%s slot=%s cached=%s canonical=%s",
				ErrInconsistentState, cached.Address.Hex(), slot.Hex(), value.Hex(), canonical.Hex())
		}
	}
	return nil
}

// cleanupOldSnapshots drops snapshots more than MaxSnapshots blocks behind
// the current one. Must be called with snapshotMu held.
func (c *Cache) cleanupOldSnapshots(current uint64) {
	if len(c.snapshots) <= c.config.MaxSnapshots {
		return
	}
	var cutoff uint64
	if current > uint64(c.config.MaxSnapshots) {
		cutoff = current - uint64(c.config.MaxSnapshots)
	}
	for hash, snapshot := range c.snapshots {
		if snapshot.BlockNumber < cutoff {
			delete(c.snapshots, hash)
			log.Trace("Removed old snapshot", "block", snapshot.BlockNumber)
		}
	}
}

// HandleReorg rolls the cache back to the common ancestor of a chain
// reorganization and replays the new branch. Both branches are given in
// ascending order and start right after the common ancestor.
func (c *Cache) HandleReorg(ctx context.Context, oldChain, newChain []*types.Header, reader StateReader) error {
	if !c.config.Enabled {
		return nil
	}
	if len(newChain) == 0 {
		return errors.New("reorg without new chain")
	}
	c.stats.reorgs.Add(1)
	log.Warn("Hot cache handling reorg", "oldBlocks", len(oldChain), "newBlocks", len(newChain))

	ancestor := newChain[0].ParentHash

	c.snapshotMu.Lock()
	for _, header := range oldChain {
		delete(c.snapshots, header.Hash())
	}
	base, ok := c.snapshots[ancestor]
	c.snapshotMu.Unlock()

	if !ok {
		log.Error("Common ancestor snapshot not found, rebuilding from new head", "ancestor", ancestor)
		return c.Update(ctx, newChain[len(newChain)-1], reader)
	}
	c.current.Store(base)
	log.Info("Rolled back to common ancestor", "block", base.BlockNumber, "hash", ancestor)

	for _, header := range newChain {
		if err := c.Update(ctx, header, reader); err != nil {
			return fmt.Errorf("failed to replay block %d: %w", header.Number.Uint64(), err)
		}
	}
	log.Info("Replayed new chain", "blocks", len(newChain), "head", newChain[len(newChain)-1].Number)
	return nil
}
