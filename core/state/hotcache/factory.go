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
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Factory storage layout:
// slot 0: feeTo (address)
// slot 1: feeToSetter (address)
// slot 2: getPair (mapping, not decoded)
// slot 3: allPairs (dynamic array, length only)
var (
	factorySlotFeeTo       = common.BigToHash(big.NewInt(0))
	factorySlotFeeToSetter = common.BigToHash(big.NewInt(1))
	factorySlotAllPairs    = common.BigToHash(big.NewInt(3))
)

// FactoryState is the decoded state of a pair factory.
type FactoryState struct {
	FeeTo          common.Address
	FeeToSetter    common.Address
	AllPairsLength uint64
}

func (s *FactoryState) String() string {
	return fmt.Sprintf("Factory{feeTo: %s, feeToSetter: %s, pairs: %d}", s.FeeTo.Hex(), s.FeeToSetter.Hex(), s.AllPairsLength)
}

// FactoryDecoder decodes factory state from raw storage slots.
type FactoryDecoder struct{}

// Type returns the contract type.
func (d *FactoryDecoder) Type() ContractType {
	return ContractTypeFactory
}

// RequiredSlots returns the storage slots needed for decoding.
func (d *FactoryDecoder) RequiredSlots() []common.Hash {
	return []common.Hash{factorySlotFeeTo, factorySlotFeeToSetter, factorySlotAllPairs}
}

// Decode decodes raw storage slots into a *FactoryState.
func (d *FactoryDecoder) Decode(slots map[common.Hash]common.Hash) (interface{}, error) {
	feeTo, ok := slots[factorySlotFeeTo]
	if !ok {
		return nil, fmt.Errorf("%w: feeTo", ErrMissingSlot)
	}
	feeToSetter, ok := slots[factorySlotFeeToSetter]
	if !ok {
		return nil, fmt.Errorf("%w: feeToSetter", ErrMissingSlot)
	}
	length, ok := slots[factorySlotAllPairs]
	if !ok {
		return nil, fmt.Errorf("%w: allPairs", ErrMissingSlot)
	}
	n := length.Big()
	if !n.IsUint64() {
		return nil, fmt.Errorf("allPairs length %s out of range", n)
	}
	return &FactoryState{
		FeeTo:          common.BytesToAddress(feeTo.Bytes()),
		FeeToSetter:    common.BytesToAddress(feeToSetter.Bytes()),
		AllPairsLength: n.Uint64(),
	}, nil
}
