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
	"github.com/holiman/uint256"
)

// Pair storage layout:
// slot 6: token0 (address)
// slot 7: token1 (address)
// slot 8: reserve0 (uint112), reserve1 (uint112), blockTimestampLast (uint32) - packed
// slot 9: price0CumulativeLast (uint256)
// slot 10: price1CumulativeLast (uint256)
// slot 11: kLast (uint256)
var (
	pairSlotToken0           = common.BigToHash(big.NewInt(6))
	pairSlotToken1           = common.BigToHash(big.NewInt(7))
	pairSlotReserves         = common.BigToHash(big.NewInt(8))
	pairSlotPrice0Cumulative = common.BigToHash(big.NewInt(9))
	pairSlotPrice1Cumulative = common.BigToHash(big.NewInt(10))
	pairSlotKLast            = common.BigToHash(big.NewInt(11))
)

var mask112 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 112), uint256.NewInt(1))

// PairState is the decoded state of a trading pair.
type PairState struct {
	Token0             common.Address
	Token1             common.Address
	Reserve0           *big.Int // uint112
	Reserve1           *big.Int // uint112
	BlockTimestampLast uint32
	Price0Cumulative   *big.Int
	Price1Cumulative   *big.Int
	KLast              *big.Int
}

func (s *PairState) String() string {
	return fmt.Sprintf("Pair{token0: %s, token1: %s, reserve0: %s, reserve1: %s, timestamp: %d}",
		s.Token0.Hex(), s.Token1.Hex(), s.Reserve0, s.Reserve1, s.BlockTimestampLast)
}

// Price returns the price of token0 in terms of token1 (reserve1/reserve0),
// or zero for an empty pool.
func (s *PairState) Price() *big.Float {
	if s.Reserve0.Sign() == 0 {
		return new(big.Float)
	}
	return new(big.Float).Quo(new(big.Float).SetInt(s.Reserve1), new(big.Float).SetInt(s.Reserve0))
}

// InversePrice returns the price of token1 in terms of token0.
func (s *PairState) InversePrice() *big.Float {
	if s.Reserve1.Sign() == 0 {
		return new(big.Float)
	}
	return new(big.Float).Quo(new(big.Float).SetInt(s.Reserve0), new(big.Float).SetInt(s.Reserve1))
}

// PackReserves builds the reserves slot word the way the pair stores it:
// reserve0 in the low 112 bits, reserve1 above it, the timestamp on top.
func PackReserves(reserve0, reserve1 *big.Int, timestamp uint32) common.Hash {
	r0, _ := uint256.FromBig(reserve0)
	r1, _ := uint256.FromBig(reserve1)
	packed := new(uint256.Int).And(r0, mask112)
	packed.Or(packed, new(uint256.Int).Lsh(new(uint256.Int).And(r1, mask112), 112))
	packed.Or(packed, new(uint256.Int).Lsh(uint256.NewInt(uint64(timestamp)), 224))
	return packed.Bytes32()
}

// PairDecoder decodes pair state from raw storage slots.
type PairDecoder struct{}

// Type returns the contract type.
func (d *PairDecoder) Type() ContractType {
	return ContractTypePair
}

// RequiredSlots returns the storage slots needed for decoding.
func (d *PairDecoder) RequiredSlots() []common.Hash {
	return []common.Hash{
		pairSlotToken0,
		pairSlotToken1,
		pairSlotReserves,
		pairSlotPrice0Cumulative,
		pairSlotPrice1Cumulative,
		pairSlotKLast,
	}
}

// Decode decodes raw storage slots into a *PairState. Token and reserve
// slots are mandatory; cumulative prices and kLast default to zero.
func (d *PairDecoder) Decode(slots map[common.Hash]common.Hash) (interface{}, error) {
	token0, ok := slots[pairSlotToken0]
	if !ok {
		return nil, fmt.Errorf("%w: token0", ErrMissingSlot)
	}
	token1, ok := slots[pairSlotToken1]
	if !ok {
		return nil, fmt.Errorf("%w: token1", ErrMissingSlot)
	}
	reserves, ok := slots[pairSlotReserves]
	if !ok {
		return nil, fmt.Errorf("%w: reserves", ErrMissingSlot)
	}
	packed := new(uint256.Int).SetBytes32(reserves[:])
	reserve0 := new(uint256.Int).And(packed, mask112)
	reserve1 := new(uint256.Int).Rsh(packed, 112)
	reserve1.And(reserve1, mask112)
	timestamp := new(uint256.Int).Rsh(packed, 224)

	return &PairState{
		Token0:             common.BytesToAddress(token0.Bytes()),
		Token1:             common.BytesToAddress(token1.Bytes()),
		Reserve0:           reserve0.ToBig(),
		Reserve1:           reserve1.ToBig(),
		BlockTimestampLast: uint32(timestamp.Uint64()),
		Price0Cumulative:   slots[pairSlotPrice0Cumulative].Big(),
		Price1Cumulative:   slots[pairSlotPrice1Cumulative].Big(),
		KLast:              slots[pairSlotKLast].Big(),
	}, nil
}
