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

import "github.com/ethereum/go-ethereum/common"

const (
	MainnetChainID = 1
	SepoliaChainID = 11155111
)

// Deployment holds the addresses of a live exchange deployment.
type Deployment struct {
	Factory common.Address
	Router  common.Address
	WETH    common.Address
}

// KnownDeployments lists public exchange deployments sharing the V2 storage
// layout, keyed by chain id.
var KnownDeployments = map[uint64]Deployment{
	MainnetChainID: {
		Factory: common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
		Router:  common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
		WETH:    common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
	},
	SepoliaChainID: {
		Factory: common.HexToAddress("0xF62c03E08ada871A0bEb309762E260a7a6a880E6"),
		Router:  common.HexToAddress("0xeE567Fe1712Faf6149d80dA1E6934E354124CfE3"),
		WETH:    common.HexToAddress("0x7b79995e5f793A07Bc00c21412e50Ecae098E7f9"),
	},
}

// KnownPairs lists high-liquidity mainnet pairs.
var KnownPairs = map[uint64]map[string]common.Address{
	MainnetChainID: {
		"USDC/WETH": common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"),
		"USDT/WETH": common.HexToAddress("0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852"),
		"DAI/WETH":  common.HexToAddress("0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11"),
		"WBTC/WETH": common.HexToAddress("0xBb2b8038a1640196FbE3e38816F3e67Cba72D940"),
	},
}

// DefaultWatchlist returns the factory and known pairs of a network, or nil
// for an unknown chain.
func DefaultWatchlist(chainID uint64) []common.Address {
	deployment, ok := KnownDeployments[chainID]
	if !ok {
		return nil
	}
	addrs := []common.Address{deployment.Factory}
	for _, pair := range KnownPairs[chainID] {
		addrs = append(addrs, pair)
	}
	return addrs
}

// RegisterDefaultDecoders registers decoders for the known factory and pairs
// of a network and adds them to the watchlist.
func RegisterDefaultDecoders(cache *Cache, chainID uint64) {
	deployment, ok := KnownDeployments[chainID]
	if !ok {
		return
	}
	cache.RegisterDecoder(deployment.Factory, &FactoryDecoder{})
	cache.Watch(deployment.Factory)

	pair := &PairDecoder{}
	for _, addr := range KnownPairs[chainID] {
		cache.RegisterDecoder(addr, pair)
		cache.Watch(addr)
	}
}
