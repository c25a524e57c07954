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

// Package abis embeds the interface descriptors of the exchange contracts and
// exposes ready-made encoders/decoders bound to them.
package abis

import (
	_ "embed"
)

// Raw JSON interface descriptors, in the standard ABI descriptor shape.
var (
	//go:embed router02.json
	Router02ABI []byte

	//go:embed factory.json
	FactoryABI []byte

	//go:embed pair.json
	PairABI []byte

	//go:embed weth9.json
	WETH9ABI []byte

	//go:embed erc20.json
	ERC20ABI []byte
)

// Interfaces derived from the embedded descriptors. They are built once at
// package load and never mutated afterwards.
var (
	Router02Interface = MustNewInterface(Router02ABI)
	FactoryInterface  = MustNewInterface(FactoryABI)
	PairInterface     = MustNewInterface(PairABI)
	WETH9Interface    = MustNewInterface(WETH9ABI)
	ERC20Interface    = MustNewInterface(ERC20ABI)
)
