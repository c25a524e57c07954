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

package artifact

import (
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Build output names of the exchange contracts.
const (
	WETH9Name   = "WETH9"
	FactoryName = "UnisaveV2Factory"
	RouterName  = "UnisaveV2Router02"
)

// Set groups the artifacts needed to stand up an exchange.
type Set struct {
	WETH9   *Artifact
	Factory *Artifact
	Router  *Artifact
}

// LoadSet reads the exchange artifacts from a build directory.
func LoadSet(dir string) (*Set, error) {
	load := func(name string) (*Artifact, error) {
		a, err := Load(filepath.Join(dir, name+".json"))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		return a, nil
	}
	var (
		set Set
		err error
	)
	if set.WETH9, err = load(WETH9Name); err != nil {
		return nil, err
	}
	if set.Factory, err = load(FactoryName); err != nil {
		return nil, err
	}
	if set.Router, err = load(RouterName); err != nil {
		return nil, err
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// Validate checks that every artifact can be deployed and that the router
// constructor takes the factory and wrapped-asset addresses.
func (s *Set) Validate() error {
	for _, a := range []*Artifact{s.WETH9, s.Factory, s.Router} {
		if a == nil {
			return fmt.Errorf("%w: incomplete artifact set", ErrInvalidArtifact)
		}
		if !a.Deployable() {
			return fmt.Errorf("%w: %s", ErrNoBytecode, a.Name)
		}
	}
	inputs := s.Router.ABI.Constructor.Inputs
	if len(inputs) != 2 || inputs[0].Type.T != abi.AddressTy || inputs[1].Type.T != abi.AddressTy {
		return fmt.Errorf("%w: %s constructor must take (address factory, address weth)", ErrInvalidArtifact, s.Router.Name)
	}
	return nil
}
