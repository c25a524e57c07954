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

// Package testcontracts provides minimal EVM contracts reproducing the public
// getters and storage layout of the exchange contracts, so that deployment
// flows can be exercised on a simulated chain without a Solidity toolchain.
package testcontracts

import (
	"strconv"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/unisave/unisave-go/contracts/abis"
	"github.com/unisave/unisave-go/contracts/artifact"
)

// Storage slots shared with the real contracts.
const (
	WETH9DecimalsSlot = 2

	FactoryFeeToSlot       = 0
	FactoryFeeToSetterSlot = 1
	FactoryAllPairsSlot    = 3

	RouterFactorySlot = 0
	RouterWETHSlot    = 1
)

type getter struct {
	signature string
	slot      uint64
}

// initStep emits constructor code. nargs is the number of 32-byte
// constructor arguments appended to the creation code.
type initStep func(p *program, nargs int)

func storeCaller(slot uint64) initStep {
	return func(p *program, _ int) {
		p.op(vm.CALLER).pushUint(slot).op(vm.SSTORE)
	}
}

func storeConst(slot, value uint64) initStep {
	return func(p *program, _ int) {
		p.pushUint(value).pushUint(slot).op(vm.SSTORE)
	}
}

// storeArg copies constructor argument index from the tail of the code into
// a storage slot.
func storeArg(slot uint64, index int) initStep {
	return func(p *program, nargs int) {
		p.pushUint(32).pushUint(uint64(32*(nargs-index))).op(vm.CODESIZE, vm.SUB).pushUint(0).op(vm.CODECOPY)
		p.pushUint(0).op(vm.MLOAD).pushUint(slot).op(vm.SSTORE)
	}
}

// dispatcher returns runtime code answering each getter with the word held
// in its slot. Unknown selectors and short calldata revert.
func dispatcher(getters []getter) []byte {
	p := newProgram()
	p.pushUint(4).op(vm.CALLDATASIZE, vm.LT).pushLabel("fail").op(vm.JUMPI)
	p.pushUint(0).op(vm.CALLDATALOAD).pushUint(0xe0).op(vm.SHR)
	for i, g := range getters {
		sel := crypto.Keccak256([]byte(g.signature))[:4]
		p.op(vm.DUP1).push(sel).op(vm.EQ).pushLabel(strconv.Itoa(i)).op(vm.JUMPI)
	}
	p.label("fail").pushUint(0).op(vm.DUP1, vm.REVERT)
	for i, g := range getters {
		p.label(strconv.Itoa(i)).pushUint(g.slot).op(vm.SLOAD)
		p.pushUint(0).op(vm.MSTORE).pushUint(32).pushUint(0).op(vm.RETURN)
	}
	return p.bytes()
}

// creation wraps runtime code in a constructor running steps first.
func creation(nargs int, runtime []byte, steps ...initStep) []byte {
	p := newProgram()
	for _, step := range steps {
		step(p, nargs)
	}
	// PUSH2 len, DUP1, PUSH2 off, PUSH1 0, CODECOPY, PUSH1 0, RETURN
	offset := len(p.code) + 13
	p.push2(len(runtime)).op(vm.DUP1).push2(offset).pushUint(0).op(vm.CODECOPY).pushUint(0).op(vm.RETURN)
	return append(p.bytes(), runtime...)
}

func mustArtifact(name string, abiJSON []byte, code []byte, runtime []byte) *artifact.Artifact {
	a, err := artifact.New(name, abiJSON, code)
	if err != nil {
		panic(err)
	}
	a.DeployedBytecode = runtime
	return a
}

// WETH9 answers decimals().
func WETH9() *artifact.Artifact {
	runtime := dispatcher([]getter{{"decimals()", WETH9DecimalsSlot}})
	code := creation(0, runtime, storeConst(WETH9DecimalsSlot, 18))
	return mustArtifact(artifact.WETH9Name, abis.WETH9ABI, code, runtime)
}

// Factory records its deployer as both fee recipient and fee setter and
// answers feeTo(), feeToSetter() and allPairsLength().
func Factory() *artifact.Artifact {
	runtime := dispatcher([]getter{
		{"feeTo()", FactoryFeeToSlot},
		{"feeToSetter()", FactoryFeeToSetterSlot},
		{"allPairsLength()", FactoryAllPairsSlot},
	})
	code := creation(0, runtime, storeCaller(FactoryFeeToSlot), storeCaller(FactoryFeeToSetterSlot))
	return mustArtifact(artifact.FactoryName, abis.FactoryABI, code, runtime)
}

// Router takes (factory, weth) constructor arguments and answers factory()
// and WETH().
func Router() *artifact.Artifact {
	runtime := dispatcher([]getter{
		{"factory()", RouterFactorySlot},
		{"WETH()", RouterWETHSlot},
	})
	code := creation(2, runtime, storeArg(RouterFactorySlot, 0), storeArg(RouterWETHSlot, 1))
	return mustArtifact(artifact.RouterName, abis.Router02ABI, code, runtime)
}

// Reverting is a contract whose constructor always reverts.
func Reverting() *artifact.Artifact {
	code := newProgram().pushUint(0).op(vm.DUP1, vm.REVERT).bytes()
	return mustArtifact("Reverting", abis.FactoryABI, code, nil)
}

// Set returns the three exchange test doubles.
func Set() *artifact.Set {
	return &artifact.Set{WETH9: WETH9(), Factory: Factory(), Router: Router()}
}
