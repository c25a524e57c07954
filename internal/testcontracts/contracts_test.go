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

package testcontracts

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/core/vm/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisave/unisave-go/contracts/abis"
)

func callGetter(t *testing.T, cfg *runtime.Config, addr common.Address, iface *abis.Interface, method string) []byte {
	t.Helper()
	input, err := iface.EncodeFunctionData(method)
	require.NoError(t, err)
	ret, _, err := runtime.Call(addr, input, cfg)
	require.NoError(t, err)
	require.Len(t, ret, 32)
	return ret
}

func TestPushEncoding(t *testing.T) {
	code := newProgram().pushUint(0).pushUint(0x1234).push([]byte{0xaa, 0xbb, 0xcc, 0xdd}).bytes()
	assert.Equal(t, []byte{
		byte(vm.PUSH1), 0x00,
		byte(vm.PUSH2), 0x12, 0x34,
		byte(vm.PUSH4), 0xaa, 0xbb, 0xcc, 0xdd,
	}, code)
}

func TestLabelsResolve(t *testing.T) {
	code := newProgram().pushLabel("end").op(vm.JUMP).op(vm.INVALID).label("end").op(vm.STOP).bytes()
	assert.Equal(t, []byte{
		byte(vm.PUSH2), 0x00, 0x05,
		byte(vm.JUMP),
		byte(vm.INVALID),
		byte(vm.JUMPDEST),
		byte(vm.STOP),
	}, code)

	assert.Panics(t, func() { newProgram().pushLabel("nowhere").bytes() })
}

func TestFactoryDouble(t *testing.T) {
	deployer := common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	cfg := &runtime.Config{Origin: deployer}

	factory := Factory()
	code, addr, _, err := runtime.Create(factory.Bytecode, cfg)
	require.NoError(t, err)
	assert.Equal(t, factory.DeployedBytecode, code)

	assert.Equal(t, deployer, common.BytesToAddress(callGetter(t, cfg, addr, abis.FactoryInterface, "feeTo")))
	assert.Equal(t, deployer, common.BytesToAddress(callGetter(t, cfg, addr, abis.FactoryInterface, "feeToSetter")))
	assert.Equal(t, 0, new(big.Int).SetBytes(callGetter(t, cfg, addr, abis.FactoryInterface, "allPairsLength")).Sign())
}

func TestRouterDouble(t *testing.T) {
	cfg := &runtime.Config{Origin: common.HexToAddress("0x0a")}
	factory := common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	weth := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")

	args, err := abis.Router02Interface.EncodeDeploy(factory, weth)
	require.NoError(t, err)
	input := append(Router().Bytecode, args...)

	_, addr, _, err := runtime.Create(input, cfg)
	require.NoError(t, err)

	assert.Equal(t, factory, common.BytesToAddress(callGetter(t, cfg, addr, abis.Router02Interface, "factory")))
	assert.Equal(t, weth, common.BytesToAddress(callGetter(t, cfg, addr, abis.Router02Interface, "WETH")))
}

func TestWETH9Double(t *testing.T) {
	cfg := &runtime.Config{Origin: common.HexToAddress("0x0a")}
	_, addr, _, err := runtime.Create(WETH9().Bytecode, cfg)
	require.NoError(t, err)

	decimals := callGetter(t, cfg, addr, abis.WETH9Interface, "decimals")
	assert.Equal(t, int64(18), new(big.Int).SetBytes(decimals).Int64())
}

func TestDispatcherRejectsUnknownCalls(t *testing.T) {
	cfg := &runtime.Config{Origin: common.HexToAddress("0x0a")}
	_, addr, _, err := runtime.Create(Factory().Bytecode, cfg)
	require.NoError(t, err)

	_, _, err = runtime.Call(addr, []byte{0xde, 0xad, 0xbe, 0xef}, cfg)
	assert.ErrorIs(t, err, vm.ErrExecutionReverted)

	_, _, err = runtime.Call(addr, []byte{0x01}, cfg)
	assert.ErrorIs(t, err, vm.ErrExecutionReverted)
}

func TestRevertingDouble(t *testing.T) {
	_, _, _, err := runtime.Create(Reverting().Bytecode, &runtime.Config{})
	assert.ErrorIs(t, err, vm.ErrExecutionReverted)
}
