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

package deploy

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisave/unisave-go/contracts/abis"
	"github.com/unisave/unisave-go/contracts/artifact"
	"github.com/unisave/unisave-go/internal/simchain"
	"github.com/unisave/unisave-go/internal/testcontracts"
)

func newTestDeployer(t *testing.T) (*Deployer, *simchain.Provider) {
	t.Helper()
	provider := simchain.New(2)
	t.Cleanup(func() { provider.Close() })

	d, err := NewDeployer(context.Background(), provider.Backend(), provider.Wallets()[0].Key)
	require.NoError(t, err)
	return d, provider
}

func TestDeployFactory(t *testing.T) {
	d, provider := newTestDeployer(t)
	ctx := context.Background()

	factory, err := d.Deploy(ctx, testcontracts.Factory())
	require.NoError(t, err)

	assert.Equal(t, artifact.FactoryName, factory.Name)
	assert.NotEqual(t, common.Address{}, factory.Address)
	assert.NotEqual(t, common.Hash{}, factory.TxHash)
	assert.NotZero(t, factory.Block)
	assert.Equal(t, provider.Wallets()[0].Address, d.From())

	code, err := provider.Backend().CodeAt(ctx, factory.Address, nil)
	require.NoError(t, err)
	assert.Equal(t, testcontracts.Factory().DeployedBytecode, code)
}

func TestDeployWithConstructorArgs(t *testing.T) {
	d, _ := newTestDeployer(t)
	ctx := context.Background()

	factory := common.HexToAddress("0x1111111111111111111111111111111111111111")
	weth := common.HexToAddress("0x2222222222222222222222222222222222222222")
	router, err := d.Deploy(ctx, testcontracts.Router(), factory, weth)
	require.NoError(t, err)

	got, err := router.CallAddress(ctx, "factory")
	require.NoError(t, err)
	assert.Equal(t, factory, got)

	got, err = router.CallAddress(ctx, "WETH")
	require.NoError(t, err)
	assert.Equal(t, weth, got)
}

func TestDeploySequentialAddressesDiffer(t *testing.T) {
	d, _ := newTestDeployer(t)
	ctx := context.Background()

	a, err := d.Deploy(ctx, testcontracts.WETH9())
	require.NoError(t, err)
	b, err := d.Deploy(ctx, testcontracts.Factory())
	require.NoError(t, err)
	assert.NotEqual(t, a.Address, b.Address)
	assert.Less(t, a.Block, b.Block)
}

func TestDeployInvalidConstructorArgs(t *testing.T) {
	d, _ := newTestDeployer(t)
	ctx := context.Background()

	_, err := d.Deploy(ctx, testcontracts.Router(), common.Address{0x01})
	assert.ErrorIs(t, err, ErrConstructorArgs)

	_, err = d.Deploy(ctx, testcontracts.Router(), "factory", "weth")
	assert.ErrorIs(t, err, ErrConstructorArgs)

	_, err = d.Deploy(ctx, testcontracts.Factory(), common.Address{0x01})
	assert.ErrorIs(t, err, ErrConstructorArgs)
}

func TestDeployInterfaceOnlyArtifact(t *testing.T) {
	d, _ := newTestDeployer(t)

	iface, err := artifact.Parse("uniscam-router02", abis.Router02ABI)
	require.NoError(t, err)

	_, err = d.Deploy(context.Background(), iface)
	assert.ErrorIs(t, err, artifact.ErrNoBytecode)
}

func TestDeployRevertingConstructor(t *testing.T) {
	d, _ := newTestDeployer(t)
	ctx := context.Background()

	// Gas estimation rejects the creation before it is sent.
	_, err := d.Deploy(ctx, testcontracts.Reverting())
	assert.Error(t, err)

	// With a fixed gas limit the transaction is mined and fails.
	d.SetGasLimit(1_000_000)
	_, err = d.Deploy(ctx, testcontracts.Reverting())
	assert.ErrorIs(t, err, ErrDeployReverted)

	d.SetGasLimit(0)
	_, err = d.Deploy(ctx, testcontracts.WETH9())
	assert.NoError(t, err)
}

func TestCallUnknownMethod(t *testing.T) {
	d, _ := newTestDeployer(t)
	factory, err := d.Deploy(context.Background(), testcontracts.Factory())
	require.NoError(t, err)

	_, err = factory.Call(context.Background(), "createPool")
	assert.ErrorIs(t, err, abis.ErrUnknownMethod)
}

func TestCallTypeMismatch(t *testing.T) {
	d, _ := newTestDeployer(t)
	factory, err := d.Deploy(context.Background(), testcontracts.Factory())
	require.NoError(t, err)

	_, err = factory.CallAddress(context.Background(), "allPairsLength")
	assert.Error(t, err)

	_, err = factory.CallBig(context.Background(), "feeTo")
	assert.Error(t, err)
}

func TestExpectations(t *testing.T) {
	d, provider := newTestDeployer(t)
	ctx := context.Background()
	factory, err := d.Deploy(ctx, testcontracts.Factory())
	require.NoError(t, err)

	me, other := provider.Wallets()[0].Address, provider.Wallets()[1].Address

	assert.NoError(t, ExpectAddress(ctx, factory, "feeToSetter", me))
	assert.NoError(t, ExpectUint(ctx, factory, "allPairsLength", 0))

	err = ExpectAddress(ctx, factory, "feeTo", other)
	require.ErrorIs(t, err, ErrMismatch)

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "feeTo", mismatch.Method)
	assert.Equal(t, me.Hex(), mismatch.Got)
	assert.Equal(t, other.Hex(), mismatch.Want)

	err = ExpectUint(ctx, factory, "allPairsLength", 1)
	assert.ErrorIs(t, err, ErrMismatch)
	assert.EqualError(t, err, "UnisaveV2Factory.allPairsLength() = 0, want 1")
}

func TestBindExisting(t *testing.T) {
	d, provider := newTestDeployer(t)
	ctx := context.Background()
	deployed, err := d.Deploy(ctx, testcontracts.Factory())
	require.NoError(t, err)

	bound := Bind("factory", deployed.Address, abis.FactoryInterface.ABI(), provider.Backend())
	assert.NoError(t, ExpectAddress(ctx, bound, "feeTo", d.From()))
	assert.Equal(t, common.Hash{}, bound.TxHash)
}
