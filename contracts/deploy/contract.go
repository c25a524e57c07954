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
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/unisave/unisave-go/contracts/abis"
)

// ErrMismatch is matched by every *MismatchError.
var ErrMismatch = errors.New("unexpected call result")

// Contract is a handle on a deployed contract.
type Contract struct {
	Name    string
	Address common.Address
	TxHash  common.Hash // zero for contracts bound by address
	Block   uint64

	abi   abi.ABI
	bound *bind.BoundContract
}

// Bind returns a handle on a contract that is already deployed.
func Bind(name string, address common.Address, parsed abi.ABI, backend bind.ContractBackend) *Contract {
	return &Contract{
		Name:    name,
		Address: address,
		abi:     parsed,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
	}
}

// Call invokes a method as a read-only call against the latest block.
func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	if _, ok := c.abi.Methods[method]; !ok {
		return nil, fmt.Errorf("%w: %s.%s", abis.ErrUnknownMethod, c.Name, method)
	}
	callCounter.Inc(1)

	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s.%s: %w", c.Name, method, err)
	}
	log.Trace("Contract call", "contract", c.Name, "method", method, "results", len(out))
	return out, nil
}

func (c *Contract) callSingle(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s.%s returned %d values, want 1", c.Name, method, len(out))
	}
	return out[0], nil
}

// CallAddress invokes a method returning a single address.
func (c *Contract) CallAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	v, err := c.callSingle(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s.%s returned %T, not an address", c.Name, method, v)
	}
	return addr, nil
}

// CallBig invokes a method returning a single unsigned integer wider than
// 64 bits.
func (c *Contract) CallBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	v, err := c.callSingle(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	n, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s.%s returned %T, not an integer", c.Name, method, v)
	}
	return n, nil
}

// MismatchError reports a call whose result differs from the expected value.
type MismatchError struct {
	Contract string
	Method   string
	Want     string
	Got      string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s.%s() = %s, want %s", e.Contract, e.Method, e.Got, e.Want)
}

func (e *MismatchError) Unwrap() error {
	return ErrMismatch
}

// ExpectAddress calls method and checks that it returns want.
func ExpectAddress(ctx context.Context, c *Contract, method string, want common.Address) error {
	got, err := c.CallAddress(ctx, method)
	if err != nil {
		return err
	}
	if got != want {
		return &MismatchError{Contract: c.Name, Method: method, Want: want.Hex(), Got: got.Hex()}
	}
	return nil
}

// ExpectUint calls method and checks that it returns want.
func ExpectUint(ctx context.Context, c *Contract, method string, want uint64) error {
	got, err := c.CallBig(ctx, method)
	if err != nil {
		return err
	}
	if !got.IsUint64() || got.Uint64() != want {
		return &MismatchError{Contract: c.Name, Method: method, Want: fmt.Sprint(want), Got: got.String()}
	}
	return nil
}
