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

package abis

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrUnknownMethod   = errors.New("unknown method")
	ErrUnknownSelector = errors.New("unknown function selector")
	ErrUnknownEvent    = errors.New("unknown event")
	ErrShortCalldata   = errors.New("calldata shorter than a selector")
)

// Interface encodes calls to, and decodes results and logs from, a contract
// described by a JSON ABI. It is safe for concurrent use.
type Interface struct {
	raw []byte
	abi abi.ABI
}

// NewInterface parses a JSON interface descriptor.
func NewInterface(raw []byte) (*Interface, error) {
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid interface descriptor: %w", err)
	}
	return &Interface{raw: bytes.Clone(raw), abi: parsed}, nil
}

// MustNewInterface is like NewInterface but panics on a malformed descriptor.
// It is meant for descriptors embedded at build time.
func MustNewInterface(raw []byte) *Interface {
	iface, err := NewInterface(raw)
	if err != nil {
		panic(err)
	}
	return iface
}

// Raw returns a copy of the JSON descriptor the interface was built from.
func (i *Interface) Raw() []byte {
	return bytes.Clone(i.raw)
}

// ABI returns the parsed descriptor. Callers must not modify it.
func (i *Interface) ABI() abi.ABI {
	return i.abi
}

// Methods returns the names of all callable methods in lexical order.
func (i *Interface) Methods() []string {
	names := make([]string, 0, len(i.abi.Methods))
	for name := range i.abi.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (i *Interface) method(name string) (abi.Method, error) {
	m, ok := i.abi.Methods[name]
	if !ok {
		return abi.Method{}, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
	return m, nil
}

// Selector returns the 4-byte function selector of a method.
func (i *Interface) Selector(name string) ([4]byte, error) {
	var sel [4]byte
	m, err := i.method(name)
	if err != nil {
		return sel, err
	}
	copy(sel[:], m.ID)
	return sel, nil
}

// EventID returns the topic hash identifying an event.
func (i *Interface) EventID(name string) (common.Hash, error) {
	ev, ok := i.abi.Events[name]
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}
	return ev.ID, nil
}

// EncodeFunctionData packs a call to the named method: selector followed by
// the ABI-encoded arguments.
func (i *Interface) EncodeFunctionData(name string, args ...interface{}) ([]byte, error) {
	if _, err := i.method(name); err != nil {
		return nil, err
	}
	return i.abi.Pack(name, args...)
}

// EncodeDeploy packs constructor arguments. The result is appended to the
// contract's creation bytecode.
func (i *Interface) EncodeDeploy(args ...interface{}) ([]byte, error) {
	return i.abi.Pack("", args...)
}

// DecodeFunctionData resolves the method from the selector at the start of
// data and unpacks its arguments.
func (i *Interface) DecodeFunctionData(data []byte) (*abi.Method, []interface{}, error) {
	if len(data) < 4 {
		return nil, nil, ErrShortCalldata
	}
	m, err := i.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %#x", ErrUnknownSelector, data[:4])
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s arguments: %w", m.Name, err)
	}
	return m, args, nil
}

// DecodeFunctionResult unpacks the return data of the named method.
func (i *Interface) DecodeFunctionResult(name string, data []byte) ([]interface{}, error) {
	m, err := i.method(name)
	if err != nil {
		return nil, err
	}
	out, err := m.Outputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", name, err)
	}
	return out, nil
}

// DecodedLog is an event log resolved against an interface.
type DecodedLog struct {
	Event  *abi.Event
	Fields map[string]interface{}
}

// ParseLog resolves the event from the log's first topic and decodes both its
// indexed and non-indexed fields.
func (i *Interface) ParseLog(l types.Log) (*DecodedLog, error) {
	if len(l.Topics) == 0 {
		return nil, fmt.Errorf("%w: log has no topics", ErrUnknownEvent)
	}
	ev, err := i.abi.EventByID(l.Topics[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, l.Topics[0].Hex())
	}
	fields := make(map[string]interface{}, len(ev.Inputs))
	if err := ev.Inputs.UnpackIntoMap(fields, l.Data); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", ev.Name, err)
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, l.Topics[1:]); err != nil {
		return nil, fmt.Errorf("decode %s topics: %w", ev.Name, err)
	}
	return &DecodedLog{Event: ev, Fields: fields}, nil
}
