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

package main

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/unisave/unisave-go/contracts/abis"
)

var interfaces = map[string]*abis.Interface{
	"router":  abis.Router02Interface,
	"factory": abis.FactoryInterface,
	"pair":    abis.PairInterface,
	"weth":    abis.WETH9Interface,
	"erc20":   abis.ERC20Interface,
}

var contractFlag = &cli.StringFlag{
	Name:  "contract",
	Usage: "Interface to use: router, factory, pair, weth or erc20",
	Value: "router",
}

var abiCommand = &cli.Command{
	Name:  "abi",
	Usage: "Encode and decode calls against the exchange interfaces",
	Subcommands: []*cli.Command{
		{
			Action:    abiEncode,
			Name:      "encode",
			Usage:     "Encode a method call",
			ArgsUsage: "<method> [args...]",
			Flags:     []cli.Flag{contractFlag},
			Description: `
Arguments are given in their natural text form: hex addresses, decimal or 0x
integers, true/false, 0x-prefixed bytes. Array arguments are comma separated.`,
		},
		{
			Action:    abiDecode,
			Name:      "decode",
			Usage:     "Decode calldata",
			ArgsUsage: "<hex calldata>",
			Flags:     []cli.Flag{contractFlag},
		},
		{
			Action: abiMethods,
			Name:   "methods",
			Usage:  "List methods with their selectors",
			Flags:  []cli.Flag{contractFlag},
		},
	},
}

func selectInterface(ctx *cli.Context) (*abis.Interface, error) {
	name := ctx.String(contractFlag.Name)
	iface, ok := interfaces[name]
	if !ok {
		return nil, fmt.Errorf("unknown contract %q", name)
	}
	return iface, nil
}

// abiEncode is the abi encode command.
func abiEncode(ctx *cli.Context) error {
	iface, err := selectInterface(ctx)
	if err != nil {
		return err
	}
	if ctx.NArg() < 1 {
		return errors.New("method name required")
	}
	name := ctx.Args().First()
	method, ok := iface.ABI().Methods[name]
	if !ok {
		return fmt.Errorf("%w: %s", abis.ErrUnknownMethod, name)
	}
	params := ctx.Args().Tail()
	if len(params) != len(method.Inputs) {
		return fmt.Errorf("%s takes %d arguments, got %d", method.Sig, len(method.Inputs), len(params))
	}
	args := make([]interface{}, len(params))
	for i, param := range params {
		if args[i], err = parseArg(method.Inputs[i].Type, param); err != nil {
			return fmt.Errorf("argument %s: %w", method.Inputs[i].Name, err)
		}
	}
	data, err := iface.EncodeFunctionData(name, args...)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, hexutil.Encode(data))
	return nil
}

// abiDecode is the abi decode command.
func abiDecode(ctx *cli.Context) error {
	iface, err := selectInterface(ctx)
	if err != nil {
		return err
	}
	if ctx.NArg() != 1 {
		return errors.New("expected a single calldata argument")
	}
	data, err := hexutil.Decode(ctx.Args().First())
	if err != nil {
		return fmt.Errorf("invalid calldata: %w", err)
	}
	method, args, err := iface.DecodeFunctionData(data)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, method.Sig)
	for i, input := range method.Inputs {
		fmt.Fprintf(ctx.App.Writer, "  %s %s: %s\n", input.Type, input.Name, formatValue(args[i]))
	}
	return nil
}

// abiMethods is the abi methods command.
func abiMethods(ctx *cli.Context) error {
	iface, err := selectInterface(ctx)
	if err != nil {
		return err
	}
	methods := iface.ABI().Methods
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Selector", "Signature", "Mutability"})
	for _, name := range names {
		m := methods[name]
		table.Append([]string{hexutil.Encode(m.ID), m.Sig, m.StateMutability})
	}
	table.Render()
	return nil
}

var bigIntType = reflect.TypeOf((*big.Int)(nil))

// parseArg converts a command line value into the Go type the ABI packer
// expects for t.
func parseArg(t abi.Type, s string) (interface{}, error) {
	switch t.T {
	case abi.AddressTy:
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		return common.HexToAddress(s), nil

	case abi.UintTy, abi.IntTy:
		n, ok := math.ParseBig256(s)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		if t.T == abi.UintTy && n.Sign() < 0 {
			return nil, fmt.Errorf("negative value %s for %s", s, t)
		}
		if t.GetType() == bigIntType {
			return n, nil
		}
		v := reflect.New(t.GetType()).Elem()
		if t.T == abi.UintTy {
			if !n.IsUint64() || v.OverflowUint(n.Uint64()) {
				return nil, fmt.Errorf("value %s overflows %s", s, t)
			}
			v.SetUint(n.Uint64())
		} else {
			if !n.IsInt64() || v.OverflowInt(n.Int64()) {
				return nil, fmt.Errorf("value %s overflows %s", s, t)
			}
			v.SetInt(n.Int64())
		}
		return v.Interface(), nil

	case abi.BoolTy:
		return strconv.ParseBool(s)

	case abi.StringTy:
		return s, nil

	case abi.BytesTy:
		return hexutil.Decode(s)

	case abi.FixedBytesTy:
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("%s needs %d bytes, got %d", t, t.Size, len(b))
		}
		v := reflect.New(t.GetType()).Elem()
		reflect.Copy(v, reflect.ValueOf(b))
		return v.Interface(), nil

	case abi.SliceTy:
		out := reflect.MakeSlice(t.GetType(), 0, 0)
		if s == "" {
			return out.Interface(), nil
		}
		for _, part := range strings.Split(s, ",") {
			elem, err := parseArg(*t.Elem, strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			out = reflect.Append(out, reflect.ValueOf(elem))
		}
		return out.Interface(), nil
	}
	return nil, fmt.Errorf("unsupported argument type %s", t)
}

func formatValue(v interface{}) string {
	switch v := v.(type) {
	case []byte:
		return hexutil.Encode(v)
	case [32]byte:
		return hexutil.Encode(v[:])
	case []common.Address:
		parts := make([]string, len(v))
		for i, addr := range v {
			parts[i] = addr.Hex()
		}
		return strings.Join(parts, ",")
	case common.Address:
		return v.Hex()
	default:
		return fmt.Sprint(v)
	}
}
