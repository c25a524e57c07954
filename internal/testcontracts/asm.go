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
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/core/vm"
)

// program is a minimal EVM assembler. Jump targets are referenced by label
// and patched in as PUSH2 immediates once the code is complete.
type program struct {
	code   []byte
	labels map[string]int
	fixups map[int]string
}

func newProgram() *program {
	return &program{
		labels: make(map[string]int),
		fixups: make(map[int]string),
	}
}

func (p *program) op(ops ...vm.OpCode) *program {
	for _, op := range ops {
		p.code = append(p.code, byte(op))
	}
	return p
}

// push emits the shortest PUSHn carrying data. Empty data is pushed as a
// single zero byte.
func (p *program) push(data []byte) *program {
	if len(data) == 0 {
		data = []byte{0}
	}
	if len(data) > 32 {
		panic(fmt.Sprintf("push of %d bytes", len(data)))
	}
	p.code = append(p.code, byte(vm.PUSH1)+byte(len(data)-1))
	p.code = append(p.code, data...)
	return p
}

func (p *program) pushUint(v uint64) *program {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	return p.push(buf[i:])
}

func (p *program) push2(v int) *program {
	return p.push([]byte{byte(v >> 8), byte(v)})
}

func (p *program) pushLabel(name string) *program {
	p.code = append(p.code, byte(vm.PUSH2))
	p.fixups[len(p.code)] = name
	p.code = append(p.code, 0, 0)
	return p
}

func (p *program) label(name string) *program {
	if _, ok := p.labels[name]; ok {
		panic("duplicate label " + name)
	}
	p.labels[name] = len(p.code)
	return p.op(vm.JUMPDEST)
}

func (p *program) bytes() []byte {
	for pos, name := range p.fixups {
		dest, ok := p.labels[name]
		if !ok {
			panic("undefined label " + name)
		}
		binary.BigEndian.PutUint16(p.code[pos:], uint16(dest))
	}
	return p.code
}
