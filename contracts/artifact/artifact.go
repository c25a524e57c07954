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

// Package artifact loads compiled contract artifacts (creation bytecode plus
// interface descriptor) as emitted by Waffle, Hardhat and solc.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sugawarayuuta/sonnet"
)

var (
	ErrNoBytecode      = errors.New("artifact has no creation bytecode")
	ErrInvalidArtifact = errors.New("invalid contract artifact")
)

// Artifact is a compiled contract.
type Artifact struct {
	Name             string
	ABI              abi.ABI
	RawABI           []byte
	Bytecode         []byte // creation code, constructor arguments excluded
	DeployedBytecode []byte
}

// Deployable reports whether the artifact carries creation bytecode.
func (a *Artifact) Deployable() bool {
	return len(a.Bytecode) > 0
}

// rawArtifact covers the union of the supported output formats.
type rawArtifact struct {
	ContractName     string          `json:"contractName"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
	Bin              string          `json:"bin"`
	BinRuntime       string          `json:"bin-runtime"`
	EVM              struct {
		Bytecode struct {
			Object string `json:"object"`
		} `json:"bytecode"`
		DeployedBytecode struct {
			Object string `json:"object"`
		} `json:"deployedBytecode"`
	} `json:"evm"`
}

// New assembles an artifact from an interface descriptor and creation code.
func New(name string, abiJSON []byte, bytecode []byte) (*Artifact, error) {
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArtifact, name, err)
	}
	return &Artifact{
		Name:     name,
		ABI:      parsed,
		RawABI:   bytes.Clone(abiJSON),
		Bytecode: bytes.Clone(bytecode),
	}, nil
}

// Parse decodes an artifact document. A bare JSON array is accepted as an
// interface-only artifact.
func Parse(name string, data []byte) (*Artifact, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: %s: empty document", ErrInvalidArtifact, name)
	}
	if trimmed[0] == '[' {
		return New(name, trimmed, nil)
	}
	var raw rawArtifact
	if err := sonnet.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArtifact, name, err)
	}
	if raw.ContractName != "" {
		name = raw.ContractName
	}
	abiJSON, err := normalizeABI(raw.ABI)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArtifact, name, err)
	}
	code, err := decodeCode(firstNonEmpty(raw.EVM.Bytecode.Object, raw.Bytecode, raw.Bin))
	if err != nil {
		return nil, fmt.Errorf("%w: %s bytecode: %v", ErrInvalidArtifact, name, err)
	}
	deployed, err := decodeCode(firstNonEmpty(raw.EVM.DeployedBytecode.Object, raw.DeployedBytecode, raw.BinRuntime))
	if err != nil {
		return nil, fmt.Errorf("%w: %s deployed bytecode: %v", ErrInvalidArtifact, name, err)
	}
	a, err := New(name, abiJSON, code)
	if err != nil {
		return nil, err
	}
	a.DeployedBytecode = deployed
	return a, nil
}

// Load reads and parses an artifact file. Unless the document names the
// contract, the file name without extension is used.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(name, data)
}

// normalizeABI accepts the descriptor either inline or as a JSON string, the
// way older solc combined outputs carry it.
func normalizeABI(raw json.RawMessage) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, errors.New("missing abi")
	}
	if raw[0] != '"' {
		return raw, nil
	}
	var inner string
	if err := sonnet.Unmarshal(raw, &inner); err != nil {
		return nil, err
	}
	return []byte(inner), nil
}

func decodeCode(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" {
		return nil, nil
	}
	if strings.Contains(s, "__") {
		return nil, errors.New("unlinked library placeholder")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
