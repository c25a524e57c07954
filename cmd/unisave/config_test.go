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
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runApp runs the command line in-process and returns what it wrote to
// stdout.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"unisave", "--verbosity", "0"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

var factoryAddr = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")

func TestLoadConfigTOML(t *testing.T) {
	path := writeFile(t, "unisave.toml", `
[Chain]
RPC = "http://localhost:8545"
Wallets = 3

[Deploy]
GasLimit = 5000000

[HotCache]
Enabled = true
Watchlist = ["0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"]
MaxSnapshots = 16
`)
	cfg := defaultConfig()
	require.NoError(t, loadConfig(path, &cfg))

	assert.Equal(t, "http://localhost:8545", cfg.Chain.RPC)
	assert.Equal(t, 3, cfg.Chain.Wallets)
	assert.Equal(t, uint64(5000000), cfg.Deploy.GasLimit)
	assert.True(t, cfg.HotCache.Enabled)
	assert.Equal(t, []common.Address{factoryAddr}, cfg.HotCache.Watchlist)
	assert.Equal(t, 16, cfg.HotCache.MaxSnapshots)
	// Untouched values keep their defaults.
	assert.True(t, cfg.HotCache.ShadowMode)
	assert.Equal(t, 8, cfg.HotCache.Concurrency)
}

func TestLoadConfigTOMLUnknownField(t *testing.T) {
	path := writeFile(t, "bad.toml", "[Chain]\nEndpoint = \"x\"\n")
	cfg := defaultConfig()
	err := loadConfig(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.Contains(t, err.Error(), "field 'Endpoint' is not defined")
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "unisave.yaml", `
chain:
  simulated: true
  wallets: 4
deploy:
  artifacts: build/contracts
ledger:
  path: deployments.db
hotCache:
  enabled: true
  watchlist:
    - "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"
`)
	cfg := defaultConfig()
	require.NoError(t, loadConfig(path, &cfg))

	assert.True(t, cfg.Chain.Simulated)
	assert.Equal(t, 4, cfg.Chain.Wallets)
	assert.Equal(t, "build/contracts", cfg.Deploy.Artifacts)
	assert.Equal(t, "deployments.db", cfg.Ledger.Path)
	assert.True(t, cfg.HotCache.Enabled)
	assert.Equal(t, []common.Address{factoryAddr}, cfg.HotCache.Watchlist)
}

func TestLoadConfigYAMLUnknownField(t *testing.T) {
	path := writeFile(t, "bad.yml", "chain:\n  endpoint: x\n")
	cfg := defaultConfig()
	err := loadConfig(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg := defaultConfig()
	assert.ErrorIs(t, loadConfig(filepath.Join(t.TempDir(), "none.toml"), &cfg), os.ErrNotExist)
}

func TestDumpConfig(t *testing.T) {
	out, err := runApp(t, "dumpconfig", "--rpc", "http://node:8545", "--sim.wallets", "5", "--hotcache")
	require.NoError(t, err)

	cfg := defaultConfig()
	require.NoError(t, tomlSettings.NewDecoder(strings.NewReader(out)).Decode(&cfg))
	assert.Equal(t, "http://node:8545", cfg.Chain.RPC)
	assert.Equal(t, 5, cfg.Chain.Wallets)
	assert.True(t, cfg.HotCache.Enabled)
}

func TestDumpConfigFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "unisave.toml", "[Chain]\nRPC = \"http://file:8545\"\nKeyFile = \"deployer.key\"\n")
	dump := filepath.Join(t.TempDir(), "dump.toml")

	_, err := runApp(t, "--config", path, "dumpconfig", "--rpc", "http://flag:8545", dump)
	require.NoError(t, err)

	cfg := defaultConfig()
	require.NoError(t, loadConfig(dump, &cfg))
	assert.Equal(t, "http://flag:8545", cfg.Chain.RPC)
	assert.Equal(t, "deployer.key", cfg.Chain.KeyFile)
}

func TestInvalidWalletCount(t *testing.T) {
	_, err := runApp(t, "dumpconfig", "--sim.wallets", "0")
	assert.ErrorContains(t, err, "invalid wallet count")
}

func TestLogFile(t *testing.T) {
	logfile := filepath.Join(t.TempDir(), "unisave.log")
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run([]string{"unisave", "--verbosity", "4", "--log.file", logfile, "deploy", "--sim"}))

	data, err := os.ReadFile(logfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Deployed contract")
}
