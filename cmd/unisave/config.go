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
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"unicode"

	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/unisave/unisave-go/core/state/hotcache"
)

var dumpConfigCommand = &cli.Command{
	Action:      dumpConfig,
	Name:        "dumpconfig",
	Usage:       "Export configuration values in a TOML format",
	ArgsUsage:   "<dumpfile (optional)>",
	Flags:       configFlags,
	Description: `Export configuration values in TOML format (to stdout by default).`,
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type chainConfig struct {
	RPC       string `yaml:"rpc"`
	KeyFile   string `yaml:"keyFile"`
	Simulated bool   `yaml:"simulated"`
	Wallets   int    `yaml:"wallets"`
}

type deployConfig struct {
	Artifacts string `yaml:"artifacts"`
	GasLimit  uint64 `yaml:"gasLimit"`
}

type ledgerConfig struct {
	Path string `yaml:"path"`
}

type unisaveConfig struct {
	Chain    chainConfig     `yaml:"chain"`
	Deploy   deployConfig    `yaml:"deploy"`
	Ledger   ledgerConfig    `yaml:"ledger"`
	HotCache hotcache.Config `yaml:"hotCache"`
}

func defaultConfig() unisaveConfig {
	return unisaveConfig{
		Chain:    chainConfig{Wallets: walletsFlag.Value},
		HotCache: hotcache.DefaultConfig(),
	}
}

// loadConfig decodes file into cfg. Files ending in .yaml or .yml are read
// as YAML, everything else as TOML.
func loadConfig(file string, cfg *unisaveConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		return nil
	default:
		err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
		// Add file name to errors that have a line number.
		if _, ok := err.(*toml.LineError); ok {
			err = errors.New(file + ", " + err.Error())
		}
		return err
	}
}

// makeConfig loads the configuration file, if any, and applies flags on top.
func makeConfig(ctx *cli.Context) (unisaveConfig, error) {
	cfg := defaultConfig()
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(rpcFlag.Name) {
		cfg.Chain.RPC = ctx.String(rpcFlag.Name)
	}
	if ctx.IsSet(keyFlag.Name) {
		cfg.Chain.KeyFile = ctx.String(keyFlag.Name)
	}
	if ctx.IsSet(simFlag.Name) {
		cfg.Chain.Simulated = ctx.Bool(simFlag.Name)
	}
	if ctx.IsSet(walletsFlag.Name) {
		cfg.Chain.Wallets = ctx.Int(walletsFlag.Name)
	}
	if ctx.IsSet(artifactsFlag.Name) {
		cfg.Deploy.Artifacts = ctx.String(artifactsFlag.Name)
	}
	if ctx.IsSet(gasLimitFlag.Name) {
		cfg.Deploy.GasLimit = ctx.Uint64(gasLimitFlag.Name)
	}
	if ctx.IsSet(ledgerFlag.Name) {
		cfg.Ledger.Path = ctx.String(ledgerFlag.Name)
	}
	if ctx.IsSet(hotCacheFlag.Name) {
		cfg.HotCache.Enabled = ctx.Bool(hotCacheFlag.Name)
	}
	if cfg.Chain.Wallets < 1 {
		return cfg, fmt.Errorf("invalid wallet count %d", cfg.Chain.Wallets)
	}
	return cfg, nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := ctx.App.Writer
	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		dump = f
	}
	_, err = dump.Write(out)
	return err
}
