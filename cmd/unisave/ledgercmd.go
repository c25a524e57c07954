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
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/unisave/unisave-go/core/ledger"
)

var (
	runFlag = &cli.StringFlag{
		Name:  "run",
		Usage: "Only show the deployments of this run id",
	}
	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Maximum number of deployments to show (0 = all)",
		Value: 50,
	}
)

var ledgerCommand = &cli.Command{
	Name:  "ledger",
	Usage: "Inspect the deployment ledger",
	Subcommands: []*cli.Command{
		{
			Action: ledgerList,
			Name:   "list",
			Usage:  "Print recorded deployments, newest first",
			Flags:  []cli.Flag{ledgerFlag, runFlag, limitFlag},
		},
	},
}

// ledgerList is the ledger list command.
func ledgerList(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Ledger.Path == "" {
		return errors.New("--ledger is required")
	}
	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer l.Close()

	var deployments []ledger.Deployment
	if run := ctx.String(runFlag.Name); run != "" {
		id, err := uuid.Parse(run)
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		deployments, err = l.Run(ctx.Context, id)
		if err != nil {
			return err
		}
	} else {
		if deployments, err = l.List(ctx.Context, ctx.Int(limitFlag.Name)); err != nil {
			return err
		}
	}

	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Run", "Chain", "Contract", "Address", "Block", "Time"})
	for _, d := range deployments {
		table.Append([]string{
			d.RunID.String(),
			strconv.FormatUint(d.ChainID, 10),
			d.Name,
			d.Address.Hex(),
			strconv.FormatUint(d.Block, 10),
			d.Time.UTC().Format(time.RFC3339),
		})
	}
	table.Render()
	return nil
}
