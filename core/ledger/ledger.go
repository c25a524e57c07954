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

// Package ledger records exchange deployments in a SQLite database so that
// later runs can find the contracts an earlier run created.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no deployment matches a query.
var ErrNotFound = errors.New("deployment not found")

// Deployment is a single contract created during a run.
type Deployment struct {
	RunID    uuid.UUID
	ChainID  uint64
	Name     string
	Address  common.Address
	TxHash   common.Hash
	Deployer common.Address
	Block    uint64
	Time     time.Time
}

// Ledger is a deployment store backed by SQLite.
type Ledger struct {
	db   *sql.DB
	path string
}

var schema = []string{`
CREATE TABLE IF NOT EXISTS deployments (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id   TEXT NOT NULL,
	chain_id INTEGER NOT NULL,
	name     TEXT NOT NULL,
	address  TEXT NOT NULL,
	tx_hash  TEXT NOT NULL,
	deployer TEXT NOT NULL,
	block    INTEGER NOT NULL,
	time     INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS deployments_run ON deployments (run_id)`,
	`CREATE INDEX IF NOT EXISTS deployments_chain_name ON deployments (chain_id, name)`,
}

// Open opens or creates the ledger at path. The path ":memory:" gives a
// private in-memory ledger.
func Open(path string) (*Ledger, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	// Every sqlite connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize ledger: %w", err)
		}
	}
	log.Debug("Opened deployment ledger", "path", path)
	return &Ledger{db: db, path: path}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores a deployment. A zero Time is replaced by the current time.
func (l *Ledger) Record(ctx context.Context, d Deployment) error {
	if d.RunID == uuid.Nil {
		return errors.New("deployment without run id")
	}
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO deployments (run_id, chain_id, name, address, tx_hash, deployer, block, time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.RunID.String(), int64(d.ChainID), d.Name, d.Address.Hex(), d.TxHash.Hex(), d.Deployer.Hex(),
		int64(d.Block), d.Time.Unix())
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", d.Name, err)
	}
	log.Debug("Recorded deployment", "run", d.RunID, "name", d.Name, "address", d.Address)
	return nil
}

const selectColumns = `SELECT run_id, chain_id, name, address, tx_hash, deployer, block, time FROM deployments`

// Run returns the deployments of one run in the order they were recorded.
func (l *Ledger) Run(ctx context.Context, runID uuid.UUID) ([]Deployment, error) {
	deployments, err := l.query(ctx, selectColumns+` WHERE run_id = ? ORDER BY id`, runID.String())
	if err != nil {
		return nil, err
	}
	if len(deployments) == 0 {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}
	return deployments, nil
}

// Latest returns the most recent deployment of a contract on a chain.
func (l *Ledger) Latest(ctx context.Context, chainID uint64, name string) (*Deployment, error) {
	deployments, err := l.query(ctx, selectColumns+` WHERE chain_id = ? AND name = ? ORDER BY id DESC LIMIT 1`,
		int64(chainID), name)
	if err != nil {
		return nil, err
	}
	if len(deployments) == 0 {
		return nil, fmt.Errorf("%w: %s on chain %d", ErrNotFound, name, chainID)
	}
	return &deployments[0], nil
}

// List returns up to limit deployments, newest first. A non-positive limit
// returns everything.
func (l *Ledger) List(ctx context.Context, limit int) ([]Deployment, error) {
	if limit <= 0 {
		return l.query(ctx, selectColumns+` ORDER BY id DESC`)
	}
	return l.query(ctx, selectColumns+` ORDER BY id DESC LIMIT ?`, limit)
}

func (l *Ledger) query(ctx context.Context, query string, args ...interface{}) ([]Deployment, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var deployments []Deployment
	for rows.Next() {
		var (
			d                          Deployment
			runID, address, tx, sender string
			chainID, block, unix       int64
		)
		if err := rows.Scan(&runID, &chainID, &d.Name, &address, &tx, &sender, &block, &unix); err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		if d.RunID, err = uuid.Parse(runID); err != nil {
			return nil, fmt.Errorf("corrupt run id %q: %w", runID, err)
		}
		d.ChainID = uint64(chainID)
		d.Address = common.HexToAddress(address)
		d.TxHash = common.HexToHash(tx)
		d.Deployer = common.HexToAddress(sender)
		d.Block = uint64(block)
		d.Time = time.Unix(unix, 0)
		deployments = append(deployments, d)
	}
	return deployments, rows.Err()
}
