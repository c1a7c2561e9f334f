// Package main provides the MCP server entry point for travis-log-fetch.
// It serves the stored log tree and Travis job resolution over stdio.
package main

import (
	"context"
	"fmt"
	"os"

	"travis-log-fetch/src/config"
	"travis-log-fetch/src/logger"
	"travis-log-fetch/src/mcp"
	"travis-log-fetch/src/resolve"
	"travis-log-fetch/src/storage"
	"travis-log-fetch/src/store"
	"travis-log-fetch/src/travis"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.DefaultPaths()...)
	if err != nil {
		return err
	}
	tmpl, err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	dir, err := cfg.LogDir()
	if err != nil {
		return err
	}

	// stdout carries the protocol
	log := logger.NewSilentLogger()

	deps := mcp.Deps{
		Index:    storage.NewIndex(dir, tmpl, log),
		Writer:   storage.NewWriter(dir, tmpl, log),
		Resolver: resolve.New(travis.NewClient(cfg.API, cfg.TravisToken), log),
	}
	if cfg.LedgerDSN != "" {
		ledger, err := store.NewPostgresStore(context.Background(), cfg.LedgerDSN)
		if err != nil {
			return fmt.Errorf("failed to open fetch ledger: %w", err)
		}
		defer ledger.Close()
		deps.Ledger = ledger
	}

	return mcp.NewServer(version, deps).Run()
}
