package main

import (
	"context"

	"travis-log-fetch/src/config"
	"travis-log-fetch/src/fetch"
	"travis-log-fetch/src/github"
	"travis-log-fetch/src/logger"
	"travis-log-fetch/src/logtemplate"
	"travis-log-fetch/src/pipeline"
	"travis-log-fetch/src/storage"
	"travis-log-fetch/src/travis"
)

// newLogger returns the console logger, or a silent one while the terminal
// UI owns the screen.
func newLogger(verbose, quiet bool) logger.Logger {
	if quiet {
		return logger.NewSilentLogger()
	}
	return logger.NewConsoleLogger(verbose)
}

func openIndex(cfg *config.Config, tmpl *logtemplate.Template, verbose bool) (*storage.Index, error) {
	dir, err := cfg.LogDir()
	if err != nil {
		return nil, err
	}
	return storage.NewIndex(dir, tmpl, newLogger(verbose, false)), nil
}

func openBackends(ctx context.Context, cfg *config.Config, log logger.Logger) (*pipeline.Backends, error) {
	return pipeline.Open(ctx, &pipeline.Config{
		RedpandaBrokers: cfg.Brokers,
		PostgresDSN:     cfg.LedgerDSN,
		Topic:           cfg.Topic,
	}, log)
}

// buildEnv creates the clients, the stored log tree and the backends of a
// fetch. The caller closes the returned backends.
func buildEnv(ctx context.Context, cfg *config.Config, tmpl *logtemplate.Template, verbose, quiet bool) (*fetch.Env, *pipeline.Backends, error) {
	dir, err := cfg.LogDir()
	if err != nil {
		return nil, nil, err
	}
	log := newLogger(verbose, quiet)

	backends, err := openBackends(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	env := &fetch.Env{
		CI:     travis.NewClient(cfg.API, cfg.TravisToken),
		Forge:  github.NewClient(cfg.AccessToken),
		Index:  storage.NewIndex(dir, tmpl, log),
		Writer: storage.NewWriter(dir, tmpl, log),
		Log:    log,
		Ledger: backends.Ledger,
		Events: backends.Events,
	}
	return env, backends, nil
}

// webURL returns the web UI matching a Travis API, or "" when unknown.
func webURL(api string) string {
	switch travis.APIURL(api) {
	case travis.OrgAPI:
		return "https://travis-ci.org"
	case travis.ProAPI:
		return "https://travis-ci.com"
	}
	return ""
}
