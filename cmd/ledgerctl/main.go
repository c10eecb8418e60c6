package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nhfoods/ledgerdesk/cmd/ledgerctl/cli"
	"github.com/nhfoods/ledgerdesk/internal/app"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	root, cleanup := cli.NewRootCommand(load, version)
	defer cleanup()
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

func load(ctx context.Context) (*cli.Runtime, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)
	s, err := app.NewServices(ctx, cfg, logger, app.ServiceOptions{})
	if err != nil {
		return nil, nil, err
	}
	rt := &cli.Runtime{
		Ledgers:   s.Ledgers,
		Reports:   s.Reports,
		Exporter:  s.Exporter,
		Company:   s.Company,
		ExportDir: cfg.ExportDir,
		Queue:     cfg.Queue(),
	}
	return rt, s.Close, nil
}
