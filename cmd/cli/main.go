package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophmail/internal/buildinfo"
	"github.com/dmitrijs2005/gophmail/internal/client/cli"
	"github.com/dmitrijs2005/gophmail/internal/client/config"
	"github.com/dmitrijs2005/gophmail/internal/logging"
)

func run() int {
	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.New(logging.FormatConsole, cfg.LogLevel, os.Stderr).With("service", "gophmail-cli")

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
