package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophmail/internal/buildinfo"
	"github.com/dmitrijs2005/gophmail/internal/flagx"
	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/server"
	"github.com/dmitrijs2005/gophmail/internal/server/config"
)

// deactivateFlag returns the username given with -deactivate, if any.
func deactivateFlag() string {
	var username string
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.StringVar(&username, "deactivate", "", "deactivate the named user and exit")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-deactivate", "--deactivate"}))
	return username
}

func run() int {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stdout).With("service", "gophmail-server")

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	if username := deactivateFlag(); username != "" {
		if err := app.Deactivate(ctx, username); err != nil {
			fmt.Fprintf(os.Stderr, "deactivate %s: %v\n", username, err)
			return 1
		}
		return 0
	}

	if err := app.Run(ctx); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
