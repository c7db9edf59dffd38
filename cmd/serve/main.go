// Command serve is a static file server for local front-end development.
//
// Usage:
//
//	serve [flags] [port]
//
// It serves the working directory (open /public/ in the browser) with CORS
// headers and caching disabled, on port 8080 unless a port is given.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/f4ah6o/devserve-go/internal/cli"
	"github.com/f4ah6o/devserve-go/internal/logging"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: serve [flags] [port]\n")
	flag.PrintDefaults()
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	flag.Usage = usage
	flags := cli.RegisterFlags(flag.CommandLine, false)
	flag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "serve: %v\n", err)
		return 1
	}

	port, err := cli.ParsePort(flag.Args(), cfg.Server.HTTPPort)
	if err != nil {
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(os.Stderr, usageErr.Msg)
			return 1
		}
		fmt.Fprintf(os.Stderr, "serve: %v\n", err)
		return 1
	}

	log, err := logging.New(cfg.Log.Level, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "serve: %v\n", err)
		return 1
	}

	runner, err := cli.NewRunner(cfg, log, logging.NewConsole(nil))
	if err != nil {
		log.WithError(err).Error("Invalid configuration")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("root", cfg.Server.Root).Debug("Starting")
	if err := runner.RunHTTP(ctx, port); err != nil {
		log.WithError(err).Error("Server error")
		return 1
	}
	return 0
}
