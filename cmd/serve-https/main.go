// Command serve-https serves the working directory over HTTPS with a
// self-signed certificate, for identity providers that refuse plain HTTP
// callbacks during development.
//
// Usage:
//
//	serve-https [flags] [port]
//
// The certificate is regenerated on every start, in-process first and with
// openssl second. If neither works the command serves plain HTTP on the
// fallback port (8080) instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/f4ah6o/devserve-go/internal/cli"
	"github.com/f4ah6o/devserve-go/internal/logging"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: serve-https [flags] [port]\n")
	flag.PrintDefaults()
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	flag.Usage = usage
	flags := cli.RegisterFlags(flag.CommandLine, true)
	flag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "serve-https: %v\n", err)
		return 1
	}

	port, err := cli.ParsePort(flag.Args(), cfg.Server.HTTPSPort)
	if err != nil {
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(os.Stderr, usageErr.Msg)
			return 1
		}
		fmt.Fprintf(os.Stderr, "serve-https: %v\n", err)
		return 1
	}

	log, err := logging.New(cfg.Log.Level, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "serve-https: %v\n", err)
		return 1
	}

	runner, err := cli.NewRunner(cfg, log, logging.NewConsole(nil))
	if err != nil {
		log.WithError(err).Error("Invalid configuration")
		return 1
	}
	acquirer, paths, err := cli.NewAcquirer(cfg, log)
	if err != nil {
		log.WithError(err).Error("Invalid configuration")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"root": cfg.Server.Root,
		"cert": paths.CertFile(),
	}).Debug("Starting")
	if err := runner.RunHTTPS(ctx, port, acquirer, paths, cfg.TLS.FallbackPort); err != nil {
		log.WithError(err).Error("Server error")
		return 1
	}
	return 0
}
