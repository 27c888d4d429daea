package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pechorka/xmum-wiki/cmd/wiki/internal/shell"
	"github.com/pechorka/xmum-wiki/internal/app"
	"github.com/pechorka/xmum-wiki/internal/bootstrap"
	"github.com/pechorka/xmum-wiki/internal/config"
	"github.com/pechorka/xmum-wiki/internal/devserver"
	"github.com/pkg/errors"
)

func main() {
	if err := run(); err != nil {
		if !shell.Shown(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", config.DefaultPath, "path to the yaml config")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config path] <command> [args]\n\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "  shell                  interactive session")
		fmt.Fprintln(flag.CommandLine.Output(), "  serve                  serve the front end and proxy the api")
		fmt.Fprintln(flag.CommandLine.Output(), "  any shell command, see `help`")
	}
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return errors.New("no command given")
	}

	cfg, err := config.Read(*cfgPath)
	if err != nil {
		return err
	}
	log, err := bootstrap.Logger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args[0] == "serve" {
		srv, err := devserver.New(cfg.DevServer, log)
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	}

	application, err := app.New(cfg, log, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.WithError(err).Error("failed to close application")
		}
	}()

	sh := shell.New(application, os.Stdout)
	if args[0] == "shell" {
		return sh.Run(ctx, os.Stdin)
	}
	return sh.Exec(ctx, args)
}
