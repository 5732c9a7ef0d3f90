// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Command kvd runs the key-value server: it loads configuration,
// wires the keyspace, command dispatcher and event loop together, and
// serves data-plane and admin traffic until signaled to stop.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"
	"gopkg.in/urfave/cli.v1"

	"github.com/holisticode/kvd/admin"
	"github.com/holisticode/kvd/command"
	"github.com/holisticode/kvd/config"
	"github.com/holisticode/kvd/eventloop"
	"github.com/holisticode/kvd/metrics"
	"github.com/holisticode/kvd/netio"
	"github.com/holisticode/kvd/store"
	"github.com/holisticode/kvd/tracing"
)

func main() {
	app := cli.NewApp()
	app.Name = "kvd"
	app.Usage = "an in-memory key-value server"
	app.Flags = []cli.Flag{
		configFlag, listenAddrFlag, portFlag,
		adminAddrFlag, adminPortFlag, noAdminFlag,
		metricsFlag, metricsInfluxDBURLFlag, metricsInfluxDBDBFlag, metricsInfluxDBTagsFlag,
		tracingFlag, tracingAgentFlag,
		logLevelFlag, logJSONFlag,
	}
	app.Action = run
	app.Commands = []cli.Command{loadCommand}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg := config.Default()
	if path := ctx.String(configFlag.Name); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	applyFlagOverrides(ctx, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	setupLogging(cfg)

	closer, err := tracing.Init(cfg)
	if err != nil {
		return fmt.Errorf("kvd: tracing init: %w", err)
	}
	defer closer.Close()

	keyspace := store.New(cfg.HashLoadFactor, cfg.HashRehashQuantum)
	dispatcher := command.New(keyspace)

	listenFD, err := netio.Listen(cfg.ListenAddr, cfg.Port)
	if err != nil {
		return fmt.Errorf("kvd: listen: %w", err)
	}

	loop, err := eventloop.New(listenFD, dispatcher)
	if err != nil {
		return fmt.Errorf("kvd: event loop: %w", err)
	}

	metrics.Setup(cfg, func() int { return keyspace.Len() })

	var adminSrv *admin.Server
	if cfg.AdminEnabled {
		inspector := admin.NewInspector(keyspace, loop)
		adminSrv = admin.NewServer(fmt.Sprintf("%s:%d", cfg.AdminAddr, cfg.AdminPort), inspector)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	g.Go(func() error {
		select {
		case <-sigCh:
			log.Info("shutting down")
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		err := loop.Run(gctx)
		loop.Close()
		if err != nil && err != context.Canceled {
			return err
		}
		return nil
	})

	if adminSrv != nil {
		g.Go(adminSrv.ListenAndServe)
		g.Go(func() error {
			<-gctx.Done()
			return adminSrv.Close()
		})
	}

	log.Info("kvd listening", "addr", cfg.ListenAddr, "port", cfg.Port)
	return g.Wait()
}

func applyFlagOverrides(ctx *cli.Context, cfg *config.Config) {
	if ctx.IsSet(listenAddrFlag.Name) {
		cfg.ListenAddr = ctx.String(listenAddrFlag.Name)
	}
	if ctx.IsSet(portFlag.Name) {
		cfg.Port = ctx.Int(portFlag.Name)
	}
	if ctx.IsSet(adminAddrFlag.Name) {
		cfg.AdminAddr = ctx.String(adminAddrFlag.Name)
	}
	if ctx.IsSet(adminPortFlag.Name) {
		cfg.AdminPort = ctx.Int(adminPortFlag.Name)
	}
	if ctx.Bool(noAdminFlag.Name) {
		cfg.AdminEnabled = false
	}
	if ctx.Bool(metricsFlag.Name) {
		cfg.MetricsEnabled = true
	}
	if ctx.IsSet(metricsInfluxDBURLFlag.Name) {
		cfg.MetricsInfluxDBURL = ctx.String(metricsInfluxDBURLFlag.Name)
	}
	if ctx.IsSet(metricsInfluxDBDBFlag.Name) {
		cfg.MetricsInfluxDBDB = ctx.String(metricsInfluxDBDBFlag.Name)
	}
	if ctx.IsSet(metricsInfluxDBTagsFlag.Name) {
		cfg.MetricsInfluxDBTags = ctx.String(metricsInfluxDBTagsFlag.Name)
	}
	if ctx.Bool(tracingFlag.Name) {
		cfg.TracingEnabled = true
	}
	if ctx.IsSet(tracingAgentFlag.Name) {
		cfg.TracingAgentAddr = ctx.String(tracingAgentFlag.Name)
	}
	if ctx.IsSet(logLevelFlag.Name) {
		cfg.LogLevel = ctx.String(logLevelFlag.Name)
	}
	if ctx.Bool(logJSONFlag.Name) {
		cfg.LogJSON = true
	}
}

// setupLogging installs go-ethereum's terminal or JSON log handler at
// cfg.LogLevel, using a colorable writer only when stdout is an
// interactive terminal.
func setupLogging(cfg *config.Config) {
	lvl, err := log.LvlFromString(cfg.LogLevel)
	if err != nil {
		lvl = log.LvlInfo
	}

	usecolor := !cfg.LogJSON && isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("TERM") != "dumb"
	output := io.Writer(os.Stdout)
	if usecolor {
		output = colorable.NewColorableStdout()
	}

	var handler log.Handler
	if cfg.LogJSON {
		handler = log.StreamHandler(output, log.JSONFormat())
	} else {
		handler = log.StreamHandler(output, log.TerminalFormat(usecolor))
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, handler))
}
