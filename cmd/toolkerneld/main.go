// Command toolkerneld is the operator entry point for the tool
// supervisor kernel (spec §6 "Operator CLI").
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/containerd/log"
	"github.com/urfave/cli/v2"

	"github.com/nullbound/toolkernel/internal/config"
	"github.com/nullbound/toolkernel/internal/control"
	"github.com/nullbound/toolkernel/internal/control/filetransport"
	"github.com/nullbound/toolkernel/internal/control/tcptransport"
	"github.com/nullbound/toolkernel/internal/supervisor"
)

func main() {
	app := &cli.App{
		Name:    "toolkerneld",
		Usage:   "event-driven tool supervisor kernel",
		Version: supervisor.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to the kernel configuration file", Required: true},
			&cli.BoolFlag{Name: "debug", Usage: "lower the log threshold to debug regardless of config"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.L.WithError(err).Error("toolkerneld exiting")
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		log.L.WithError(err).Error("failed to load configuration")
		return err
	}

	level := strings.ToLower(string(cfg.Core.LogLevel))
	if c.Bool("debug") {
		level = "debug"
	}
	if err := log.SetLevel(level); err != nil {
		log.L.WithError(err).Warn("unrecognized log level, leaving default")
	}

	if cfg.Core.PidFile != "" {
		if err := os.WriteFile(cfg.Core.PidFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
			log.L.WithError(err).Error("failed to write pid file")
			return err
		}
		defer os.Remove(cfg.Core.PidFile)
	}

	kernel, err := supervisor.New(cfg)
	if err != nil {
		log.L.WithError(err).Error("failed to build kernel from configuration")
		return err
	}
	kernel.Bootstrap()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	inproc := control.NewInProcess(kernel.Queue)
	go func() {
		log.L.WithField("version", inproc.Version()).Info("toolkerneld ready")
	}()

	if cfg.Core.ControlPort != 0 {
		tcp, err := tcptransport.Listen(kernel.Queue, cfg.Core.ControlPort)
		if err != nil {
			log.L.WithError(err).Error("failed to bind control tcp transport")
			return err
		}
		defer tcp.Close()
		go tcp.Serve(ctx)
		log.L.WithField("addr", tcp.Addr()).Info("control tcp transport listening")
	} else {
		base := cfg.Core.PidFile
		if base == "" {
			base = "/tmp/toolkerneld"
		}
		ft, err := filetransport.Open(ctx, base+".cmd", base+".resp")
		if err != nil {
			log.L.WithError(err).Error("failed to open control file transport")
			return err
		}
		defer ft.Close()
		log.L.WithField("cmd", base+".cmd").WithField("resp", base+".resp").Info("control file transport ready")
		kernel.FileBinding = ft
	}

	ia := control.NewInteractive(kernel.Queue, os.Stdin, os.Stdout)
	go ia.Serve(ctx)

	if err := kernel.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "toolkerneld stopped")
	return nil
}
