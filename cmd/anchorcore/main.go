// Command anchorcore serves the transaction action RPC and inspects the
// action state machine.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"anchorcore/internal/action"
	"anchorcore/internal/adapters/rpc"
	"anchorcore/internal/config"
	"anchorcore/internal/core"
	"anchorcore/internal/logging"
)

var exitFunc = os.Exit

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitFunc(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "anchorcore",
		Usage:  "transaction action core of an interoperability anchor",
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "serve JSON-RPC actions on ANCHORCORE_HTTP_ADDR",
				Action: serve,
			},
			{
				Name:  "transitions",
				Usage: "print every action transition",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "output format: table or json",
						Value: "table",
					},
				},
				Action: func(c *cli.Context) error {
					return printTransitions(c.App.Writer, c.String("format"))
				},
			},
		},
	}
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := core.NewService(ctx, cfg, core.WithLogger(logger), core.WithRegisterer(reg))
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("close service", zap.Error(err))
		}
	}()

	handler := rpc.NewHandler(svc, logger)
	if cfg.HTTP.MetricsEnabled {
		handler.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr), zap.Bool("metrics", cfg.HTTP.MetricsEnabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printTransitions(w io.Writer, format string) error {
	rows := action.TransitionTable()
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ACTION\tSEP\tKIND\tFROM\tTO\tUNTIL RECEIVED")
		for _, r := range rows {
			until := ""
			if r.UntilReceived {
				until = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Action, r.Protocol, r.Kind, r.From, r.To, until)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (want table or json)", format)
	}
}
