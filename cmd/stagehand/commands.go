package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/loykin/stagehand"
	"github.com/loykin/stagehand/internal/logger"
	"github.com/spf13/cobra"
)

func buildRoot() *cobra.Command {
	var g GlobalFlags
	root := &cobra.Command{
		Use:           "stagehand",
		Short:         "lifecycle orchestrator for interdependent control-plane daemons",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			slog.SetDefault(logger.New(g.Debug))
		},
	}
	root.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "stagehand.toml", "path to TOML config")
	root.PersistentFlags().BoolVar(&g.Debug, "debug", false, "enable debug logging")
	root.AddCommand(newRunCmd(&g), newOrderCmd(&g), newValidateCmd(&g), newServeCmd(&g))
	return root
}

// signalContext cancels on SIGINT/SIGTERM so a run in flight surfaces as
// cancelled rather than dying mid-phase.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newRunCmd(g *GlobalFlags) *cobra.Command {
	var f RunFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "execute one lifecycle phase across the local host's units",
		RunE: func(_ *cobra.Command, _ []string) error {
			phase, err := stagehand.ParsePhase(f.Phase)
			if err != nil {
				return err
			}
			cfg, err := stagehand.LoadConfig(g.ConfigPath)
			if err != nil {
				return err
			}
			orch, closeSink, err := stagehand.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeSink() }()
			ctx, cancel := signalContext()
			defer cancel()
			return orch.Run(ctx, phase, f.Unit)
		},
	}
	cmd.Flags().StringVar(&f.Phase, "phase", "", "phase: install|configure|init|start|stop|cleanup")
	cmd.Flags().StringVar(&f.Unit, "unit", "all", "unit name, or all")
	_ = cmd.MarkFlagRequired("phase")
	return cmd
}

func newOrderCmd(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "print units in dependency order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := stagehand.LoadConfig(g.ConfigPath)
			if err != nil {
				return err
			}
			orch, closeSink, err := stagehand.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeSink() }()
			ordered, err := orch.Order()
			if err != nil {
				return err
			}
			for i := range ordered {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ordered[i].Name, ordered[i].Host)
			}
			return nil
		},
	}
}

func newValidateCmd(g *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "load and validate the config without touching any process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := stagehand.LoadConfig(g.ConfigPath)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d units on %d hosts\n",
				len(cfg.Units), len(cfg.Topology.Hosts()))
			return nil
		},
	}
}

func newServeCmd(g *GlobalFlags) *cobra.Command {
	var f ServeFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the local units, then serve the status API until signalled",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := stagehand.LoadConfig(g.ConfigPath)
			if err != nil {
				return err
			}
			orch, closeSink, err := stagehand.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeSink() }()
			if err := stagehand.RegisterMetricsDefault(); err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			if !f.NoStart {
				if err := orch.Run(ctx, stagehand.PhaseStart, ""); err != nil {
					return err
				}
			}
			srv, err := stagehand.NewHTTPServer(f.Listen, f.BasePath, orch)
			if err != nil {
				return err
			}
			slog.Info("serving status API", "addr", f.Listen, "base", f.BasePath)
			<-ctx.Done()

			_ = srv.Close()
			// Teardown runs on a fresh context; the signal already consumed ctx.
			if !f.NoStart {
				if err := orch.Run(context.Background(), stagehand.PhaseStop, ""); err != nil {
					_, _ = fmt.Fprintln(os.Stderr, "stop:", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Listen, "listen", "127.0.0.1:8484", "status API listen address")
	cmd.Flags().StringVar(&f.BasePath, "base", "/api", "status API base path")
	cmd.Flags().BoolVar(&f.NoStart, "no-start", false, "serve the API without running the start phase")
	return cmd
}
