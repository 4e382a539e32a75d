package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/handgrab/internal/core/observability/log"
	"github.com/zeusync/handgrab/internal/injector"
)

const shutdownTimeout = 5 * time.Second

type RunOptions struct {
	*RootOptions
	Listen string
	Scene  string
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the frame loop and the input bridge",
		Long: `Start the grab runtime: the fixed-rate frame loop ticking both hand
controllers and the world, plus the websocket input bridge.

Example:
  grabd run --config configs/handgrab.yaml
  HANDGRAB_RUNTIME_TICK_RATE=120 grabd run --listen :9000 -v`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "override runtime.listenAddr")
	cmd.Flags().StringVar(&opts.Scene, "scene", "", "override scenePath")
	return cmd
}

func run(ctx context.Context, opts *RunOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	if opts.Listen != "" {
		cfg.Runtime.ListenAddr = opts.Listen
	}
	if opts.Scene != "" {
		cfg.ScenePath = opts.Scene
	}

	rt, cleanup, err := injector.InitializeRuntime(cfg)
	if err != nil {
		return fmt.Errorf("initialize runtime: %w", err)
	}
	defer cleanup()
	defer func() { _ = rt.Logger.Sync() }()

	rt.Logger.Info("grabd starting",
		log.String("session", cfg.Runtime.Session),
		log.String("listen", cfg.Runtime.ListenAddr),
		log.Int("tick_rate", cfg.Runtime.TickRate),
		log.String("equip_mode", string(cfg.Grab.EquipMode)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.Manager.Run(gctx) })
	g.Go(func() error { return rt.Server.Run(gctx) })
	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = rt.Manager.Shutdown(shutdownCtx); err != nil {
		rt.Logger.Warn("shutdown incomplete", log.Error(err))
	}
	rt.Logger.Info("grabd stopped", log.Uint64("frames", rt.Manager.Frames()))
	return runErr
}
