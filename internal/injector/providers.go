// Package injector assembles the grab runtime from configuration.
package injector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/wire"

	"github.com/zeusync/handgrab/internal/config"
	"github.com/zeusync/handgrab/internal/core/avatar"
	"github.com/zeusync/handgrab/internal/core/events/bus"
	"github.com/zeusync/handgrab/internal/core/grab"
	"github.com/zeusync/handgrab/internal/core/observability/log"
	"github.com/zeusync/handgrab/internal/core/systems"
	"github.com/zeusync/handgrab/internal/core/world/memworld"
	"github.com/zeusync/handgrab/internal/server"
)

var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	avatar.NewBuffer,
	ProvideWorld,
	ProvideBus,
	ProvideHub,
	server.NewVisuals,
	ProvideSystem,
	ProvideManager,
	ProvideServer,
	wire.Struct(new(Runtime), "*"),
)

// Runtime is the assembled process.
type Runtime struct {
	Config  config.Config
	Logger  *log.Logger
	World   *memworld.World
	Poses   *avatar.Buffer
	Bus     bus.EventBus
	System  *grab.System
	Manager *systems.Manager
	Server  *server.Server
}

func ProvideLogger(cfg config.Config) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Runtime.LogLevel)
	if err != nil {
		return nil, err
	}
	return log.New(level), nil
}

func ProvideWorld(cfg config.Config, poses *avatar.Buffer, logger log.Log) (*memworld.World, error) {
	w := memworld.New(memworld.WithHands(poses), memworld.WithLogger(logger))
	if cfg.ScenePath != "" {
		if err := w.LoadSceneFile(cfg.ScenePath); err != nil {
			return nil, err
		}
		logger.Info("scene loaded", log.String("path", cfg.ScenePath))
	}
	return w, nil
}

func ProvideBus(logger log.Log) (bus.EventBus, func()) {
	b := bus.New(logger)
	b.AddObserver(bus.LogObserver{Logger: logger})
	return b, func() { _ = b.Close() }
}

func ProvideHub(logger log.Log) *server.Hub {
	return server.NewHub(logger)
}

func ProvideSystem(cfg config.Config, w *memworld.World, poses *avatar.Buffer, visuals *server.Visuals, b bus.EventBus, logger log.Log) (*grab.System, error) {
	return grab.NewSystem(cfg.Grab, grab.Deps{
		World:    w,
		Poses:    poses,
		Visuals:  visuals,
		Animator: poses,
		Session:  cfg.Runtime.Session,
		Logger:   logger,
	}, b)
}

// ProvideManager schedules the grab system ahead of the world step so that
// constraints created in a frame are integrated in the same frame.
func ProvideManager(cfg config.Config, sys *grab.System, w *memworld.World, logger log.Log) (*systems.Manager, error) {
	m, err := systems.NewManager(cfg.Runtime.TickRate, logger)
	if err != nil {
		return nil, err
	}
	if err = m.Register(sys, systems.PriorityHigh); err != nil {
		return nil, err
	}
	step := systems.Func{Label: "world", Step: func(now time.Time, dt time.Duration) error {
		w.Step(now, dt)
		return nil
	}}
	if err = m.Register(step, systems.PriorityNormal); err != nil {
		return nil, err
	}
	return m, nil
}

func ProvideServer(cfg config.Config, sys *grab.System, poses *avatar.Buffer, b bus.EventBus, hub *server.Hub, logger log.Log) (*server.Server, func(), error) {
	s, err := server.New(server.Options{
		Addr:    cfg.Runtime.ListenAddr,
		Session: cfg.Runtime.Session,
	}, server.Deps{
		Hands:  sys,
		Poses:  poses,
		Bus:    b,
		Hub:    hub,
		Auth:   server.TokenAuth{Token: cfg.Runtime.Token},
		Logger: logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("input bridge: %w", err)
	}
	return s, func() { _ = s.Close(context.Background()) }, nil
}
