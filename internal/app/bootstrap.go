package app

import (
	"context"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"

	"authhandler/internal/config"
	"authhandler/pkg/logging"
)

// Application bootstraps and runs the authentication handler daemon.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: load configuration, initialize logging, build services
//  2. Execution phase: claim the bus names and serve until signalled or idle
//
// Example usage:
//
//	cfg := app.NewConfig(true, "")  // debug logging, default config path
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	conn     *dbus.Conn
	services *Services
}

// NewApplication loads the configuration, configures logging, connects to the
// session bus and initializes the services.
//
// A bus connection failure is fatal: without the bus there is nobody to
// serve and no way to notify the user.
func NewApplication(cfg *Config) (*Application, error) {
	if cfg.Handler == nil {
		handlerCfg, err := config.Load(cfg.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg.Handler = &handlerCfg
	}

	initLogging(cfg)
	logging.Info("Bootstrap", "Loaded configuration")

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to connect to the session bus")
		return nil, fmt.Errorf("failed to connect to the session bus: %w", err)
	}

	services, err := InitializeServices(cfg, conn)
	if err != nil {
		conn.Close()
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		conn:     conn,
		services: services,
	}, nil
}

// initLogging applies the configured level and format. Debug wins over the
// configured level; an unparseable level has already been rejected by
// validation, so it falls back to info here.
func initLogging(cfg *Config) {
	level, err := logging.ParseLevel(cfg.Handler.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.Init(level, cfg.Handler.Logging.Format, os.Stderr)
}

// Run serves until ctx is cancelled, a termination signal arrives or the
// idle timeout expires.
func (a *Application) Run(ctx context.Context) error {
	defer a.conn.Close()
	return runDaemon(ctx, a.config, a.services, a.conn)
}
