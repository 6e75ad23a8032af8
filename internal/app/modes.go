package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/godbus/dbus/v5"

	"authhandler/internal/telepathy"
	"authhandler/pkg/logging"
)

// ErrNoHandlers is returned when no handler could claim its bus name,
// usually because another instance is already running.
var ErrNoHandlers = errors.New("no handler could be registered")

// shutdownTimeout bounds how long pending channel commands may run after
// the sessions have been cancelled.
const shutdownTimeout = 5 * time.Second

// runDaemon registers the enabled handlers and serves until stopped.
//
// Behavior:
//   - Exports and names the handlers enabled in the configuration
//   - Fails with ErrNoHandlers when none could be named
//   - Reports readiness to systemd when started as a notify service
//   - Blocks until SIGINT, SIGTERM, ctx cancellation or the idle timeout
//   - Cancels every live session and lets their channel commands drain
func runDaemon(ctx context.Context, cfg *Config, services *Services, conn *dbus.Conn) error {
	defer services.Close()

	handlers := cfg.Handler.Daemon.Handlers
	server := telepathy.NewServer(conn, services.Loop, services.Registry)
	defer server.Close()

	n, err := server.Register(telepathy.Options{
		SASL:       handlers.SASL,
		TLS:        handlers.TLS,
		Captcha:    handlers.Captcha,
		Conference: handlers.Conference,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoHandlers
	}

	if services.Watcher != nil {
		if err := services.Watcher.Start(); err != nil {
			logging.Warn("Daemon", "Not watching trust rules: %v", err)
		}
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = services.Loop.Run(loopCtx)
	}()
	services.Loop.Post(services.Registry.StartIdleTimer)

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logging.Warn("Daemon", "Failed to notify systemd: %v", err)
	} else if ok {
		logging.Debug("Daemon", "Notified systemd of readiness")
	}
	logging.Info("Daemon", "Serving %d handlers", n)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logging.Info("Daemon", "Received %s, shutting down", sig)
	case <-services.Idle:
		logging.Info("Daemon", "Exiting after idle timeout")
	case <-ctx.Done():
		logging.Info("Daemon", "Shutting down")
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	shutdown(services)
	stopLoop()
	<-loopDone
	return nil
}

// shutdown cancels every session on the loop and gives the queued channel
// commands a moment to complete.
func shutdown(services *Services) {
	done := make(chan struct{})
	services.Loop.Post(func() {
		services.Registry.Shutdown()
		close(done)
	})

	timer := time.NewTimer(shutdownTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		logging.Warn("Daemon", "Sessions did not stop within %s", shutdownTimeout)
		return
	}

	// Closing channels runs through the sessions' command queues after
	// Shutdown returns.
	deadline := time.Now().Add(shutdownTimeout)
	for services.Loop.Pending() && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
}
