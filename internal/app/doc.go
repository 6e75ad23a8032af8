// Package app bootstraps and runs the authentication handler daemon.
//
// # Architecture Overview
//
// The app package is the daemon's composition root, with four parts:
//
//  1. **Bootstrap (`bootstrap.go`)**: configuration loading, logging setup and
//     the session bus connection
//  2. **Configuration (`config.go`)**: command line settings for the bootstrap
//  3. **Services (`services.go`)**: the event loop, wallet, trust store,
//     prompter, notifier, token sources and the session registry
//  4. **Modes (`modes.go`)**: handler registration, systemd readiness and
//     signal-driven shutdown
//
// # Lifecycle
//
// Start services, claim the bus names, wait for a signal or the idle timeout,
// then cancel live sessions and let their channel commands drain. When no
// handler can claim its bus name the daemon exits with ErrNoHandlers, which
// is the usual sign that another instance is already serving.
//
// # Configuration
//
// Configuration comes from internal/config: YAML over defaults, then
// AUTHHANDLER_ environment overrides. The --debug flag forces debug logging
// regardless of the configured level.
package app
