/*
Package log provides structured logging for sastre-engine using zerolog.

It wraps zerolog to give every package a component-scoped logger, a
consistent level configuration, and helpers for correlating log lines
across one task invocation (operation_id) or one item kind.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("restclient")              │          │
	│  │  - WithComponent("task")                    │          │
	│  │  - WithComponent("action")                  │          │
	│  │  - WithOperationID("<uuid>")                │          │
	│  │  - WithKind("template_feature")              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

Initializing the logger:

	import "github.com/cisco-sastre/sastre-engine/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Component loggers:

	logger := log.WithComponent("task")
	logger.Info().Str("operation_id", opID).Msg("starting backup")

Correlating one run's logs:

	opLogger := log.WithOperationID(uuid.NewString())
	opLogger.Info().Msg("backup started")
	opLogger.Error().Err(err).Str("kind", "template_device").Msg("item fetch failed")

# Integration Points

This package integrates with:

  - pkg/restclient: logs HTTP requests, retries, and rate-limit waits
  - pkg/task: logs orchestrator operations under component "task",
    tagged with an operation_id for correlation across one CLI run
  - pkg/action: logs async action submission and poll outcomes
  - cmd/sastre: initializes the global logger from CLI flags/env

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance, initialized once at startup,
    accessible from every package without being passed explicitly.

Component Logger Pattern:
  - Child loggers add a fixed "component" field so log lines can be
    filtered by subsystem without repeating it at every call site.

Structured Logging:
  - Typed fields (.Str, .Err, .Int) instead of string interpolation,
    so logs remain machine-parseable.

# Security

Never log controller session cookies, CSRF tokens, or passwords from
ConnectionConfig. Redact before logging request/response bodies that may
carry secrets in a custom feature template.

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - Structured logging: https://www.thoughtworks.com/radar/techniques/structured-logging
*/
package log
