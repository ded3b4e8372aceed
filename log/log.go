// Copyright (c) 2024 The Floresta developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package log wires up the leveled subsystem loggers every package in this
// module reads from, in the standard btcsuite/dcrd family shape: one
// slog.Backend feeding a fixed set of named subsystem loggers, each
// individually level-adjustable at runtime.
package log

import (
	"io"
	"os"

	"github.com/decred/slog"
)

// Subsystem tags, one per package that logs. CHVL covers header/tx/block
// validation (package blockchain), ACCU the accumulator engine, CHST the
// chain state, CFGN configuration and startup.
const (
	subsystemChainValidation = "CHVL"
	subsystemAccumulator     = "ACCU"
	subsystemChainState      = "CHST"
	subsystemConfig          = "CFGN"
)

var (
	backend = slog.NewBackend(os.Stdout)

	// CHVL is the header/transaction/block validator's logger.
	CHVL = backend.Logger(subsystemChainValidation)

	// ACCU is the Utreexo accumulator engine's logger.
	ACCU = backend.Logger(subsystemAccumulator)

	// CHST is the chain state's logger.
	CHST = backend.Logger(subsystemChainState)

	// CFGN is the configuration/startup logger.
	CFGN = backend.Logger(subsystemConfig)

	// subsystemLoggers maps each tag to its Logger, for SetLogLevels.
	subsystemLoggers = map[string]slog.Logger{
		subsystemChainValidation: CHVL,
		subsystemAccumulator:     ACCU,
		subsystemChainState:      CHST,
		subsystemConfig:          CFGN,
	}
)

// InitLogWriter sets the log backend to write to both stdout and w
// (typically a rotating log file), replacing the default stdout-only
// backend. Each subsystem keeps the level it had before the call.
func InitLogWriter(w io.Writer) {
	backend = slog.NewBackend(io.MultiWriter(os.Stdout, w))
	for tag, old := range subsystemLoggers {
		logger := backend.Logger(tag)
		logger.SetLevel(old.Level())
		subsystemLoggers[tag] = logger
		setSubsystemLogger(tag, logger)
	}
}

func setSubsystemLogger(tag string, logger slog.Logger) {
	switch tag {
	case subsystemChainValidation:
		CHVL = logger
	case subsystemAccumulator:
		ACCU = logger
	case subsystemChainState:
		CHST = logger
	case subsystemConfig:
		CFGN = logger
	}
}

// SetLogLevel sets the logging level for the subsystem identified by
// subsystemID. An unrecognized subsystemID is a no-op.
func SetLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, ok := slog.LevelFromString(logLevel)
	if !ok {
		return
	}
	logger.SetLevel(level)
}

// SetLogLevels sets every subsystem's logging level to logLevel.
func SetLogLevels(logLevel string) {
	for tag := range subsystemLoggers {
		SetLogLevel(tag, logLevel)
	}
}

// SubsystemTags returns the list of recognized subsystem tags, as listed by
// -debuglevel show.
func SubsystemTags() []string {
	return []string{
		subsystemChainValidation,
		subsystemAccumulator,
		subsystemChainState,
		subsystemConfig,
	}
}
