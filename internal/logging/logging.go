/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process.
func Setup(environment string) zerolog.Logger {
	return SetupWithWriter(environment, nil)
}

// SetupWithWriter configures zerolog with an additional JSON writer, e.g. a
// log shipper sidecar.
func SetupWithWriter(environment string, additionalWriter io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var writer io.Writer = os.Stdout
	if environment == "development" {
		writer = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	if additionalWriter != nil {
		writer = zerolog.MultiLevelWriter(writer, additionalWriter)
	}

	logger := zerolog.New(writer).With().Timestamp().Str("service", "trendycart").Logger().Level(levelFor(environment))
	log.Logger = logger
	return logger
}

func levelFor(environment string) zerolog.Level {
	if lvl, err := zerolog.ParseLevel(os.Getenv("TRENDYCART_LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		return lvl
	}
	if environment == "development" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
