// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camsync/internal/log"
)

// parseEnv reads key and converts it with parse. Unset or empty variables and parse
// failures keep current; the chosen source is logged at debug level.
func parseEnv[T any](key string, current T, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().
			Str("key", key).
			Str("source", "default").
			Msg("environment variable not set")
		return current
	}
	parsed, err := parse(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Err(err).
			Msg("invalid environment variable, keeping configured value")
		return current
	}
	logEnv(logger, key, v)
	return parsed
}

func logEnv(logger zerolog.Logger, key, value string) {
	lower := strings.ToLower(key)
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if strings.Contains(lower, "token") || strings.Contains(lower, "password") {
		ev.Bool("sensitive", true).Msg("using environment variable")
		return
	}
	ev.Str("value", value).Msg("using environment variable")
}

// ParseString reads a string variable.
func ParseString(key, current string) string {
	return parseEnv(key, current, func(s string) (string, error) { return s, nil })
}

// ParseInt reads an integer variable.
func ParseInt(key string, current int) int {
	return parseEnv(key, current, strconv.Atoi)
}

// ParseFloat reads a float variable.
func ParseFloat(key string, current float64) float64 {
	return parseEnv(key, current, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// ParseDuration reads a Go duration ("5s").
func ParseDuration(key string, current time.Duration) time.Duration {
	return parseEnv(key, current, time.ParseDuration)
}

// ParseBool accepts true/false, 1/0 and yes/no, case-insensitively.
func ParseBool(key string, current bool) bool {
	return parseEnv(key, current, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, fmt.Errorf("not a boolean: %q", s)
	})
}
