package utils

import (
	"os"
	"strconv"
	"strings"
)

// GetEnvAsBool reads key as a boolean. Accepts 1/0, true/false and
// yes/no in any case; anything else falls back to defaultVal.
func GetEnvAsBool(key string, defaultVal bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return defaultVal
}

// GetEnvAsInt reads key as an integer, falling back to defaultVal when
// unset or unparseable.
func GetEnvAsInt(key string, defaultVal int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return v
}

// GetEnvAsFloat reads key as a float64, falling back to defaultVal when
// unset or unparseable.
func GetEnvAsFloat(key string, defaultVal float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultVal
	}
	return v
}
