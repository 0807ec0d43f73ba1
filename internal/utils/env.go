package utils

import (
	"os"
	"strconv"

	"github.com/studiora/studiora-backend/internal/logger"
)

func GetEnv(key, defaultVal string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	return val
}

func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	if log != nil {
		log = log.With("env_var", key)
	}
	valStr, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		if log != nil {
			log.Debug("Environment variable could not be parsed as int, using default", "providedVal", valStr, "defaultVal", defaultVal, "error", err)
		}
		return defaultVal
	}
	return i
}

func GetEnvAsInt64(key string, defaultVal int64, log *logger.Logger) int64 {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	i, err := strconv.ParseInt(valStr, 10, 64)
	if err != nil {
		if log != nil {
			log.Debug("Environment variable could not be parsed as int64, using default", "env_var", key, "providedVal", valStr, "error", err)
		}
		return defaultVal
	}
	return i
}
