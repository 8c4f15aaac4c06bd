package config

import (
	"fmt"
	"net"
	"strconv"
)

type lookupFunc func(key string) (string, bool)

// parseEnv applies the environment variables understood by the service:
//
//	PORT            HTTP port (binds on all interfaces)
//	DB_DSN          PostgreSQL DSN
//	REDIS_HOST      redis host (REDIS_PORT defaults to 6379)
//	REDIS_PORT      redis port
//	FOLDER_PATH     blob root directory
//	STORAGE_BACKEND local or s3
//	LOG_LEVEL       log level
func parseEnv(config *Config, lookup lookupFunc) {
	if v, ok := lookup("PORT"); ok && v != "" {
		config.EndpointAddrHTTP = ":" + v
	}
	if v, ok := lookup("DB_DSN"); ok && v != "" {
		config.DatabaseDSN = v
	}

	host, hasHost := lookup("REDIS_HOST")
	port, hasPort := lookup("REDIS_PORT")
	if hasHost || hasPort {
		h, p, err := net.SplitHostPort(config.RedisAddr)
		if err != nil {
			h, p = "localhost", "6379"
		}
		if hasHost && host != "" {
			h = host
		}
		if hasPort && port != "" {
			if _, err := strconv.Atoi(port); err != nil {
				panic(fmt.Errorf("REDIS_PORT: %w", err))
			}
			p = port
		}
		config.RedisAddr = net.JoinHostPort(h, p)
	}

	if v, ok := lookup("FOLDER_PATH"); ok && v != "" {
		config.FolderPath = v
	}
	if v, ok := lookup("STORAGE_BACKEND"); ok && v != "" {
		config.StorageBackend = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		config.LogLevel = v
	}
}
