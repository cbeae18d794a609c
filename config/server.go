package config

import "os"

type ServerConfig struct {
	Port      string
	JwksUrl   string
	LogLevel  string
	LogFormat string
}

// GetServerConfig never fails: an empty JWKS_URL disables bearer authentication.
func GetServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:      getEnv("PORT", "8080"),
		JwksUrl:   os.Getenv("JWKS_URL"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}
