// Package config loads the process configuration for the tabula CLI and
// demo server from an optional JSON file plus TABULA_* environment
// variables, environment taking precedence.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"
)

type ServerConfig struct {
	Addr         string `koanf:"addr"`
	DatabasePath string `koanf:"databasePath"`
	ChangeLog    bool   `koanf:"changeLog"`
	DebugSQL     bool   `koanf:"debugSql"`
	SeedDemo     bool   `koanf:"seedDemo"`
}

type ClientConfig struct {
	BaseURL           string  `koanf:"baseUrl"`
	ConfigDir         string  `koanf:"configDir"`
	PageSize          int     `koanf:"pageSize"`
	TimeoutSeconds    int     `koanf:"timeoutSeconds"`
	RequestsPerSecond float64 `koanf:"requestsPerSecond"`
}

type LogConfig struct {
	Level    string `koanf:"level"`
	File     string `koanf:"file"`
	FileSize int    `koanf:"fileSize"`
	Count    int    `koanf:"count"`
	Compress bool   `koanf:"compress"`
}

type AppConfig struct {
	Server ServerConfig `koanf:"server"`
	Client ClientConfig `koanf:"client"`
	Log    LogConfig    `koanf:"log"`
}

// Load reads path (skipped when empty or missing) and then the TABULA_
// environment: TABULA_SERVER_ADDR maps to server.addr.
func Load(path string) (*AppConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
				return nil, errors.Wrapf(err, "load config file %s", path)
			}
		}
	}

	err := k.Load(env.Provider("TABULA_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "TABULA_")), "_", ".")
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, "load environment")
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return cfg, nil
}

func defaults() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:         ":8080",
			DatabasePath: "tabula.db",
			ChangeLog:    true,
			SeedDemo:     true,
		},
		Client: ClientConfig{
			BaseURL:   "http://localhost:8080",
			ConfigDir: "config/tabula",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
