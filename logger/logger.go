package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config defines the logging options.
type Config struct {
	// LogLevel sets the minimum enabled level: "debug", "info", "warn",
	// "error". Unknown values fall back to "info".
	LogLevel string

	// LogFilePath enables rotating file output when non-empty.
	LogFilePath string

	// LogFileSize is the maximum size in megabytes before rotation.
	// Defaults to 10.
	LogFileSize int

	// LogFileCount is the maximum number of rotated files to retain.
	// Defaults to 5.
	LogFileCount int

	// LogCompress gzips rotated files.
	LogCompress bool

	// LogToFileOnly disables the console writer.
	LogToFileOnly bool
}

// New builds a zerolog.Logger from the config. With no file path configured
// it logs to a console writer on stderr.
func New(cfg Config) zerolog.Logger {
	if cfg.LogFileSize == 0 {
		cfg.LogFileSize = 10
	}
	if cfg.LogFileCount == 0 {
		cfg.LogFileCount = 5
	}

	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn", "warning":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var writers []io.Writer
	if !cfg.LogToFileOnly || cfg.LogFilePath == "" {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if cfg.LogFilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogFilePath,
			MaxSize:    cfg.LogFileSize,
			MaxBackups: cfg.LogFileCount,
			Compress:   cfg.LogCompress,
		})
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()
}
