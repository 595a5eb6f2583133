// Package logger configures the process-wide structured logger. It mirrors
// the console+rotating-file tee used across the rest of the server so every
// component logs through the same sinks and levels.
package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	derrors "github.com/e-grid/e-grid/internal/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultDirPerms is the permission mode used when creating the log directory.
const DefaultDirPerms = 0o750

var (
	globalLogger *zap.Logger
	logFile      *lumberjack.Logger
	logFileMu    sync.Mutex
)

// Init configures and installs the global logger. Console output always goes
// to stdout with colorized levels; file output is rotated by lumberjack
// unless disabled.
func Init(logLevel, logFilePath string, structured, disableFileLogging bool, maxFileSizeMB, maxBackups, maxAgeDays int) error {
	logFileMu.Lock()
	defer logFileMu.Unlock()

	if logFile != nil {
		if closeErr := logFile.Close(); closeErr != nil {
			return derrors.Wrap(closeErr, derrors.CodeLoggingFailed, "failed to close existing log file")
		}

		logFile = nil
	}

	level := parseLevel(logLevel)

	var consoleEncoderConfig, fileEncoderConfig zapcore.EncoderConfig
	if structured {
		consoleEncoderConfig = zap.NewProductionEncoderConfig()
		fileEncoderConfig = zap.NewProductionEncoderConfig()
	} else {
		consoleEncoderConfig = zap.NewDevelopmentEncoderConfig()
		fileEncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	consoleEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	fileEncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(consoleEncoderConfig)
	cores := []zapcore.Core{zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level)}

	if !disableFileLogging {
		if logFilePath == "" {
			dir, err := os.UserCacheDir()
			if err != nil {
				return derrors.Wrap(err, derrors.CodeLoggingFailed, "failed to resolve default log directory")
			}

			logFilePath = filepath.Join(dir, "e_grid", "e_grid.log")
		}

		if mkdirErr := os.MkdirAll(filepath.Dir(logFilePath), DefaultDirPerms); mkdirErr != nil {
			return derrors.Wrap(mkdirErr, derrors.CodeLoggingFailed, "failed to create log directory")
		}

		logFile = &lumberjack.Logger{
			Filename:   logFilePath,
			MaxSize:    maxFileSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}

		var fileEncoder zapcore.Encoder
		if structured {
			fileEncoder = zapcore.NewJSONEncoder(fileEncoderConfig)
		} else {
			fileEncoder = zapcore.NewConsoleEncoder(fileEncoderConfig)
		}

		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(logFile), level))
	}

	globalLogger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return nil
}

func parseLevel(logLevel string) zapcore.Level {
	switch logLevel {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Get returns the global logger, falling back to a development logger if
// Init was never called (e.g. in unit tests).
func Get() *zap.Logger {
	if globalLogger == nil {
		globalLogger, _ = zap.NewDevelopment()
	}

	return globalLogger
}

// Reset clears the global logger reference. Used by tests.
func Reset() {
	globalLogger = nil
}

// Sync flushes buffered log entries.
func Sync() error {
	if globalLogger != nil {
		if err := globalLogger.Sync(); err != nil {
			return derrors.Wrap(err, derrors.CodeLoggingFailed, "failed to sync logger")
		}
	}

	return nil
}

// Close flushes and releases the logger and its file sink.
func Close() error {
	logFileMu.Lock()
	defer logFileMu.Unlock()

	if globalLogger != nil {
		if err := globalLogger.Sync(); err != nil {
			// Stdout/stderr often refuse Sync on Windows consoles; ignore those.
			if !strings.Contains(err.Error(), "invalid argument") &&
				!strings.Contains(err.Error(), "inappropriate ioctl for device") {
				return derrors.Wrap(err, derrors.CodeLoggingFailed, "failed to sync logger")
			}
		}

		globalLogger = nil
	}

	if logFile != nil {
		if err := logFile.Close(); err != nil {
			return derrors.Wrap(err, derrors.CodeLoggingFailed, "failed to close log file")
		}

		logFile = nil
	}

	return nil
}

// With returns a child logger with the given fields attached.
func With(fields ...zap.Field) *zap.Logger {
	return Get().With(fields...)
}
