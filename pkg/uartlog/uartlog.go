package uartlog

import (
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/uartdbg/pkg/uartcfg"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup configures logger from cfg. The returned closer releases the
// rotating log file, if one was opened.
func Setup(logger *log.Logger, cfg uartcfg.LoggingConfig) (io.Closer, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "invalid log level")
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
	default:
		return nil, errors.Errorf("invalid log format %q (expected text or json)", cfg.Format)
	}

	switch cfg.Output {
	case "", "stderr":
		logger.SetOutput(os.Stderr)
		return nopCloser{}, nil
	case "stdout":
		logger.SetOutput(os.Stdout)
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create log directory")
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.Output,
		MaxSize:    cfg.MaxSize, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   true,
	}
	logger.SetOutput(lj)
	return lj, nil
}

// Redirect points logger at w and returns a function restoring the
// previous output.
func Redirect(logger *log.Logger, w io.Writer) (restore func()) {
	prev := logger.Out
	logger.SetOutput(w)
	return func() {
		logger.SetOutput(prev)
	}
}
