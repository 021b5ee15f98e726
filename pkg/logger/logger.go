package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger is the process-wide logger. Nil until Init is called.
	Logger *logrus.Logger

	logMu      sync.Mutex
	fileWriter *lumberjack.Logger
)

const timestampFormat = "06-01-02 15:04:05"

// Config controls level, output file and rotation.
type Config struct {
	Level      string // debug, info, warn, error
	OutputFile string // optional; empty means console only
	MaxSize    int    // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
	// Quiet drops console output. The terminal dashboard owns stdout, so it logs to file only.
	Quiet bool
}

func newFormatter(colors bool) logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
		ForceColors:     colors,
		DisableColors:   !colors,
	}
}

// Init builds the logger and points the global logrus instance at the same outputs,
// so entries created with logrus.WithField land in the same file.
func Init(config Config) error {
	logMu.Lock()
	defer logMu.Unlock()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	var writers []io.Writer
	if !config.Quiet {
		writers = append(writers, os.Stdout)
	}

	var fw *lumberjack.Logger
	if config.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0o755); err != nil {
			return err
		}
		fw = &lumberjack.Logger{
			Filename:   config.OutputFile,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		}
		writers = append(writers, fw)
	}

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = io.MultiWriter(writers...)
	}
	// colors only make sense on a console
	colors := !config.Quiet && config.OutputFile == ""

	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(newFormatter(colors))
	l.SetOutput(out)

	logrus.SetOutput(out)
	logrus.SetLevel(level)
	logrus.SetFormatter(newFormatter(colors))

	if fileWriter != nil {
		_ = fileWriter.Close()
	}
	fileWriter = fw
	Logger = l
	return nil
}

// InitDefault sets up console logging at info level.
func InitDefault() error {
	return Init(Config{Level: "info"})
}

// Close flushes and closes the rotating file, if any.
func Close() error {
	logMu.Lock()
	defer logMu.Unlock()
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}

// CurrentLogFile returns the active log file path, or "" when logging to console only.
func CurrentLogFile() string {
	logMu.Lock()
	defer logMu.Unlock()
	if fileWriter == nil {
		return ""
	}
	return fileWriter.Filename
}

func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Debugf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Infof(format, args...)
	}
}

func Info(args ...interface{}) {
	if Logger != nil {
		Logger.Info(args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Warnf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Errorf(format, args...)
	}
}

// WithField adds one field to the log context.
func WithField(key string, value interface{}) *logrus.Entry {
	if Logger != nil {
		return Logger.WithField(key, value)
	}
	return logrus.WithField(key, value)
}

// WithFields adds several fields to the log context.
func WithFields(fields logrus.Fields) *logrus.Entry {
	if Logger != nil {
		return Logger.WithFields(fields)
	}
	return logrus.WithFields(fields)
}
