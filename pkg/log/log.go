// Package log provides structured logging for carbonml on top of zerolog.
//
// Components obtain a named logger and attach context once:
//
//	logger := log.GetLoggerWithName("training").With(log.RunIDKey, runID)
//	logger.Info("model fitted", log.ModelNameKey, "random_forest", log.DurationMsKey, ms)
//
// Key/value pairs are passed as alternating arguments. Output goes to stderr
// by default and to a size-rotated file when Config.File is set.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Structured field keys.
const (
	ModelNameKey  = "model_name"
	ComponentKey  = "component"
	OperationKey  = "operation"
	PhaseKey      = "phase"
	SamplesKey    = "samples"
	FeaturesKey   = "features"
	DurationMsKey = "duration_ms"
	PredsKey      = "predictions"
	RunIDKey      = "run_id"
	PathKey       = "path"
	ArtifactKey   = "artifact"
	ErrorKey      = "error"
)

// Operation and phase values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationClean     = "clean"
	OperationPersist   = "persist"
	OperationLoad      = "load"

	PhaseTraining      = "training"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)

// Level is a logging threshold.
type Level int8

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	Disabled
)

// ToLogLevel parses a level name. Unknown names map to InfoLevel.
func ToLogLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error", "fatal":
		return ErrorLevel
	case "off", "disabled", "none":
		return Disabled
	default:
		return InfoLevel
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case Disabled:
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger is the structured logger used across the module.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	With(keysAndValues ...interface{}) Logger
}

// LoggerProvider hands out loggers that share one sink and level.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}

// Config describes where and how logs are written.
type Config struct {
	Level      string
	Format     string // "json" or "console"
	File       string // empty means stderr
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	mu       sync.RWMutex
	global   = zerolog.New(os.Stderr).With().Timestamp().Logger()
	provider LoggerProvider
)

// Setup configures the global logger from cfg.
func Setup(cfg Config) error {
	w, err := writerFor(cfg)
	if err != nil {
		return err
	}
	l := zerolog.New(w).Level(ToLogLevel(cfg.Level).zerolog()).With().Timestamp().Logger()

	mu.Lock()
	global = l
	provider = &zerologProvider{base: l}
	mu.Unlock()
	return nil
}

// SetupLogger configures stderr JSON logging at the given level.
func SetupLogger(level string) {
	_ = Setup(Config{Level: level})
}

func writerFor(cfg Config) (io.Writer, error) {
	var w io.Writer = os.Stderr
	if cfg.File != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		w = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
	}
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		return w, nil
	case "console", "text":
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: cfg.File != ""}, nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}
}

// GetLogger returns the global zerolog logger.
func GetLogger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := global
	return &l
}

// GetLoggerWithName returns a structured logger tagged with the component name.
func GetLoggerWithName(name string) Logger {
	return globalProvider().GetLoggerWithName(name)
}

// SetProvider replaces the provider used by GetLoggerWithName.
func SetProvider(p LoggerProvider) {
	mu.Lock()
	provider = p
	mu.Unlock()
}

func globalProvider() LoggerProvider {
	mu.RLock()
	p := provider
	base := global
	mu.RUnlock()
	if p != nil {
		return p
	}
	return &zerologProvider{base: base}
}

// NewZerologProvider creates a provider writing JSON to stderr at level.
func NewZerologProvider(level Level) LoggerProvider {
	base := zerolog.New(os.Stderr).Level(level.zerolog()).With().Timestamp().Logger()
	return &zerologProvider{base: base}
}

// NewWriterProvider creates a provider writing JSON to w at level.
func NewWriterProvider(w io.Writer, level Level) LoggerProvider {
	return &zerologProvider{base: zerolog.New(w).Level(level.zerolog())}
}

type zerologProvider struct {
	mu   sync.Mutex
	base zerolog.Logger
}

func (p *zerologProvider) GetLogger() Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &zerologLogger{l: p.base}
}

func (p *zerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &zerologLogger{l: p.base.With().Str("logger", name).Logger()}
}

func (p *zerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	p.base = p.base.Level(level.zerolog())
	p.mu.Unlock()
}

type zerologLogger struct {
	l zerolog.Logger
}

func (z *zerologLogger) Debug(msg string, kv ...interface{}) { emit(z.l.Debug(), msg, kv) }
func (z *zerologLogger) Info(msg string, kv ...interface{})  { emit(z.l.Info(), msg, kv) }
func (z *zerologLogger) Warn(msg string, kv ...interface{})  { emit(z.l.Warn(), msg, kv) }
func (z *zerologLogger) Error(msg string, kv ...interface{}) { emit(z.l.Error(), msg, kv) }

func (z *zerologLogger) With(kv ...interface{}) Logger {
	ctx := z.l.With()
	for i := 0; i < len(kv); i += 2 {
		key, val := pair(kv, i)
		if err, ok := val.(error); ok {
			ctx = ctx.AnErr(key, err)
			continue
		}
		ctx = ctx.Interface(key, val)
	}
	return &zerologLogger{l: ctx.Logger()}
}

func emit(e *zerolog.Event, msg string, kv []interface{}) {
	if e == nil {
		return
	}
	for i := 0; i < len(kv); i += 2 {
		key, val := pair(kv, i)
		switch v := val.(type) {
		case error:
			e = e.AnErr(key, v)
		case string:
			e = e.Str(key, v)
		case int:
			e = e.Int(key, v)
		case int64:
			e = e.Int64(key, v)
		case float64:
			e = e.Float64(key, v)
		case bool:
			e = e.Bool(key, v)
		case time.Duration:
			e = e.Dur(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}

// pair returns the key/value at i. A trailing key without value is logged
// under "extra".
func pair(kv []interface{}, i int) (string, interface{}) {
	if i+1 >= len(kv) {
		return "extra", kv[i]
	}
	key, ok := kv[i].(string)
	if !ok {
		key = fmt.Sprint(kv[i])
	}
	return key, kv[i+1]
}
