package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/fleetview/config"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	// levelOverride, when set, wins over config and environment. The CLI
	// sets it for --verbose.
	levelOverride *logrus.Level

	// sinks holds one hook per log file so every component appends to the
	// same handle.
	sinks = make(map[string]*fileHook)
)

// LoadConfig reads the logging section of the layered fleetview
// configuration. A missing or unreadable configuration yields the zero Config.
func LoadConfig() (Config, error) {
	var logCfg Config
	cfg, err := config.LoadDefault()
	if err != nil {
		return logCfg, nil
	}
	err = cfg.UnmarshalExtension("logging", &logCfg)
	return logCfg, err
}

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()

	logCfg, err := LoadConfig()
	if err != nil {
		logrus.Warnf("Failed to parse 'logging' config: %v", err)
	}

	logger.SetLevel(resolveLevel(logCfg))

	if os.Getenv("FLEETVIEW_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	logger.SetFormatter(newFormatter(logCfg.Format))

	if !logCfg.File.Disabled {
		if hook := openSink(logCfg.File.ResolvedPath(), logCfg.File.Format); hook != nil {
			logger.AddHook(hook)
		} else if logCfg.File.Path != "" {
			logger.Warnf("Failed to open log file %s", logCfg.File.Path)
		}
	}

	if shouldLogToStderr(logCfg.Format.StructuredToStderr, logger.GetLevel()) {
		logger.SetOutput(GetGlobalOutput())
	} else {
		logger.SetOutput(io.Discard)
	}

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// SetLevel changes the level of every logger created so far and of all
// loggers created afterwards.
func SetLevel(level logrus.Level) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	levelOverride = &level
	for _, entry := range loggers {
		entry.Logger.SetLevel(level)
	}
}

func resolveLevel(cfg Config) logrus.Level {
	if levelOverride != nil {
		return *levelOverride
	}
	levelStr := "info"
	if env := os.Getenv("FLEETVIEW_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if cfg.Level != "" {
		levelStr = cfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func newFormatter(cfg FormatConfig) logrus.Formatter {
	switch cfg.Preset {
	case "json":
		return &logrus.JSONFormatter{}
	case "simple":
		return &TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}}
	default:
		return &TextFormatter{Config: cfg}
	}
}

// shouldLogToStderr applies the structured_to_stderr mode. In "auto" mode,
// structured logs reach stderr only when debugging or when stderr is not an
// interactive terminal.
func shouldLogToStderr(mode string, level logrus.Level) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		isDebug := os.Getenv("FLEETVIEW_DEBUG") == "1" || level >= logrus.DebugLevel
		isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		return isDebug || !isInteractive
	}
}

// openSink must be called with loggersMu held.
func openSink(path, format string) *fileHook {
	if path == "" {
		return nil
	}
	if hook, ok := sinks[path]; ok {
		return hook
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil
	}
	var formatter logrus.Formatter = &TextFormatter{Plain: true}
	if format == "json" {
		formatter = &logrus.JSONFormatter{}
	}
	hook := &fileHook{w: f, formatter: formatter}
	sinks[path] = hook
	return hook
}

// fileHook writes every entry to the log file with its own formatter, so the
// file stays plain text whatever the terminal format is.
type fileHook struct {
	mu        sync.Mutex
	w         io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(line)
	return err
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
