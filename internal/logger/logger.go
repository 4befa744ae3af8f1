package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults, lumberjack semantics.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes where a managed daemon's stdout/stderr go. When explicit
// paths are unset and Dir is set, files are derived as Dir/<name>.stdout.log
// and Dir/<name>.stderr.log.
type Config struct {
	Dir        string `mapstructure:"dir"`
	StdoutPath string `mapstructure:"stdout"`
	StderrPath string `mapstructure:"stderr"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Merge returns c with any zero fields filled from base. Per-unit log config
// overrides the top-level one field by field.
func (c Config) Merge(base Config) Config {
	out := c
	if out.Dir == "" {
		out.Dir = base.Dir
	}
	if out.StdoutPath == "" {
		out.StdoutPath = base.StdoutPath
	}
	if out.StderrPath == "" {
		out.StderrPath = base.StderrPath
	}
	if out.MaxSizeMB == 0 {
		out.MaxSizeMB = base.MaxSizeMB
	}
	if out.MaxBackups == 0 {
		out.MaxBackups = base.MaxBackups
	}
	if out.MaxAgeDays == 0 {
		out.MaxAgeDays = base.MaxAgeDays
	}
	if !out.Compress {
		out.Compress = base.Compress
	}
	return out
}

// Writers returns rotating WriteClosers for the named daemon's stdout and
// stderr. Either may be nil when no destination is configured.
func (c Config) Writers(name string) (io.WriteCloser, io.WriteCloser, error) {
	stdout := c.StdoutPath
	stderr := c.StderrPath
	if stdout == "" && c.Dir != "" {
		stdout = filepath.Join(c.Dir, name+".stdout.log")
	}
	if stderr == "" && c.Dir != "" {
		stderr = filepath.Join(c.Dir, name+".stderr.log")
	}
	return c.rotating(stdout), c.rotating(stderr), nil
}

func (c Config) rotating(path string) io.WriteCloser {
	if path == "" {
		return nil
	}
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// New returns the orchestrator's own structured logger. Debug enables
// slog.LevelDebug; output is text on stderr.
func New(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
