// Package config holds the command line options and their config file
// counterparts.
package config

import (
	"fmt"
	"sort"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/phobologic/sqlanon/internal/source"
)

const (
	TRACE = "trace"
	DEBUG = "debug"
	INFO  = "info"
	WARN  = "warn"
	ERROR = "error"
	FATAL = "fatal"
	PANIC = "panic"
)

var validLogLevels = []string{TRACE, DEBUG, INFO, WARN, ERROR, FATAL, PANIC}

// Options are the settings of one run.
type Options struct {
	Input      string
	Query      string
	BufferSize int
	Seed       int64
	Strict     bool
	LogLevel   string
	LogFile    string
	Progress   bool
}

// Override records a flag whose value came from the config file.
type Override struct {
	Flag  string
	Value string
}

// fileKeys are the flags that may also be set from a config file.
var fileKeys = []string{"query", "buffer-size", "seed", "strict", "log-level", "log-file", "progress"}

// RegisterFlags binds o to fs.
func (o *Options) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Query, "query", "q", "", "tree-sitter query file selecting the values to anonymize")
	fs.IntVarP(&o.BufferSize, "buffer-size", "b", source.DefaultBufferSize, "input buffer size in bytes")
	fs.Int64Var(&o.Seed, "seed", 0, "random seed for generated values (0 picks a random seed)")
	fs.BoolVar(&o.Strict, "strict", false, "fail on capture names that are not directives")
	fs.StringVar(&o.LogLevel, "log-level", WARN, fmt.Sprintf("log level, one of %v", validLogLevels))
	fs.StringVar(&o.LogFile, "log-file", "", "write logs to this file instead of stderr")
	fs.BoolVar(&o.Progress, "progress", false, "show a progress bar on stderr")
}

// LoadFile reads cfgFile and applies its values to every flag in fs that was
// not set on the command line, so flags take precedence over the file.
func LoadFile(fs *pflag.FlagSet, cfgFile string) ([]Override, error) {
	if cfgFile == "" {
		return nil, nil
	}
	v := viper.New()
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	unknown := lo.Filter(v.AllKeys(), func(k string, _ int) bool {
		return !lo.Contains(fileKeys, k)
	})
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, goerrors.Errorf("config file %s: unknown keys %v. Valid keys = %v", cfgFile, unknown, fileKeys)
	}

	var overrides []Override
	for _, key := range fileKeys {
		f := fs.Lookup(key)
		if f == nil || f.Changed || !v.IsSet(key) {
			continue
		}
		val := v.GetString(key)
		if err := fs.Set(key, val); err != nil {
			return nil, goerrors.Errorf("config file %s: %s: %v", cfgFile, key, err)
		}
		overrides = append(overrides, Override{Flag: key, Value: val})
	}
	return overrides, nil
}

// Validate normalizes and checks o.
func (o *Options) Validate() error {
	if o.Input == "" {
		return goerrors.New("no input file given")
	}
	if o.BufferSize <= 0 {
		return goerrors.Errorf("invalid buffer size: %d. Must be greater than 0", o.BufferSize)
	}
	o.LogLevel = strings.ToLower(o.LogLevel)
	if !lo.Contains(validLogLevels, o.LogLevel) {
		return goerrors.Errorf("invalid log level: %s. Valid log levels = %v", o.LogLevel, validLogLevels)
	}
	return nil
}

// Level returns the logrus level for o.LogLevel. Call Validate first.
func (o *Options) Level() log.Level {
	lvl, err := log.ParseLevel(o.LogLevel)
	if err != nil {
		return log.WarnLevel
	}
	return lvl
}

// IsLogLevelDebugOrBelow reports whether debug output is enabled.
func (o *Options) IsLogLevelDebugOrBelow() bool {
	return lo.Contains([]string{TRACE, DEBUG}, o.LogLevel)
}
