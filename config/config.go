// Package config holds the qreplay command configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sw965/qreplay/actor"
	"github.com/sw965/qreplay/ql"
	"github.com/sw965/qreplay/rl"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type File struct {
	Control  ql.Control `yaml:"control" mapstructure:"control"`
	Columns  rl.Columns `yaml:"columns" mapstructure:"columns"`
	Sampling Sampling   `yaml:"sampling" mapstructure:"sampling"`
	Logging  Logging    `yaml:"logging" mapstructure:"logging"`
}

// Sampling configures experience generation.
type Sampling struct {
	N           int    `yaml:"n" mapstructure:"n"`
	Seed        uint64 `yaml:"seed" mapstructure:"seed"`
	Strategy    string `yaml:"strategy" mapstructure:"strategy"`
	Parallelism int    `yaml:"parallelism" mapstructure:"parallelism"`
}

type Logging struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

func Default() *File {
	return &File{
		Control: ql.DefaultControl(),
		Columns: rl.DefaultColumns(),
		Sampling: Sampling{
			N:           1000,
			Seed:        1,
			Strategy:    string(actor.RandomName),
			Parallelism: 1,
		},
		Logging: Logging{
			Level:  zerolog.InfoLevel.String(),
			Format: FormatConsole,
		},
	}
}

// Load reads a YAML file over the defaults. Keys the file leaves out keep
// their default value.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults. Unknown keys are rejected; an empty
// document yields the defaults.
func Parse(data []byte) (*File, error) {
	f := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) Validate() error {
	if err := f.Control.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := f.Columns.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if f.Sampling.N < 1 {
		return fmt.Errorf("%w: sampling.n must be positive, got %d", ErrInvalidConfig, f.Sampling.N)
	}
	if f.Sampling.Parallelism < 0 {
		return fmt.Errorf("%w: sampling.parallelism must not be negative", ErrInvalidConfig)
	}
	if _, err := actor.ParseName(f.Sampling.Strategy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := zerolog.ParseLevel(f.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(f.Logging.Format) {
	case FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("%w: logging.format must be %q or %q, got %q", ErrInvalidConfig, FormatConsole, FormatJSON, f.Logging.Format)
	}
	return nil
}

func (f *File) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

// NewLogger builds the logger described by l. An unparsable level falls back
// to info.
func (l Logging) NewLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(l.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if strings.EqualFold(l.Format, FormatJSON) {
		return zerolog.New(w).Level(level).With().Timestamp().Logger()
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
