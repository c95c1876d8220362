package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/veeprom/internal/eeprom"
)

//go:embed schema.cue
var schemaCUE string

// DefaultImage is the image path used when neither the file nor a flag names one.
const DefaultImage = "flash.img"

// File is the decoded configuration file.
type File struct {
	Image    string        `yaml:"image" json:"image"`
	LogLevel string        `yaml:"log_level" json:"log_level"`
	Geometry eeprom.Config `yaml:"geometry" json:"geometry"`
}

// Default returns the configuration used when no file is given.
func Default() File {
	return File{
		Image:    DefaultImage,
		LogLevel: "info",
		Geometry: eeprom.DefaultConfig(),
	}
}

// Load reads and validates the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*File, error) {
	f := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the file against the CUE schema, then the geometry rules.
func (f *File) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	val := def.Unify(ctx.Encode(f))
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", eeprom.ErrInvalidConfig, err)
	}
	return f.Geometry.Validate()
}

// SlogLevel maps LogLevel to a slog.Level.
func (f *File) SlogLevel() slog.Level {
	switch f.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
