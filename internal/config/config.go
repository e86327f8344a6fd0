package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/fsutil"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/joint"
	"gopkg.in/yaml.v3"
)

// Default values used when a setting is missing from the file.
const (
	DefaultMaxFrames   = 10000
	DefaultMapFile     = "BIPED.MAP"
	DefaultCreature    = "human"
	DefaultCalibration = "manbase.cal"
)

// Config holds the converter settings.
type Config struct {
	// Paths
	SupportingFilesDir string `yaml:"supporting_files_dir"`
	MapFile            string `yaml:"map_file"`
	ImportCalFile      string `yaml:"import_cal_file"`
	ImportMapFile      string `yaml:"import_map_file"`

	// Conversion settings
	CreatureType    string `yaml:"creature_type"`
	KeepText        bool   `yaml:"keep_text"`
	MaxMotionFrames int    `yaml:"max_motion_frames"`

	// Logging
	LogLevel  string `yaml:"log_level,omitempty"`
	LogFormat string `yaml:"log_format,omitempty"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		MapFile:         DefaultMapFile,
		ImportCalFile:   DefaultCalibration,
		ImportMapFile:   DefaultMapFile,
		CreatureType:    DefaultCreature,
		MaxMotionFrames: DefaultMaxFrames,
	}
}

// Load reads a YAML config file. Keys missing from the file keep their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrCreate reads the config file, writing the defaults to it first if it does not exist.
func LoadOrCreate(path string) (Config, error) {
	cfg, err := Load(path)
	switch {
	case err == nil:
		return cfg, nil
	case !errors.Is(err, fs.ErrNotExist):
		return Config{}, err
	}

	cfg = Default()
	if err := cfg.Save(path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the config to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	if err := fsutil.WriteFile(path, data); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Resolve applies the flags over the file values and fills in what is still empty.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.SupportingFilesDir != "" {
		c.SupportingFilesDir = flags.SupportingFilesDir
	}
	if flags.MapFile != "" {
		c.MapFile = flags.MapFile
	}
	if flags.ImportMapFile != "" {
		c.ImportMapFile = flags.ImportMapFile
	}
	if flags.Calibration != "" {
		c.ImportCalFile = flags.Calibration
	}
	if flags.Creature != "" {
		c.CreatureType = flags.Creature
	}
	if flags.MaxFrames > 0 {
		c.MaxMotionFrames = flags.MaxFrames
	}
	if flags.KeepText {
		c.KeepText = true
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.LogFormat != "" {
		c.LogFormat = flags.LogFormat
	}

	if c.SupportingFilesDir == "" {
		c.SupportingFilesDir = "."
	}
	if c.CreatureType == "" {
		c.CreatureType = DefaultCreature
	}
	if c.ImportCalFile == "" {
		c.ImportCalFile = DefaultCalibration
	}
	if c.MaxMotionFrames <= 0 {
		c.MaxMotionFrames = DefaultMaxFrames
	}
}

// Creature returns the configured creature type.
func (c *Config) Creature() (joint.Creature, error) {
	creature, err := joint.ParseCreature(c.CreatureType)
	if err != nil {
		return 0, fmt.Errorf("config: %w", err)
	}
	return creature, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	SupportingFilesDir string
	MapFile            string
	ImportMapFile      string
	Calibration        string
	Creature           string
	MaxFrames          int
	KeepText           bool
	LogLevel           string
	LogFormat          string
}
