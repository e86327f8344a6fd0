// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package motion converts skeletal animations between the hierarchical text motion format
// and the binary motion files of the Dark Engine: calibrations (.cal), motion info (.mi)
// and motion channels (_.mc).
package motion

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/joint"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/logging"
)

// Converter holds the settings of the conversions along with the supporting files they
// rely on: calibrations and joint maps, looked up in a single directory.
type Converter struct {
	dir         string       // Directory of the supporting files
	mapFile     string       // Joint map used on export, builtin table when empty
	importMap   string       // Joint map used on import, builtin table when empty
	calibration string       // Calibration used on import
	creature    Creature     // Creature code written on export
	keepText    bool         // Whether to keep the intermediate text motion
	maxFrames   int          // Longest motion accepted on export, unlimited when zero
	logger      *slog.Logger // Logger for the conversions
	files       sync.Map     // Lazily loaded supporting files (cacheKey to value)
}

// Option configures a converter.
type Option func(*Converter)

// WithJointMap sets the joint map file used on export. An empty name selects the builtin
// table of the creature.
func WithJointMap(name string) Option {
	return func(c *Converter) {
		c.mapFile = name
	}
}

// WithImportMap sets the joint map file used on import. An empty name selects the builtin
// table of the creature stored in the motion.
func WithImportMap(name string) Option {
	return func(c *Converter) {
		c.importMap = name
	}
}

// WithCalibration sets the calibration file used on import.
func WithCalibration(name string) Option {
	return func(c *Converter) {
		c.calibration = name
	}
}

// WithCreature sets the creature code written into exported motions.
func WithCreature(creature Creature) Option {
	return func(c *Converter) {
		c.creature = creature
	}
}

// WithKeepText keeps the intermediate text motion next to the converted files.
func WithKeepText(keep bool) Option {
	return func(c *Converter) {
		c.keepText = keep
	}
}

// WithMaxFrames rejects exported motions with more frames than the limit.
func WithMaxFrames(n int) Option {
	return func(c *Converter) {
		c.maxFrames = n
	}
}

// WithLogger sets the logger of the conversions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Open creates a converter for the supporting files of the specified directory. It verifies
// that the provided path exists and is a directory, the files themselves are only loaded
// once a conversion needs them.
func Open(directory string, options ...Option) (*Converter, error) {
	info, err := os.Stat(directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("motion: supporting files directory '%s' does not exist: %w", directory, err)
		}
		return nil, fmt.Errorf("motion: failed to access supporting files directory '%s': %w", directory, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("motion: provided path '%s' is not a directory", directory)
	}

	c := &Converter{
		dir:         directory,
		calibration: "manbase.cal",
		creature:    joint.Human,
		logger:      logging.Discard(),
	}

	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Close drops the cached supporting files.
func (c *Converter) Close() error {
	c.files.Range(func(key, _ any) bool {
		c.files.Delete(key)
		return true
	})
	return nil
}

// Dir returns the directory of the supporting files.
func (c *Converter) Dir() string {
	return c.dir
}
