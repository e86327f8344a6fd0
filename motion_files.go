package motion

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/cal"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/joint"
)

// cacheKey represents a string key for caching files
type cacheKey string

// loadCalibration loads a calibration file of the supporting files directory
func (c *Converter) loadCalibration(name string) (*cal.Calibration, error) {
	v, err := c.load(cacheKey("cal:"+name), func() (any, error) {
		calibration, err := cal.Open(c.path(name))
		if err != nil {
			return nil, invalid(err)
		}

		c.logger.Debug("loaded calibration",
			"file", name,
			"torsos", len(calibration.Torsos),
			"limbs", len(calibration.Limbs))
		return calibration, nil
	})
	if err != nil {
		return nil, fmt.Errorf("motion: failed to load calibration '%s': %w", name, err)
	}
	return v.(*cal.Calibration), nil
}

// loadMap loads a joint map file of the supporting files directory. The cached map is shared,
// callers clone it before extending it.
func (c *Converter) loadMap(name string) (*joint.Map, error) {
	v, err := c.load(cacheKey("map:"+name), func() (any, error) {
		names, err := joint.Load(c.path(name))
		if err != nil {
			return nil, err
		}

		c.logger.Debug("loaded joint map", "file", name, "joints", names.Len())
		return names, nil
	})
	if err != nil {
		return nil, fmt.Errorf("motion: failed to load joint map '%s': %w", name, err)
	}
	return v.(*joint.Map), nil
}

// jointMap returns a joint map owned by a single conversion, read from the named file or
// taken from the builtin table of the creature when no file is named.
func (c *Converter) jointMap(name string, creature Creature) (*joint.Map, error) {
	if name == "" {
		return joint.Builtin(creature), nil
	}

	names, err := c.loadMap(name)
	if err != nil {
		return nil, err
	}
	return names.Clone(), nil
}

// load returns the cached value of a key, or decodes and caches it. Failures are not cached.
func (c *Converter) load(key cacheKey, decode func() (any, error)) (any, error) {
	if v, ok := c.files.Load(key); ok {
		return v, nil
	}

	v, err := decode()
	if err != nil {
		return nil, err
	}

	actual, _ := c.files.LoadOrStore(key, v)
	return actual, nil
}

// path resolves a supporting file name against the supporting files directory
func (c *Converter) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.dir, name)
}

// Calibrations lists the calibration files of the supporting files directory.
func (c *Converter) Calibrations() ([]string, error) {
	return c.list(".cal")
}

// Maps lists the joint map files of the supporting files directory.
func (c *Converter) Maps() ([]string, error) {
	return c.list(".map")
}

// list returns the sorted names of the files with the given extension, ignoring case
func (c *Converter) list(ext string) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("motion: failed to list '%s': %w", c.dir, err)
	}

	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			out = append(out, e.Name())
		}
	}

	slices.Sort(out)
	return out, nil
}
