package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/joint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motionconv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
supporting_files_dir: /games/thief2/motions
keep_text: true
creature_type: droid
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/games/thief2/motions", cfg.SupportingFilesDir)
	assert.True(t, cfg.KeepText)
	assert.Equal(t, "droid", cfg.CreatureType)

	// Missing keys keep their defaults
	assert.Equal(t, DefaultMaxFrames, cfg.MaxMotionFrames)
	assert.Equal(t, DefaultMapFile, cfg.MapFile)
	assert.Equal(t, DefaultCalibration, cfg.ImportCalFile)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_motion_frames: [1, 2"), 0644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "config: parse")
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "motionconv.yaml")

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.FileExists(t, path)

	// The written file reads back the same
	again, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestResolve(t *testing.T) {
	cfg := Config{MaxMotionFrames: -1, MapFile: "file.map"}
	cfg.Resolve(Flags{Creature: "sweel", MaxFrames: 0, KeepText: true})

	assert.Equal(t, ".", cfg.SupportingFilesDir)
	assert.Equal(t, "file.map", cfg.MapFile)
	assert.Equal(t, "sweel", cfg.CreatureType)
	assert.Equal(t, DefaultMaxFrames, cfg.MaxMotionFrames)
	assert.Equal(t, DefaultCalibration, cfg.ImportCalFile)
	assert.True(t, cfg.KeepText)

	cfg.Resolve(Flags{SupportingFilesDir: "/tmp", MapFile: "other.map", MaxFrames: 20, LogLevel: "debug"})
	assert.Equal(t, "/tmp", cfg.SupportingFilesDir)
	assert.Equal(t, "other.map", cfg.MapFile)
	assert.Equal(t, 20, cfg.MaxMotionFrames)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestCreature(t *testing.T) {
	cfg := Default()
	creature, err := cfg.Creature()
	require.NoError(t, err)
	assert.Equal(t, joint.Human, creature)

	cfg.CreatureType = "dragon"
	_, err = cfg.Creature()
	assert.ErrorIs(t, err, joint.ErrUnknownCreature)
}
