package motion

import (
	"os"
	"path/filepath"
	"testing"

	mtest "github.com/RSoul82/Blender-NewDark-MotionIO/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, c.Dir())
	assert.NoError(t, c.Close())
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	file := filepath.Join(dir, "manbase.cal")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = Open(file)
	assert.ErrorContains(t, err, "is not a directory")
}

func TestSupportingFiles(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "CRAY.MAP"), []byte("Butt 8\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "burrick.CAL"), nil, 0644))
		require.NoError(t, os.Mkdir(filepath.Join(c.Dir(), "old.map"), 0755))

		cals, err := c.Calibrations()
		require.NoError(t, err)
		assert.Equal(t, []string{"burrick.CAL", "manbase.cal"}, cals)

		maps, err := c.Maps()
		require.NoError(t, err)
		assert.Equal(t, []string{"BIPED.MAP", "CRAY.MAP"}, maps)
	})
}

func TestJointMap_Cached(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		first, err := c.jointMap(mtest.MapFile, Human)
		require.NoError(t, err)
		assert.Equal(t, 20, first.Index("Tail"))

		// Every conversion owns its copy, the cached map is left untouched
		second, err := c.jointMap(mtest.MapFile, Human)
		require.NoError(t, err)
		_, ok := second.Lookup("Tail")
		assert.False(t, ok)
		assert.Equal(t, 8, second.Index("pelvis"))

		// The cached map survives the file being removed
		require.NoError(t, os.Remove(filepath.Join(c.Dir(), mtest.MapFile)))
		_, err = c.jointMap(mtest.MapFile, Human)
		assert.NoError(t, err)

		// Once the cache is dropped, the file is read again
		c.Close()
		_, err = c.jointMap(mtest.MapFile, Human)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestJointMap_Builtin(t *testing.T) {
	TestWith(t, func(t *testing.T, c *Converter) {
		names, err := c.jointMap("", Droid)
		require.NoError(t, err)
		assert.Equal(t, "Abdomen", names.Name(9))

		names, err = c.jointMap("", Creature(0))
		require.NoError(t, err)
		assert.Equal(t, 0, names.Len())
	})
}

func TestParse(t *testing.T) {
	creature, err := ParseCreature("Human With Sword")
	require.NoError(t, err)
	assert.Equal(t, HumanWithSword, creature)

	flag, err := ParseFlag("bodycollapse")
	require.NoError(t, err)
	assert.Equal(t, BodyCollapse, flag)

	_, err = ParseFlag("jump")
	assert.ErrorIs(t, err, ErrUnknownFlag)
}
