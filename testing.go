package motion

import (
	"testing"

	mtest "github.com/RSoul82/Blender-NewDark-MotionIO/internal/testing"
	"github.com/stretchr/testify/require"
)

// TestWith runs a test with a converter opened over a supporting files directory holding the
// biped calibration and joint map. The options are applied on top of the biped settings.
func TestWith(t *testing.T, testFn func(*testing.T, *Converter), options ...Option) {
	dir := mtest.Dir(t)

	// Open the converter with the test supporting files
	options = append([]Option{
		WithJointMap(mtest.MapFile),
		WithImportMap(mtest.MapFile),
		WithCalibration(mtest.CalibrationFile),
	}, options...)

	converter, err := Open(dir, options...)
	require.NoError(t, err, "failed to open converter with test supporting files")
	require.NotNil(t, converter, "converter instance should not be nil")
	defer converter.Close()

	// Run the test with the converter instance
	testFn(t, converter)
}
