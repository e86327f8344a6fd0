package motion

import (
	"errors"
	"fmt"

	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/bvh"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/cal"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/joint"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/mc"
	"github.com/RSoul82/Blender-NewDark-MotionIO/internal/mi"
)

var (
	// ErrSyntax is returned for any malformed statement of a text motion
	ErrSyntax = bvh.ErrSyntax

	// ErrMalformedNumber is returned when a numeric field of a text motion cannot be parsed
	ErrMalformedNumber = bvh.ErrMalformedNumber

	// ErrUnexpectedEOF is returned when a text motion ends before it is complete
	ErrUnexpectedEOF = bvh.ErrUnexpectedEOF

	// ErrFormatMismatch is returned when binary files are truncated or disagree with each other
	ErrFormatMismatch = mc.ErrFormatMismatch

	// ErrIncompatibleChannels is returned when the channels of a motion cannot be stored
	ErrIncompatibleChannels = errors.New("incompatible channels")

	// ErrTooManyFrames is returned when a motion exceeds the configured frame limit
	ErrTooManyFrames = errors.New("too many frames")

	// ErrUnknownCreature is returned when a creature name cannot be resolved
	ErrUnknownCreature = joint.ErrUnknownCreature

	// ErrUnknownFlag is returned when a frame flag name cannot be resolved
	ErrUnknownFlag = mi.ErrUnknownFlag
)

// invalid marks a decoding failure of a binary file as a format mismatch, keeping the
// original error in the chain.
func invalid(err error) error {
	switch {
	case errors.Is(err, ErrFormatMismatch):
		return err
	case errors.Is(err, cal.ErrInvalidFormat),
		errors.Is(err, mi.ErrInvalidFormat),
		errors.Is(err, mc.ErrInvalidFormat):
		return fmt.Errorf("%w: %w", ErrFormatMismatch, err)
	default:
		return err
	}
}
