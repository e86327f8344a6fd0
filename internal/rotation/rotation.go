// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package rotation converts between Euler angles in the text-motion convention and the
// quaternions stored by the Dark Engine motion-channel files.
package rotation

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon is the gimbal-lock threshold on the length of the matrix (0,0),(0,1) vector.
const Epsilon = 1e-5

const (
	degrees = math.Pi / 180
	radians = 180 / math.Pi
)

// Identity is the zero rotation.
var Identity = quat.Number{Real: 1}

// FromEuler converts an XYZ Euler triple in degrees into a unit quaternion. The text format
// is right-handed while motion channels are left-handed, so all three angles are negated
// before composition.
func FromEuler(deg r3.Vec) quat.Number {
	return FromRadians(r3.Vec{X: -deg.X * degrees, Y: -deg.Y * degrees, Z: -deg.Z * degrees})
}

// FromRadians composes a quaternion from static X, then Y, then Z rotations.
func FromRadians(v r3.Vec) quat.Number {
	si, sj, sk := math.Sin(0.5*v.X), math.Sin(0.5*v.Y), math.Sin(0.5*v.Z)
	ci, cj, ck := math.Cos(0.5*v.X), math.Cos(0.5*v.Y), math.Cos(0.5*v.Z)
	ss, sc := si*sk, si*ck
	cc, cs := ci*ck, ci*sk

	return quat.Number{
		Real: cj*cc + sj*ss,
		Imag: cj*sc - sj*cs,
		Jmag: cj*ss + sj*cc,
		Kmag: cj*cs - sj*sc,
	}
}

// ToEuler converts a stored quaternion back into an XYZ Euler triple in degrees, undoing
// the handedness correction applied by FromEuler.
func ToEuler(q quat.Number) r3.Vec {
	v := Angles(Matrix(q))
	return r3.Vec{X: -v.X * radians, Y: -v.Y * radians, Z: -v.Z * radians}
}

// Matrix builds the 3x3 rotation matrix of a unit quaternion. The components are scaled
// by sqrt(2) so the products below already carry the factor of two.
func Matrix(q quat.Number) *r3.Mat {
	w, x, y, z := q.Real*math.Sqrt2, q.Imag*math.Sqrt2, q.Jmag*math.Sqrt2, q.Kmag*math.Sqrt2
	da, db, dc := w*x, w*y, w*z
	aa, ab, ac := x*x, x*y, x*z
	bb, bc := y*y, y*z
	cc := z*z

	return r3.NewMat([]float64{
		1 - bb - cc, dc + ab, ac - db,
		ab - dc, 1 - aa - cc, da + bc,
		db + ac, bc - da, 1 - aa - bb,
	})
}

// Angles extracts XYZ Euler angles in radians from a rotation matrix. Near gimbal lock the
// Z angle is indeterminate and set to zero; otherwise of the two valid triples the one
// with the smaller sum of absolute angles is returned.
func Angles(m *r3.Mat) r3.Vec {
	cy := math.Hypot(m.At(0, 0), m.At(0, 1))
	if cy <= Epsilon {
		return r3.Vec{
			X: math.Atan2(-m.At(2, 1), m.At(1, 1)),
			Y: math.Atan2(-m.At(0, 2), cy),
		}
	}

	v1 := r3.Vec{
		X: math.Atan2(m.At(1, 2), m.At(2, 2)),
		Y: math.Atan2(-m.At(0, 2), cy),
		Z: math.Atan2(m.At(0, 1), m.At(0, 0)),
	}
	v2 := r3.Vec{
		X: math.Atan2(-m.At(1, 2), -m.At(2, 2)),
		Y: math.Atan2(-m.At(0, 2), -cy),
		Z: math.Atan2(-m.At(0, 1), -m.At(0, 0)),
	}
	if absSum(v1) > absSum(v2) {
		return v2
	}
	return v1
}

func absSum(v r3.Vec) float64 {
	return math.Abs(v.X) + math.Abs(v.Y) + math.Abs(v.Z)
}
