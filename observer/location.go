// Package observer derives the clock-location parameters consumed by the
// TDB-TT model from geocentric rectangular coordinates.
package observer

import (
	"errors"
	"fmt"
	"math"
)

// ErrBadShape is returned when a clock location does not have exactly
// three components.
var ErrBadShape = errors.New("clock location must have exactly three components")

// Params are the three scalars the TDB-TT topocentric model consumes.
type Params struct {
	// U is the distance of the clock from the Earth's spin axis, km.
	U float64
	// V is the distance of the clock north of the equatorial plane, km.
	V float64
	// ELon is the east longitude of the clock, radians.
	ELon float64
}

// Geocenter is the default clock location: all parameters zero.
var Geocenter = Params{}

// ParamsFromECEFMeters converts a geocentric rectangular position in
// meters (TIRS or ITRS, the difference is irrelevant at this accuracy)
// into Params. The input slice is never modified. A nil or empty slice
// yields the geocenter; any other length besides 3 is ErrBadShape.
func ParamsFromECEFMeters(xyz []float64) (Params, error) {
	if len(xyz) == 0 {
		return Geocenter, nil
	}
	if len(xyz) != 3 {
		return Params{}, fmt.Errorf("%w: got %d", ErrBadShape, len(xyz))
	}
	for i, c := range xyz {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return Params{}, fmt.Errorf("%w: component %d is not finite", ErrBadShape, i)
		}
	}

	// Work on local copies in kilometers; the caller's slice stays intact.
	x := xyz[0] / 1000.0
	y := xyz[1] / 1000.0
	z := xyz[2] / 1000.0

	return Params{
		U:    math.Sqrt(x*x + y*y),
		V:    z,
		ELon: math.Atan2(y, x),
	}, nil
}
