package observer

import (
	"errors"
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// ErrBadTLE is returned when a two-line element set cannot be used.
var ErrBadTLE = errors.New("invalid TLE")

// ECEFMetersFromTLE propagates a satellite-borne clock to t with SGP4
// and returns its Earth-fixed position in meters, suitable for the
// clock-location input of the converter. Relativistic clock offsets for
// orbiting clocks are exactly the case where the topocentric TDB-TT
// terms stop being negligible.
func ECEFMetersFromTLE(line1, line2 string, t time.Time) ([]float64, error) {
	if len(line1) < 69 || len(line2) < 69 {
		return nil, fmt.Errorf("%w: element lines must be 69 characters", ErrBadTLE)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)

	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	// go-satellite works in kilometers.
	const kmToM = 1000.0
	out := []float64{posECEF.X * kmToM, posECEF.Y * kmToM, posECEF.Z * kmToM}
	for _, c := range out {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: propagation produced a non-finite position", ErrBadTLE)
		}
	}
	return out, nil
}
