// Package iau implements the small set of elementary time-scale
// transforms the converter needs: TT<->TAI, TAI->UTC, TT->UT1, TDB->TT
// and the TDB-TT time-ephemeris model. The routines follow the
// conventions of the IAU SOFA library; accuracy notes are documented on
// the individual functions.
package iau

import "math"

// Julian Date reference values (days).
const (
	// J2000 is the Julian Date of the J2000.0 epoch, 2000-01-01T12:00:00 TT.
	J2000 = 2451545.0
	// JDMJD0 is the Julian Date of MJD 0.
	JDMJD0 = 2400000.5
	// DaysPerMillennium converts days since J2000 to Julian millennia.
	DaysPerMillennium = 365250.0
	// SecondsPerDay is exact for all uniform time scales handled here.
	SecondsPerDay = 86400.0
	// TTMinusTAI is the fixed TT-TAI offset in seconds.
	TTMinusTAI = 32.184
)

// Supported Julian Date range for calendar-dependent conversions. The
// lower bound is the start of the Gregorian calendar; the upper bound is
// far enough out that any real tracking or ephemeris use case fits.
const (
	minSupportedJD = 2299160.5 // 1582-10-15
	maxSupportedJD = 2634166.5 // ~2500-01-01
)

// SplitDate is a Julian Date held as two float64 components whose sum is
// the full date. The split buys precision past a single float64 mantissa
// (a whole JD has ~1 microsecond resolution; a split one reaches well
// below a nanosecond). Where the date is split is arbitrary, and every
// transform in this package preserves the caller's split.
type SplitDate struct {
	D1, D2 float64
}

// Value collapses the split into a single float64. Only use this where
// microsecond-level resolution is acceptable, such as table lookups.
func (d SplitDate) Value() float64 { return d.D1 + d.D2 }

// MJD returns the Modified Julian Date, computed so that the large
// constant cancels against the large component first.
func (d SplitDate) MJD() float64 { return (d.D1 - JDMJD0) + d.D2 }

// IsFinite reports whether both components are ordinary numbers.
func (d SplitDate) IsFinite() bool {
	return !math.IsNaN(d.D1) && !math.IsInf(d.D1, 0) &&
		!math.IsNaN(d.D2) && !math.IsInf(d.D2, 0)
}

// shiftSeconds subtracts sec seconds from the date, applying the change
// to the smaller-magnitude component so the split is preserved.
func shiftSeconds(d SplitDate, sec float64) SplitDate {
	dd := sec / SecondsPerDay
	if math.Abs(d.D1) > math.Abs(d.D2) {
		return SplitDate{D1: d.D1, D2: d.D2 - dd}
	}
	return SplitDate{D1: d.D1 - dd, D2: d.D2}
}

// inSupportedRange reports whether the date can be mapped onto the
// calendar and leap-second machinery.
func inSupportedRange(d SplitDate) bool {
	v := d.Value()
	return v >= minSupportedJD && v <= maxSupportedJD
}
