package iau

import (
	"errors"
	"fmt"
)

// Sentinel statuses reported by the transforms. ErrDubiousDate is an
// advisory: the returned date is still valid and usable, the caller just
// should not trust leap-second assumptions for that era. The other two
// are hard failures and the returned date must be discarded.
var (
	ErrDubiousDate      = errors.New("dubious date")
	ErrUnacceptableDate = errors.New("unacceptable date")
	ErrConversion       = errors.New("time-scale conversion failed")
)

// TTToTAI converts Terrestrial Time to International Atomic Time by
// removing the fixed 32.184 s offset. The split of the input date is
// preserved.
func TTToTAI(tt SplitDate) (SplitDate, error) {
	if !tt.IsFinite() {
		return SplitDate{}, fmt.Errorf("%w: non-finite TT input", ErrConversion)
	}
	return shiftSeconds(tt, TTMinusTAI), nil
}

// TAIToUTC converts International Atomic Time to Coordinated Universal
// Time using the leap-second table.
//
// The returned date is a "quasi-JD": a UTC instant encoded as a Julian
// Date, adequate for indexing Earth-orientation tables but not for
// representing the inside of a leap second. A date before 1972 or well
// past the last tabulated leap second yields the value together with
// ErrDubiousDate; a date outside the supported calendar range yields
// ErrUnacceptableDate.
func TAIToUTC(tai SplitDate) (SplitDate, error) {
	if !tai.IsFinite() {
		return SplitDate{}, fmt.Errorf("%w: non-finite TAI input", ErrConversion)
	}
	if !inSupportedRange(tai) {
		return SplitDate{}, fmt.Errorf("%w: JD %.3f", ErrUnacceptableDate, tai.Value())
	}

	// TAI leads UTC by well under a minute, so looking the offset up at
	// the TAI MJD instead of the UTC MJD cannot select the wrong table
	// entry except within seconds of a leap boundary, where the result
	// is ambiguous at the quasi-JD level anyway.
	dat, dubious := DeltaAT(tai.MJD())
	utc := shiftSeconds(tai, dat)
	if dubious {
		return utc, ErrDubiousDate
	}
	return utc, nil
}

// TTToUT1 converts Terrestrial Time to UT1 given deltaT = TT-UT1 in
// seconds. The same date-range policy as TAIToUTC applies: out-of-range
// dates are unacceptable, pre-1972 or far-future dates are flagged
// dubious but still converted.
func TTToUT1(tt SplitDate, deltaT float64) (SplitDate, error) {
	if !tt.IsFinite() {
		return SplitDate{}, fmt.Errorf("%w: non-finite TT input", ErrConversion)
	}
	if !inSupportedRange(tt) {
		return SplitDate{}, fmt.Errorf("%w: JD %.3f", ErrUnacceptableDate, tt.Value())
	}

	ut1 := shiftSeconds(tt, deltaT)
	if _, dubious := DeltaAT(tt.MJD()); dubious {
		return ut1, ErrDubiousDate
	}
	return ut1, nil
}

// TDBToTT converts Barycentric Dynamical Time to Terrestrial Time given
// dtr = TDB-TT in seconds (from TDBMinusTT).
func TDBToTT(tdb SplitDate, dtr float64) (SplitDate, error) {
	if !tdb.IsFinite() {
		return SplitDate{}, fmt.Errorf("%w: non-finite TDB input", ErrConversion)
	}
	return shiftSeconds(tdb, dtr), nil
}
