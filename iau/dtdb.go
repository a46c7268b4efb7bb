package iau

import "math"

const (
	twoPi    = 2 * math.Pi
	degToRad = math.Pi / 180
)

// fairheadTerm is one sinusoid of the Fairhead & Bretagnon (1990) time
// ephemeris: amp * sin(freq*t + phase), amp in seconds, freq in radians
// per Julian millennium, t in millennia of TDB from J2000.0.
type fairheadTerm struct {
	amp, freq, phase float64
}

// Leading terms of the Fairhead & Bretagnon series, by power of t. The
// full model carries 787 terms; this truncation keeps every term with an
// amplitude above ~0.4 microseconds plus the dominant t^1..t^3 terms,
// leaving a worst-case error of a few hundred nanoseconds over several
// centuries around J2000 — in line with the overall accuracy target of
// the converter.
var fairhead0 = []fairheadTerm{
	{1656.674564e-6, 6283.075849991, 6.240054195},
	{22.417471e-6, 5753.384884897, 4.296977442},
	{13.839792e-6, 12566.151699983, 6.196904410},
	{4.770086e-6, 529.690965095, 0.444401603},
	{4.676740e-6, 6069.776754553, 4.021195093},
	{2.256707e-6, 213.299095438, 5.543113262},
	{1.694205e-6, -3.523118349, 5.025132748},
	{1.554905e-6, 77713.771467920, 5.198467090},
	{1.276839e-6, 7860.419392439, 5.988822341},
	{1.193379e-6, 5223.693919802, 3.649823730},
	{1.115322e-6, 3930.209696220, 1.422745069},
	{0.794185e-6, 11506.769769794, 2.322313077},
	{0.600309e-6, 1577.343542448, 2.678271909},
	{0.496817e-6, 6208.294251424, 5.696701824},
	{0.486306e-6, 5884.926846583, 0.520007179},
	{0.468597e-6, 6244.942814354, 5.866398759},
	{0.447061e-6, 26.298319800, 3.615796498},
	{0.435206e-6, -398.149003408, 4.349338347},
	{0.432392e-6, 74.781598567, 2.435898309},
	{0.375510e-6, 5507.553238667, 4.103476804},
}

var fairhead1 = []fairheadTerm{
	{102.156724e-6, 6283.075849991, 4.249032005},
	{1.706576e-6, 12566.151699983, 4.205904248},
	{0.269668e-6, 213.299095438, 3.400290479},
	{0.265919e-6, 529.690965095, 5.836047367},
	{0.210568e-6, -3.523118349, 6.262738348},
	{0.077996e-6, 5223.693919802, 4.670344204},
}

var fairhead2 = []fairheadTerm{
	{4.322990e-6, 6283.075849991, 2.642893748},
	{0.406495e-6, 0.0, 4.712388980},
	{0.122605e-6, 12566.151699983, 2.438140634},
	{0.019476e-6, 213.299095438, 1.642186981},
}

var fairhead3 = []fairheadTerm{
	{0.143388e-6, 6283.075849991, 1.131453581},
}

func seriesSum(terms []fairheadTerm, t float64) float64 {
	// Sum smallest-first for numerical tidiness.
	var s float64
	for i := len(terms) - 1; i >= 0; i-- {
		s += terms[i].amp * math.Sin(terms[i].freq*t+terms[i].phase)
	}
	return s
}

// TDBMinusTT returns TDB-TT in seconds for the given TDB date.
//
// The geocentric part is the truncated Fairhead & Bretagnon series plus
// the small JPL planetary-mass adjustments; the topocentric part is the
// Moyer diurnal model parameterized by:
//
//	ut1Frac - fraction of a UT1 day, in [0,1)
//	elon    - east longitude of the clock, radians
//	u       - distance of the clock from the Earth's spin axis, km
//	v       - distance of the clock north of the equatorial plane, km
//
// Passing u = v = elon = 0 yields the geocentric correction. The result
// is a quasi-periodic value bounded by about +/-1.7 ms; the topocentric
// contribution peaks at roughly 2 microseconds on the equator.
func TDBMinusTT(tdb SplitDate, ut1Frac, elon, u, v float64) float64 {
	// TDB millennia from J2000.0.
	t := ((tdb.D1 - J2000) + tdb.D2) / DaysPerMillennium

	// Topocentric terms (Moyer 1981, as formulated in SOFA). Fundamental
	// arguments follow Simon et al. (1994); w is t in Julian centuries
	// scaled for the coefficient units below.
	tsol := math.Mod(ut1Frac, 1.0)*twoPi + elon
	w := t / 3600.0
	elsun := math.Mod(280.46645683+1296027711.03429*w, 360.0) * degToRad
	emsun := math.Mod(357.52910918+1295965810.481*w, 360.0) * degToRad
	d := math.Mod(297.85019547+16029616012.090*w, 360.0) * degToRad
	elj := math.Mod(34.35151874+109306899.89453*w, 360.0) * degToRad
	els := math.Mod(50.07744430+44046398.47038*w, 360.0) * degToRad

	wt := 0.00029e-10*u*math.Sin(tsol+elsun-els) +
		0.00100e-10*u*math.Sin(tsol-2.0*emsun) +
		0.00133e-10*u*math.Sin(tsol-d) +
		0.00133e-10*u*math.Sin(tsol+elsun-elj) -
		0.00229e-10*u*math.Sin(tsol+2.0*elsun+emsun) -
		0.02200e-10*v*math.Cos(elsun+emsun) +
		0.05312e-10*u*math.Sin(tsol-elsun) -
		0.13677e-10*u*math.Sin(tsol+2.0*elsun) -
		1.31840e-10*v*math.Cos(elsun) +
		3.17679e-10*u*math.Sin(tsol)

	// Geocentric Fairhead & Bretagnon series, Horner-combined in t.
	w0 := seriesSum(fairhead0, t)
	w1 := seriesSum(fairhead1, t)
	w2 := seriesSum(fairhead2, t)
	w3 := seriesSum(fairhead3, t)
	wf := t*(t*(t*w3+w2)+w1) + w0

	// Adjustments for JPL planetary masses instead of the IAU values.
	wj := 0.00065e-6*math.Sin(6069.776754*t+4.021194) +
		0.00033e-6*math.Sin(213.299095*t+5.543132) +
		-0.00196e-6*math.Sin(6208.294251*t+5.696701) +
		-0.00173e-6*math.Sin(74.781599*t+2.435900) +
		0.03638e-6*t*t

	return wt + wf + wj
}
