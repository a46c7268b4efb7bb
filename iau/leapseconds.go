package iau

// leapEntry records a step in TAI-UTC. Entries are ordered oldest first;
// each offset applies from its MJD until the next entry.
type leapEntry struct {
	mjd float64 // UTC MJD at which the offset takes effect
	dat float64 // TAI-UTC in seconds from that date on
}

// IERS leap-second history since the current UTC system began in 1972.
// The pre-1972 rubber-second era is deliberately excluded; dates before
// the table are flagged dubious rather than extrapolated.
var leapTable = []leapEntry{
	{41317, 10}, // 1972-01-01
	{41499, 11}, // 1972-07-01
	{41683, 12}, // 1973-01-01
	{42048, 13}, // 1974-01-01
	{42413, 14}, // 1975-01-01
	{42778, 15}, // 1976-01-01
	{43144, 16}, // 1977-01-01
	{43509, 17}, // 1978-01-01
	{43874, 18}, // 1979-01-01
	{44239, 19}, // 1980-01-01
	{44786, 20}, // 1981-07-01
	{45151, 21}, // 1982-07-01
	{45516, 22}, // 1983-07-01
	{46247, 23}, // 1985-07-01
	{47161, 24}, // 1988-01-01
	{47892, 25}, // 1990-01-01
	{48257, 26}, // 1991-01-01
	{48804, 27}, // 1992-07-01
	{49169, 28}, // 1993-07-01
	{49534, 29}, // 1994-07-01
	{50083, 30}, // 1996-01-01
	{50630, 31}, // 1997-07-01
	{51179, 32}, // 1999-01-01
	{53736, 33}, // 2006-01-01
	{54832, 34}, // 2009-01-01
	{56109, 35}, // 2012-07-01
	{57204, 36}, // 2015-07-01
	{57754, 37}, // 2017-01-01
}

// dubiousHorizonDays is how far past the last leap-second entry a date
// can lie before leap-second assumptions become guesswork (~5 years,
// matching the SOFA convention).
const dubiousHorizonDays = 5 * 365.25

// DeltaAT returns TAI-UTC in seconds for the given MJD. dubious is true
// when the date falls before the 1972 start of the table or beyond the
// horizon after its last entry; in both cases the nearest tabulated
// offset is still returned as a best effort.
func DeltaAT(mjd float64) (dat float64, dubious bool) {
	if mjd < leapTable[0].mjd {
		return leapTable[0].dat, true
	}

	dat = leapTable[0].dat
	for _, e := range leapTable {
		if mjd < e.mjd {
			break
		}
		dat = e.dat
	}

	last := leapTable[len(leapTable)-1]
	if mjd > last.mjd+dubiousHorizonDays {
		return dat, true
	}
	return dat, false
}
