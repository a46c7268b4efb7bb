package eop

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/signalsfoundry/timescale/iau"
)

// Record is one day of Earth-orientation data relevant to time-scale
// conversion.
type Record struct {
	MJD         float64
	UT1MinusUTC float64 // seconds, as published by the IERS
	TTMinusUT1  float64 // seconds, derived: 32.184 + (TAI-UTC) - (UT1-UTC)
	Prediction  bool    // true for predicted rather than measured rows
}

// Table is an immutable, sorted EOP table. A Table is itself a Provider
// and is safe for concurrent reads.
type Table struct {
	records []Record
}

// finals2000A fixed-width columns (0-based byte offsets into each line).
const (
	finalsMJDStart  = 7
	finalsMJDEnd    = 15
	finalsUT1Flag   = 57
	finalsUT1Start  = 58
	finalsUT1End    = 68
	finalsMinLength = 68
)

// ParseFinals reads IERS finals2000A.data (or finals.data) fixed-width
// rows. Rows without a published UT1-UTC value, typically far-future
// predictions, are skipped. TT-UT1 is derived per row so lookups can
// interpolate a quantity that stays continuous across leap seconds,
// unlike UT1-UTC itself which steps by a full second.
func ParseFinals(r io.Reader) (*Table, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Text()
		if len(raw) < finalsMinLength {
			continue
		}

		mjdField := strings.TrimSpace(raw[finalsMJDStart:finalsMJDEnd])
		ut1Field := strings.TrimSpace(raw[finalsUT1Start:finalsUT1End])
		if mjdField == "" || ut1Field == "" {
			continue
		}

		mjd, err := strconv.ParseFloat(mjdField, 64)
		if err != nil {
			return nil, fmt.Errorf("finals line %d: bad MJD %q: %w", line, mjdField, err)
		}
		dut1, err := strconv.ParseFloat(ut1Field, 64)
		if err != nil {
			return nil, fmt.Errorf("finals line %d: bad UT1-UTC %q: %w", line, ut1Field, err)
		}

		dat, _ := iau.DeltaAT(mjd)
		records = append(records, Record{
			MJD:         mjd,
			UT1MinusUTC: dut1,
			TTMinusUT1:  iau.TTMinusTAI + dat - dut1,
			Prediction:  raw[finalsUT1Flag] == 'P',
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read finals data: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("finals data: %w", ErrNoData)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].MJD < records[j].MJD })
	return &Table{records: records}, nil
}

// LoadFile parses a finals file from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open finals file: %w", err)
	}
	defer f.Close()
	return ParseFinals(f)
}

// Len returns the number of rows in the table.
func (t *Table) Len() int { return len(t.records) }

// Span returns the first and last MJD covered by the table.
func (t *Table) Span() (first, last float64) {
	return t.records[0].MJD, t.records[len(t.records)-1].MJD
}

// Lookup returns the record interpolated at the given UTC instant.
// Dates outside the table's span yield ErrNoData: the converter must
// fail loudly rather than extrapolate Earth-rotation data.
func (t *Table) Lookup(utc iau.SplitDate) (Record, error) {
	mjd := utc.MJD()
	first, last := t.Span()
	if mjd < first || mjd > last {
		return Record{}, fmt.Errorf("%w: MJD %.3f outside [%.1f, %.1f]", ErrNoData, mjd, first, last)
	}

	i := sort.Search(len(t.records), func(i int) bool { return t.records[i].MJD >= mjd })
	if i < len(t.records) && t.records[i].MJD == mjd {
		return t.records[i], nil
	}

	lo, hi := t.records[i-1], t.records[i]
	f := (mjd - lo.MJD) / (hi.MJD - lo.MJD)
	return Record{
		MJD:         mjd,
		UT1MinusUTC: lo.UT1MinusUTC + f*(hi.UT1MinusUTC-lo.UT1MinusUTC),
		TTMinusUT1:  lo.TTMinusUT1 + f*(hi.TTMinusUT1-lo.TTMinusUT1),
		Prediction:  lo.Prediction || hi.Prediction,
	}, nil
}

// TTMinusUT1 implements Provider.
func (t *Table) TTMinusUT1(ctx context.Context, utc iau.SplitDate) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rec, err := t.Lookup(utc)
	if err != nil {
		return 0, err
	}
	return rec.TTMinusUT1, nil
}
