package convert

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/timescale/eop"
	"github.com/signalsfoundry/timescale/iau"
)

// countingProvider is an EOP stub that records how often it is asked.
type countingProvider struct {
	offset float64
	err    error
	calls  int
}

func (p *countingProvider) TTMinusUT1(ctx context.Context, utc iau.SplitDate) (float64, error) {
	p.calls++
	if p.err != nil {
		return 0, p.err
	}
	return p.offset, nil
}

// countingTransforms wraps the real transforms and tallies every call.
type countingTransforms struct {
	inner transforms
	calls int
}

func (c *countingTransforms) ttToTAI(tt iau.SplitDate) (iau.SplitDate, error) {
	c.calls++
	return c.inner.ttToTAI(tt)
}

func (c *countingTransforms) taiToUTC(tai iau.SplitDate) (iau.SplitDate, error) {
	c.calls++
	return c.inner.taiToUTC(tai)
}

func (c *countingTransforms) ttToUT1(tt iau.SplitDate, deltaT float64) (iau.SplitDate, error) {
	c.calls++
	return c.inner.ttToUT1(tt, deltaT)
}

func (c *countingTransforms) tdbToTT(tdb iau.SplitDate, dtr float64) (iau.SplitDate, error) {
	c.calls++
	return c.inner.tdbToTT(tdb, dtr)
}

func (c *countingTransforms) tdbMinusTT(tdb iau.SplitDate, ut1Frac, elon, u, v float64) float64 {
	c.calls++
	return c.inner.tdbMinusTT(tdb, ut1Frac, elon, u, v)
}

func ttMinusTDBDays(tt, tdb iau.SplitDate) float64 {
	return (tt.D1 - tdb.D1) + (tt.D2 - tdb.D2)
}

func TestConvertIdentityBound(t *testing.T) {
	t.Parallel()

	c := New(&countingProvider{offset: 65})

	// Historical through near-future dates; TDB and TT may never differ
	// by more than the ~2 ms physical bound.
	for jd := 2441317.5; jd < 2469000.5; jd += 508.25 {
		tdb := iau.SplitDate{D1: jd, D2: 0.125}
		res, err := c.Convert(context.Background(), tdb, Options{})
		if err != nil {
			t.Fatalf("Convert(JD %v): %v", jd, err)
		}
		if diff := math.Abs(ttMinusTDBDays(res.TT, tdb)) * iau.SecondsPerDay; diff > 0.002 {
			t.Fatalf("JD %v: |TT-TDB| = %v s, beyond the 2 ms bound", jd, diff)
		}
	}
}

func TestConvertDeterministic(t *testing.T) {
	t.Parallel()

	tdb := iau.SplitDate{D1: 2455197.5, D2: 0.25}
	loc := []float64{6378137, 0, 0}

	c := New(&countingProvider{offset: 66.07})
	a, err := c.Convert(context.Background(), tdb, Options{ClockLocationMeters: loc})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	b, err := c.Convert(context.Background(), tdb, Options{ClockLocationMeters: loc})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if a.TT.D1 != b.TT.D1 || a.TT.D2 != b.TT.D2 {
		t.Fatalf("identical inputs produced different bits: %+v vs %+v", a.TT, b.TT)
	}
}

func TestConvertFixedDeltaTSkipsProvider(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{offset: 66}
	c := New(provider)

	deltaT := 68.9
	_, err := c.Convert(context.Background(), iau.SplitDate{D1: 2455197.5}, Options{DeltaT: &deltaT})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("provider was consulted %d times despite an explicit deltaT", provider.calls)
	}
}

func TestConvertDerivesDeltaTEveryPass(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{offset: 66}
	c := New(provider)

	if _, err := c.Convert(context.Background(), iau.SplitDate{D1: 2455197.5}, Options{}); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if provider.calls != defaultPasses {
		t.Fatalf("provider consulted %d times, want once per pass (%d)", provider.calls, defaultPasses)
	}
}

func TestConvertBadLocationShape(t *testing.T) {
	t.Parallel()

	for _, loc := range [][]float64{{1, 2}, {1, 2, 3, 4}} {
		provider := &countingProvider{offset: 66}
		c := New(provider)
		xf := &countingTransforms{inner: sofa{}}
		c.xf = xf

		_, err := c.Convert(context.Background(), iau.SplitDate{D1: 2455197.5}, Options{ClockLocationMeters: loc})
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("Convert with %d-component location err = %v, want ErrInvalidArgument", len(loc), err)
		}
		if xf.calls != 0 {
			t.Fatalf("%d elementary transforms ran before the shape check failed", xf.calls)
		}
		if provider.calls != 0 {
			t.Fatalf("provider consulted despite invalid location")
		}
	}
}

func TestConvertOutOfRangeDate(t *testing.T) {
	t.Parallel()

	c := New(&countingProvider{offset: 66})
	far := iau.SplitDate{D1: 100.0, D2: 0.0}

	_, err := c.Convert(context.Background(), far, Options{})
	if !errors.Is(err, ErrDateOutOfRange) {
		t.Fatalf("Convert(ancient date) err = %v, want ErrDateOutOfRange", err)
	}
	if errors.Is(err, ErrConversion) {
		t.Fatal("out-of-range date misclassified as a conversion error")
	}

	// Same classification when deltaT is supplied and the EOP chain is
	// bypassed: the failure then comes from the TT->UT1 step.
	deltaT := 66.0
	_, err = c.Convert(context.Background(), far, Options{DeltaT: &deltaT})
	if !errors.Is(err, ErrDateOutOfRange) {
		t.Fatalf("Convert(ancient date, fixed deltaT) err = %v, want ErrDateOutOfRange", err)
	}
}

func TestConvertJ2000ReferenceBand(t *testing.T) {
	t.Parallel()

	// J2000.0 with a fixed, historically plausible TT-UT1. TT must lead
	// TDB by roughly 70 microseconds; the band is a regression guard
	// around the truncated series (see iau.TDBMinusTT).
	c := New(&countingProvider{offset: 63.8285})
	tdb := iau.SplitDate{D1: 2451545.0, D2: 0.0}

	res, err := c.Convert(context.Background(), tdb, Options{})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	delta := ttMinusTDBDays(res.TT, tdb)
	if delta < 3e-10 || delta > 2e-9 {
		t.Fatalf("TT-TDB at J2000 = %v days, want within (3e-10, 2e-9)", delta)
	}
	if res.TT.D1 != tdb.D1 {
		t.Fatalf("conversion collapsed the split: D1 %v -> %v", tdb.D1, res.TT.D1)
	}
}

func TestConvertZeroLocationMatchesGeocenter(t *testing.T) {
	t.Parallel()

	tdb := iau.SplitDate{D1: 2455197.5, D2: 0.3}
	c := New(&countingProvider{offset: 66.07})

	geo, err := c.Convert(context.Background(), tdb, Options{})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	zero, err := c.Convert(context.Background(), tdb, Options{ClockLocationMeters: []float64{0, 0, 0}})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if geo.TT.D1 != zero.TT.D1 || geo.TT.D2 != zero.TT.D2 {
		t.Fatalf("zero location differs from geocenter: %+v vs %+v", geo.TT, zero.TT)
	}
}

func TestConvertLocationSensitivity(t *testing.T) {
	t.Parallel()

	// Mid-day UT1 fraction so the diurnal topocentric term is near its
	// extreme for an equatorial clock.
	tdb := iau.SplitDate{D1: 2455197.5, D2: 0.3}
	c := New(&countingProvider{offset: 66.07})

	geo, err := c.Convert(context.Background(), tdb, Options{})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	topo, err := c.Convert(context.Background(), tdb, Options{ClockLocationMeters: []float64{6378137, 0, 0}})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	diff := math.Abs((topo.TT.D1 - geo.TT.D1) + (topo.TT.D2 - geo.TT.D2))
	if diff == 0 {
		t.Fatal("an equatorial clock produced the geocenter result")
	}
	// Earth-rotation effects top out at ~2 microseconds (~2.4e-11 days).
	if diff > 1e-10 {
		t.Fatalf("location moved TT by %v days, more than the physical bound", diff)
	}
}

func TestConvertPassConvergenceMonotonic(t *testing.T) {
	t.Parallel()

	dates := []iau.SplitDate{
		{D1: 2443144.5, D2: 0.1},
		{D1: 2451545.0, D2: 0.0},
		{D1: 2455197.5, D2: 0.65},
		{D1: 2458849.5, D2: 0.9},
	}
	loc := []float64{4075539, 931735, 4801629}

	for _, tdb := range dates {
		results := make([]iau.SplitDate, 0, 3)
		for _, passes := range []int{1, 2, 3} {
			c := New(&countingProvider{offset: 67})
			c.passes = passes
			res, err := c.Convert(context.Background(), tdb, Options{ClockLocationMeters: loc})
			if err != nil {
				t.Fatalf("Convert(%d passes): %v", passes, err)
			}
			results = append(results, res.TT)
		}

		step12 := math.Abs((results[1].D1 - results[0].D1) + (results[1].D2 - results[0].D2))
		step23 := math.Abs((results[2].D1 - results[1].D1) + (results[2].D2 - results[1].D2))
		if step23 > step12 {
			t.Fatalf("JD %v: refinement diverged, |pass3-pass2| = %v > |pass2-pass1| = %v",
				tdb.Value(), step23, step12)
		}
	}
}

func TestConvertAdaptiveModeAgreesWithDefault(t *testing.T) {
	t.Parallel()

	tdb := iau.SplitDate{D1: 2455197.5, D2: 0.3}

	fixed := New(&countingProvider{offset: 66.07})
	adaptive := New(&countingProvider{offset: 66.07}, WithConvergence(1e-14, 8))

	a, err := fixed.Convert(context.Background(), tdb, Options{})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	b, err := adaptive.Convert(context.Background(), tdb, Options{})
	if err != nil {
		t.Fatalf("Convert (adaptive): %v", err)
	}

	if diff := math.Abs((a.TT.D1 - b.TT.D1) + (a.TT.D2 - b.TT.D2)); diff > 1e-12 {
		t.Fatalf("adaptive mode drifted %v days from the reference mode", diff)
	}
}

func TestConvertEOPUnavailable(t *testing.T) {
	t.Parallel()

	c := New(&countingProvider{err: eop.ErrNoData})
	_, err := c.Convert(context.Background(), iau.SplitDate{D1: 2455197.5}, Options{})
	if !errors.Is(err, ErrEOPUnavailable) {
		t.Fatalf("Convert err = %v, want ErrEOPUnavailable", err)
	}

	// An explicit deltaT never touches the provider, so the same call
	// succeeds.
	deltaT := 66.0
	if _, err := c.Convert(context.Background(), iau.SplitDate{D1: 2455197.5}, Options{DeltaT: &deltaT}); err != nil {
		t.Fatalf("Convert with fixed deltaT: %v", err)
	}
}

func TestConvertNoProviderRequiresDeltaT(t *testing.T) {
	t.Parallel()

	c := New(nil)
	_, err := c.Convert(context.Background(), iau.SplitDate{D1: 2455197.5}, Options{})
	if !errors.Is(err, ErrEOPUnavailable) {
		t.Fatalf("Convert without provider err = %v, want ErrEOPUnavailable", err)
	}

	deltaT := 66.0
	if _, err := c.Convert(context.Background(), iau.SplitDate{D1: 2455197.5}, Options{DeltaT: &deltaT}); err != nil {
		t.Fatalf("Convert without provider but fixed deltaT: %v", err)
	}
}

func TestConvertDubiousDateWarns(t *testing.T) {
	t.Parallel()

	// 1950 predates the leap-second table: conversion proceeds with a
	// warning rather than failing.
	c := New(&countingProvider{offset: 29})
	res, err := c.Convert(context.Background(), iau.SplitDate{D1: 2433282.5}, Options{})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("pre-1972 date produced no dubious-date warning")
	}
}

func TestConvertNonFiniteInput(t *testing.T) {
	t.Parallel()

	c := New(&countingProvider{offset: 66})
	_, err := c.Convert(context.Background(), iau.SplitDate{D1: math.NaN()}, Options{})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Convert(NaN) err = %v, want ErrInvalidArgument", err)
	}
}

func TestConvertContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(eop.Fixed{Offset: 66})
	if _, err := c.Convert(ctx, iau.SplitDate{D1: 2455197.5}, Options{}); err == nil {
		t.Fatal("Convert with canceled context succeeded")
	}
}

type recordingMetrics struct {
	conversions map[string]int
	lookups     map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{conversions: map[string]int{}, lookups: map[string]int{}}
}

func (m *recordingMetrics) RecordConversion(outcome string, d time.Duration) {
	m.conversions[outcome]++
}

func (m *recordingMetrics) RecordEOPLookup(outcome string, d time.Duration) {
	m.lookups[outcome]++
}

func TestConvertRecordsMetrics(t *testing.T) {
	t.Parallel()

	metrics := newRecordingMetrics()
	c := New(&countingProvider{offset: 66}, WithMetrics(metrics))

	if _, err := c.Convert(context.Background(), iau.SplitDate{D1: 2455197.5}, Options{}); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if metrics.conversions["ok"] != 1 {
		t.Fatalf("conversion outcomes = %v, want one ok", metrics.conversions)
	}
	if metrics.lookups["ok"] != defaultPasses {
		t.Fatalf("lookup outcomes = %v, want %d ok", metrics.lookups, defaultPasses)
	}

	_, _ = c.Convert(context.Background(), iau.SplitDate{D1: 100.0}, Options{})
	if metrics.conversions["date_out_of_range"] != 1 {
		t.Fatalf("conversion outcomes = %v, want one date_out_of_range", metrics.conversions)
	}
}
