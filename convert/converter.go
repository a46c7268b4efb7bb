// Package convert resolves the circular dependency in turning a TDB
// timestamp into TT: the TT-UT1 offset needed for the conversion is
// indexed by UTC, but no UTC is known until TT is. A short fixed-point
// iteration closes the loop.
package convert

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/timescale/eop"
	"github.com/signalsfoundry/timescale/iau"
	"github.com/signalsfoundry/timescale/internal/logging"
	"github.com/signalsfoundry/timescale/observer"
)

// Conversion failure taxonomy. Every failure aborts the conversion; the
// iteration refines accuracy and never retries errors.
var (
	// ErrInvalidArgument flags structurally invalid input, such as a
	// clock location without exactly three components.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDateOutOfRange means the instant lies outside the range the
	// elementary transforms support.
	ErrDateOutOfRange = errors.New("date outside supported conversion range")
	// ErrConversion is an unexpected failure inside an elementary
	// transform, indicating a logic or data inconsistency.
	ErrConversion = errors.New("time-scale conversion failed")
	// ErrEOPUnavailable means the Earth-orientation source could not
	// produce TT-UT1 for the derived UTC instant. Conversions that pass
	// an explicit deltaT never hit this path.
	ErrEOPUnavailable = errors.New("earth orientation data unavailable")
)

// defaultPasses is the hard-coded refinement count. deltaT and the
// TDB-TT correction vary by well under a millisecond per millisecond of
// input error, so the fixed-point map converges past nanosecond level
// within two passes.
const defaultPasses = 2

var tracer = otel.Tracer("github.com/signalsfoundry/timescale/convert")

// MetricsRecorder receives conversion and EOP-lookup observations.
// internal/observability provides the Prometheus-backed implementation.
type MetricsRecorder interface {
	RecordConversion(outcome string, d time.Duration)
	RecordEOPLookup(outcome string, d time.Duration)
}

// transforms is the elementary-transform surface the converter drives,
// kept as an interface so tests can count and fail individual calls.
type transforms interface {
	ttToTAI(tt iau.SplitDate) (iau.SplitDate, error)
	taiToUTC(tai iau.SplitDate) (iau.SplitDate, error)
	ttToUT1(tt iau.SplitDate, deltaT float64) (iau.SplitDate, error)
	tdbToTT(tdb iau.SplitDate, dtr float64) (iau.SplitDate, error)
	tdbMinusTT(tdb iau.SplitDate, ut1Frac, elon, u, v float64) float64
}

// sofa routes the transform surface to the iau package.
type sofa struct{}

func (sofa) ttToTAI(tt iau.SplitDate) (iau.SplitDate, error)  { return iau.TTToTAI(tt) }
func (sofa) taiToUTC(tai iau.SplitDate) (iau.SplitDate, error) { return iau.TAIToUTC(tai) }
func (sofa) ttToUT1(tt iau.SplitDate, deltaT float64) (iau.SplitDate, error) {
	return iau.TTToUT1(tt, deltaT)
}
func (sofa) tdbToTT(tdb iau.SplitDate, dtr float64) (iau.SplitDate, error) {
	return iau.TDBToTT(tdb, dtr)
}
func (sofa) tdbMinusTT(tdb iau.SplitDate, ut1Frac, elon, u, v float64) float64 {
	return iau.TDBMinusTT(tdb, ut1Frac, elon, u, v)
}

// Converter turns TDB timestamps into TT. It is stateless between calls
// and safe for concurrent use as long as its Provider is.
type Converter struct {
	provider eop.Provider
	xf       transforms
	log      logging.Logger
	metrics  MetricsRecorder

	passes int

	// Adaptive mode, enabled via WithConvergence. Zero tol means the
	// fixed-pass mode is in effect.
	tol       float64
	maxPasses int
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger attaches a logger; warnings about dubious dates are logged
// as well as returned.
func WithLogger(log logging.Logger) Option {
	return func(c *Converter) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Converter) { c.metrics = m }
}

// WithConvergence switches the converter into the adaptive mode: passes
// continue until the TT update falls to tol days or fewer, up to
// maxPasses. The default fixed two-pass mode gives bit-for-bit stable
// output across versions; use this mode only when that stability does
// not matter.
func WithConvergence(tol float64, maxPasses int) Option {
	return func(c *Converter) {
		if tol > 0 && maxPasses > 0 {
			c.tol = tol
			c.maxPasses = maxPasses
		}
	}
}

// New builds a Converter on the given Earth-orientation provider. The
// provider may be nil only if every call supplies an explicit deltaT.
func New(provider eop.Provider, opts ...Option) *Converter {
	c := &Converter{
		provider: provider,
		xf:       sofa{},
		log:      logging.Noop(),
		passes:   defaultPasses,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Options carries the optional per-call inputs.
type Options struct {
	// DeltaT, when set, is used verbatim as TT-UT1 for every pass and
	// the Earth-orientation provider is never consulted. When nil the
	// offset is re-derived from the provider on each pass.
	DeltaT *float64

	// ClockLocationMeters is the geocentric rectangular position of the
	// clock in meters (exactly three components). Nil or empty selects
	// the geocenter. The slice is never modified.
	ClockLocationMeters []float64
}

// Result is a successful conversion.
type Result struct {
	// TT is the Terrestrial Time instant; the input's split is preserved.
	TT iau.SplitDate
	// Warnings lists non-fatal advisories, currently only dubious-date
	// notices from the leap-second era checks.
	Warnings []string
}

// Convert maps a TDB Julian Date onto TT. See Options for the optional
// inputs; the context is threaded through Earth-orientation lookups
// only, matching the one place the conversion can block.
func (c *Converter) Convert(ctx context.Context, tdb iau.SplitDate, opts Options) (Result, error) {
	ctx, span := tracer.Start(ctx, "timescale.Convert",
		trace.WithAttributes(attribute.Float64("tdb.jd", tdb.Value())))
	defer span.End()

	start := time.Now()
	res, err := c.convert(ctx, tdb, opts)
	if c.metrics != nil {
		c.metrics.RecordConversion(outcome(err), time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
	}
	return res, err
}

func (c *Converter) convert(ctx context.Context, tdb iau.SplitDate, opts Options) (Result, error) {
	if !tdb.IsFinite() {
		return Result{}, fmt.Errorf("%w: TDB input is not finite", ErrInvalidArgument)
	}

	// The location shape check runs before any transform is touched.
	prm, err := observer.ParamsFromECEFMeters(opts.ClockLocationMeters)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if opts.DeltaT == nil && c.provider == nil {
		return Result{}, fmt.Errorf("%w: no provider configured and no explicit deltaT", ErrEOPUnavailable)
	}

	var warnings []string

	// TDB and TT differ by under two milliseconds, so the input itself
	// seeds the iteration.
	tt := tdb
	prev := tt
	maxPasses := c.passes
	if c.tol > 0 {
		maxPasses = c.maxPasses
	}

	for pass := 1; pass <= maxPasses; pass++ {
		tt, err = c.refine(ctx, tdb, tt, opts.DeltaT, prm, &warnings)
		if err != nil {
			return Result{}, err
		}

		if c.tol > 0 && pass > 1 {
			step := math.Abs((tt.D1 - prev.D1) + (tt.D2 - prev.D2))
			if step <= c.tol {
				break
			}
		}
		prev = tt
	}

	return Result{TT: tt, Warnings: warnings}, nil
}

// refine performs one fixed-point pass: deltaT, UT1, TDB-TT model, new
// TT estimate.
func (c *Converter) refine(ctx context.Context, tdb, tt iau.SplitDate, fixedDeltaT *float64, prm observer.Params, warnings *[]string) (iau.SplitDate, error) {
	deltaT, err := c.deltaT(ctx, tt, fixedDeltaT, warnings)
	if err != nil {
		return iau.SplitDate{}, err
	}

	ut1, err := c.xf.ttToUT1(tt, deltaT)
	switch {
	case errors.Is(err, iau.ErrDubiousDate):
		c.warn(ctx, warnings, "dubious date deriving UT1; leap-second data is uncertain for this era")
	case errors.Is(err, iau.ErrUnacceptableDate):
		return iau.SplitDate{}, fmt.Errorf("%w: %v", ErrDateOutOfRange, err)
	case err != nil:
		return iau.SplitDate{}, fmt.Errorf("%w: TT to UT1: %v", ErrConversion, err)
	}

	dtr := c.xf.tdbMinusTT(tdb, ut1DayFraction(ut1), prm.ELon, prm.U, prm.V)

	next, err := c.xf.tdbToTT(tdb, dtr)
	if err != nil {
		return iau.SplitDate{}, fmt.Errorf("%w: TDB to TT: %v", ErrConversion, err)
	}
	return next, nil
}

// deltaT yields TT-UT1 for one pass: the caller's fixed value if given,
// otherwise a fresh provider lookup via TT -> TAI -> UTC.
func (c *Converter) deltaT(ctx context.Context, tt iau.SplitDate, fixed *float64, warnings *[]string) (float64, error) {
	if fixed != nil {
		return *fixed, nil
	}

	tai, err := c.xf.ttToTAI(tt)
	if err != nil {
		return 0, fmt.Errorf("%w: TT to TAI: %v", ErrConversion, err)
	}

	utc, err := c.xf.taiToUTC(tai)
	switch {
	case errors.Is(err, iau.ErrDubiousDate):
		c.warn(ctx, warnings, "dubious date deriving UTC; leap-second data is uncertain for this era")
	case errors.Is(err, iau.ErrUnacceptableDate):
		return 0, fmt.Errorf("%w: %v", ErrDateOutOfRange, err)
	case err != nil:
		return 0, fmt.Errorf("%w: TAI to UTC: %v", ErrConversion, err)
	}

	start := time.Now()
	deltaT, err := c.provider.TTMinusUT1(ctx, utc)
	if c.metrics != nil {
		c.metrics.RecordEOPLookup(outcome(err), time.Since(start))
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEOPUnavailable, err)
	}
	return deltaT, nil
}

func (c *Converter) warn(ctx context.Context, warnings *[]string, msg string) {
	*warnings = append(*warnings, msg)
	c.log.Warn(ctx, msg)
}

// ut1DayFraction sums the fractional parts of both components and
// re-fractions the sum, so a split straddling an integer boundary still
// lands in [0, 1).
func ut1DayFraction(ut1 iau.SplitDate) float64 {
	f := (ut1.D1 - math.Floor(ut1.D1)) + (ut1.D2 - math.Floor(ut1.D2))
	return f - math.Floor(f)
}

// outcome buckets an error for metrics labels.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrDateOutOfRange):
		return "date_out_of_range"
	case errors.Is(err, ErrEOPUnavailable), errors.Is(err, eop.ErrNoData):
		return "eop_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "conversion_error"
	}
}
