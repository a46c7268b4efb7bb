// Package eop supplies Earth-orientation data, in particular the TT-UT1
// offset required by the TDB to TT converter. Providers are indexed by
// UTC because that is how the IERS publishes the underlying data.
package eop

import (
	"context"
	"errors"

	"github.com/signalsfoundry/timescale/iau"
)

// ErrNoData is returned when a provider has no value for the requested
// date. Transport and decoding failures are returned as their own error
// values; the converter treats all of them as the EOP source being
// unavailable.
var ErrNoData = errors.New("no earth orientation data for date")

// Provider answers TT-UT1 lookups for a UTC instant, in seconds.
// Implementations must be safe for concurrent use; blocking ones must
// honor ctx cancellation.
type Provider interface {
	TTMinusUT1(ctx context.Context, utc iau.SplitDate) (float64, error)
}

// Fixed is a Provider that always returns the same offset. It backs
// tests and deployments without access to IERS data.
type Fixed struct {
	Offset float64
}

// TTMinusUT1 implements Provider.
func (f Fixed) TTMinusUT1(ctx context.Context, utc iau.SplitDate) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.Offset, nil
}
