// Command tdb2tt converts a TDB Julian Date into Terrestrial Time.
//
//	tdb2tt --fixed-eop 69.2 2451545.0 0.0007
//	tdb2tt --finals finals2000A.all --clock-xyz 6378137,0,0 2455197.5 0.3
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/signalsfoundry/timescale/convert"
	"github.com/signalsfoundry/timescale/eop"
	"github.com/signalsfoundry/timescale/iau"
	"github.com/signalsfoundry/timescale/observer"
)

var cli struct {
	TDB1 float64 `arg:"" help:"First part of the TDB Julian Date."`
	TDB2 float64 `arg:"" optional:"" help:"Second part of the TDB Julian Date."`

	Finals   string   `help:"Path to an IERS finals2000A file for TT-UT1."`
	FixedEOP *float64 `name:"fixed-eop" help:"Pin TT-UT1 to a constant, in seconds, instead of reading a finals file."`
	DeltaT   *float64 `name:"delta-t" help:"Alias for --fixed-eop."`

	ClockXYZ []float64 `name:"clock-xyz" sep:"," help:"Geocentric clock position x,y,z in meters. Defaults to the geocenter."`

	TLE1  string `help:"First TLE line of a satellite-borne clock."`
	TLE2  string `help:"Second TLE line of a satellite-borne clock."`
	Epoch string `help:"UTC instant (RFC 3339) at which to propagate the TLE." default:""`
}

func main() {
	parser := kong.Must(&cli,
		kong.Name("tdb2tt"),
		kong.Description("Convert Barycentric Dynamical Time to Terrestrial Time."),
		kong.UsageOnError(),
	)
	_, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tdb2tt: %v\n", err)
		switch {
		case errors.Is(err, convert.ErrInvalidArgument):
			os.Exit(2)
		case errors.Is(err, convert.ErrDateOutOfRange):
			os.Exit(3)
		case errors.Is(err, convert.ErrEOPUnavailable):
			os.Exit(4)
		default:
			os.Exit(1)
		}
	}
}

func run() error {
	fixed := cli.FixedEOP
	if fixed == nil {
		fixed = cli.DeltaT
	}

	var provider eop.Provider
	switch {
	case fixed != nil && cli.Finals != "":
		return fmt.Errorf("%w: --finals and --fixed-eop are mutually exclusive", convert.ErrInvalidArgument)
	case cli.Finals != "":
		table, err := eop.LoadFile(cli.Finals)
		if err != nil {
			return fmt.Errorf("%w: %v", convert.ErrEOPUnavailable, err)
		}
		provider = table
	case fixed == nil:
		return fmt.Errorf("%w: one of --finals or --fixed-eop is required", convert.ErrInvalidArgument)
	}

	location, err := clockLocation()
	if err != nil {
		return err
	}

	res, err := convert.New(provider).Convert(context.Background(),
		iau.SplitDate{D1: cli.TDB1, D2: cli.TDB2},
		convert.Options{DeltaT: fixed, ClockLocationMeters: location})
	if err != nil {
		return err
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	fmt.Printf("%.9f %.15f\n", res.TT.D1, res.TT.D2)
	return nil
}

// clockLocation resolves --clock-xyz or a TLE into an Earth-fixed clock
// position in meters. Nil means geocenter.
func clockLocation() ([]float64, error) {
	hasTLE := cli.TLE1 != "" || cli.TLE2 != ""
	if hasTLE && cli.ClockXYZ != nil {
		return nil, fmt.Errorf("%w: --clock-xyz and --tle1/--tle2 are mutually exclusive", convert.ErrInvalidArgument)
	}
	if !hasTLE {
		return cli.ClockXYZ, nil
	}

	if cli.TLE1 == "" || cli.TLE2 == "" {
		return nil, fmt.Errorf("%w: both --tle1 and --tle2 are required", convert.ErrInvalidArgument)
	}
	epoch := time.Now().UTC()
	if cli.Epoch != "" {
		parsed, err := time.Parse(time.RFC3339, cli.Epoch)
		if err != nil {
			return nil, fmt.Errorf("%w: bad --epoch: %v", convert.ErrInvalidArgument, err)
		}
		epoch = parsed
	}

	location, err := observer.ECEFMetersFromTLE(cli.TLE1, cli.TLE2, epoch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", convert.ErrInvalidArgument, err)
	}
	return location, nil
}
