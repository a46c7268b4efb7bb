// Command timescaled serves TDB to TT conversions over HTTP, backed by
// an IERS finals file (or a fixed TT-UT1 offset) with Prometheus
// metrics and optional tracing.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/signalsfoundry/timescale/convert"
	"github.com/signalsfoundry/timescale/eop"
	"github.com/signalsfoundry/timescale/internal/api"
	"github.com/signalsfoundry/timescale/internal/conf"
	"github.com/signalsfoundry/timescale/internal/logging"
	"github.com/signalsfoundry/timescale/internal/observability"
)

func main() {
	confPath := flag.String("conf", "timescaled.yml", "path to the configuration file")
	flag.Parse()

	cnf, err := conf.Load(*confPath)
	if err != nil {
		os.Stderr.WriteString("timescaled: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(logging.Config{Level: cnf.LogLevel, Format: cnf.LogFormat})
	ctx := context.Background()

	collector, err := observability.NewCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cnf.Tracing.Enabled,
		ServiceName: cnf.Tracing.ServiceName,
		Exporter:    cnf.Tracing.Exporter,
		Endpoint:    cnf.Tracing.Endpoint,
		SampleRatio: cnf.Tracing.SampleRatio,
	}, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}

	provider, tables, cleanup, err := buildProvider(cnf.EOP, log, collector)
	if err != nil {
		log.Error(ctx, "failed to initialise earth orientation source", logging.Err(err))
		os.Exit(1)
	}

	refresher := startRefresher(cnf.EOP, tables, log, collector)

	converter := convert.New(provider,
		convert.WithLogger(log),
		convert.WithMetrics(collector),
	)

	metricsSrv := serveMetrics(cnf.MetricsAddress, collector, log)

	apiSrv := &http.Server{
		Addr:    cnf.APIAddress,
		Handler: api.New(converter, provider, tableSource(tables), log).Handler(),
	}
	go func() {
		log.Info(ctx, "serving conversion API", logging.String("addr", cnf.APIAddress))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "API server exited", logging.Err(err))
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-stopCtx.Done()

	log.Info(ctx, "shutting down")
	if refresher != nil {
		refresher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if cleanup != nil {
		cleanup()
	}
	observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
}

// buildProvider selects fixed-offset or finals-file EOP data. The file
// path returns a non-nil FileProvider so the refresher and the API's
// status endpoint can see the live table.
func buildProvider(cfg conf.EOP, log logging.Logger, collector *observability.Collector) (eop.Provider, *eop.FileProvider, func(), error) {
	if cfg.FixedTTMinusUT1 != nil {
		log.Info(context.Background(), "using fixed TT-UT1 offset",
			logging.Float64("seconds", *cfg.FixedTTMinusUT1))
		return eop.Fixed{Offset: *cfg.FixedTTMinusUT1}, nil, nil, nil
	}

	fp, err := eop.NewFileProvider(cfg.FinalsPath, log)
	if err != nil {
		return nil, nil, nil, err
	}
	publishTableStats(fp.Current(), collector)
	return fp, fp, fp.Close, nil
}

// startRefresher schedules periodic fetches of the finals file from the
// IERS data center, swapping fresh tables into the live provider.
func startRefresher(cfg conf.EOP, fp *eop.FileProvider, log logging.Logger, collector *observability.Collector) *cron.Cron {
	if fp == nil || cfg.RefreshURL == "" || cfg.RefreshSchedule == "" {
		return nil
	}

	source := eop.NewURLSource(cfg.RefreshURL)
	c := cron.New()
	_, err := c.AddFunc(cfg.RefreshSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		table, err := source.Fetch(ctx)
		if err != nil {
			log.Warn(ctx, "finals refresh failed, keeping current table",
				logging.String("url", cfg.RefreshURL), logging.Err(err))
			return
		}
		fp.Swap(table)
		publishTableStats(table, collector)

		first, last := table.Span()
		log.Info(ctx, "earth orientation table refreshed",
			logging.Int("rows", table.Len()),
			logging.Float64("first_mjd", first),
			logging.Float64("last_mjd", last),
		)
	})
	if err != nil {
		log.Warn(context.Background(), "refresh schedule rejected, periodic refresh disabled",
			logging.String("schedule", cfg.RefreshSchedule), logging.Err(err))
		return nil
	}

	c.Start()
	log.Info(context.Background(), "scheduled finals refresh",
		logging.String("url", cfg.RefreshURL),
		logging.String("schedule", cfg.RefreshSchedule))
	return c
}

func publishTableStats(table *eop.Table, collector *observability.Collector) {
	if table == nil || collector == nil {
		return
	}
	_, last := table.Span()
	collector.SetTableStats(table.Len(), last)
}

// tableSource keeps the api package's TableSource nil when there is no
// file-backed table; a nil *FileProvider in a non-nil interface would
// panic on use.
func tableSource(fp *eop.FileProvider) api.TableSource {
	if fp == nil {
		return nil
	}
	return fp
}

func serveMetrics(addr string, collector *observability.Collector, log logging.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
