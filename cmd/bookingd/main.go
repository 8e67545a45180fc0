package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/unitloan/devicebooking/booking"
	"github.com/unitloan/devicebooking/booking/oteladapters"
	"github.com/unitloan/devicebooking/booking/postgresengine"
	"github.com/unitloan/devicebooking/httpapi"
	"github.com/unitloan/devicebooking/shell"
	"github.com/unitloan/devicebooking/shell/config"
)

func main() {
	// Logger
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg := config.Load()
	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("db", cfg.PostgresDSN).
		Str("db_adapter", cfg.DBAdapter).
		Int("catalog_size", len(cfg.CatalogDeviceIDs)).
		Msg("starting booking service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engineOptions := []postgresengine.Option{
		postgresengine.WithLogger(shell.NewZerologLogger(log.Logger)),
	}

	if cfg.OTLPEndpoint != "" {
		shutdownObservability, observabilityErr := setupObservability(ctx, cfg)
		must(observabilityErr)
		defer shutdownObservability()

		engineOptions = append(engineOptions,
			postgresengine.WithTracing(oteladapters.NewTracingCollector(otel.Tracer(cfg.ServiceName))),
			postgresengine.WithMetrics(oteladapters.NewMetricsCollector(otel.Meter(cfg.ServiceName))),
			postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger(cfg.ServiceName)),
		)
	}

	engine, closeDB, err := buildEngine(ctx, cfg, engineOptions)
	must(err)
	defer closeDB()

	catalog := booking.BuildStaticCatalog(cfg.CatalogDeviceIDs...)
	handler := httpapi.NewHandler(engine, catalog)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		log.Warn().Msg("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer shutdownCancel()

		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("http shutdown failed")
		}

		cancel()
	}()

	log.Info().Msg("http listening")

	if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		log.Fatal().Err(serveErr).Msg("http server failed")
	}
}

// buildEngine wires the booking engine for the configured database adapter,
// returning a function that closes the underlying connections. The pgx
// adapter additionally supports a replica pool for the availability
// projection when one is configured.
func buildEngine(
	ctx context.Context,
	cfg config.Config,
	options []postgresengine.Option,
) (postgresengine.BookingEngine, func(), error) {

	switch cfg.DBAdapter {
	case config.AdapterTypeSQLDB:
		db := config.PostgresSQLDBConfig(cfg.PostgresDSN)
		engine, err := postgresengine.NewBookingEngineFromSQLDB(db, options...)

		return engine, func() { _ = db.Close() }, err

	case config.AdapterTypeSQLX:
		db := config.PostgresSQLXConfig(cfg.PostgresDSN)
		engine, err := postgresengine.NewBookingEngineFromSQLX(db, options...)

		return engine, func() { _ = db.Close() }, err

	case config.AdapterTypePGX:
		pool, err := pgxpool.NewWithConfig(ctx, config.PostgresPGXPoolConfig(cfg.PostgresDSN))
		if err != nil {
			return postgresengine.BookingEngine{}, func() {}, err
		}

		if cfg.PostgresReplicaDSN == "" {
			engine, buildErr := postgresengine.NewBookingEngineFromPGXPool(pool, options...)

			return engine, pool.Close, buildErr
		}

		replica, err := pgxpool.NewWithConfig(ctx, config.PostgresPGXPoolConfig(cfg.PostgresReplicaDSN))
		if err != nil {
			pool.Close()
			return postgresengine.BookingEngine{}, func() {}, err
		}

		engine, buildErr := postgresengine.NewBookingEngineFromPGXPoolWithReplica(pool, replica, options...)

		return engine, func() { pool.Close(); replica.Close() }, buildErr

	default:
		return postgresengine.BookingEngine{}, func() {}, fmt.Errorf("unsupported DB_ADAPTER: %q", cfg.DBAdapter)
	}
}

// setupObservability configures the global OpenTelemetry tracer and meter
// providers with OTLP HTTP exporters and returns a shutdown function.
func setupObservability(ctx context.Context, cfg config.Config) (func(), error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	)

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)

	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(5*time.Second))),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)

	return func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if shutdownErr := tracerProvider.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Warn().Err(shutdownErr).Msg("tracer provider shutdown failed")
		}

		if shutdownErr := meterProvider.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Warn().Err(shutdownErr).Msg("meter provider shutdown failed")
		}
	}, nil
}

func must(err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
