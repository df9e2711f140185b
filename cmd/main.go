package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/glowpull/glowpull/internal/auth"
	"github.com/glowpull/glowpull/internal/config"
	"github.com/glowpull/glowpull/internal/glowmarkt"
	"github.com/glowpull/glowpull/internal/metrics"
	"github.com/glowpull/glowpull/internal/pipeline"
	"github.com/glowpull/glowpull/internal/scheduler"
	"github.com/glowpull/glowpull/internal/sink"
)

// Command glowpull pulls smart-meter readings from the Bright/Glowmarkt
// API and writes them to a time-series database.
//
// Usage:
//
//	glowpull [flags] [start-date [end-date]]
//
// Dates accept "2006-01-02" (local midnight) or an RFC 3339 datetime, and
// must be given both or not at all; with neither, the trailing maximum
// window ending now is collected.
//
// The flags are:
//
//	-config string
//	      path to config file (default "config.yaml")
//
// Exit status is non-zero for fatal errors (configuration, auth, entity
// listing, invalid range) and for runs that produced zero points while at
// least one fetch failed. A completed run with partial failures exits 0.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	start, end, err := parseDateArgs(flag.Args(), cfg.Glowmarkt.MaxSpanDays)
	if err != nil {
		logger.Fatalf("Invalid arguments: %v", err)
	}

	metrics.Register()
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(cfg.Metrics.Addr); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Warn("metrics listener stopped")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel, logger)

	var clientOpts []glowmarkt.Option
	if cfg.Glowmarkt.ApplicationID != "" {
		clientOpts = append(clientOpts, glowmarkt.WithApplicationID(cfg.Glowmarkt.ApplicationID))
	}
	if cfg.Glowmarkt.TimeoutSeconds > 0 {
		clientOpts = append(clientOpts, glowmarkt.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Glowmarkt.TimeoutSeconds) * time.Second,
		}))
	}
	client := glowmarkt.NewClient(cfg.Glowmarkt.URL, clientOpts...)

	manager := auth.NewManager(
		client,
		auth.FileStore{},
		auth.Credentials{Username: cfg.Glowmarkt.Username, Password: cfg.Glowmarkt.Password},
		cfg.Glowmarkt.TokenCacheFile,
		logger,
	)

	// Token must be in hand before any fetch starts.
	token, err := manager.Obtain(ctx)
	if err != nil {
		logger.Fatalf("Authentication failed: %v", err)
	}
	client.SetToken(token.Value)

	writer, err := buildSinks(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to connect sink: %v", err)
	}
	defer writer.Close()

	runner, err := pipeline.NewRunner(client, writer, pipeline.Options{
		Period:      cfg.Glowmarkt.Period,
		Function:    cfg.Glowmarkt.Function,
		MaxSpanDays: cfg.Glowmarkt.MaxSpanDays,
		Workers:     cfg.Pipeline.Workers,
		RateLimit:   cfg.Pipeline.RateLimit,
		RateBurst:   cfg.Pipeline.RateLimitBurst,
		DedupeSize:  cfg.Pipeline.DedupeSize,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to build pipeline: %v", err)
	}

	result, err := runner.Run(ctx, start, end)
	if err != nil {
		logger.Fatalf("Collection run failed: %v", err)
	}
	for _, f := range result.Failures {
		logger.WithFields(logrus.Fields{
			"resource": f.ResourceID,
			"window":   f.Window.String(),
		}).WithError(f.Err).Warn("fetch failed during run")
	}
	writer.Flush()

	if result.Failed() {
		logger.Error("Run produced no points and had failures")
		os.Exit(1)
	}

	if !cfg.Schedule.Enabled {
		return
	}

	sched := scheduler.New(ctx, runner,
		cfg.Schedule.Spec,
		time.Duration(cfg.Schedule.WindowMinutes)*time.Minute,
		logger,
	)
	if err := sched.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}
	logger.WithField("spec", cfg.Schedule.Spec).Info("Scheduler started")

	<-ctx.Done()
	sched.Stop()
	writer.Flush()
	logger.Info("Shutdown complete")
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	return logger
}

func handleSignals(cancel context.CancelFunc, logger *logrus.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Printf("Received signal %v, initiating shutdown", sig)
	cancel()
}

func buildSinks(cfg *config.Config, logger *logrus.Logger) (sink.Writer, error) {
	var writers sink.Multi
	if cfg.Influx.Enabled {
		s, err := sink.ConnectInflux(cfg.Influx)
		if err != nil {
			return nil, err
		}
		logger.WithField("url", cfg.Influx.URL).Info("Connected to InfluxDB")
		writers = append(writers, s)
	}
	if cfg.Timescale.Enabled {
		s, err := sink.ConnectTimescale(cfg.Timescale)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to TimescaleDB")
		writers = append(writers, s)
	}
	if len(writers) == 1 {
		return writers[0], nil
	}
	return writers, nil
}

// parseDateArgs interprets the positional start/end arguments. Both or
// neither must be present; with neither, the trailing maxSpanDays window
// ending now is used.
func parseDateArgs(args []string, maxSpanDays int) (time.Time, time.Time, error) {
	switch len(args) {
	case 0:
		end := time.Now()
		return end.Add(-time.Duration(maxSpanDays) * 24 * time.Hour), end, nil
	case 2:
		start, err := parseDate(args[0])
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start date %q: %w", args[0], err)
		}
		end, err := parseDate(args[1])
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end date %q: %w", args[1], err)
		}
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("expected both start and end dates, got %d argument(s)", len(args))
	}
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", value, time.Local); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", value, time.Local)
}
