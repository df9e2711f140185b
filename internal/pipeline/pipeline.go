// Package pipeline orchestrates one collection run: list entities, batch
// the requested range, fetch readings per (resource, batch), transform
// them, and write the points to the sink.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/glowpull/glowpull/internal/batch"
	"github.com/glowpull/glowpull/internal/glowmarkt"
	"github.com/glowpull/glowpull/internal/metrics"
	"github.com/glowpull/glowpull/internal/sink"
)

// API is the slice of the upstream client the pipeline needs.
type API interface {
	ListEntities(ctx context.Context) ([]glowmarkt.Entity, error)
	GetReadings(ctx context.Context, resourceID string, from, to time.Time, period, function string) (*glowmarkt.Reading, error)
}

// Options tune a Runner.
type Options struct {
	Period      string  // sampling interval, e.g. "PT30M"
	Function    string  // aggregation mode, e.g. "sum"
	MaxSpanDays int     // widest window the upstream accepts
	Workers     int     // fixed concurrency cap for fetches
	RateLimit   float64 // upstream requests per second
	RateBurst   int
	DedupeSize  int // LRU size for already-fetched windows
}

// Failure records one (resource, batch) pair that produced no points.
type Failure struct {
	ResourceID string
	Window     batch.Range
	Err        error
}

func (f Failure) Error() string {
	return fmt.Sprintf("resource %s window %s: %v", f.ResourceID, f.Window, f.Err)
}

// Result summarizes a run. Failures never abort the run; they are
// collected here alongside the successes.
type Result struct {
	Entities      int
	Resources     int
	Fetched       int
	Skipped       int
	PointsWritten int
	Failures      []Failure
}

// Failed reports whether the run should exit non-zero: only when zero
// points were produced and at least one fetch failed. Partial failure
// with some data written is a successful run.
func (r *Result) Failed() bool {
	return r.PointsWritten == 0 && len(r.Failures) > 0
}

// Runner executes collection runs against one API client and sink.
type Runner struct {
	api     API
	sink    sink.Writer
	opts    Options
	limiter *rate.Limiter
	seen    *lru.Cache // windows already fetched, keyed by resource+range
	logger  logrus.FieldLogger
}

// NewRunner builds a Runner. The dedupe cache spans runs, so a scheduled
// collector never refetches a window it already stored.
func NewRunner(api API, w sink.Writer, opts Options, logger logrus.FieldLogger) (*Runner, error) {
	if opts.Workers <= 0 {
		return nil, fmt.Errorf("pipeline: workers must be positive, got %d", opts.Workers)
	}
	size := opts.DedupeSize
	if size <= 0 {
		size = 1000
	}
	seen, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("pipeline: dedupe cache: %w", err)
	}

	limit := rate.Limit(opts.RateLimit)
	if opts.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Runner{
		api:     api,
		sink:    w,
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
		seen:    seen,
		logger:  logger,
	}, nil
}

type job struct {
	resourceID string
	window     batch.Range
}

// Run collects readings for every resource over [start, end).
//
// The range is validated and split before any network activity. Fetches
// run on a bounded worker pool behind a shared rate limiter; a failing
// (resource, batch) pair is logged and recorded without stopping the
// others. On cancellation, in-flight fetches abort and whatever points
// were already handed to the sink stay written (best-effort, no rollback).
// A non-nil error is returned only for fatal conditions: invalid range,
// entity listing failure, or cancellation.
func (r *Runner) Run(ctx context.Context, start, end time.Time) (*Result, error) {
	windows, err := batch.Split(start, end, r.opts.MaxSpanDays)
	if err != nil {
		return nil, err
	}

	logger := r.logger.WithField("run_id", uuid.NewString())
	logger.WithFields(logrus.Fields{
		"start":   start.Format(time.RFC3339),
		"end":     end.Format(time.RFC3339),
		"batches": len(windows),
	}).Info("starting collection run")

	entities, err := r.api.ListEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list entities: %w", err)
	}

	result := &Result{Entities: len(entities)}

	var jobs []job
	for _, entity := range entities {
		result.Resources += len(entity.Resources)
		for _, res := range entity.Resources {
			for _, w := range windows {
				jobs = append(jobs, job{resourceID: res.ResourceID, window: w})
			}
		}
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		jobChan = make(chan job)
	)

	workers := r.opts.Workers
	if workers > len(jobs) && len(jobs) > 0 {
		workers = len(jobs)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobChan {
				r.process(ctx, logger, j, result, &mu)
			}
		}()
	}

dispatch:
	for _, j := range jobs {
		select {
		case jobChan <- j:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobChan)
	wg.Wait()

	logger.WithFields(logrus.Fields{
		"entities":  result.Entities,
		"resources": result.Resources,
		"fetched":   result.Fetched,
		"skipped":   result.Skipped,
		"points":    result.PointsWritten,
		"failures":  len(result.Failures),
	}).Info("collection run finished")

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (r *Runner) process(ctx context.Context, logger logrus.FieldLogger, j job, result *Result, mu *sync.Mutex) {
	key := j.resourceID + "|" + j.window.String()
	if r.seen.Contains(key) {
		mu.Lock()
		result.Skipped++
		mu.Unlock()
		return
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return // canceled while queued
	}

	began := time.Now()
	reading, err := r.api.GetReadings(ctx, j.resourceID, j.window.Start, j.window.End, r.opts.Period, r.opts.Function)
	metrics.ObserveFetch(began, err)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"resource": j.resourceID,
			"window":   j.window.String(),
		}).WithError(err).Warn("fetch failed")
		mu.Lock()
		result.Failures = append(result.Failures, Failure{ResourceID: j.resourceID, Window: j.window, Err: err})
		mu.Unlock()
		return
	}

	points := ToPoints(reading)
	if len(points) > 0 {
		if err := r.sink.WritePoints(ctx, points); err != nil {
			logger.WithFields(logrus.Fields{
				"resource": j.resourceID,
				"window":   j.window.String(),
			}).WithError(err).Warn("sink write failed")
			mu.Lock()
			result.Failures = append(result.Failures, Failure{ResourceID: j.resourceID, Window: j.window, Err: err})
			mu.Unlock()
			return
		}
		metrics.PointsWritten.Add(float64(len(points)))
	}

	r.seen.Add(key, struct{}{})
	mu.Lock()
	result.Fetched++
	result.PointsWritten += len(points)
	mu.Unlock()
}
