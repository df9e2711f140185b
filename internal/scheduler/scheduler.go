// Package scheduler re-runs collection on a cron spec, pulling the
// trailing window so a long-lived collector stays current.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/glowpull/glowpull/internal/pipeline"
)

type Scheduler struct {
	ctx    context.Context
	runner *pipeline.Runner
	window time.Duration
	spec   string
	logger logrus.FieldLogger
	cron   *cron.Cron
}

// New builds a Scheduler that collects the trailing window each tick.
func New(ctx context.Context, runner *pipeline.Runner, spec string, window time.Duration, logger logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		ctx:    ctx,
		runner: runner,
		window: window,
		spec:   spec,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start registers the collection job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.collect)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// collect fetches the trailing window and stores it via the runner. The
// runner's dedupe cache keeps overlapping ticks from refetching windows
// already written.
func (s *Scheduler) collect() {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	end := time.Now()
	start := end.Add(-s.window)

	result, err := s.runner.Run(ctx, start, end)
	if err != nil {
		s.logger.WithError(err).Error("scheduled collection failed")
		return
	}
	if result.Failed() {
		s.logger.WithField("failures", len(result.Failures)).Error("scheduled collection produced no points")
	}
}

// Stop halts the cron loop. Running jobs finish on their own context.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
