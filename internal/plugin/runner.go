// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

package plugin

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/framekit/framekit/internal/observability"
)

// Runner drives the three lifecycle phases over a registry. Phases run
// once, in order: preload, init, start.
type Runner struct {
	reg            *Registry
	host           Host
	logger         *slog.Logger
	metrics        *observability.Metrics
	preloadTimeout time.Duration
}

// RunnerOption configures the Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithMetrics enables phase duration metrics.
func WithMetrics(m *observability.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithPreloadTimeout bounds each plugin's preload hook. Zero (the
// default) waits forever, matching the historical contract where a hung
// preload stalls startup. A timed-out plugin is treated as a preload
// failure; its hook goroutine is abandoned.
func WithPreloadTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.preloadTimeout = d }
}

// NewRunner creates a lifecycle runner over a registry.
func NewRunner(reg *Registry, host Host, opts ...RunnerOption) *Runner {
	r := &Runner{
		reg:    reg,
		host:   host,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes preload, init and start. Preload failures are isolated and
// drop only the failing plugin; an init or start failure is fatal and
// aborts the remaining phases.
func (r *Runner) Run(ctx context.Context) error {
	r.preload(ctx)

	if err := r.initPhase(); err != nil {
		return err
	}
	return r.startPhase()
}

// preload launches every preload hook concurrently and waits for all of
// them to settle. Each failure is logged, flagged, and the plugin is
// permanently removed from the registry before init.
func (r *Runner) preload(ctx context.Context) {
	start := time.Now()
	plugins := r.reg.Plugins()

	type failure struct {
		name string
		err  error
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []failure
	)

	launched := 0
	for _, p := range plugins {
		pre, ok := p.(Preloader)
		if !ok {
			// No preload hook: immediately successful.
			continue
		}
		launched++
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := r.preloadOne(ctx, name, pre); err != nil {
				mu.Lock()
				failures = append(failures, failure{name: name, err: err})
				mu.Unlock()
			}
		}(p.Name())
	}
	wg.Wait()

	for _, f := range failures {
		r.logger.Error("plugin preload failed, dropping plugin",
			"plugin", f.name,
			"error", f.err)
		observability.RecordPreloadFailure(f.name)
		r.reg.markPreloadFailed(f.name, f.err)
	}
	r.reg.dropFailed()

	r.observePhase("preload", start)
	r.logger.Info("plugin preload complete",
		"launched", launched,
		"failed", len(failures),
		"remaining", r.reg.Len())
}

// preloadOne runs a single preload hook, converting panics to failures so
// one plugin cannot take down the barrier.
func (r *Runner) preloadOne(ctx context.Context, name string, pre Preloader) error {
	if r.preloadTimeout <= 0 {
		return r.runPreload(ctx, name, pre)
	}

	ctx, cancel := context.WithTimeout(ctx, r.preloadTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- r.runPreload(ctx, name, pre)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return oops.Code("PLUGIN_PRELOAD_TIMEOUT").
			With("plugin", name).
			With("timeout", r.preloadTimeout.String()).
			Wrap(ctx.Err())
	}
}

func (r *Runner) runPreload(ctx context.Context, name string, pre Preloader) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = oops.Code("PLUGIN_PRELOAD_PANIC").
				With("plugin", name).
				Errorf("preload panicked: %v", rec)
		}
	}()
	return pre.Preload(ctx, r.host)
}

func (r *Runner) initPhase() error {
	start := time.Now()
	for _, p := range r.reg.Plugins() {
		in, ok := p.(Initializer)
		if !ok {
			continue
		}
		if err := in.Init(r.host); err != nil {
			return oops.Code("PLUGIN_INIT_FAILED").
				With("plugin", p.Name()).
				Wrap(err)
		}
	}
	r.observePhase("init", start)
	return nil
}

func (r *Runner) startPhase() error {
	start := time.Now()
	for _, p := range r.reg.Plugins() {
		st, ok := p.(Starter)
		if !ok {
			continue
		}
		if err := st.Start(r.host); err != nil {
			return oops.Code("PLUGIN_START_FAILED").
				With("plugin", p.Name()).
				Wrap(err)
		}
	}
	r.observePhase("start", start)
	return nil
}

func (r *Runner) observePhase(phase string, start time.Time) {
	if r.metrics != nil {
		r.metrics.StartupPhaseSeconds.WithLabelValues(phase).Set(time.Since(start).Seconds())
	}
}
