// Package reaper periodically deletes archives that were never downloaded.
package reaper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-optimizer/internal/model"
)

// store is the part of the artifact store the reaper needs.
type store interface {
	List(ctx context.Context) ([]model.Artifact, error)
	Delete(ctx context.Context, name string) error
}

// publisher receives an event for every reaped archive.
type publisher interface {
	Publish(ev model.Event)
}

// counter is incremented once per reaped archive and once per failed sweep.
type counter interface {
	Inc()
}

// Reaper sweeps the store on a fixed interval. It never locks the store:
// a concurrent download deleting the same archive is harmless because
// store deletes are idempotent.
type Reaper struct {
	store     store
	publisher publisher
	reaped    counter
	failures  counter
	interval  time.Duration
	grace     time.Duration
	now       func() time.Time
}

// Option customizes a Reaper.
type Option func(*Reaper)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reaper) { r.now = now }
}

// WithMetrics counts reaped archives and failed sweeps.
func WithMetrics(reaped, failures counter) Option {
	return func(r *Reaper) {
		r.reaped = reaped
		r.failures = failures
	}
}

// New creates a Reaper that runs every interval and deletes archives older than grace.
func New(s store, p publisher, interval, grace time.Duration, opts ...Option) *Reaper {
	r := &Reaper{
		store:     s,
		publisher: p,
		interval:  interval,
		grace:     grace,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Sweep deletes every archive whose age at the start of the sweep exceeds the
// grace window. It returns the number of archives deleted.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	start := r.now()

	artifacts, err := r.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep: failed to list archives: %w", err)
	}

	deleted := 0
	for _, a := range artifacts {
		if start.Sub(a.CreatedAt) <= r.grace {
			continue
		}

		if err := ctx.Err(); err != nil {
			return deleted, err
		}

		// A download may have removed it since List; Delete treats that as success.
		if err := r.store.Delete(ctx, a.Name); err != nil {
			return deleted, fmt.Errorf("sweep: failed to delete %s: %w", a.Name, err)
		}
		deleted++

		if r.reaped != nil {
			r.reaped.Inc()
		}
		r.publisher.Publish(model.Event{
			Type: model.EventArchiveReaped,
			Name: a.Name,
			Size: a.Size,
			At:   start,
		})

		zlog.Logger.Info().
			Str("archive", a.Name).
			Dur("age", start.Sub(a.CreatedAt)).
			Msg("removed archive that was not downloaded in time")
	}

	return deleted, nil
}

// Run sweeps on every tick until ctx is canceled. A failed sweep is logged and
// the schedule continues.
func (r *Reaper) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	zlog.Logger.Info().
		Dur("interval", r.interval).
		Dur("grace", r.grace).
		Msg("starting reaper")

	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("shutdown signal received, stopping reaper")
			return
		case <-ticker.C:
			zlog.Logger.Debug().Msg("sweep started")

			n, err := r.Sweep(ctx)
			if err != nil {
				if r.failures != nil {
					r.failures.Inc()
				}
				zlog.Logger.Err(err).Msg("sweep failed")
				continue
			}

			zlog.Logger.Debug().Int("deleted", n).Msg("sweep finished")
		}
	}
}
