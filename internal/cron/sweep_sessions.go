package cron

import (
	"context"
	"fmt"
	"time"
)

const sessionSweepJobName = "sweep_sessions"

// Sweepable is a per-session in-memory store that can drop idle entries.
type Sweepable interface {
	Sweep(maxIdle time.Duration) int
	Len() int
}

type storeGauge interface {
	SetStores(kind string, n int)
}

// SessionSweepParams configure the idle session sweeper.
type SessionSweepParams struct {
	Targets map[string]Sweepable
	MaxIdle time.Duration
	Gauge   storeGauge
}

type sessionSweepJob struct {
	targets map[string]Sweepable
	maxIdle time.Duration
	gauge   storeGauge
}

// NewSessionSweepJob evicts in-process session state that has not been
// touched for MaxIdle. Persisted carts survive and rehydrate on next access.
func NewSessionSweepJob(params SessionSweepParams) (Job, error) {
	if len(params.Targets) == 0 {
		return nil, fmt.Errorf("at least one sweep target required")
	}
	if params.MaxIdle <= 0 {
		return nil, fmt.Errorf("max idle must be positive")
	}
	targets := make(map[string]Sweepable, len(params.Targets))
	for kind, target := range params.Targets {
		if target == nil {
			continue
		}
		targets[kind] = target
	}
	return &sessionSweepJob{targets: targets, maxIdle: params.MaxIdle, gauge: params.Gauge}, nil
}

func (j *sessionSweepJob) Name() string { return sessionSweepJobName }

func (j *sessionSweepJob) Run(ctx context.Context) error {
	for kind, target := range j.targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		target.Sweep(j.maxIdle)
		if j.gauge != nil {
			j.gauge.SetStores(kind, target.Len())
		}
	}
	return nil
}
