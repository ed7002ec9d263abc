package simulation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/onnwee/tripletree/internal/force"
	"github.com/onnwee/tripletree/internal/logger"
)

// Job periodically picks up queued runs from the store and executes them.
// The API submits runs asynchronously; this is what drains the queue,
// including runs left behind by a restart.
type Job struct {
	service  *Service
	interval time.Duration
}

func NewJob(service *Service, interval time.Duration) *Job {
	return &Job{service: service, interval: interval}
}

func (j *Job) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.drain(ctx)
		}
	}
}

func (j *Job) drain(ctx context.Context) {
	log := logger.WithComponent("simulation.job")
	if j.service.store == nil {
		return
	}
	runs, err := j.service.store.QueuedRuns(ctx)
	if err != nil {
		log.Error("failed to list queued runs", "error", err)
		return
	}
	for _, run := range runs {
		var points force.Points
		if err := json.Unmarshal(run.Points, &points); err != nil {
			log.Error("failed to decode run points", "run_id", run.ID, "error", err)
			_ = j.service.store.MarkFailed(ctx, run.ID, "corrupt point data")
			continue
		}
		var params Params
		if len(run.Params) > 0 {
			if err := json.Unmarshal(run.Params, &params); err != nil {
				log.Error("failed to decode run params", "run_id", run.ID, "error", err)
				_ = j.service.store.MarkFailed(ctx, run.ID, "corrupt parameters")
				continue
			}
		}
		if err := j.service.Run(ctx, run.ID, points, params); err != nil {
			log.Error("run failed", "run_id", run.ID, "error", err)
		}
	}
}
