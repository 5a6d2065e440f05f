// Package workerpool runs a fixed number of goroutines that drain
// internal/queue and dispatch each job to the matching internal/jobs
// handler, one job fully processed before the next within a given
// worker.
package workerpool

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ecohealth/airflow/internal/jobs"
	"github.com/ecohealth/airflow/internal/metrics"
	"github.com/ecohealth/airflow/internal/queue"
)

// Job type names carried in queue.Job.Type.
const (
	TypeCalculateFlowsForAirport = "calculate_flows_for_airport"
	TypeSimulatePassengers       = "simulate_passengers"
)

// pollTimeout bounds each BRPOP so workers notice context cancellation
// promptly instead of blocking indefinitely.
const pollTimeout = 5 * time.Second

// Pool runs Count worker goroutines against a shared broker and
// Handlers. Handlers themselves hold only immutable shared state (the
// calculator's airport table, distance matrix, and flows), so one
// Handlers value is safe to share across every worker.
type Pool struct {
	Broker   *queue.Broker
	Handlers *jobs.Handlers
	Count    int
	Metrics  *metrics.MetricsCollector
}

// Run starts Count workers and blocks until ctx is cancelled, then waits
// for in-flight jobs to finish before returning.
func (p *Pool) Run(ctx context.Context) {
	count := p.Count
	if count <= 0 {
		count = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := p.Broker.Dequeue(ctx, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("worker %d: dequeue error: %v", id, err)
			continue
		}
		if job == nil {
			continue
		}

		start := time.Now()
		err = p.dispatch(ctx, *job)
		duration := time.Since(start)

		if p.Metrics != nil {
			p.Metrics.ObserveHistogram("job_duration_ms_"+job.Type, float64(duration.Milliseconds()))
			if err != nil {
				p.Metrics.IncrementCounter("job_errors_"+job.Type, 1)
			} else {
				p.Metrics.IncrementCounter("jobs_completed_"+job.Type, 1)
			}
		}
		if err != nil {
			log.Printf("worker %d: job %s failed: %v", id, job.Type, err)
		}
	}
}

func (p *Pool) dispatch(ctx context.Context, job queue.Job) error {
	switch job.Type {
	case TypeCalculateFlowsForAirport:
		var task jobs.CalculateFlowsForAirportTask
		if err := json.Unmarshal(job.Payload, &task); err != nil {
			return fmt.Errorf("decode %s payload: %w", job.Type, err)
		}
		_, err := p.Handlers.CalculateFlowsForAirport(ctx, task)
		return err

	case TypeSimulatePassengers:
		var task jobs.SimulatePassengersTask
		if err := json.Unmarshal(job.Payload, &task); err != nil {
			return fmt.Errorf("decode %s payload: %w", job.Type, err)
		}
		return p.Handlers.SimulatePassengers(ctx, task)

	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}
