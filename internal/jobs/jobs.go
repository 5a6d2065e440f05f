// Package jobs implements the two calculation task handlers and the
// completion callback, mirroring the original calculate_flows_for_airport
// / simulate_passengers / callback task trio.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ecohealth/airflow/internal/calculator"
	"github.com/ecohealth/airflow/internal/cache"
	"github.com/ecohealth/airflow/internal/resultstore"
)

// DefaultSimulatedPassengers is the sample count used when a task
// doesn't specify its own.
const DefaultSimulatedPassengers = 10000

// CalculateFlowsForAirportTask refreshes an origin airport's aggregate
// passenger-flow rows for one simulation group.
type CalculateFlowsForAirportTask struct {
	Origin    string    `json:"origin"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	SimGroup  string    `json:"sim_group"`
}

// SimulatePassengersTask samples N itineraries from an origin and
// persists them under a simulation ID, optionally notifying an e-mail
// address on completion.
type SimulatePassengersTask struct {
	SimulationID string    `json:"simulation_id"`
	Origin       string    `json:"origin"`
	N            int       `json:"n"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	NotifyEmail  string    `json:"notify_email,omitempty"`
}

// Handlers wires the flow calculator and result store into task
// executions. One Handlers is shared by every worker goroutine; it
// holds no mutable state of its own.
type Handlers struct {
	Calculator      *calculator.Calculator
	Store           *resultstore.Store
	DirectSeatTotal func(origin string) int
	Notifier        *Notifier
	// FlowCache, when set, memoises CalculateFlowsForAirport results per
	// (origin, sim_group) so a duplicate request arriving before the TTL
	// expires skips the Monte Carlo rerun entirely.
	FlowCache *cache.CacheManager
}

// CalculateFlowsForAirport runs the aggregate flow calculation and
// replaces the origin's passenger_flows rows for this sim group. An
// origin with no productive itineraries is not an error: it simply
// clears any prior rows.
func (h *Handlers) CalculateFlowsForAirport(ctx context.Context, task CalculateFlowsForAirportTask) (int, error) {
	if h.FlowCache != nil {
		var cached map[string]calculator.DestinationStats
		if err := h.FlowCache.GetFlowStats(ctx, task.Origin, task.SimGroup, &cached); err == nil {
			log.Printf("flow stats cache hit for %s/%s", task.Origin, task.SimGroup)
			return len(cached), nil
		}
	}

	stats, err := h.Calculator.Calculate(ctx, task.Origin, DefaultSimulatedPassengers, task.StartDate, task.EndDate, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("calculate flows for %s: %w", task.Origin, err)
	}

	if len(stats) == 0 {
		log.Printf("no flights from: %s", task.Origin)
		return 0, h.Store.SaveFlows(ctx, task.Origin, task.SimGroup, nil)
	}

	totalSeats := float64(h.DirectSeatTotal(task.Origin))
	rows := resultstore.FlowRowsFromStats(task.Origin, stats, totalSeats, task.StartDate, task.EndDate, task.SimGroup, time.Now())

	if err := h.Store.SaveFlows(ctx, task.Origin, task.SimGroup, rows); err != nil {
		return 0, err
	}

	if h.FlowCache != nil {
		if err := h.FlowCache.CacheFlowStats(ctx, task.Origin, task.SimGroup, stats); err != nil {
			log.Printf("flow stats cache write failed for %s/%s: %v", task.Origin, task.SimGroup, err)
		}
	}
	return len(rows), nil
}

// SimulatePassengers samples task.N itineraries from the origin and
// persists them under task.SimulationID. It fails the task when no
// itinerary could be generated, matching the original's hard failure on
// an empty result, then fires the completion callback.
func (h *Handlers) SimulatePassengers(ctx context.Context, task SimulatePassengersTask) error {
	n := task.N
	if n <= 0 {
		n = DefaultSimulatedPassengers
	}

	itineraries, err := h.Calculator.SampleItineraries(ctx, task.Origin, n, task.StartDate, task.EndDate, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("simulate passengers for %s: %w", task.Origin, err)
	}

	if err := h.Store.SaveItineraries(ctx, task.SimulationID, itineraries); err != nil {
		return err
	}

	if h.Notifier != nil && task.NotifyEmail != "" {
		if err := h.Notifier.NotifyCompletion(ctx, task.NotifyEmail, task.SimulationID, itineraries); err != nil {
			log.Printf("simulation %s: completion notice failed: %v", task.SimulationID, err)
		}
	}
	return nil
}

