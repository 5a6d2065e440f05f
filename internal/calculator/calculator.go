// Package calculator is the flow calculator facade: it drives N
// itinerary samples and aggregates them into terminal-flow statistics.
package calculator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ecohealth/airflow/internal/flightcache"
	"github.com/ecohealth/airflow/internal/flows"
	"github.com/ecohealth/airflow/internal/geo"
	"github.com/ecohealth/airflow/internal/sampler"
	"github.com/ecohealth/airflow/pkg/observability"
)

// ErrNoProductiveItineraries is returned when every sample in a run was
// unproductive (origin only). The passenger-simulation job promotes
// this to a fatal job error, while the airport flow job treats it as
// not an error and returns an empty mapping.
var ErrNoProductiveItineraries = errors.New("calculator: no productive itineraries generated")

// DestinationStats is one entry of Calculate's result mapping.
type DestinationStats struct {
	TerminalFlow    float64
	AverageLegs     float64
	AverageDistance float64
}

// Calculator is built once per worker (or shared, if immutable) from
// data loaded at construction time and never mutated afterward.
type Calculator struct {
	Matrix        *geo.Matrix
	Cache         *flightcache.Cache
	PassengerFlow flows.PassengerFlow

	// UseSchedules selects the scheduled-mode enumerator when true, and
	// the aggregated-mode enumerator (over PassengerFlow) when false —
	// the dual scheduled/aggregated simulation mode.
	UseSchedules bool
	// UseLayoverChecking enables the geographic layover filter. Disabling it
	// is only useful for tests that want to observe raw enumeration.
	UseLayoverChecking bool
	// StrictIndexing is forwarded to the aggregated enumerator; see
	// sampler.Aggregated.
	StrictIndexing bool

	tracer oteltrace.Tracer
}

// New builds a Calculator over immutable shared state. cache may be nil
// if UseSchedules will always be false; passengerFlow may be nil if it
// will always be true.
func New(matrix *geo.Matrix, cache *flightcache.Cache, passengerFlow flows.PassengerFlow, useSchedules bool) *Calculator {
	return &Calculator{
		Matrix:             matrix,
		Cache:              cache,
		PassengerFlow:      passengerFlow,
		UseSchedules:       useSchedules,
		UseLayoverChecking: true,
		tracer:             observability.GetTracer("calculator"),
	}
}

func (c *Calculator) enumerator() sampler.Enumerator {
	if c.UseSchedules {
		return &sampler.Scheduled{Cache: c.Cache}
	}
	return &sampler.Aggregated{PassengerFlow: c.PassengerFlow, StrictIndexing: c.StrictIndexing}
}

func (c *Calculator) layoverFilter() *geo.Matrix {
	if c.UseLayoverChecking {
		return c.Matrix
	}
	return nil
}

// sampleOne draws a single itinerary, choosing the initial arrival
// instant per mode (a uniform draw in scheduled mode; zero value,
// ignored, in aggregated mode).
func (c *Calculator) sampleOne(ctx context.Context, rng *rand.Rand, origin string, start, end time.Time) ([]string, error) {
	enum := c.enumerator()
	filter := c.layoverFilter()

	var initial time.Time
	if c.UseSchedules {
		initial = sampler.UniformArrival(rng, start, end)
	}
	return sampler.Sample(ctx, rng, origin, initial, enum, filter)
}

// hasOutgoingFlow reports whether origin has any outgoing flow; in
// aggregated mode, an origin with no entries in PassengerFlow
// short-circuits to empty.
func (c *Calculator) hasOutgoingFlow(origin string) bool {
	if c.UseSchedules {
		return true
	}
	return len(c.PassengerFlow[origin]) > 0
}

// runSamples draws productive itineraries from origin until either n
// have been collected or the consecutive-unproductive bail-out fires.
// seed makes the run reproducible.
func (c *Calculator) runSamples(ctx context.Context, origin string, n int, start, end time.Time, seed int64) ([][]string, error) {
	if !c.hasOutgoingFlow(origin) {
		return nil, nil
	}

	rng := rand.New(rand.NewSource(seed))
	itineraries := make([][]string, 0, n)
	unproductive := 0

	for len(itineraries) < n {
		if err := ctx.Err(); err != nil {
			return itineraries, fmt.Errorf("calculator: cancelled: %w", err)
		}

		itin, err := c.sampleOne(ctx, rng, origin, start, end)
		if err != nil {
			return nil, fmt.Errorf("sample itinerary: %w", err)
		}

		if len(itin) >= 2 {
			unproductive = 0
			itineraries = append(itineraries, itin)
			continue
		}

		unproductive++
		if unproductive >= n {
			break
		}
	}
	return itineraries, nil
}

// SampleItineraries runs the bare Monte Carlo loop and returns the raw
// itineraries, as the passenger-simulation job needs. It raises
// ErrNoProductiveItineraries when nothing productive was generated.
func (c *Calculator) SampleItineraries(ctx context.Context, origin string, n int, start, end time.Time, seed int64) ([][]string, error) {
	itineraries, err := c.runSamples(ctx, origin, n, start, end, seed)
	if err != nil {
		return nil, err
	}
	if len(itineraries) == 0 {
		return nil, ErrNoProductiveItineraries
	}
	return itineraries, nil
}

// Calculate samples n itineraries from origin between start and end,
// and returns per-destination terminal-flow statistics. A missing or
// flight-less origin is not an error; it yields an empty mapping.
func (c *Calculator) Calculate(ctx context.Context, origin string, n int, start, end time.Time, seed int64) (map[string]DestinationStats, error) {
	ctx, span := c.tracer.Start(ctx, "calculator.calculate")
	defer span.End()
	span.SetAttributes(
		attribute.String("origin", origin),
		attribute.Int("n", n),
	)

	itineraries, err := c.runSamples(ctx, origin, n, start, end, seed)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	terminalCount := map[string]int{}
	distanceSum := map[string]float64{}
	legSum := map[string]int{}

	for _, itin := range itineraries {
		terminal := itin[len(itin)-1]
		terminalCount[terminal]++
		distanceSum[terminal] += c.Matrix.ItineraryDistance(itin)
		legSum[terminal] += len(itin) - 1
	}

	result := make(map[string]DestinationStats, len(terminalCount))
	for airport, count := range terminalCount {
		result[airport] = DestinationStats{
			TerminalFlow:    float64(count) / float64(n),
			AverageLegs:     float64(legSum[airport]) / float64(count),
			AverageDistance: distanceSum[airport] / float64(count),
		}
	}
	span.SetAttributes(attribute.Int("destinations.count", len(result)))
	return result, nil
}
