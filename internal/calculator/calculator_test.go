package calculator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecohealth/airflow/internal/flows"
	"github.com/ecohealth/airflow/internal/geo"
)

func testCalculator(flow flows.PassengerFlow) *Calculator {
	matrix := geo.NewMatrix(map[string]geo.Coordinate{
		"A": {Longitude: 0, Latitude: 0},
		"B": {Longitude: 1, Latitude: 1},
		"C": {Longitude: 2, Latitude: 2},
	})
	return New(matrix, nil, flow, false)
}

// testCalculatorWithCodes builds a calculator over airports on a
// straight line, in the given order, so CheckLogicalLayovers never
// prunes a hop along that line.
func testCalculatorWithCodes(flow flows.PassengerFlow, codes ...string) *Calculator {
	coords := make(map[string]geo.Coordinate, len(codes))
	for i, code := range codes {
		coords[code] = geo.Coordinate{Longitude: float64(i), Latitude: float64(i)}
	}
	matrix := geo.NewMatrix(coords)
	return New(matrix, nil, flow, false)
}

func TestCalculateFlowConservation(t *testing.T) {
	flow := flows.PassengerFlow{
		"A": {"B": 200, "C": 50},
		"B": {"C": 80},
		"C": {"A": 10},
	}
	c := testCalculator(flow)

	stats, err := c.Calculate(context.Background(), "A", 500, time.Time{}, time.Time{}, 1)
	require.NoError(t, err)

	total := 0.0
	for _, s := range stats {
		total += s.TerminalFlow
	}
	assert.Greater(t, total, 0.0)
	assert.LessOrEqual(t, total, 1.0001, "sum of terminal flows should be in (0, 1]")
}

func TestCalculateNoOutgoingFlowYieldsEmptyMap(t *testing.T) {
	flow := flows.PassengerFlow{}
	c := testCalculator(flow)

	stats, err := c.Calculate(context.Background(), "Z", 100, time.Time{}, time.Time{}, 1)
	require.NoError(t, err)
	assert.Empty(t, stats, "expected empty stats for origin with no outgoing flow")
}

func TestCalculateDeterministicUnderFixedSeed(t *testing.T) {
	flow := flows.PassengerFlow{
		"A": {"B": 200, "C": 50},
		"B": {"C": 80},
		"C": {"A": 10},
	}

	run := func() map[string]DestinationStats {
		c := testCalculator(flow)
		stats, err := c.Calculate(context.Background(), "A", 200, time.Time{}, time.Time{}, 99)
		require.NoError(t, err)
		return stats
	}

	first := run()
	second := run()
	assert.Equal(t, first, second, "results should be identical across runs with the same seed")
}

func TestSampleItinerariesNoProductiveItinerariesError(t *testing.T) {
	flow := flows.PassengerFlow{}
	c := testCalculator(flow)

	_, err := c.SampleItineraries(context.Background(), "Z", 50, time.Time{}, time.Time{}, 1)
	assert.ErrorIs(t, err, ErrNoProductiveItineraries)
}

// TestS1LinearTopologyTerminalFlow is scenario S1: a linear topology
// X->Y->Z with only flight X->Y, origin X. With a single outgoing
// candidate at every node the walk has nowhere else to go, so every
// sample lands at Y with no itinerary ever reaching back to X.
func TestS1LinearTopologyTerminalFlow(t *testing.T) {
	flow := flows.PassengerFlow{"X": {"Y": 100}}
	c := testCalculatorWithCodes(flow, "X", "Y", "Z")

	stats, err := c.Calculate(context.Background(), "X", 1000, time.Time{}, time.Time{}, 7)
	require.NoError(t, err)

	require.Len(t, stats, 1, "only Y should ever appear as a terminal")
	assert.InDelta(t, 1.0, stats["Y"].TerminalFlow, 1e-9)
	_, originAppears := stats["X"]
	assert.False(t, originAppears, "origin should never be its own terminal")
}

// TestS2TriangleTopologyFlowSumsToOne is scenario S2: a triangle
// X->Y->Z with origin X has every sample terminate at Y or Z, so the
// two terminal flows sum to 1.
func TestS2TriangleTopologyFlowSumsToOne(t *testing.T) {
	flow := flows.PassengerFlow{
		"X": {"Y": 100},
		"Y": {"Z": 100},
	}
	c := testCalculatorWithCodes(flow, "X", "Y", "Z")

	stats, err := c.Calculate(context.Background(), "X", 2000, time.Time{}, time.Time{}, 7)
	require.NoError(t, err)

	total := stats["Y"].TerminalFlow + stats["Z"].TerminalFlow
	assert.InDelta(t, 1.0, total, 1e-9)
}

// TestS5ZeroOutgoingFlowJobFails is scenario S5: an origin with no
// outgoing flow fails a passenger-simulation job with
// ErrNoProductiveItineraries rather than returning an empty result.
func TestS5ZeroOutgoingFlowJobFails(t *testing.T) {
	flow := flows.PassengerFlow{}
	c := testCalculator(flow)

	_, err := c.SampleItineraries(context.Background(), "Z", 50, time.Time{}, time.Time{}, 1)
	assert.ErrorIs(t, err, ErrNoProductiveItineraries)
}

// TestS6DeterministicUnderFixedSeed is scenario S6: re-running
// calculate with N=2000 and the same seed reproduces an identical
// aggregate mapping.
func TestS6DeterministicUnderFixedSeed(t *testing.T) {
	flow := flows.PassengerFlow{
		"A": {"B": 200, "C": 50},
		"B": {"C": 80},
		"C": {"A": 10},
	}

	run := func() map[string]DestinationStats {
		c := testCalculator(flow)
		stats, err := c.Calculate(context.Background(), "A", 2000, time.Time{}, time.Time{}, 42)
		require.NoError(t, err)
		return stats
	}

	assert.Equal(t, run(), run())
}
