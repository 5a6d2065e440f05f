package sampler

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatedSampleTerminates(t *testing.T) {
	flow := map[string]map[string]float64{
		"A": {"B": 100},
		"B": {"A": 100, "C": 50},
		"C": {"A": 10},
	}
	enum := &Aggregated{PassengerFlow: flow}
	rng := rand.New(rand.NewSource(1))

	itin, err := Sample(context.Background(), rng, "A", time.Time{}, enum, nil)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(itin), 1, "expected at least the origin airport")
	assert.LessOrEqual(t, len(itin)-1, MaxLegs, "itinerary exceeded MaxLegs")
	assert.Equal(t, "A", itin[0], "itinerary must start at origin")
}

func TestAggregatedSampleDeterministicUnderFixedSeed(t *testing.T) {
	flow := map[string]map[string]float64{
		"A": {"B": 100, "C": 40, "D": 10},
		"B": {"A": 80, "C": 20},
		"C": {"A": 15, "D": 5},
		"D": {"A": 5},
	}
	run := func() []string {
		enum := &Aggregated{PassengerFlow: flow}
		rng := rand.New(rand.NewSource(42))
		itin, err := Sample(context.Background(), rng, "A", time.Time{}, enum, nil)
		require.NoError(t, err)
		return itin
	}

	first := run()
	second := run()
	assert.Equal(t, first, second, "itineraries should be identical across runs with the same seed")
}

func TestAggregatedNoOutgoingFlowStopsAtOrigin(t *testing.T) {
	flow := map[string]map[string]float64{"A": {}}
	enum := &Aggregated{PassengerFlow: flow}
	rng := rand.New(rand.NewSource(7))

	itin, err := Sample(context.Background(), rng, "A", time.Time{}, enum, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, itin, "expected itinerary to stop at origin")
}

func TestAggregatedStrictIndexingChangesOngoingIndex(t *testing.T) {
	lenient := &Aggregated{StrictIndexing: false}
	strict := &Aggregated{StrictIndexing: true}

	assert.Equal(t, 4, lenient.OngoingIndex(5), "default StrictIndexing=false should use k-1")
	assert.Equal(t, 5, strict.OngoingIndex(5), "StrictIndexing=true should use k")
	assert.Equal(t, 5, lenient.TerminalIndex(5))
	assert.Equal(t, 5, strict.TerminalIndex(5), "TerminalIndex should always be k regardless of StrictIndexing")
}

func TestLegProbabilityDistributionSumsToOne(t *testing.T) {
	total := 0.0
	for _, p := range LegProbabilityDistribution {
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-3, "leg probability distribution should sum to ~1")
}
