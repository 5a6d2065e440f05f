// Package sampler implements the Monte Carlo itinerary walk: a single
// shared state machine (Sample) parameterised by a hop Enumerator, with
// two concrete enumerators — scheduled and aggregated — in scheduled.go
// and aggregated.go.
package sampler

import (
	"context"
	"math/rand"
	"time"

	"github.com/ecohealth/airflow/internal/geo"
)

// MaxLegs bounds recursion depth; no itinerary ever exceeds MaxLegs+1
// airports.
const MaxLegs = 10

// LegProbabilityDistribution is the fixed per-leg termination
// distribution. Index 0 is carried at probability 0 solely so
// TerminalLegProbabilities[0] is well defined for the aggregated-mode
// off-by-one indexing documented on Aggregated.
var LegProbabilityDistribution = map[int]float64{
	0:  0.0,
	1:  0.6772732,
	2:  0.2997706,
	3:  0.0211374,
	4:  0.0016254,
	5:  0.0001632,
	6:  0.0000215,
	7:  0.0000072,
	8:  0.0000012,
	9:  0.0000002,
	10: 0.0000001,
}

// TerminalLegProbabilities holds the derived conditional termination
// probability T(k) = p(k) / (1 - sum_{n=1}^{k-1} p(n)).
var TerminalLegProbabilities = computeTerminalLegProbabilities()

func computeTerminalLegProbabilities() map[int]float64 {
	result := make(map[int]float64, len(LegProbabilityDistribution))
	for k, pk := range LegProbabilityDistribution {
		prior := 0.0
		for n := 1; n < k; n++ {
			prior += LegProbabilityDistribution[n]
		}
		result[k] = pk / (1.0 - prior)
	}
	return result
}

// SeatsPerPassenger = sum k*p(k) over the leg distribution, used by the
// result-store layer to convert terminal_flow fractions into absolute
// passenger counts.
var SeatsPerPassenger = computeSeatsPerPassenger()

func computeSeatsPerPassenger() float64 {
	total := 0.0
	for k, p := range LegProbabilityDistribution {
		total += float64(k) * p
	}
	return total
}

// Hop is one candidate next airport along with its enumeration weight.
// Arrival is only meaningful for enumerators that track a time axis
// (scheduled mode); aggregated mode leaves it at the zero value.
type Hop struct {
	Destination string
	Weight      float64
	Arrival     time.Time
}

// Enumerator produces the next-hop candidates from the current
// itinerary prefix and tells the walk which leg index to use for the
// ongoing-vs-terminal split, which is where the documented
// scheduled/aggregated indexing discrepancy lives.
type Enumerator interface {
	// Hops returns candidate (destination, weight) pairs reachable from
	// the airport at the end of prefix, given the arrival instant at
	// that airport (ignored in aggregated mode).
	Hops(ctx context.Context, prefix []string, at time.Time) ([]Hop, error)
	// TerminalIndex and OngoingIndex return the k to use for T(k) when
	// computing, respectively, the terminal_share and ongoing_share at
	// prefix length k. Scheduled mode returns k for both; aggregated
	// mode returns k for TerminalIndex and k-1 for OngoingIndex unless
	// StrictIndexing is set.
	TerminalIndex(k int) int
	OngoingIndex(k int) int
}

// Sample runs the shared state machine to completion and returns the
// sampled itinerary. filter may be nil to disable geographic layover
// pruning (only useful in tests).
func Sample(ctx context.Context, rng *rand.Rand, origin string, initial time.Time, enum Enumerator, filter *geo.Matrix) ([]string, error) {
	prefix := []string{origin}
	at := initial

	for {
		k := len(prefix)
		if k-1 >= MaxLegs {
			return prefix, nil
		}

		hops, err := enum.Hops(ctx, prefix, at)
		if err != nil {
			return nil, err
		}

		if filter != nil {
			hops = filterLogicalHops(prefix, hops, filter)
		}
		if len(hops) == 0 {
			return prefix, nil
		}

		weightTotal := 0.0
		for _, h := range hops {
			weightTotal += h.Weight
		}
		if weightTotal <= 0 {
			return prefix, nil
		}

		terminalT := TerminalLegProbabilities[enum.TerminalIndex(k)]
		ongoingT := TerminalLegProbabilities[enum.OngoingIndex(k)]

		inflowSoFar := 0.0
		decidedNext := ""
		var decidedArrival time.Time
		decided := false
		var lastHop Hop

		for _, h := range hops {
			lastHop = h
			share := h.Weight / weightTotal
			denom := 1.0 - inflowSoFar

			terminalShare := share * terminalT / denom
			ongoingShare := share * (1.0 - ongoingT) / denom

			u := rng.Float64()
			switch {
			case u <= ongoingShare:
				decidedNext = h.Destination
				decidedArrival = h.Arrival
				decided = true
			case u > 1.0-terminalShare:
				return append(prefix, h.Destination), nil
			default:
				inflowSoFar += share
			}
			if decided {
				break
			}
		}

		if !decided {
			// Floating-point drift: fall through to the last iterated
			// destination rather than raising.
			return append(prefix, lastHop.Destination), nil
		}

		prefix = append(prefix, decidedNext)
		at = decidedArrival
	}
}

func filterLogicalHops(prefix []string, hops []Hop, filter *geo.Matrix) []Hop {
	filtered := hops[:0:0]
	extended := make([]string, len(prefix)+1)
	copy(extended, prefix)
	for _, h := range hops {
		extended[len(prefix)] = h.Destination
		if filter.CheckLogicalLayovers(extended) {
			filtered = append(filtered, h)
		}
	}
	return filtered
}
