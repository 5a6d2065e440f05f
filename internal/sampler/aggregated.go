package sampler

import (
	"context"
	"sort"
	"time"
)

// Aggregated implements the aggregated-mode hop enumerator: candidates
// are the entries of PassengerFlow[airport], with no time axis and no
// Poisson weighting.
type Aggregated struct {
	PassengerFlow map[string]map[string]float64

	// StrictIndexing, when true, uses T(k) for both the terminal and
	// ongoing shares (the behavior you'd expect). The default, false,
	// reproduces a known off-by-one: the ongoing share is computed with
	// T(k-1) instead of T(k). Do not "fix" this without flipping the
	// flag explicitly — downstream consumers are calibrated against the
	// off-by-one default.
	StrictIndexing bool
}

func (a *Aggregated) Hops(ctx context.Context, prefix []string, _ time.Time) ([]Hop, error) {
	airport := prefix[len(prefix)-1]
	destinations := a.PassengerFlow[airport]
	if len(destinations) == 0 {
		return nil, nil
	}

	hops := make([]Hop, 0, len(destinations))
	for destination, passengers := range destinations {
		if passengers <= 0 {
			continue
		}
		hops = append(hops, Hop{Destination: destination, Weight: passengers})
	}
	// Map iteration order is randomized; sort so a fixed RNG seed
	// reproduces identical itineraries regardless of Go's map ordering.
	sort.Slice(hops, func(i, j int) bool { return hops[i].Destination < hops[j].Destination })
	return hops, nil
}

func (a *Aggregated) TerminalIndex(k int) int { return k }

func (a *Aggregated) OngoingIndex(k int) int {
	if a.StrictIndexing {
		return k
	}
	return k - 1
}
