package sampler

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/ecohealth/airflow/internal/store"
)

// meanLayoverDelayHours parameterises the Poisson layover-weighting PMF:
// passengers are more likely to take a flight shortly after they land
// than one many hours later.
const meanLayoverDelayHours = 2.0

// loadRatio mirrors flows.ALoadRatio/BLoadRatio; duplicated as untyped
// constants here so this package has no import-cycle dependency on
// flows, which itself doesn't need the sampler.
const (
	aLoadRatio = 0.000861
	bLoadRatio = 0.674728
)

// poissonPMF computes P(h; lambda=meanLayoverDelayHours) with h floored
// to an integer number of hours: all sub-hour layovers share the same
// weight. This is an intentionally preserved quirk, not a rounding bug
// to fix.
func poissonPMF(hours float64) float64 {
	p := math.Exp(-meanLayoverDelayHours)
	for i := 0; i < int(hours); i++ {
		p *= meanLayoverDelayHours
		p /= float64(i + 1)
	}
	return p
}

// FlightCache is the narrow read the scheduled enumerator needs from the
// flight cache.
type FlightCache interface {
	FlightsDeparting(ctx context.Context, airport string, day time.Time) ([]store.LightFlight, error)
}

// Scheduled implements the scheduled-mode hop enumerator: candidates are
// the flights departing the current airport later than the current
// arrival instant, weighted by expected passengers and Poisson layover
// likelihood.
type Scheduled struct {
	Cache FlightCache
}

func (s *Scheduled) Hops(ctx context.Context, prefix []string, at time.Time) ([]Hop, error) {
	airport := prefix[len(prefix)-1]
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())

	flights, err := s.Cache.FlightsDeparting(ctx, airport, day)
	if err != nil {
		return nil, err
	}

	hops := make([]Hop, 0, len(flights))
	for _, f := range flights {
		if !f.DepartureDT.After(at) {
			continue
		}
		hours := f.DepartureDT.Sub(at).Hours()
		prob := poissonPMF(hours)
		if prob <= 0 {
			continue
		}
		passengers := (aLoadRatio*float64(f.TotalSeats) + bLoadRatio) * float64(f.TotalSeats)
		weight := passengers * prob
		if weight <= 0 {
			continue
		}
		hops = append(hops, Hop{
			Destination: f.ArrivalAirport,
			Weight:      weight,
			Arrival:     f.ArrivalDT,
		})
	}
	// Keep enumeration order independent of the cache/store's underlying
	// result order so a fixed RNG seed reproduces the same itinerary.
	sort.Slice(hops, func(i, j int) bool {
		if hops[i].Arrival.Equal(hops[j].Arrival) {
			return hops[i].Destination < hops[j].Destination
		}
		return hops[i].Arrival.Before(hops[j].Arrival)
	})
	return hops, nil
}

// TerminalIndex and OngoingIndex both use the current prefix length k in
// scheduled mode — there is no documented indexing discrepancy here.
func (s *Scheduled) TerminalIndex(k int) int { return k }
func (s *Scheduled) OngoingIndex(k int) int  { return k }

// UniformArrival draws the origin's initial arrival instant uniformly
// from [start, end+1day).
func UniformArrival(rng *rand.Rand, start, end time.Time) time.Time {
	span := end.Add(24 * time.Hour).Sub(start)
	if span <= 0 {
		return start
	}
	offset := time.Duration(rng.Float64() * float64(span))
	return start.Add(offset)
}
