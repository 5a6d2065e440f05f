// Package flows implements the direct flow aggregator that turns a
// date-ranged flights query into origin->destination seat and passenger
// totals for the aggregated-mode sampler.
package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/ecohealth/airflow/pkg/database"
)

// Load-ratio regression constants fit offline from transit statistics.
// p = (A*s + b)*s converts a seat total s into expected passengers.
const (
	ALoadRatio = 0.000861
	BLoadRatio = 0.674728
)

// SeatFlow is origin -> destination -> summed seats over a time window.
type SeatFlow map[string]map[string]int

// PassengerFlow is origin -> destination -> expected passengers, derived
// from a SeatFlow via the load-ratio regression.
type PassengerFlow map[string]map[string]float64

// DirectSeatFlows runs the origin/destination seat-total group-by query
// over [start, end).
func DirectSeatFlows(ctx context.Context, db *database.Pool, start, end time.Time) (SeatFlow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT departure_airport, arrival_airport, SUM(total_seats) AS seats
		FROM flights
		WHERE departure_dt >= $1 AND departure_dt < $2
		GROUP BY departure_airport, arrival_airport
		HAVING SUM(total_seats) > 0`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("query direct seat flows: %w", err)
	}
	defer rows.Close()

	result := SeatFlow{}
	for rows.Next() {
		var origin, destination string
		var seats int
		if err := rows.Scan(&origin, &destination, &seats); err != nil {
			return nil, fmt.Errorf("scan direct seat flow: %w", err)
		}
		if _, ok := result[origin]; !ok {
			result[origin] = map[string]int{}
		}
		result[origin][destination] = seats
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate direct seat flows: %w", err)
	}
	return result, nil
}

// PassengerFlowFromSeats converts a SeatFlow into a PassengerFlow using
// the load-ratio regression, dropping entries with p <= 0.
func PassengerFlowFromSeats(seats SeatFlow) PassengerFlow {
	result := PassengerFlow{}
	for origin, destinations := range seats {
		for destination, s := range destinations {
			p := (ALoadRatio*float64(s) + BLoadRatio) * float64(s)
			if p <= 0 {
				continue
			}
			if _, ok := result[origin]; !ok {
				result[origin] = map[string]float64{}
			}
			result[origin][destination] = p
		}
	}
	return result
}

// DirectPassengerFlows is a combined convenience call: run the
// aggregation query, then apply the regression.
func DirectPassengerFlows(ctx context.Context, db *database.Pool, start, end time.Time) (PassengerFlow, error) {
	seats, err := DirectSeatFlows(ctx, db, start, end)
	if err != nil {
		return nil, err
	}
	return PassengerFlowFromSeats(seats), nil
}
