// Package resultstore persists calculator output into Postgres:
// aggregate passenger-flow rows and, for passenger-simulation jobs, the
// origin and destination of each sampled itinerary. Writes are
// delete-then-insert, by (origin, sim group) for flows and by simulation
// ID for itineraries, so a re-run of the same job replaces its prior
// output rather than accumulating duplicates.
package resultstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ecohealth/airflow/internal/calculator"
	"github.com/ecohealth/airflow/internal/sampler"
	"github.com/ecohealth/airflow/pkg/database"
)

// FlowRow is one destination's aggregate result for an origin/sim-group
// run, ready to insert into passenger_flows.
type FlowRow struct {
	DepartureAirport     string
	ArrivalAirport       string
	EstimatedPassengers  float64
	AverageDistanceKm    float64
	RecordDate           time.Time
	PeriodStart          time.Time
	PeriodEnd            time.Time
	PeriodDays           int
	SimGroup             string
}

// Store writes calculator results to Postgres.
type Store struct {
	db *database.Pool
}

// New builds a Store over an open connection pool.
func New(db *database.Pool) *Store {
	return &Store{db: db}
}

// FlowRowsFromStats converts a Calculate() result into FlowRows. Each
// destination's terminal_flow fraction is scaled by the origin's total
// direct outgoing seats and divided by the mean seats-per-passenger to
// arrive at an absolute passenger estimate.
func FlowRowsFromStats(origin string, stats map[string]calculator.DestinationStats, totalDirectSeats float64, start, end time.Time, simGroup string, recordDate time.Time) []FlowRow {
	rows := make([]FlowRow, 0, len(stats))
	for destination, s := range stats {
		estimated := s.TerminalFlow * totalDirectSeats / sampler.SeatsPerPassenger
		rows = append(rows, FlowRow{
			DepartureAirport:    origin,
			ArrivalAirport:      destination,
			EstimatedPassengers: estimated,
			AverageDistanceKm:   s.AverageDistance,
			RecordDate:          recordDate,
			PeriodStart:         start,
			PeriodEnd:           end,
			PeriodDays:          int(end.Sub(start).Hours()/24 + 0.5),
			SimGroup:            simGroup,
		})
	}
	return rows
}

// SaveFlows deletes any existing passenger_flows rows for
// (origin, simGroup) and inserts rows in their place, inside one
// transaction.
func (s *Store) SaveFlows(ctx context.Context, origin, simGroup string, rows []FlowRow) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM passenger_flows WHERE departure_airport = $1 AND sim_group = $2`,
			origin, simGroup); err != nil {
			return fmt.Errorf("delete prior passenger flows: %w", err)
		}

		for _, row := range rows {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO passenger_flows
					(departure_airport, arrival_airport, estimated_passengers,
					 average_distance_km, record_date, period_start, period_end,
					 period_days, sim_group)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				row.DepartureAirport, row.ArrivalAirport, row.EstimatedPassengers,
				row.AverageDistanceKm, row.RecordDate, row.PeriodStart, row.PeriodEnd,
				row.PeriodDays, row.SimGroup); err != nil {
				return fmt.Errorf("insert passenger flow %s->%s: %w", row.DepartureAirport, row.ArrivalAirport, err)
			}
		}
		return nil
	})
}

// SaveItineraries deletes any existing simulated_itineraries rows for
// simulationID and inserts one (origin, destination) row per sampled
// itinerary; intermediate layovers are not stored.
func (s *Store) SaveItineraries(ctx context.Context, simulationID string, itineraries [][]string) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM simulated_itineraries WHERE simulation_id = $1`, simulationID); err != nil {
			return fmt.Errorf("delete prior simulated itineraries: %w", err)
		}

		for _, itin := range itineraries {
			if len(itin) == 0 {
				continue
			}
			origin := itin[0]
			destination := itin[len(itin)-1]
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO simulated_itineraries (simulation_id, origin, destination) VALUES ($1, $2, $3)`,
				simulationID, origin, destination); err != nil {
				return fmt.Errorf("insert simulated itinerary %s->%s: %w", origin, destination, err)
			}
		}
		return nil
	})
}
