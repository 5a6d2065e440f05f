package store

import (
	"context"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ecohealth/airflow/pkg/database"
	"github.com/ecohealth/airflow/pkg/observability"
)

// PostgresStore implements ScheduleStore against the airports/flights
// tables. It requires the secondary index on (departure_airport,
// departure_dt) to stay within the
// per-query latency budget the flight cache is built to amortise.
type PostgresStore struct {
	db     *database.Pool
	tracer oteltrace.Tracer
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *database.Pool) *PostgresStore {
	return &PostgresStore{db: db, tracer: observability.GetTracer("store.postgres")}
}

// Airports reads the full airport table once; callers are expected to
// cache the result for the lifetime of a calculator.
func (s *PostgresStore) Airports(ctx context.Context) ([]Airport, error) {
	ctx, span := s.tracer.Start(ctx, "postgres_store.airports")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `SELECT code, longitude, latitude FROM airports`)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query airports: %w", err)
	}
	defer rows.Close()

	var airports []Airport
	for rows.Next() {
		var a Airport
		if err := rows.Scan(&a.Code, &a.Longitude, &a.Latitude); err != nil {
			return nil, fmt.Errorf("scan airport: %w", err)
		}
		airports = append(airports, a)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("iterate airports: %w", err)
	}
	span.SetAttributes(attribute.Int("airports.count", len(airports)))
	return airports, nil
}

// FlightsDeparting returns all flights departing airport within
// [day, day+24h) with positive seat totals.
func (s *PostgresStore) FlightsDeparting(ctx context.Context, airport string, day time.Time) ([]LightFlight, error) {
	ctx, span := s.tracer.Start(ctx, "postgres_store.flights_departing")
	defer span.End()
	span.SetAttributes(
		attribute.String("airport", airport),
		attribute.String("day", day.Format("2006-01-02")),
	)

	dayEnd := day.Add(24 * time.Hour)

	rows, err := s.db.QueryContext(ctx, `
		SELECT total_seats, departure_dt, arrival_dt, arrival_airport
		FROM flights
		WHERE departure_airport = $1
		  AND departure_dt >= $2 AND departure_dt < $3
		  AND total_seats > 0`,
		airport, day, dayEnd)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query flights departing %s: %w", airport, err)
	}
	defer rows.Close()

	var flights []LightFlight
	for rows.Next() {
		var f LightFlight
		if err := rows.Scan(&f.TotalSeats, &f.DepartureDT, &f.ArrivalDT, &f.ArrivalAirport); err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		flights = append(flights, f)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("iterate flights: %w", err)
	}
	span.SetAttributes(attribute.Int("flights.count", len(flights)))
	return flights, nil
}

// PostgresRecurrentLegSource implements RecurrentLegSource against the
// recurrent_legs table. Postgres stores dow_mask with bit 0 = Monday
// (ISO convention, matching EXTRACT(ISODOW FROM ...)); RecurrentStore's
// expansion logic tests the mask with Go's time.Weekday (bit 0 =
// Sunday), so each row's mask is translated on the way out.
type PostgresRecurrentLegSource struct {
	db     *database.Pool
	tracer oteltrace.Tracer
}

// NewPostgresRecurrentLegSource wraps an existing connection pool.
func NewPostgresRecurrentLegSource(db *database.Pool) *PostgresRecurrentLegSource {
	return &PostgresRecurrentLegSource{db: db, tracer: observability.GetTracer("store.postgres_recurrent")}
}

func (s *PostgresRecurrentLegSource) Airports(ctx context.Context) ([]Airport, error) {
	return (&PostgresStore{db: s.db, tracer: s.tracer}).Airports(ctx)
}

// LegsDeparting returns every recurrent leg departing airport, regardless
// of effective range or weekday; RecurrentStore applies those filters
// per requested day.
func (s *PostgresRecurrentLegSource) LegsDeparting(ctx context.Context, airport string) ([]RecurrentLeg, error) {
	ctx, span := s.tracer.Start(ctx, "postgres_recurrent_leg_source.legs_departing")
	defer span.End()
	span.SetAttributes(attribute.String("airport", airport))

	// INTERVAL columns come back as seconds: lib/pq has no Duration
	// scanner, and EXTRACT(EPOCH FROM ...) is the standard way around
	// that rather than parsing Postgres's interval text format by hand.
	rows, err := s.db.QueryContext(ctx, `
		SELECT arrival_airport, effective_date, discontinued_date, dow_mask,
		       EXTRACT(EPOCH FROM departure_tod)::bigint,
		       EXTRACT(EPOCH FROM arrival_tod)::bigint,
		       total_seats
		FROM recurrent_legs
		WHERE departure_airport = $1`,
		airport)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query recurrent legs departing %s: %w", airport, err)
	}
	defer rows.Close()

	var legs []RecurrentLeg
	for rows.Next() {
		var (
			leg              RecurrentLeg
			isoMask          int64
			departureSeconds int64
			arrivalSeconds   int64
		)
		if err := rows.Scan(&leg.ArrivalAirport, &leg.Effective, &leg.Discontinued, &isoMask,
			&departureSeconds, &arrivalSeconds, &leg.TotalSeats); err != nil {
			return nil, fmt.Errorf("scan recurrent leg: %w", err)
		}
		leg.DepartureAirport = airport
		leg.DOWMask = isoDOWMaskToGoWeekday(uint8(isoMask))
		leg.DepartureTOD = time.Duration(departureSeconds) * time.Second
		leg.ArrivalTOD = time.Duration(arrivalSeconds) * time.Second
		legs = append(legs, leg)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("iterate recurrent legs: %w", err)
	}
	span.SetAttributes(attribute.Int("legs.count", len(legs)))
	return legs, nil
}

// isoDOWMaskToGoWeekday translates a Postgres dow_mask (bit 0 = Monday
// .. bit 6 = Sunday) into the convention RecurrentStore tests against
// (bit i = time.Weekday(i), i.e. bit 0 = Sunday .. bit 6 = Saturday).
func isoDOWMaskToGoWeekday(isoMask uint8) uint8 {
	var goMask uint8
	for isoBit := uint(0); isoBit < 7; isoBit++ {
		if isoMask&(1<<isoBit) == 0 {
			continue
		}
		// isoBit 0..6 = Monday..Sunday; time.Weekday Sunday=0..Saturday=6.
		weekday := (isoBit + 1) % 7
		goMask |= 1 << weekday
	}
	return goMask
}
