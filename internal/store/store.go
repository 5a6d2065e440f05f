// Package store adapts the read-only flight/airport data store into the
// two queries the simulation core needs: the full
// airport table, and the flights departing a given airport on a given
// calendar day. Both a concrete-dated-flight backend and a recurrent-leg
// backend are provided behind the same interface.
package store

import (
	"context"
	"time"

	"github.com/ecohealth/airflow/internal/geo"
)

// Airport is a one-shot read of an airport's identifier and coordinates.
type Airport struct {
	Code      string
	Longitude float64
	Latitude  float64
}

// LightFlight carries only the four fields the sampler needs
// ("dynamic flight dicts -> a fixed LightFlight record"). It deliberately
// does not carry a nested airport object.
type LightFlight struct {
	TotalSeats      int
	DepartureDT     time.Time
	ArrivalDT       time.Time
	ArrivalAirport  string
}

// ScheduleStore is the read-only interface the simulation core consumes.
// Implementations must guarantee FlightsDeparting returns flights with
// DepartureDT in [day, day+24h), departing from the given airport, with
// TotalSeats > 0.
type ScheduleStore interface {
	Airports(ctx context.Context) ([]Airport, error)
	FlightsDeparting(ctx context.Context, airport string, day time.Time) ([]LightFlight, error)
}

// Coordinates builds the map geo.NewMatrix expects from a flat airport
// list, skipping nothing — the matrix itself tolerates unknown codes.
func Coordinates(airports []Airport) map[string]geo.Coordinate {
	coords := make(map[string]geo.Coordinate, len(airports))
	for _, a := range airports {
		coords[a.Code] = geo.Coordinate{Longitude: a.Longitude, Latitude: a.Latitude}
	}
	return coords
}
