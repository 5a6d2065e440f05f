package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLegSource struct {
	legs []RecurrentLeg
}

func (f *fakeLegSource) LegsDeparting(ctx context.Context, airport string) ([]RecurrentLeg, error) {
	return f.legs, nil
}

func (f *fakeLegSource) Airports(ctx context.Context) ([]Airport, error) {
	return nil, nil
}

func TestRecurrentStoreExpandsMatchingWeekday(t *testing.T) {
	// Thursday = weekday 4.
	thursday := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)

	source := &fakeLegSource{legs: []RecurrentLeg{
		{
			DepartureAirport: "JFK",
			ArrivalAirport:   "LAX",
			Effective:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Discontinued:     time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
			DOWMask:          1 << uint(thursday.Weekday()),
			DepartureTOD:     9 * time.Hour,
			ArrivalTOD:       12 * time.Hour,
			TotalSeats:       180,
		},
	}}
	s := NewRecurrentStore(source)

	flights, err := s.FlightsDeparting(context.Background(), "JFK", thursday)
	require.NoError(t, err)
	require.Len(t, flights, 1)

	f := flights[0]
	assert.True(t, f.DepartureDT.Equal(thursday.Add(9*time.Hour)))
	assert.Equal(t, "LAX", f.ArrivalAirport)
}

func TestRecurrentStoreSkipsNonMatchingWeekday(t *testing.T) {
	thursday := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
	friday := thursday.AddDate(0, 0, 1)

	source := &fakeLegSource{legs: []RecurrentLeg{
		{
			DepartureAirport: "JFK",
			ArrivalAirport:   "LAX",
			Effective:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Discontinued:     time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
			DOWMask:          1 << uint(thursday.Weekday()),
			DepartureTOD:     9 * time.Hour,
			ArrivalTOD:       12 * time.Hour,
			TotalSeats:       180,
		},
	}}
	s := NewRecurrentStore(source)

	flights, err := s.FlightsDeparting(context.Background(), "JFK", friday)
	require.NoError(t, err)
	assert.Empty(t, flights, "expected no flights on a non-matching weekday")
}

func TestRecurrentStoreSkipsOutsideEffectiveRange(t *testing.T) {
	day := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)

	source := &fakeLegSource{legs: []RecurrentLeg{
		{
			DepartureAirport: "JFK",
			ArrivalAirport:   "LAX",
			Effective:        time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
			Discontinued:     time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC),
			DOWMask:          0xFF,
			DepartureTOD:     9 * time.Hour,
			ArrivalTOD:       12 * time.Hour,
			TotalSeats:       180,
		},
	}}
	s := NewRecurrentStore(source)

	flights, err := s.FlightsDeparting(context.Background(), "JFK", day)
	require.NoError(t, err)
	assert.Empty(t, flights, "expected no flights before the leg's effective date")
}

func TestRecurrentStoreRollsArrivalToNextDay(t *testing.T) {
	day := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)

	source := &fakeLegSource{legs: []RecurrentLeg{
		{
			DepartureAirport: "JFK",
			ArrivalAirport:   "LHR",
			Effective:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Discontinued:     time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
			DOWMask:          0xFF,
			DepartureTOD:     22 * time.Hour,
			ArrivalTOD:       5 * time.Hour,
			TotalSeats:       180,
		},
	}}
	s := NewRecurrentStore(source)

	flights, err := s.FlightsDeparting(context.Background(), "JFK", day)
	require.NoError(t, err)
	require.Len(t, flights, 1)

	wantArrival := day.Add(5 * time.Hour).Add(24 * time.Hour)
	assert.True(t, flights[0].ArrivalDT.Equal(wantArrival), "expected arrival rolled to next day")
}

func TestISODOWMaskToGoWeekdayTranslatesMonday(t *testing.T) {
	// ISO bit 0 = Monday. Go's time.Monday == 1.
	got := isoDOWMaskToGoWeekday(1 << 0)
	assert.Equal(t, uint8(1<<time.Monday), got)
}

func TestISODOWMaskToGoWeekdayTranslatesSunday(t *testing.T) {
	// ISO bit 6 = Sunday. Go's time.Sunday == 0.
	got := isoDOWMaskToGoWeekday(1 << 6)
	assert.Equal(t, uint8(1<<time.Sunday), got)
}

func TestISODOWMaskToGoWeekdayTranslatesWeekdayMask(t *testing.T) {
	// ISO Mon-Fri = bits 0-4.
	isoWeekdays := uint8(0b0011111)
	got := isoDOWMaskToGoWeekday(isoWeekdays)
	want := uint8(1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday | 1<<time.Thursday | 1<<time.Friday)
	assert.Equal(t, want, got)
}

func TestCoordinatesBuildsMapFromAirportList(t *testing.T) {
	airports := []Airport{
		{Code: "JFK", Longitude: -73.7781, Latitude: 40.6413},
		{Code: "LAX", Longitude: -118.4085, Latitude: 33.9416},
	}
	coords := Coordinates(airports)
	require.Len(t, coords, 2)
	assert.Equal(t, 40.6413, coords["JFK"].Latitude)
}
