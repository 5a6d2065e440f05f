package resultstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecohealth/airflow/internal/calculator"
	"github.com/ecohealth/airflow/internal/sampler"
)

func TestFlowRowsFromStatsScalesByTotalSeats(t *testing.T) {
	stats := map[string]calculator.DestinationStats{
		"LAX": {TerminalFlow: 0.5, AverageLegs: 1, AverageDistance: 3983},
	}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	recordDate := start

	rows := FlowRowsFromStats("JFK", stats, 1000, start, end, "baseline", recordDate)
	require.Len(t, rows, 1)

	row := rows[0]
	wantPassengers := 0.5 * 1000 / sampler.SeatsPerPassenger
	assert.InDelta(t, wantPassengers, row.EstimatedPassengers, 1e-6)
	assert.Equal(t, "JFK", row.DepartureAirport)
	assert.Equal(t, "LAX", row.ArrivalAirport)
	assert.Equal(t, 7, row.PeriodDays)
	assert.Equal(t, "baseline", row.SimGroup)
}

func TestFlowRowsFromStatsEmptyStats(t *testing.T) {
	rows := FlowRowsFromStats("JFK", nil, 1000, time.Now(), time.Now(), "g", time.Now())
	assert.Empty(t, rows)
}
