package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatrix() *Matrix {
	return NewMatrix(map[string]Coordinate{
		"JFK": {Longitude: -73.7781, Latitude: 40.6413},
		"LAX": {Longitude: -118.4085, Latitude: 33.9416},
		"ORD": {Longitude: -87.9048, Latitude: 41.9742},
		"LHR": {Longitude: -0.4543, Latitude: 51.4700},
	})
}

func TestDistanceSymmetric(t *testing.T) {
	m := testMatrix()
	ab, ok := m.Distance("JFK", "LAX")
	require.True(t, ok, "expected known distance")
	ba, ok := m.Distance("LAX", "JFK")
	require.True(t, ok, "expected known distance")

	assert.Equal(t, ab, ba, "distance should be symmetric")
	assert.Greater(t, ab, 0.0)
}

func TestDistanceZeroForSelf(t *testing.T) {
	m := testMatrix()
	d, ok := m.Distance("JFK", "JFK")
	require.True(t, ok)
	assert.InDelta(t, 0, d, 1e-9)
}

func TestDistanceUnknownAirport(t *testing.T) {
	m := testMatrix()
	_, ok := m.Distance("JFK", "ZZZ")
	assert.False(t, ok, "expected unknown airport to report not-ok")
}

func TestCheckLogicalLayoversRejectsCircular(t *testing.T) {
	m := testMatrix()
	assert.False(t, m.CheckLogicalLayovers([]string{"JFK", "ORD", "JFK"}), "expected circular itinerary to be rejected")
}

func TestCheckLogicalLayoversAcceptsDirect(t *testing.T) {
	m := testMatrix()
	assert.True(t, m.CheckLogicalLayovers([]string{"JFK", "LAX"}), "expected direct itinerary to be logical")
}

func TestCheckLogicalLayoversRejectsBacktrack(t *testing.T) {
	m := testMatrix()
	// JFK -> LHR -> LAX backtracks across the Atlantic before heading west.
	assert.False(t, m.CheckLogicalLayovers([]string{"JFK", "LHR", "LAX"}),
		"expected a layover further from both endpoints than they are from each other to be rejected")
}

func TestCheckLogicalLayoversUnknownAirportsAreConservative(t *testing.T) {
	m := testMatrix()
	assert.True(t, m.CheckLogicalLayovers([]string{"ZZZ", "YYY"}), "unknown origin/destination should not be rejected")
}

// realWorldMatrix covers three Pacific-rim airports at their actual
// coordinates, for the S3/S4 logical-layover scenarios.
func realWorldMatrix() *Matrix {
	return NewMatrix(map[string]Coordinate{
		"NRT": {Longitude: 140.3929, Latitude: 35.7720},  // Narita
		"SEA": {Longitude: -122.3088, Latitude: 47.4502}, // Seattle-Tacoma
		"TPE": {Longitude: 121.2328, Latitude: 25.0777},  // Taipei Taoyuan
	})
}

// TestS3IsLogicalAcceptsLayoverCloserThanDirectRoute is scenario S3:
// TPE lies closer to NRT than NRT and SEA are to each other, so it is
// a logical layover on a NRT->SEA itinerary.
func TestS3IsLogicalAcceptsLayoverCloserThanDirectRoute(t *testing.T) {
	m := realWorldMatrix()
	assert.True(t, m.IsLogical("NRT", "SEA", "TPE"))
}

// TestS4IsLogicalRejectsLayoverFartherThanDirectRoute is scenario S4:
// SEA lies farther from both NRT and TPE than they are from each
// other, so it is not a logical layover on a NRT->TPE itinerary.
func TestS4IsLogicalRejectsLayoverFartherThanDirectRoute(t *testing.T) {
	m := realWorldMatrix()
	assert.False(t, m.IsLogical("NRT", "TPE", "SEA"))
}

func TestItineraryDistanceSumsLegs(t *testing.T) {
	m := testMatrix()
	direct, _ := m.Distance("JFK", "ORD")
	onward, _ := m.Distance("ORD", "LAX")
	got := m.ItineraryDistance([]string{"JFK", "ORD", "LAX"})
	assert.InDelta(t, direct+onward, got, 1e-6)
}
