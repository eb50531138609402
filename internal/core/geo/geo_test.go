package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	madrid := Point{Latitude: 40.4168, Longitude: -3.7038}
	barcelona := Point{Latitude: 41.3874, Longitude: 2.1686}

	d := Haversine(madrid, barcelona)
	assert.InDelta(t, 505000, d, 2000)
	assert.Equal(t, 0.0, Haversine(madrid, madrid))
	assert.InDelta(t, d, Haversine(barcelona, madrid), 1e-6)
}

func TestDistances(t *testing.T) {
	route := &Route{Points: []Point{{0, 0}, {0, 3}, {4, 3}}}

	assert.Equal(t, []float64{3, 4}, Distances(route, Planar))
	assert.Equal(t, 7.0, route.Length(Planar))
	assert.Nil(t, Distances(&Route{Points: []Point{{1, 1}}}, Planar))
	assert.Nil(t, Distances(nil, Planar))
}

func TestLerpEndpoints(t *testing.T) {
	p1 := Point{Latitude: 40.1234567, Longitude: -3.7654321}
	p2 := Point{Latitude: 40.9876543, Longitude: -3.1234567}

	assert.Equal(t, p1, Lerp(p1, p2, 0))
	assert.Equal(t, p2, Lerp(p1, p2, 1))

	mid := Lerp(Point{0, 0}, Point{0, 100}, 0.5)
	assert.Equal(t, Point{0, 50}, mid)
}

func TestRouteEqual(t *testing.T) {
	a := &Route{Points: []Point{{1, 2}, {3, 4}}}
	b := &Route{Points: []Point{{1, 2}, {3, 4}}}
	c := &Route{Points: []Point{{1, 2}}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))

	var none *Route
	assert.True(t, none.Equal(nil))
}

func TestParseDistanceMode(t *testing.T) {
	f, ok := ParseDistanceMode("planar")
	assert.True(t, ok)
	assert.Equal(t, 5.0, f(Point{0, 0}, Point{3, 4}))

	f, ok = ParseDistanceMode("")
	assert.True(t, ok)
	assert.False(t, math.IsNaN(f(Point{0, 0}, Point{1, 1})))

	_, ok = ParseDistanceMode("manhattan")
	assert.False(t, ok)
}
