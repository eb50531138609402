package geo

import (
	"math"
)

// EarthRadius is the mean earth radius in meters
const EarthRadius = 6371e3

// Point is a geographic coordinate
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Route is an ordered polyline of waypoints
type Route struct {
	Points []Point `json:"points"`
}

// DistanceFunc measures the distance between two points
type DistanceFunc func(a, b Point) float64

// Haversine returns the great-circle distance between a and b in meters
func Haversine(a, b Point) float64 {
	f1 := a.Latitude * math.Pi / 180
	f2 := b.Latitude * math.Pi / 180
	dl := (b.Longitude - a.Longitude) * math.Pi / 180
	h := hav(f2-f1) + math.Cos(f1)*math.Cos(f2)*hav(dl)
	return 2 * EarthRadius * math.Asin(math.Sqrt(h))
}

// Planar treats latitude/longitude as cartesian coordinates
func Planar(a, b Point) float64 {
	return math.Hypot(b.Latitude-a.Latitude, b.Longitude-a.Longitude)
}

// ParseDistanceMode maps a config value to a distance function
func ParseDistanceMode(mode string) (DistanceFunc, bool) {
	switch mode {
	case "", "geodesic", "haversine":
		return Haversine, true
	case "planar":
		return Planar, true
	default:
		return nil, false
	}
}

func hav(v float64) float64 {
	s := math.Sin(v / 2)
	return s * s
}

// Distances returns the length of every segment of the route.
// A route with fewer than two points has no segments.
func Distances(route *Route, dist DistanceFunc) []float64 {
	if route == nil || len(route.Points) < 2 {
		return nil
	}
	out := make([]float64, len(route.Points)-1)
	for i := 0; i < len(out); i++ {
		out[i] = dist(route.Points[i], route.Points[i+1])
	}
	return out
}

// Lerp interpolates between p1 and p2 at fraction t.
// The exact endpoints are returned for t == 0 and t == 1.
func Lerp(p1, p2 Point, t float64) Point {
	if t <= 0 {
		return p1
	}
	if t >= 1 {
		return p2
	}
	return Point{
		Latitude:  p1.Latitude + t*(p2.Latitude-p1.Latitude),
		Longitude: p1.Longitude + t*(p2.Longitude-p1.Longitude),
	}
}

// Equal reports whether two routes have identical waypoints
func (r *Route) Equal(other *Route) bool {
	if r == nil || other == nil {
		return r == other
	}
	if len(r.Points) != len(other.Points) {
		return false
	}
	for i := range r.Points {
		if r.Points[i] != other.Points[i] {
			return false
		}
	}
	return true
}

// Length returns the total route length
func (r *Route) Length(dist DistanceFunc) float64 {
	total := 0.0
	for _, d := range Distances(r, dist) {
		total += d
	}
	return total
}
