package motion

import (
	"math"
	"sort"

	"github.com/penwyp/go-fleet-replay/internal/core/entity"
	"github.com/penwyp/go-fleet-replay/internal/core/geo"
)

// Progress is the route-progress state of one moving entity.
// Segment stays within [0, len(Distances)-1] and Residual within
// [0, Distances[Segment]] whenever the route has a segment.
//
// Overshoot is the distance asked for past the last waypoint (positive) or
// before the first one (negative) while the entity was pinned there. A move
// the other way uses it up before the entity leaves the waypoint.
type Progress struct {
	Route     *geo.Route
	Distances []float64
	Segment   int
	Residual  float64
	Overshoot float64
}

func (p Progress) moving() bool {
	return p.Route != nil && len(p.Distances) > 0
}

type track struct {
	progress Progress
	speed    float64
	// saved progress of the routes replaced by forward route changes
	saved []Progress
}

// Interpolator computes positions of entities moving along routes between
// recorded events
type Interpolator struct {
	dist   geo.DistanceFunc
	tracks map[entity.Key]*track
}

// New creates an interpolator measuring routes with dist
func New(dist geo.DistanceFunc) *Interpolator {
	if dist == nil {
		dist = geo.Haversine
	}
	return &Interpolator{
		dist:   dist,
		tracks: make(map[entity.Key]*track),
	}
}

func (in *Interpolator) track(key entity.Key) *track {
	t, ok := in.tracks[key]
	if !ok {
		t = &track{}
		in.tracks[key] = t
	}
	return t
}

func (in *Interpolator) newProgress(route *geo.Route) Progress {
	if route == nil {
		return Progress{}
	}
	return Progress{Route: route, Distances: geo.Distances(route, in.dist)}
}

// SetRoute resets the entity to the start of route, recomputing the segment
// distance table. A nil route stops the entity.
func (in *Interpolator) SetRoute(key entity.Key, route *geo.Route, speed float64) {
	t := in.track(key)
	t.progress = in.newProgress(route)
	t.speed = speed
}

// SetSpeed changes the speed without touching progress
func (in *Interpolator) SetSpeed(key entity.Key, speed float64) {
	in.track(key).speed = speed
}

// Update reconciles an entity after one of its deltas was applied. A forward
// route change saves the progress made on the replaced route and starts the
// new one at its first waypoint. A backward route change restores the saved
// progress, so rewinding lands exactly where playback was.
func (in *Interpolator) Update(key entity.Key, route *geo.Route, speed float64, routeChanged, forward bool) {
	t := in.track(key)
	t.speed = speed
	if !routeChanged {
		return
	}
	if forward {
		t.saved = append(t.saved, t.progress)
		t.progress = in.newProgress(route)
		return
	}
	if n := len(t.saved); n > 0 {
		t.progress = t.saved[n-1]
		t.saved = t.saved[:n-1]
		return
	}
	t.progress = in.newProgress(route)
}

// Advance moves the entity forward by elapsed seconds and returns its position
func (in *Interpolator) Advance(key entity.Key, elapsed float64) (geo.Point, bool) {
	return in.Move(key, elapsed)
}

// Retreat moves the entity backward by elapsed seconds and returns its position
func (in *Interpolator) Retreat(key entity.Key, elapsed float64) (geo.Point, bool) {
	return in.Move(key, -elapsed)
}

// Move shifts the entity by span seconds, forward when span is positive.
// Position is clamped at the first and last waypoint; the clamped distance is
// kept as overshoot so moving back by the same span returns to the same spot.
func (in *Interpolator) Move(key entity.Key, span float64) (geo.Point, bool) {
	t, ok := in.tracks[key]
	if !ok {
		return geo.Point{}, false
	}
	move(&t.progress, span*t.speed)
	return t.progress.position()
}

// MoveAll shifts every moving entity by span seconds
func (in *Interpolator) MoveAll(span float64) {
	if span == 0 {
		return
	}
	for _, t := range in.tracks {
		move(&t.progress, span*t.speed)
	}
}

func move(p *Progress, d float64) {
	if !p.moving() || d == 0 {
		return
	}
	// take back overshoot from the other direction first
	if p.Overshoot != 0 && (p.Overshoot > 0) != (d > 0) {
		if math.Abs(d) <= math.Abs(p.Overshoot) {
			p.Overshoot += d
			return
		}
		d += p.Overshoot
		p.Overshoot = 0
	}

	last := len(p.Distances) - 1
	if d > 0 {
		for d > 0 {
			remaining := p.Distances[p.Segment] - p.Residual
			if d < remaining {
				p.Residual += d
				return
			}
			d -= remaining
			if p.Segment == last {
				p.Residual = p.Distances[last]
				p.Overshoot += d
				return
			}
			p.Segment++
			p.Residual = 0
		}
		return
	}

	d = -d
	for d > 0 {
		if d < p.Residual {
			p.Residual -= d
			return
		}
		d -= p.Residual
		if p.Segment == 0 {
			p.Residual = 0
			p.Overshoot -= d
			return
		}
		p.Segment--
		p.Residual = p.Distances[p.Segment]
	}
}

// Position returns the interpolated position of a moving entity. It is absent
// when the entity has no route.
func (in *Interpolator) Position(key entity.Key) (geo.Point, bool) {
	t, ok := in.tracks[key]
	if !ok {
		return geo.Point{}, false
	}
	return t.progress.position()
}

func (p Progress) position() (geo.Point, bool) {
	if p.Route == nil || len(p.Route.Points) == 0 {
		return geo.Point{}, false
	}
	if len(p.Distances) == 0 {
		return p.Route.Points[0], true
	}
	p1 := p.Route.Points[p.Segment]
	p2 := p.Route.Points[p.Segment+1]
	length := p.Distances[p.Segment]
	if length == 0 || p.Residual == 0 {
		return p1, true
	}
	if p.Residual == length {
		return p2, true
	}
	return geo.Lerp(p1, p2, p.Residual/length), true
}

// Progress returns a copy of the entity's route progress
func (in *Interpolator) Progress(key entity.Key) (Progress, bool) {
	t, ok := in.tracks[key]
	if !ok {
		return Progress{}, false
	}
	return t.progress, true
}

// Moving returns the keys of entities with a route, sorted
func (in *Interpolator) Moving() []entity.Key {
	var keys []entity.Key
	for key, t := range in.tracks {
		if t.progress.Route != nil {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}

// Reset drops every track
func (in *Interpolator) Reset() {
	in.tracks = make(map[entity.Key]*track)
}
