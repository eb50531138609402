package ledger

import (
	"github.com/penwyp/go-fleet-replay/internal/core/model"
)

// Simulator event names that count as rentals or returns
const (
	EventRentWithReservation      = "EventUserArrivesAtStationToRentBikeWithReservation"
	EventRentWithoutReservation   = "EventUserArrivesAtStationToRentBikeWithoutReservation"
	EventReturnWithReservation    = "EventUserArrivesAtStationToReturnBikeWithReservation"
	EventReturnWithoutReservation = "EventUserArrivesAtStationToReturnBikeWithoutReservation"
	EventRentSuccessful           = "RentSuccessful"
)

// Counts are the rental and return tallies of a user, a station or the system
type Counts struct {
	SuccessfulRentals int `json:"successfulRentals"`
	FailedRentals     int `json:"failedRentals"`
	SuccessfulReturns int `json:"successfulReturns"`
	FailedReturns     int `json:"failedReturns"`
}

func (c *Counts) add(r Record, n int) {
	switch {
	case r.Return && r.Success:
		c.SuccessfulReturns += n
	case r.Return:
		c.FailedReturns += n
	case r.Success:
		c.SuccessfulRentals += n
	default:
		c.FailedRentals += n
	}
}

// Record is what a single event contributes to the ledger
type Record struct {
	Return  bool
	Success bool
	User    int
	Station int
	// HasStation is false when the event does not name a station
	HasStation bool
}

// Classify derives the record of an event. The outcome only depends on the
// recorded values, so applying the event backward removes exactly what the
// forward application added.
func Classify(event *model.Event) (Record, bool) {
	users := event.Changes["users"]
	if len(users) == 0 {
		return Record{}, false
	}
	user := users[0]
	r := Record{User: user.ID}
	bike, hasBike := user.Attribute("bike")

	switch event.Name {
	case EventRentWithReservation, EventRentSuccessful:
		r.Success = true
	case EventReturnWithReservation:
		r.Return = true
		r.Success = true
	case EventRentWithoutReservation:
		r.Success = hasBike && bike.New != nil
	case EventReturnWithoutReservation:
		// the user no longer holds a bike once it is returned
		r.Return = true
		r.Success = hasBike && bike.New == nil
	default:
		return Record{}, false
	}

	r.Station, r.HasStation = station(event)
	return r, true
}

// station picks the station from the stations deltas, or from the docking
// change of a bike
func station(event *model.Event) (int, bool) {
	if stations := event.Changes["stations"]; len(stations) > 0 {
		return stations[0].ID, true
	}
	for _, d := range event.Changes["bikes"] {
		if ac, ok := d.Attribute("station"); ok {
			for _, v := range []interface{}{ac.New, ac.Old} {
				if id, ok := model.AsID(v); ok {
					return id, true
				}
				if ref, ok := model.AsIDReference(v); ok && len(ref.IDs) == 1 && ref.IDs[0] != nil {
					return *ref.IDs[0], true
				}
			}
		}
	}
	return 0, false
}

// Ledger keeps live rental and return counters while history is replayed
type Ledger struct {
	total    Counts
	users    map[int]*Counts
	stations map[int]*Counts
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{
		users:    make(map[int]*Counts),
		stations: make(map[int]*Counts),
	}
}

// EventApplied counts the event forward and uncounts it backward
func (l *Ledger) EventApplied(event *model.Event, forward bool) {
	r, ok := Classify(event)
	if !ok {
		return
	}
	n := 1
	if !forward {
		n = -1
	}
	l.total.add(r, n)
	bucket(l.users, r.User).add(r, n)
	if r.HasStation {
		bucket(l.stations, r.Station).add(r, n)
	}
}

func bucket(m map[int]*Counts, id int) *Counts {
	c, ok := m[id]
	if !ok {
		c = &Counts{}
		m[id] = c
	}
	return c
}

// Total returns the system-wide counters
func (l *Ledger) Total() Counts {
	return l.total
}

// User returns the counters of one user
func (l *Ledger) User(id int) Counts {
	if c, ok := l.users[id]; ok {
		return *c
	}
	return Counts{}
}

// Station returns the counters of one station
func (l *Ledger) Station(id int) Counts {
	if c, ok := l.stations[id]; ok {
		return *c
	}
	return Counts{}
}
