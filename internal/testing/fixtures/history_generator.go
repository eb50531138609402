package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-fleet-replay/internal/core/model"
)

// Station and user coordinates used by the trip history
var (
	UserHome      = Point(39.9991, -3.0)
	StationAPoint = Point(40.0, -3.0)
	StationBPoint = Point(40.01, -3.0)
)

// HistoryGenerator writes simulator history directories for tests
type HistoryGenerator struct {
	baseDir string
}

// NewHistoryGenerator creates a generator rooted at baseDir
func NewHistoryGenerator(baseDir string) *HistoryGenerator {
	return &HistoryGenerator{baseDir: baseDir}
}

// GetBaseDir returns the history directory
func (g *HistoryGenerator) GetBaseDir() string {
	return g.baseDir
}

// WriteEntities writes entities.json
func (g *HistoryGenerator) WriteEntities(snap model.Snapshot) error {
	return g.writeJSON("entities.json", snap)
}

// WritePage writes one change file named after its time range and entry count
func (g *HistoryGenerator) WritePage(entries []model.ChangeEntry) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("page needs at least one entry")
	}
	name := PageFileName(entries[0].Time, entries[len(entries)-1].Time, len(entries))
	return name, g.writeJSON(name, entries)
}

// WriteHistory writes a snapshot and its pages
func (g *HistoryGenerator) WriteHistory(snap model.Snapshot, pages ...[]model.ChangeEntry) error {
	if err := g.WriteEntities(snap); err != nil {
		return err
	}
	for _, page := range pages {
		if _, err := g.WritePage(page); err != nil {
			return err
		}
	}
	return nil
}

// WriteRaw writes arbitrary content, used for malformed file cases
func (g *HistoryGenerator) WriteRaw(name string, data []byte) error {
	if err := os.MkdirAll(g.baseDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(g.baseDir, name), data, 0644)
}

func (g *HistoryGenerator) writeJSON(name string, v interface{}) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return g.WriteRaw(name, data)
}

// PageFileName formats `<start>-<end>_<count>.json`
func PageFileName(start, end float64, count int) string {
	return fmt.Sprintf("%s-%s_%d.json",
		strconv.FormatFloat(start, 'f', -1, 64),
		strconv.FormatFloat(end, 'f', -1, 64),
		count)
}

// Point builds a wire point
func Point(lat, lon float64) map[string]interface{} {
	return map[string]interface{}{"latitude": lat, "longitude": lon}
}

// Route builds a wire route
func Route(points ...map[string]interface{}) map[string]interface{} {
	raw := make([]interface{}, len(points))
	for i, p := range points {
		raw[i] = p
	}
	return map[string]interface{}{"points": raw}
}

// Change builds one {old, new} attribute change
func Change(name string, old, new interface{}) model.AttributeChange {
	return model.AttributeChange{Name: name, Old: old, New: new}
}

// Delta builds a delta for one entity
func Delta(id int, changes ...model.AttributeChange) model.Delta {
	return model.Delta{ID: id, Attributes: changes}
}

// RentalSnapshot has one user, one station with capacity one and one bike docked there
func RentalSnapshot() model.Snapshot {
	return model.Snapshot{
		"users": {
			{"id": 1.0, "bike": nil, "position": UserHome, "route": nil,
				"walkingVelocity": 1.0, "cyclingVelocity": 4.0},
		},
		"bikes": {
			{"id": 100.0, "station": 10.0},
		},
		"stations": {
			{"id": 10.0, "capacity": 1.0, "position": StationAPoint, "bikes": []interface{}{100.0}},
		},
	}
}

// RentalEntry is a successful rental of bike 100 by user 1 at station 10
func RentalEntry(t float64) model.ChangeEntry {
	return model.ChangeEntry{
		Time: t,
		Events: []model.Event{{
			Name: "RentSuccessful",
			Changes: map[string][]model.Delta{
				"bikes": {Delta(100, Change("station", 10.0, nil))},
				"users": {Delta(1, Change("bike", nil, 100.0))},
				"stations": {Delta(10, Change("bikes",
					[]interface{}{100.0}, []interface{}{nil}))},
			},
		}},
	}
}

// CounterEntries returns one entry per time, each incrementing a numeric
// attribute of one entity so every applied entry is observable
func CounterEntries(typ string, id int, attr string, from int, times ...float64) []model.ChangeEntry {
	entries := make([]model.ChangeEntry, len(times))
	for i, t := range times {
		n := float64(from + i)
		entries[i] = model.ChangeEntry{
			Time: t,
			Events: []model.Event{{
				Name: "Tick",
				Changes: map[string][]model.Delta{
					typ: {Delta(id, Change(attr, n, n+1))},
				},
			}},
		}
	}
	return entries
}

// TripSnapshot is the starting state of TripPages
func TripSnapshot() model.Snapshot {
	return model.Snapshot{
		"users": {
			{"id": 1.0, "bike": nil, "destinationStation": nil, "reservations": []interface{}{},
				"position": UserHome, "route": nil,
				"walkingVelocity": 1.0, "cyclingVelocity": 4.0},
		},
		"bikes": {
			{"id": 100.0, "station": map[string]interface{}{"type": "stations", "id": 10.0}},
		},
		"stations": {
			{"id": 10.0, "capacity": 2.0, "position": StationAPoint,
				"bikes": map[string]interface{}{"type": "bikes", "id": []interface{}{100.0, nil}}},
			{"id": 11.0, "capacity": 2.0, "position": StationBPoint,
				"bikes": []interface{}{nil, nil}},
		},
		"reservations": {},
	}
}

// TripPages is a walk to station 10, a rental, a ride to station 11 and a
// return, split over two pages
func TripPages() [][]model.ChangeEntry {
	walk := Route(UserHome, StationAPoint)
	ride := Route(StationAPoint, StationBPoint)

	first := []model.ChangeEntry{
		{Time: 0, Events: []model.Event{{
			Name: "EventUserAppears",
			Changes: map[string][]model.Delta{
				"users": {Delta(1,
					Change("route", nil, walk),
					Change("destinationStation", nil, 10.0))},
			},
		}}},
		{Time: 100, Events: []model.Event{{
			Name: "EventUserArrivesAtStationToRentBikeWithoutReservation",
			Changes: map[string][]model.Delta{
				"users": {Delta(1,
					Change("route", walk, nil),
					Change("position", UserHome, StationAPoint),
					Change("bike", nil, 100.0))},
				"bikes": {Delta(100, Change("station", 10.0, nil))},
				"stations": {Delta(10, Change("bikes",
					[]interface{}{100.0, nil}, []interface{}{nil, nil}))},
			},
		}}},
		{Time: 101, Events: []model.Event{{
			Name: "EventUserWantsToReturnBike",
			Changes: map[string][]model.Delta{
				"users": {Delta(1,
					Change("route", nil, ride),
					Change("destinationStation", 10.0, 11.0))},
			},
		}}},
	}

	second := []model.ChangeEntry{
		{Time: 400, Events: []model.Event{{
			Name: "EventUserArrivesAtStationToReturnBikeWithoutReservation",
			Changes: map[string][]model.Delta{
				"users": {Delta(1,
					Change("route", ride, nil),
					Change("position", StationAPoint, StationBPoint),
					Change("bike", 100.0, nil))},
				"bikes": {Delta(100, Change("station", nil, 11.0))},
				"stations": {Delta(11, Change("bikes",
					[]interface{}{nil, nil}, []interface{}{100.0, nil}))},
			},
		}}},
		{Time: 401, Events: []model.Event{{
			Name: "EventUserDisappears",
			Changes: map[string][]model.Delta{
				"users": {Delta(1, Change("destinationStation", 11.0, nil))},
			},
		}}},
	}

	return [][]model.ChangeEntry{first, second}
}
