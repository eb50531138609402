package ledger

import (
	"testing"

	"github.com/penwyp/go-fleet-replay/internal/core/model"
	"github.com/penwyp/go-fleet-replay/internal/testing/fixtures"
	"github.com/stretchr/testify/assert"
)

func arrival(name string, bikeOld, bikeNew interface{}, withStation bool) *model.Event {
	ev := &model.Event{
		Name: name,
		Changes: map[string][]model.Delta{
			"users": {fixtures.Delta(1, fixtures.Change("bike", bikeOld, bikeNew))},
		},
	}
	if withStation {
		ev.Changes["stations"] = []model.Delta{fixtures.Delta(10, fixtures.Change("bikes",
			[]interface{}{100.0}, []interface{}{nil}))}
	}
	return ev
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		event *model.Event
		want  Record
		ok    bool
	}{
		{
			name:  "rent without reservation gets a bike",
			event: arrival(EventRentWithoutReservation, nil, 100.0, true),
			want:  Record{Success: true, User: 1, Station: 10, HasStation: true},
			ok:    true,
		},
		{
			name:  "rent without reservation finds no bike",
			event: arrival(EventRentWithoutReservation, nil, nil, false),
			want:  Record{User: 1},
			ok:    true,
		},
		{
			name:  "return without reservation docks the bike",
			event: arrival(EventReturnWithoutReservation, 100.0, nil, true),
			want:  Record{Return: true, Success: true, User: 1, Station: 10, HasStation: true},
			ok:    true,
		},
		{
			name:  "return without reservation keeps the bike",
			event: arrival(EventReturnWithoutReservation, 100.0, 100.0, false),
			want:  Record{Return: true, User: 1},
			ok:    true,
		},
		{
			name:  "rent with reservation",
			event: arrival(EventRentWithReservation, nil, 100.0, false),
			want:  Record{Success: true, User: 1},
			ok:    true,
		},
		{
			name:  "return with reservation",
			event: arrival(EventReturnWithReservation, 100.0, nil, false),
			want:  Record{Return: true, Success: true, User: 1},
			ok:    true,
		},
		{
			name:  "unrelated event",
			event: arrival("EventUserAppears", nil, nil, false),
		},
		{
			name:  "no user delta",
			event: &model.Event{Name: EventRentSuccessful},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.event)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyStationFromBikeDock(t *testing.T) {
	ev := &model.Event{
		Name: EventRentSuccessful,
		Changes: map[string][]model.Delta{
			"users": {fixtures.Delta(1, fixtures.Change("bike", nil, 100.0))},
			"bikes": {fixtures.Delta(100, fixtures.Change("station", 12.0, nil))},
		},
	}
	r, ok := Classify(ev)
	assert.True(t, ok)
	assert.True(t, r.HasStation)
	assert.Equal(t, 12, r.Station)
}

func TestLedgerForwardBackwardIsSymmetric(t *testing.T) {
	l := New()
	events := []*model.Event{
		arrival(EventRentWithoutReservation, nil, 100.0, true),
		arrival(EventReturnWithoutReservation, 100.0, nil, true),
		arrival(EventReturnWithoutReservation, 100.0, 100.0, false),
		arrival(EventRentWithoutReservation, nil, nil, false),
	}

	for _, ev := range events {
		l.EventApplied(ev, true)
	}
	assert.Equal(t, Counts{SuccessfulRentals: 1, FailedRentals: 1, SuccessfulReturns: 1, FailedReturns: 1}, l.Total())
	assert.Equal(t, l.Total(), l.User(1))
	assert.Equal(t, Counts{SuccessfulRentals: 1, SuccessfulReturns: 1}, l.Station(10))

	for i := len(events) - 1; i >= 0; i-- {
		l.EventApplied(events[i], false)
	}
	assert.Equal(t, Counts{}, l.Total())
	assert.Equal(t, Counts{}, l.User(1))
	assert.Equal(t, Counts{}, l.Station(10))
	assert.Equal(t, Counts{}, l.Station(99))
}
