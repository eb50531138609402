package diff

import (
	"testing"

	"github.com/penwyp/go-fleet-replay/internal/core/entity"
	"github.com/penwyp/go-fleet-replay/internal/core/geo"
	"github.com/penwyp/go-fleet-replay/internal/core/ledger"
	"github.com/penwyp/go-fleet-replay/internal/core/model"
	"github.com/penwyp/go-fleet-replay/internal/core/motion"
	"github.com/penwyp/go-fleet-replay/internal/testing/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadStore(t *testing.T, snap model.Snapshot) *entity.Store {
	t.Helper()
	store := entity.NewStore(nil)
	require.NoError(t, store.Load(snap))
	return store
}

// materializeAll renders the whole store for equality checks
func materializeAll(t *testing.T, store *entity.Store) map[string]interface{} {
	t.Helper()
	out := make(map[string]interface{})
	for _, typ := range store.Types() {
		for _, id := range store.IDs(typ) {
			m, err := store.Materialize(typ, id)
			require.NoError(t, err)
			out[entity.Key{Type: typ, ID: id}.String()] = m
		}
	}
	return out
}

func TestRentalForwardBackward(t *testing.T) {
	store := loadStore(t, fixtures.RentalSnapshot())
	engine := New(store)
	entry := fixtures.RentalEntry(5)

	user, err := store.Get("users", 1)
	require.NoError(t, err)
	bike, err := store.Get("bikes", 100)
	require.NoError(t, err)
	station, err := store.Get("stations", 10)
	require.NoError(t, err)

	require.NoError(t, engine.ApplyEntry(&entry, true))
	assert.Same(t, bike, user.Ref("bike"))
	assert.Nil(t, bike.Ref("station"))
	assert.Equal(t, []*entity.Entity{nil}, station.Refs("bikes"))

	require.NoError(t, engine.ApplyEntry(&entry, false))
	assert.Nil(t, user.Ref("bike"))
	assert.Same(t, station, bike.Ref("station"))
	assert.Equal(t, []*entity.Entity{bike}, station.Refs("bikes"))
}

func TestTripRoundTrip(t *testing.T) {
	store := loadStore(t, fixtures.TripSnapshot())
	engine := New(store)
	before := materializeAll(t, store)

	var entries []model.ChangeEntry
	for _, page := range fixtures.TripPages() {
		entries = append(entries, page...)
	}

	states := []map[string]interface{}{before}
	for i := range entries {
		require.NoError(t, engine.ApplyEntry(&entries[i], true))
		states = append(states, materializeAll(t, store))
	}
	for i := len(entries) - 1; i >= 0; i-- {
		require.NoError(t, engine.ApplyEntry(&entries[i], false))
		assert.Equal(t, states[i], materializeAll(t, store), "state before entry %d", i)
	}
}

func TestReferenceErrorLeavesStoreUntouched(t *testing.T) {
	store := loadStore(t, fixtures.RentalSnapshot())
	engine := New(store)
	before := materializeAll(t, store)

	entry := model.ChangeEntry{Time: 1, Events: []model.Event{
		{
			Name: "Fine",
			Changes: map[string][]model.Delta{
				"users": {fixtures.Delta(1, fixtures.Change("bike", nil, 100.0))},
			},
		},
		{
			Name: "Corrupt",
			Changes: map[string][]model.Delta{
				"bikes": {fixtures.Delta(100, fixtures.Change("station", 10.0, 77.0))},
			},
		},
	}}

	err := engine.ApplyEntry(&entry, true)
	var refErr *model.ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "stations", refErr.Type)
	assert.Equal(t, 77, refErr.ID)
	assert.True(t, model.IsFatal(err))
	assert.Equal(t, before, materializeAll(t, store))

	missing := model.Event{Name: "Ghost", Changes: map[string][]model.Delta{
		"users": {fixtures.Delta(42, fixtures.Change("bike", nil, nil))},
	}}
	require.ErrorAs(t, engine.ApplyForward(&missing), &refErr)
	assert.Equal(t, 42, refErr.ID)
}

type recorder struct {
	deltas []string
	events []string
}

func (r *recorder) DeltaApplied(e *entity.Entity, _ *model.Delta, forward bool) {
	r.deltas = append(r.deltas, e.Key().String())
}

func (r *recorder) EventApplied(event *model.Event, forward bool) {
	r.events = append(r.events, event.Name)
}

func TestApplicationOrder(t *testing.T) {
	store := loadStore(t, fixtures.RentalSnapshot())
	rec := &recorder{}
	engine := New(store, WithDeltaObserver(rec), WithEventObserver(rec))

	entry := fixtures.RentalEntry(5)
	entry.Events = append(entry.Events, model.Event{
		Name: "Second",
		Changes: map[string][]model.Delta{
			"stations": {fixtures.Delta(10, fixtures.Change("capacity", 1.0, 2.0))},
		},
	})

	require.NoError(t, engine.ApplyEntry(&entry, true))
	assert.Equal(t, []string{"users[1]", "bikes[100]", "stations[10]", "stations[10]"}, rec.deltas)
	assert.Equal(t, []string{"RentSuccessful", "Second"}, rec.events)

	rec.deltas, rec.events = nil, nil
	require.NoError(t, engine.ApplyEntry(&entry, false))
	assert.Equal(t, []string{"stations[10]", "stations[10]", "bikes[100]", "users[1]"}, rec.deltas)
	assert.Equal(t, []string{"Second", "RentSuccessful"}, rec.events)
}

func TestLedgerObserver(t *testing.T) {
	store := loadStore(t, fixtures.TripSnapshot())
	l := ledger.New()
	engine := New(store, WithEventObserver(l))

	pages := fixtures.TripPages()
	var entries []model.ChangeEntry
	for _, page := range pages {
		entries = append(entries, page...)
	}
	for i := range entries {
		require.NoError(t, engine.ApplyEntry(&entries[i], true))
	}
	assert.Equal(t, ledger.Counts{SuccessfulRentals: 1, SuccessfulReturns: 1}, l.User(1))
	assert.Equal(t, ledger.Counts{SuccessfulRentals: 1}, l.Station(10))
	assert.Equal(t, ledger.Counts{SuccessfulReturns: 1}, l.Station(11))

	for i := len(entries) - 1; i >= 0; i-- {
		require.NoError(t, engine.ApplyEntry(&entries[i], false))
	}
	assert.Equal(t, ledger.Counts{}, l.Total())
}

func TestMotionSync(t *testing.T) {
	store := loadStore(t, fixtures.TripSnapshot())
	in := motion.New(geo.Haversine)
	TrackAll(store, in)
	engine := New(store, WithDeltaObserver(MotionSync{Store: store, Motion: in}))
	walker := entity.Key{Type: "users", ID: 1}

	_, ok := in.Position(walker)
	assert.False(t, ok, "no route before the user appears")

	entries := fixtures.TripPages()[0]
	require.NoError(t, engine.ApplyEntry(&entries[0], true))
	pos, ok := in.Position(walker)
	require.True(t, ok)
	assert.Equal(t, geo.Point{Latitude: 39.9991, Longitude: -3.0}, pos)

	in.Advance(walker, 10)
	progress, _ := in.Progress(walker)
	assert.InDelta(t, 10.0*1.0, progress.Residual, 1e-9, "walking velocity is 1")

	require.NoError(t, engine.ApplyEntry(&entries[1], true))
	_, ok = in.Position(walker)
	assert.False(t, ok, "route cleared on arrival")

	require.NoError(t, engine.ApplyEntry(&entries[2], true))
	in.Advance(walker, 10)
	progress, _ = in.Progress(walker)
	assert.InDelta(t, 10.0*4.0, progress.Residual, 1e-9, "cycling velocity is 4")

	require.NoError(t, engine.ApplyEntry(&entries[2], false))
	require.NoError(t, engine.ApplyEntry(&entries[1], false))
	progress, ok = in.Progress(walker)
	require.True(t, ok)
	assert.InDelta(t, 10.0, progress.Residual, 1e-9, "walk progress restored")
}
