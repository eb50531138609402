package entity

import (
	"errors"
	"testing"

	"github.com/penwyp/go-fleet-replay/internal/core/geo"
	"github.com/penwyp/go-fleet-replay/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rentalSnapshot() model.Snapshot {
	return model.Snapshot{
		"users": {
			{"id": 1.0, "bike": nil, "walkingVelocity": 1.4, "cyclingVelocity": 5.0, "route": nil},
		},
		"bikes": {
			{"id": 100.0, "station": map[string]interface{}{"type": "stations", "id": 10.0}},
		},
		"stations": {
			{
				"id":       10.0,
				"capacity": 1.0,
				"position": map[string]interface{}{"latitude": 40.4, "longitude": -3.7},
				"bikes":    map[string]interface{}{"type": "bikes", "id": []interface{}{100.0}},
			},
		},
	}
}

func TestStoreLoadResolvesForwardReferences(t *testing.T) {
	store := NewStore(BikeSharing())
	require.NoError(t, store.Load(rentalSnapshot()))

	bike, err := store.Get("bikes", 100)
	require.NoError(t, err)
	station, err := store.Get("stations", 10)
	require.NoError(t, err)

	// bikes sort before stations, so the station reference is resolved late
	assert.Same(t, station, bike.Ref("station"))
	require.Len(t, station.Refs("bikes"), 1)
	assert.Same(t, bike, station.Refs("bikes")[0])

	p, ok := station.Point("position")
	require.True(t, ok)
	assert.Equal(t, geo.Point{Latitude: 40.4, Longitude: -3.7}, p)

	user, err := store.Get("users", 1)
	require.NoError(t, err)
	assert.Nil(t, user.Ref("bike"))
	assert.Equal(t, 1.4, user.Number("walkingVelocity"))
	assert.Nil(t, user.Route("route"))
}

func TestStoreLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		snap   model.Snapshot
		target interface{}
	}{
		{
			name:   "missing_id",
			snap:   model.Snapshot{"bikes": {{"station": nil}}},
			target: new(*model.ValidationError),
		},
		{
			name:   "duplicate_id",
			snap:   model.Snapshot{"bikes": {{"id": 1.0}, {"id": 1.0}}},
			target: new(*model.ValidationError),
		},
		{
			name:   "dangling_reference",
			snap:   model.Snapshot{"bikes": {{"id": 1.0, "station": 99.0}}},
			target: new(*model.ReferenceError),
		},
		{
			name: "bad_point",
			snap: model.Snapshot{"stations": {
				{"id": 1.0, "position": "here"},
			}},
			target: new(*model.ValidationError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(BikeSharing())
			require.NoError(t, store.Load(rentalSnapshot()))

			err := store.Load(tt.snap)
			require.Error(t, err)
			assert.True(t, errors.As(err, tt.target), "unexpected error type %T: %v", err, err)

			// failed loads expose no partial state
			_, getErr := store.Get("stations", 10)
			assert.NoError(t, getErr)
		})
	}
}

func TestStoreResolve(t *testing.T) {
	store := NewStore(BikeSharing())
	require.NoError(t, store.Load(rentalSnapshot()))
	bike, _ := store.Get("bikes", 100)

	t.Run("bare_id_on_reference_attribute", func(t *testing.T) {
		v, err := store.Resolve("users", "bike", 100.0)
		require.NoError(t, err)
		assert.Same(t, bike, v)
	})

	t.Run("marker_array_preserves_null", func(t *testing.T) {
		raw := map[string]interface{}{"type": "bikes", "id": []interface{}{nil, 100.0}}
		v, err := store.Resolve("stations", "bikes", raw)
		require.NoError(t, err)
		assert.Equal(t, []*Entity{nil, bike}, v)
	})

	t.Run("null_single_reference", func(t *testing.T) {
		v, err := store.Resolve("users", "bike", nil)
		require.NoError(t, err)
		assert.Nil(t, v.(*Entity))
	})

	t.Run("missing_referent", func(t *testing.T) {
		_, err := store.Resolve("users", "bike", 7.0)
		var refErr *model.ReferenceError
		require.ErrorAs(t, err, &refErr)
		assert.Equal(t, "bikes", refErr.Type)
		assert.Equal(t, 7, refErr.ID)
	})

	t.Run("route", func(t *testing.T) {
		raw := map[string]interface{}{"points": []interface{}{
			map[string]interface{}{"latitude": 0.0, "longitude": 0.0},
			map[string]interface{}{"latitude": 0.0, "longitude": 1.0},
		}}
		v, err := store.Resolve("users", "route", raw)
		require.NoError(t, err)
		assert.Len(t, v.(*geo.Route).Points, 2)
	})

	t.Run("plain", func(t *testing.T) {
		v, err := store.Resolve("users", "walkingVelocity", 2.0)
		require.NoError(t, err)
		assert.Equal(t, 2.0, v)
	})
}

func TestStoreApplyAttributeAndMaterialize(t *testing.T) {
	store := NewStore(BikeSharing())
	require.NoError(t, store.Load(rentalSnapshot()))
	bike, _ := store.Get("bikes", 100)

	require.NoError(t, store.ApplyAttribute("users", 1, "bike", bike))
	state, err := store.Materialize("users", 1)
	require.NoError(t, err)
	assert.Equal(t, 100, state["bike"])
	assert.Equal(t, 1, state["id"])

	station, err := store.Materialize("stations", 10)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{100}, station["bikes"])

	err = store.ApplyAttribute("users", 2, "bike", nil)
	var refErr *model.ReferenceError
	assert.ErrorAs(t, err, &refErr)
}

func TestStoreTypesAndSpeed(t *testing.T) {
	snap := rentalSnapshot()
	snap["trucks"] = []model.RawEntity{{"id": 3.0}, {"id": 1.0}}

	store := NewStore(BikeSharing())
	require.NoError(t, store.Load(snap))

	assert.Equal(t, []string{"users", "bikes", "stations", "trucks"}, store.Types())
	assert.Equal(t, []int{1, 3}, store.IDs("trucks"))
	assert.Equal(t, 2, store.Count("trucks"))

	user, _ := store.Get("users", 1)
	ts, ok := store.Schema().Type("users")
	require.True(t, ok)
	assert.Equal(t, 1.4, ts.Motion.Speed(user))

	bike, _ := store.Get("bikes", 100)
	require.NoError(t, store.ApplyAttribute("users", 1, "bike", bike))
	assert.Equal(t, 5.0, ts.Motion.Speed(user))
}
