package diff

import (
	"github.com/penwyp/go-fleet-replay/internal/core/entity"
	"github.com/penwyp/go-fleet-replay/internal/core/model"
	"github.com/penwyp/go-fleet-replay/internal/core/motion"
)

// MotionSync tells the interpolator when a moving entity's route or speed
// may have changed
type MotionSync struct {
	Store  *entity.Store
	Motion *motion.Interpolator
}

func (m MotionSync) DeltaApplied(e *entity.Entity, delta *model.Delta, forward bool) {
	mv := m.Store.TypeSchema(e.Type).Motion
	if mv == nil {
		return
	}
	_, routeChanged := delta.Attribute(mv.RouteAttr)
	m.Motion.Update(e.Key(), e.Route(mv.RouteAttr), mv.Speed(e), routeChanged, forward)
}

// TrackAll registers every moving entity of the store with the interpolator
func TrackAll(store *entity.Store, in *motion.Interpolator) {
	for _, typ := range store.Types() {
		mv := store.TypeSchema(typ).Motion
		if mv == nil {
			continue
		}
		for _, id := range store.IDs(typ) {
			e, err := store.Get(typ, id)
			if err != nil {
				continue
			}
			in.SetRoute(e.Key(), e.Route(mv.RouteAttr), mv.Speed(e))
		}
	}
}
