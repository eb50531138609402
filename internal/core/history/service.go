package history

import (
	"context"

	"github.com/penwyp/go-fleet-replay/internal/core/model"
)

// Service is the read-only source of a recorded history. All methods are
// idempotent and may be called repeatedly.
type Service interface {
	// ReadEntities returns the static entity snapshot
	ReadEntities(ctx context.Context) (model.Snapshot, error)
	// PageCount returns the number of change-file pages
	PageCount(ctx context.Context) (int, error)
	// GetPage returns one validated page in time order
	GetPage(ctx context.Context, index int) (*model.Page, error)
}

// TimeRange is the time span covered by a history
type TimeRange struct {
	Start float64
	End   float64
}
