package layout

import (
	"io"

	"github.com/penwyp/go-fleet-replay/internal/core/playback"
)

// Frame is what one dashboard render shows
type Frame struct {
	Status playback.Status
	// Type is the entity type listed in the table
	Type string
	// Rows are the materialized entities of Type, already sorted
	Rows      []map[string]interface{}
	SortField string
	// Wall is the formatted wall clock time
	Wall string
}

// LayoutStrategy defines the interface for different layout rendering strategies
type LayoutStrategy interface {
	Render(w io.Writer, f Frame)
	GetName() string
}

// GetLayoutStrategy returns the appropriate layout strategy based on the style
func GetLayoutStrategy(layoutStyle int) LayoutStrategy {
	strategies := map[int]LayoutStrategy{
		0: &FullLayoutStrategy{},
		1: &MinimalLayoutStrategy{},
	}

	if strategy, exists := strategies[layoutStyle]; exists {
		return strategy
	}

	// Default to full dashboard if invalid style
	return &FullLayoutStrategy{}
}
