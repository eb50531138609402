package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/penwyp/go-fleet-replay/internal/core/model"
)

// MemoryService serves a history held in memory. Failures can be injected
// per page to exercise fetch error handling.
type MemoryService struct {
	mu       sync.Mutex
	snapshot model.Snapshot
	pages    []*model.Page
	failures map[int]error
	calls    map[int]int
}

// NewMemoryService validates the pages and builds the service
func NewMemoryService(snapshot model.Snapshot, pages ...[]model.ChangeEntry) (*MemoryService, error) {
	s := &MemoryService{
		snapshot: snapshot,
		failures: make(map[int]error),
		calls:    make(map[int]int),
	}
	for _, entries := range pages {
		if err := s.Append(entries); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Append adds a page at the end of the timeline
func (s *MemoryService) Append(entries []model.ChangeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, err := NewPage(len(s.pages), 0, 0, entries)
	if err != nil {
		return err
	}
	if n := len(s.pages); n > 0 && page.Start < s.pages[n-1].End {
		return model.NewValidationError("history", "page %d starts at %v before page %d ends at %v",
			page.Index, page.Start, n-1, s.pages[n-1].End)
	}
	s.pages = append(s.pages, page)
	return nil
}

// FailPage makes GetPage(index) return err until cleared with a nil err
func (s *MemoryService) FailPage(index int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, index)
		return
	}
	s.failures[index] = err
}

// Calls returns how many times a page was requested
func (s *MemoryService) Calls(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[index]
}

func (s *MemoryService) ReadEntities(ctx context.Context) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.snapshot, nil
}

func (s *MemoryService) PageCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages), nil
}

func (s *MemoryService) GetPage(ctx context.Context, index int) (*model.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[index]++
	if err := s.failures[index]; err != nil {
		return nil, err
	}
	if index < 0 || index >= len(s.pages) {
		return nil, fmt.Errorf("page %d out of range [0, %d)", index, len(s.pages))
	}
	return s.pages[index], nil
}
