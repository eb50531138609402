package pager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/penwyp/go-fleet-replay/internal/core/history"
	"github.com/penwyp/go-fleet-replay/internal/core/model"
	"github.com/penwyp/go-fleet-replay/internal/util"
)

// DefaultFetchTimeout bounds a single page fetch
const DefaultFetchTimeout = 10 * time.Second

// prefetch is an in-flight or finished page load. The goroutine only
// writes page and err before closing done.
type prefetch struct {
	index int
	done  chan struct{}
	page  *model.Page
	err   error
}

func (p *prefetch) ready() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// SwapFunc is called after the window moved to another page
type SwapFunc func(forward bool, index int)

// Window keeps the previous, current and next pages of a history and the
// read cursor inside the current page. The cursor counts the entries of the
// current page that have been applied.
//
// Window is not safe for concurrent use; callers serialize access. Prefetch
// goroutines never touch the window itself.
type Window struct {
	service      history.Service
	fetchTimeout time.Duration
	onSwap       SwapFunc

	base   context.Context
	cancel context.CancelFunc

	pageCount int
	// settled is the page count at Init. Pages past it were added by Refresh
	// and may still be being written.
	settled int
	current *model.Page
	prev      *prefetch
	next      *prefetch
	pos       int
}

// Option configures a Window
type Option func(*Window)

// WithFetchTimeout overrides DefaultFetchTimeout
func WithFetchTimeout(d time.Duration) Option {
	return func(w *Window) {
		if d > 0 {
			w.fetchTimeout = d
		}
	}
}

// WithSwapHook registers a callback for page swaps
func WithSwapHook(fn SwapFunc) Option {
	return func(w *Window) {
		w.onSwap = fn
	}
}

// New creates an empty window over service. Call Init before use.
func New(service history.Service, opts ...Option) *Window {
	w := &Window{
		service:      service,
		fetchTimeout: DefaultFetchTimeout,
		base:         context.Background(),
		cancel:       func() {},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Init loads the first page as current and starts fetching the second.
// Prefetches outlive ctx's cancellation and stop on Close.
func (w *Window) Init(ctx context.Context) error {
	w.cancel()
	w.base, w.cancel = context.WithCancel(context.WithoutCancel(ctx))

	count, err := w.service.PageCount(ctx)
	if err != nil {
		return &model.FetchError{Page: -1, Err: err}
	}
	if count == 0 {
		return model.NewValidationError("history", "no change pages")
	}

	first := w.fetch(0)
	page, err := w.await(ctx, first)
	if err != nil {
		return err
	}

	w.pageCount = count
	w.settled = count
	w.current = page
	w.pos = 0
	w.prev = nil
	w.next = nil
	if count > 1 {
		w.next = w.fetch(1)
	}
	util.LogDebugf("Page window initialised: %d pages, page 0 has %d entries", count, page.Len())
	return nil
}

// Refresh rereads the page count so a growing history can be followed.
// A count that shrank is ignored. A failed prefetch of the next page is
// dropped and started again, since the file may have been completed since.
func (w *Window) Refresh(ctx context.Context) (int, error) {
	count, err := w.service.PageCount(ctx)
	if err != nil {
		return w.pageCount, &model.FetchError{Page: -1, Err: err}
	}
	if count > w.pageCount {
		util.LogDebugf("Page window: history grew from %d to %d pages", w.pageCount, count)
		w.pageCount = count
	}
	if w.next != nil && w.next.ready() && w.next.err != nil {
		w.next = nil
	}
	if w.current != nil && w.next == nil && w.current.Index+1 < w.pageCount {
		w.next = w.fetch(w.current.Index+1)
	}
	return w.pageCount, nil
}

// Close stops in-flight prefetches
func (w *Window) Close() {
	w.cancel()
}

// PageCount returns the number of pages known to the window
func (w *Window) PageCount() int {
	return w.pageCount
}

// Current returns the current page
func (w *Window) Current() *model.Page {
	return w.current
}

// Previous returns the previous page if it is loaded, without waiting
func (w *Window) Previous() *model.Page {
	return loaded(w.prev)
}

// Next returns the next page if it is loaded, without waiting
func (w *Window) Next() *model.Page {
	return loaded(w.next)
}

func loaded(p *prefetch) *model.Page {
	if p == nil || !p.ready() || p.err != nil {
		return nil
	}
	return p.page
}

// Resident returns how many pages are loaded in memory
func (w *Window) Resident() int {
	n := 0
	if w.current != nil {
		n++
	}
	if w.Previous() != nil {
		n++
	}
	if w.Next() != nil {
		n++
	}
	return n
}

// Cursor returns the current page index and the number of its applied entries
func (w *Window) Cursor() (page, pos int) {
	if w.current == nil {
		return -1, 0
	}
	return w.current.Index, w.pos
}

// AtStart reports whether no entry has been applied
func (w *Window) AtStart() bool {
	return w.current != nil && w.current.Index == 0 && w.pos == 0
}

// AtEnd reports whether every entry of the last page has been applied
func (w *Window) AtEnd() bool {
	return w.current != nil && w.current.Index == w.pageCount-1 && w.pos == w.current.Len()
}

// PeekForward returns the first entry not yet applied. When the current page
// is used up the window advances to the next page first. ErrExhausted is
// returned after the last entry of the last page.
func (w *Window) PeekForward(ctx context.Context) (*model.ChangeEntry, error) {
	if w.current == nil {
		return nil, model.ErrExhausted
	}
	if w.pos < w.current.Len() {
		return &w.current.Entries[w.pos], nil
	}
	if err := w.AdvancePage(ctx); err != nil {
		return nil, err
	}
	return &w.current.Entries[0], nil
}

// ConsumeForward moves the cursor past the entry returned by PeekForward
func (w *Window) ConsumeForward() {
	if w.pos < w.current.Len() {
		w.pos++
	}
}

// PeekBackward returns the last applied entry. When the cursor is at the
// start of the current page the window retreats to the previous page first.
// ErrExhausted is returned when nothing has been applied.
func (w *Window) PeekBackward(ctx context.Context) (*model.ChangeEntry, error) {
	if w.current == nil {
		return nil, model.ErrExhausted
	}
	if w.pos > 0 {
		return &w.current.Entries[w.pos-1], nil
	}
	if err := w.RetreatPage(ctx); err != nil {
		return nil, err
	}
	return &w.current.Entries[w.pos-1], nil
}

// ConsumeBackward moves the cursor before the entry returned by PeekBackward
func (w *Window) ConsumeBackward() {
	if w.pos > 0 {
		w.pos--
	}
}

// AdvancePage makes the next page current with the cursor at its start.
// The old previous page is dropped and the new next page is prefetched.
// On a fetch failure the window is left unchanged.
func (w *Window) AdvancePage(ctx context.Context) error {
	if w.current == nil {
		return model.ErrExhausted
	}
	index := w.current.Index + 1
	if index >= w.pageCount {
		return model.ErrExhausted
	}
	if w.next == nil || w.next.index != index {
		w.next = w.fetch(index)
	}
	page, err := w.await(ctx, w.next)
	if err != nil {
		w.next = nil
		return err
	}

	w.prev = resolved(w.current)
	w.current = page
	w.pos = 0
	w.next = nil
	if index+1 < w.pageCount {
		w.next = w.fetch(index+1)
	}
	util.LogDebugf("Page window: advanced to page %d", index)
	if w.onSwap != nil {
		w.onSwap(true, index)
	}
	return nil
}

// RetreatPage makes the previous page current with every entry applied.
// The old next page is dropped and the new previous page is prefetched.
// On a fetch failure the window is left unchanged.
func (w *Window) RetreatPage(ctx context.Context) error {
	if w.current == nil {
		return model.ErrExhausted
	}
	index := w.current.Index - 1
	if index < 0 {
		return model.ErrExhausted
	}
	if w.prev == nil || w.prev.index != index {
		w.prev = w.fetch(index)
	}
	page, err := w.await(ctx, w.prev)
	if err != nil {
		w.prev = nil
		return err
	}

	w.next = resolved(w.current)
	w.current = page
	w.pos = page.Len()
	w.prev = nil
	if index > 0 {
		w.prev = w.fetch(index-1)
	}
	util.LogDebugf("Page window: retreated to page %d", index)
	if w.onSwap != nil {
		w.onSwap(false, index)
	}
	return nil
}

// resolved wraps an already loaded page as a finished prefetch
func resolved(page *model.Page) *prefetch {
	p := &prefetch{index: page.Index, done: make(chan struct{}), page: page}
	close(p.done)
	return p
}

// fetch starts loading a page in the background
func (w *Window) fetch(index int) *prefetch {
	p := &prefetch{index: index, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		fetchCtx, cancel := context.WithTimeout(w.base, w.fetchTimeout)
		defer cancel()
		page, err := w.service.GetPage(fetchCtx, index)
		if err == nil && page == nil {
			err = errors.New("empty response")
		}
		if err == nil && page.Index != index {
			err = fmt.Errorf("service returned page %d", page.Index)
		}
		p.page, p.err = page, err
	}()
	return p
}

// await waits for a fetch and classifies its failure. A malformed page that
// was present at Init is corrupt history; one added later is reported as a
// fetch failure so it can be retried once the writer is done.
func (w *Window) await(ctx context.Context, p *prefetch) (*model.Page, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		return nil, &model.FetchError{Page: p.index, Err: ctx.Err()}
	}
	if p.err != nil {
		var valErr *model.ValidationError
		if errors.As(p.err, &valErr) {
			if p.index < w.settled {
				return nil, p.err
			}
			util.LogWarnf("Page %d is not readable yet: %v", p.index, p.err)
		} else {
			util.LogErrorf("Page %d fetch failed: %v", p.index, p.err)
		}
		return nil, &model.FetchError{Page: p.index, Err: p.err}
	}
	if p.page.Len() == 0 {
		if p.index >= w.settled {
			return nil, &model.FetchError{Page: p.index, Err: errors.New("no change entries yet")}
		}
		return nil, model.NewValidationError(fmt.Sprintf("page %d", p.index), "no change entries")
	}
	return p.page, nil
}
