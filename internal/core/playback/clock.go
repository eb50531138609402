package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/penwyp/go-fleet-replay/internal/core/diff"
	"github.com/penwyp/go-fleet-replay/internal/core/entity"
	"github.com/penwyp/go-fleet-replay/internal/core/geo"
	"github.com/penwyp/go-fleet-replay/internal/core/history"
	"github.com/penwyp/go-fleet-replay/internal/core/ledger"
	"github.com/penwyp/go-fleet-replay/internal/core/model"
	"github.com/penwyp/go-fleet-replay/internal/core/motion"
	"github.com/penwyp/go-fleet-replay/internal/core/pager"
	"github.com/penwyp/go-fleet-replay/internal/core/telemetry"
	"github.com/penwyp/go-fleet-replay/internal/util"
)

const (
	// DefaultTick is the interval between playback ticks
	DefaultTick = 200 * time.Millisecond
	// DefaultSpeed is simulated seconds per real second
	DefaultSpeed = 10.0
	// DefaultNotifyBuffer is the capacity of the notification channel
	DefaultNotifyBuffer = 64
)

var (
	// ErrZeroSpeed rejects a speed of zero
	ErrZeroSpeed = errors.New("speed must not be zero")
	// ErrNotLoaded is returned by controls used before Load
	ErrNotLoaded = errors.New("playback clock is not loaded")
)

// Config tunes a Clock. Zero values take the defaults.
type Config struct {
	Tick         time.Duration
	Speed        float64
	Distance     geo.DistanceFunc
	Schema       *entity.Schema
	FetchTimeout time.Duration
	NotifyBuffer int
	Metrics      *telemetry.Metrics
	Logger       util.LoggerInterface
}

func (c *Config) applyDefaults() {
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	if c.Speed == 0 {
		c.Speed = DefaultSpeed
	}
	if c.Distance == nil {
		c.Distance = geo.Haversine
	}
	if c.Schema == nil {
		c.Schema = entity.BikeSharing()
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = pager.DefaultFetchTimeout
	}
	if c.NotifyBuffer <= 0 {
		c.NotifyBuffer = DefaultNotifyBuffer
	}
	if c.Logger == nil {
		c.Logger = util.GetLogger()
	}
}

// Clock replays a history. All state mutation happens under one step lock,
// so only one playback step is ever in flight.
type Clock struct {
	mu sync.Mutex

	cfg     Config
	service history.Service
	log     util.LoggerInterface
	metrics *telemetry.Metrics

	store  *entity.Store
	window *pager.Window
	engine *diff.Engine
	motion *motion.Interpolator
	ledger *ledger.Ledger

	state State
	// time is the clock time, -1 before the first entry
	time float64
	// motionAt is the time the interpolator state corresponds to
	motionAt float64
	origin   float64
	speed    float64
	// fault is a corrupt-history error that stops playback for good
	fault error
	// generation changes whenever the clock stops running
	generation uint64

	notify chan Notification
	wake   chan struct{}
}

// New creates a clock over service. Call Load before any other operation.
func New(service history.Service, cfg Config) *Clock {
	cfg.applyDefaults()
	c := &Clock{
		cfg:     cfg,
		service: service,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		state:   Loading,
		time:    -1,
		speed:   cfg.Speed,
		notify:  make(chan Notification, cfg.NotifyBuffer),
		wake:    make(chan struct{}, 1),
	}
	c.store = entity.NewStore(cfg.Schema)
	c.motion = motion.New(cfg.Distance)
	c.ledger = ledger.New()
	c.engine = diff.New(c.store,
		diff.WithDeltaObserver(diff.MotionSync{Store: c.store, Motion: c.motion}),
		diff.WithEventObserver(c.ledger))
	c.window = pager.New(service,
		pager.WithFetchTimeout(cfg.FetchTimeout),
		pager.WithSwapHook(func(forward bool, index int) {
			c.metrics.PageSwapped(forward)
		}))
	return c
}

// Load reads the snapshot and the first page, then enters START
func (c *Clock) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Loading {
		return fmt.Errorf("playback clock already loaded")
	}

	snap, err := c.service.ReadEntities(ctx)
	if err != nil {
		return fmt.Errorf("read entities: %w", err)
	}
	if err := c.store.Load(snap); err != nil {
		return err
	}
	if err := c.window.Init(ctx); err != nil {
		return err
	}
	diff.TrackAll(c.store, c.motion)

	c.origin = c.window.Current().Start
	c.motionAt = c.origin
	c.time = -1
	c.log.Info("Playback loaded", util.Field{Key: "pages", Value: c.window.PageCount()},
		util.Field{Key: "origin", Value: c.origin})
	c.setState(Start)
	return nil
}

// Close stops background page loads
func (c *Clock) Close() {
	c.window.Close()
}

// setState moves to s and publishes the change. The step lock is held.
func (c *Clock) setState(s State) {
	if s == c.state {
		return
	}
	c.log.Debug("Clock state change",
		util.Field{Key: "from", Value: c.state.String()},
		util.Field{Key: "to", Value: s.String()},
		util.Field{Key: "time", Value: c.time})
	if c.state.Running() && !s.Running() {
		c.generation++
	}
	c.state = s
	c.metrics.SetState(int(s))
	c.publish(Notification{State: s, Time: c.time})
	if s.Running() {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

func (c *Clock) publish(n Notification) {
	select {
	case c.notify <- n:
	default:
		c.log.Debugf("Notification dropped: %v at %v", n.State, n.Time)
	}
}

// Notifications delivers state changes and playback errors. Notifications
// are dropped when the reader falls behind.
func (c *Clock) Notifications() <-chan Notification {
	return c.notify
}

func (c *Clock) guard() error {
	if c.state == Loading {
		return ErrNotLoaded
	}
	return c.fault
}

// State returns the clock state
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Time returns the clock time, -1 before the first entry
func (c *Clock) Time() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.time
}

// FormattedTime renders the clock time as HH:MM:SS
func (c *Clock) FormattedTime() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return util.FormatClock(c.time)
}

// Speed returns the signed playback speed
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Fault returns the error that stopped playback, if any
func (c *Clock) Fault() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fault
}

// Cursor returns the current page index and the number of its applied entries
func (c *Clock) Cursor() (page, pos int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window.Cursor()
}

// ResidentPages returns the indexes of the previous, current and next page,
// -1 where no page is loaded
func (c *Clock) ResidentPages() (prev, cur, next int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pageIndex(c.window.Previous()), pageIndex(c.window.Current()), pageIndex(c.window.Next())
}

func pageIndex(p *model.Page) int {
	if p == nil {
		return -1
	}
	return p.Index
}

// EntityState returns the live entity. It must not be read while playback
// may be stepping; use Materialize for a copy.
func (c *Clock) EntityState(typ string, id int) (*entity.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Get(typ, id)
}

// Materialize renders an entity with references as ids
func (c *Clock) Materialize(typ string, id int) (map[string]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Materialize(typ, id)
}

// Position returns where an entity is shown. Moving entities are shown
// while they have a route; static entities at their position attribute.
func (c *Clock) Position(key entity.Key) (geo.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position(key)
}

func (c *Clock) position(key entity.Key) (geo.Point, bool) {
	ts := c.store.TypeSchema(key.Type)
	if ts.Motion != nil {
		return c.motion.Position(key)
	}
	if ts.PositionAttr == "" {
		return geo.Point{}, false
	}
	e, err := c.store.Get(key.Type, key.ID)
	if err != nil {
		return geo.Point{}, false
	}
	return e.Point(ts.PositionAttr)
}

// View is a consistent read of the whole state, taken under the step lock
type View struct {
	Status   Status
	Entities map[string][]map[string]interface{}
}

// View materializes every entity. Shown entities carry their current
// position under "currentPosition".
func (c *Clock) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{Status: c.status(), Entities: make(map[string][]map[string]interface{})}
	for _, typ := range c.store.Types() {
		for _, id := range c.store.IDs(typ) {
			m, err := c.store.Materialize(typ, id)
			if err != nil {
				continue
			}
			if p, ok := c.position(entity.Key{Type: typ, ID: id}); ok {
				m["currentPosition"] = map[string]interface{}{"latitude": p.Latitude, "longitude": p.Longitude}
			}
			v.Entities[typ] = append(v.Entities[typ], m)
		}
	}
	return v
}

// Status summarizes the clock for display
type Status struct {
	State         State
	Time          float64
	FormattedTime string
	Speed         float64
	Page          int
	Entry         int
	PageCount     int
	Totals        ledger.Counts
	Fault         error
}

// Status returns the clock summary
func (c *Clock) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status()
}

func (c *Clock) status() Status {
	page, pos := c.window.Cursor()
	return Status{
		State:         c.state,
		Time:          c.time,
		FormattedTime: util.FormatClock(c.time),
		Speed:         c.speed,
		Page:          page,
		Entry:         pos,
		PageCount:     c.window.PageCount(),
		Totals:        c.ledger.Total(),
		Fault:         c.fault,
	}
}

// UserCounts returns the rental counters of a user
func (c *Clock) UserCounts(id int) ledger.Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.User(id)
}

// StationCounts returns the rental counters of a station
func (c *Clock) StationCounts(id int) ledger.Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Station(id)
}
