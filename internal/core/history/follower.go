package history

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/penwyp/go-fleet-replay/internal/util"
)

// DefaultSettleDelay is how long the directory must stay quiet before a rescan
const DefaultSettleDelay = 250 * time.Millisecond

// Follower watches a history directory and rescans the DirService when the
// simulator writes new change files. Events are debounced so a file still
// being written is not read halfway.
type Follower struct {
	watcher *fsnotify.Watcher
	service *DirService
	settle  time.Duration
	updates chan int
	done    chan struct{}
	once    sync.Once
}

// FollowerOption configures a Follower
type FollowerOption func(*Follower)

// WithSettleDelay overrides DefaultSettleDelay
func WithSettleDelay(d time.Duration) FollowerOption {
	return func(f *Follower) {
		if d > 0 {
			f.settle = d
		}
	}
}

// NewFollower starts watching the service directory
func NewFollower(service *DirService, opts ...FollowerOption) (*Follower, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(service.Dir()); err != nil {
		watcher.Close()
		return nil, err
	}

	f := &Follower{
		watcher: watcher,
		service: service,
		settle:  DefaultSettleDelay,
		updates: make(chan int, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	go f.processEvents()
	return f, nil
}

func (f *Follower) processEvents() {
	defer close(f.done)
	timer := time.NewTimer(f.settle)
	timer.Stop()
	defer timer.Stop()
	pending := false

	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".json" || filepath.Base(event.Name) == EntitiesFile {
				continue
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			// every write pushes the rescan back until the directory is quiet
			timer.Reset(f.settle)
			pending = true

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if err := f.service.Rescan(); err != nil {
				util.LogError("History rescan failed: " + err.Error())
				continue
			}
			f.notify(len(f.service.Pages()))

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			util.LogError("History watch error: " + err.Error())
		}
	}
}

// notify keeps only the latest page count when the reader lags behind
func (f *Follower) notify(count int) {
	select {
	case <-f.updates:
	default:
	}
	select {
	case f.updates <- count:
	default:
	}
}

// Updates delivers the page count after every successful rescan
func (f *Follower) Updates() <-chan int {
	return f.updates
}

// Close stops watching and waits for the event loop to exit
func (f *Follower) Close() error {
	var err error
	f.once.Do(func() {
		err = f.watcher.Close()
		<-f.done
	})
	return err
}
