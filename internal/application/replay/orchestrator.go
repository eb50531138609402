package replay

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/penwyp/go-fleet-replay/internal/core/playback"
	"github.com/penwyp/go-fleet-replay/internal/presentation/display"
	"github.com/penwyp/go-fleet-replay/internal/presentation/interaction"
	"github.com/penwyp/go-fleet-replay/internal/presentation/layout"
	"github.com/penwyp/go-fleet-replay/internal/util"
)

// InputHandler processes keyboard and other input events
type InputHandler interface {
	Events() <-chan interaction.KeyEvent
	Close() error
}

// Orchestrator drives one interactive replay session
type Orchestrator struct {
	config  *Config
	session *Session

	stateManager *StateManager
	display      *display.TerminalDisplay
	sorter       *interaction.EntitySorter
	input        InputHandler
}

// NewOrchestrator creates a new Orchestrator instance
func NewOrchestrator(config *Config) (*Orchestrator, error) {
	session, err := NewSession(config)
	if err != nil {
		return nil, err
	}
	termDisplay := display.NewTerminalDisplay(&display.DisplayConfig{
		LayoutStyle: config.LayoutStyle,
		TimeFormat:  config.TimeFormat,
	})
	return newOrchestrator(config, session, termDisplay), nil
}

func newOrchestrator(config *Config, session *Session, d *display.TerminalDisplay) *Orchestrator {
	return &Orchestrator{
		config:       config,
		session:      session,
		stateManager: NewStateManager(),
		display:      d,
		sorter:       interaction.NewEntitySorter(),
	}
}

// Session returns the session driven by the orchestrator
func (o *Orchestrator) Session() *Session {
	return o.session
}

// Run starts the orchestrator main loop
func (o *Orchestrator) Run(ctx context.Context) error {
	util.LogInfof("Starting fleet replay session %s", o.session.ID)
	defer o.Close()

	if err := util.InitializeTimeProvider(o.config.Timezone); err != nil {
		return fmt.Errorf("failed to initialize timezone: %w", err)
	}

	keyboard, err := interaction.NewKeyboardReader()
	if err != nil {
		return fmt.Errorf("failed to initialize keyboard: %w", err)
	}
	o.input = keyboard
	defer o.input.Close()

	o.display.EnterAlternateScreen()
	defer o.display.ExitAlternateScreen()

	o.stateManager.SetLoadingState(true, "Loading "+o.config.Dir)
	o.updateDisplay()

	if err := o.session.Open(ctx); err != nil {
		return err
	}
	o.stateManager.SetLoadingState(false, "")

	uiTicker := time.NewTicker(o.config.UIRefreshRate)
	defer uiTicker.Stop()

	o.updateDisplay()
	notifications := o.session.Clock().Notifications()
	for {
		select {
		case <-ctx.Done():
			util.LogInfo("Shutting down fleet replay")
			return nil

		case <-o.session.Done():
			if err := o.session.Wait(); err != nil {
				return fmt.Errorf("session stopped: %w", err)
			}
			return nil

		case <-uiTicker.C:
			o.updateDisplay()

		case n := <-notifications:
			o.handleNotification(n)
			o.updateDisplay()

		case event := <-o.input.Events():
			if o.handleAction(ctx, interaction.Resolve(event)) {
				return nil
			}
			o.updateDisplay()
		}
	}
}

// handleNotification surfaces playback failures in the status line
func (o *Orchestrator) handleNotification(n playback.Notification) {
	if n.Err != nil {
		o.stateManager.SetStatusMessage(n.Err.Error())
		return
	}
	util.LogDebugf("Playback state %s at %s", n.State, util.FormatClock(n.Time))
}

// handleAction performs a key action and reports whether to quit
func (o *Orchestrator) handleAction(ctx context.Context, action interaction.Action) bool {
	clock := o.session.Clock()
	var err error

	switch action {
	case interaction.ActionQuit:
		if o.stateManager.GetViewState().ShowHelp {
			o.stateManager.ToggleHelp()
			return false
		}
		return true
	case interaction.ActionTogglePlay:
		err = clock.TogglePlayPause(ctx)
	case interaction.ActionStepForward:
		err = clock.StepForward(ctx)
	case interaction.ActionStepBackward:
		err = clock.StepBackward(ctx)
	case interaction.ActionSpeedUp:
		err = clock.ChangeSpeed(1)
	case interaction.ActionSpeedDown:
		err = clock.ChangeSpeed(-1)
	case interaction.ActionReverse:
		err = clock.SetSpeed(-clock.Speed())
	case interaction.ActionSeekStart:
		err = clock.Seek(ctx, math.Inf(-1))
	case interaction.ActionSeekEnd:
		err = clock.Seek(ctx, math.Inf(1))
	case interaction.ActionCycleSort:
		o.sorter.Cycle(sortFields(clock.View().Entities[o.stateManager.SelectedType()]))
	case interaction.ActionCycleType:
		o.stateManager.NextType(entityTypes(clock.View().Entities))
	case interaction.ActionCycleLayout:
		o.display.SetLayoutStyle((o.display.LayoutStyle() + 1) % 2)
	case interaction.ActionToggleHelp:
		o.stateManager.ToggleHelp()
	}

	if err != nil {
		o.stateManager.SetStatusMessage(err.Error())
	} else if action != interaction.ActionNone {
		o.stateManager.SetStatusMessage("")
	}
	return false
}

// frame builds the dashboard content from one consistent clock view
func (o *Orchestrator) frame() layout.Frame {
	view := o.session.Clock().View()
	types := entityTypes(view.Entities)
	o.stateManager.SelectType(o.stateManager.SelectedType(), types)

	typ := o.stateManager.SelectedType()
	rows := view.Entities[typ]
	o.sorter.Sort(rows)
	return layout.Frame{
		Status:    view.Status,
		Type:      typ,
		Rows:      rows,
		SortField: o.sorter.Field(),
	}
}

// updateDisplay updates the terminal display
func (o *Orchestrator) updateDisplay() {
	state := o.stateManager.GetViewState()
	if state.Loading {
		o.display.Render(layout.Frame{}, state)
		return
	}
	o.display.Render(o.frame(), state)
}

// Close cleans up all resources
func (o *Orchestrator) Close() error {
	if err := o.session.Close(); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

func entityTypes(entities map[string][]map[string]interface{}) []string {
	types := make([]string, 0, len(entities))
	for typ := range entities {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// sortFields lists the attributes rows can be sorted by, id first
func sortFields(rows []map[string]interface{}) []string {
	seen := map[string]bool{"id": true}
	var fields []string
	for _, row := range rows {
		for name := range row {
			if !seen[name] {
				seen[name] = true
				fields = append(fields, name)
			}
		}
	}
	sort.Strings(fields)
	return append([]string{"id"}, fields...)
}
