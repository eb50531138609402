package replay

import (
	"sync"

	"github.com/penwyp/go-fleet-replay/internal/presentation/display"
)

// StateManager holds the interactive view state in a thread-safe manner
type StateManager struct {
	mu sync.RWMutex

	view display.ViewState
	// selectedType is the entity type listed by the dashboard
	selectedType string
}

// NewStateManager creates a new StateManager instance
func NewStateManager() *StateManager {
	return &StateManager{}
}

// GetViewState returns a copy of the view state
func (sm *StateManager) GetViewState() display.ViewState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.view
}

// SetLoadingState updates loading state and message
func (sm *StateManager) SetLoadingState(isLoading bool, message string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.view.Loading = isLoading
	sm.view.LoadingMessage = message
}

// SetStatusMessage shows message in the status line. Empty clears it.
func (sm *StateManager) SetStatusMessage(message string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.view.StatusMessage = message
}

// ToggleHelp shows or hides the help screen and reports whether it is shown
func (sm *StateManager) ToggleHelp() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.view.ShowHelp = !sm.view.ShowHelp
	return sm.view.ShowHelp
}

// SelectedType returns the entity type listed by the dashboard
func (sm *StateManager) SelectedType() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.selectedType
}

// SelectType lists typ, or the first of types when typ is not among them
func (sm *StateManager) SelectType(typ string, types []string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, t := range types {
		if t == typ {
			sm.selectedType = typ
			return
		}
	}
	if len(types) > 0 {
		sm.selectedType = types[0]
	}
}

// NextType moves the selection to the type after the current one
func (sm *StateManager) NextType(types []string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if len(types) == 0 {
		return
	}
	next := 0
	for i, t := range types {
		if t == sm.selectedType {
			next = (i + 1) % len(types)
			break
		}
	}
	sm.selectedType = types[next]
}
