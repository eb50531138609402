package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-fleet-replay/internal/testing/fixtures"
)

func tripHistory(t *testing.T) string {
	t.Helper()
	gen := fixtures.NewHistoryGenerator(t.TempDir())
	require.NoError(t, gen.WriteHistory(fixtures.TripSnapshot(), fixtures.TripPages()...))
	return gen.GetBaseDir()
}

func runStateCommand(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	stateCmd.SetOut(&buf)
	t.Cleanup(func() { stateCmd.SetOut(nil) })
	require.NoError(t, runState(stateCmd, nil))
	return buf.String()
}

func TestStateAtTime(t *testing.T) {
	resetGlobals()
	historyDir = tripHistory(t)
	stateAt = "100"
	stateOutput = "json"
	stateTypes = []string{"users"}

	out := runStateCommand(t)
	assert.Contains(t, out, `"state": "PAUSED"`)
	assert.Contains(t, out, `"formattedTime": "00:01:40"`)
	assert.Contains(t, out, `"bike": 100`)
	assert.NotContains(t, out, `"capacity"`)
}

func TestStateSnapshot(t *testing.T) {
	resetGlobals()
	historyDir = tripHistory(t)
	stateOutput = "json"
	stateTypes = []string{"users"}

	out := runStateCommand(t)
	assert.Contains(t, out, `"state": "START"`)
	assert.Contains(t, out, `"formattedTime": "--:--:--"`)
	assert.Contains(t, out, `"bike": null`)
}

func TestStateSteps(t *testing.T) {
	resetGlobals()
	historyDir = tripHistory(t)
	stateSteps = 100
	stateOutput = "summary"

	out := runStateCommand(t)
	assert.Contains(t, out, "END")
}

func TestStateTable(t *testing.T) {
	resetGlobals()
	historyDir = tripHistory(t)
	stateAt = "00:06:40"
	stateTypes = []string{"stations"}
	stateSort = "id"
	stateDesc = true

	out := runStateCommand(t)
	assert.Contains(t, out, "stations (2)")
	assert.Less(t, bytes.Index([]byte(out), []byte("│ 11 ")), bytes.Index([]byte(out), []byte("│ 10 ")),
		"descending sort lists station 11 first")
}

func TestStateRejectsUnknownOutput(t *testing.T) {
	resetGlobals()
	historyDir = tripHistory(t)
	stateOutput = "xml"
	assert.Error(t, runState(stateCmd, nil))
}

func TestStateBadTime(t *testing.T) {
	resetGlobals()
	historyDir = tripHistory(t)
	stateAt = "soon"
	assert.Error(t, runState(stateCmd, nil))
}
