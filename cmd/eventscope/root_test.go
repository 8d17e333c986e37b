package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/eventscope/internal/core/models"
)

const projectYAML = `
events:
  - {id: victory, name: Victory}
  - {id: defeat, name: Defeat}
containers:
  - name: Level1
    nodes:
      - name: Player
        units:
          - {type: listener, name: OnVictory, params: {event: victory, responses: 2}}
  - name: Level2
    nodes:
      - name: Gate
        units:
          - {type: trigger, name: Gate, params: {on_enter: victory}}
          - {type: event, params: {event: defeat}}
`

func writeProject(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(projectYAML), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "silent"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestStatsJSON(t *testing.T) {
	out, err := run(t, "--project", writeProject(t), "stats", "--json")
	require.NoError(t, err)

	var rows []models.SceneStatistics
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, models.SceneStatistics{Container: "Level1", Listeners: 1}, rows[0])
	assert.Equal(t, "Level2", rows[1].Container)
	assert.Equal(t, 1, rows[1].Events)
	assert.Equal(t, 2, rows[1].References)
}

func TestStatsTableHasTotals(t *testing.T) {
	out, err := run(t, "--project", writeProject(t), "stats", "Level1")
	require.NoError(t, err)
	assert.Contains(t, out, "CONTAINER")
	assert.Contains(t, out, "Level1")
	assert.NotContains(t, out, "Level2")
	assert.Contains(t, out, "TOTAL")
}

func TestEventsFilter(t *testing.T) {
	out, err := run(t, "--project", writeProject(t), "events", "--filter", "vict")
	require.NoError(t, err)
	assert.Contains(t, out, "Victory")
	assert.NotContains(t, out, "Defeat")
}

func TestListenersByContainer(t *testing.T) {
	path := writeProject(t)

	out, err := run(t, "--project", path, "listeners", "--container", "Level1")
	require.NoError(t, err)
	assert.Contains(t, out, "OnVictory")

	out, err = run(t, "--project", path, "listeners", "--container", "Level2")
	require.NoError(t, err)
	assert.NotContains(t, out, "OnVictory")

	_, err = run(t, "--project", path, "listeners", "--container", "Nowhere")
	assert.Error(t, err)
}

func TestRefsUnbound(t *testing.T) {
	out, err := run(t, "--project", writeProject(t), "refs", "--unbound")
	require.NoError(t, err)
	assert.Contains(t, out, "Gate/Gate.OnExit")
	assert.NotContains(t, out, "Gate/Gate.OnEnter")
}

func TestFind(t *testing.T) {
	path := writeProject(t)

	out, err := run(t, "--project", path, "find", "Victory")
	require.NoError(t, err)
	assert.Contains(t, out, "Gate/Gate.OnEnter")

	_, err = run(t, "--project", path, "find", "Missing")
	assert.Error(t, err)
}

func TestMissingProject(t *testing.T) {
	_, err := run(t, "stats")
	assert.Error(t, err)
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("EVENTSCOPE_PROJECT", writeProject(t))
	out, err := run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Level1")
}
