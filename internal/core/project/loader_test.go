package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/eventscope/internal/core/fields"
	"github.com/zeusync/eventscope/internal/core/models"
)

const levelsYAML = `
events:
  - {id: victory, name: Victory, description: "level won"}
  - {id: all, name: AllEvents, kind: collection, members: [victory, all]}
containers:
  - name: Level1
    nodes:
      - name: Player
        units:
          - {type: listener, name: OnVictory, params: {event: victory, responses: 2}}
  - name: Level2
    nodes:
      - name: World
        children:
          - name: Gate
            units:
              - {type: trigger, name: Gate, params: {on_enter: victory}}
              - {type: event, params: {event: victory}}
  - name: Sandbox
    registered: false
    nodes:
      - name: Hud
        units:
          - {type: script, name: Hud, params: {fields: {on_win: victory, on_lose: ""}}}
`

const levelsJSON = `{
  "events": [{"id": "victory", "name": "Victory"}],
  "containers": [{
    "name": "Level1",
    "nodes": [{"name": "Player", "units": [
      {"type": "listener", "name": "OnVictory", "params": {"event": "victory", "responses": 3}}
    ]}]
  }]
}`

const levelsTOML = `
[[events]]
id = "victory"
name = "Victory"

[[containers]]
name = "Level1"

[[containers.nodes]]
name = "Player"

[[containers.nodes.units]]
type = "listener"
name = "OnVictory"
params = { event = "victory", responses = 4 }
`

func TestDecodeYAMLAndBuild(t *testing.T) {
	f, err := Decode(strings.NewReader(levelsYAML), FormatYAML)
	require.NoError(t, err)
	p, err := f.Build(nil)
	require.NoError(t, err)

	require.Len(t, p.Assets(), 2)
	victory, ok := p.Event("victory")
	require.True(t, ok)
	assert.Equal(t, "level won", victory.Description)

	all, ok := p.EventByName("AllEvents")
	require.True(t, ok)
	assert.Equal(t, 2, all.MemberCount())
	assert.Len(t, all.Flatten(), 1)

	assert.Equal(t, []string{"Level1", "Level2", "Sandbox"}, p.ContainerNames())
	assert.Len(t, p.Containers(), 3)
	assert.Len(t, p.Registered(), 2)

	level2, ok := p.ContainerByName("Level2")
	require.True(t, ok)
	var units []models.Unit
	level2.Walk(func(n *models.Node) bool {
		units = append(units, n.Units()...)
		return true
	})
	require.Len(t, units, 2)
	trigger, ok := units[0].(*Trigger)
	require.True(t, ok)
	assert.Same(t, victory, trigger.OnEnter)
	assert.Same(t, victory, units[1])

	sandbox, _ := p.ContainerByName("Sandbox")
	hud := sandbox.Roots()[0].Units()[0].(*Script)
	slot, ok := hud.Slot("on_lose")
	assert.True(t, ok)
	assert.Nil(t, slot)
}

func TestDecodeJSONAndTOML(t *testing.T) {
	for format, src := range map[Format]string{FormatJSON: levelsJSON, FormatTOML: levelsTOML} {
		f, err := Decode(strings.NewReader(src), format)
		require.NoError(t, err, format)
		p, err := f.Build(NewRegistry())
		require.NoError(t, err, format)

		level1, ok := p.ContainerByName("Level1")
		require.True(t, ok, format)
		l, ok := level1.Roots()[0].Units()[0].(*ListenerUnit)
		require.True(t, ok, format)
		assert.Equal(t, "Victory", l.ListensTo().Name(), format)
		assert.Positive(t, l.ResponseCount(), format)
	}
}

func TestBuildErrors(t *testing.T) {
	cases := map[string]struct {
		file File
		err  error
	}{
		"unknown unit type": {
			file: File{Containers: []ContainerSpec{{Name: "L", Nodes: []NodeSpec{{Name: "N", Units: []UnitSpec{{Type: "camera"}}}}}}},
			err:  ErrUnknownUnitType,
		},
		"unknown event": {
			file: File{Containers: []ContainerSpec{{Name: "L", Nodes: []NodeSpec{{Name: "N", Units: []UnitSpec{
				{Type: "listener", Params: map[string]any{"event": "missing"}},
			}}}}}},
			err: ErrUnknownEvent,
		},
		"duplicate event": {
			file: File{Events: []EventSpec{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}}},
			err:  ErrDuplicateEvent,
		},
		"members on simple": {
			file: File{Events: []EventSpec{{ID: "a", Name: "A", Members: []string{"a"}}}},
			err:  ErrInvalidParam,
		},
		"bad responses": {
			file: File{
				Events: []EventSpec{{ID: "a", Name: "A"}},
				Containers: []ContainerSpec{{Name: "L", Nodes: []NodeSpec{{Name: "N", Units: []UnitSpec{
					{Type: "listener", Params: map[string]any{"event": "a", "responses": "two"}},
				}}}}},
			},
			err: ErrInvalidParam,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tc.file.Build(nil)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "levels.yml")
	require.NoError(t, os.WriteFile(path, []byte(levelsYAML), 0o644))

	p, err := Load(path, nil)
	require.NoError(t, err)
	assert.Len(t, p.Containers(), 3)

	_, err = Load(filepath.Join(dir, "levels.ini"), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(dir, "missing.yaml"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestScriptDescribesSlots(t *testing.T) {
	victory := models.NewEvent("v", "Victory", models.KindSimple)
	s := NewScript("s", "Hud")
	s.Declare("on_win", nil)
	s.Declare("on_lose", nil)

	r := fields.NewRegistry()
	descs := r.Describe(s)
	require.Len(t, descs, 2)
	assert.Equal(t, "on_lose", descs[0].Name)

	d, ok := r.Lookup(s, "on_win")
	require.True(t, ok)
	require.NoError(t, d.Set(s, victory))
	got, _ := s.Slot("on_win")
	assert.Same(t, victory, got)

	s.Undeclare("on_win")
	_, ok = d.Get(s)
	assert.False(t, ok)
	assert.ErrorIs(t, d.Set(s, victory), fields.ErrFieldNotFound)
}

func TestRegistryTypes(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"event", "listener", "script", "trigger"}, r.Types())
	r.Register("camera", func(Resolver, models.ID, string, map[string]any) (models.Unit, error) {
		return NewTrigger("cam", "Camera"), nil
	})
	u, err := r.NewUnit("camera", New(), "x", "y", nil)
	require.NoError(t, err)
	assert.Equal(t, "Camera", u.Name())
}
