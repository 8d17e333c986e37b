package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zeusync/eventscope/internal/config"
	"github.com/zeusync/eventscope/internal/core/filter"
	"github.com/zeusync/eventscope/internal/core/models"
	"github.com/zeusync/eventscope/internal/core/notify"
	"github.com/zeusync/eventscope/internal/core/project"
)

// banner is a plain unit holding a single event field.
type banner struct {
	id    models.ID
	OnWin *models.Event
}

func (b *banner) ID() models.ID { return b.id }
func (b *banner) Name() string  { return "Banner" }

type fixture struct {
	project *project.Project
	victory *models.Event
	level1  *models.Container
	level2  *models.Container
	banner  *banner
	hud     *project.Script
}

func newFixture() *fixture {
	f := &fixture{project: project.New()}
	f.victory = models.NewEvent("victory", "Victory", models.KindSimple)
	f.project.AddEvent(f.victory)

	f.level1 = models.NewContainer("l1", "Level1")
	player := models.NewNode("player", "Player", project.NewListener("on-victory", "OnVictory", f.victory, 2))
	f.level1.AddRoot(player)
	f.project.AddContainer(f.level1, true)

	f.level2 = models.NewContainer("l2", "Level2")
	f.banner = &banner{id: "banner", OnWin: f.victory}
	f.level2.AddRoot(models.NewNode("world", "World", f.banner))
	f.project.AddContainer(f.level2, true)

	f.hud = project.NewScript("hud", "Hud")
	f.hud.Declare("on_lose", nil)
	sandbox := models.NewContainer("sb", "Sandbox")
	sandbox.AddRoot(models.NewNode("ui", "UI", f.hud))
	f.project.AddContainer(sandbox, false)
	return f
}

func newManager(f *fixture, opts ...Option) *Manager {
	return New(f.project, config.Defaults(), opts...)
}

func TestEndToEndStatistics(t *testing.T) {
	f := newFixture()
	m := newManager(f)

	require.NoError(t, m.RescanListeners(filter.Mask{}))
	require.NoError(t, m.RescanFieldReferences(filter.Mask{}))

	assert.Equal(t, models.SceneStatistics{Container: "Level1", Listeners: 1}, m.GetStatistics("Level1"))
	assert.Equal(t, models.SceneStatistics{Container: "Level2", References: 1}, m.GetStatistics("Level2"))
	assert.Equal(t, models.SceneStatistics{Container: "Sandbox"}, m.GetStatistics("Sandbox"))

	entry := m.Lookup(f.victory)
	require.Len(t, entry.Listeners, 1)
	require.Len(t, entry.References, 1)
	assert.Equal(t, "World/Banner.OnWin", entry.References[0].Label)
}

func TestAddContainerIdempotent(t *testing.T) {
	f := newFixture()
	m := newManager(f)
	before := m.Containers()

	assert.False(t, m.AddContainer(f.level1))
	assert.Equal(t, before, m.Containers())
}

func TestRemoveContainerCascades(t *testing.T) {
	f := newFixture()
	m := newManager(f)
	m.Rescan()
	require.Len(t, m.Lookup(f.victory).Listeners, 1)

	assert.True(t, m.RemoveContainer(f.level1))
	assert.False(t, m.RemoveContainer(f.level1))

	entry := m.Lookup(f.victory)
	assert.Empty(t, entry.Listeners)
	require.Len(t, entry.References, 1)
	assert.Equal(t, "Level2", entry.References[0].ContainerName())
	assert.Equal(t, models.SceneStatistics{Container: "Level1"}, m.GetStatistics("Level1"))
}

func TestPollDebounce(t *testing.T) {
	f := newFixture()
	m := newManager(f)

	assert.True(t, m.Poll(0), "registration makes the first poll rescan")
	for i := 0; i < 3; i++ {
		assert.False(t, m.Poll(time.Second), "poll %d", i+1)
	}
	assert.True(t, m.Poll(time.Second))

	m.AddContainer(models.NewContainer("l3", "Level3"))
	assert.True(t, m.ShouldRescan())
	assert.False(t, m.ShouldRescan())
}

func TestMaskDefaultEqualsAllBits(t *testing.T) {
	f := newFixture()
	m := newManager(f)
	m.Rescan()

	for _, kind := range []filter.Kind{filter.KindContainers, filter.KindEvents, filter.KindListeners, filter.KindReferences} {
		empty, err := m.ApplyFilter(kind, "", filter.Mask{})
		require.NoError(t, err)
		full, err := m.ApplyFilter(kind, "", filter.All(len(m.Containers())))
		require.NoError(t, err)
		assert.Equal(t, empty, full, kind.String())
	}
}

func TestMaskSelectsContainers(t *testing.T) {
	f := newFixture()
	m := newManager(f)
	m.Rescan()

	// Level1 is bit 0, Level2 bit 1
	got, err := m.ApplyFilter(filter.KindReferences, "", filter.NewMask(0))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = m.ApplyFilter(filter.KindReferences, "ban", filter.NewMask(1))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = m.ApplyFilter(filter.KindListeners, "", filter.NewMask(2))
	assert.ErrorIs(t, err, filter.ErrMaskOutOfRange)
	assert.ErrorIs(t, m.RescanListeners(filter.NewMask(9)), filter.ErrMaskOutOfRange)
	assert.ErrorIs(t, m.RescanFieldReferences(filter.NewMask(9)), filter.ErrMaskOutOfRange)
}

func TestMaskedRescanLeavesOtherContainers(t *testing.T) {
	f := newFixture()
	m := newManager(f)
	m.Rescan()

	f.banner.OnWin = nil
	require.NoError(t, m.RescanFieldReferences(filter.NewMask(0)))
	assert.Len(t, m.Lookup(f.victory).References, 1)

	require.NoError(t, m.RescanFieldReferences(filter.NewMask(1)))
	assert.Empty(t, m.Lookup(f.victory).References)
	assert.Equal(t, 1, m.GetStatistics("Level2").References)
}

func TestCollectionSelfReference(t *testing.T) {
	f := newFixture()
	all := models.NewEvent("all", "AllEvents", models.KindCollection)
	all.AddMember(all)
	all.AddMember(f.victory)
	f.project.AddEvent(all)
	f.level1.Roots()[0].AddUnit(all)

	m := newManager(f)
	m.RescanEvents()

	got, ok := m.EventByName("AllEvents")
	require.True(t, ok)
	assert.Equal(t, 2, got.MemberCount())
	assert.Equal(t, 1, m.GetStatistics("Level1").Events)
	assert.Len(t, m.Events(), 2)
}

func TestRefreshDropsStaleReference(t *testing.T) {
	f := newFixture()
	m := newManager(f)
	m.AddContainer(f.project.Containers()[2])
	m.Rescan()

	var dropped []string
	_, err := m.Notices().Subscribe(notify.ReferenceDropped, func(n notify.Notice) error {
		dropped = append(dropped, n.Data().(string))
		return nil
	})
	require.NoError(t, err)

	refs, err := m.ApplyFilter(filter.KindReferences, "hud", filter.Mask{})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	ref := refs[0].Value.(models.FieldReference)

	refreshed, ok := m.RefreshFieldReference(ref)
	require.True(t, ok)
	assert.Empty(t, refreshed.EventName)

	f.hud.Undeclare("on_lose")
	_, ok = m.RefreshFieldReference(ref)
	assert.False(t, ok)
	assert.Equal(t, []string{"UI/Hud.on_lose"}, dropped)
	assert.Zero(t, m.GetStatistics("Sandbox").References)
}

func TestAssignFieldReference(t *testing.T) {
	f := newFixture()
	m := newManager(f)
	m.Rescan()

	ref := m.Lookup(f.victory).References[0]
	assigned, err := m.AssignFieldReference(ref, nil)
	require.NoError(t, err)
	assert.Nil(t, f.banner.OnWin)
	assert.Nil(t, assigned.Event)
	assert.True(t, m.Lookup(f.victory).Empty())

	assigned, err = m.AssignFieldReference(assigned, f.victory)
	require.NoError(t, err)
	assert.Equal(t, "Victory", assigned.EventName)
	assert.Len(t, m.Lookup(f.victory).References, 1)

	stale := assigned
	stale.Field = "Gone"
	_, err = m.AssignFieldReference(stale, f.victory)
	assert.Error(t, err)
}

func TestFindReferences(t *testing.T) {
	f := newFixture()
	m := newManager(f)

	found := m.FindReferences(f.victory)
	require.Len(t, found, 1)
	assert.Same(t, f.banner, found[0].Unit)
	assert.Empty(t, m.FindReferences(nil))
}

func TestSetProjectKeepsRegistrationByName(t *testing.T) {
	f := newFixture()
	m := newManager(f)
	m.RemoveContainer(f.level2)
	m.Rescan()

	reloaded := newFixture()
	extra := models.NewContainer("l4", "Level4")
	reloaded.project.AddContainer(extra, true)

	var notices []string
	_, _ = m.Notices().Subscribe(notify.Wildcard, func(n notify.Notice) error {
		notices = append(notices, n.Type())
		return nil
	})
	m.SetProject(reloaded.project)

	names := make([]string, 0)
	for _, c := range m.Containers() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"Level1", "Level4"}, names)
	assert.Len(t, m.Lookup(reloaded.victory).Listeners, 1)
	assert.Contains(t, notices, notify.ProjectReloaded)
	assert.Contains(t, notices, notify.IndexRebuilt)
}

func TestScansAreTraced(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	f := newFixture()
	m := newManager(f, WithTracer(provider.Tracer("test")))

	m.Rescan()
	require.NoError(t, m.RescanListeners(filter.Mask{}))
	m.FindReferences(f.victory)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Equal(t, []string{"manager.Rescan", "manager.RescanListeners", "manager.FindReferences"}, names)
}

func TestZeroConfigStillReflectsFields(t *testing.T) {
	f := newFixture()
	m := New(f.project, config.Config{})

	m.Rescan()
	assert.Equal(t, models.SceneStatistics{Container: "Level2", References: 1}, m.GetStatistics("Level2"))
	assert.Equal(t, 4*time.Second, m.Scheduler().Cooldown())

	off := New(f.project, config.Config{DisableFieldReflection: true})
	off.Rescan()
	assert.Equal(t, models.SceneStatistics{Container: "Level2"}, off.GetStatistics("Level2"))
}

func TestSetProjectNilClearsContainers(t *testing.T) {
	f := newFixture()
	m := newManager(f)
	m.Rescan()
	require.NotEmpty(t, m.Containers())

	require.NotPanics(t, func() { m.SetProject(nil) })
	assert.Empty(t, m.Containers())
	assert.Empty(t, m.Events())
	assert.Equal(t, models.SceneStatistics{Container: "Level1"}, m.GetStatistics("Level1"))
}
