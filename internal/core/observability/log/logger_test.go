package log

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"":       LevelInfo,
		"DEBUG":  LevelDebug,
		"warn":   LevelWarn,
		"error":  LevelError,
		"silent": LevelSilent,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestFieldsReachZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewWithCore(core, LevelDebug)

	l.With(String("container", "Level1")).Info("scan completed",
		Int("found", 3),
		Duration("elapsed", time.Millisecond),
		Strings("names", []string{"a", "b"}),
		Error(errors.New("boom")),
		Error(nil),
	)

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "Level1", ctx["container"])
	assert.EqualValues(t, 3, ctx["found"])
	assert.Equal(t, time.Millisecond, ctx["elapsed"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestSetLevelFilters(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewWithCore(core, LevelInfo)

	l.Debug("hidden")
	l.SetLevel(LevelDebug)
	l.Debug("shown")
	assert.Equal(t, LevelDebug, l.GetLevel())

	l.SetLevel(LevelSilent)
	l.Error("muted")
	l.Log(LevelError, "muted too")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestNopAndProvide(t *testing.T) {
	n := Nop()
	n.Info("nothing")
	assert.Equal(t, LevelSilent, n.GetLevel())
	assert.NotNil(t, Provide())
}

func TestProvideIsSafeDuringNew(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			New(LevelSilent)
		}()
		go func() {
			defer wg.Done()
			assert.NotNil(t, Provide())
		}()
	}
	wg.Wait()

	first := Provide()
	New(LevelSilent)
	assert.Same(t, first, Provide())
}
