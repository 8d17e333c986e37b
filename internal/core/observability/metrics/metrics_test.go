package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/eventscope/internal/core/notify"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg)
	require.NoError(t, err)

	p.ScanCompleted(ScanListeners, 20*time.Millisecond, 3)
	p.IndexSize(2, 3, 4)
	p.ReferenceDropped()
	p.ReferenceDropped()

	assert.Equal(t, 3.0, testutil.ToFloat64(p.scanFound.WithLabelValues(ScanListeners)))
	assert.Equal(t, 4.0, testutil.ToFloat64(p.indexEntries.WithLabelValues("references")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.dropped))
	assert.Equal(t, 1, testutil.CollectAndCount(p.scanDuration))
}

func TestPrometheusDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(reg)
	require.NoError(t, err)
	_, err = NewPrometheus(reg)
	assert.Error(t, err)
}

func TestPrometheusObservesBus(t *testing.T) {
	p, err := NewPrometheus(prometheus.NewRegistry())
	require.NoError(t, err)

	b := notify.New()
	b.AddObserver(p)
	_, _ = b.Subscribe(notify.ReferenceDropped, func(notify.Notice) error { return errors.New("boom") })

	_ = b.Publish(notify.NewNotice(notify.ContainerAdded, "test", nil))
	_ = b.Publish(notify.NewNotice(notify.ReferenceDropped, "test", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.notices.WithLabelValues(notify.ContainerAdded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.handlerErrs))
}
