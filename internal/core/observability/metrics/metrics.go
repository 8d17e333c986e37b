package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zeusync/eventscope/internal/core/notify"
)

// Scan kinds used as the "kind" label.
const (
	ScanEvents     = "events"
	ScanListeners  = "listeners"
	ScanReferences = "references"
	ScanFull       = "full"
)

// Recorder receives index measurements. Implementations must be cheap; they are
// called from the scan path.
type Recorder interface {
	ScanCompleted(kind string, elapsed time.Duration, found int)
	IndexSize(events, listeners, references int)
	ReferenceDropped()
}

// Nop discards everything.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) ScanCompleted(string, time.Duration, int) {}
func (Nop) IndexSize(int, int, int)                  {}
func (Nop) ReferenceDropped()                        {}

// Prometheus exports scan and index metrics. It also observes the notice bus.
type Prometheus struct {
	scanDuration *prometheus.HistogramVec
	scanFound    *prometheus.GaugeVec
	indexEntries *prometheus.GaugeVec
	dropped      prometheus.Counter
	notices      *prometheus.CounterVec
	handlerErrs  prometheus.Counter
}

var (
	_ Recorder        = (*Prometheus)(nil)
	_ notify.Observer = (*Prometheus)(nil)
)

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		scanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "eventscope",
				Name:      "scan_duration_seconds",
				Help:      "Duration of project scans by kind.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		scanFound: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "eventscope",
				Name:      "scan_found",
				Help:      "Items found by the last scan of each kind.",
			},
			[]string{"kind"},
		),
		indexEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "eventscope",
				Name:      "index_entries",
				Help:      "Current size of the reference index.",
			},
			[]string{"type"},
		),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventscope",
			Name:      "references_dropped_total",
			Help:      "Field references dropped because their field disappeared.",
		}),
		notices: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventscope",
				Name:      "notices_published_total",
				Help:      "Change notices published on the bus by type.",
			},
			[]string{"type"},
		),
		handlerErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventscope",
			Name:      "notice_handler_errors_total",
			Help:      "Notice deliveries where at least one handler failed.",
		}),
	}
	for _, c := range []prometheus.Collector{p.scanDuration, p.scanFound, p.indexEntries, p.dropped, p.notices, p.handlerErrs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) ScanCompleted(kind string, elapsed time.Duration, found int) {
	p.scanDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	p.scanFound.WithLabelValues(kind).Set(float64(found))
}

func (p *Prometheus) IndexSize(events, listeners, references int) {
	p.indexEntries.WithLabelValues("events").Set(float64(events))
	p.indexEntries.WithLabelValues("listeners").Set(float64(listeners))
	p.indexEntries.WithLabelValues("references").Set(float64(references))
}

func (p *Prometheus) ReferenceDropped() { p.dropped.Inc() }

func (p *Prometheus) OnPublish(noticeType string, _ notify.Notice) {
	p.notices.WithLabelValues(noticeType).Inc()
}

func (p *Prometheus) OnDelivered(_ string, _ int, err error, _ time.Duration) {
	if err != nil {
		p.handlerErrs.Inc()
	}
}
