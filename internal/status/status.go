// Package status maintains a live snapshot of pool and session counts,
// broadcasting updates to subscribers (the websocket status endpoint)
// and exporting them as Prometheus gauges.
package status

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot is the system-wide status view returned by the admin status
// endpoint and pushed over the status-stream websocket.
type Snapshot struct {
	ContainersWarming    int `json:"containersWarming"`
	ContainersIdle       int `json:"containersIdle"`
	ContainersBusy       int `json:"containersBusy"`
	ContainersDestroying int `json:"containersDestroying"`
	SessionsQueued       int `json:"sessionsQueued"`
	SessionsActive       int `json:"sessionsActive"`
	MaxContainers        int `json:"maxContainers"`
	QueueLength          int `json:"queueLength"`
}

// Broadcaster fans out Snapshot updates to any number of subscribers and
// mirrors the same counts into Prometheus gauges.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Snapshot]struct{}
	last Snapshot

	containerGauge *prometheus.GaugeVec
	sessionGauge   *prometheus.GaugeVec
	commandHist    prometheus.Histogram
}

// NewBroadcaster constructs a Broadcaster and registers its metrics against
// reg (pass prometheus.DefaultRegisterer in production, a fresh registry in
// tests to avoid duplicate-registration panics across test runs).
func NewBroadcaster(reg prometheus.Registerer) *Broadcaster {
	b := &Broadcaster{
		subs: make(map[chan Snapshot]struct{}),
		containerGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sandkasten_containers",
			Help: "Number of managed containers by status.",
		}, []string{"status"}),
		sessionGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sandkasten_sessions",
			Help: "Number of sessions by status.",
		}, []string{"status"}),
		commandHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sandkasten_command_duration_seconds",
			Help:    "Duration of command executions.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(b.containerGauge, b.sessionGauge, b.commandHist)
	}
	return b
}

// PublishContainerCounts merges container-side counts into the retained
// snapshot and broadcasts the result. The pool calls this after it creates,
// hands out, releases or removes a container; inserting a Warming
// placeholder and marking a container Destroying are not published on their
// own.
func (b *Broadcaster) PublishContainerCounts(warming, idle, busy, destroying, maxContainers int) {
	b.mu.Lock()
	b.last.ContainersWarming = warming
	b.last.ContainersIdle = idle
	b.last.ContainersBusy = busy
	b.last.ContainersDestroying = destroying
	b.last.MaxContainers = maxContainers
	snap := b.last
	b.mu.Unlock()

	b.containerGauge.WithLabelValues("warming").Set(float64(warming))
	b.containerGauge.WithLabelValues("idle").Set(float64(idle))
	b.containerGauge.WithLabelValues("busy").Set(float64(busy))
	b.containerGauge.WithLabelValues("destroying").Set(float64(destroying))
	b.broadcast(snap)
}

// PublishSessionCounts merges session-side counts into the retained
// snapshot and broadcasts the result. The session manager calls this on
// every session state transition.
func (b *Broadcaster) PublishSessionCounts(queued, active, queueLength int) {
	b.mu.Lock()
	b.last.SessionsQueued = queued
	b.last.SessionsActive = active
	b.last.QueueLength = queueLength
	snap := b.last
	b.mu.Unlock()

	b.sessionGauge.WithLabelValues("queued").Set(float64(queued))
	b.sessionGauge.WithLabelValues("active").Set(float64(active))
	b.broadcast(snap)
}

func (b *Broadcaster) broadcast(snap Snapshot) {
	b.mu.Lock()
	subs := make([]chan Snapshot, 0, len(b.subs))
	for ch := range b.subs {
		subs = append(subs, ch)
	}
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// ObserveCommandDuration records a completed command's wall-clock time.
func (b *Broadcaster) ObserveCommandDuration(seconds float64) {
	b.commandHist.Observe(seconds)
}

// Last returns the most recently published snapshot.
func (b *Broadcaster) Last() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Subscribe registers a new channel that receives snapshots published after
// the call. The channel buffers 4 snapshots; a publish that finds it full
// skips that subscriber. Call the returned func to unsubscribe and close the
// channel.
func (b *Broadcaster) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 4)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsubscribe
}
