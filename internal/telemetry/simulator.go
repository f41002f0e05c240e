// Package telemetry drives the periodic fleet simulation: per-tick position
// drift for online devices and the aggregate system health reading.
package telemetry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/oversight-labs/fleetwatch/internal/session"
	"github.com/oversight-labs/fleetwatch/internal/types"
)

var (
	ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetwatch_telemetry_ticks_total",
			Help: "Total telemetry simulation ticks",
		},
	)
	systemLoad = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetwatch_system_load",
			Help: "Simulated system load from the latest health snapshot",
		},
	)
)

func init() {
	prometheus.MustRegister(ticksTotal)
	prometheus.MustRegister(systemLoad)
}

// Health statuses emitted by the simulator.
const (
	HealthOptimal = "Optimal"
	HealthSyncing = "Syncing"
)

// Config for the telemetry simulator.
type Config struct {
	Interval time.Duration
	// Drift is the full width of the uniform per-tick coordinate offset:
	// each tick moves an online device by at most Drift/2 per axis.
	Drift float64
	// Rand is the random source; a seeded source makes ticks deterministic
	// in tests. Defaults to a time-seeded source.
	Rand *rand.Rand
}

// Simulator perturbs online device positions and recomputes system health on
// a fixed cadence.
type Simulator struct {
	cfg   Config
	state *session.State
	log   *logrus.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Simulator over the given session state.
func New(cfg Config, state *session.State, log *logrus.Logger) *Simulator {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.Drift <= 0 {
		cfg.Drift = 0.00005
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{cfg: cfg, state: state, log: log}
}

// Start begins the tick loop. It is a no-op if the simulator is already
// running. The loop stops when ctx is cancelled or Stop is called.
func (s *Simulator) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.log.WithField("interval", s.cfg.Interval).Info("Starting telemetry simulator")

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Telemetry simulator stopping")
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}(s.done)
}

// Stop halts the tick loop and waits for it to exit. The simulator can be
// restarted afterwards.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Tick applies one round of simulation: every online device drifts by a
// uniform offset in [-Drift/2, +Drift/2) per axis, offline devices are left
// untouched, and the health snapshot is recomputed.
func (s *Simulator) Tick() {
	rng := s.cfg.Rand
	for _, d := range s.state.Devices() {
		if d.Status != types.StatusOnline {
			continue
		}
		lat := d.Location.Lat + (rng.Float64()-0.5)*s.cfg.Drift
		lng := d.Location.Lng + (rng.Float64()-0.5)*s.cfg.Drift
		s.state.MoveDevice(d.ID, lat, lng)
	}

	health := types.HealthSnapshot{
		Load:   rng.Intn(15) + 5,
		Status: HealthOptimal,
	}
	if rng.Float64() > 0.9 {
		health.Status = HealthSyncing
	}
	s.state.SetHealth(health)

	ticksTotal.Inc()
	systemLoad.Set(float64(health.Load))
}
