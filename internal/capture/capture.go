// Package capture manages device capture sessions (camera, screen, ambient).
// The core only handles session lifecycle; for ambient mode it ingests
// timestamped transcript segments into the session buffer until the capture
// is stopped. The segment source simulates the device-side transcriber.
package capture

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/oversight-labs/fleetwatch/internal/session"
	"github.com/oversight-labs/fleetwatch/internal/types"
)

var activeCaptures = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "fleetwatch_active_captures",
		Help: "Number of active capture sessions",
	},
)

func init() {
	prometheus.MustRegister(activeCaptures)
}

// Capture modes.
const (
	ModeCamera  = "camera"
	ModeScreen  = "screen"
	ModeAmbient = "ambient"
)

// Capture lifecycle errors.
var (
	ErrCaptureActive = errors.New("a capture session is already active")
	ErrNoCapture     = errors.New("no matching active capture session")
	ErrUnknownMode   = errors.New("unknown capture mode")
)

// ambientPhrases is the simulated transcriber's phrase pool.
var ambientPhrases = []types.TranscriptSegment{
	{Text: "Yeah, let's just go after school.", Speaker: "Child"},
	{Text: "Did you finish the homework?", Speaker: "Friend"},
	{Text: "I don't know, it's a secret.", Speaker: "Child"},
	{Text: "Wait, someone is coming.", Speaker: "Unknown"},
	{Text: "Is it safe here?", Speaker: "Friend"},
	{Text: "Shut up and listen.", Speaker: "Unknown"},
	{Text: "Why are you always so loud?", Speaker: "Teacher"},
	{Text: "Don't tell anyone about this place.", Speaker: "Unknown"},
}

// Session is a handle for one active capture.
type Session struct {
	ID   string
	Mode string

	cancel context.CancelFunc
	done   chan struct{}
}

// Config for the capture manager.
type Config struct {
	// SegmentInterval is the cadence of simulated ambient segments.
	SegmentInterval time.Duration
	// Rand selects phrases; a seeded source makes tests deterministic.
	Rand *rand.Rand
}

// Manager owns the single active capture session.
type Manager struct {
	cfg   Config
	state *session.State
	log   *logrus.Logger

	mu     sync.Mutex
	active *Session
}

// NewManager creates a capture manager over the given session state.
func NewManager(cfg Config, state *session.State, log *logrus.Logger) *Manager {
	if cfg.SegmentInterval <= 0 {
		cfg.SegmentInterval = 3500 * time.Millisecond
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Manager{cfg: cfg, state: state, log: log}
}

// Start opens a capture session in the given mode. Only one session may be
// active at a time. Ambient mode clears the transcript buffer and begins
// delivering segments until the session is stopped.
func (m *Manager) Start(ctx context.Context, mode string) (*Session, error) {
	switch mode {
	case ModeCamera, ModeScreen, ModeAmbient:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return nil, ErrCaptureActive
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:     uuid.NewString(),
		Mode:   mode,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if mode == ModeAmbient {
		m.state.ClearTranscripts()
		go m.ingestSegments(ctx, s)
	} else {
		close(s.done)
	}

	m.active = s
	activeCaptures.Set(1)
	m.state.AppendLog(fmt.Sprintf("ESTABLISHED_%s_TUNNEL", strings.ToUpper(mode)), types.LogSuccess)
	m.log.WithFields(logrus.Fields{
		"session_id": s.ID,
		"mode":       mode,
	}).Info("Capture session established")
	return s, nil
}

// Stop closes the given capture session. Future segment deliveries are
// cancelled; segments already appended stay in the buffer.
func (m *Manager) Stop(s *Session) error {
	m.mu.Lock()
	if s == nil || m.active == nil || m.active.ID != s.ID {
		m.mu.Unlock()
		return ErrNoCapture
	}
	m.active = nil
	m.mu.Unlock()

	s.cancel()
	<-s.done
	activeCaptures.Set(0)
	m.log.WithField("session_id", s.ID).Info("Capture session stopped")
	return nil
}

// Active returns the mode of the active session, or "" when idle.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ""
	}
	return m.active.Mode
}

func (m *Manager) ingestSegments(ctx context.Context, s *Session) {
	defer close(s.done)
	ticker := time.NewTicker(m.cfg.SegmentInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			phrase := ambientPhrases[m.cfg.Rand.Intn(len(ambientPhrases))]
			m.state.AppendTranscript(types.TranscriptSegment{
				ID:      uuid.NewString(),
				Text:    phrase.Text,
				Speaker: phrase.Speaker,
				Time:    time.Now().Format("15:04:05"),
			})
		}
	}
}
