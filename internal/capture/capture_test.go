package capture

import (
	"context"
	"io"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oversight-labs/fleetwatch/internal/session"
	"github.com/oversight-labs/fleetwatch/internal/types"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newManager(interval time.Duration) (*Manager, *session.State) {
	state := session.New(20, 50)
	m := NewManager(Config{
		SegmentInterval: interval,
		Rand:            rand.New(rand.NewSource(1)),
	}, state, testLogger())
	return m, state
}

func TestStart_UnknownMode(t *testing.T) {
	m, _ := newManager(time.Millisecond)
	if _, err := m.Start(context.Background(), "xray"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestStart_SingleActiveSession(t *testing.T) {
	m, _ := newManager(time.Hour)
	s, err := m.Start(context.Background(), ModeCamera)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := m.Start(context.Background(), ModeScreen); err != ErrCaptureActive {
		t.Errorf("second Start = %v, want ErrCaptureActive", err)
	}
	if m.Active() != ModeCamera {
		t.Errorf("Active = %q, want camera", m.Active())
	}
	if err := m.Stop(s); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if m.Active() != "" {
		t.Errorf("Active after stop = %q, want empty", m.Active())
	}
}

func TestStart_LogsTunnelEntry(t *testing.T) {
	m, state := newManager(time.Hour)
	s, err := m.Start(context.Background(), ModeAmbient)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop(s)
	log := state.CommandLog()
	if len(log) != 1 || !strings.Contains(log[0].Text, "ESTABLISHED_AMBIENT_TUNNEL") {
		t.Errorf("log = %+v, want tunnel entry", log)
	}
}

func TestAmbient_DeliversSegments(t *testing.T) {
	m, state := newManager(5 * time.Millisecond)
	s, err := m.Start(context.Background(), ModeAmbient)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for len(state.Transcripts()) < 3 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for transcript segments")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if err := m.Stop(s); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	for _, seg := range state.Transcripts() {
		if seg.Text == "" || seg.Speaker == "" || seg.Time == "" || seg.ID == "" {
			t.Errorf("incomplete segment: %+v", seg)
		}
	}
}

func TestStop_CancelsFutureDeliveries(t *testing.T) {
	m, state := newManager(5 * time.Millisecond)
	s, _ := m.Start(context.Background(), ModeAmbient)
	time.Sleep(30 * time.Millisecond)
	if err := m.Stop(s); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	n := len(state.Transcripts())
	time.Sleep(30 * time.Millisecond)
	if got := len(state.Transcripts()); got != n {
		t.Errorf("segments appended after Stop: %d -> %d", n, got)
	}
}

func TestStop_UnknownSession(t *testing.T) {
	m, _ := newManager(time.Hour)
	if err := m.Stop(nil); err != ErrNoCapture {
		t.Errorf("Stop(nil) = %v, want ErrNoCapture", err)
	}
	if err := m.Stop(&Session{ID: "ghost"}); err != ErrNoCapture {
		t.Errorf("Stop(ghost) = %v, want ErrNoCapture", err)
	}
}

func TestAmbientStart_ClearsPreviousTranscripts(t *testing.T) {
	m, state := newManager(time.Hour)
	state.AppendTranscript(types.TranscriptSegment{ID: "old", Text: "stale"})
	s, err := m.Start(context.Background(), ModeAmbient)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop(s)
	if got := len(state.Transcripts()); got != 0 {
		t.Errorf("transcript length after ambient start = %d, want 0", got)
	}
}
