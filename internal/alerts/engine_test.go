package alerts

import (
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/oversight-labs/fleetwatch/internal/riskanalysis"
	"github.com/oversight-labs/fleetwatch/internal/session"
	"github.com/oversight-labs/fleetwatch/internal/types"
)

func newEngine() (*Engine, *session.State) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	state := session.New(20, 50)
	return NewEngine(state, log), state
}

func TestRaiseIfQualifying_High(t *testing.T) {
	e, state := newEngine()
	alert, raised := e.RaiseIfQualifying(riskanalysis.AmbientReport{
		Context:     "Street",
		ThreatLevel: riskanalysis.ThreatHigh,
		Summary:     "Coercive language detected",
	})
	if !raised {
		t.Fatal("expected a High report to raise an alert")
	}
	if alert.Severity != types.SeverityCritical {
		t.Errorf("severity = %q, want critical", alert.Severity)
	}
	if !strings.Contains(alert.Title, "High") {
		t.Errorf("title = %q, want it to contain the threat level", alert.Title)
	}
	if alert.Description != "Coercive language detected" {
		t.Errorf("description = %q", alert.Description)
	}
	if got := len(state.Alerts()); got != 1 {
		t.Errorf("alert count = %d, want 1", got)
	}
}

func TestRaiseIfQualifying_Medium(t *testing.T) {
	e, state := newEngine()
	alert, raised := e.RaiseIfQualifying(riskanalysis.AmbientReport{
		ThreatLevel: riskanalysis.ThreatMedium,
		Summary:     "Tense exchange detected",
	})
	if !raised {
		t.Fatal("expected a Medium report to raise an alert")
	}
	if alert.Severity != types.SeverityWarning {
		t.Errorf("severity = %q, want warning", alert.Severity)
	}
	if !strings.Contains(alert.Title, "Medium") {
		t.Errorf("title = %q, want it to contain Medium", alert.Title)
	}
	if alert.IsRead {
		t.Error("new alert should be unread")
	}
	if e.UnreadCount() != 1 {
		t.Errorf("unread count = %d, want 1", e.UnreadCount())
	}
	_ = state
}

func TestRaiseIfQualifying_LowRaisesNothing(t *testing.T) {
	e, state := newEngine()
	if _, raised := e.RaiseIfQualifying(riskanalysis.AmbientReport{ThreatLevel: riskanalysis.ThreatLow}); raised {
		t.Error("Low report should not raise an alert")
	}
	if got := len(state.Alerts()); got != 0 {
		t.Errorf("alert count = %d, want 0", got)
	}
}

func TestRaiseIfQualifying_FallbackRaisesNothing(t *testing.T) {
	e, state := newEngine()
	report := riskanalysis.AmbientReport{ThreatLevel: riskanalysis.ThreatHigh, Fallback: true}
	if _, raised := e.RaiseIfQualifying(report); raised {
		t.Error("fallback report should not raise an alert")
	}
	if got := len(state.Alerts()); got != 0 {
		t.Errorf("alert count = %d, want 0", got)
	}
}

func TestRaise_PrependsNewestFirst(t *testing.T) {
	e, state := newEngine()
	e.Raise("first", "d", types.SeverityInfo)
	e.Raise("second", "d", types.SeverityWarning)
	alerts := state.Alerts()
	if len(alerts) != 2 || alerts[0].Title != "second" {
		t.Errorf("alerts = %+v, want newest first", alerts)
	}
	if alerts[0].ID == alerts[1].ID {
		t.Error("alert ids must be unique")
	}
}

func TestMarkRead(t *testing.T) {
	e, state := newEngine()
	a := e.Raise("t", "d", types.SeverityCritical)
	e.MarkRead(a.ID)
	if e.UnreadCount() != 0 {
		t.Errorf("unread count = %d, want 0", e.UnreadCount())
	}
	// unknown id is a no-op
	e.MarkRead("missing")
	if got := len(state.Alerts()); got != 1 {
		t.Errorf("alert count = %d, want 1", got)
	}
}
