// Package alerts converts qualifying risk reports and detection events into
// persisted, read-tracked alerts on the session state.
package alerts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/oversight-labs/fleetwatch/internal/riskanalysis"
	"github.com/oversight-labs/fleetwatch/internal/session"
	"github.com/oversight-labs/fleetwatch/internal/types"
)

var alertsRaised = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fleetwatch_alerts_raised_total",
		Help: "Total alerts raised by severity",
	},
	[]string{"severity"},
)

func init() {
	prometheus.MustRegister(alertsRaised)
}

// Engine raises alerts on the session state.
type Engine struct {
	state *session.State
	log   *logrus.Logger
}

// NewEngine creates an alert engine over the given session state.
func NewEngine(state *session.State, log *logrus.Logger) *Engine {
	return &Engine{state: state, log: log}
}

// RaiseIfQualifying promotes an ambient analysis report to an alert when its
// threat level is Medium or High. High maps to a critical alert, Medium to a
// warning. Low reports and fallback reports raise nothing. It returns the
// raised alert, or false if the report did not qualify.
func (e *Engine) RaiseIfQualifying(report riskanalysis.AmbientReport) (types.Alert, bool) {
	if report.Fallback {
		return types.Alert{}, false
	}
	var severity string
	switch report.ThreatLevel {
	case riskanalysis.ThreatHigh:
		severity = types.SeverityCritical
	case riskanalysis.ThreatMedium:
		severity = types.SeverityWarning
	default:
		return types.Alert{}, false
	}

	alert := e.Raise(
		fmt.Sprintf("Ambient Risk Detected: %s", report.ThreatLevel),
		report.Summary,
		severity,
	)
	return alert, true
}

// Raise creates an unread alert and prepends it to the alert list.
func (e *Engine) Raise(title, description, severity string) types.Alert {
	alert := types.Alert{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Severity:    severity,
		Timestamp:   time.Now(),
		IsRead:      false,
	}
	e.state.PrependAlert(alert)

	alertsRaised.WithLabelValues(severity).Inc()
	e.log.WithFields(logrus.Fields{
		"alert_id":    alert.ID,
		"severity":    severity,
		"title":       title,
		"description": description,
	}).Warn("SAFETY ALERT")

	return alert
}

// MarkRead acknowledges the alert with the given id. Unknown ids are a no-op.
func (e *Engine) MarkRead(id string) {
	if !e.state.MarkAlertRead(id) {
		e.log.WithField("alert_id", id).Debug("MarkRead for unknown alert")
	}
}

// UnreadCount returns the number of unacknowledged alerts.
func (e *Engine) UnreadCount() int {
	return e.state.UnreadAlertCount()
}
