// Package types defines the shared data model for the fleet console: devices,
// command log entries, alerts, transcripts, and the static catalog records.
package types

import "time"

// DeviceType classifies a monitored device.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DevicePC      DeviceType = "pc"
	DeviceConsole DeviceType = "console"
)

// Device statuses.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Location is a device's last known geographic position.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// Device is a monitored device in the fleet.
type Device struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Type                 DeviceType `json:"type"`
	Owner                string     `json:"owner"`
	Status               string     `json:"status"`
	LastSeen             string     `json:"last_seen"`
	ScreenTimeToday      int        `json:"screen_time_today"`
	Battery              int        `json:"battery"`
	CallRecordingEnabled bool       `json:"call_recording_enabled"`
	Location             Location   `json:"location"`
}

// LogSeverity classifies a command log entry for display.
type LogSeverity string

const (
	LogInfo    LogSeverity = "info"
	LogSuccess LogSeverity = "success"
	LogDanger  LogSeverity = "danger"
)

// CommandLogEntry is one line in the append-only remote command log.
type CommandLogEntry struct {
	ID        string      `json:"id"`
	Text      string      `json:"text"`
	Severity  LogSeverity `json:"severity"`
	Timestamp time.Time   `json:"timestamp"`
}

// TranscriptSegment is one line of captured ambient audio transcription.
type TranscriptSegment struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Speaker string `json:"speaker"`
	Time    string `json:"time"`
}

// Conversation is an intercepted messaging channel on a monitored device.
type Conversation struct {
	ID             string `json:"id"`
	Platform       string `json:"platform"`
	ContactName    string `json:"contact_name"`
	ContactRisk    string `json:"contact_risk"`
	LastMessage    string `json:"last_message"`
	UsageTimeToday int    `json:"usage_time_today"`
	IsDecrypted    bool   `json:"is_decrypted"`
}

// RuleType classifies an enforcement rule.
type RuleType string

const (
	RuleBlock    RuleType = "block"
	RuleLimit    RuleType = "limit"
	RuleSchedule RuleType = "schedule"
)

// Rule is an externally supplied enforcement rule toggle.
type Rule struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Type    RuleType `json:"type"`
	Target  string   `json:"target"`
	Enabled bool     `json:"enabled"`
}

// HealthSnapshot is the aggregate system health reading recomputed each
// simulation tick.
type HealthSnapshot struct {
	Load   int    `json:"load"`
	Status string `json:"status"`
}

// HardwareStatus tracks which capture channels are enabled on the selected
// device.
type HardwareStatus struct {
	Camera     bool `json:"camera"`
	Microphone bool `json:"microphone"`
	GPS        bool `json:"gps"`
}
