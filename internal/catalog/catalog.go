// Package catalog supplies the externally provided initial state: the seed
// fleet, intercepted conversations, enforcement rules, and initial alerts.
// The built-in defaults can be overridden by a JSON catalog file, and rule
// toggles are hot-reloaded when that file changes.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/oversight-labs/fleetwatch/internal/types"
)

// Seed is the initial console state supplied by the catalog.
type Seed struct {
	Devices       []types.Device       `json:"devices"`
	Conversations []types.Conversation `json:"conversations"`
	Rules         []types.Rule         `json:"rules"`
	Alerts        []types.Alert        `json:"alerts"`
}

// Default returns the built-in seed catalog.
func Default() Seed {
	now := time.Now()
	return Seed{
		Devices: []types.Device{
			{
				ID:                   "dev-1",
				Name:                 "Leo's iPhone",
				Type:                 types.DeviceMobile,
				Owner:                "Leo",
				Status:               types.StatusOnline,
				LastSeen:             "Just now",
				ScreenTimeToday:      145,
				Battery:              82,
				CallRecordingEnabled: true,
				Location:             types.Location{Lat: 40.7128, Lng: -74.0060, Address: "Lincoln Junior High School"},
			},
			{
				ID:              "dev-2",
				Name:            "Emma's iPad",
				Type:            types.DeviceTablet,
				Owner:           "Emma",
				Status:          types.StatusOffline,
				LastSeen:        "2h ago",
				ScreenTimeToday: 60,
				Battery:         14,
				Location:        types.Location{Lat: 40.7580, Lng: -73.9855, Address: "Public Library"},
			},
		},
		Conversations: []types.Conversation{
			{
				ID:             "conv-1",
				Platform:       "WhatsApp",
				ContactName:    "Leo (Son)",
				ContactRisk:    "Safe",
				LastMessage:    "I will be home late today.",
				UsageTimeToday: 42,
			},
			{
				ID:          "conv-2",
				Platform:    "Instagram",
				ContactName: "stranger_99",
				ContactRisk: "Critical",
				LastMessage: "Hey, are you home alone right now?",
			},
		},
		Rules: []types.Rule{
			{ID: "rule-1", Title: "Block Social After 21:00", Type: types.RuleSchedule, Target: "Social", Enabled: true},
			{ID: "rule-2", Title: "Limit Gaming to 1h", Type: types.RuleLimit, Target: "Gaming", Enabled: true},
			{ID: "rule-3", Title: "Block Unknown Installers", Type: types.RuleBlock, Target: "*.exe", Enabled: false},
		},
		Alerts: []types.Alert{
			{
				ID:          "alert-seed-1",
				Title:       "Suspicious Executable",
				Description: "Deep scan found an unverified .exe in Leo's downloads.",
				Severity:    types.SeverityCritical,
				Timestamp:   now.Add(-10 * time.Minute),
			},
			{
				ID:          "alert-seed-2",
				Title:       "Bedtime Violation",
				Description: "Emma used iPad 20 mins past scheduled curfew.",
				Severity:    types.SeverityWarning,
				Timestamp:   now.Add(-time.Hour),
			},
			{
				ID:          "alert-seed-3",
				Title:       "Encrypted Backup",
				Description: "Weekly safety cloud sync completed successfully.",
				Severity:    types.SeverityInfo,
				Timestamp:   now.Add(-5 * time.Hour),
				IsRead:      true,
			},
		},
	}
}

// Load reads a seed catalog from a JSON file. Sections missing from the file
// fall back to the built-in defaults.
func Load(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to read catalog: %w", err)
	}
	seed := Default()
	var file Seed
	if err := json.Unmarshal(data, &file); err != nil {
		return Seed{}, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if file.Devices != nil {
		seed.Devices = file.Devices
	}
	if file.Conversations != nil {
		seed.Conversations = file.Conversations
	}
	if file.Rules != nil {
		seed.Rules = file.Rules
	}
	if file.Alerts != nil {
		seed.Alerts = file.Alerts
	}
	return seed, nil
}
