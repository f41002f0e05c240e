// Package session holds the mutable console state: the device fleet, the
// remote command log, raised alerts, the ambient transcript buffer, and the
// intercepted conversation and rule catalogs. All state is owned here and
// mutated only through the typed operations below; every read returns a copy
// so callers never share mutable references with the core.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oversight-labs/fleetwatch/internal/types"
)

// ErrDeviceNotFound is returned when an operation names an unknown device.
var ErrDeviceNotFound = errors.New("device not found")

// State is the single coordinator for all shared console state.
type State struct {
	mu sync.RWMutex

	devices    []types.Device
	selectedID string

	commandLog      []types.CommandLogEntry
	commandLogLimit int

	alerts []types.Alert

	transcripts     []types.TranscriptSegment
	transcriptLimit int

	conversations []types.Conversation
	decryptingID  string

	rules []types.Rule

	health   types.HealthSnapshot
	hardware types.HardwareStatus
}

// New creates an empty State with the given retention limits.
func New(commandLogLimit, transcriptLimit int) *State {
	if commandLogLimit <= 0 {
		commandLogLimit = 20
	}
	if transcriptLimit <= 0 {
		transcriptLimit = 50
	}
	return &State{
		commandLogLimit: commandLogLimit,
		transcriptLimit: transcriptLimit,
		health:          types.HealthSnapshot{Status: "Optimal"},
		hardware:        types.HardwareStatus{Camera: true, Microphone: true, GPS: true},
	}
}

// Seed installs the initial catalog state. The first device becomes the
// selected device.
func (s *State) Seed(devices []types.Device, conversations []types.Conversation, rules []types.Rule, alerts []types.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = append([]types.Device(nil), devices...)
	s.conversations = append([]types.Conversation(nil), conversations...)
	s.rules = append([]types.Rule(nil), rules...)
	s.alerts = append([]types.Alert(nil), alerts...)
	if len(s.devices) > 0 {
		s.selectedID = s.devices[0].ID
	}
}

// Devices returns a copy of the fleet.
func (s *State) Devices() []types.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Device(nil), s.devices...)
}

// Device returns the device with the given id.
func (s *State) Device(id string) (types.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.devices {
		if d.ID == id {
			return d, true
		}
	}
	return types.Device{}, false
}

// AddDevice appends a new device to the fleet.
func (s *State) AddDevice(d types.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = append(s.devices, d)
}

// SelectDevice marks the device with the given id as the active target.
func (s *State) SelectDevice(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if d.ID == id {
			s.selectedID = id
			return nil
		}
	}
	return ErrDeviceNotFound
}

// SelectedDevice returns the currently selected device, if any.
func (s *State) SelectedDevice() (types.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.devices {
		if d.ID == s.selectedID {
			return d, true
		}
	}
	return types.Device{}, false
}

// MoveDevice updates a device's coordinates. Unknown ids are ignored.
func (s *State) MoveDevice(id string, lat, lng float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.devices {
		if s.devices[i].ID == id {
			s.devices[i].Location.Lat = lat
			s.devices[i].Location.Lng = lng
			return
		}
	}
}

// AppendLog prepends an entry to the command log, evicting the oldest entry
// once the retention limit is reached.
func (s *State) AppendLog(text string, severity types.LogSeverity) types.CommandLogEntry {
	entry := types.CommandLogEntry{
		ID:        uuid.NewString(),
		Text:      text,
		Severity:  severity,
		Timestamp: time.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commandLog = append([]types.CommandLogEntry{entry}, s.commandLog...)
	if len(s.commandLog) > s.commandLogLimit {
		s.commandLog = s.commandLog[:s.commandLogLimit]
	}
	return entry
}

// CommandLog returns a copy of the command log, newest first.
func (s *State) CommandLog() []types.CommandLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.CommandLogEntry(nil), s.commandLog...)
}

// PrependAlert inserts an alert at the head of the alert list.
func (s *State) PrependAlert(a types.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append([]types.Alert{a}, s.alerts...)
}

// Alerts returns a copy of the alert list, newest first.
func (s *State) Alerts() []types.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Alert(nil), s.alerts...)
}

// MarkAlertRead sets the read flag on the alert with the given id. It reports
// whether the alert was found.
func (s *State) MarkAlertRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].IsRead = true
			return true
		}
	}
	return false
}

// UnreadAlertCount returns the number of unread alerts.
func (s *State) UnreadAlertCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.alerts {
		if !a.IsRead {
			n++
		}
	}
	return n
}

// AppendTranscript appends a segment to the transcript buffer, keeping only
// the most recent entries up to the retention limit.
func (s *State) AppendTranscript(seg types.TranscriptSegment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts = append(s.transcripts, seg)
	if len(s.transcripts) > s.transcriptLimit {
		s.transcripts = s.transcripts[len(s.transcripts)-s.transcriptLimit:]
	}
}

// Transcripts returns a copy of the transcript buffer, oldest first.
func (s *State) Transcripts() []types.TranscriptSegment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.TranscriptSegment(nil), s.transcripts...)
}

// ClearTranscripts empties the transcript buffer for a new capture session.
func (s *State) ClearTranscripts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts = nil
}

// Conversations returns a copy of the intercepted conversations.
func (s *State) Conversations() []types.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Conversation(nil), s.conversations...)
}

// Conversation returns the conversation with the given id.
func (s *State) Conversation(id string) (types.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations {
		if c.ID == id {
			return c, true
		}
	}
	return types.Conversation{}, false
}

// SetDecrypting records which conversation is currently being decrypted.
// An empty id clears the marker.
func (s *State) SetDecrypting(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decryptingID = id
}

// DecryptingID returns the id of the conversation being decrypted, or "".
func (s *State) DecryptingID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.decryptingID
}

// MarkDecrypted flips the decrypted flag on the conversation with the given
// id. It reports whether the conversation was found.
func (s *State) MarkDecrypted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			s.conversations[i].IsDecrypted = true
			return true
		}
	}
	return false
}

// Rules returns a copy of the enforcement rules.
func (s *State) Rules() []types.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Rule(nil), s.rules...)
}

// SetRules replaces the rule set, used when the catalog file is reloaded.
func (s *State) SetRules(rules []types.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append([]types.Rule(nil), rules...)
}

// ToggleRule flips the enabled flag on the rule with the given id. It reports
// whether the rule was found.
func (s *State) ToggleRule(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules {
		if s.rules[i].ID == id {
			s.rules[i].Enabled = !s.rules[i].Enabled
			return true
		}
	}
	return false
}

// Health returns the latest system health snapshot.
func (s *State) Health() types.HealthSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}

// SetHealth replaces the system health snapshot.
func (s *State) SetHealth(h types.HealthSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health = h
}

// Hardware returns the hardware channel flags for the selected device.
func (s *State) Hardware() types.HardwareStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hardware
}

// SetHardware replaces the hardware channel flags.
func (s *State) SetHardware(hw types.HardwareStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hardware = hw
}
