// Package command executes staged remote operations against the selected
// device: generic commands, zero-touch provisioning, and channel decryption.
// Every stage transition appends an ordered entry to the shared command log.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/oversight-labs/fleetwatch/internal/session"
	"github.com/oversight-labs/fleetwatch/internal/types"
)

var commandsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fleetwatch_commands_total",
		Help: "Total pipeline invocations by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

func init() {
	prometheus.MustRegister(commandsTotal)
}

// Pipeline precondition errors.
var (
	ErrNoDeviceSelected     = errors.New("no device selected")
	ErrEmptyProvisionTarget = errors.New("provisioning target is empty")
	ErrProvisionInProgress  = errors.New("provisioning already in progress")
	ErrConversationNotFound = errors.New("conversation not found")
)

// provisionStages is the ordered zero-touch provisioning handshake.
var provisionStages = []string{
	"SS7_PROTOCOL_HANDSHAKE",
	"SIGNAL_RECEPTION_STABLE",
	"PACKET_INJECTION_ESTABLISHED",
	"SHADOW_AGENT_DEPLOYED",
}

// DelayFunc suspends between pipeline stages. Tests inject an immediate
// implementation.
type DelayFunc func(ctx context.Context, d time.Duration) error

func sleepDelay(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Config holds the fixed stage delays for the pipeline.
type Config struct {
	DispatchDelay       time.Duration
	AckDelay            time.Duration
	ProvisionStageDelay time.Duration
	DecryptDelay        time.Duration
}

// Pipeline runs staged operations against the session state.
type Pipeline struct {
	cfg   Config
	state *session.State
	log   *logrus.Logger
	delay DelayFunc

	mu           sync.Mutex
	provisioning bool
	progress     float64
}

// New creates a Pipeline. A nil delay uses a real context-aware sleep.
func New(cfg Config, state *session.State, log *logrus.Logger, delay DelayFunc) *Pipeline {
	if delay == nil {
		delay = sleepDelay
	}
	return &Pipeline{cfg: cfg, state: state, log: log, delay: delay}
}

// Execute runs a generic remote command against the selected device. It
// fails with ErrNoDeviceSelected when no device is selected.
func (p *Pipeline) Execute(ctx context.Context, name string) error {
	target, ok := p.state.SelectedDevice()
	if !ok {
		commandsTotal.WithLabelValues("execute", "rejected").Inc()
		return ErrNoDeviceSelected
	}
	name = strings.ToUpper(strings.TrimSpace(name))

	p.state.AppendLog(fmt.Sprintf("INITIATING_%s...", name), types.LogInfo)
	if err := p.delay(ctx, p.cfg.DispatchDelay); err != nil {
		return err
	}
	p.state.AppendLog(fmt.Sprintf("PACKET_SENT -> TARGET: %s", target.Name), types.LogInfo)
	if err := p.delay(ctx, p.cfg.AckDelay); err != nil {
		return err
	}
	p.state.AppendLog(fmt.Sprintf("REMOTE_ACKNOWLEDGED: %s_EXECUTED", name), types.LogSuccess)

	p.applyHardwareEffect(name)

	commandsTotal.WithLabelValues("execute", "ok").Inc()
	p.log.WithFields(logrus.Fields{
		"command": name,
		"target":  target.Name,
	}).Info("Remote command acknowledged")
	return nil
}

// applyHardwareEffect flips the hardware channel flag for commands that
// control a capture channel on the device.
func (p *Pipeline) applyHardwareEffect(name string) {
	hw := p.state.Hardware()
	switch name {
	case "DISABLE_CAMERA":
		hw.Camera = false
	case "ENABLE_CAMERA":
		hw.Camera = true
	case "DISABLE_MIC":
		hw.Microphone = false
	case "ENABLE_MIC":
		hw.Microphone = true
	case "DISABLE_GPS":
		hw.GPS = false
	case "ENABLE_GPS":
		hw.GPS = true
	default:
		return
	}
	p.state.SetHardware(hw)
}

// Provision runs the zero-touch provisioning handshake for the given number.
// On completion a new online device is added to the fleet, selected, and
// returned.
func (p *Pipeline) Provision(ctx context.Context, number string) (types.Device, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		commandsTotal.WithLabelValues("provision", "rejected").Inc()
		return types.Device{}, ErrEmptyProvisionTarget
	}

	p.mu.Lock()
	if p.provisioning {
		p.mu.Unlock()
		commandsTotal.WithLabelValues("provision", "rejected").Inc()
		return types.Device{}, ErrProvisionInProgress
	}
	p.provisioning = true
	p.progress = 0
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.provisioning = false
		p.mu.Unlock()
	}()

	p.state.AppendLog(fmt.Sprintf("SEARCHING_CARRIER_LINK: %s", number), types.LogInfo)

	for i, stage := range provisionStages {
		if err := p.delay(ctx, p.cfg.ProvisionStageDelay); err != nil {
			return types.Device{}, err
		}
		p.setProgress(float64(i+1) / float64(len(provisionStages)) * 100)
		p.state.AppendLog(fmt.Sprintf("STATUS: %s... OK", stage), types.LogSuccess)
	}

	device := types.Device{
		ID:                   uuid.NewString(),
		Name:                 fmt.Sprintf("Shadow_%s", suffix(number, 4)),
		Type:                 types.DeviceMobile,
		Owner:                "Intercept",
		Status:               types.StatusOnline,
		LastSeen:             "Just now",
		Battery:              100,
		CallRecordingEnabled: true,
		Location: types.Location{
			Lat:     40.7128,
			Lng:     -74.0060,
			Address: "Network Location Estimated",
		},
	}
	p.state.AddDevice(device)
	if err := p.state.SelectDevice(device.ID); err != nil {
		return types.Device{}, err
	}
	p.state.AppendLog("ZERO_TOUCH_PROVISIONING_COMPLETE", types.LogSuccess)

	commandsTotal.WithLabelValues("provision", "ok").Inc()
	p.log.WithFields(logrus.Fields{
		"device_id":   device.ID,
		"device_name": device.Name,
	}).Info("Zero-touch provisioning complete")
	return device, nil
}

func (p *Pipeline) setProgress(v float64) {
	p.mu.Lock()
	p.progress = v
	p.mu.Unlock()
}

// Progress returns the provisioning progress percentage of the most recent
// run. It reads 100 after a completed run until the next one starts.
func (p *Pipeline) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Provisioning reports whether a provisioning run is in flight.
func (p *Pipeline) Provisioning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.provisioning
}

// DecryptChannel opens an intercepted conversation. Decrypting an already
// open channel returns immediately without re-running the timed sequence.
func (p *Pipeline) DecryptChannel(ctx context.Context, id string) error {
	conv, ok := p.state.Conversation(id)
	if !ok {
		commandsTotal.WithLabelValues("decrypt", "rejected").Inc()
		return ErrConversationNotFound
	}
	if conv.IsDecrypted {
		commandsTotal.WithLabelValues("decrypt", "noop").Inc()
		return nil
	}

	p.state.SetDecrypting(id)
	p.state.AppendLog(fmt.Sprintf("INIT_DECRYPT: CHANNEL_%s", strings.ToUpper(id)), types.LogInfo)
	if err := p.delay(ctx, p.cfg.DecryptDelay); err != nil {
		p.state.SetDecrypting("")
		return err
	}
	p.state.MarkDecrypted(id)
	p.state.SetDecrypting("")
	p.state.AppendLog("DECRYPT_SUCCESS: PACKET_STREAM_OPENED", types.LogSuccess)

	commandsTotal.WithLabelValues("decrypt", "ok").Inc()
	p.log.WithField("conversation_id", id).Info("Channel decrypted")
	return nil
}

// suffix returns the last n characters of s.
func suffix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
