package command

import (
	"context"
	"io"
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

func noDelay(ctx context.Context, d time.Duration) error { return nil }

func newPipeline(seed bool) (*Pipeline, *session.State) {
	state := session.New(20, 50)
	if seed {
		state.Seed([]types.Device{
			{ID: "d1", Name: "Leo's iPhone", Status: types.StatusOnline},
		}, []types.Conversation{
			{ID: "conv1", ContactName: "Leo (Son)"},
			{ID: "conv2", ContactName: "Unknown", IsDecrypted: true},
		}, nil, nil)
	}
	p := New(Config{}, state, testLogger(), noDelay)
	return p, state
}

func TestExecute_OrderedLogEntries(t *testing.T) {
	p, state := newPipeline(true)
	if err := p.Execute(context.Background(), "GLOBAL_PANIC"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	log := state.CommandLog()
	if len(log) != 3 {
		t.Fatalf("log length = %d, want 3", len(log))
	}
	// newest first: ack, dispatch, initiation
	if !strings.Contains(log[2].Text, "INITIATING_GLOBAL_PANIC") {
		t.Errorf("first entry = %q", log[2].Text)
	}
	if !strings.Contains(log[1].Text, "Leo's iPhone") {
		t.Errorf("dispatch entry = %q, want target name", log[1].Text)
	}
	if !strings.Contains(log[0].Text, "GLOBAL_PANIC_EXECUTED") {
		t.Errorf("ack entry = %q", log[0].Text)
	}
	if log[0].Severity != types.LogSuccess {
		t.Errorf("ack severity = %q, want success", log[0].Severity)
	}
	if log[1].Severity != types.LogInfo || log[2].Severity != types.LogInfo {
		t.Error("initiation and dispatch entries should be info")
	}
}

func TestExecute_NoDeviceSelected(t *testing.T) {
	p, state := newPipeline(false)
	err := p.Execute(context.Background(), "GLOBAL_PANIC")
	if err != ErrNoDeviceSelected {
		t.Errorf("Execute with empty fleet = %v, want ErrNoDeviceSelected", err)
	}
	if got := len(state.CommandLog()); got != 0 {
		t.Errorf("log length = %d, want 0", got)
	}
}

func TestExecute_HardwareEffect(t *testing.T) {
	p, state := newPipeline(true)
	if err := p.Execute(context.Background(), "disable_camera"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if state.Hardware().Camera {
		t.Error("camera flag still set after DISABLE_CAMERA")
	}
	if err := p.Execute(context.Background(), "ENABLE_CAMERA"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !state.Hardware().Camera {
		t.Error("camera flag not restored after ENABLE_CAMERA")
	}
}

func TestProvision_HappyPath(t *testing.T) {
	state := session.New(20, 50)
	var progress []float64
	var p *Pipeline
	// sample progress at each stage boundary
	p = New(Config{}, state, testLogger(), func(ctx context.Context, d time.Duration) error {
		progress = append(progress, p.Progress())
		return nil
	})

	dev, err := p.Provision(context.Background(), "+1 (555) 000-1234")
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if dev.Name != "Shadow_1234" {
		t.Errorf("returned device name = %q, want Shadow_1234", dev.Name)
	}

	for i := 1; i < len(progress); i++ {
		if progress[i] <= progress[i-1] {
			t.Errorf("progress not strictly increasing: %v", progress)
			break
		}
	}
	if p.Progress() != 100 {
		t.Errorf("final progress = %v, want 100", p.Progress())
	}

	devices := state.Devices()
	if len(devices) != 1 {
		t.Fatalf("device count = %d, want 1", len(devices))
	}
	d := devices[0]
	if d.Status != types.StatusOnline || d.Battery != 100 {
		t.Errorf("device = %+v, want online with battery 100", d)
	}
	if d.Name != "Shadow_1234" {
		t.Errorf("device name = %q, want Shadow_1234", d.Name)
	}
	sel, ok := state.SelectedDevice()
	if !ok || sel.ID != d.ID {
		t.Error("provisioned device was not selected")
	}

	log := state.CommandLog()
	// search entry + 4 stages + completion
	if len(log) != 6 {
		t.Fatalf("log length = %d, want 6", len(log))
	}
	if !strings.Contains(log[0].Text, "ZERO_TOUCH_PROVISIONING_COMPLETE") {
		t.Errorf("final entry = %q", log[0].Text)
	}
	if !strings.Contains(log[5].Text, "SEARCHING_CARRIER_LINK") {
		t.Errorf("first entry = %q", log[5].Text)
	}
	if !strings.Contains(log[4].Text, "SS7_PROTOCOL_HANDSHAKE") {
		t.Errorf("first stage entry = %q", log[4].Text)
	}
}

func TestProvision_EmptyNumber(t *testing.T) {
	p, state := newPipeline(false)
	if _, err := p.Provision(context.Background(), "   "); err != ErrEmptyProvisionTarget {
		t.Errorf("Provision(empty) = %v, want ErrEmptyProvisionTarget", err)
	}
	if got := len(state.Devices()); got != 0 {
		t.Errorf("device count = %d, want 0", got)
	}
}

func TestProvision_ShortNumberSuffix(t *testing.T) {
	p, state := newPipeline(false)
	if _, err := p.Provision(context.Background(), "99"); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if got := state.Devices()[0].Name; got != "Shadow_99" {
		t.Errorf("device name = %q, want Shadow_99", got)
	}
}

func TestDecryptChannel(t *testing.T) {
	p, state := newPipeline(true)
	if err := p.DecryptChannel(context.Background(), "conv1"); err != nil {
		t.Fatalf("DecryptChannel: %v", err)
	}
	c, _ := state.Conversation("conv1")
	if !c.IsDecrypted {
		t.Error("conversation not decrypted")
	}
	if state.DecryptingID() != "" {
		t.Error("decrypting marker not cleared")
	}
	log := state.CommandLog()
	if len(log) != 2 {
		t.Fatalf("log length = %d, want 2", len(log))
	}
	if !strings.Contains(log[1].Text, "INIT_DECRYPT: CHANNEL_CONV1") {
		t.Errorf("init entry = %q", log[1].Text)
	}
	if !strings.Contains(log[0].Text, "DECRYPT_SUCCESS") {
		t.Errorf("success entry = %q", log[0].Text)
	}
}

func TestDecryptChannel_AlreadyDecryptedIsNoop(t *testing.T) {
	p, state := newPipeline(true)
	if err := p.DecryptChannel(context.Background(), "conv2"); err != nil {
		t.Fatalf("DecryptChannel: %v", err)
	}
	if got := len(state.CommandLog()); got != 0 {
		t.Errorf("log length = %d, want 0 for already-decrypted channel", got)
	}
}

func TestDecryptChannel_Unknown(t *testing.T) {
	p, _ := newPipeline(true)
	if err := p.DecryptChannel(context.Background(), "nope"); err != ErrConversationNotFound {
		t.Errorf("DecryptChannel(unknown) = %v, want ErrConversationNotFound", err)
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	state := session.New(20, 50)
	state.Seed([]types.Device{{ID: "d1", Name: "n", Status: types.StatusOnline}}, nil, nil, nil)
	p := New(Config{DispatchDelay: time.Minute}, state, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Execute(ctx, "LOCK"); err == nil {
		t.Error("expected error from cancelled context")
	}
	// the initiation entry was already appended; no rollback
	if got := len(state.CommandLog()); got != 1 {
		t.Errorf("log length = %d, want 1", got)
	}
}
