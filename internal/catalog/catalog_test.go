package catalog

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oversight-labs/fleetwatch/internal/types"
)

func TestDefault(t *testing.T) {
	seed := Default()
	if len(seed.Devices) != 2 {
		t.Fatalf("device count = %d, want 2", len(seed.Devices))
	}
	if seed.Devices[0].Name != "Leo's iPhone" || seed.Devices[0].Status != types.StatusOnline {
		t.Errorf("first device = %+v", seed.Devices[0])
	}
	if seed.Devices[1].Status != types.StatusOffline {
		t.Errorf("second device should be offline")
	}
	if len(seed.Rules) == 0 || len(seed.Conversations) == 0 || len(seed.Alerts) == 0 {
		t.Error("expected non-empty rules, conversations, and alerts")
	}
}

func TestLoad_OverridesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	content := `{"rules":[{"id":"r9","title":"Custom","type":"block","target":"x","enabled":true}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	seed, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(seed.Rules) != 1 || seed.Rules[0].ID != "r9" {
		t.Errorf("rules = %+v, want the file's rule set", seed.Rules)
	}
	// sections missing from the file keep defaults
	if len(seed.Devices) != 2 {
		t.Errorf("device count = %d, want defaults", len(seed.Devices))
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	os.WriteFile(path, []byte("{nope"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestWatcher_ReloadsRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(path, []byte(`{"rules":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	reloaded := make(chan []types.Rule, 4)
	w, err := NewWatcher(path, log, func(rules []types.Rule) {
		reloaded <- rules
	})
	if err != nil {
		t.Skipf("cannot create watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// give the watch loop a moment before writing
	time.Sleep(50 * time.Millisecond)
	content := `{"rules":[{"id":"r1","title":"T","type":"limit","target":"g","enabled":false}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case rules := <-reloaded:
		if len(rules) != 1 || rules[0].ID != "r1" {
			t.Errorf("reloaded rules = %+v", rules)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rule reload")
	}
}
