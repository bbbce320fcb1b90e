package main

import (
	"bytes"
	"strings"
	"testing"

	"pitlane/pkg/config"
	"pitlane/pkg/curve"
	"pitlane/pkg/power"
)

func TestRunUnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"race"}, &out, &errOut)
	if code != 2 {
		t.Fatalf("exit code: got %d want 2", code)
	}
	if !strings.Contains(errOut.String(), "unknown command") {
		t.Fatalf("missing diagnostic: %q", errOut.String())
	}
}

func TestRunHelp(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"--help"}, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit code: got %d want 0", code)
	}
	if !strings.Contains(out.String(), "pitlaned server") {
		t.Fatalf("usage not printed: %q", out.String())
	}
}

func TestSeedControls(t *testing.T) {
	controls := power.NewControls()
	slots := []config.SlotConfig{
		{ID: 1, Power: 40, Profile: "exponential"},
		{ID: 5, Power: 20, Ghost: true},
	}
	if err := seedControls(controls, slots); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s1 := controls.Slot(1)
	if s1.Power != 40 || s1.Profile != curve.Exponential {
		t.Fatalf("slot 1: %+v", s1)
	}
	s5 := controls.Slot(5)
	if s5.Power != 20 || !s5.Ghost || s5.Profile != curve.Linear {
		t.Fatalf("slot 5: %+v", s5)
	}
}

func TestSeedControlsRejectsBadProfile(t *testing.T) {
	controls := power.NewControls()
	err := seedControls(controls, []config.SlotConfig{{ID: 1, Profile: "banked"}})
	if err == nil {
		t.Fatalf("expected profile error")
	}
}
