package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_KeepsDefaultsForMissingKeys(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	raw := "tick_rate_hz: 10\nslow_motion: 3\nanimations_ms:\n  walk: 100\n"
	if err := os.WriteFile(p, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tu, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.TickRateHz != 10 {
		t.Fatalf("tick rate: %d", tu.TickRateHz)
	}
	if tu.BlastDamage != Defaults().BlastDamage {
		t.Fatalf("blast damage should keep default, got %d", tu.BlastDamage)
	}
	if tu.AnimationMs("walk") != 100 {
		t.Fatalf("walk: %v", tu.AnimationMs("walk"))
	}
	if got := tu.Dilation(); got != 2 {
		t.Fatalf("dilation: %v", got)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_rate_hz: 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CRAFT_TICK_RATE_HZ", "40")
	t.Setenv("CRAFT_DEBUG", "true")
	t.Setenv("CRAFT_SEED", "99")
	tu := Defaults()
	if err := ApplyEnv(&tu); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if tu.TickRateHz != 40 || !tu.Debug || tu.Seed != 99 {
		t.Fatalf("env not applied: %+v", tu)
	}
	if tu.SlowMotion != 1.5 {
		t.Fatalf("unset variables must not clobber defaults: %v", tu.SlowMotion)
	}
}

func TestApplyEnv_RejectsUnboundedLimits(t *testing.T) {
	for _, name := range []string{"CRAFT_MAX_TICKS", "CRAFT_SCRIPT_BUDGET"} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, "0")
			tu := Defaults()
			if err := ApplyEnv(&tu); err == nil {
				t.Fatalf("%s=0 should be rejected", name)
			}
		})
	}
}
