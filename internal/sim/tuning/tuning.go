package tuning

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int   `yaml:"tick_rate_hz" env:"TICK_RATE_HZ"`
	Debug      bool  `yaml:"debug" env:"DEBUG"`
	Seed       int64 `yaml:"seed" env:"SEED"`

	// SlowMotion stretches every animation and wait. Durations in this file
	// were tuned at AssumedSlowMotion, so time runs 1:1 when both match.
	SlowMotion        float64 `yaml:"slow_motion" env:"SLOW_MOTION"`
	AssumedSlowMotion float64 `yaml:"assumed_slow_motion"`

	BlastDamage int     `yaml:"blast_damage"`
	BurnEveryMs float64 `yaml:"burn_every_ms"`

	// Player delays shrink linearly while the player queue holds between
	// SpeedUpStart and SpeedUpEnd commands.
	SpeedUpStart int `yaml:"speed_up_start"`
	SpeedUpEnd   int `yaml:"speed_up_end"`

	MaxTicks int `yaml:"max_ticks" env:"MAX_TICKS"`

	// ScriptBudget caps the Lua instructions a program body or a single
	// event handler may execute.
	ScriptBudget int `yaml:"script_budget" env:"SCRIPT_BUDGET"`

	Animations map[string]float64 `yaml:"animations_ms"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:        20,
		Seed:              1,
		SlowMotion:        1.5,
		AssumedSlowMotion: 1.5,
		BlastDamage:       2,
		BurnEveryMs:       1000,
		SpeedUpStart:      10,
		SpeedUpEnd:        20,
		MaxTicks:          20 * 60 * 5,
		ScriptBudget:      10_000_000,
		Animations: map[string]float64{
			"walk":           400,
			"bump":           400,
			"turn":           200,
			"attack":         400,
			"hurt":           300,
			"death":          600,
			"flash":          300,
			"drop":           300,
			"punch":          300,
			"punchAir":       300,
			"destroyBlock":   600,
			"placeBlock":     400,
			"door":           300,
			"jumpUp":         400,
			"success":        800,
			"explosionCloud": 500,
			"pushBack":       150,
			"shear":          400,
		},
	}
}

// Load reads a tuning file on top of Defaults. Keys missing from the file keep
// their default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, t.Validate()
}

// ApplyEnv overrides fields from CRAFT_* environment variables.
func ApplyEnv(t *Tuning) error {
	if err := env.ParseWithOptions(t, env.Options{Prefix: "CRAFT_"}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return t.Validate()
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tuning: tick_rate_hz must be > 0")
	case t.SlowMotion <= 0 || t.AssumedSlowMotion <= 0:
		return fmt.Errorf("tuning: slow motion factors must be > 0")
	case t.SpeedUpEnd <= t.SpeedUpStart:
		return fmt.Errorf("tuning: speed_up_end must exceed speed_up_start")
	case t.MaxTicks <= 0:
		return fmt.Errorf("tuning: max_ticks must be > 0")
	case t.ScriptBudget <= 0:
		return fmt.Errorf("tuning: script_budget must be > 0")
	}
	return nil
}

// Dilation converts durations tuned at AssumedSlowMotion to the configured speed.
func (t Tuning) Dilation() float64 {
	return t.SlowMotion / t.AssumedSlowMotion
}

// AnimationMs returns the undilated duration of an animation, or 0 when unknown.
func (t Tuning) AnimationMs(name string) float64 {
	return t.Animations[name]
}
