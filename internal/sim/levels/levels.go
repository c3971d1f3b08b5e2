package levels

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"craftlevel.ai/internal/sim/level"
)

//go:embed level.schema.json
var schemaSource string

const schemaURL = "level.schema.json"

var levelSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, strings.NewReader(schemaSource)); err != nil {
		panic(err)
	}
	return c.MustCompile(schemaURL)
}

// Placement puts the player or agent on the grid.
type Placement struct {
	X      int    `yaml:"x" json:"x"`
	Y      int    `yaml:"y" json:"y"`
	Facing string `yaml:"facing,omitempty" json:"facing,omitempty"`
}

func (p Placement) Pos() level.Pos { return level.Pos{X: p.X, Y: p.Y} }

// FacingOr parses the facing, falling back to def when unset.
func (p Placement) FacingOr(def level.Facing) level.Facing {
	if p.Facing == "" {
		return def
	}
	f, err := level.ParseFacing(p.Facing)
	if err != nil {
		return def
	}
	return f
}

type EntitySpec struct {
	Type      string `yaml:"type" json:"type"`
	Placement `yaml:",inline"`
}

type EntityCount struct {
	Type string `yaml:"type" json:"type"`
	Min  *int   `yaml:"min,omitempty" json:"min,omitempty"`
	Max  *int   `yaml:"max,omitempty" json:"max,omitempty"`
}

type BlockAt struct {
	X     int    `yaml:"x" json:"x"`
	Y     int    `yaml:"y" json:"y"`
	Type  string `yaml:"type" json:"type"`
	Plane string `yaml:"plane,omitempty" json:"plane,omitempty"`
}

type ItemCount struct {
	Item string `yaml:"item" json:"item"`
	Min  int    `yaml:"min" json:"min"`
}

type CommandCount struct {
	Verb   string `yaml:"verb" json:"verb"`
	Type   string `yaml:"type,omitempty" json:"type,omitempty"`
	Repeat bool   `yaml:"repeat,omitempty" json:"repeat,omitempty"`
	Min    int    `yaml:"min" json:"min"`
}

// Condition is one check of a solved/failed list. Exactly one field is set.
type Condition struct {
	EntityCount  *EntityCount  `yaml:"entity_count,omitempty" json:"entity_count,omitempty"`
	BlockAt      *BlockAt      `yaml:"block_at,omitempty" json:"block_at,omitempty"`
	PlayerAt     *level.Pos    `yaml:"player_at,omitempty" json:"player_at,omitempty"`
	ScoreAtLeast *int          `yaml:"score_at_least,omitempty" json:"score_at_least,omitempty"`
	ItemCount    *ItemCount    `yaml:"item_count,omitempty" json:"item_count,omitempty"`
	CommandCount *CommandCount `yaml:"command_count,omitempty" json:"command_count,omitempty"`
}

// Timeout results.
const (
	TimeoutFail  = "fail"
	TimeoutPass  = "pass"
	TimeoutCheck = "check"
)

// Definition is an immutable level description. Every reset rebuilds the
// world from it.
type Definition struct {
	Name   string   `yaml:"name" json:"name"`
	Width  int      `yaml:"width" json:"width"`
	Height int      `yaml:"height" json:"height"`
	Ground []string `yaml:"ground,omitempty" json:"ground,omitempty"`
	Action []string `yaml:"action,omitempty" json:"action,omitempty"`

	Player   *Placement   `yaml:"player,omitempty" json:"player,omitempty"`
	Agent    *Placement   `yaml:"agent,omitempty" json:"agent,omitempty"`
	Entities []EntitySpec `yaml:"entities,omitempty" json:"entities,omitempty"`

	// DirectControl marks event levels: the solution is checked every tick
	// and no default event rules are installed.
	DirectControl bool `yaml:"direct_control,omitempty" json:"direct_control,omitempty"`
	UseScore      bool `yaml:"use_score,omitempty" json:"use_score,omitempty"`
	StartAtNight  bool `yaml:"start_at_night,omitempty" json:"start_at_night,omitempty"`

	DayNightCycleMs int    `yaml:"day_night_cycle_ms,omitempty" json:"day_night_cycle_ms,omitempty"`
	TimeoutMs       int    `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	TimeoutResult   string `yaml:"timeout_result,omitempty" json:"timeout_result,omitempty"`

	SelectedItem string `yaml:"selected_item,omitempty" json:"selected_item,omitempty"`
	Script       string `yaml:"script,omitempty" json:"script,omitempty"`

	Solved []Condition `yaml:"solved,omitempty" json:"solved,omitempty"`
	Failed []Condition `yaml:"failed,omitempty" json:"failed,omitempty"`
}

// Parse validates raw YAML against the level schema and decodes it.
func Parse(raw []byte) (Definition, error) {
	var def Definition

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return def, fmt.Errorf("level yaml: %w", err)
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return def, fmt.Errorf("level yaml: %w", err)
	}
	var inst any
	if err := json.Unmarshal(js, &inst); err != nil {
		return def, fmt.Errorf("level yaml: %w", err)
	}
	if err := levelSchema.Validate(inst); err != nil {
		return def, fmt.Errorf("level schema: %w", err)
	}

	if err := yaml.Unmarshal(raw, &def); err != nil {
		return def, fmt.Errorf("level yaml: %w", err)
	}
	if err := def.Validate(); err != nil {
		return def, err
	}
	return def, nil
}

func Load(path string) (Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, err
	}
	def, err := Parse(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return def, nil
}

// LoadDir loads every *.yaml file in dir, keyed by level name.
func LoadDir(dir string) (map[string]Definition, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	out := make(map[string]Definition, len(paths))
	for _, p := range paths {
		def, err := Load(p)
		if err != nil {
			return nil, err
		}
		if _, dup := out[def.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate level name %q", filepath.Base(p), def.Name)
		}
		out[def.Name] = def
	}
	return out, nil
}

// Validate checks what the schema cannot: grid sizes and placements.
func (d Definition) Validate() error {
	cells := d.Width * d.Height
	if n := len(d.Ground); n != 0 && n != cells {
		return fmt.Errorf("level %q: ground has %d cells, want %d", d.Name, n, cells)
	}
	if n := len(d.Action); n != 0 && n != cells {
		return fmt.Errorf("level %q: action has %d cells, want %d", d.Name, n, cells)
	}
	in := func(x, y int) bool { return x >= 0 && y >= 0 && x < d.Width && y < d.Height }
	if d.Player != nil && !in(d.Player.X, d.Player.Y) {
		return fmt.Errorf("level %q: player out of bounds", d.Name)
	}
	if d.Agent != nil && !in(d.Agent.X, d.Agent.Y) {
		return fmt.Errorf("level %q: agent out of bounds", d.Name)
	}
	for i, e := range d.Entities {
		if !in(e.X, e.Y) {
			return fmt.Errorf("level %q: entity %d (%s) out of bounds", d.Name, i, e.Type)
		}
	}
	return nil
}

// TimeoutOutcome is the configured timeout result, defaulting to fail.
func (d Definition) TimeoutOutcome() string {
	if d.TimeoutResult == "" {
		return TimeoutFail
	}
	return d.TimeoutResult
}
