package levels

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleLevel = `
name: pen
width: 3
height: 2
ground: [grass, grass, grass, grass, water, grass]
action: ["", logOak, "", "", "", ""]
player: {x: 0, y: 0, facing: east}
entities:
  - {type: sheep, x: 2, y: 1}
timeout_ms: 5000
script: |
  craft.moveForward("Player")
solved:
  - entity_count: {type: sheep, min: 1}
  - command_count: {verb: attack, type: zombie, min: 1}
failed:
  - player_at: {x: 2, y: 0}
`

func TestParse_Valid(t *testing.T) {
	def, err := Parse([]byte(sampleLevel))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if def.Name != "pen" || def.Width != 3 || len(def.Ground) != 6 {
		t.Fatalf("unexpected def: %+v", def)
	}
	if def.Player == nil || def.Player.Facing != "east" {
		t.Fatalf("player: %+v", def.Player)
	}
	if len(def.Entities) != 1 || def.Entities[0].Type != "sheep" || def.Entities[0].X != 2 {
		t.Fatalf("entities: %+v", def.Entities)
	}
	if len(def.Solved) != 2 || def.Solved[0].EntityCount == nil || *def.Solved[0].EntityCount.Min != 1 {
		t.Fatalf("solved: %+v", def.Solved)
	}
	if def.Solved[1].CommandCount == nil || def.Solved[1].CommandCount.Verb != "attack" {
		t.Fatalf("command_count: %+v", def.Solved[1])
	}
	if def.Failed[0].PlayerAt == nil || def.Failed[0].PlayerAt.X != 2 {
		t.Fatalf("failed: %+v", def.Failed)
	}
	if def.TimeoutOutcome() != TimeoutFail {
		t.Fatalf("timeout default: %q", def.TimeoutOutcome())
	}
	if !strings.Contains(def.Script, "moveForward") {
		t.Fatalf("script: %q", def.Script)
	}
}

func TestParse_SchemaRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":       "name: x\nwidth: 1\nheight: 1\nbogus: 1\n",
		"missing name":      "width: 1\nheight: 1\n",
		"bad facing":        "name: x\nwidth: 2\nheight: 2\nplayer: {x: 0, y: 0, facing: up}\n",
		"two-key condition": "name: x\nwidth: 1\nheight: 1\nsolved:\n  - {score_at_least: 1, player_at: {x: 0, y: 0}}\n",
		"bad timeout":       "name: x\nwidth: 1\nheight: 1\ntimeout_result: maybe\n",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestParse_GridChecks(t *testing.T) {
	if _, err := Parse([]byte("name: x\nwidth: 2\nheight: 2\nground: [grass]\n")); err == nil {
		t.Fatalf("expected cell count error")
	}
	if _, err := Parse([]byte("name: x\nwidth: 2\nheight: 2\nentities: [{type: cow, x: 5, y: 0}]\n")); err == nil {
		t.Fatalf("expected out of bounds error")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(sampleLevel), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("name: other\nwidth: 1\nheight: 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	defs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(defs) != 2 || defs["pen"].Name != "pen" || defs["other"].Width != 1 {
		t.Fatalf("defs: %v", defs)
	}

	if err := os.WriteFile(filepath.Join(dir, "c.yaml"), []byte("name: other\nwidth: 1\nheight: 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadDir(dir); err == nil {
		t.Fatalf("expected duplicate name error")
	}
}

func TestLoadDir_ShippedLevels(t *testing.T) {
	defs, err := LoadDir(filepath.Join("..", "..", "..", "configs", "levels"))
	if err != nil {
		t.Fatalf("load shipped levels: %v", err)
	}
	for _, name := range []string{"first_steps", "sheep_pen", "nightfall"} {
		if _, ok := defs[name]; !ok {
			t.Fatalf("missing level %q in %v", name, defs)
		}
	}
}
