package level

import (
	"crypto/sha256"
	"testing"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	ground := []string{
		"grass", "grass", "water",
		"grass", "lava", "water",
		"farmlandWet", "grass", "grass",
	}
	action := []string{
		"", "logOak", "",
		"door", "", "",
		"", "stone", "bedrock",
	}
	m, err := NewModel(3, 3, ground, action)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return m
}

func TestNewModel_RejectsWrongCellCount(t *testing.T) {
	if _, err := NewModel(2, 2, []string{"grass"}, nil); err == nil {
		t.Fatalf("expected error for short ground plane")
	}
}

func TestIsWalkable(t *testing.T) {
	m := newTestModel(t)
	cases := []struct {
		p       Pos
		aquatic bool
		want    bool
	}{
		{Pos{0, 0}, false, true},
		{Pos{1, 0}, false, false}, // log
		{Pos{2, 0}, false, false}, // water
		{Pos{2, 0}, true, true},
		{Pos{0, 0}, true, false},
		{Pos{1, 1}, false, false}, // lava
		{Pos{0, 1}, false, false}, // closed door
		{Pos{-1, 0}, false, false},
	}
	for _, tc := range cases {
		if got := m.IsWalkable(tc.p, tc.aquatic); got != tc.want {
			t.Fatalf("IsWalkable(%v, aquatic=%v): got %v want %v", tc.p, tc.aquatic, got, tc.want)
		}
	}
	if !m.ToggleDoor(Pos{0, 1}) || !m.IsWalkable(Pos{0, 1}, false) {
		t.Fatalf("open door should be walkable")
	}
}

func TestDestroyBlock_ConvertsWood(t *testing.T) {
	m := newTestModel(t)
	drop, ok := m.DestroyBlock(Pos{1, 0})
	if !ok || drop != "planksOak" {
		t.Fatalf("drop=%q ok=%v", drop, ok)
	}
	if !m.BlockAt(Pos{1, 0}).IsEmpty() {
		t.Fatalf("block should be cleared")
	}
	if _, ok := m.DestroyBlock(Pos{2, 2}); ok {
		t.Fatalf("bedrock is not destroyable")
	}
	if drop, ok := m.DestroyBlock(Pos{1, 2}); !ok || drop != "stone" {
		t.Fatalf("stone: drop=%q ok=%v", drop, ok)
	}
}

func TestPlaceBlock_FillsLiquid(t *testing.T) {
	m := newTestModel(t)
	if !m.PlaceBlock(Pos{1, 1}, "cobblestone") {
		t.Fatalf("place on lava")
	}
	if m.GroundAt(Pos{1, 1}).Type != "cobblestone" || !m.BlockAt(Pos{1, 1}).IsEmpty() {
		t.Fatalf("liquid should be replaced on the ground plane")
	}
	if !m.PlaceBlock(Pos{0, 0}, "planksOak") || m.BlockAt(Pos{0, 0}).Type != "planksOak" {
		t.Fatalf("place on action plane")
	}
	if m.PlaceBlock(Pos{0, 0}, "stone") {
		t.Fatalf("occupied cell must reject placement")
	}
}

func TestDropType(t *testing.T) {
	cases := map[string]string{
		"treeBirch":      "planksBirch",
		"logSpruceSnowy": "planksSpruce",
		"stone":          "stone",
	}
	for in, want := range cases {
		if got := DropType(in); got != want {
			t.Fatalf("DropType(%q)=%q want %q", in, got, want)
		}
	}
}

func TestFacing(t *testing.T) {
	if North.Turn(-1) != West || West.Turn(1) != North || East.Opposite() != West {
		t.Fatalf("turn arithmetic")
	}
	f, err := ParseFacing("South")
	if err != nil || f != South {
		t.Fatalf("parse: %v %v", f, err)
	}
	p, s, ok := FacingToward(Pos{0, 0}, Pos{3, -1})
	if !ok || p != East || s != North {
		t.Fatalf("toward: %v %v %v", p, s, ok)
	}
	p, s, _ = FacingToward(Pos{0, 0}, Pos{-2, 2})
	if p != West || s != South {
		t.Fatalf("tie goes to x axis: %v %v", p, s)
	}
	if _, _, ok := FacingToward(Pos{1, 1}, Pos{1, 1}); ok {
		t.Fatalf("same cell has no direction")
	}
}

func TestWriteDigest_TracksItems(t *testing.T) {
	a, b := newTestModel(t), newTestModel(t)
	digest := func(m *Model) [32]byte {
		h := sha256.New()
		m.WriteDigest(h)
		var out [32]byte
		copy(out[:], h.Sum(nil))
		return out
	}
	if digest(a) != digest(b) {
		t.Fatalf("identical models must hash equal")
	}
	b.DropItem(Pos{0, 0}, "wool")
	if digest(a) == digest(b) {
		t.Fatalf("dropped item must change the digest")
	}
	if b.ItemCount("wool") != 1 {
		t.Fatalf("item count")
	}
}
