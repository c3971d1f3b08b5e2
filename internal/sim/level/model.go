package level

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// Plane is a row-major grid of blocks.
type Plane struct {
	w, h  int
	cells []Block
}

func NewPlane(w, h int, types []string) (*Plane, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("plane: bad dimensions %dx%d", w, h)
	}
	p := &Plane{w: w, h: h, cells: make([]Block, w*h)}
	if len(types) == 0 {
		return p, nil
	}
	if len(types) != w*h {
		return nil, fmt.Errorf("plane: have %d cells, want %d", len(types), w*h)
	}
	for i, t := range types {
		p.cells[i] = NewBlock(t)
	}
	return p, nil
}

func (p *Plane) in(pos Pos) bool { return pos.X >= 0 && pos.Y >= 0 && pos.X < p.w && pos.Y < p.h }

func (p *Plane) At(pos Pos) Block {
	if !p.in(pos) {
		return Block{}
	}
	return p.cells[pos.Y*p.w+pos.X]
}

func (p *Plane) Set(pos Pos, b Block) {
	if p.in(pos) {
		p.cells[pos.Y*p.w+pos.X] = b
	}
}

func (p *Plane) Count(typ string) int {
	n := 0
	for _, c := range p.cells {
		if c.Type == typ {
			n++
		}
	}
	return n
}

// Model is the mutable block world of one level attempt.
type Model struct {
	Width, Height int

	Ground *Plane
	Action *Plane

	Daytime bool

	// Items are dropped items lying on the ground, in drop order per cell.
	Items map[Pos][]string
}

func NewModel(w, h int, ground, action []string) (*Model, error) {
	g, err := NewPlane(w, h, ground)
	if err != nil {
		return nil, fmt.Errorf("ground: %w", err)
	}
	a, err := NewPlane(w, h, action)
	if err != nil {
		return nil, fmt.Errorf("action: %w", err)
	}
	return &Model{Width: w, Height: h, Ground: g, Action: a, Daytime: true, Items: map[Pos][]string{}}, nil
}

func (m *Model) InBounds(p Pos) bool { return m.Action.in(p) }

func (m *Model) BlockAt(p Pos) Block  { return m.Action.At(p) }
func (m *Model) GroundAt(p Pos) Block { return m.Ground.At(p) }

// IsWalkable reports whether a land entity may stand at p. Aquatic entities
// need water underneath instead of solid ground.
func (m *Model) IsWalkable(p Pos, aquatic bool) bool {
	if !m.InBounds(p) || !m.Action.At(p).Passable() {
		return false
	}
	g := m.Ground.At(p)
	if aquatic {
		return g.Type == "water"
	}
	return !g.Liquid
}

// DestroyBlock clears the action plane at p and returns the type that drops
// from it. ok is false when there was nothing destroyable.
func (m *Model) DestroyBlock(p Pos) (drop string, ok bool) {
	b := m.Action.At(p)
	if b.IsEmpty() || !b.Destroyable {
		return "", false
	}
	m.Action.Set(p, Block{})
	return DropType(b.Type), true
}

// CanPlace reports whether typ may be put on the action plane at p, or on the
// ground plane when p holds a liquid.
func (m *Model) CanPlace(p Pos, typ string) bool {
	if !m.InBounds(p) || typ == "" {
		return false
	}
	return m.Action.At(p).IsEmpty()
}

// PlaneFor picks the plane a block placed at p lands on: liquids on the
// ground are filled in, anything else goes onto the action plane.
func (m *Model) PlaneFor(p Pos) *Plane {
	if m.Ground.At(p).Liquid && m.Action.At(p).IsEmpty() {
		return m.Ground
	}
	return m.Action
}

func (m *Model) PlaceBlock(p Pos, typ string) bool {
	if !m.CanPlace(p, typ) {
		return false
	}
	m.PlaneFor(p).Set(p, NewBlock(typ))
	return true
}

// ToggleDoor flips the door at p. It reports false when p holds no door.
func (m *Model) ToggleDoor(p Pos) bool {
	b := m.Action.At(p)
	if !b.Door {
		return false
	}
	b.Open = !b.Open
	m.Action.Set(p, b)
	return true
}

func (m *Model) DropItem(p Pos, item string) {
	m.Items[p] = append(m.Items[p], item)
}

func (m *Model) ItemCount(item string) int {
	n := 0
	for _, items := range m.Items {
		for _, it := range items {
			if it == item {
				n++
			}
		}
	}
	return n
}

// WriteDigest feeds a deterministic encoding of both planes, the daytime flag
// and dropped items into w.
func (m *Model) WriteDigest(w io.Writer) {
	var tmp [8]byte
	for _, pl := range []*Plane{m.Ground, m.Action} {
		for _, c := range pl.cells {
			w.Write([]byte(c.Type))
			open := byte(0)
			if c.Open {
				open = 1
			}
			w.Write([]byte{0, open})
		}
	}
	day := byte(0)
	if m.Daytime {
		day = 1
	}
	w.Write([]byte{day})

	cells := make([]Pos, 0, len(m.Items))
	for p := range m.Items {
		cells = append(cells, p)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
	for _, p := range cells {
		binary.LittleEndian.PutUint64(tmp[:], uint64(int64(p.X)))
		w.Write(tmp[:])
		binary.LittleEndian.PutUint64(tmp[:], uint64(int64(p.Y)))
		w.Write(tmp[:])
		for _, it := range m.Items[p] {
			w.Write([]byte(it))
			w.Write([]byte{0})
		}
	}
}
