package level

import (
	"fmt"
	"strings"

	"craftlevel.ai/internal/sim/logic/mathx"
)

// Pos is a grid cell. Y grows southwards.
type Pos struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (p Pos) Add(d Pos) Pos { return Pos{X: p.X + d.X, Y: p.Y + d.Y} }
func (p Pos) Sub(d Pos) Pos { return Pos{X: p.X - d.X, Y: p.Y - d.Y} }

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Facing is a cardinal direction, numbered clockwise from north.
type Facing int

const (
	North Facing = iota
	East
	South
	West
)

var facingNames = [...]string{"north", "east", "south", "west"}

func (f Facing) String() string {
	if f < North || f > West {
		return "unknown"
	}
	return facingNames[f]
}

func (f Facing) Valid() bool { return f >= North && f <= West }

// Delta is the one-cell offset in direction f.
func (f Facing) Delta() Pos {
	switch f {
	case North:
		return Pos{Y: -1}
	case East:
		return Pos{X: 1}
	case South:
		return Pos{Y: 1}
	default:
		return Pos{X: -1}
	}
}

// Turn rotates clockwise by quarter turns; negative values turn left.
func (f Facing) Turn(quarters int) Facing {
	return Facing(((int(f)+quarters)%4 + 4) % 4)
}

func (f Facing) Opposite() Facing { return f.Turn(2) }

func ParseFacing(s string) (Facing, error) {
	for i, n := range facingNames {
		if strings.EqualFold(s, n) {
			return Facing(i), nil
		}
	}
	return North, fmt.Errorf("unknown facing %q", s)
}

// FacingToward picks the axis step from a toward b. The axis with the larger
// distance wins; ties go to the x axis. ok is false when a == b.
func FacingToward(a, b Pos) (primary, secondary Facing, ok bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	if dx == 0 && dy == 0 {
		return North, North, false
	}
	fx, fy := East, South
	if dx < 0 {
		fx = West
	}
	if dy < 0 {
		fy = North
	}
	switch {
	case dx == 0:
		return fy, fy, true
	case dy == 0:
		return fx, fx, true
	case mathx.AbsInt(dx) >= mathx.AbsInt(dy):
		return fx, fy, true
	default:
		return fy, fx, true
	}
}
