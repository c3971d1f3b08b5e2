package level

import "strings"

// Block is a cell's content on one plane. The zero value is air.
type Block struct {
	Type string `json:"type"`

	Destroyable bool `json:"-"`
	Walkable    bool `json:"-"`
	Liquid      bool `json:"-"`
	Door        bool `json:"-"`
	Rail        bool `json:"-"`
	// Open is the toggled state of a door.
	Open bool `json:"open,omitempty"`
}

func (b Block) IsEmpty() bool { return b.Type == "" }

// Passable reports whether an entity may stand in the cell on the action plane.
func (b Block) Passable() bool {
	if b.Door {
		return b.Open
	}
	return b.IsEmpty() || b.Walkable
}

var destroyable = map[string]bool{
	"cobblestone": true, "stone": true, "dirt": true, "grass": true, "sand": true,
	"gravel": true, "glass": true, "wool": true, "torch": true, "cropWheat": true,
	"bricks": true, "oreCoal": true, "oreIron": true, "oreGold": true, "oreDiamond": true,
	"oreEmerald": true, "oreRedstone": true, "netherrack": true, "snow": true, "clay": true,
}

var walkable = map[string]bool{
	"torch": true, "cropWheat": true, "tallGrass": true, "flowerRose": true,
	"flowerDandelion": true, "snow": true,
}

var liquids = map[string]bool{"water": true, "lava": true}

// NewBlock fills in the properties for a block type name.
func NewBlock(typ string) Block {
	b := Block{Type: typ}
	switch {
	case typ == "":
	case strings.HasPrefix(typ, "log"), strings.HasPrefix(typ, "tree"), strings.HasPrefix(typ, "planks"):
		b.Destroyable = true
	case strings.HasPrefix(typ, "rails"):
		b.Rail, b.Walkable, b.Destroyable = true, true, true
	case typ == "door" || strings.HasPrefix(typ, "door"):
		b.Door = true
	case liquids[typ]:
		b.Liquid = true
	default:
		b.Destroyable = destroyable[typ]
		b.Walkable = walkable[typ]
	}
	return b
}

// DropType is what a destroyed block leaves behind: logs and trees turn into
// planks of the same wood, everything else drops itself.
func DropType(typ string) string {
	for _, wood := range []string{"Acacia", "Birch", "Jungle", "Oak", "Spruce"} {
		switch typ {
		case "log" + wood, "tree" + wood:
			return "planks" + wood
		}
	}
	switch typ {
	case "logSpruceSnowy", "treeSpruceSnowy":
		return "planksSpruce"
	}
	return typ
}
