package game

// Entity types with a fixed identity.
const (
	TypePlayer = "player"
	TypeAgent  = "agent"
)

// EntityDef describes one entity category.
type EntityDef struct {
	Type   string
	Health int
	Damage int

	Friendly bool
	Hostile  bool
	// Aquatic entities only spawn and move on water.
	Aquatic bool
	// BurnsInDaylight entities catch fire when day starts.
	BurnsInDaylight bool

	// Drops is the item left on the ground on death, if any.
	Drops string
}

var entityDefs = map[string]EntityDef{
	TypePlayer:  {Type: TypePlayer, Health: 1, Damage: 1},
	TypeAgent:   {Type: TypeAgent, Health: 1},
	"sheep":     {Type: "sheep", Health: 3, Friendly: true, Drops: "wool"},
	"cow":       {Type: "cow", Health: 3, Friendly: true, Drops: "leather"},
	"chicken":   {Type: "chicken", Health: 2, Friendly: true, Drops: "egg"},
	"zombie":    {Type: "zombie", Health: 3, Damage: 1, Hostile: true, BurnsInDaylight: true},
	"creeper":   {Type: "creeper", Health: 3, Damage: 1, Hostile: true, Drops: "gunpowder"},
	"ironGolem": {Type: "ironGolem", Health: 10, Damage: 2},
	"squid":     {Type: "squid", Health: 2, Friendly: true, Aquatic: true, Drops: "inkSac"},
	"cod":       {Type: "cod", Health: 1, Friendly: true, Aquatic: true},
}

// LookupEntityDef reports the definition for an entity type.
func LookupEntityDef(typ string) (EntityDef, bool) {
	d, ok := entityDefs[typ]
	return d, ok
}

// IsSpawnable reports whether scripts and block placement may create typ.
// Player and agent are placed by the level only.
func IsSpawnable(typ string) bool {
	_, ok := entityDefs[typ]
	return ok && typ != TypePlayer && typ != TypeAgent
}
