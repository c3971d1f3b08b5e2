package target

import "strconv"

// Reserved identifiers. They always address a single entity, never a type.
const (
	PlayerID = "Player"
	AgentID  = "PlayerAgent"
)

type Kind int

const (
	Unspecified Kind = iota
	TypeName
	EntityID
)

func (k Kind) String() string {
	switch k {
	case Unspecified:
		return "UNSPECIFIED"
	case TypeName:
		return "TYPE"
	case EntityID:
		return "ENTITY"
	default:
		return "UNKNOWN"
	}
}

// Spec is what a command is addressed to: everyone, every entity of one
// category, or a single entity.
type Spec struct {
	Kind Kind
	Name string
}

func All() Spec { return Spec{} }

// Type addresses every live entity of the given category. Reserved
// identifiers and the empty name fall back to Entity and All respectively.
func Type(name string) Spec {
	switch {
	case name == "":
		return All()
	case IsReserved(name):
		return Entity(name)
	}
	return Spec{Kind: TypeName, Name: name}
}

func Entity(id string) Spec {
	if id == "" {
		return All()
	}
	return Spec{Kind: EntityID, Name: id}
}

// EntityNum addresses a numbered (spawned or preloaded) entity.
func EntityNum(n int) Spec { return Entity(strconv.Itoa(n)) }

// Parse reads the textual form used by scripts and level files: "" is
// everyone, a reserved identifier or a "#<n>" reference is one entity, and
// anything else is a type name.
func Parse(s string) Spec {
	if len(s) > 1 && s[0] == '#' {
		if _, err := strconv.Atoi(s[1:]); err == nil {
			return Entity(s[1:])
		}
	}
	return Type(s)
}

func IsReserved(id string) bool { return id == PlayerID || id == AgentID }

func (s Spec) IsBroadcast() bool { return s.Kind != EntityID }

// Or returns def when s is Unspecified.
func (s Spec) Or(def Spec) Spec {
	if s.Kind == Unspecified {
		return def
	}
	return s
}

func (s Spec) String() string {
	switch s.Kind {
	case TypeName:
		return "type:" + s.Name
	case EntityID:
		return "entity:" + s.Name
	default:
		return "all"
	}
}
