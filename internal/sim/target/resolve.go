package target

// Candidate is the read-only view of an entity the resolver works with.
type Candidate interface {
	ID() string
	Type() string
	Position() (x, y int)
}

// Registry enumerates live entities in insertion order.
type Registry[E Candidate] interface {
	All() []E
	OfType(name string) []E
	Get(id string) (E, bool)
}

// Resolve maps a spec to the live entities it addresses. The returned slice is
// a snapshot; entities created afterwards are not included.
func Resolve[E Candidate](reg Registry[E], s Spec) []E {
	switch s.Kind {
	case Unspecified:
		return reg.All()
	case TypeName:
		return reg.OfType(s.Name)
	default:
		e, ok := reg.Get(s.Name)
		if !ok {
			return nil
		}
		return []E{e}
	}
}

// DistanceSq is the squared grid distance between two candidates.
func DistanceSq(a, b Candidate) int {
	ax, ay := a.Position()
	bx, by := b.Position()
	dx, dy := ax-bx, ay-by
	return dx*dx + dy*dy
}

// Nearest picks the closest reference to actor, skipping actor itself. Ties go
// to the earliest candidate in refs.
func Nearest[E Candidate](actor E, refs []E) (E, bool) {
	var (
		best  E
		bestD = -1
	)
	for _, r := range refs {
		if r.ID() == actor.ID() {
			continue
		}
		d := DistanceSq(actor, r)
		if bestD < 0 || d < bestD {
			best, bestD = r, d
		}
	}
	return best, bestD >= 0
}

// Pair is one acting entity and the reference it acts relative to.
type Pair[E Candidate] struct {
	Actor E
	Ref   E
}

// Pairs resolves a relational action such as "move away from" into concrete
// (actor, reference) pairs. An Unspecified actor must be fanned out by the
// caller first; an Unspecified reference is treated as the player.
//
// Self pairs are never produced. Type references choose the nearest candidate
// per actor; actors without a candidate are left out.
func Pairs[E Candidate](reg Registry[E], actor, ref Spec) []Pair[E] {
	ref = ref.Or(Entity(PlayerID))
	if actor.Kind == Unspecified {
		return nil
	}
	if actor == ref && actor.Kind == EntityID {
		return nil
	}

	actors := Resolve(reg, actor)
	if len(actors) == 0 {
		return nil
	}

	if ref.Kind == EntityID {
		r, ok := reg.Get(ref.Name)
		if !ok {
			return nil
		}
		out := make([]Pair[E], 0, len(actors))
		for _, a := range actors {
			if a.ID() == r.ID() {
				continue
			}
			out = append(out, Pair[E]{Actor: a, Ref: r})
		}
		return out
	}

	refs := reg.OfType(ref.Name)
	if len(refs) == 0 {
		return nil
	}
	out := make([]Pair[E], 0, len(actors))
	for _, a := range actors {
		if r, ok := Nearest(a, refs); ok {
			out = append(out, Pair[E]{Actor: a, Ref: r})
		}
	}
	return out
}
