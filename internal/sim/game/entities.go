package game

import "craftlevel.ai/internal/sim/level"

// Registry is the insertion-ordered arena of live entities.
type Registry struct {
	order []*Entity
	byID  map[string]*Entity
}

func NewRegistry() *Registry {
	return &Registry{byID: map[string]*Entity{}}
}

// All returns a snapshot in insertion order.
func (r *Registry) All() []*Entity {
	return append([]*Entity(nil), r.order...)
}

func (r *Registry) OfType(typ string) []*Entity {
	var out []*Entity
	for _, e := range r.order {
		if e.typ == typ {
			out = append(out, e)
		}
	}
	return out
}

func (r *Registry) Get(id string) (*Entity, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// At returns the entity standing on p, or nil.
func (r *Registry) At(p level.Pos) *Entity {
	for _, e := range r.order {
		if e.pos == p {
			return e
		}
	}
	return nil
}

func (r *Registry) Len() int { return len(r.order) }

func (r *Registry) add(e *Entity) {
	r.order = append(r.order, e)
	r.byID[e.id] = e
}

func (r *Registry) remove(id string) {
	if _, ok := r.byID[id]; !ok {
		return
	}
	delete(r.byID, id)
	for i, e := range r.order {
		if e.id == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Registry) clear() {
	r.order = nil
	r.byID = map[string]*Entity{}
}
