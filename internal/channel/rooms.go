package channel

// rooms is the set of group rooms the client wants to observe, kept in
// insertion order so replays are deterministic.
type rooms struct {
	order []string
	set   map[string]struct{}
}

// add inserts id and reports whether it was new.
func (r *rooms) add(id string) bool {
	if r.set == nil {
		r.set = make(map[string]struct{})
	}
	if _, ok := r.set[id]; ok {
		return false
	}
	r.set[id] = struct{}{}
	r.order = append(r.order, id)
	return true
}

// remove deletes id and reports whether it was present.
func (r *rooms) remove(id string) bool {
	if _, ok := r.set[id]; !ok {
		return false
	}
	delete(r.set, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *rooms) list() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *rooms) reset() {
	r.order = nil
	r.set = nil
}
