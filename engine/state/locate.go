package state

// PlayerRoom returns the room the player is in, or "".
func (w *World) PlayerRoom() string {
	return w.firstArg(w.cfg.Predicates.At, w.cfg.PlayerID)
}

// LocationOf returns the room an entity is ultimately in, following in/on
// chains. Items held in the inventory are in the player's room. Rooms are
// their own location. Returns "" for entities with no location.
func (w *World) LocationOf(id string) string {
	seen := map[string]bool{}
	for id != "" && !seen[id] {
		seen[id] = true
		if w.IsRoom(id) {
			return id
		}
		if id == w.cfg.InventoryID {
			return w.PlayerRoom()
		}
		if r := w.firstArg(w.cfg.Predicates.At, id); r != "" {
			return r
		}
		parent := w.firstArg(w.cfg.Predicates.In, id)
		if parent == "" {
			parent = w.firstArg(w.cfg.Predicates.On, id)
		}
		id = parent
	}
	return ""
}

// IsRoom reports whether id is an entity of the configured room type.
func (w *World) IsRoom(id string) bool {
	return w.defs.EntityIsA(id, w.cfg.RoomType)
}

// Held reports whether id is directly in the inventory.
func (w *World) Held(id string) bool {
	return w.firstArg(w.cfg.Predicates.In, id) == w.cfg.InventoryID
}

// Children returns the entities related to parent by pred (in or on),
// in declaration order.
func (w *World) Children(pred, parent string) []string {
	var out []string
	for _, id := range w.defs.EntityOrder {
		for _, f := range w.Query(pred, id, parent) {
			if len(f.Args) == 2 {
				out = append(out, id)
			}
		}
	}
	return out
}

// firstArg returns the second argument of the first pred(id, x) fact.
func (w *World) firstArg(pred, id string) string {
	facts := w.Query(pred, id)
	for _, f := range facts {
		if len(f.Args) >= 2 {
			return f.Args[1]
		}
	}
	return ""
}
