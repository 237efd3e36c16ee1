// Package describe renders rooms, entities and feedback templates as text.
// Nothing here mutates the world.
package describe

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

// Room describes a room: its name and text, the entities at it with one
// level of their contents, and its exits.
func Room(w *state.World, room string) string {
	defs := w.Defs()
	def, err := defs.Entity(room)
	if err != nil {
		return "You are nowhere."
	}

	parts := []string{"You are in the " + def.DisplayName() + "."}
	if def.Description != "" {
		parts = append(parts, def.Description)
	}

	visible := atRoom(w, room)
	if len(visible) > 0 {
		parts = append(parts, "You see "+JoinList(names(defs, visible, true))+".")
	}
	for _, id := range visible {
		if s := statePhrases(w, id); s != "" {
			parts = append(parts, s)
		}
		if s := contents(w, id, false); s != "" {
			parts = append(parts, s)
		}
	}
	if s := exits(w, room); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

// Entity describes one entity: base text, its state and one level of contents.
func Entity(w *state.World, id string) string {
	def, err := w.Defs().Entity(id)
	if err != nil {
		return ""
	}
	if w.IsRoom(id) {
		return Room(w, id)
	}
	var parts []string
	if def.Description != "" {
		parts = append(parts, def.Description)
	}
	if s := statePhrases(w, id); s != "" {
		parts = append(parts, s)
	}
	if s := contents(w, id, true); s != "" {
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "You see nothing special about the " + def.DisplayName() + "."
	}
	return strings.Join(parts, " ")
}

// Inventory lists what the player is carrying.
func Inventory(w *state.World) string {
	cfg := w.Config()
	held := w.Children(cfg.Predicates.In, cfg.InventoryID)
	if len(held) == 0 {
		return "You are carrying nothing."
	}
	return "You are carrying " + JoinList(names(w.Defs(), held, true)) + "."
}

// statePhrases renders mutable unary facts about id, e.g. "The cupboard is closed."
func statePhrases(w *state.World, id string) string {
	defs := w.Defs()
	var preds []string
	for name, p := range defs.Predicates {
		if p.Mutable && len(p.Params) == 1 && w.Contains(types.F(name, id)) {
			preds = append(preds, strings.ReplaceAll(name, "_", " "))
		}
	}
	if len(preds) == 0 {
		return ""
	}
	sort.Strings(preds)
	return "The " + defs.Name(id) + " is " + JoinList(preds) + "."
}

// contents renders one level of in/on children. Closed receptacles hide
// what is in them. With explicit set, empty receptacles say so.
func contents(w *state.World, id string, explicit bool) string {
	defs := w.Defs()
	cfg := w.Config()
	name := defs.Name(id)

	var parts []string
	if on := w.Children(cfg.Predicates.On, id); len(on) > 0 {
		parts = append(parts, "On the "+name+" "+thereIs(on)+" "+JoinList(names(defs, on, true))+".")
	}

	inPred, ok := defs.Predicates[cfg.Predicates.In]
	if !ok || len(inPred.Params) != 2 || !defs.EntityIsA(id, inPred.Params[1].Type) {
		return strings.Join(parts, " ")
	}
	in := w.Children(cfg.Predicates.In, id)
	switch {
	case cfg.Predicates.Closed != "" && w.Contains(types.F(cfg.Predicates.Closed, id)):
		if explicit {
			parts = append(parts, "You can't see the "+name+"'s contents because it is closed.")
		}
	case len(in) > 0:
		parts = append(parts, "In the "+name+" "+thereIs(in)+" "+JoinList(names(defs, in, true))+".")
	case explicit:
		parts = append(parts, "The "+name+" is empty.")
	}
	return strings.Join(parts, " ")
}

// exits renders exit(room, to[, dir]) facts.
func exits(w *state.World, room string) string {
	defs := w.Defs()
	cfg := w.Config()
	if cfg.Predicates.Exit == "" {
		return ""
	}
	var passages []string
	for _, f := range w.Query(cfg.Predicates.Exit, room) {
		switch len(f.Args) {
		case 2:
			passages = append(passages, "to the "+defs.Name(f.Args[1]))
		case 3:
			passages = append(passages, defs.Name(f.Args[2])+" to the "+defs.Name(f.Args[1]))
		}
	}
	switch len(passages) {
	case 0:
		return ""
	case 1:
		return "There is a passage " + passages[0] + "."
	}
	return "There are passages " + JoinList(passages) + "."
}

func names(defs *state.Defs, ids []string, article bool) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		n := defs.Name(id)
		if article {
			n = Article(n) + " " + n
		}
		out[i] = n
	}
	return out
}

func thereIs(ids []string) string {
	if len(ids) == 1 {
		return "there is"
	}
	return "there are"
}

// Article returns "an" before a vowel sound approximated by the first letter, else "a".
func Article(word string) string {
	if word == "" {
		return "a"
	}
	switch unicode.ToLower(rune(word[0])) {
	case 'a', 'e', 'i', 'o', 'u':
		return "an"
	}
	return "a"
}

// JoinList joins items as "x", "x and y" or "x, y and z".
func JoinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}

// Capitalize upper-cases the first letter.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
