package describe

import (
	"sort"
	"strings"

	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

// Render fills a feedback template against the current world.
//
//	{room_desc}       description of the player's room
//	{inventory_desc}  what the player is carrying
//	{prep}            preposition from the command
//	{x}               display name of the entity bound to ?x
//	{x.desc}          description of the entity bound to ?x
//
// The result has its first letter capitalized.
func Render(w *state.World, tmpl string, env types.Bindings, prep string) string {
	if tmpl == "" {
		return ""
	}
	var pairs []string
	if strings.Contains(tmpl, "{room_desc}") {
		pairs = append(pairs, "{room_desc}", Room(w, w.PlayerRoom()))
	}
	if strings.Contains(tmpl, "{inventory_desc}") {
		pairs = append(pairs, "{inventory_desc}", Inventory(w))
	}
	pairs = append(pairs, "{prep}", prep)

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		id := env[k]
		if strings.Contains(tmpl, "{"+k+".desc}") {
			pairs = append(pairs, "{"+k+".desc}", Entity(w, id))
		}
		pairs = append(pairs, "{"+k+"}", w.Defs().Name(id))
	}

	text := strings.NewReplacer(pairs...).Replace(tmpl)
	text = strings.Join(strings.Fields(text), " ")
	return Capitalize(text)
}
