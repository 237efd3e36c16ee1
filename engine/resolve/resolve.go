// Package resolve binds a parsed command to an action template, mapping
// argument names to entity ids and reporting parse-phase failures.
package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

// Parse failure kinds.
const (
	ParseMalformed     = "malformed_command"
	ParseUnknownVerb   = "undefined_action_verb"
	ParseUnknownEntity = "undefined_repr_str"
	ParseAmbiguous     = "ambiguous_reference"
	ParseBadArguments  = "undefined_argument_type"
	ParseDisallowed    = "disallowed_argument"
	ParseOtherRoom     = "other_room_argument"
)

// Resolution failure kinds.
const (
	ResUndefinedRoom = "undefined_room"
	ResCurrentRoom   = "going_to_current_room"
	ResNoExit        = "no_exit_to"
	ResAlreadyHeld   = "entity_already_inventory"
	ResRoomAsEntity  = "room_as_entity"
	ResNotAccessible = "entity_not_accessible"
	ResGeneric       = "generic"
)

var resolutionKinds = map[string]bool{
	ResUndefinedRoom: true,
	ResCurrentRoom:   true,
	ResNoExit:        true,
	ResAlreadyHeld:   true,
	ResRoomAsEntity:  true,
	ResNotAccessible: true,
	ResGeneric:       true,
}

// IsResolutionKind reports whether a failure kind is a resolution failure
// rather than a precondition failure.
func IsResolutionKind(kind string) bool {
	return resolutionKinds[kind]
}

// ParseFailure reports a command that could not be bound to an action.
type ParseFailure struct {
	Kind     string
	Arg      string // offending argument text, if any
	Feedback string
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parse failure %s: %s", e.Kind, e.Feedback)
}

// ResolutionFailure reports a command naming something the action cannot act on.
type ResolutionFailure struct {
	Kind     string
	Feedback string
}

func (e *ResolutionFailure) Error() string {
	return fmt.Sprintf("resolution failure %s: %s", e.Kind, e.Feedback)
}

// Action is a command bound to an action template.
type Action struct {
	Def      types.ActionDef
	Bindings types.Bindings
	Command  types.Command
}

// Resolve binds cmd to the first action for its verb whose arguments fit.
// When no action fits, the most specific failure across candidates is
// returned, so "go pantry" still resolves when "go <direction>" is declared
// first.
func Resolve(w *state.World, cmd types.Command) (*Action, error) {
	if cmd.Verb == "" || (cmd.Prep != "" && (cmd.Object == "" || cmd.Target == "")) {
		return nil, &ParseFailure{Kind: ParseMalformed, Feedback: "I don't understand that."}
	}

	candidates := w.Defs().ActionsForVerb(cmd.Verb)
	if len(candidates) == 0 {
		return nil, &ParseFailure{Kind: ParseUnknownVerb, Arg: cmd.Verb,
			Feedback: fmt.Sprintf("I don't know how to %q.", cmd.Verb)}
	}

	var best error
	for _, def := range candidates {
		act, err := bind(w, def, cmd)
		if err == nil {
			return act, nil
		}
		if best == nil || rank(err) > rank(best) {
			best = err
		}
	}
	return nil, best
}

// rank orders failures from least to most specific.
func rank(err error) int {
	switch e := err.(type) {
	case *ResolutionFailure:
		return 5
	case *ParseFailure:
		switch e.Kind {
		case ParseDisallowed, ParseOtherRoom:
			return 4
		case ParseAmbiguous:
			return 3
		case ParseBadArguments:
			if e.Arg != "" {
				return 2
			}
			return 0
		case ParseUnknownEntity:
			return 1
		}
	}
	return 0
}

func bind(w *state.World, def types.ActionDef, cmd types.Command) (*Action, error) {
	defs := w.Defs()
	cfg := w.Config()

	texts := map[string]string{types.SourceArg1: cmd.Object, types.SourceArg2: cmd.Target}
	params := map[string]*types.Param{}
	for i := range def.Params {
		p := &def.Params[i]
		if p.Source == types.SourceArg1 || p.Source == types.SourceArg2 {
			params[p.Source] = p
		}
	}

	// The inventory and the player are never valid where the action does not
	// expect them, even before arity is considered.
	for _, src := range []string{types.SourceArg1, types.SourceArg2} {
		text := texts[src]
		if text == "" {
			continue
		}
		ids := Lookup(defs, text)
		if len(ids) != 1 || (ids[0] != cfg.InventoryID && ids[0] != cfg.PlayerID) {
			continue
		}
		if p := params[src]; p == nil || !defs.EntityIsA(ids[0], p.Type) {
			return nil, &ParseFailure{Kind: ParseDisallowed, Arg: text,
				Feedback: fmt.Sprintf("You can't %s the %s like that.", cmd.Verb, text)}
		}
	}

	given := 0
	for _, text := range texts {
		if text != "" {
			given++
		}
	}
	if given != def.Arity() || (params[types.SourceArg2] != nil && cmd.Target == "") {
		return nil, &ParseFailure{Kind: ParseBadArguments,
			Feedback: fmt.Sprintf("I don't understand what you want to %s.", cmd.Verb)}
	}

	b := types.Bindings{}
	for _, p := range def.Params {
		switch p.Source {
		case types.SourceArg1, types.SourceArg2:
			id, err := resolveArg(w, cmd, p, texts[p.Source])
			if err != nil {
				return nil, err
			}
			b[p.Name] = id
		case types.SourcePlayer:
			b[p.Name] = cfg.PlayerID
		case types.SourceRoom:
			b[p.Name] = w.PlayerRoom()
		case types.SourceInventory:
			b[p.Name] = cfg.InventoryID
		}
	}
	return &Action{Def: def, Bindings: b, Command: cmd}, nil
}

// resolveArg maps one argument text to an id of the parameter's type.
func resolveArg(w *state.World, cmd types.Command, p types.Param, text string) (string, error) {
	defs := w.Defs()
	cfg := w.Config()

	if p.Type == types.NumberType {
		if n, err := strconv.Atoi(text); err == nil && n >= 0 {
			return text, nil
		}
		return "", &ParseFailure{Kind: ParseBadArguments, Arg: text,
			Feedback: fmt.Sprintf("%q is not a number.", text)}
	}

	ids := Lookup(defs, text)
	if len(ids) == 0 {
		if defs.IsA(p.Type, cfg.RoomType) {
			return "", &ResolutionFailure{Kind: ResUndefinedRoom,
				Feedback: fmt.Sprintf("There is no place called %q.", text)}
		}
		return "", &ParseFailure{Kind: ParseUnknownEntity, Arg: text,
			Feedback: fmt.Sprintf("I don't know what %q is.", text)}
	}

	here := w.PlayerRoom()
	if len(ids) > 1 {
		var near []string
		for _, id := range ids {
			if w.IsRoom(id) || w.LocationOf(id) == here {
				near = append(near, id)
			}
		}
		switch len(near) {
		case 0:
			ids = ids[:1]
		case 1:
			ids = near
		default:
			names := make([]string, len(near))
			for i, id := range near {
				names[i] = defs.Name(id)
			}
			return "", &ParseFailure{Kind: ParseAmbiguous, Arg: text,
				Feedback: fmt.Sprintf("Which %s? (%s)", text, strings.Join(names, ", "))}
		}
	}
	id := ids[0]
	name := defs.Name(id)

	if w.IsRoom(id) && !defs.EntityIsA(id, p.Type) {
		return "", &ResolutionFailure{Kind: ResRoomAsEntity,
			Feedback: fmt.Sprintf("The %s is a room; you can't %s it.", name, cmd.Verb)}
	}
	if !defs.EntityIsA(id, p.Type) {
		return "", &ParseFailure{Kind: ParseBadArguments, Arg: text,
			Feedback: fmt.Sprintf("You can't %s the %s.", cmd.Verb, name)}
	}
	if !w.IsRoom(id) {
		if loc := w.LocationOf(id); loc != "" && loc != here {
			return "", &ParseFailure{Kind: ParseOtherRoom, Arg: text,
				Feedback: fmt.Sprintf("You don't see the %s here.", name)}
		}
	}
	return id, nil
}

// Lookup returns ids of entities whose name matches text, in declaration order.
// A miss is an empty result; callers decide how to report it.
func Lookup(defs *state.Defs, text string) []string {
	text = strings.ToLower(strings.TrimSpace(text))
	var out []string
	for _, id := range defs.EntityOrder {
		if matchesName(defs.Entities[id], text) {
			out = append(out, id)
		}
	}
	return out
}

// matchesName checks an entity's surface forms against the query. The query
// matches the full display name, the bare name, the id, or the id with
// underscores read as spaces. Adjectives may be partially given.
func matchesName(def types.EntityDef, q string) bool {
	name := strings.ToLower(def.Name)
	id := strings.ToLower(def.ID)
	switch q {
	case name, id, strings.ToLower(def.DisplayName()), strings.ReplaceAll(id, "_", " "):
		return q != ""
	}
	words := strings.Fields(q)
	if len(words) < 2 || words[len(words)-1] != name {
		return false
	}
	for _, w := range words[:len(words)-1] {
		if !containsStr(def.Adjs, w) {
			return false
		}
	}
	return true
}

func containsStr(slice []string, s string) bool {
	for _, v := range slice {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
