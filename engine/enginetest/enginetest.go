// Package enginetest provides a small kitchen world for engine tests.
package enginetest

import (
	"github.com/nathoo/ifcore/config"
	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

// Config returns the default configuration with open/closed declared exclusive.
func Config() config.Config {
	cfg := config.Default()
	cfg.Exclusive = [][2]string{{"open", "closed"}}
	return cfg
}

func fail(kind, feedback string) types.Annotated {
	return types.Annotated{OnFail: &types.FailureSpec{Kind: kind, Feedback: feedback}}
}

func match(pred string, args ...types.Term) types.Match {
	return types.Match{Pred: pred, Args: args}
}

var (
	v = types.V
	c = types.C
)

// Defs returns a fresh kitchen world definition. Callers may modify it.
//
//	kitchen --north--> pantry
//	kitchen: player, orange, clock, herb, cupboard (closed, holds key), cauldron (stage 0)
func Defs() *state.Defs {
	d := &state.Defs{
		Game: types.GameInfo{Title: "Kitchen", Intro: "You are hungry."},
		Types: map[string]types.TypeDef{
			"room":       {Name: "room"},
			"direction":  {Name: "direction"},
			"thing":      {Name: "thing"},
			"player":     {Name: "player", Super: "thing"},
			"item":       {Name: "item", Super: "thing"},
			"ingredient": {Name: "ingredient", Super: "item"},
			"receptacle": {Name: "receptacle", Super: "thing"},
			"inventory":  {Name: "inventory", Super: "receptacle"},
			"container":  {Name: "container", Super: "receptacle"},
			"cauldron":   {Name: "cauldron", Super: "container"},
		},
		Predicates: map[string]types.PredicateDef{},
		Entities:   map[string]types.EntityDef{},
	}

	preds := []types.PredicateDef{
		{Name: "at", Params: []types.Param{{Name: "e", Type: "thing"}, {Name: "r", Type: "room"}}, Mutable: true},
		{Name: "in", Params: []types.Param{{Name: "e", Type: "thing"}, {Name: "c", Type: "receptacle"}}, Mutable: true},
		{Name: "on", Params: []types.Param{{Name: "e", Type: "thing"}, {Name: "c", Type: "receptacle"}}, Mutable: true},
		{Name: "exit", Params: []types.Param{{Name: "from", Type: "room"}, {Name: "to", Type: "room"}, {Name: "d", Type: "direction"}}},
		{Name: "open", Params: []types.Param{{Name: "c", Type: "container"}}, Mutable: true},
		{Name: "closed", Params: []types.Param{{Name: "c", Type: "container"}}, Mutable: true},
		{Name: "takeable", Params: []types.Param{{Name: "e", Type: "item"}}},
		{Name: "stage", Params: []types.Param{{Name: "c", Type: "cauldron"}, {Name: "n", Type: types.NumberType}}, Mutable: true},
		{Name: "wound", Params: []types.Param{{Name: "e", Type: "thing"}, {Name: "n", Type: types.NumberType}}, Mutable: true},
	}
	for _, p := range preds {
		d.Predicates[p.Name] = p
	}

	entities := []types.EntityDef{
		{ID: "player", Type: "player", Name: "you"},
		{ID: "inventory", Type: "inventory", Name: "inventory"},
		{ID: "kitchen", Type: "room", Name: "kitchen", Description: "A warm kitchen."},
		{ID: "pantry", Type: "room", Name: "pantry", Description: "Shelves line the walls."},
		{ID: "north", Type: "direction", Name: "north"},
		{ID: "south", Type: "direction", Name: "south"},
		{ID: "orange", Type: "item", Name: "orange", Description: "A ripe orange."},
		{ID: "key", Type: "item", Name: "key", Adjs: []string{"brass"}, Description: "A small brass key."},
		{ID: "cupboard", Type: "container", Name: "cupboard", Description: "A wooden cupboard."},
		{ID: "cauldron", Type: "cauldron", Name: "cauldron", Description: "A black iron cauldron."},
		{ID: "herb", Type: "ingredient", Name: "herb", Description: "A sprig of thyme."},
		{ID: "clock", Type: "item", Name: "clock", Description: "A wind-up clock."},
		{ID: "jar", Type: "item", Name: "jar", Description: "An empty jar."},
	}
	for _, e := range entities {
		d.Entities[e.ID] = e
		d.EntityOrder = append(d.EntityOrder, e.ID)
	}

	d.Init = []types.Fact{
		types.F("at", "player", "kitchen"),
		types.F("at", "orange", "kitchen"),
		types.F("at", "cupboard", "kitchen"),
		types.F("closed", "cupboard"),
		types.F("in", "key", "cupboard"),
		types.F("exit", "kitchen", "pantry", "north"),
		types.F("exit", "pantry", "kitchen", "south"),
		types.F("at", "cauldron", "kitchen"),
		types.F("open", "cauldron"),
		types.F("stage", "cauldron", "0"),
		types.F("at", "herb", "kitchen"),
		types.F("at", "clock", "kitchen"),
		types.F("wound", "clock", "0"),
		types.F("at", "jar", "pantry"),
		types.F("takeable", "orange"),
		types.F("takeable", "key"),
		types.F("takeable", "herb"),
		types.F("takeable", "clock"),
		types.F("takeable", "jar"),
	}
	d.Goal = []types.Fact{types.F("in", "orange", "inventory")}
	d.Solution = []string{"take orange"}

	d.Actions = []types.ActionDef{takeAction(), openAction(), goAction(), goToAction(), putAction(), windAction(), lookAction(), inventoryAction(), examineAction()}
	d.Events = []types.EventDef{brewEvent()}
	return d
}

// World builds the initial world for Defs with Config.
func World(d *state.Defs) *state.World {
	w, err := state.New(d, Config(), d.Init)
	if err != nil {
		panic(err)
	}
	return w
}

func accessible(e string) types.Condition {
	return types.Or{
		Annotated: fail("entity_not_accessible", "You can't see the {"+e+"} here."),
		Children: []types.Condition{
			match("at", v(e), v("r")),
			match("in", v(e), c("inventory")),
			types.Exists{Var: "c", Type: "container", Body: types.And{Children: []types.Condition{
				match("in", v(e), v("c")),
				match("at", v("c"), v("r")),
			}}},
		},
	}
}

func takeAction() types.ActionDef {
	return types.ActionDef{
		ID:    "take",
		Verbs: []string{"take"},
		Params: []types.Param{
			{Name: "e", Type: "item", Source: types.SourceArg1},
			{Name: "r", Type: "room", Source: types.SourceRoom},
		},
		Pre: types.And{Children: []types.Condition{
			types.Not{Annotated: fail("entity_already_inventory", "You already have the {e}."), Child: match("in", v("e"), c("inventory"))},
			accessible("e"),
			types.Forall{Var: "c", Type: "container", Body: types.Not{
				Annotated: fail("entity_state_mismatch", "The {c} is closed."),
				Child: types.And{Children: []types.Condition{
					match("in", v("e"), v("c")),
					match("closed", v("c")),
				}},
			}},
			types.Match{Annotated: fail("entity_trait_mismatch", "The {e} can't be taken."), Pred: "takeable", Args: []types.Term{v("e")}},
		}},
		Effect: types.AndEffect{Children: []types.Effect{
			types.Remove{Pred: "at", Args: []types.Term{v("e"), v("r")}},
			types.ForallEffect{Var: "c", Type: "container", Body: types.When{
				Cond: match("in", v("e"), v("c")),
				Body: types.Remove{Pred: "in", Args: []types.Term{v("e"), v("c")}},
			}},
			types.Add{Pred: "in", Args: []types.Term{v("e"), c("inventory")}},
		}},
		Feedback: "You take the {e}.",
	}
}

func openAction() types.ActionDef {
	return types.ActionDef{
		ID:    "open",
		Verbs: []string{"open"},
		Params: []types.Param{
			{Name: "e", Type: "container", Source: types.SourceArg1},
			{Name: "r", Type: "room", Source: types.SourceRoom},
		},
		Pre: types.And{Children: []types.Condition{
			types.Match{Annotated: fail("entity_not_accessible", "You can't see the {e} here."), Pred: "at", Args: []types.Term{v("e"), v("r")}},
			types.Match{Annotated: fail("entity_state_mismatch", "The {e} is already open."), Pred: "closed", Args: []types.Term{v("e")}},
		}},
		Effect: types.AndEffect{Children: []types.Effect{
			types.Remove{Pred: "closed", Args: []types.Term{v("e")}},
			types.Add{Pred: "open", Args: []types.Term{v("e")}},
		}},
		Feedback: "You open the {e}. {e.desc}",
	}
}

func goAction() types.ActionDef {
	return types.ActionDef{
		ID:    "go",
		Verbs: []string{"go"},
		Params: []types.Param{
			{Name: "d", Type: "direction", Source: types.SourceArg1},
			{Name: "r", Type: "room", Source: types.SourceRoom},
			{Name: "p", Type: "player", Source: types.SourcePlayer},
			{Name: "to", Type: "room"},
		},
		Pre: types.Match{Annotated: fail("no_exit_to", "There is no exit {d} from here."), Pred: "exit", Args: []types.Term{v("r"), v("to"), v("d")}},
		Effect: types.AndEffect{Children: []types.Effect{
			types.Remove{Pred: "at", Args: []types.Term{v("p"), v("r")}},
			types.Add{Pred: "at", Args: []types.Term{v("p"), v("to")}},
		}},
		Feedback: "{room_desc}",
	}
}

func goToAction() types.ActionDef {
	return types.ActionDef{
		ID:    "go_to",
		Verbs: []string{"go"},
		Params: []types.Param{
			{Name: "to", Type: "room", Source: types.SourceArg1},
			{Name: "r", Type: "room", Source: types.SourceRoom},
			{Name: "p", Type: "player", Source: types.SourcePlayer},
		},
		Pre: types.And{Children: []types.Condition{
			types.Not{Annotated: fail("going_to_current_room", "You are already in the {to}."), Child: match("at", v("p"), v("to"))},
			types.Exists{Annotated: fail("no_exit_to", "There is no passage to the {to} here."), Var: "d", Type: "direction", Body: match("exit", v("r"), v("to"), v("d"))},
		}},
		Effect: types.AndEffect{Children: []types.Effect{
			types.Remove{Pred: "at", Args: []types.Term{v("p"), v("r")}},
			types.Add{Pred: "at", Args: []types.Term{v("p"), v("to")}},
		}},
		Feedback: "{room_desc}",
	}
}

func putAction() types.ActionDef {
	return types.ActionDef{
		ID:    "put",
		Verbs: []string{"put", "place"},
		Params: []types.Param{
			{Name: "e", Type: "item", Source: types.SourceArg1},
			{Name: "c", Type: "container", Source: types.SourceArg2},
			{Name: "r", Type: "room", Source: types.SourceRoom},
		},
		Pre: types.And{Children: []types.Condition{
			types.Match{Annotated: fail("entity_state_mismatch", "You don't have the {e}."), Pred: "in", Args: []types.Term{v("e"), c("inventory")}},
			types.Match{Annotated: fail("entity_not_accessible", "You can't see the {c} here."), Pred: "at", Args: []types.Term{v("c"), v("r")}},
			types.Match{Annotated: fail("entity_state_mismatch", "The {c} is closed."), Pred: "open", Args: []types.Term{v("c")}},
		}},
		Effect: types.AndEffect{Children: []types.Effect{
			types.Remove{Pred: "in", Args: []types.Term{v("e"), c("inventory")}},
			types.Add{Pred: "in", Args: []types.Term{v("e"), v("c")}},
		}},
		Feedback: "You put the {e} {prep} the {c}.",
	}
}

func windAction() types.ActionDef {
	return types.ActionDef{
		ID:    "wind",
		Verbs: []string{"wind"},
		Params: []types.Param{
			{Name: "e", Type: "item", Source: types.SourceArg1},
			{Name: "r", Type: "room", Source: types.SourceRoom},
		},
		Pre: types.And{Children: []types.Condition{
			accessible("e"),
			types.NumComp{
				Annotated: fail("entity_state_mismatch", "The {e} is fully wound."),
				Op:        types.OpLt,
				LHS:       types.NumExpr{Pred: "wound", Args: []types.Term{v("e")}},
				RHS:       types.NumExpr{Literal: 3},
			},
		}},
		Effect:   types.NumUpdate{Op: types.OpIncrease, Pred: "wound", Args: []types.Term{v("e")}, Amount: types.NumExpr{Literal: 1}},
		Feedback: "You wind the {e}.",
	}
}

func lookAction() types.ActionDef {
	return types.ActionDef{
		ID:       "look",
		Verbs:    []string{"look"},
		Params:   []types.Param{{Name: "r", Type: "room", Source: types.SourceRoom}},
		Feedback: "{room_desc}",
	}
}

func inventoryAction() types.ActionDef {
	return types.ActionDef{
		ID:       "inventory",
		Verbs:    []string{"inventory"},
		Feedback: "{inventory_desc}",
	}
}

func examineAction() types.ActionDef {
	return types.ActionDef{
		ID:    "examine",
		Verbs: []string{"examine"},
		Params: []types.Param{
			{Name: "e", Type: "thing", Source: types.SourceArg1},
			{Name: "r", Type: "room", Source: types.SourceRoom},
		},
		Pre:      accessible("e"),
		Feedback: "{e.desc}",
	}
}

func brewEvent() types.EventDef {
	return types.EventDef{
		ID: "brew",
		Params: []types.Param{
			{Name: "i", Type: "ingredient"},
			{Name: "c", Type: "cauldron"},
		},
		Trigger: match("in", v("i"), v("c")),
		Pre:     match("stage", v("c"), c("0")),
		Effect: types.AndEffect{Children: []types.Effect{
			types.Remove{Pred: "stage", Args: []types.Term{v("c"), c("0")}},
			types.Add{Pred: "stage", Args: []types.Term{v("c"), c("1")}},
		}},
		Feedback: "The {c} begins to bubble.",
	}
}

// RunawayEvent returns an event that re-triggers itself on every wind change.
func RunawayEvent() types.EventDef {
	return types.EventDef{
		ID:      "runaway",
		Params:  []types.Param{{Name: "e", Type: "item"}, {Name: "n", Type: types.NumberType}},
		Trigger: match("wound", v("e"), v("n")),
		Effect:  types.NumUpdate{Op: types.OpIncrease, Pred: "wound", Args: []types.Term{v("e")}, Amount: types.NumExpr{Literal: 1}},
	}
}
