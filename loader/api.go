package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	game rawGame
}

// registerAPI registers all Lua constructors as globals.
//
//	Game { title = "...", intro = "..." }
//	Type "ingredient" { super = "item" }
//	Predicate "at" { params = { {"e", "thing"}, {"r", "room"} }, mutable = true }
//	Entity "orange" { type = "item", name = "orange", adjs = {"ripe"}, description = "..." }
//	Action "take" { verbs = {"take"}, params = {...}, pre = [[...]], effect = [[...]], feedback = "..." }
//	Event "brew" { params = {...}, trigger = [[...]], pre = [[...]], effect = [[...]], feedback = "..." }
//	Init { "at(player, kitchen)", ... }
//	Goal { ... }
//	Solution { "take orange", ... }
func registerAPI(L *lua.LState, coll *collector) {
	g := &coll.game

	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		g.Game = rawInfo{Title: getString(tbl, "title"), Intro: getString(tbl, "intro")}
		return 0
	}))

	// Type "name" { ... }: curried, the table may be empty.
	L.SetGlobal("Type", curried(L, func(L *lua.LState, name string, tbl *lua.LTable) {
		g.Types = append(g.Types, rawType{Name: name, Super: getString(tbl, "super")})
	}))

	L.SetGlobal("Predicate", curried(L, func(L *lua.LState, name string, tbl *lua.LTable) {
		g.Predicates = append(g.Predicates, rawPredicate{
			Name:    name,
			Params:  getParams(L, tbl),
			Mutable: getBool(tbl, "mutable", false),
		})
	}))

	L.SetGlobal("Entity", curried(L, func(L *lua.LState, id string, tbl *lua.LTable) {
		g.Entities = append(g.Entities, rawEntity{
			ID:          id,
			Type:        getString(tbl, "type"),
			Name:        getString(tbl, "name"),
			Adjs:        getStrings(tbl, "adjs"),
			Description: getString(tbl, "description"),
		})
	}))

	L.SetGlobal("Action", curried(L, func(L *lua.LState, id string, tbl *lua.LTable) {
		g.Actions = append(g.Actions, rawAction{
			ID:       id,
			Verbs:    getStrings(tbl, "verbs"),
			Params:   getParams(L, tbl),
			Pre:      getString(tbl, "pre"),
			Effect:   getString(tbl, "effect"),
			Feedback: getString(tbl, "feedback"),
		})
	}))

	L.SetGlobal("Event", curried(L, func(L *lua.LState, id string, tbl *lua.LTable) {
		g.Events = append(g.Events, rawEvent{
			ID:       id,
			Params:   getParams(L, tbl),
			Trigger:  getString(tbl, "trigger"),
			Pre:      getString(tbl, "pre"),
			Effect:   getString(tbl, "effect"),
			Feedback: getString(tbl, "feedback"),
		})
	}))

	// Init, Goal and Solution append, so content may be split across files.
	L.SetGlobal("Init", L.NewFunction(func(L *lua.LState) int {
		g.Init = append(g.Init, stringList(L.CheckTable(1))...)
		return 0
	}))
	L.SetGlobal("Goal", L.NewFunction(func(L *lua.LState) int {
		g.Goal = append(g.Goal, stringList(L.CheckTable(1))...)
		return 0
	}))
	L.SetGlobal("Solution", L.NewFunction(func(L *lua.LState) int {
		g.Solution = append(g.Solution, stringList(L.CheckTable(1))...)
		return 0
	}))
}

// curried builds a constructor called as Name "id" { ... }.
func curried(L *lua.LState, fn func(L *lua.LState, id string, tbl *lua.LTable)) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			fn(L, id, L.OptTable(1, L.NewTable()))
			return 0
		}))
		return 1
	})
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

func getStrings(tbl *lua.LTable, key string) []string {
	t := getTable(tbl, key)
	if t == nil {
		return nil
	}
	return stringList(t)
}

// stringList reads the array part of a table, skipping non-strings.
func stringList(tbl *lua.LTable) []string {
	var out []string
	for i := 1; i <= tbl.Len(); i++ {
		if s, ok := tbl.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// getParams reads params = { {"name", "type", "source"}, {name = ..., type = ...}, ... }.
func getParams(L *lua.LState, tbl *lua.LTable) []rawParam {
	t := getTable(tbl, "params")
	if t == nil {
		return nil
	}
	var out []rawParam
	for i := 1; i <= t.Len(); i++ {
		pt, ok := t.RawGetInt(i).(*lua.LTable)
		if !ok {
			L.RaiseError("params[%d] must be a table", i)
			return nil
		}
		p := rawParam{
			Name:   getString(pt, "name"),
			Type:   getString(pt, "type"),
			Source: getString(pt, "source"),
		}
		if pos := stringList(pt); len(pos) > 0 {
			p.Name = pos[0]
			if len(pos) > 1 {
				p.Type = pos[1]
			}
			if len(pos) > 2 {
				p.Source = pos[2]
			}
		}
		out = append(out, p)
	}
	return out
}
