// Package loader reads authored game definitions into immutable Defs.
// Games are written either as a YAML/JSON file with s-expression condition
// and effect trees, or as a directory of Lua scripts. The Lua VM is discarded
// after loading; nothing authored runs during play.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"gopkg.in/yaml.v3"

	"github.com/nathoo/ifcore/engine/state"
)

// Load reads a game from path: a directory of .lua files, or a single
// .yaml, .yml or .json file.
func Load(path string) (*state.Defs, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading game %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadLua(path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading game %s: %w", path, err)
		}
		defs, err := LoadYAML(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return defs, nil
	}
	return nil, fmt.Errorf("unsupported game file %s: want a directory or .yaml/.yml/.json", path)
}

// LoadYAML decodes a game record from YAML or JSON and compiles it.
// Unknown keys are rejected.
func LoadYAML(r io.Reader) (*state.Defs, error) {
	var g rawGame
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&g); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &AuthoringError{Errors: []string{"empty game file"}}
		}
		return nil, &AuthoringError{Errors: []string{err.Error()}}
	}
	return build(&g)
}

// LoadLua reads all .lua files from dir, game.lua first, compiles them into
// game definitions and validates them.
func LoadLua(dir string) (*state.Defs, error) {
	// Discover .lua files.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading game directory %s: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}
	luaFiles = sortedLuaFiles(luaFiles)

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		if err := L.DoFile(filepath.Join(dir, f)); err != nil {
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}
	return build(&coll.game)
}

func build(g *rawGame) (*state.Defs, error) {
	defs, err := compile(g)
	if err != nil {
		return nil, err
	}
	if err := validate(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// sortedLuaFiles puts game.lua first and the rest in alphabetical order.
func sortedLuaFiles(files []string) []string {
	out := append([]string(nil), files...)
	sort.Slice(out, func(i, j int) bool {
		if out[i] == "game.lua" || out[j] == "game.lua" {
			return out[i] == "game.lua" && out[j] != "game.lua"
		}
		return out[i] < out[j]
	})
	return out
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes globals that reach outside the VM or break determinism.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
		tbl.RawSetString("random", lua.LNil)
	}
}
