// Package loader reads a content directory of Lua files into phrase tables
// and a scene definition. The Lua VM is sandboxed and discarded after
// loading; the engine only ever sees the compiled Go values.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/nathoo/spotcore/types"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	game       *lua.LTable
	phrases    []rawPhrase
	blocks     []rawBlock
	sessions   []rawSession
	characters []rawCharacter
	rounds     []*lua.LTable
}

type rawPhrase struct {
	key   string
	value lua.LValue
}

type rawBlock struct {
	name  string
	table *lua.LTable
}

type rawSession struct {
	id    string
	table *lua.LTable
}

type rawCharacter struct {
	id    string
	table *lua.LTable
}

// Load reads all .lua files from dir, compiles them into content and
// validates it. Validation warnings are logged; errors are returned as a
// *ValidationError.
func Load(dir string, log *zap.Logger) (*types.Content, error) {
	if log == nil {
		log = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading content directory %s: %w", dir, err)
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

	// game.lua first, rest alphabetical.
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

	content, err := compile(coll)
	if err != nil {
		return nil, fmt.Errorf("compiling content: %w", err)
	}

	if ve := validate(content); ve != nil {
		for _, w := range ve.Warnings {
			log.Warn("content", zap.String("dir", dir), zap.String("warning", w))
		}
		if len(ve.Errors) > 0 {
			return nil, ve
		}
	}

	log.Debug("content loaded",
		zap.String("dir", dir),
		zap.String("title", content.Title),
		zap.Int("phrases", len(content.Phrases.Default.Phrases)),
		zap.Int("characters", len(content.Scene.Characters)),
		zap.Int("rounds", len(content.Scene.Rounds)))
	return content, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Phrase choice goes through the engine's seeded source only.
	if mathTbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		mathTbl.RawSetString("random", lua.LNil)
		mathTbl.RawSetString("randomseed", lua.LNil)
	}
}

// sortedLuaFiles returns the files with game.lua first and the rest
// sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
