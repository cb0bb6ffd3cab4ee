package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors as globals.
func registerAPI(L *lua.LState, coll *collector) {
	// Game { title = "...", language = "..." }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	// Phrase "key" "text" or Phrase "key" { "variant", ... } (curried).
	L.SetGlobal("Phrase", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			v := L.CheckAny(1)
			coll.phrases = append(coll.phrases, rawPhrase{key: key, value: v})
			return 0
		}))
		return 1
	}))

	// Block "name" { "line", { text = "...", store_input = true }, ... }
	L.SetGlobal("Block", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.blocks = append(coll.blocks, rawBlock{name: name, table: tbl})
			return 0
		}))
		return 1
	}))

	// Session "2" { phrases = { [key] = ... }, blocks = { [name] = {...} } }
	L.SetGlobal("Session", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.sessions = append(coll.sessions, rawSession{id: id, table: tbl})
			return 0
		}))
		return 1
	}))

	// Character "id" { name = "...", description = "...", keywords = {...} }
	L.SetGlobal("Character", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.characters = append(coll.characters, rawCharacter{id: id, table: tbl})
			return 0
		}))
		return 1
	}))

	// Round { "character", ... }, one call per round in order.
	L.SetGlobal("Round", L.NewFunction(func(L *lua.LState) int {
		coll.rounds = append(coll.rounds, L.CheckTable(1))
		return 0
	}))
}
