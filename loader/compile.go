package loader

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/spotcore/types"
)

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

// stringList converts the array part of a Lua table to strings.
// Non-string elements are an error.
func stringList(tbl *lua.LTable) ([]string, error) {
	out := make([]string, 0, tbl.MaxN())
	for i := 1; i <= tbl.MaxN(); i++ {
		s, ok := tbl.RawGetInt(i).(lua.LString)
		if !ok {
			return nil, fmt.Errorf("element %d is %s, want string", i, tbl.RawGetInt(i).Type())
		}
		out = append(out, string(s))
	}
	return out, nil
}

// stringKeys returns the string keys of a Lua table in sorted order.
func stringKeys(tbl *lua.LTable) []string {
	var keys []string
	tbl.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			keys = append(keys, string(ks))
		}
	})
	sort.Strings(keys)
	return keys
}

// compile converts all collected Lua data into content.
func compile(coll *collector) (*types.Content, error) {
	if coll.game == nil {
		return nil, fmt.Errorf("no Game{} definition found")
	}

	c := &types.Content{
		Title:    getString(coll.game, "title"),
		Language: getString(coll.game, "language"),
		Phrases: types.PhraseDefs{
			Default:  newTable(),
			Sessions: map[string]types.PhraseTable{},
		},
		Scene: types.SceneDef{
			Characters: map[string]types.Character{},
		},
	}

	for _, raw := range coll.phrases {
		variants, err := compilePhrase(raw.value)
		if err != nil {
			return nil, fmt.Errorf("compiling phrase %s: %w", raw.key, err)
		}
		c.Phrases.Default.Phrases[raw.key] = variants
	}

	for _, raw := range coll.blocks {
		lines, err := compileBlock(raw.table)
		if err != nil {
			return nil, fmt.Errorf("compiling block %s: %w", raw.name, err)
		}
		c.Phrases.Default.Blocks[raw.name] = lines
	}

	for _, raw := range coll.sessions {
		t, err := compileSession(raw.table)
		if err != nil {
			return nil, fmt.Errorf("compiling session %s: %w", raw.id, err)
		}
		c.Phrases.Sessions[raw.id] = t
	}

	for _, raw := range coll.characters {
		ch, err := compileCharacter(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling character %s: %w", raw.id, err)
		}
		c.Scene.Characters[ch.ID] = ch
	}

	for i, tbl := range coll.rounds {
		positions, err := stringList(tbl)
		if err != nil {
			return nil, fmt.Errorf("compiling round %d: %w", i+1, err)
		}
		c.Scene.Rounds = append(c.Scene.Rounds, types.RoundDef{Positions: positions})
	}

	return c, nil
}

func newTable() types.PhraseTable {
	return types.PhraseTable{
		Phrases: map[string][]string{},
		Blocks:  map[string][]types.Line{},
	}
}

// compilePhrase accepts a single string or a list of variants.
func compilePhrase(v lua.LValue) ([]string, error) {
	switch val := v.(type) {
	case lua.LString:
		return []string{string(val)}, nil
	case *lua.LTable:
		return stringList(val)
	default:
		return nil, fmt.Errorf("value is %s, want string or list of strings", v.Type())
	}
}

// compileBlock accepts plain strings and { text = ..., store_input = ... }
// tables as lines.
func compileBlock(tbl *lua.LTable) ([]types.Line, error) {
	lines := make([]types.Line, 0, tbl.MaxN())
	for i := 1; i <= tbl.MaxN(); i++ {
		switch v := tbl.RawGetInt(i).(type) {
		case lua.LString:
			lines = append(lines, types.Line{Text: string(v)})
		case *lua.LTable:
			lines = append(lines, types.Line{
				Text:       getString(v, "text"),
				StoreInput: getBool(v, "store_input", false),
			})
		default:
			return nil, fmt.Errorf("line %d is %s, want string or table", i, v.Type())
		}
	}
	return lines, nil
}

func compileSession(tbl *lua.LTable) (types.PhraseTable, error) {
	t := newTable()
	if phrases := getTable(tbl, "phrases"); phrases != nil {
		for _, key := range stringKeys(phrases) {
			variants, err := compilePhrase(phrases.RawGetString(key))
			if err != nil {
				return t, fmt.Errorf("phrase %s: %w", key, err)
			}
			t.Phrases[key] = variants
		}
	}
	if blocks := getTable(tbl, "blocks"); blocks != nil {
		for _, name := range stringKeys(blocks) {
			b, ok := blocks.RawGetString(name).(*lua.LTable)
			if !ok {
				return t, fmt.Errorf("block %s is not a table", name)
			}
			lines, err := compileBlock(b)
			if err != nil {
				return t, fmt.Errorf("block %s: %w", name, err)
			}
			t.Blocks[name] = lines
		}
	}
	return t, nil
}

func compileCharacter(raw rawCharacter) (types.Character, error) {
	ch := types.Character{
		ID:          raw.id,
		Name:        getString(raw.table, "name"),
		Description: getString(raw.table, "description"),
	}
	if kw := getTable(raw.table, "keywords"); kw != nil {
		keywords, err := stringList(kw)
		if err != nil {
			return ch, fmt.Errorf("keywords: %w", err)
		}
		ch.Keywords = keywords
	}
	return ch, nil
}
