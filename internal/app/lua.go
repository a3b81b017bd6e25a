package app

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"cardtable/internal/domain"
	"cardtable/internal/protocol"
)

var (
	// ErrNoLuaScript means the chunk did not define a global `script` function.
	ErrNoLuaScript = errors.New("lua chunk defines no script function")
	// ErrBadLuaRule means the script yielded something other than a rule table.
	ErrBadLuaRule = errors.New("lua script yielded a non-table rule")
)

// LuaScript wraps a Lua chunk as a rule script. The chunk must define a
// global function `script(board)`; every `coroutine.yield(rule)` inside it
// suspends the engine exactly like a Flow.Wait, and the yield returns the
// aggregated per-user results as a table keyed by user name.
//
// Rule tables use the wire field names (type, user, from, to, cards, list,
// key, value, affects, seed, duration, name, bubbles); id assignment stays
// with the engine. The board table passed to script is a read-only snapshot
// of ids by name, enough to address elements without round-tripping.
func LuaScript(src string) Script {
	return func(flow *Flow, board *domain.Board) error {
		L := lua.NewState()
		defer L.Close()
		if err := L.DoString(src); err != nil {
			return fmt.Errorf("load lua script: %w", err)
		}
		fn, ok := L.GetGlobal("script").(*lua.LFunction)
		if !ok {
			return ErrNoLuaScript
		}
		co, _ := L.NewThread()
		st, err, values := L.Resume(co, fn, boardToLua(co, board))
		for st == lua.ResumeYield {
			if len(values) == 0 {
				return ErrBadLuaRule
			}
			rule, cerr := ruleFromLua(values[0])
			if cerr != nil {
				return cerr
			}
			agg, werr := flow.Wait(rule)
			if werr != nil {
				return werr
			}
			st, err, values = L.Resume(co, fn, aggregateToLua(co, agg))
		}
		if st == lua.ResumeError {
			return fmt.Errorf("lua script failed: %w", err)
		}
		return nil
	}
}

func ruleFromLua(v lua.LValue) (*protocol.Rule, error) {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil, ErrBadLuaRule
	}
	str := func(key string) string {
		return lua.LVAsString(tbl.RawGetString(key))
	}
	num := func(key string) int {
		return int(lua.LVAsNumber(tbl.RawGetString(key)))
	}
	return &protocol.Rule{
		Type:     str("type"),
		User:     str("user"),
		From:     str("from"),
		To:       str("to"),
		Cards:    str("cards"),
		List:     str("list"),
		Key:      str("key"),
		Value:    str("value"),
		Affects:  str("affects"),
		Seed:     int64(lua.LVAsNumber(tbl.RawGetString("seed"))),
		Duration: num("duration"),
		Name:     str("name"),
		Bubbles:  lua.LVAsBool(tbl.RawGetString("bubbles")),
	}, nil
}

func aggregateToLua(L *lua.LState, agg protocol.Aggregate) *lua.LTable {
	out := L.NewTable()
	for user, results := range agg {
		list := L.NewTable()
		for _, res := range results {
			entry := L.NewTable()
			entry.RawSetString("command", lua.LString(res.Command.Type))
			entry.RawSetString("value", lua.LString(res.Value))
			entry.RawSetString("cards", idsToLua(L, res.CardIDs))
			entry.RawSetString("locations", idsToLua(L, res.LocationIDs))
			list.Append(entry)
		}
		out.RawSetString(user, list)
	}
	return out
}

func idsToLua(L *lua.LState, ids []int) *lua.LTable {
	tbl := L.NewTable()
	for _, id := range ids {
		tbl.Append(lua.LNumber(id))
	}
	return tbl
}

// boardToLua snapshots the addressable parts of the board: location ids by
// name, user names, and the card ids held by each location at script start.
func boardToLua(L *lua.LState, board *domain.Board) *lua.LTable {
	out := L.NewTable()

	locs := L.NewTable()
	cards := L.NewTable()
	for _, loc := range board.Locations {
		locs.RawSetString(loc.Name, lua.LNumber(loc.ID))
		cards.RawSetString(loc.Name, idsToLua(L, loc.CardIDs))
	}
	out.RawSetString("locations", locs)
	out.RawSetString("cards", cards)

	users := L.NewTable()
	for _, u := range board.Users {
		users.Append(lua.LString(u.Name))
	}
	out.RawSetString("users", users)
	return out
}
