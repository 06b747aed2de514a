package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/send"
)

// installModule registers the hookmap global table.
func (s *State) installModule() {
	mod := s.L.SetFuncs(s.L.NewTable(), map[string]lua.LGFunction{
		"send":       s.luaSend,
		"press":      s.luaOp(send.Press),
		"release":    s.luaOp(send.Release),
		"click":      s.luaOp(send.Click),
		"is_pressed": s.luaIsPressed,
		"move":       s.luaMove,
		"rotate":     s.luaRotate,
		"log":        s.luaLog,
	})
	s.L.SetGlobal("hookmap", mod)
}

func checkButton(L *lua.LState, n int) input.Button {
	b, err := input.ParseButton(L.CheckString(n))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return b
}

func (s *State) raise(L *lua.LState, err error) {
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
}

// hookmap.send("Ctrl+C Ctrl+V")
func (s *State) luaSend(L *lua.LState) int {
	seq, err := send.Parse(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
	}
	s.raise(L, s.sender.Send(seq))
	return 0
}

// hookmap.press / release / click(name, ...)
func (s *State) luaOp(op func(input.Button) send.Op) lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.GetTop()
		if n == 0 {
			L.ArgError(1, "button name expected")
		}
		ops := make([]send.Op, 0, n)
		for i := 1; i <= n; i++ {
			ops = append(ops, op(checkButton(L, i)))
		}
		s.raise(L, s.sender.Send(send.Raw(ops...)))
		return 0
	}
}

func (s *State) luaIsPressed(L *lua.LState) int {
	b := checkButton(L, 1)
	L.Push(lua.LBool(s.state != nil && s.state.IsPressed(b)))
	return 1
}

func (s *State) luaMove(L *lua.LState) int {
	dx := L.CheckInt(1)
	dy := L.CheckInt(2)
	s.raise(L, s.sender.Move(int32(dx), int32(dy)))
	return 0
}

func (s *State) luaRotate(L *lua.LState) int {
	s.raise(L, s.sender.Rotate(int32(L.CheckInt(1))))
	return 0
}

func (s *State) luaLog(L *lua.LState) int {
	s.logger.Info("[script] "+L.CheckString(1), "script", s.name)
	return 0
}
