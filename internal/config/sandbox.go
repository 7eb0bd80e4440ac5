package config

import (
	lua "github.com/yuin/gopher-lua"
)

// sandboxLuaVM strips a Lua VM down to a declarative subset. Pipeline
// definitions must not be able to:
//   - run processes or read the environment (os)
//   - touch the filesystem (io)
//   - pull in external code (require, dofile, loadfile, load, loadstring)
//   - poke at the VM internals (debug)
//
// The string, table, and math libraries stay available, along with the
// basic utilities (type, tostring, tonumber, pairs, ipairs).
func sandboxLuaVM(L *lua.LState) {
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)

	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)

	L.SetGlobal("debug", lua.LNil)
}

// newSandboxedVM creates a new Lua VM with sandboxing applied. All pipeline
// definition parsing goes through here.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	sandboxLuaVM(L)
	return L
}
