// Package script runs Lua programs against the monitor. Scripts see a
// global table busmon:
//
//	busmon.exec(line)     run a monitor command line, raising on failure
//	busmon.step([n])      single step n instructions (default 1)
//	busmon.addr()         current instruction address
//	busmon.breakpoints()  array of {addr, mode, trigger}
//
// print writes to the monitor output.
package script

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/valerio/go-busmon/busmon/monitor"
)

// Engine is a Lua state bound to one monitor.
type Engine struct {
	L      *lua.LState
	mon    *monitor.Monitor
	out    io.Writer
	logger *slog.Logger
}

// New creates an engine. Close it when done.
func New(mon *monitor.Monitor, out io.Writer) *Engine {
	if out == nil {
		out = io.Discard
	}
	e := &Engine{
		L:      lua.NewState(),
		mon:    mon,
		out:    out,
		logger: slog.Default(),
	}

	api := e.L.NewTable()
	e.L.SetField(api, "exec", e.L.NewFunction(e.exec))
	e.L.SetField(api, "step", e.L.NewFunction(e.step))
	e.L.SetField(api, "addr", e.L.NewFunction(e.addr))
	e.L.SetField(api, "breakpoints", e.L.NewFunction(e.breakpoints))
	e.L.SetGlobal("busmon", api)
	e.L.SetGlobal("print", e.L.NewFunction(e.print))
	return e
}

// Close releases the Lua state.
func (e *Engine) Close() {
	e.L.Close()
}

// RunString runs a chunk of Lua source.
func (e *Engine) RunString(src string) error {
	if err := e.L.DoString(src); err != nil {
		return fmt.Errorf("script failed: %w", err)
	}
	return nil
}

// RunFile runs the Lua file at path.
func (e *Engine) RunFile(path string) error {
	e.logger.Info("Running script", "path", path)
	if err := e.L.DoFile(path); err != nil {
		return fmt.Errorf("script %s failed: %w", path, err)
	}
	return nil
}

func (e *Engine) exec(L *lua.LState) int {
	line := L.CheckString(1)
	if err := e.mon.Exec(line); err != nil {
		L.RaiseError("%s: %v", line, err)
	}
	return 0
}

func (e *Engine) step(L *lua.LState) int {
	n := L.OptInt(1, 1)
	if err := e.mon.Execute(monitor.Step, strconv.Itoa(n)); err != nil {
		L.RaiseError("step %d: %v", n, err)
	}
	return 0
}

func (e *Engine) addr(L *lua.LState) int {
	L.Push(lua.LNumber(e.mon.Address()))
	return 1
}

func (e *Engine) breakpoints(L *lua.LState) int {
	list := L.NewTable()
	for _, b := range e.mon.Breakpoints() {
		t := L.NewTable()
		L.SetField(t, "addr", lua.LNumber(b.Address))
		L.SetField(t, "mode", lua.LString(b.Mode.String()))
		L.SetField(t, "trigger", lua.LNumber(b.Trigger))
		list.Append(t)
	}
	L.Push(list)
	return 1
}

func (e *Engine) print(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	fmt.Fprintln(e.out, strings.Join(parts, "\t"))
	return 0
}
