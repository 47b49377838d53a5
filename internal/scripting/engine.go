package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Hook names a module callback a script may define.
type Hook string

const (
	HookAfterTurn     Hook = "after_turn"
	HookOnActivated   Hook = "on_activated"
	HookOnDeactivated Hook = "on_deactivated"
)

// Engine wraps a single gopher-lua VM running module scripts.
// Single-goroutine access only (frame loop).
type Engine struct {
	vm    *lua.LState
	hooks map[string]*lua.LTable // module kind -> table of hook functions
	log   *zap.Logger
}

// NewEngine creates a Lua engine and loads every script under scriptsDir/modules.
// A missing directory yields an engine with no hooks.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.loadDir(filepath.Join(scriptsDir, "modules")); err != nil {
		e.Close()
		return nil, fmt.Errorf("load module scripts: %w", err)
	}
	log.Info("module scripts loaded", zap.Int("kinds", len(e.hooks)))
	return e, nil
}

func newEngine(log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	e := &Engine{vm: vm, hooks: make(map[string]*lua.LTable), log: log}
	vm.SetGlobal("register_module", vm.NewFunction(e.registerModule))
	return e
}

// registerModule is exposed to Lua as register_module(kind, hooks).
func (e *Engine) registerModule(L *lua.LState) int {
	kind := L.CheckString(1)
	tbl := L.CheckTable(2)
	e.hooks[kind] = tbl
	e.log.Debug("module hooks registered", zap.String("kind", kind))
	return 0
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source, typically to register hooks.
func (e *Engine) LoadString(src string) error {
	return e.vm.DoString(src)
}

// ModuleContext is the ship and module state handed to a hook.
type ModuleContext struct {
	Kind       string
	Powered    bool
	Active     bool
	HP         int
	Shields    int
	MaxShields int
}

// ModuleResult is what a hook may change.
type ModuleResult struct {
	Shields int
}

// Has reports whether any hook is registered for kind.
func (e *Engine) Has(kind string) bool {
	_, ok := e.hooks[kind]
	return ok
}

func (e *Engine) AfterTurn(ctx ModuleContext) ModuleResult {
	return e.call(HookAfterTurn, ctx)
}

func (e *Engine) OnActivated(ctx ModuleContext) ModuleResult {
	return e.call(HookOnActivated, ctx)
}

func (e *Engine) OnDeactivated(ctx ModuleContext) ModuleResult {
	return e.call(HookOnDeactivated, ctx)
}

// call runs hook for ctx.Kind. Missing hooks and script errors leave the
// state unchanged.
func (e *Engine) call(hook Hook, ctx ModuleContext) ModuleResult {
	unchanged := ModuleResult{Shields: ctx.Shields}
	tbl, ok := e.hooks[ctx.Kind]
	if !ok {
		return unchanged
	}
	fn := tbl.RawGetString(string(hook))
	if fn == lua.LNil {
		return unchanged
	}

	t := e.vm.NewTable()
	t.RawSetString("kind", lua.LString(ctx.Kind))
	t.RawSetString("powered", lua.LBool(ctx.Powered))
	t.RawSetString("active", lua.LBool(ctx.Active))
	t.RawSetString("hp", lua.LNumber(ctx.HP))
	t.RawSetString("shields", lua.LNumber(ctx.Shields))
	t.RawSetString("max_shields", lua.LNumber(ctx.MaxShields))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua module hook error",
			zap.String("kind", ctx.Kind),
			zap.String("hook", string(hook)),
			zap.Error(err),
		)
		return unchanged
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua module hook returned non-table",
			zap.String("kind", ctx.Kind),
			zap.String("hook", string(hook)),
		)
		return unchanged
	}
	if v := rt.RawGetString("shields"); v != lua.LNil {
		return ModuleResult{Shields: lInt(rt, "shields")}
	}
	return unchanged
}

func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
