package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/l1jgo/battlesim/internal/system"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for data-driven combat rules.
// Single-goroutine access only (tick loop).
type Engine struct {
	vm       *lua.LState
	log      *zap.Logger
	fallback system.DamageFormula
}

// NewEngine creates a Lua engine and loads all scripts from scriptsDir and its
// combat/ subdirectory. Calls that fail or that no script defines are
// answered by fallback.
func NewEngine(scriptsDir string, fallback system.DamageFormula, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log, fallback: fallback}
	for _, dir := range []string{scriptsDir, filepath.Join(scriptsDir, "combat")} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, err
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
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

// HasFunc reports whether a script defined the global function name.
func (e *Engine) HasFunc(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// BaseDamage calls the Lua calc_damage function with a context table
// {attack, defense, skill_id}. Results below 1 are raised to 1.
func (e *Engine) BaseDamage(in system.DamageInput) int32 {
	fn, ok := e.vm.GetGlobal("calc_damage").(*lua.LFunction)
	if !ok {
		return e.fallback.BaseDamage(in)
	}

	ctx := e.vm.NewTable()
	ctx.RawSetString("attack", lua.LNumber(in.Attack))
	ctx.RawSetString("defense", lua.LNumber(in.Defense))
	ctx.RawSetString("skill_id", lua.LNumber(in.SkillID))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, ctx); err != nil {
		e.log.Error("lua calc_damage error", zap.Error(err))
		return e.fallback.BaseDamage(in)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua calc_damage returned non-number", zap.String("type", result.Type().String()))
		return e.fallback.BaseDamage(in)
	}
	if n < 1 {
		return 1
	}
	return int32(n)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
