package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/l1jgo/battlesim/internal/system"
	"go.uber.org/zap/zaptest"
)

func writeScript(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	e, err := NewEngine(dir, system.StandardFormula{SkillFactor: 0.1}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestShippedDamageScriptMatchesStandardFormula(t *testing.T) {
	e := newEngine(t, "../../scripts")
	if !e.HasFunc("calc_damage") {
		t.Fatal("calc_damage not loaded")
	}
	std := system.StandardFormula{SkillFactor: 0.1}
	for _, in := range []system.DamageInput{
		{Attack: 10, Defense: 5},
		{Attack: 3, Defense: 9},
		{Attack: 20, Defense: 5, SkillID: 3},
		{Attack: 7, Defense: 0, SkillID: 5},
	} {
		if got, want := e.BaseDamage(in), std.BaseDamage(in); got != want {
			t.Errorf("BaseDamage(%+v) = %d, want %d", in, got, want)
		}
	}
}

func TestScriptOverride(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "combat/double.lua", `
function calc_damage(ctx)
  return ctx.attack * 2 - ctx.defense
end
`)
	e := newEngine(t, dir)
	if got := e.BaseDamage(system.DamageInput{Attack: 10, Defense: 5}); got != 15 {
		t.Fatalf("got %d, want 15", got)
	}
	if got := e.BaseDamage(system.DamageInput{Attack: 1, Defense: 50}); got != 1 {
		t.Fatalf("got %d, want floor of 1", got)
	}
}

func TestFallbacks(t *testing.T) {
	t.Run("no script", func(t *testing.T) {
		e := newEngine(t, t.TempDir())
		if got := e.BaseDamage(system.DamageInput{Attack: 10, Defense: 5}); got != 5 {
			t.Fatalf("got %d", got)
		}
	})
	t.Run("runtime error", func(t *testing.T) {
		dir := t.TempDir()
		writeScript(t, dir, "bad.lua", `function calc_damage(ctx) error("boom") end`)
		e := newEngine(t, dir)
		if got := e.BaseDamage(system.DamageInput{Attack: 10, Defense: 5}); got != 5 {
			t.Fatalf("got %d", got)
		}
	})
	t.Run("non-number", func(t *testing.T) {
		dir := t.TempDir()
		writeScript(t, dir, "str.lua", `function calc_damage(ctx) return "lots" end`)
		e := newEngine(t, dir)
		if got := e.BaseDamage(system.DamageInput{Attack: 10, Defense: 5}); got != 5 {
			t.Fatalf("got %d", got)
		}
	})
}

func TestSyntaxErrorFailsLoad(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "broken.lua", `function calc_damage(`)
	if _, err := NewEngine(dir, system.StandardFormula{}, zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected load error")
	}
}
