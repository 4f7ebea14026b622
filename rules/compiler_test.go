package rules

import (
	"strings"
	"testing"

	"github.com/expr-lang/expr"
)

func ruleNames(rules []*Rule) map[string]bool {
	out := make(map[string]bool, len(rules))
	for _, r := range rules {
		out[r.Name] = true
	}
	return out
}

func TestCompileDoctrineRegistry(t *testing.T) {
	rules := CompileDoctrine(RegistryDoctrine())

	// Verify all rules compile with expr
	for _, r := range rules {
		_, err := expr.Compile(r.ConditionSrc, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			t.Errorf("rule %q failed to compile: %v\ncondition: %s", r.Name, err, r.ConditionSrc)
		}
	}

	names := ruleNames(rules)
	for _, want := range []string{
		RuleConvertToDropoff, RuleEscapeCrowd, RuleArrived, RuleEnRoute,
		RuleReturnToBase, RuleRelocate, RuleHarvest, RuleSpawn,
	} {
		if !names[want] {
			t.Errorf("core rule %q missing from registry doctrine", want)
		}
	}
	for _, absent := range []string{RuleEndgameReturn, RuleLeaveBase, RuleInsufficientFuel} {
		if names[absent] {
			t.Errorf("unexpected rule %q in registry doctrine", absent)
		}
	}
}

func TestCompileDoctrineRush(t *testing.T) {
	rules := CompileDoctrine(RushDoctrine())
	for _, r := range rules {
		_, err := expr.Compile(r.ConditionSrc, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			t.Errorf("rule %q failed to compile: %v", r.Name, err)
		}
	}

	names := ruleNames(rules)
	for _, want := range []string{RuleEndgameReturn, RuleLeaveBase} {
		if !names[want] {
			t.Errorf("expected rule %q in rush doctrine", want)
		}
	}
	// The fuel check is opt-in from doctrine files, never built in.
	if names[RuleInsufficientFuel] {
		t.Errorf("unexpected rule %q in rush doctrine", RuleInsufficientFuel)
	}
	if len(rules) != 10 {
		t.Errorf("expected 10 rules, got %d", len(rules))
	}
}

func TestCompileDoctrineFuelCheckOptIn(t *testing.T) {
	d := RushDoctrine()
	d.FuelCheck = true
	rules := CompileDoctrine(d)
	if !ruleNames(rules)[RuleInsufficientFuel] {
		t.Errorf("expected rule %q when FuelCheck is set", RuleInsufficientFuel)
	}
	if len(rules) != 11 {
		t.Errorf("expected 11 rules, got %d", len(rules))
	}
}

func TestCompileDoctrineReturnCondition(t *testing.T) {
	returnSrc := func(d Doctrine) string {
		for _, r := range CompileDoctrine(d) {
			if r.Name == RuleReturnToBase {
				return r.ConditionSrc
			}
		}
		t.Fatalf("no return rule for %s", d.Name)
		return ""
	}

	if src := returnSrc(RegistryDoctrine()); src != `Full()` {
		t.Errorf("registry return condition = %q, want Full()", src)
	}
	if src := returnSrc(RushDoctrine()); src != `Halite() >= MaxHalite() * 0.75` {
		t.Errorf("rush return condition = %q, want 75%% threshold", src)
	}
	unset := RegistryDoctrine()
	unset.ReturnFraction = 0
	if src := returnSrc(unset); src != `Full()` {
		t.Errorf("unset return fraction condition = %q, want Full()", src)
	}
}

func TestCompileDoctrineSpawnWindow(t *testing.T) {
	spawnSrc := func(d Doctrine) string {
		for _, r := range CompileDoctrine(d) {
			if r.Name == RuleSpawn {
				return r.ConditionSrc
			}
		}
		t.Fatalf("no spawn rule for %s", d.Name)
		return ""
	}

	if src := spawnSrc(RegistryDoctrine()); !strings.Contains(src, "Turn() <= 200") {
		t.Errorf("registry spawn condition = %q, want absolute turn cutoff", src)
	}
	if src := spawnSrc(RushDoctrine()); !strings.Contains(src, "MaxTurns() * 0.3") {
		t.Errorf("rush spawn condition = %q, want fractional cutoff", src)
	}
}

func TestCompileDoctrineClampsValues(t *testing.T) {
	d := Doctrine{
		Name:             "wild",
		LowYieldFraction: 3,
		SearchRadius:     100,
		CrowdThreshold:   -1,
	}
	d.Validate()
	if d.LowYieldFraction != 1 {
		t.Errorf("LowYieldFraction = %v, want 1", d.LowYieldFraction)
	}
	if d.SearchRadius != 16 {
		t.Errorf("SearchRadius = %d, want 16", d.SearchRadius)
	}
	if d.CrowdThreshold != 1 {
		t.Errorf("CrowdThreshold = %d, want 1", d.CrowdThreshold)
	}

	// The compiled rules still compile.
	if _, err := NewEngine(d); err != nil {
		t.Fatalf("NewEngine with clamped doctrine: %v", err)
	}
}

func TestNewEngineSortsByPriority(t *testing.T) {
	engine, err := NewEngine(RushDoctrine())
	if err != nil {
		t.Fatalf("NewEngine(RushDoctrine()) failed: %v", err)
	}
	for i := 1; i < len(engine.rules); i++ {
		if engine.rules[i].Priority > engine.rules[i-1].Priority {
			t.Errorf("rules not sorted by priority: %s (%d) > %s (%d)",
				engine.rules[i].Name, engine.rules[i].Priority,
				engine.rules[i-1].Name, engine.rules[i-1].Priority)
		}
	}
}
