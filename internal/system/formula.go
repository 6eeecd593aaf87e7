package system

import "math"

// DamageInput is what a damage formula sees. Attack and Defense already
// include buff modifiers.
type DamageInput struct {
	Attack  int32
	Defense int32
	SkillID int32
}

// DamageFormula computes pre-critical damage. The Lua scripting engine
// implements it to let data scripts override the built-in rule.
type DamageFormula interface {
	BaseDamage(in DamageInput) int32
}

// StandardFormula: max(1, attack - defense), scaled by 1 + skillID*SkillFactor
// and rounded when a skill is used.
type StandardFormula struct {
	SkillFactor float64
}

func (f StandardFormula) BaseDamage(in DamageInput) int32 {
	dmg := in.Attack - in.Defense
	if dmg < 1 {
		dmg = 1
	}
	if in.SkillID > 0 {
		dmg = int32(math.Round(float64(dmg) * (1 + float64(in.SkillID)*f.SkillFactor)))
	}
	return dmg
}
