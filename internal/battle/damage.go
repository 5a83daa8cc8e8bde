package battle

const (
	// physicalBonusRange bounds the random bonus on physical attacks: a
	// non-negative integer below this value, drawn per action.
	physicalBonusRange = 6

	// magicBonusRange bounds the random bonus on magic attacks.
	magicBonusRange = 10

	// magicCost is the mana cost of a magic attack.
	magicCost = 10

	// fleeBaseChance is the flee success percentage at zero agility.
	fleeBaseChance = 30
)

// PhysicalDamage computes attack damage with a floor of 1: even a fully
// absorbed hit scratches.
func PhysicalDamage(power, bonus, defense int) int {
	dmg := power + bonus - defense
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

// MagicDamage computes spell damage with a floor of 3. Magic ignores defense.
func MagicDamage(intelligence, bonus int) int {
	dmg := intelligence*2 + bonus
	if dmg < 3 {
		dmg = 3
	}
	return dmg
}

// FleeChance returns the flee success percentage for an agility score. It is
// monotonic in agility and capped at 100.
func FleeChance(agility int) int {
	chance := fleeBaseChance + agility
	if chance > 100 {
		chance = 100
	}
	return chance
}
