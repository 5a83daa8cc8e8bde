package battle

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestPhysicalDamage(t *testing.T) {
	tests := map[string]struct {
		power   int
		bonus   int
		defense int
		exp     int
	}{
		"straight hit":       {power: 10, bonus: 0, defense: 3, exp: 7},
		"bonus applies":      {power: 10, bonus: 5, defense: 3, exp: 12},
		"armored floor":      {power: 10, bonus: 0, defense: 15, exp: 1},
		"exact cancellation": {power: 10, bonus: 0, defense: 10, exp: 1},
		"zero power":         {power: 0, bonus: 0, defense: 0, exp: 1},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "damage", PhysicalDamage(tt.power, tt.bonus, tt.defense), tt.exp)
		})
	}
}

func TestMagicDamage(t *testing.T) {
	tests := map[string]struct {
		intelligence int
		bonus        int
		exp          int
	}{
		"scales double":  {intelligence: 8, bonus: 0, exp: 16},
		"bonus applies":  {intelligence: 8, bonus: 9, exp: 25},
		"spellless hero": {intelligence: 0, bonus: 0, exp: 3},
		"floor at three": {intelligence: 1, bonus: 0, exp: 3},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "damage", MagicDamage(tt.intelligence, tt.bonus), tt.exp)
		})
	}
}

func TestFleeChance(t *testing.T) {
	testutil.AssertEqual(t, "base chance", FleeChance(0), 30)
	testutil.AssertEqual(t, "agility adds", FleeChance(25), 55)
	testutil.AssertEqual(t, "capped", FleeChance(90), 100)

	for agi := 0; agi < 70; agi++ {
		if FleeChance(agi+1) < FleeChance(agi) {
			t.Fatalf("flee chance not monotonic at agility %d", agi)
		}
	}
}
