package battle

import (
	"testing"
)

func TestEnemyValidate(t *testing.T) {
	tests := map[string]struct {
		enemy  *Enemy
		expErr bool
	}{
		"valid": {
			enemy: &Enemy{Name: "Red Slime", MaxHP: 30, Attack: 8, Defense: 3, ExpReward: 25, GoldReward: 15},
		},
		"missing name": {
			enemy:  &Enemy{MaxHP: 30, Attack: 8, Defense: 3},
			expErr: true,
		},
		"zero hp": {
			enemy:  &Enemy{Name: "Ghost", Attack: 8, Defense: 3},
			expErr: true,
		},
		"negative attack": {
			enemy:  &Enemy{Name: "Pacifist", MaxHP: 30, Attack: -1},
			expErr: true,
		},
		"negative defense": {
			enemy:  &Enemy{Name: "Soft", MaxHP: 30, Defense: -1},
			expErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.enemy.Validate()
			if tt.expErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expErr && err != nil {
				t.Errorf("expected nil error, got %v", err)
			}
		})
	}
}
