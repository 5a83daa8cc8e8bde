package battle

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// Enemy defines one enemy type in the catalog. Instances are stamped out per
// battle session; the definition itself is never mutated.
type Enemy struct {
	Name       string `json:"name"`
	MaxHP      int    `json:"max_hp"`
	Attack     int    `json:"attack"`
	Defense    int    `json:"defense"`
	ExpReward  int    `json:"exp_reward"`
	GoldReward int    `json:"gold_reward"`
}

// Validate satisfies storage.ValidatingSpec.
func (e *Enemy) Validate() error {
	el := errors.NewErrorList()

	if e.Name == "" {
		el.Add(fmt.Errorf("enemy name is required"))
	}
	if e.MaxHP <= 0 {
		el.Add(fmt.Errorf("max_hp must be a positive integer"))
	}
	if e.Attack < 0 {
		el.Add(fmt.Errorf("attack must not be negative"))
	}
	if e.Defense < 0 {
		el.Add(fmt.Errorf("defense must not be negative"))
	}

	return el.Err()
}
