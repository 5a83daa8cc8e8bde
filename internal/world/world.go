package world

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// Location is a sub-region of a world and the scope for localized broadcast.
type Location struct {
	Name string `json:"name"`
}

// World defines a top-level shared simulation space. Worlds are loaded from
// the asset store at process start and live for the whole process.
type World struct {
	Name      string              `json:"name"`
	Capacity  int                 `json:"capacity"`
	Locations map[string]Location `json:"locations"`
}

// Validate satisfies storage.ValidatingSpec.
func (w *World) Validate() error {
	el := errors.NewErrorList()

	if w.Name == "" {
		el.Add(fmt.Errorf("world name is required"))
	}
	if w.Capacity <= 0 {
		el.Add(fmt.Errorf("capacity must be a positive integer"))
	}
	if len(w.Locations) == 0 {
		el.Add(fmt.Errorf("at least one location is required"))
	}
	for id, loc := range w.Locations {
		if loc.Name == "" {
			el.Add(fmt.Errorf("location %s: name is required", id))
		}
	}

	return el.Err()
}
