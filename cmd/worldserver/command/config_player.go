package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

type PlayerConfig struct {
	DefaultWorld    string `json:"default_world"`
	DefaultLocation string `json:"default_location"`
	IdleTimeout     string `json:"idle_timeout"`
}

func (c *PlayerConfig) validate() error {
	el := errors.NewErrorList()

	if c.DefaultWorld == "" {
		el.Add(fmt.Errorf("default_world is required"))
	}
	if c.DefaultLocation == "" {
		el.Add(fmt.Errorf("default_location is required"))
	}
	if c.IdleTimeout != "" {
		if _, err := time.ParseDuration(c.IdleTimeout); err != nil {
			el.Add(fmt.Errorf("parsing idle_timeout: %w", err))
		}
	}

	return el.Err()
}
