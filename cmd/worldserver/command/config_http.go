package command

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

type HttpConfig struct {
	Port uint16 `json:"port"`
}

func (c *HttpConfig) validate() error {
	el := errors.NewErrorList()

	if c.Port == 0 {
		el.Add(fmt.Errorf("port must be set to a positive integer"))
	}

	return el.Err()
}
