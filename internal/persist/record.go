package persist

import (
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-errors"
)

// PlayerRecord is a player's durable progress, keyed by player identifier
// (stable across sessions, distinct from any connection identifier).
type PlayerRecord struct {
	Username string `json:"username"`

	// Progress is the serialized progress payload. It is opaque to the
	// server and preserved byte for byte across save and load.
	Progress json.RawMessage `json:"progress,omitempty"`

	// LastSave is set on every save, in unix milliseconds.
	LastSave int64 `json:"last_save"`

	// Account fields, used by the HTTP registration/login surface.
	Email        string `json:"email,omitempty"`
	PasswordHash string `json:"password_hash,omitempty"`
	CreatedAt    int64  `json:"created_at,omitempty"`
}

// Validate satisfies storage.ValidatingSpec.
func (r *PlayerRecord) Validate() error {
	el := errors.NewErrorList()

	if r.Username == "" {
		el.Add(fmt.Errorf("username is required"))
	}

	return el.Err()
}
