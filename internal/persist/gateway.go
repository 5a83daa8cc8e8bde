// Package persist is the gateway to durable player progress. Everything is
// addressed by a normalized player identifier; connection identifiers never
// reach this package.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/dragonslegacy/worldserver/internal/storage"
)

var (
	ErrNotFound = errors.New("player record not found")
	ErrExists   = errors.New("player record already exists")
)

// PlayerId derives the stable storage key for a username: NFKC-normalized,
// lowercased, with anything outside [a-z0-9-] dropped. Distinct display names
// that normalize to the same key are the same player.
func PlayerId(username string) string {
	normalized := strings.ToLower(norm.NFKC.String(username))
	var b strings.Builder
	for _, r := range normalized {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Gateway loads and saves player records through the asset store. Calls may
// block on file I/O; callers must not hold world or registry locks while
// calling in.
type Gateway struct {
	store storage.Storer[*PlayerRecord]
	now   func() time.Time
}

func NewGateway(store storage.Storer[*PlayerRecord]) *Gateway {
	return &Gateway{
		store: store,
		now:   time.Now,
	}
}

// Load returns the record for a player id, or ErrNotFound.
func (g *Gateway) Load(playerId string) (*PlayerRecord, error) {
	rec := g.store.Get(playerId)
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Save writes the progress payload for a player, creating the record if it
// does not exist and refreshing the last-save timestamp. The stored record is
// replaced, never mutated: pointers handed out by earlier Load calls keep
// reading a stable snapshot while a save runs.
func (g *Gateway) Save(playerId, username string, progress json.RawMessage) error {
	rec := &PlayerRecord{Username: username}
	if prev := g.store.Get(playerId); prev != nil {
		clone := *prev
		rec = &clone
	}

	rec.Progress = progress
	rec.LastSave = g.now().UnixMilli()

	if err := g.store.Save(playerId, rec); err != nil {
		return fmt.Errorf("saving player %q: %w", playerId, err)
	}
	return nil
}

// Register creates an account record. Fails with ErrExists if the player id
// is already taken.
func (g *Gateway) Register(username, email, passwordHash string) error {
	playerId := PlayerId(username)
	if playerId == "" {
		return fmt.Errorf("username %q normalizes to an empty id", username)
	}
	if g.store.Get(playerId) != nil {
		return ErrExists
	}

	rec := &PlayerRecord{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    g.now().UnixMilli(),
	}
	if err := g.store.Save(playerId, rec); err != nil {
		return fmt.Errorf("registering player %q: %w", playerId, err)
	}
	return nil
}

// All returns every stored record, for the leaderboard surface.
func (g *Gateway) All() map[string]*PlayerRecord {
	return g.store.GetAll()
}
