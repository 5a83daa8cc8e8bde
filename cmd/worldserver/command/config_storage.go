package command

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"github.com/dragonslegacy/worldserver/internal/battle"
	"github.com/dragonslegacy/worldserver/internal/persist"
	"github.com/dragonslegacy/worldserver/internal/storage"
	"github.com/dragonslegacy/worldserver/internal/world"
)

type StorageConfig struct {
	Worlds  AssetConfig[*world.World]          `json:"worlds"`
	Enemies AssetConfig[*battle.Enemy]         `json:"enemies"`
	Players AssetConfig[*persist.PlayerRecord] `json:"players"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()
	el.Add(c.Worlds.Validate("worlds"))
	el.Add(c.Enemies.Validate("enemies"))
	el.Add(c.Players.Validate("players"))
	return el.Err()
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path)
}
