package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-service"

	"github.com/dragonslegacy/worldserver/internal/battle"
	"github.com/dragonslegacy/worldserver/internal/driver"
	"github.com/dragonslegacy/worldserver/internal/httpapi"
	"github.com/dragonslegacy/worldserver/internal/listener"
	"github.com/dragonslegacy/worldserver/internal/messaging"
	"github.com/dragonslegacy/worldserver/internal/persist"
	"github.com/dragonslegacy/worldserver/internal/player"
	"github.com/dragonslegacy/worldserver/internal/session"
	"github.com/dragonslegacy/worldserver/internal/world"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	// Messaging backbone
	natsServer, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	// Asset stores
	worldStore, err := cfg.Storage.Worlds.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating world store: %w", err)
	}
	enemyStore, err := cfg.Storage.Enemies.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating enemy store: %w", err)
	}
	playerStore, err := cfg.Storage.Players.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating player store: %w", err)
	}

	// Core state
	dir, err := world.NewDirectory(worldStore)
	if err != nil {
		return nil, fmt.Errorf("creating world directory: %w", err)
	}
	registry := session.NewRegistry(dir)
	router := messaging.NewRouter(natsServer, registry, dir)
	battles := battle.NewManager(enemyStore)
	gateway := persist.NewGateway(playerStore)

	pm := player.NewManager(registry, dir, router, battles, gateway,
		cfg.Player.DefaultWorld, cfg.Player.DefaultLocation)
	if cfg.Player.IdleTimeout != "" {
		d, err := time.ParseDuration(cfg.Player.IdleTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing idle_timeout: %w", err)
		}
		pm.SetIdleTimeout(d)
	}

	// Listeners
	cm := listener.NewConnectionManager(pm, natsServer)
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		lst, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = lst
	}

	// Periodic maintenance
	var driverOpts []driver.DriverOpt
	if cfg.TickInterval != "" {
		d, err := time.ParseDuration(cfg.TickInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing tick_interval: %w", err)
		}
		driverOpts = append(driverOpts, driver.WithTickLength(d))
	}
	tickDriver := driver.NewDriver([]driver.Manager{pm, battles}, driverOpts...)

	api := httpapi.NewServer(cfg.Http.Port, gateway, registry, dir)

	return service.WorkerList{
		"nats":      natsServer,
		"driver":    tickDriver,
		"listeners": &listeners,
		"http":      api,
	}, nil
}
