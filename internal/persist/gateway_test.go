package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"

	"github.com/dragonslegacy/worldserver/internal/storage"
)

func TestPlayerId(t *testing.T) {
	tests := map[string]struct {
		username string
		exp      string
	}{
		"plain":              {username: "hero", exp: "hero"},
		"mixed case":         {username: "DragonSlayer", exp: "dragonslayer"},
		"spaces dropped":     {username: "Sir Lancelot", exp: "sirlancelot"},
		"punctuation":        {username: "hero_99!", exp: "hero99"},
		"hyphen kept":        {username: "dark-knight", exp: "dark-knight"},
		"fullwidth digits":   {username: "hero１２", exp: "hero12"},
		"emoji only":         {username: "🐉🔥", exp: ""},
		"compatibility form": {username: "Ｈｅｒｏ", exp: "hero"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "player id", PlayerId(tt.username), tt.exp)
		})
	}
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	store, err := storage.NewFileStore[*PlayerRecord](t.TempDir())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	return NewGateway(store)
}

func TestGatewaySaveLoad(t *testing.T) {
	g := newTestGateway(t)
	g.now = func() time.Time { return time.UnixMilli(1700000000000) }

	progress := json.RawMessage(`{"player":{"level":3,"gold":120},"inventory":["herb","torch"]}`)
	if err := g.Save("hero", "Hero", progress); err != nil {
		t.Fatalf("saving: %v", err)
	}

	rec, err := g.Load("hero")
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	testutil.AssertEqual(t, "username", rec.Username, "Hero")
	testutil.AssertEqual(t, "last save", rec.LastSave, int64(1700000000000))

	// The progress payload is opaque: it comes back byte-identical.
	testutil.AssertEqual(t, "progress", string(rec.Progress), string(progress))
}

func TestGatewaySaveOverwrites(t *testing.T) {
	g := newTestGateway(t)

	if err := g.Save("hero", "Hero", json.RawMessage(`{"player":{"level":1}}`)); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := g.Save("hero", "Hero", json.RawMessage(`{"player":{"level":2}}`)); err != nil {
		t.Fatalf("second save: %v", err)
	}

	rec, err := g.Load("hero")
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	testutil.AssertEqual(t, "progress", string(rec.Progress), `{"player":{"level":2}}`)
}

func TestGatewayLoadReturnsStableSnapshot(t *testing.T) {
	g := newTestGateway(t)

	if err := g.Save("hero", "Hero", json.RawMessage(`{"player":{"level":1}}`)); err != nil {
		t.Fatalf("first save: %v", err)
	}
	rec, err := g.Load("hero")
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	// A save after the load replaces the stored record; the loaded one keeps
	// reading its own snapshot.
	if err := g.Save("hero", "Hero", json.RawMessage(`{"player":{"level":2}}`)); err != nil {
		t.Fatalf("second save: %v", err)
	}
	testutil.AssertEqual(t, "snapshot progress", string(rec.Progress), `{"player":{"level":1}}`)
}

func TestGatewayConcurrentSaveAndRead(t *testing.T) {
	g := newTestGateway(t)
	if err := g.Save("hero", "Hero", json.RawMessage(`{"player":{"level":0}}`)); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			progress := json.RawMessage(fmt.Sprintf(`{"player":{"level":%d}}`, i))
			if err := g.Save("hero", "Hero", progress); err != nil {
				t.Errorf("saving: %v", err)
				return
			}
		}
	}()

	// Readers unmarshal the progress of whatever record they loaded, the way
	// the leaderboard does, while saves land concurrently.
	for i := 0; i < 500; i++ {
		rec, err := g.Load("hero")
		if err != nil {
			t.Fatalf("loading: %v", err)
		}
		var summary struct {
			Player struct {
				Level int `json:"level"`
			} `json:"player"`
		}
		if err := json.Unmarshal(rec.Progress, &summary); err != nil {
			t.Fatalf("unmarshaling progress %q: %v", rec.Progress, err)
		}
		if summary.Player.Level < 0 {
			t.Fatalf("impossible level %d", summary.Player.Level)
		}
	}
	close(done)
	wg.Wait()
}

func TestGatewayLoadMissing(t *testing.T) {
	g := newTestGateway(t)
	if _, err := g.Load("nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGatewayRegister(t *testing.T) {
	g := newTestGateway(t)

	if err := g.Register("Hero", "hero@example.com", "hash"); err != nil {
		t.Fatalf("registering: %v", err)
	}

	rec, err := g.Load("hero")
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	testutil.AssertEqual(t, "username", rec.Username, "Hero")
	testutil.AssertEqual(t, "email", rec.Email, "hero@example.com")
	testutil.AssertEqual(t, "hash", rec.PasswordHash, "hash")

	// Names that normalize to the same id collide.
	if err := g.Register("HERO", "other@example.com", "hash2"); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	// Names that normalize to nothing are rejected.
	if err := g.Register("🐉", "dragon@example.com", "hash3"); err == nil {
		t.Fatal("expected error for empty id, got nil")
	}
}
