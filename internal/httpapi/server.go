// Package httpapi is the thin CRUD surface next to the realtime core:
// status, leaderboard, registration, and login. It holds no world state and
// no invariants of its own.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-log"
	"golang.org/x/crypto/bcrypt"

	"github.com/dragonslegacy/worldserver/internal/persist"
)

const leaderboardSize = 10

// Presence reports how many connections are online. Satisfied by
// session.Registry.
type Presence interface {
	Count() int
}

// Worlds reports how many worlds exist. Satisfied by world.Directory.
type Worlds interface {
	WorldCount() int
}

// Server is a go-service worker serving the REST endpoints.
type Server struct {
	port     uint16
	gateway  *persist.Gateway
	presence Presence
	worlds   Worlds

	started time.Time
}

func NewServer(port uint16, gateway *persist.Gateway, presence Presence, worlds Worlds) *Server {
	return &Server{
		port:     port,
		gateway:  gateway,
		presence: presence,
		worlds:   worlds,
	}
}

func (s *Server) Start(ctx context.Context) error {
	logger := log.GetLogger(ctx)
	s.started = time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	svr := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = svr.Shutdown(shutdownCtx)
		case <-done:
		}
	}()

	logger.Infof("http api on port %d", s.port)

	err := svr.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http api on port %d: %w", s.port, err)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "online",
		"players": s.presence.Count(),
		"worlds":  s.worlds.WorldCount(),
		"uptime":  time.Since(s.started).Seconds(),
	})
}

// leaderboardEntry is derived from saved progress payloads. Progress is
// opaque to the server, so the level and gold extraction is best-effort;
// records without a readable summary rank last.
type leaderboardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Level    int    `json:"level"`
	Gold     int    `json:"gold"`
}

type progressSummary struct {
	Player struct {
		Level int `json:"level"`
		Gold  int `json:"gold"`
	} `json:"player"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	var entries []leaderboardEntry
	for _, rec := range s.gateway.All() {
		entry := leaderboardEntry{Username: rec.Username}
		if len(rec.Progress) > 0 {
			var summary progressSummary
			if err := json.Unmarshal(rec.Progress, &summary); err == nil {
				entry.Level = summary.Player.Level
				entry.Gold = summary.Player.Gold
			}
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Level != entries[j].Level {
			return entries[i].Level > entries[j].Level
		}
		if entries[i].Gold != entries[j].Gold {
			return entries[i].Gold > entries[j].Gold
		}
		return entries[i].Username < entries[j].Username
	})

	if len(entries) > leaderboardSize {
		entries = entries[:leaderboardSize]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	writeJSON(w, http.StatusOK, map[string]any{"topPlayers": entries})
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "username and password are required"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "hashing password"})
		return
	}

	err = s.gateway.Register(req.Username, req.Email, string(hash))
	if errors.Is(err, persist.ErrExists) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "username already taken"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	rec, err := s.gateway.Load(persist.PlayerId(req.Username))
	if err != nil || bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(req.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   uuid.New().String(),
		"user": map[string]any{
			"username": rec.Username,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
