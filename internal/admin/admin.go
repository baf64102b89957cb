// internal/admin/admin.go
//
// HTTP diagnostics surface served beside the game port.
// Responsibilities:
//   - Router + middleware (request IDs, panic recovery, timeouts, JSON).
//   - Public endpoints: "/", "/healthz", "/status", "/leaderboard".
//   - "/ws": upgrades to WebSocket and feeds the connection through the
//     same registry path as a TCP accept, so browser clients speak the
//     identical wire protocol.

package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/saltwater-games/battleship/internal/lobby"
	"github.com/saltwater-games/battleship/internal/server"
	"github.com/saltwater-games/battleship/internal/session"
	"github.com/saltwater-games/battleship/internal/store"
)

// Server bundles the router with the game-side collaborators it reports on.
type Server struct {
	r        *chi.Mux
	registry *server.Registry
	lobby    *lobby.Lobby
	store    store.Store
	upgrader websocket.Upgrader
}

// New constructs the admin server and registers all routes. st may be nil
// when persistence is disabled; /leaderboard then serves an empty list.
func New(reg *server.Registry, lb *lobby.Lobby, st store.Store) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		registry: reg,
		lobby:    lb,
		store:    st,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// diagnostics surface, same-origin policy left to the deployment
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)

	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"battleship","endpoints":["/healthz","/status","/leaderboard","/ws"]}`))
	})
	s.r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/status", s.handleStatus)
	s.r.Get("/leaderboard", s.handleLeaderboard)
	s.r.Get("/ws", s.handleWS)

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// statusRes is the /status payload.
type statusRes struct {
	Connections int         `json:"connections"`
	Lobby       lobby.Stats `json:"lobby"`
}

// handleStatus reports live connection and lobby occupancy.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	res := statusRes{Connections: len(s.registry.Clients())}
	if s.lobby != nil {
		res.Lobby = s.lobby.Snapshot()
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleLeaderboard serves the aggregate win/loss table.
// Query params: limit (default 20).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		_, _ = w.Write([]byte(`[]`))
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	rows, err := s.store.Leaderboard(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard query")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(rows)
}

// handleWS upgrades the request and hands the stream to the registry.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	stream := session.NewWSStream(conn)
	if _, err := s.registry.AcceptStream(stream, r.RemoteAddr); err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket client rejected")
		_ = stream.Close()
	}
}
