package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"seabattle/internal/app"
	"seabattle/internal/codec"
	"seabattle/internal/console"
	"seabattle/internal/game"
)

const writeWait = 5 * time.Second

type Server struct {
	svc      *app.Service
	log      zerolog.Logger
	upgrader websocket.Upgrader
	proofs   bool

	// Milliseconds since epoch when this server booted
	startAt int64
}

func New(svc *app.Service, log zerolog.Logger, proofs bool) *Server {
	return &Server{
		svc: svc,
		log: log,
		upgrader: websocket.Upgrader{
			// CORS is open for the JSON API as well
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		proofs:  proofs,
		startAt: time.Now().UnixMilli(),
	}
}

func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/status", s.handleServerStatus)

	mux.HandleFunc("POST /v1/games", s.handleCreate)
	mux.HandleFunc("GET /v1/games/{id}", s.handleStatus)
	mux.HandleFunc("DELETE /v1/games/{id}", s.handleDelete)
	mux.HandleFunc("POST /v1/games/{id}/ships", s.handlePlace)
	mux.HandleFunc("POST /v1/games/{id}/shots", s.handleShoot)
	mux.HandleFunc("GET /v1/games/{id}/shots/{n}/proof", s.handleProof)
	mux.HandleFunc("GET /v1/games/{id}/events", s.handleEvents)
}

// Handler is the full middleware stack: CORS, request logging, routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Routes(mux)
	return WithCORS(requestLogger(s.log, mux))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service and game errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, app.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, app.ErrNotYourTurn),
		errors.Is(err, app.ErrGameOver),
		errors.Is(err, app.ErrPlacementPending),
		errors.Is(err, app.ErrPlacementDone),
		errors.Is(err, game.ErrAlreadyResolved),
		errors.Is(err, game.ErrOverlapOrBounds):
		code = http.StatusConflict
	case errors.Is(err, app.ErrBadRequest),
		errors.Is(err, console.ErrMalformedInput),
		errors.Is(err, game.ErrOutOfBounds):
		code = http.StatusBadRequest
	}
	writeJSON(w, code, codec.Error{Error: err.Error()})
}

// seatToken reads the seat secret from "Authorization: Bearer <token>".
func seatToken(r *http.Request) string {
	t, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return strings.TrimSpace(t)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, codec.Error{Error: "bad json: " + err.Error()})
		return false
	}
	return true
}

// === Games ===

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req codec.CreateGame
	if !decode(w, r, &req) {
		return
	}
	st, err := s.svc.Create(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Status(r.PathValue("id"), seatToken(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.PathValue("id"), seatToken(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req codec.PlaceShip
	if !decode(w, r, &req) {
		return
	}
	st, err := s.svc.PlaceShip(r.PathValue("id"), seatToken(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// === Shots / Proofs ===

func (s *Server) handleShoot(w http.ResponseWriter, r *http.Request) {
	var req codec.Shot
	if !decode(w, r, &req) {
		return
	}
	events, err := s.svc.Shoot(r.Context(), r.PathValue("id"), seatToken(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, codec.Error{Error: "shot number must be an integer"})
		return
	}
	payload, err := s.svc.Proof(r.PathValue("id"), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// === Event stream ===

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	events, cancel, err := s.svc.Subscribe(id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client
		s.log.Debug().Err(err).Str("game", id).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// the client sends nothing; reading only notices when it goes away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game closed"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				s.log.Debug().Err(err).Str("game", id).Msg("event write failed")
				return
			}
		case <-gone:
			return
		}
	}
}

// === Server status ===

func (s *Server) handleServerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"startedAt": s.startAt,
		"games":     s.svc.Count(),
		"proofs":    s.proofs,
	})
}

// === CORS ===

func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// In dev we allow any origin. For production, set this to the specific origin(s).
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// === Request logging ===

// statusWriter captures HTTP status and bytes written.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Hijack lets the websocket upgrade through the logger.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer cannot be hijacked")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func requestLogger(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Int("bytes", sw.bytes).
			Dur("dur", time.Since(start).Round(time.Millisecond)).
			Msg("http")
	})
}
