package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-notify/internal/auth"
	"github.com/example/ride-notify/internal/dispatch"
	"github.com/example/ride-notify/internal/events"
	"github.com/example/ride-notify/internal/models"
	"github.com/example/ride-notify/internal/observability"
	"github.com/example/ride-notify/internal/share"
)

const maxBodyBytes = 1 << 20

type EventHandler interface {
	Handle(ctx context.Context, ev events.Event) error
}

type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

type DriverLocations interface {
	Upsert(ctx context.Context, d models.DriverLocation) error
}

// Deps are the collaborators the HTTP surface is wired to. Publisher and
// WSReg are optional.
type Deps struct {
	Events    EventHandler
	Publisher EventPublisher
	Shares    *share.Issuer
	Verifier  auth.Verifier
	Drivers   DriverLocations
	WSReg     *dispatch.WSRegistry
	Ready     func(ctx context.Context) error
}

type Server struct {
	deps   Deps
	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{deps: deps, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/rides/{ride_id}/share", s.handleCreateShareLink).Methods("POST")
	s.mux.HandleFunc("/share/{token}", s.handleResolveShareLink).Methods("GET")
	s.mux.HandleFunc("/internal/driver/locations", s.handleDriverLocation).Methods("POST")
	s.mux.HandleFunc("/internal/events", s.handleEvent).Methods("POST")
	s.mux.HandleFunc("/ws/{user_id}", s.handleWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.HandleFunc("/ready", s.handleReady).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleCreateShareLink(w http.ResponseWriter, r *http.Request) {
	rideID := mux.Vars(r)["ride_id"]
	caller, err := auth.FromRequest(r, s.deps.Verifier)
	if err != nil && !errors.Is(err, auth.ErrMissingToken) {
		s.logger.WarnContext(r.Context(), "rejected caller token", "error", err)
	}
	// an unverified caller is anonymous; the issuer refuses it
	token, err := s.deps.Shares.Issue(r.Context(), rideID, caller)
	switch {
	case errors.Is(err, share.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
		return
	case errors.Is(err, share.ErrInvalidRide):
		writeError(w, http.StatusBadRequest, "invalid-argument", err)
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "issue share link", "ride_id", rideID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", errors.New("could not create share link"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": token, "url": s.deps.Shares.URL(token)})
}

func (s *Server) handleResolveShareLink(w http.ResponseWriter, r *http.Request) {
	link, err := s.deps.Shares.Resolve(r.Context(), mux.Vars(r)["token"])
	if errors.Is(err, share.ErrLinkNotFound) {
		writeError(w, http.StatusNotFound, "not-found", err)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "resolve share link", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", errors.New("could not load share link"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rideId":    link.RideID,
		"options":   link.Options,
		"expiresAt": link.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleDriverLocation(w http.ResponseWriter, r *http.Request) {
	var d models.DriverLocation
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", err)
		return
	}
	if d.DriverID == "" {
		writeError(w, http.StatusBadRequest, "invalid-argument", errors.New("driverId is required"))
		return
	}
	if d.Status == "" {
		d.Status = models.DriverOnline
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}
	if err := s.deps.Drivers.Upsert(r.Context(), d); err != nil {
		s.logger.ErrorContext(r.Context(), "upsert driver location", "driver_id", d.DriverID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", errors.New("driver index unavailable"))
		return
	}
	observability.DriverLocationsSet.Inc()
	w.WriteHeader(http.StatusNoContent)
}

// handleEvent is the push-style change-feed trigger. With a publisher the
// event is queued on Kafka, otherwise it is handled inline and a failure
// asks the caller to redeliver.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", err)
		return
	}
	ev, err := events.Decode(b)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", err)
		return
	}
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.Publish(r.Context(), ev); err != nil {
			s.logger.ErrorContext(r.Context(), "publish event", "event_id", ev.ID, "error", err)
			writeError(w, http.StatusServiceUnavailable, "unavailable", errors.New("event queue unavailable"))
			return
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if err := s.deps.Events.Handle(r.Context(), ev); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", errors.New("event not handled, retry"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

var upgrader = websocket.Upgrader{}

// handleWS registers a live push session; a user may only open their own.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.deps.WSReg == nil {
		http.NotFound(w, r)
		return
	}
	userID := mux.Vars(r)["user_id"]
	caller, err := auth.FromRequest(r, s.deps.Verifier)
	if err != nil || caller.UID != userID {
		writeError(w, http.StatusUnauthorized, "unauthenticated", errors.New("login required"))
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.deps.WSReg.Add(userID, conn)
	go func() {
		defer s.deps.WSReg.Remove(userID, conn)
		defer conn.Close()
		for {
			// clients only listen; reading surfaces the close
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, map[string]string{"error": code, "message": err.Error()})
}
