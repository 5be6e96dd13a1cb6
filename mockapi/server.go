package mockapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stonixai/dashcore/auth"
	"github.com/stonixai/dashcore/middleware"
	"github.com/stonixai/dashcore/session"
)

// Config shapes the simulated service.
type Config struct {
	Seed uint64
	// MinLatency and MaxLatency bound the artificial delay of data routes.
	MinLatency time.Duration
	MaxLatency time.Duration
	// FailureRate is the probability in [0, 1] that a data route answers 503.
	FailureRate float64
	Services    []ServiceDef
	Now         func() time.Time
}

// Server is the mock monitoring service.
type Server struct {
	cfg    Config
	gen    *Generator
	dir    *auth.Directory
	signer *auth.Signer
	guard  middleware.Verifier

	mu    sync.Mutex
	acked map[string]time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithLogin enables POST /auth/login backed by dir, answering with
// assertions minted by signer.
func WithLogin(dir *auth.Directory, signer *auth.Signer) Option {
	return func(s *Server) {
		s.dir = dir
		s.signer = signer
	}
}

// WithGuard requires a bearer assertion carrying AckPermission on the
// acknowledge route.
func WithGuard(v middleware.Verifier) Option {
	return func(s *Server) {
		s.guard = v
	}
}

// AckPermission is required to acknowledge alerts on a guarded server.
const AckPermission = "acknowledge_alerts"

func New(cfg Config, opts ...Option) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Server{
		cfg:   cfg,
		gen:   NewGenerator(cfg.Seed, cfg.Services, cfg.Now),
		acked: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(s.simulate)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/services", s.handleServices)
		r.Get("/alerts", s.handleAlerts)
		r.Get("/performance", s.handlePerformance)
		if s.guard != nil {
			r.With(middleware.RequirePermission(s.guard, AckPermission)).
				Post("/alerts/{id}/acknowledge", s.handleAcknowledge)
		} else {
			r.Post("/alerts/{id}/acknowledge", s.handleAcknowledge)
		}
	})

	if s.dir != nil && s.signer != nil {
		r.Post(auth.LoginPath, s.handleLogin)
	}
	return r
}

// simulate injects latency and random failures.
func (s *Server) simulate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d := s.gen.between(s.cfg.MinLatency, s.cfg.MaxLatency); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-t.C:
			case <-r.Context().Done():
				t.Stop()
				return
			}
		}
		if s.gen.chance(s.cfg.FailureRate) {
			writeError(w, http.StatusServiceUnavailable, "simulated outage")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.gen.Metrics())
}

func (s *Server) handleServices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.gen.Services())
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	alerts := s.gen.Alerts()
	s.mu.Lock()
	for i := range alerts {
		_, alerts[i].Acknowledged = s.acked[alerts[i].ID]
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handlePerformance(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.gen.Performance())
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing alert id")
		return
	}
	at := s.cfg.Now().UTC()
	s.mu.Lock()
	s.acked[id] = at
	s.mu.Unlock()

	ack := Acknowledgement{ID: id, Acknowledged: true, AcknowledgedAt: at}
	if u, ok := middleware.UserFromContext(r.Context()); ok {
		ack.AcknowledgedBy = u.Username
	}
	writeJSON(w, http.StatusOK, ack)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid login body")
		return
	}

	creds, err := s.dir.VerifyCredentials(r.Context(), req.Username, req.Password)
	if errors.Is(err, session.ErrRejected) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		log.Printf("mockapi: login check failed: %v", err)
		writeError(w, http.StatusInternalServerError, "login unavailable")
		return
	}

	assertion, err := s.signer.Sign(creds.User)
	if err != nil {
		log.Printf("mockapi: sign assertion: %v", err)
		writeError(w, http.StatusInternalServerError, "login unavailable")
		return
	}
	// the assertion doubles as the bearer access token for guarded routes
	writeJSON(w, http.StatusOK, auth.LoginResponse{
		Assertion:    assertion,
		AccessToken:  assertion,
		RefreshToken: creds.RefreshToken,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
