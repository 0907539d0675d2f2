package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"classlog/auth-bridge/internal/apperr"
	"classlog/auth-bridge/internal/auth"
	"classlog/auth-bridge/internal/config"
	"classlog/auth-bridge/internal/cookie"
	"classlog/auth-bridge/internal/cors"
	"classlog/auth-bridge/internal/ledger"
	"classlog/auth-bridge/internal/metrics"
	"classlog/auth-bridge/internal/model"
)

// ProfileStore is the dashboard's profile lookup. Implementations return
// repository.ErrNotFound when the user has no profile.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (model.Profile, error)
}

type Server struct {
	cfg      config.Config
	codec    *auth.Codec
	cookies  cookie.Transport
	cors     cors.Policy
	ledger   ledger.Ledger
	profiles ProfileStore
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewServer(cfg config.Config, tokens ledger.Ledger, profiles ProfileStore, m *metrics.Metrics, log *zap.Logger) (*Server, error) {
	if tokens == nil || profiles == nil {
		return nil, errors.New("ledger and profile store are required")
	}
	codec, err := auth.NewCodec(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.New(false)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		codec:    codec,
		cookies:  cookie.New(cfg.CookieName, cfg.CookieDomain, cfg.SessionTTL, cfg.CookieSecure),
		cors:     cfg.CORSPolicy(),
		ledger:   tokens,
		profiles: profiles,
		metrics:  m,
		log:      log,
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	// Mux-level so that OPTIONS is answered before routing for every path.
	r.Use(s.cors.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Post("/auth/session", s.handleCreateSession)
	r.Delete("/auth/session", s.handleDeleteSession)

	r.Get("/extension/verify", s.handleVerify)
	r.Post("/extension/verify", s.handleVerify)

	r.Post("/tokens/revoke", s.handleRevoke)
	r.Get("/tokens/{userId}", s.handleListTokens)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("origin", r.Header.Get("Origin")),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// authorizeUser allows an action on userID when no service token is
// configured, when the caller presents the service token, or when the
// caller's own session belongs to userID.
func (s *Server) authorizeUser(r *http.Request, userID string) bool {
	if s.cfg.ServiceAuthToken == "" {
		return true
	}
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.ServiceAuthToken)) == 1 {
			return true
		}
	}
	claims, state := s.verifySession(r)
	return state == stateAuthenticated && claims.UserID == userID
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeAppError answers with the status of err's kind; errors without a kind
// are 500.
func writeAppError(w http.ResponseWriter, err error, code string) {
	status := http.StatusInternalServerError
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus()
	}
	writeError(w, status, code)
}
