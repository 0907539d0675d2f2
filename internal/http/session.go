package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"classlog/auth-bridge/internal/apperr"
	"classlog/auth-bridge/internal/auth"
	"classlog/auth-bridge/internal/ledger"
	"classlog/auth-bridge/internal/model"
	"classlog/auth-bridge/internal/repository"
)

type createSessionRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type userSummary struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

type sessionResponse struct {
	User      userSummary `json:"user"`
	ExpiresAt int64       `json:"expiresAt"`
}

type verifyResponse struct {
	LoggedIn bool         `json:"loggedIn"`
	User     *userSummary `json:"user,omitempty"`
}

type revokeRequest struct {
	UserID string `json:"userId"`
}

type tokenSummary struct {
	ID        string `json:"id"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.UserID == "" || req.Email == "" || strings.TrimSpace(req.Role) == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	profile, err := s.matchProfile(r.Context(), req.UserID, req.Email, role)
	if err != nil {
		if apperr.IsKind(err, apperr.Authentication) {
			writeAppError(w, err, "identity_mismatch")
			return
		}
		s.log.Error("profile lookup failed", zap.String("user_id", req.UserID), zap.Error(err))
		writeAppError(w, err, "server_error")
		return
	}

	name := req.Name
	if name == "" {
		name = profile.FullName
	}
	token, claims, err := s.codec.Sign(auth.Identity{
		UserID: profile.ID,
		Email:  profile.Email,
		Name:   name,
		Role:   profile.Role,
	})
	if err != nil {
		if apperr.IsKind(err, apperr.Validation) {
			writeAppError(w, err, "invalid_request")
			return
		}
		s.log.Error("token signing failed", zap.String("user_id", profile.ID), zap.Error(err))
		writeAppError(w, err, "token_error")
		return
	}

	if err := s.ledger.RecordIssuance(r.Context(), claims.UserID, claims.TokenID()); err != nil {
		s.log.Error("record issuance failed", zap.String("user_id", claims.UserID), zap.Error(err))
		writeAppError(w, err, "server_error")
		return
	}

	s.cookies.SetAuthCookie(w, token)
	s.metrics.TokensIssued.WithLabelValues(string(claims.Role)).Inc()
	s.log.Info("session issued",
		zap.String("user_id", claims.UserID),
		zap.String("token_id", claims.TokenID()),
		zap.String("role", string(claims.Role)),
	)

	writeJSON(w, http.StatusOK, sessionResponse{
		User:      summaryFromClaims(claims),
		ExpiresAt: claims.ExpiresAt.Unix(),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if claims, state := s.verifySession(r); state == stateAuthenticated {
		if _, err := s.ledger.RevokeAll(r.Context(), claims.UserID); err != nil {
			s.log.Warn("logout revoke failed", zap.String("user_id", claims.UserID), zap.Error(err))
		}
	}
	s.cookies.ClearAuthCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	claims, state := s.verifySession(r)
	category := s.cors.Classify(r.Header.Get("Origin"))
	s.metrics.Verifications.WithLabelValues(string(state), string(category)).Inc()

	if state != stateAuthenticated {
		writeJSON(w, http.StatusOK, verifyResponse{LoggedIn: false})
		return
	}
	user := summaryFromClaims(*claims)
	writeJSON(w, http.StatusOK, verifyResponse{LoggedIn: true, User: &user})
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id")
		return
	}
	if !s.authorizeUser(r, req.UserID) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := s.ledger.RevokeAll(r.Context(), req.UserID)
	if err != nil {
		s.log.Error("revoke failed", zap.String("user_id", req.UserID), zap.Error(err))
		writeAppError(w, err, "storage_error")
		return
	}
	s.metrics.Revocations.Inc()
	s.metrics.RevokedTokens.Add(float64(count))
	s.log.Info("tokens revoked", zap.String("user_id", req.UserID), zap.Int64("count", count))

	writeJSON(w, http.StatusOK, map[string]int64{"revokedCount": count})
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing_user_id")
		return
	}
	if !s.authorizeUser(r, userID) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tokens, err := s.ledger.ListTokens(r.Context(), userID)
	if err != nil {
		s.log.Error("list tokens failed", zap.String("user_id", userID), zap.Error(err))
		writeAppError(w, err, "storage_error")
		return
	}
	resp := make([]tokenSummary, 0, len(tokens))
	for _, token := range tokens {
		resp = append(resp, tokenSummary{
			ID:        token.ID,
			Active:    token.Active,
			CreatedAt: token.CreatedAt.Unix(),
			UpdatedAt: token.UpdatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, map[string][]tokenSummary{"tokens": resp})
}

// matchProfile returns the stored profile when it agrees with the claimed
// email (case-insensitive) and role. A missing or disagreeing profile is an
// Authentication error; lookup failures keep their own kind.
func (s *Server) matchProfile(ctx context.Context, userID, email string, role model.Role) (model.Profile, error) {
	const op = "http.matchProfile"
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Profile{}, apperr.New(apperr.Authentication, op, err)
		}
		if _, ok := apperr.KindOf(err); ok {
			return model.Profile{}, err
		}
		return model.Profile{}, apperr.New(apperr.Storage, op, err)
	}
	if !strings.EqualFold(profile.Email, email) || profile.Role != role {
		return model.Profile{}, apperr.New(apperr.Authentication, op, errors.New("profile does not match claimed identity"))
	}
	return profile, nil
}

type sessionState string

const (
	stateAuthenticated sessionState = "authenticated"
	stateNoCookie      sessionState = "no_cookie"
	stateInvalid       sessionState = "invalid"
	stateRevoked       sessionState = "revoked"
	stateStorageError  sessionState = "storage_error"
)

// verifySession runs the bridge check: cookie, signature and expiry, then
// the revocation ledger. Only stateAuthenticated carries claims. A ledger
// failure is reported as its own state and treated as unauthenticated.
func (s *Server) verifySession(r *http.Request) (*auth.Claims, sessionState) {
	raw, ok := s.cookies.GetAuthCookieFromRequest(r)
	if !ok {
		return nil, stateNoCookie
	}
	claims, ok := s.codec.Verify(raw)
	if !ok {
		return nil, stateInvalid
	}
	status, err := s.ledger.Status(r.Context(), claims.UserID, claims.TokenID())
	if err != nil {
		s.log.Warn("revocation check failed, denying session",
			zap.String("user_id", claims.UserID),
			zap.String("token_id", claims.TokenID()),
			zap.Error(err),
		)
		return nil, stateStorageError
	}
	if status == ledger.StatusRevoked {
		return nil, stateRevoked
	}
	return claims, stateAuthenticated
}

func summaryFromClaims(claims auth.Claims) userSummary {
	return userSummary{
		ID:    claims.UserID,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  claims.Role,
	}
}
