package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/dmitrijs2005/gophsession/internal/server/models"
	"github.com/dmitrijs2005/gophsession/internal/server/sessions"
)

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /.well-known/jwks.json", s.handleJWKS)

	s.mux.HandleFunc("POST /auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	s.mux.HandleFunc("POST /auth/logout", s.handleLogout)

	s.mux.Handle("GET /auth/me", s.authenticate(http.HandlerFunc(s.handleMe)))
}

type userResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Role      models.Role `json:"role"`
	Tenant    string      `json:"tenant"`
}

func newUserResponse(id models.Identity) userResponse {
	var tenant string
	if id.TenantID != nil {
		tenant = *id.TenantID
	}
	return userResponse{
		ID:        id.ID,
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Role:      id.Role,
		Tenant:    tenant,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	set, err := s.keys.PublicJWKS()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	res, err := s.sessions.Register(r.Context(), sessions.RegisterInput{
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.cookies.Deliver(w, res.Tokens)
	writeJSON(w, http.StatusCreated, map[string]any{"user": newUserResponse(res.Identity)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	res, err := s.sessions.Login(r.Context(), sessions.LoginInput{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.cookies.Deliver(w, res.Tokens)
	writeJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(res.Identity)})
}

// handleRefresh rotates the session named by the refresh cookie. The caller
// identity is the subject of that verified token.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(common.RefreshTokenCookieName)
	if err != nil || c.Value == "" {
		s.writeServiceError(w, r, common.ErrInvalidToken)
		return
	}

	claims, recordID, err := s.tokens.ParseRefreshToken(c.Value)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	res, err := s.sessions.Refresh(r.Context(), claims.Subject, recordID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.cookies.Deliver(w, res.Tokens)
	writeJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(res.Identity)})
}

// handleLogout always clears the cookies. A missing or unverifiable refresh
// cookie leaves nothing to revoke.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil && c.Value != "" {
		if _, recordID, err := s.tokens.ParseRefreshToken(c.Value); err == nil {
			if err := s.sessions.Logout(r.Context(), recordID); err != nil {
				s.cookies.Clear(w)
				s.writeServiceError(w, r, err)
				return
			}
		}
	}

	s.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authorization token required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"claims": claims})
}
