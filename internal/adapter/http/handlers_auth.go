// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"

	"ahaarwise/internal/app"
	"ahaarwise/internal/domain"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
)

const stateCookieName = "oauth_state"

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Remember bool   `json:"remember"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	client := s.client(w, r)
	user, err := s.auth.Login(r.Context(), client, req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if err := s.auth.RememberUsername(r.Context(), client, req.Username, req.Remember); err != nil {
		s.log.Warn("storing remembered username failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	client := s.client(w, r)
	resp := map[string]any{"authenticated": false}

	if user := s.auth.CurrentUser(r.Context(), client); user != nil {
		resp["authenticated"] = true
		resp["user"] = user
	}

	status, err := s.auth.LockoutStatus(r.Context(), client)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp["lockout"] = status

	if name := s.auth.RememberedUsername(r.Context(), client); name != "" {
		resp["rememberedUsername"] = name
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(r.Context(), s.client(w, r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.ProfileUpdate
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := s.auth.UpdateProfile(r.Context(), s.client(w, r), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleSetupUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		FullName string `json:"fullName"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, err := s.creds.CreateInitialUser(r.Context(), req.Username, req.Password, req.FullName)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.log.Info("initial admin created", zap.String("username", u.Username))
	writeJSON(w, http.StatusCreated, map[string]any{"user": domain.IdentityFromRecord(u)})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sso_enabled":      s.cfg.OIDC.Enabled,
		"max_attempts":     app.MaxLoginAttempts,
		"lockout_seconds":  int(app.LockoutDuration.Seconds()),
		"min_password_len": app.MinPasswordLen,
	})
}

func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.OIDC.Enabled {
		http.Error(w, "sso disabled", http.StatusNotFound)
		return
	}
	state := generateState()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode, // Lax required for cross-site redirect returns
		MaxAge:   300,
	})
	http.Redirect(w, r, s.cfg.OIDC.OAuth2Config.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.OIDC.Enabled {
		http.Error(w, "sso disabled", http.StatusNotFound)
		return
	}

	state, err := r.Cookie(stateCookieName)
	if err != nil || state.Value == "" || r.URL.Query().Get("state") != state.Value {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, MaxAge: -1, Path: "/"})

	token, err := s.cfg.OIDC.OAuth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.log.Warn("sso code exchange failed", zap.Error(err))
		http.Error(w, "failed to exchange token", http.StatusBadGateway)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token", http.StatusBadGateway)
		return
	}

	verifier := s.cfg.OIDC.Provider.Verifier(&oidc.Config{ClientID: s.cfg.OIDC.OAuth2Config.ClientID})
	idToken, err := verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		s.log.Warn("sso id token rejected", zap.Error(err))
		http.Error(w, "failed to verify token", http.StatusUnauthorized)
		return
	}

	var claims ssoClaims
	if err := idToken.Claims(&claims); err != nil {
		http.Error(w, "failed to parse claims", http.StatusBadGateway)
		return
	}

	username, err := ssoUsername(claims)
	if err != nil {
		s.log.Warn("sso identity rejected", zap.String("sub", claims.Sub), zap.Error(err))
		writeError(w, http.StatusForbidden, err)
		return
	}

	user, err := s.creds.EnsureUser(r.Context(), username, claims.Name, claims.Email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if _, err := s.auth.StartSession(r.Context(), s.client(w, r), user); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

type ssoClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
	Sub           string `json:"sub"`
}

// ssoUsername picks the local username for an ID token: the email when the
// provider has not marked it unverified, else the subject.
func ssoUsername(c ssoClaims) (string, error) {
	if c.Email != "" {
		if c.EmailVerified != nil && !*c.EmailVerified {
			return "", errors.New("email not verified")
		}
		return c.Email, nil
	}
	if c.Sub == "" {
		return "", errors.New("id token has no subject")
	}
	return c.Sub, nil
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
