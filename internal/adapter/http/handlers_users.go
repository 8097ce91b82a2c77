package adapthttp

import (
	"net/http"

	"ahaarwise/internal/domain"

	"go.uber.org/zap"
)

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, err := s.creds.CreateUser(r.Context(), req.Username, req.Password, role, req.FullName, req.Email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.log.Info("user created",
		zap.String("username", u.Username),
		zap.String("role", string(u.Role)),
		zap.String("by", userFromContext(r.Context()).Username))
	writeJSON(w, http.StatusCreated, map[string]any{"user": domain.IdentityFromRecord(u)})
}
