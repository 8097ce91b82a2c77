package adapthttp

import (
	"net/http"

	"ahaarwise/internal/app"

	"github.com/go-chi/chi/v5"
)

const (
	defaultPatientLimit = 50
	maxPatientLimit     = 200
)

func (s *Server) handleListPatients(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	limit := intQuery(r, "limit", defaultPatientLimit)
	if limit > maxPatientLimit {
		limit = maxPatientLimit
	}

	items, err := s.patients.List(r.Context(), user.UserID, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var in app.PatientInput
	if err := parseJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := s.patients.Create(r.Context(), userFromContext(r.Context()).UserID, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"patient": p})
}

func (s *Server) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	p, err := s.patients.Get(r.Context(), userFromContext(r.Context()).UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patient": p})
}

func (s *Server) handleUpdatePatient(w http.ResponseWriter, r *http.Request) {
	var in app.PatientInput
	if err := parseJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := s.patients.Update(r.Context(), userFromContext(r.Context()).UserID, chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patient": p})
}

func (s *Server) handleDeletePatient(w http.ResponseWriter, r *http.Request) {
	if err := s.patients.Delete(r.Context(), userFromContext(r.Context()).UserID, chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": true})
}

func (s *Server) handlePatientNutrition(w http.ResponseWriter, r *http.Request) {
	profile, err := s.nutrition.Profile(r.Context(), userFromContext(r.Context()).UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nutrition": profile})
}
