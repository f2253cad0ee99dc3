// Package httpapi exposes the application services over a small REST
// surface. Transport concerns stop here; all business rules live in the
// services.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	app "github.com/b8oost/boost-service/internal/app"
	"github.com/b8oost/boost-service/internal/app/domain"
	"github.com/b8oost/boost-service/internal/app/domain/challenge"
	"github.com/b8oost/boost-service/internal/app/domain/user"
	"github.com/b8oost/boost-service/internal/app/metrics"
	"github.com/b8oost/boost-service/pkg/logger"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/users", h.users)
	mux.HandleFunc("/users/", h.userResources)
	mux.HandleFunc("/challenge-requests", h.challengeRequests)
	mux.HandleFunc("/challenge-requests/", h.challengeRequestResources)
	mux.HandleFunc("/achievements", h.achievements)
	mux.HandleFunc("/leaderboard", h.leaderboard)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (h *handler) users(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			TelegramID int64  `json:"telegram_id"`
			Username   string `json:"username"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		u, err := h.app.Users.Ensure(r.Context(), payload.TelegramID, payload.Username)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)

	case http.MethodGet:
		list, err := h.app.Users.List(r.Context())
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) userResources(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users"), "/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		u, err := h.app.Users.Get(r.Context(), id)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)

	case http.MethodPatch:
		var payload struct {
			Role string `json:"role"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		u, err := h.app.Users.SetRole(r.Context(), id, user.Role(payload.Role))
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) challengeRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			RequesterID  string `json:"requester_id"`
			Title        string `json:"title"`
			Category     string `json:"category"`
			Description  string `json:"description"`
			RewardPoints int    `json:"reward_points"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		req, err := h.app.Challenges.Create(r.Context(), payload.RequesterID, payload.Title, payload.Category, payload.Description, payload.RewardPoints)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, req)

	case http.MethodGet:
		list, err := h.app.Challenges.List(r.Context())
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) challengeRequestResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/challenge-requests"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	requestID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		req, err := h.app.Challenges.Get(r.Context(), requestID)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
		return
	}

	if len(parts) == 2 && parts[1] == "resolve" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			ResolverID string `json:"resolver_id"`
			Decision   string `json:"decision"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		req, err := h.app.Challenges.Resolve(r.Context(), requestID, payload.ResolverID, challenge.Decision(payload.Decision))
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

func (h *handler) achievements(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			UserID string `json:"user_id"`
			Name   string `json:"name"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rec, err := h.app.Achievements.Award(r.Context(), payload.UserID, payload.Name)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)

	case http.MethodGet:
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if userID == "" {
			writeError(w, http.StatusBadRequest, errors.New("user_id is required"))
			return
		}
		list, err := h.app.Achievements.List(r.Context(), userID)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	entries, err := h.app.Leaderboard.Compute(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Store
// failures surface as a generic server error with no detail leaked.
func (h *handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err)
	default:
		h.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
