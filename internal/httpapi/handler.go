// Package httpapi exposes the REST API of the loan planning service.
package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SpasiboVadya/loan-planning-system/internal/domain/user"
	"github.com/SpasiboVadya/loan-planning-system/internal/metrics"
	"github.com/SpasiboVadya/loan-planning-system/internal/service/auth"
	"github.com/SpasiboVadya/loan-planning-system/internal/service/health"
	"github.com/SpasiboVadya/loan-planning-system/internal/service/plans"
	"github.com/SpasiboVadya/loan-planning-system/internal/service/users"
	"github.com/SpasiboVadya/loan-planning-system/pkg/logger"
)

const dateLayout = "2006-01-02"

// Services bundles the application services the API depends on.
type Services struct {
	Auth   *auth.Service
	Users  *users.Service
	Plans  *plans.Service
	Health *health.Service
}

type handler struct {
	svc Services
	log *logger.Logger
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(svc Services, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{svc: svc, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.health)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/auth/register", h.register)
	mux.HandleFunc("/auth/login", h.login)
	mux.HandleFunc("/users", h.users)
	mux.HandleFunc("/users/", h.userResources)
	mux.HandleFunc("/plans/", h.planResources)
	return mux
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	st := h.svc.Health.Check(r.Context())
	status := http.StatusOK
	if st.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, st)
}

type credentialsPayload struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        user.User `json:"user"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload credentialsPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, token, err := h.svc.Auth.Register(r.Context(), payload.Login, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrLoginTaken) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{AccessToken: token, TokenType: "bearer", User: u})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload credentialsPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, token, err := h.svc.Auth.Login(r.Context(), payload.Login, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer", User: u})
}

func (h *handler) users(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload credentialsPayload
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		u, err := h.svc.Users.Create(r.Context(), payload.Login, payload.Password)
		if err != nil {
			writeError(w, userErrStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, u)

	case http.MethodGet:
		f, err := userFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		list, err := h.svc.Users.List(r.Context(), f)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) userResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch parts[0] {
	case "with-credits":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		list, err := h.svc.Users.WithCredits(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return

	case "with-open-loans":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		list, err := h.svc.Users.WithOpenLoans(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return

	case "by-login":
		if len(parts) != 2 || parts[1] == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		u, err := h.svc.Users.GetByLogin(r.Context(), parts[1])
		if err != nil {
			writeError(w, userErrStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, u)
		return
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || len(parts) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		u, err := h.svc.Users.Get(r.Context(), id)
		if err != nil {
			writeError(w, userErrStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, u)

	case http.MethodPut:
		var payload credentialsPayload
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		u, err := h.svc.Users.Update(r.Context(), id, payload.Login, payload.Password)
		if err != nil {
			writeError(w, userErrStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, u)

	case http.MethodDelete:
		if err := h.svc.Users.Delete(r.Context(), id); err != nil {
			writeError(w, userErrStatus(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) planResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/plans"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch parts[0] {
	case "user-credits":
		if len(parts) != 2 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		userID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid user id"))
			return
		}
		credits, err := h.svc.Plans.UserCredits(r.Context(), userID)
		if err != nil {
			writeError(w, userErrStatus(err), err)
			return
		}
		if len(credits) == 0 {
			writeError(w, http.StatusNotFound, errors.New("no credits found for user"))
			return
		}
		writeJSON(w, http.StatusOK, credits)

	case "insert":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		inserted, err := h.svc.Plans.InsertPlans(r.Context(), time.Now().UTC())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"inserted": inserted})

	case "performance":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		raw := r.URL.Query().Get("period")
		if raw == "" {
			writeError(w, http.StatusBadRequest, errors.New("period query parameter is required"))
			return
		}
		period, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("period must be formatted as YYYY-MM-DD"))
			return
		}
		perf, err := h.svc.Plans.MonthPerformance(r.Context(), period)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, perf)

	case "year-performance":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		raw := r.URL.Query().Get("year")
		if raw == "" {
			writeError(w, http.StatusBadRequest, errors.New("year query parameter is required"))
			return
		}
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1900 || year > 9999 {
			writeError(w, http.StatusBadRequest, errors.New("year must be a four-digit number"))
			return
		}
		report, err := h.svc.Plans.YearPerformance(r.Context(), year)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, report)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func userFilter(r *http.Request) (user.Filter, error) {
	var f user.Filter
	q := r.URL.Query()

	if raw := q.Get("skip"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return f, errors.New("skip must be an integer")
		}
		f.Skip = v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return f, errors.New("limit must be an integer")
		}
		f.Limit = v
	}
	if raw := q.Get("registration_date_from"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, errors.New("registration_date_from must be formatted as YYYY-MM-DD")
		}
		f.RegisteredFrom = t
	}
	if raw := q.Get("registration_date_to"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return f, errors.New("registration_date_to must be formatted as YYYY-MM-DD")
		}
		f.RegisteredTo = t
	}
	return f, nil
}

// userErrStatus maps service errors onto HTTP status codes.
func userErrStatus(err error) int {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound
	case errors.Is(err, users.ErrLoginTaken), errors.Is(err, auth.ErrLoginTaken):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
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
