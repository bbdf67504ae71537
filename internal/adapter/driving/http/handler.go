// Package httphandler is the HTTP driving adapter serving the REST API.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/application"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	userSvc     *application.UserService
	teamSvc     *application.TeamService
	syncSvc     *application.SyncService
	reportSvc   *application.ReportService
	analysisSvc *application.AnalysisService
	ping        func(context.Context) error // Optional DB liveness probe.
	devMode     bool                        // Exposes internal error detail in responses.
	logger      *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	userSvc *application.UserService,
	teamSvc *application.TeamService,
	syncSvc *application.SyncService,
	reportSvc *application.ReportService,
	analysisSvc *application.AnalysisService,
	ping func(context.Context) error,
	devMode bool,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		userSvc:     userSvc,
		teamSvc:     teamSvc,
		syncSvc:     syncSvc,
		reportSvc:   reportSvc,
		analysisSvc: analysisSvc,
		ping:        ping,
		devMode:     devMode,
		logger:      logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.HandleFunc("POST /api/v1/users", h.RegisterUser)
	mux.HandleFunc("GET /api/v1/users", h.ListUsers)
	mux.HandleFunc("GET /api/v1/users/{username}", h.GetUser)
	mux.HandleFunc("POST /api/v1/users/{username}/sync", h.SyncUser)
	mux.HandleFunc("GET /api/v1/users/{username}/sync-status", h.UserSyncStatus)
	mux.HandleFunc("GET /api/v1/users/{username}/prs", h.UserReport)

	mux.HandleFunc("POST /api/v1/teams", h.CreateTeam)
	mux.HandleFunc("GET /api/v1/teams", h.ListTeams)
	mux.HandleFunc("GET /api/v1/teams/{id}", h.GetTeam)
	mux.HandleFunc("POST /api/v1/teams/{id}/members", h.AddTeamMember)
	mux.HandleFunc("POST /api/v1/teams/{id}/sync", h.SyncTeam)
	mux.HandleFunc("GET /api/v1/teams/{id}/sync-status", h.TeamSyncStatus)
	mux.HandleFunc("GET /api/v1/teams/{id}/report", h.TeamReport)
	mux.HandleFunc("GET /api/v1/teams/{id}/comment-analysis", h.TeamCommentAnalysis)

	mux.HandleFunc("POST /api/v1/prs/{id}/analyze", h.AnalyzePR)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a liveness response.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			h.logger.Error("health check failed", "error", err)

			detail := ""
			if h.devMode {
				detail = err.Error()
			}
			writeFailure(w, http.StatusServiceUnavailable, "database unavailable", detail)
			return
		}
	}

	writeSuccess(w, http.StatusOK, "ok", map[string]string{
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}

// RegisterUser starts tracking a new user.
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		writeFailure(w, http.StatusBadRequest, "username is required", "")
		return
	}

	user, err := h.userSvc.Register(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		h.respondError(w, err, "failed to register user")
		return
	}

	writeSuccess(w, http.StatusCreated, "user registered", toUserResponse(*user))
}

// ListUsers returns all tracked users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userSvc.List(r.Context())
	if err != nil {
		h.respondError(w, err, "failed to list users")
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, toUserResponse(user))
	}

	writeSuccess(w, http.StatusOK, "users", resp)
}

// GetUser returns one tracked user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userSvc.Get(r.Context(), r.PathValue("username"))
	if err != nil {
		h.respondError(w, err, "failed to get user")
		return
	}

	writeSuccess(w, http.StatusOK, "user", toUserResponse(*user))
}

// SyncUser reconciles one user's pull requests and kicks off comment
// ingestion in the background.
func (h *Handler) SyncUser(w http.ResponseWriter, r *http.Request) {
	result, err := h.syncSvc.SyncUser(r.Context(), r.PathValue("username"))
	if err != nil {
		h.respondError(w, err, "failed to sync user")
		return
	}

	writeSuccess(w, http.StatusAccepted, "sync started", toSyncResultResponse(*result))
}

// UserSyncStatus returns the user's tri-state sync status.
func (h *Handler) UserSyncStatus(w http.ResponseWriter, r *http.Request) {
	user, err := h.syncSvc.UserSyncStatus(r.Context(), r.PathValue("username"))
	if err != nil {
		h.respondError(w, err, "failed to get sync status")
		return
	}

	writeSuccess(w, http.StatusOK, "sync status", map[string]any{
		"username":          user.Username,
		"status":            string(user.SyncStatus()),
		"last_pr_sync":      formatTimePtr(user.LastPRSync),
		"last_comment_sync": formatTimePtr(user.LastCommentSync),
	})
}

// UserReport returns the user's pull requests over a timeline window.
func (h *Handler) UserReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportSvc.UserReport(r.Context(), r.PathValue("username"), r.URL.Query().Get("timeline"))
	if err != nil {
		h.respondError(w, err, "failed to build user report")
		return
	}

	writeSuccess(w, http.StatusOK, "user report", toUserReportResponse(*report))
}

// CreateTeam makes a new team.
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeFailure(w, http.StatusBadRequest, "name is required", "")
		return
	}

	team, err := h.teamSvc.Create(r.Context(), strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		h.respondError(w, err, "failed to create team")
		return
	}

	writeSuccess(w, http.StatusCreated, "team created", toTeamResponse(*team))
}

// ListTeams returns all teams.
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teamSvc.List(r.Context())
	if err != nil {
		h.respondError(w, err, "failed to list teams")
		return
	}

	resp := make([]TeamResponse, 0, len(teams))
	for _, team := range teams {
		resp = append(resp, toTeamResponse(team))
	}

	writeSuccess(w, http.StatusOK, "teams", resp)
}

// GetTeam returns one team with its members.
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	detail, err := h.teamSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, err, "failed to get team")
		return
	}

	writeSuccess(w, http.StatusOK, "team", toTeamDetailResponse(*detail))
}

// AddTeamMember assigns a tracked user to a team.
func (h *Handler) AddTeamMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username   string `json:"username"`
		AssignedBy string `json:"assigned_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		writeFailure(w, http.StatusBadRequest, "username is required", "")
		return
	}

	member, err := h.teamSvc.AddMember(r.Context(), r.PathValue("id"), strings.TrimSpace(req.Username), req.AssignedBy)
	if err != nil {
		h.respondError(w, err, "failed to add team member")
		return
	}

	writeSuccess(w, http.StatusCreated, "member added", map[string]string{
		"id":      member.ID,
		"team_id": member.TeamID,
		"user_id": member.UserID,
	})
}

// SyncTeam reconciles every member of a team.
func (h *Handler) SyncTeam(w http.ResponseWriter, r *http.Request) {
	result, err := h.syncSvc.SyncTeam(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, err, "failed to sync team")
		return
	}

	writeSuccess(w, http.StatusAccepted, "team sync started", toTeamSyncResultResponse(*result))
}

// TeamSyncStatus returns every member's watermark state.
func (h *Handler) TeamSyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.reportSvc.SyncStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, err, "failed to get team sync status")
		return
	}

	writeSuccess(w, http.StatusOK, "team sync status", toTeamSyncStatusResponse(*status))
}

// TeamReport returns the team's quarterly activity report. The quarter
// defaults to the current one when unspecified.
func (h *Handler) TeamReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	quarter := r.URL.Query().Get("quarter")
	if quarter == "" {
		quarter = "Q" + strconv.Itoa((int(now.Month())-1)/3+1)
	}

	year := now.Year()
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid year", "")
			return
		}
		year = parsed
	}

	report, err := h.reportSvc.TeamReport(r.Context(), r.PathValue("id"), quarter, year)
	if err != nil {
		h.respondError(w, err, "failed to build team report")
		return
	}

	writeSuccess(w, http.StatusOK, "team report", toTeamReportResponse(*report))
}

// TeamCommentAnalysis returns the per-member feedback origin breakdown.
func (h *Handler) TeamCommentAnalysis(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	quarter := r.URL.Query().Get("quarter")
	if quarter == "" {
		quarter = "Q" + strconv.Itoa((int(now.Month())-1)/3+1)
	}

	year := now.Year()
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid year", "")
			return
		}
		year = parsed
	}

	analysis, err := h.reportSvc.CommentAnalysis(r.Context(), r.PathValue("id"), quarter, year)
	if err != nil {
		h.respondError(w, err, "failed to analyze comments")
		return
	}

	writeSuccess(w, http.StatusOK, "comment analysis", toCommentAnalysisResponse(*analysis))
}

// AnalyzePR scores one pull request's review feedback.
func (h *Handler) AnalyzePR(w http.ResponseWriter, r *http.Request) {
	prID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid pull request id", "")
		return
	}

	analysis, err := h.analysisSvc.AnalyzePR(r.Context(), prID)
	if err != nil {
		h.respondError(w, err, "failed to analyze pull request")
		return
	}

	writeSuccess(w, http.StatusOK, "pull request analyzed", toAnalysisResponse(*analysis))
}

// respondError maps service errors to HTTP responses. Sentinel errors keep
// their message; anything else becomes an opaque 500, with the internal
// detail exposed only in dev mode.
func (h *Handler) respondError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, driven.ErrUserNotFound),
		errors.Is(err, driven.ErrTeamNotFound),
		errors.Is(err, driven.ErrPRNotFound):
		writeFailure(w, http.StatusNotFound, err.Error(), "")

	case errors.Is(err, driven.ErrUserAlreadyExists),
		errors.Is(err, driven.ErrTeamAlreadyExists):
		writeFailure(w, http.StatusConflict, err.Error(), "")

	case errors.Is(err, application.ErrInvalidQuarter):
		writeFailure(w, http.StatusBadRequest, err.Error(), "")

	case errors.Is(err, application.ErrScoringUnavailable):
		writeFailure(w, http.StatusServiceUnavailable, err.Error(), "")

	default:
		h.logger.Error(logMsg, "error", err)

		detail := ""
		if h.devMode {
			detail = err.Error()
		}
		writeFailure(w, http.StatusInternalServerError, "internal server error", detail)
	}
}
