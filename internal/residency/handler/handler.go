package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"domio/internal/residency/models"
	"domio/internal/residency/service"
	id "domio/pkg/domain"
	dErrors "domio/pkg/domain-errors"
	"domio/pkg/platform/httputil"
	"domio/pkg/requestcontext"
)

// Service defines the lifecycle operations the handler exposes.
type Service interface {
	VacateResidence(ctx context.Context, residenceID id.ResidenceID, residentID id.UserID) (*models.Residence, error)
	DisableUser(ctx context.Context, userID id.UserID) error
	EnableUser(ctx context.Context, userID id.UserID, residenceID *id.ResidenceID) error
	UpdateUserRole(ctx context.Context, userID id.UserID, newRole id.RoleName, residenceID *id.ResidenceID) error
	CreateResidence(ctx context.Context, in service.CreateResidenceInput) (*models.Residence, error)
	UpdateResidence(ctx context.Context, residenceID id.ResidenceID, in service.UpdateResidenceInput) (*models.Residence, error)
	DeleteResidence(ctx context.Context, residenceID id.ResidenceID) error
	Repair(ctx context.Context, userID id.UserID) (*service.RepairReport, error)
}

// Handler wires residency lifecycle endpoints to the orchestrator.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a residency handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts residency endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/residency/vacate", h.HandleVacate)
	r.Post("/residency/repair", h.HandleRepair)
	r.Post("/users/{userID}/disable", h.HandleDisableUser)
	r.Post("/users/{userID}/enable", h.HandleEnableUser)
	r.Put("/users/{userID}/role", h.HandleUpdateRole)
	r.Post("/residences", h.HandleCreateResidence)
	r.Put("/residences/{residenceID}", h.HandleUpdateResidence)
	r.Delete("/residences/{residenceID}", h.HandleDeleteResidence)
}

// requireActor rejects unauthenticated requests.
func requireActor(w http.ResponseWriter, ctx context.Context) bool {
	if requestcontext.ActorID(ctx) == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return false
	}
	return true
}

// userIDParam parses the {userID} route parameter.
func userIDParam(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "user id is invalid"))
		return id.UserID{}, false
	}
	return userID, true
}

// residenceIDParam parses the {residenceID} route parameter.
func residenceIDParam(w http.ResponseWriter, r *http.Request) (id.ResidenceID, bool) {
	residenceID, err := id.ParseResidenceID(chi.URLParam(r, "residenceID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "residence id is invalid"))
		return id.ResidenceID{}, false
	}
	return residenceID, true
}

// HandleVacate handles POST /residency/vacate requests.
func (h *Handler) HandleVacate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	if !requireActor(w, ctx) {
		return
	}
	req, ok := httputil.DecodeAndPrepare[VacateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	residence, err := h.service.VacateResidence(ctx, req.ParsedResidenceID(), req.ParsedResidentID())
	if err != nil {
		h.logger.ErrorContext(ctx, "vacate failed",
			"request_id", requestID,
			"residence_id", req.ResidenceID,
			"resident_id", req.ResidentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "residence vacated",
		"request_id", requestID,
		"residence_id", req.ResidenceID,
		"resident_id", req.ResidentID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResidence(residence))
}

// HandleRepair handles POST /residency/repair requests.
func (h *Handler) HandleRepair(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !requireActor(w, ctx) {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RepairRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.service.Repair(ctx, req.ParsedUserID())
	if err != nil {
		h.logger.ErrorContext(ctx, "repair failed",
			"request_id", requestID,
			"user_id", req.UserID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "residency repaired",
		"request_id", requestID,
		"user_id", req.UserID,
		"consistent", report.Consistent,
	)
	httputil.WriteJSON(w, http.StatusOK, FromRepairReport(report))
}

// HandleDisableUser handles POST /users/{userID}/disable requests.
func (h *Handler) HandleDisableUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !requireActor(w, ctx) {
		return
	}
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DisableUser(ctx, userID); err != nil {
		h.logger.ErrorContext(ctx, "disable user failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user disabled",
		"request_id", requestID,
		"user_id", userID,
	)
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Status: "disabled"})
}

// HandleEnableUser handles POST /users/{userID}/enable requests.
func (h *Handler) HandleEnableUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !requireActor(w, ctx) {
		return
	}
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[EnableRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.EnableUser(ctx, userID, req.ParsedResidenceID()); err != nil {
		h.logger.ErrorContext(ctx, "enable user failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user enabled",
		"request_id", requestID,
		"user_id", userID,
	)
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Status: "enabled"})
}

// HandleUpdateRole handles PUT /users/{userID}/role requests.
func (h *Handler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !requireActor(w, ctx) {
		return
	}
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateRoleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.UpdateUserRole(ctx, userID, req.ParsedRole(), req.ParsedResidenceID()); err != nil {
		h.logger.ErrorContext(ctx, "role update failed",
			"request_id", requestID,
			"user_id", userID,
			"role", req.Role,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user role updated",
		"request_id", requestID,
		"user_id", userID,
		"role", req.Role,
	)
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Status: "updated"})
}

// HandleCreateResidence handles POST /residences requests.
func (h *Handler) HandleCreateResidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !requireActor(w, ctx) {
		return
	}
	residentialID := requestcontext.ResidentialID(ctx)
	if residentialID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "residential context is required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateResidenceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	residence, err := h.service.CreateResidence(ctx, service.CreateResidenceInput{
		ResidentialID: residentialID,
		Type:          req.ParsedType(),
		Name:          req.Name,
		Description:   req.Description,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "residence creation failed",
			"request_id", requestID,
			"name", req.Name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "residence created",
		"request_id", requestID,
		"residence_id", residence.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromResidence(residence))
}

// HandleUpdateResidence handles PUT /residences/{residenceID} requests.
func (h *Handler) HandleUpdateResidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !requireActor(w, ctx) {
		return
	}
	residenceID, ok := residenceIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateResidenceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	residence, err := h.service.UpdateResidence(ctx, residenceID, service.UpdateResidenceInput{
		Name:        req.Name,
		Type:        req.ParsedType(),
		Description: req.Description,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "residence update failed",
			"request_id", requestID,
			"residence_id", residenceID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "residence updated",
		"request_id", requestID,
		"residence_id", residenceID,
	)
	httputil.WriteJSON(w, http.StatusOK, FromResidence(residence))
}

// HandleDeleteResidence handles DELETE /residences/{residenceID} requests.
func (h *Handler) HandleDeleteResidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !requireActor(w, ctx) {
		return
	}
	residenceID, ok := residenceIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteResidence(ctx, residenceID); err != nil {
		h.logger.ErrorContext(ctx, "residence deletion failed",
			"request_id", requestID,
			"residence_id", residenceID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "residence deleted",
		"request_id", requestID,
		"residence_id", residenceID,
	)
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}
