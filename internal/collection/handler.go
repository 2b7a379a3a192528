package collection

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jumapesa/chamapay/internal/group"
	"github.com/jumapesa/chamapay/internal/group/rotation"
	"github.com/jumapesa/chamapay/pkg/response"
)

// Handler handles HTTP requests for collection operations
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler creates a new collection handler
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

// Routes returns the router for collection endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.StartCollection)
	r.Get("/cycles/{id}", h.GetCycle)
	r.Post("/cycles/{id}/reconcile", h.Reconcile)
	r.Post("/cycles/{id}/settle", h.Settle)
	r.Post("/cycles/{id}/retry-failed", h.RetryAllFailed)
	r.Post("/requests/{id}/retry", h.RetryOne)

	return r
}

// StartCollection handles POST /collections
// @Summary      Start a collection cycle
// @Description  Create one debit request per billable member and issue the STK pushes
// @Tags         collections
// @Accept       json
// @Produce      json
// @Param        request body StartCollectionRequest true "Collection start request"
// @Success      201 {object} response.APIResponse{data=CycleResponse}
// @Failure      409 {object} response.APIResponse
// @Router       /collections [post]
func (h *Handler) StartCollection(w http.ResponseWriter, r *http.Request) {
	var req StartCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		response.ValidationError(w, err.Error())
		return
	}

	cycle, requests, err := h.service.StartCollection(r.Context(), req.GroupID)
	if err != nil {
		switch {
		case errors.Is(err, group.ErrGroupNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrCollectionInProgress):
			response.StateConflict(w, response.CodeCollectionInProgress, err.Error())
		case errors.Is(err, ErrGroupNotActive):
			response.StateConflict(w, response.CodeGroupNotActive, err.Error())
		case errors.Is(err, rotation.ErrInsufficientMembers):
			response.StateConflict(w, response.CodeInsufficientMembers, err.Error())
		case errors.Is(err, ErrNoBillableMembers):
			response.StateConflict(w, response.CodeInsufficientMembers, err.Error())
		default:
			response.InternalError(w, "Failed to start collection")
		}
		return
	}

	response.JSON(w, http.StatusCreated, cycle.WithRequests(requests))
}

// GetCycle handles GET /collections/cycles/{id}
// @Summary      Get cycle status
// @Description  Get a cycle with its debit requests and aggregate counts
// @Tags         collections
// @Produce      json
// @Param        id path int true "Cycle ID"
// @Success      200 {object} response.APIResponse{data=CycleResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /collections/cycles/{id} [get]
func (h *Handler) GetCycle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cycleID(w, r)
	if !ok {
		return
	}

	cycle, err := h.service.store.GetCycle(r.Context(), id)
	if err != nil {
		response.InternalError(w, "Failed to get cycle")
		return
	}
	if cycle == nil {
		response.NotFound(w, ErrCycleNotFound.Error())
		return
	}

	requests, err := h.service.store.GetCycleRequests(r.Context(), id)
	if err != nil {
		response.InternalError(w, "Failed to get cycle requests")
		return
	}

	response.JSON(w, http.StatusOK, cycle.WithRequests(requests))
}

// Reconcile handles POST /collections/cycles/{id}/reconcile
// @Summary      Reconcile a cycle
// @Description  Query the provider for every in-flight request and update aggregates
// @Tags         collections
// @Produce      json
// @Param        id path int true "Cycle ID"
// @Success      200 {object} response.APIResponse{data=CycleSummary}
// @Failure      404 {object} response.APIResponse
// @Router       /collections/cycles/{id}/reconcile [post]
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cycleID(w, r)
	if !ok {
		return
	}

	summary, err := h.service.ReconcileCycle(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrCycleNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to reconcile cycle")
		return
	}

	response.JSON(w, http.StatusOK, summary)
}

// Settle handles POST /collections/cycles/{id}/settle
// @Summary      Settle a cycle
// @Description  Credit the rotation recipient or group totals once all requests are terminal
// @Tags         collections
// @Produce      json
// @Param        id path int true "Cycle ID"
// @Success      200 {object} response.APIResponse{data=CycleResponse}
// @Failure      409 {object} response.APIResponse
// @Router       /collections/cycles/{id}/settle [post]
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cycleID(w, r)
	if !ok {
		return
	}

	cycle, err := h.service.Settle(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrCycleNotFound), errors.Is(err, group.ErrGroupNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrCycleStillCollecting):
			response.StateConflict(w, response.CodeStaleState, err.Error())
		default:
			response.InternalError(w, "Failed to settle cycle")
		}
		return
	}

	response.JSON(w, http.StatusOK, cycle.ToResponse())
}

// RetryOne handles POST /collections/requests/{id}/retry
// @Summary      Retry a failed debit request
// @Description  Re-issue the STK push for one failed, expired, or cancelled request
// @Tags         collections
// @Produce      json
// @Param        id path int true "Request ID"
// @Success      200 {object} response.APIResponse{data=DebitRequestResponse}
// @Failure      409 {object} response.APIResponse
// @Router       /collections/requests/{id}/retry [post]
func (h *Handler) RetryOne(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid request ID")
		return
	}

	req, err := h.service.RetryOne(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrRequestNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrMaxAttemptsExceeded):
			response.StateConflict(w, response.CodeMaxAttemptsExceeded, err.Error())
		case errors.Is(err, ErrNotRetryable), errors.Is(err, ErrStaleState), errors.Is(err, ErrCycleSettled):
			response.StateConflict(w, response.CodeStaleState, err.Error())
		default:
			response.InternalError(w, "Failed to retry request")
		}
		return
	}

	response.JSON(w, http.StatusOK, req.ToResponse())
}

// RetryAllFailed handles POST /collections/cycles/{id}/retry-failed
// @Summary      Retry all failed requests in a cycle
// @Description  Apply a retry to every failed-class request independently
// @Tags         collections
// @Produce      json
// @Param        id path int true "Cycle ID"
// @Success      200 {object} response.APIResponse{data=[]RetryOutcome}
// @Failure      404 {object} response.APIResponse
// @Router       /collections/cycles/{id}/retry-failed [post]
func (h *Handler) RetryAllFailed(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cycleID(w, r)
	if !ok {
		return
	}

	outcomes, err := h.service.RetryAllFailed(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrCycleNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrCycleSettled):
			response.StateConflict(w, response.CodeStaleState, err.Error())
		default:
			response.InternalError(w, "Failed to retry cycle requests")
		}
		return
	}

	response.JSON(w, http.StatusOK, outcomes)
}

func (h *Handler) cycleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid cycle ID")
		return 0, false
	}
	return id, true
}
