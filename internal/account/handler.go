package account

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jumapesa/chamapay/pkg/response"
)

// Handler handles HTTP requests for account operations
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler creates a new account handler
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

// Routes returns the router for account endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)

	return r
}

// Create handles POST /accounts
// @Summary      Register an account
// @Description  Create an account that invited members can later link to
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request body CreateAccountRequest true "Account creation request"
// @Success      201 {object} response.APIResponse{data=AccountResponse}
// @Failure      422 {object} response.APIResponse
// @Router       /accounts [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		response.ValidationError(w, err.Error())
		return
	}

	account, err := h.service.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrPhoneAlreadyInUse) {
			response.Conflict(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to create account")
		return
	}

	response.JSON(w, http.StatusCreated, account.ToResponse())
}

// GetByID handles GET /accounts/{id}
// @Summary      Get account by ID
// @Tags         accounts
// @Produce      json
// @Param        id path int true "Account ID"
// @Success      200 {object} response.APIResponse{data=AccountResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /accounts/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid account ID")
		return
	}

	account, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get account")
		return
	}

	response.JSON(w, http.StatusOK, account.ToResponse())
}

// List handles GET /accounts
// @Summary      List accounts
// @Tags         accounts
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]AccountResponse}
// @Router       /accounts [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	accounts, total, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list accounts")
		return
	}

	accountResponses := make([]*AccountResponse, len(accounts))
	for i, account := range accounts {
		accountResponses[i] = account.ToResponse()
	}

	totalPages := (total + perPage - 1) / perPage
	response.JSONWithMeta(w, http.StatusOK, accountResponses, &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Update handles PUT /accounts/{id}
// @Summary      Update account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id path int true "Account ID"
// @Param        request body UpdateAccountRequest true "Account update request"
// @Success      200 {object} response.APIResponse{data=AccountResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /accounts/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid account ID")
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		response.ValidationError(w, err.Error())
		return
	}

	account, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to update account")
		return
	}

	response.JSON(w, http.StatusOK, account.ToResponse())
}
