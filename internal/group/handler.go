package group

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jumapesa/chamapay/pkg/middleware"
	"github.com/jumapesa/chamapay/pkg/response"
)

// Handler handles HTTP requests for group operations
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler creates a new group handler
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

// Routes returns the router for group endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)

	// Member management
	r.Post("/{id}/members", h.AddMember)
	r.Post("/{id}/members/bulk", h.BulkAddMembers)
	r.Post("/{id}/members/{memberId}/exit", h.RequestExit)
	r.Post("/{id}/members/{memberId}/approve-exit", h.ApproveExit)

	// Lifecycle
	r.Post("/{id}/pause", h.Pause)
	r.Post("/{id}/activate", h.Activate)
	r.Post("/{id}/dissolve", h.Dissolve)

	return r
}

// Create handles POST /groups
// @Summary      Create a new chama
// @Description  Create a contribution group; the founder becomes the admin member
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body CreateGroupRequest true "Group creation request"
// @Success      201 {object} response.APIResponse{data=GroupResponse}
// @Failure      422 {object} response.APIResponse
// @Router       /groups [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	founderID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		founderID = 1
	}

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		response.ValidationError(w, err.Error())
		return
	}

	group, members, err := h.service.Create(r.Context(), founderID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateMemberPhone),
			errors.Is(err, ErrPledgeRequired),
			errors.Is(err, ErrContributionRequired):
			response.ValidationError(w, err.Error())
		default:
			response.InternalError(w, "Failed to create group")
		}
		return
	}

	response.JSON(w, http.StatusCreated, withMembers(group, members))
}

// GetByID handles GET /groups/{id}
// @Summary      Get group by ID
// @Description  Get a group with all its members
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	group, members, err := h.service.GetByIDWithMembers(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get group")
		return
	}

	response.JSON(w, http.StatusOK, withMembers(group, members))
}

// List handles GET /groups
// @Summary      List my groups
// @Description  Get a paginated list of groups for the current account
// @Tags         groups
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]GroupResponse}
// @Router       /groups [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		accountID = 1
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	groups, total, err := h.service.ListByAccountID(r.Context(), accountID, page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list groups")
		return
	}

	groupResponses := make([]*GroupResponse, len(groups))
	for i, group := range groups {
		groupResponses[i] = group.ToResponse()
	}

	totalPages := (total + perPage - 1) / perPage
	response.JSONWithMeta(w, http.StatusOK, groupResponses, &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// AddMember handles POST /groups/{id}/members
// @Summary      Add a member
// @Description  Add a member to the group at the end of the rotation
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        request body NewMemberRequest true "Member to add"
// @Success      201 {object} response.APIResponse{data=MemberResponse}
// @Failure      422 {object} response.APIResponse
// @Router       /groups/{id}/members [post]
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req NewMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		response.ValidationError(w, err.Error())
		return
	}

	member, err := h.service.AddMember(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrDuplicateMemberPhone), errors.Is(err, ErrPledgeRequired):
			response.ValidationError(w, err.Error())
		case errors.Is(err, ErrGroupNotActive):
			response.StateConflict(w, response.CodeGroupNotActive, err.Error())
		default:
			response.InternalError(w, "Failed to add member")
		}
		return
	}

	response.JSON(w, http.StatusCreated, member.ToResponse())
}

// BulkAddMembers handles POST /groups/{id}/members/bulk
// @Summary      Bulk import members
// @Description  Add several members at once; entries are independent
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        request body BulkAddMembersRequest true "Members to add"
// @Success      200 {object} response.APIResponse{data=[]BulkAddResult}
// @Router       /groups/{id}/members/bulk [post]
func (h *Handler) BulkAddMembers(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req BulkAddMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		response.ValidationError(w, err.Error())
		return
	}

	results, err := h.service.BulkAddMembers(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to import members")
		return
	}

	response.JSON(w, http.StatusOK, results)
}

// RequestExit handles POST /groups/{id}/members/{memberId}/exit
// @Summary      Request to exit the group
// @Description  The member keeps being billed until an admin approves the exit
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        memberId path int true "Member ID"
// @Success      200 {object} response.APIResponse{data=MemberResponse}
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/members/{memberId}/exit [post]
func (h *Handler) RequestExit(w http.ResponseWriter, r *http.Request) {
	h.memberTransition(w, r, h.service.RequestExit)
}

// ApproveExit handles POST /groups/{id}/members/{memberId}/approve-exit
// @Summary      Approve a member's exit
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        memberId path int true "Member ID"
// @Success      200 {object} response.APIResponse{data=MemberResponse}
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/members/{memberId}/approve-exit [post]
func (h *Handler) ApproveExit(w http.ResponseWriter, r *http.Request) {
	h.memberTransition(w, r, h.service.ApproveExit)
}

// Pause handles POST /groups/{id}/pause
// @Summary      Pause collections for a group
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/pause [post]
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.groupTransition(w, r, h.service.Pause)
}

// Activate handles POST /groups/{id}/activate
// @Summary      Resume a paused group
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/activate [post]
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	h.groupTransition(w, r, h.service.Activate)
}

// Dissolve handles POST /groups/{id}/dissolve
// @Summary      Dissolve a group
// @Description  Soft retirement; all rows are kept for audit
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/dissolve [post]
func (h *Handler) Dissolve(w http.ResponseWriter, r *http.Request) {
	h.groupTransition(w, r, h.service.Dissolve)
}

type memberTransitionFunc func(ctx context.Context, groupID, memberID int64) (*Member, error)

func (h *Handler) memberTransition(w http.ResponseWriter, r *http.Request, fn memberTransitionFunc) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}
	memberID, err := strconv.ParseInt(chi.URLParam(r, "memberId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid member ID")
		return
	}

	member, err := fn(r.Context(), groupID, memberID)
	if err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound), errors.Is(err, ErrMemberNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrInvalidStatusChange):
			response.StateConflict(w, response.CodeStaleState, err.Error())
		default:
			response.InternalError(w, "Failed to update member")
		}
		return
	}

	response.JSON(w, http.StatusOK, member.ToResponse())
}

func (h *Handler) groupTransition(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (*Group, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	group, err := fn(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrInvalidStatusChange):
			response.StateConflict(w, response.CodeStaleState, err.Error())
		default:
			response.InternalError(w, "Failed to update group")
		}
		return
	}

	response.JSON(w, http.StatusOK, group.ToResponse())
}

func withMembers(g *Group, members []*Member) *GroupResponse {
	resp := g.ToResponse()
	resp.Members = make([]*MemberResponse, len(members))
	for i, m := range members {
		resp.Members[i] = m.ToResponse()
	}
	return resp
}
