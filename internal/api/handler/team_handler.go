package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/assetverse/asset-system/internal/core/domain"
	"github.com/assetverse/asset-system/internal/core/ports"
)

// TeamHandler handles HR team management: direct assignment, bulk
// affiliation, and removal.
type TeamHandler struct {
	requests    ports.RequestService
	affiliation ports.AffiliationService
}

func NewTeamHandler(requests ports.RequestService, affiliation ports.AffiliationService) *TeamHandler {
	return &TeamHandler{requests: requests, affiliation: affiliation}
}

// DirectAssign handles POST /v1/team/direct-assign.
//
// @Summary      Assign an asset to an employee directly
// @Tags         team
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      directAssignRequest  true  "Assignment"
// @Success      201   {object}  requestResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/team/direct-assign [post]
func (h *TeamHandler) DirectAssign(c echo.Context) error {
	email, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req directAssignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	created, err := h.requests.DirectAssign(c.Request().Context(), ports.DirectAssignInput{
		HREmail:       email,
		EmployeeEmail: req.EmployeeEmail,
		AssetID:       req.AssetID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toRequestResponse(created))
}

// BulkAffiliate handles POST /v1/team/bulk-affiliate.
//
// @Summary      Affiliate a batch of employees
// @Tags         team
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      bulkAffiliateRequest  true  "Employee document IDs"
// @Success      200   {object}  bulkAffiliateResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/team/bulk-affiliate [post]
func (h *TeamHandler) BulkAffiliate(c echo.Context) error {
	email, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req bulkAffiliateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	result, err := h.affiliation.BulkAffiliate(c.Request().Context(), ports.BulkAffiliateInput{
		HREmail:     email,
		EmployeeIDs: req.EmployeeIDs,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, bulkAffiliateResponse{
		Affiliated: result.Affiliated,
		TeamCount:  result.TeamCount,
	})
}

// RemoveMember handles DELETE /v1/team/members/:id.
//
// @Summary      Remove an employee from the team
// @Tags         team
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "Employee document ID"
// @Success      200  {object}  teamMemberResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/team/members/{id} [delete]
func (h *TeamHandler) RemoveMember(c echo.Context) error {
	user, err := h.affiliation.RemoveAffiliation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMemberResponse(user))
}

// ListUnaffiliated handles GET /v1/team/unaffiliated.
//
// @Summary      List employees without a company
// @Tags         team
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listMembersResponse
// @Router       /v1/team/unaffiliated [get]
func (h *TeamHandler) ListUnaffiliated(c echo.Context) error {
	users, err := h.affiliation.ListUnaffiliated(c.Request().Context())
	if err != nil {
		return err
	}

	items := make([]teamMemberResponse, 0, len(users))
	for _, u := range users {
		items = append(items, toMemberResponse(u))
	}
	return c.JSON(http.StatusOK, listMembersResponse{Data: items, Total: len(items)})
}

func toMemberResponse(u *domain.User) teamMemberResponse {
	resp := teamMemberResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
	if u.Affiliation != nil {
		joined := u.Affiliation.JoinedDate
		resp.JoinedDate = &joined
	}
	return resp
}
