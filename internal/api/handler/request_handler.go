package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/assetverse/asset-system/internal/core/domain"
	"github.com/assetverse/asset-system/internal/core/ports"
)

// RequestHandler handles HTTP requests for the request lifecycle.
type RequestHandler struct {
	service ports.RequestService
}

func NewRequestHandler(service ports.RequestService) *RequestHandler {
	return &RequestHandler{service: service}
}

// Create handles POST /v1/requests — an employee files a request.
//
// @Summary      File an asset request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createRequestRequest  true  "Request details"
// @Success      201   {object}  requestResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/requests [post]
func (h *RequestHandler) Create(c echo.Context) error {
	email, _, err := ctxClaims(c)
	if err != nil {
		return err
	}
	name, _ := c.Get("name").(string)

	var req createRequestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	created, err := h.service.CreateRequest(c.Request().Context(), ports.CreateRequestInput{
		EmployeeEmail: email,
		EmployeeName:  name,
		AssetID:       req.AssetID,
		HREmail:       req.HREmail,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toRequestResponse(created))
}

// Decide handles PATCH /v1/requests/:id/decision — HR approves or rejects.
//
// @Summary      Decide a pending request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "Request ID"
// @Param        body  body      decideRequestRequest  true  "Decision"
// @Success      200   {object}  requestResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/requests/{id}/decision [patch]
func (h *RequestHandler) Decide(c echo.Context) error {
	email, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req decideRequestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	updated, err := h.service.Decide(c.Request().Context(), ports.DecideInput{
		RequestID: c.Param("id"),
		Decision:  req.Decision,
		HREmail:   email,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toRequestResponse(updated))
}

// Return handles PATCH /v1/requests/:id/return — employee returns the asset.
//
// @Summary      Return a borrowed asset
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "Request ID"
// @Success      200  {object}  requestResponse
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /v1/requests/{id}/return [patch]
func (h *RequestHandler) Return(c echo.Context) error {
	email, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	updated, err := h.service.Return(c.Request().Context(), c.Param("id"), email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRequestResponse(updated))
}

// List handles GET /v1/requests. Employees see their own requests; HRs see
// the requests addressed to them.
//
// @Summary      List requests
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Status filter"
// @Param        search  query     string  false  "Partial asset name"
// @Success      200     {object}  listRequestsResponse
// @Router       /v1/requests [get]
func (h *RequestHandler) List(c echo.Context) error {
	email, role, err := ctxClaims(c)
	if err != nil {
		return err
	}

	filter := ports.RequestFilter{
		Status: c.QueryParam("status"),
		Search: c.QueryParam("search"),
	}
	if role == domain.RoleHR {
		filter.HREmail = email
	} else {
		filter.UserEmail = email
	}

	requests, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	items := make([]requestResponse, 0, len(requests))
	for _, r := range requests {
		items = append(items, toRequestResponse(r))
	}
	return c.JSON(http.StatusOK, listRequestsResponse{Data: items, Total: len(items)})
}

func toRequestResponse(r *domain.Request) requestResponse {
	return requestResponse{
		ID:           r.ID,
		AssetID:      r.AssetID,
		AssetName:    r.AssetName,
		AssetType:    string(r.AssetType),
		UserEmail:    r.UserEmail,
		UserName:     r.UserName,
		HREmail:      r.HREmail,
		Status:       string(r.Status),
		RequestDate:  r.RequestDate,
		ApprovalDate: r.ApprovalDate,
		ReturnDate:   r.ReturnDate,
	}
}
