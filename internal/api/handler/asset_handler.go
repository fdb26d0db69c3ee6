package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/assetverse/asset-system/internal/core/domain"
	"github.com/assetverse/asset-system/internal/core/ports"
)

// AssetHandler handles HTTP requests for HR asset CRUD and the
// employee-facing availability listing.
type AssetHandler struct {
	service ports.AssetService
}

func NewAssetHandler(service ports.AssetService) *AssetHandler {
	return &AssetHandler{service: service}
}

// Create handles POST /v1/assets.
//
// @Summary      Add a new asset
// @Tags         assets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      assetRequest  true  "Asset details"
// @Success      201   {object}  assetResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/assets [post]
func (h *AssetHandler) Create(c echo.Context) error {
	email, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req assetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	asset, err := h.service.Create(c.Request().Context(), email, ports.AssetInput{
		ProductName:     req.ProductName,
		ProductType:     req.ProductType,
		ProductQuantity: req.ProductQuantity,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toAssetResponse(asset))
}

// Update handles PUT /v1/assets/:id.
//
// @Summary      Update an asset
// @Tags         assets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string        true  "Asset ID"
// @Param        body  body      assetRequest  true  "Asset details"
// @Success      200   {object}  assetResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/assets/{id} [put]
func (h *AssetHandler) Update(c echo.Context) error {
	email, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req assetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	asset, err := h.service.Update(c.Request().Context(), c.Param("id"), email, ports.AssetInput{
		ProductName:     req.ProductName,
		ProductType:     req.ProductType,
		ProductQuantity: req.ProductQuantity,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toAssetResponse(asset))
}

// Delete handles DELETE /v1/assets/:id.
//
// @Summary      Delete an asset
// @Tags         assets
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Asset ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/assets/{id} [delete]
func (h *AssetHandler) Delete(c echo.Context) error {
	email, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), c.Param("id"), email); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListOwned handles GET /v1/assets — the HR's own inventory.
//
// @Summary      List the HR's own assets
// @Tags         assets
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Partial product name"
// @Param        type    query     string  false  "Product type filter"
// @Success      200     {object}  listAssetsResponse
// @Router       /v1/assets [get]
func (h *AssetHandler) ListOwned(c echo.Context) error {
	email, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	assets, err := h.service.ListOwned(c.Request().Context(), email, c.QueryParam("search"), c.QueryParam("type"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(assets))
}

// ListAvailable handles GET /v1/assets/available — assets with stock left.
//
// @Summary      List available assets
// @Tags         assets
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Partial product name"
// @Param        type    query     string  false  "Product type filter"
// @Param        hr      query     string  false  "Owning HR email"
// @Success      200     {object}  listAssetsResponse
// @Router       /v1/assets/available [get]
func (h *AssetHandler) ListAvailable(c echo.Context) error {
	assets, err := h.service.ListAvailable(c.Request().Context(), ports.AssetFilter{
		Search:  c.QueryParam("search"),
		Type:    c.QueryParam("type"),
		OwnerHR: c.QueryParam("hr"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(assets))
}

func toAssetResponse(a *domain.Asset) assetResponse {
	return assetResponse{
		ID:              a.ID,
		OwnerHREmail:    a.OwnerHREmail,
		ProductName:     a.ProductName,
		ProductType:     string(a.ProductType),
		ProductQuantity: a.ProductQuantity,
		AddedDate:       a.AddedDate,
	}
}

func toListResponse(assets []*domain.Asset) listAssetsResponse {
	items := make([]assetResponse, 0, len(assets))
	for _, a := range assets {
		items = append(items, toAssetResponse(a))
	}
	return listAssetsResponse{Data: items, Total: len(items)}
}
