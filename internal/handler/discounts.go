package handler

import (
	"net/http"

	"pickupshop/internal/dto"
	"pickupshop/internal/service"

	"github.com/gin-gonic/gin"
)

type DiscountsHandler struct{ svc service.DiscountService }

func NewDiscountsHandler(svc service.DiscountService) *DiscountsHandler {
	return &DiscountsHandler{svc: svc}
}

func (h *DiscountsHandler) List(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Replace godoc
// @Summary      Replace the discount tiers of a product
// @Description  Tiers referenced by order lines keep their price and are never removed.
// @Tags         discounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                      true "Product UUID"
// @Param        body body dto.ReplaceDiscountsRequest true "Desired tier set"
// @Success      200  {array}  dto.DiscountResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/products/{id}/discounts [put]
func (h *DiscountsHandler) Replace(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ReplaceDiscountsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Replace(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteAll godoc
// @Summary      Delete every unreferenced discount tier of a product
// @Tags         discounts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product UUID"
// @Success      200  {object} dto.DeleteDiscountsResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/products/{id}/discounts [delete]
func (h *DiscountsHandler) DeleteAll(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.DeleteAll(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
