package handler

import (
	"bytes"
	"net/http"

	"pickupshop/internal/dto"
	"pickupshop/internal/infra"
	"pickupshop/internal/service"

	"github.com/gin-gonic/gin"
)

type OrdersHandler struct {
	svc      service.OrderService
	shopName string
}

func NewOrdersHandler(svc service.OrderService, shopName string) *OrdersHandler {
	return &OrdersHandler{svc: svc, shopName: shopName}
}

// Create godoc
// @Summary      Place an order
// @Description  Prices every line on the server, checks the summed demand per product and decrements stock in one transaction.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateOrderRequest true "Order"
// @Success      201  {object} dto.OrderResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/orders [post]
func (h *OrdersHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List orders
// @Description  Customers see their own orders; staff may filter by customer_id.
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        customer_id query string false "Customer (staff only)"
// @Param        status      query string false "Order status"
// @Param        from        query string false "Pickup date from (YYYY-MM-DD)"
// @Param        to          query string false "Pickup date to (YYYY-MM-DD)"
// @Param        page        query int    false "Page (default 1)"
// @Param        limit       query int    false "Page size (default 20)"
// @Success      200  {object} dto.OrderListResponse
// @Router       /v1/orders [get]
func (h *OrdersHandler) List(c *gin.Context) {
	var filter dto.OrderFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), principal(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrdersHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Slip godoc
// @Summary      Pickup slip
// @Tags         orders
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id path string true "Order UUID"
// @Success      200
// @Failure      404  {object} apierror.APIError
// @Router       /v1/orders/{id}/slip [get]
func (h *OrdersHandler) Slip(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := infra.WriteSlipPDF(&buf, h.shopName, order); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="pickup-slip-`+order.ID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// Delete godoc
// @Summary      Delete an order
// @Description  Completed orders cannot be deleted. Pending orders give their stock back.
// @Tags         orders
// @Security     BearerAuth
// @Param        id path string true "Order UUID"
// @Success      204
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/orders/{id} [delete]
func (h *OrdersHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), principal(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddLine godoc
// @Summary      Add a line to an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string               true "Order UUID"
// @Param        body body dto.OrderLineRequest true "Line"
// @Success      201  {object} dto.OrderResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/orders/{id}/lines [post]
func (h *OrdersHandler) AddLine(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.OrderLineRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddLine(c.Request.Context(), principal(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// UpdateLine godoc
// @Summary      Change the quantity of a line
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                     true "Order UUID"
// @Param        line_id path string                     true "Line UUID"
// @Param        body    body dto.UpdateOrderLineRequest true "New quantity"
// @Success      200  {object} dto.OrderResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/orders/{id}/lines/{line_id} [put]
func (h *OrdersHandler) UpdateLine(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	lineID, ok := parseUUIDParam(c, "line_id")
	if !ok {
		return
	}
	var req dto.UpdateOrderLineRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateLine(c.Request.Context(), principal(c), id, lineID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrdersHandler) DeleteLine(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	lineID, ok := parseUUIDParam(c, "line_id")
	if !ok {
		return
	}
	resp, err := h.svc.DeleteLine(c.Request.Context(), principal(c), id, lineID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// FinishLine godoc
// @Summary      Mark a line as picked up
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                true "Order UUID"
// @Param        line_id path string                true "Line UUID"
// @Param        body    body dto.FinishLineRequest true "Finished flag"
// @Success      200  {object} dto.OrderResponse
// @Router       /v1/orders/{id}/lines/{line_id}/finish [patch]
func (h *OrdersHandler) FinishLine(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	lineID, ok := parseUUIDParam(c, "line_id")
	if !ok {
		return
	}
	var req dto.FinishLineRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SetLineFinished(c.Request.Context(), id, lineID, req.IsFinish)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateStatus godoc
// @Summary      Change the order status
// @Description  completed and cancelled are terminal. Cancelling gives back the stock of lines not yet picked up.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                       true "Order UUID"
// @Param        body body dto.UpdateOrderStatusRequest true "New status"
// @Success      200  {object} dto.OrderResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/orders/{id}/status [patch]
func (h *OrdersHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrdersHandler) UpdatePayment(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePaymentStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdatePayment(c.Request.Context(), id, req.PaymentStatus)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrdersHandler) UpdateSchedule(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateScheduleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateSchedule(c.Request.Context(), principal(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
