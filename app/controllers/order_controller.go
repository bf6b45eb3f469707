package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/coursemart/app/services"
	"github.com/shashiranjanraj/coursemart/pkg/ctx"
)

// OrderController records paid orders and lists a user's purchases.
type OrderController struct {
	checkout *services.CheckoutService
}

func NewOrderController(checkout *services.CheckoutService) *OrderController {
	return &OrderController{checkout: checkout}
}

func (h *OrderController) Store(c *ctx.Context) {
	var input services.OrderInput
	if !c.DecodeJSON(&input) {
		return
	}

	order, err := h.checkout.RecordOrder(c.Context(), principalID(c), input)
	if err != nil {
		c.Fail(err)
		return
	}

	c.JSON(http.StatusCreated, map[string]any{
		"success":   true,
		"orderInfo": order,
	})
}

func (h *OrderController) Purchases(c *ctx.Context) {
	history, err := h.checkout.ListPurchases(c.Context(), principalID(c))
	if err != nil {
		c.Fail(err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *OrderController) Orders(c *ctx.Context) {
	orders, err := h.checkout.ListOrders(c.Context(), principalID(c))
	if err != nil {
		c.Fail(err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{"orders": orders})
}
