package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"order-pipeline/internal/dto"
	"order-pipeline/internal/service"
)

type OrderController struct {
	Service *service.OrderService
}

func NewOrderController(s *service.OrderService) *OrderController {
	return &OrderController{Service: s}
}

// POST /order/:userId
func (ctl *OrderController) Checkout(c *gin.Context) {
	order, err := ctl.Service.CreateOrder(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CheckoutResponse{
		OrderID: order.OrderID,
		Total:   order.Total,
		Status:  order.Status,
	})
}

// GET /orders/:userId
func (ctl *OrderController) GetOrders(c *gin.Context) {
	orders, err := ctl.Service.GetOrders(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrdersFromModel(orders))
}

// GET /orders/:userId/:orderId
func (ctl *OrderController) GetOrder(c *gin.Context) {
	order, err := ctl.Service.GetOrder(c.Request.Context(), c.Param("userId"), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderFromModel(order))
}
