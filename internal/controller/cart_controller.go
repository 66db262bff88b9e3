package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"order-pipeline/internal/dto"
	"order-pipeline/internal/middleware"
	"order-pipeline/internal/service"
)

type CartController struct {
	Service *service.CartService
}

func NewCartController(s *service.CartService) *CartController {
	return &CartController{Service: s}
}

// POST /cart/add
func (ctl *CartController) AddToCart(c *gin.Context) {
	var req dto.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := middleware.RequireUser(c, req.UserID); err != nil {
		writeError(c, err)
		return
	}

	cart, err := ctl.Service.AddItem(c.Request.Context(), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CartFromModel(req.UserID, cart))
}

// GET /cart/:userId
func (ctl *CartController) GetCart(c *gin.Context) {
	userID := c.Param("userId")
	cart, err := ctl.Service.GetCart(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CartFromModel(userID, cart))
}
