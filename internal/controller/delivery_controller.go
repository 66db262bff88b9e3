package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"order-pipeline/internal/dto"
	"order-pipeline/internal/service"
)

type DeliveryController struct {
	Service *service.DeliveryService
}

func NewDeliveryController(s *service.DeliveryService) *DeliveryController {
	return &DeliveryController{Service: s}
}

// POST /delivery/order/:orderId/track
func (ctl *DeliveryController) StartTracking(c *gin.Context) {
	t, err := ctl.Service.StartTracking(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.TrackingFromModel(t))
}

// GET /delivery/order/:orderId/status
func (ctl *DeliveryController) GetStatus(c *gin.Context) {
	t, err := ctl.Service.GetStatus(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TrackingFromModel(t))
}

// POST /delivery/order/:orderId/update-status
// At DELIVERED the call succeeds with changed=false.
func (ctl *DeliveryController) Advance(c *gin.Context) {
	res, err := ctl.Service.Advance(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AdvanceResponse{
		OrderID:        res.Tracking.OrderID,
		PreviousStatus: res.Previous,
		CurrentStatus:  res.Current,
		Changed:        res.Changed,
	})
}
