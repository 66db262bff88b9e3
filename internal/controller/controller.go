package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"order-pipeline/internal/dto"
	"order-pipeline/internal/errs"
	"order-pipeline/internal/middleware"
	"order-pipeline/internal/service"
)

// Controllers bundles the handlers served by the pipeline.
type Controllers struct {
	Cart     *CartController
	Order    *OrderController
	Delivery *DeliveryController
	Health   *HealthController
}

// Register mounts every route on r. A nil auth leaves the API open; checkout
// guards (idempotency) run only on POST /order/:userId.
func (ctl Controllers) Register(r gin.IRouter, auth *service.AuthService, checkoutGuards ...gin.HandlerFunc) {
	r.GET("/health", ctl.Health.Health)

	api := r.Group("/", middleware.AuthMiddleware(auth))

	api.POST("/cart/add", ctl.Cart.AddToCart)
	api.GET("/cart/:userId", middleware.SameUser("userId"), ctl.Cart.GetCart)

	checkout := append([]gin.HandlerFunc{middleware.SameUser("userId")}, checkoutGuards...)
	checkout = append(checkout, ctl.Order.Checkout)
	api.POST("/order/:userId", checkout...)

	orders := api.Group("/orders/:userId", middleware.SameUser("userId"))
	orders.GET("", ctl.Order.GetOrders)
	orders.GET("/:orderId", ctl.Order.GetOrder)

	delivery := api.Group("/delivery/order/:orderId")
	delivery.POST("/track", ctl.Delivery.StartTracking)
	delivery.GET("/status", ctl.Delivery.GetStatus)
	delivery.POST("/update-status", middleware.AdminOnly(auth), ctl.Delivery.Advance)
}

// writeError renders err as {"error": {code, message}} with its HTTP status.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := dto.ErrorFrom(err)
	c.JSON(status, body)
}

func bindError(c *gin.Context, err error) {
	writeError(c, errs.Wrap(errs.CodeValidation, err, "invalid request body: "+err.Error()))
}

type HealthController struct {
	ServiceName string
}

func NewHealthController(serviceName string) *HealthController {
	return &HealthController{ServiceName: serviceName}
}

// GET /health
func (ctl *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": ctl.ServiceName})
}
