package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"order-pipeline/internal/catalog"
	"order-pipeline/internal/dto"
	"order-pipeline/internal/idempotency"
	"order-pipeline/internal/logger"
	"order-pipeline/internal/middleware"
	"order-pipeline/internal/model"
	"order-pipeline/internal/repository"
	"order-pipeline/internal/service"
)

var products = map[string]string{
	"p1": `{"product_id":"p1","name":"Milk","price":50,"available":true}`,
	"p2": `{"product_id":"p2","name":"Bread","price":35,"available":false}`,
	"p3": `{"product_id":"p3","name":"Eggs","price":90,"available":true}`,
}

func fakeCatalog() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := products[strings.TrimPrefix(r.URL.Path, "/products/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

type PipelineSuite struct {
	suite.Suite
	catalogSrv *httptest.Server
	router     *gin.Engine
}

func TestPipelineSuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupSuite() {
	s.catalogSrv = fakeCatalog()
}

func (s *PipelineSuite) TearDownSuite() {
	s.catalogSrv.Close()
}

func (s *PipelineSuite) SetupTest() {
	s.router = s.buildRouter(nil)
}

func (s *PipelineSuite) buildRouter(auth *service.AuthService) *gin.Engine {
	return s.buildRouterWith(auth, nil, nil)
}

func (s *PipelineSuite) buildRouterWith(auth *service.AuthService, publisher service.EventPublisher, idem idempotency.Store) *gin.Engine {
	log := logger.Nop()
	carts := repository.NewMemoryCartRepository()
	catalogClient := catalog.NewClient(s.catalogSrv.URL, time.Second)

	ctl := Controllers{
		Cart:     NewCartController(service.NewCartService(carts, catalogClient, log, nil)),
		Order:    NewOrderController(service.NewOrderService(carts, repository.NewMemoryOrderRepository(), publisher, log, nil)),
		Delivery: NewDeliveryController(service.NewDeliveryService(repository.NewMemoryTrackingRepository(), nil, log, nil, 0)),
		Health:   NewHealthController("order-pipeline"),
	}
	r := gin.New()
	ctl.Register(r, auth, middleware.Idempotency(idem, time.Hour, log))
	return r
}

func (s *PipelineSuite) do(method, path string, body any, bearer string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *PipelineSuite) decode(w *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (s *PipelineSuite) errorCode(w *httptest.ResponseRecorder) string {
	var body dto.ErrorResponse
	s.decode(w, &body)
	return body.Error.Code
}

func (s *PipelineSuite) add(userID, productID string, qty int) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/cart/add", gin.H{"user_id": userID, "product_id": productID, "quantity": qty}, "")
}

func (s *PipelineSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", nil, "")
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"ok","service":"order-pipeline"}`, w.Body.String())
}

func (s *PipelineSuite) TestEndToEnd() {
	s.Equal(http.StatusOK, s.add("u1", "p1", 2).Code)
	w := s.add("u1", "p3", 1)
	s.Require().Equal(http.StatusOK, w.Code)

	var cart dto.CartResponse
	s.decode(w, &cart)
	s.Len(cart.Items, 2)
	s.Equal(190.0, cart.Total)

	w = s.do(http.MethodPost, "/order/u1", nil, "")
	s.Require().Equal(http.StatusCreated, w.Code)
	var placed dto.CheckoutResponse
	s.decode(w, &placed)
	s.Equal(190.0, placed.Total)
	s.Equal(model.OrderPlaced, placed.Status)
	s.Len(placed.OrderID, service.OrderIDLength)

	w = s.do(http.MethodGet, "/cart/u1", nil, "")
	s.decode(w, &cart)
	s.Empty(cart.Items)
	s.Zero(cart.Total)

	w = s.do(http.MethodGet, "/orders/u1", nil, "")
	var orders []dto.OrderResponse
	s.decode(w, &orders)
	s.Require().Len(orders, 1)
	s.Equal(placed.OrderID, orders[0].OrderID)

	w = s.do(http.MethodGet, "/orders/u1/"+placed.OrderID, nil, "")
	s.Equal(http.StatusOK, w.Code)

	trackPath := "/delivery/order/" + placed.OrderID
	w = s.do(http.MethodPost, trackPath+"/track", nil, "")
	s.Require().Equal(http.StatusCreated, w.Code)
	var tracking dto.TrackingResponse
	s.decode(w, &tracking)
	s.Equal(model.StagePlaced, tracking.CurrentStatus)
	s.Len(tracking.History, 1)

	for _, want := range []model.Stage{model.StagePacked, model.StageOutForDelivery, model.StageDelivered} {
		w = s.do(http.MethodPost, trackPath+"/update-status", nil, "")
		s.Require().Equal(http.StatusOK, w.Code)
		var adv dto.AdvanceResponse
		s.decode(w, &adv)
		s.Equal(want, adv.CurrentStatus)
		s.True(adv.Changed)
	}

	w = s.do(http.MethodPost, trackPath+"/update-status", nil, "")
	s.Equal(http.StatusOK, w.Code)
	var adv dto.AdvanceResponse
	s.decode(w, &adv)
	s.Equal(model.StageDelivered, adv.PreviousStatus)
	s.Equal(model.StageDelivered, adv.CurrentStatus)
	s.False(adv.Changed)

	w = s.do(http.MethodGet, trackPath+"/status", nil, "")
	s.decode(w, &tracking)
	s.Equal(model.StageDelivered, tracking.CurrentStatus)
	s.Len(tracking.History, 4)
}

func (s *PipelineSuite) TestAddToCartFailures() {
	w := s.add("u1", "p1", 0)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", s.errorCode(w))

	w = s.do(http.MethodPost, "/cart/add", gin.H{"product_id": "p1", "quantity": 1}, "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", s.errorCode(w))

	w = s.add("u1", "missing", 1)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("PRODUCT_NOT_FOUND", s.errorCode(w))

	w = s.add("u1", "p2", 1)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("PRODUCT_NOT_FOUND", s.errorCode(w))

	w = s.do(http.MethodGet, "/cart/u1", nil, "")
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"user_id":"u1","items":[],"total":0}`, w.Body.String())
}

func (s *PipelineSuite) TestCatalogDownIsUpstreamUnavailable() {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	prev := s.catalogSrv
	s.catalogSrv = down
	s.router = s.buildRouter(nil)
	s.catalogSrv = prev

	w := s.add("u1", "p1", 1)
	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.Equal("UPSTREAM_UNAVAILABLE", s.errorCode(w))
}

func (s *PipelineSuite) TestCheckoutEmptyCart() {
	w := s.do(http.MethodPost, "/order/u9", nil, "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("EMPTY_CART", s.errorCode(w))

	w = s.do(http.MethodGet, "/orders/u9", nil, "")
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`[]`, w.Body.String())
}

func (s *PipelineSuite) TestDeliveryErrors() {
	w := s.do(http.MethodGet, "/delivery/order/NOPE/status", nil, "")
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("NOT_FOUND", s.errorCode(w))

	w = s.do(http.MethodPost, "/delivery/order/NOPE/update-status", nil, "")
	s.Equal(http.StatusNotFound, w.Code)

	s.Equal(http.StatusCreated, s.do(http.MethodPost, "/delivery/order/A1/track", nil, "").Code)
	w = s.do(http.MethodPost, "/delivery/order/A1/track", nil, "")
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("CONFLICT", s.errorCode(w))
}

func (s *PipelineSuite) TestGetOrderOfAnotherUserIsNotFound() {
	s.add("u1", "p1", 1)
	w := s.do(http.MethodPost, "/order/u1", nil, "")
	var placed dto.CheckoutResponse
	s.decode(w, &placed)

	w = s.do(http.MethodGet, "/orders/u2/"+placed.OrderID, nil, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *PipelineSuite) token(sub string, perms ...string) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, service.AuthClaims{
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	s.Require().NoError(err)
	return signed
}

func (s *PipelineSuite) TestAuthEnabled() {
	s.router = s.buildRouter(service.NewAuthService("secret"))
	u1, u2, ops := s.token("u1"), s.token("u2"), s.token("ops", "admin")

	s.Equal(http.StatusOK, s.do(http.MethodGet, "/health", nil, "").Code)
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/cart/u1", nil, "").Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/cart/u1", nil, u1).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/cart/u1", nil, u2).Code)

	body := gin.H{"user_id": "u1", "product_id": "p1", "quantity": 1}
	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/cart/add", body, u2).Code)
	s.Equal(http.StatusOK, s.do(http.MethodPost, "/cart/add", body, u1).Code)

	w := s.do(http.MethodPost, "/order/u1", nil, u1)
	s.Require().Equal(http.StatusCreated, w.Code)
	var placed dto.CheckoutResponse
	s.decode(w, &placed)

	trackPath := "/delivery/order/" + placed.OrderID
	s.Equal(http.StatusCreated, s.do(http.MethodPost, trackPath+"/track", nil, u1).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodPost, trackPath+"/update-status", nil, u1).Code)
	s.Equal(http.StatusOK, s.do(http.MethodPost, trackPath+"/update-status", nil, ops).Code)
}

// blockingPublisher holds PublishOrderPlaced open until released.
type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPublisher) PublishOrderPlaced(context.Context, *model.Order) error {
	close(p.entered)
	<-p.release
	return nil
}

func (p *blockingPublisher) PublishDeliveryAdvanced(context.Context, *model.Tracking, model.Stage) error {
	return nil
}

func (s *PipelineSuite) checkoutWithKey(key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/order/u1", nil)
	req.Header.Set(idempotency.Header, key)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *PipelineSuite) TestCheckoutRetryDuringFirstAttemptKeepsFirstResult() {
	pub := &blockingPublisher{entered: make(chan struct{}), release: make(chan struct{})}
	s.router = s.buildRouterWith(nil, pub, idempotency.NewMemoryStore())
	s.Require().Equal(http.StatusOK, s.add("u1", "p1", 2).Code)

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- s.checkoutWithKey("k1") }()
	<-pub.entered

	// the cart is already cleared while the first checkout publishes
	w := s.checkoutWithKey("k1")
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("CONFLICT", s.errorCode(w))

	close(pub.release)
	first := <-done
	s.Require().Equal(http.StatusCreated, first.Code)

	w = s.checkoutWithKey("k1")
	s.Equal(http.StatusCreated, w.Code)
	s.Equal("true", w.Header().Get("Idempotent-Replayed"))
	s.JSONEq(first.Body.String(), w.Body.String())

	var orders []dto.OrderResponse
	s.decode(s.do(http.MethodGet, "/orders/u1", nil, ""), &orders)
	s.Len(orders, 1)
}
