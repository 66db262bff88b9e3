package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"order-pipeline/internal/catalog"
	"order-pipeline/internal/errs"
	"order-pipeline/internal/logger"
	"order-pipeline/internal/metrics"
	"order-pipeline/internal/model"
	"order-pipeline/internal/repository"
)

type CartService struct {
	carts   CartRepository
	catalog ProductCatalog
	log     *logger.Logger
	metrics *metrics.Collectors
	now     func() time.Time
}

func NewCartService(carts CartRepository, products ProductCatalog, log *logger.Logger, m *metrics.Collectors) *CartService {
	return &CartService{carts: carts, catalog: products, log: log, metrics: m, now: utcNow}
}

// AddItem snapshots the product's current catalog price into a new cart line.
// Lines are always appended; repeated adds of one product are not merged.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*model.Cart, error) {
	userID = strings.TrimSpace(userID)
	productID = strings.TrimSpace(productID)
	switch {
	case userID == "":
		return nil, errs.New(errs.CodeValidation, "user_id is required")
	case productID == "":
		return nil, errs.New(errs.CodeValidation, "product_id is required")
	case quantity < 1:
		return nil, errs.Newf(errs.CodeValidation, "quantity must be at least 1, got %d", quantity)
	}

	ctx = s.log.WithUserID(ctx, userID)

	product, err := s.catalog.GetProduct(ctx, productID)
	s.metrics.ObserveCatalogLookup(err)
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, catalog.ErrUnavailable):
		return nil, errs.Wrap(errs.CodeProductNotFound, err, "product "+productID+" not found or unavailable")
	case err != nil:
		s.log.Warn(ctx, "catalog lookup failed", err)
		return nil, errs.Wrap(errs.CodeUpstreamUnavailable, err, "product catalog unavailable")
	}

	line := model.CartLine{
		LineID:    uuid.NewString(),
		ProductID: productID,
		Name:      product.Name,
		Price:     product.Price,
		Quantity:  quantity,
	}
	cart, err := s.carts.AppendLine(ctx, userID, line, s.now())
	if err != nil {
		s.log.Error(ctx, "appending cart line", err)
		return nil, errs.Wrap(errs.CodeInternal, err, "could not update cart")
	}

	s.metrics.CartLineAdded()
	s.log.Zerolog(ctx).Info().
		Str("product_id", productID).
		Int("quantity", quantity).
		Float64("price", product.Price).
		Msg("cart line added")
	return cart, nil
}

// GetCart never fails for a missing cart; it reports an empty one instead.
func (s *CartService) GetCart(ctx context.Context, userID string) (*model.Cart, error) {
	cart, err := s.carts.FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.Cart{UserID: userID, Items: []model.CartLine{}}, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "could not load cart")
	}
	return cart, nil
}
