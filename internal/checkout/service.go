package checkout

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type cartRegistry interface {
	ForSession(ctx context.Context, sessionID string) (*cart.Store, error)
}

type keyManager interface {
	Get(ctx context.Context, sessionID string) (string, error)
	Clear(ctx context.Context, sessionID string) error
}

type submitter interface {
	SubmitCheckout(ctx context.Context, idempotencyKey string, req backend.CheckoutRequest) (backend.CheckoutResult, error)
}

// Service submits the session's cart to the backend as an order.
type Service interface {
	Submit(ctx context.Context, sessionID string, input Input) (backend.CheckoutResult, error)
}

// Input is the shopper-provided part of a checkout.
type Input struct {
	Customer backend.Customer
}

type service struct {
	carts   cartRegistry
	keys    keyManager
	backend submitter
	logg    *logger.Logger
}

func NewService(carts cartRegistry, keys keyManager, client submitter, logg *logger.Logger) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart registry required")
	}
	if keys == nil {
		return nil, fmt.Errorf("key manager required")
	}
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{carts: carts, keys: keys, backend: client, logg: logg}, nil
}

// Submit places the order. A failed submission keeps both the cart and the
// idempotency key so a retry deduplicates on the backend. After success the
// key is cleared and the ordered quantities are taken out of the cart; items
// added while the order was in flight stay. Failing to clear is logged, not
// returned, because the order already exists.
func (s *service) Submit(ctx context.Context, sessionID string, input Input) (backend.CheckoutResult, error) {
	store, err := s.carts.ForSession(ctx, sessionID)
	if err != nil {
		return backend.CheckoutResult{}, err
	}
	items := store.Items()
	if len(items) == 0 {
		return backend.CheckoutResult{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	key, err := s.keys.Get(ctx, sessionID)
	if err != nil {
		return backend.CheckoutResult{}, err
	}

	req := backend.CheckoutRequest{Customer: input.Customer, Items: make([]backend.CheckoutItem, 0, len(items))}
	for _, item := range items {
		req.Items = append(req.Items, backend.CheckoutItem{VariantID: item.VariantID, Quantity: item.Quantity})
	}

	result, err := s.backend.SubmitCheckout(ctx, key, req)
	if err != nil {
		return backend.CheckoutResult{}, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"order_reference": result.Reference})
	if err := s.keys.Clear(ctx, sessionID); err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "failed to clear checkout idempotency key")
	}
	if err := store.Subtract(ctx, items); err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "failed to clear cart after checkout")
	}
	s.logg.Info(logCtx, "checkout submitted")
	return result, nil
}
