package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// CartRegistry resolves the cart store bound to a storefront session.
type CartRegistry interface {
	ForSession(ctx context.Context, sessionID string) (*cart.Store, error)
}

type cartResponse struct {
	Items      []cart.LineItem `json:"items"`
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

func newCartResponse(store *cart.Store) cartResponse {
	snap := store.Snapshot()
	items := snap.Items
	if items == nil {
		items = []cart.LineItem{}
	}
	return cartResponse{Items: items, TotalItems: snap.Totals.TotalItems, TotalPrice: snap.Totals.TotalPrice}
}

// Quantities are capped at cart.MaxQuantity. The store ignores non-positive
// adds and treats a non-positive update as a removal.
type addCartItemRequest struct {
	VariantID    int64           `json:"variantId" validate:"required,gt=0"`
	ProductName  string          `json:"productName"`
	VariantLabel string          `json:"variantLabel"`
	Image        string          `json:"image"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity" validate:"lte=999"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,lte=999"`
}

// CartGet returns the session's cart with derived totals.
func CartGet(carts CartRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(carts, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		responses.WriteSuccess(w, newCartResponse(store))
	})
}

// CartAddItem merges a line item into the cart.
func CartAddItem(carts CartRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(carts, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Price.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative").WithDetails(map[string]any{"field": "price"}))
			return
		}
		item := cart.LineItem{
			VariantID:    payload.VariantID,
			ProductName:  validators.SanitizeString(payload.ProductName, 200),
			VariantLabel: validators.SanitizeString(payload.VariantLabel, 100),
			Image:        validators.SanitizeString(payload.Image, 2048),
			Price:        payload.Price,
			Quantity:     payload.Quantity,
		}
		if err := store.AddItem(r.Context(), item); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	})
}

// CartUpdateItem sets a variant's quantity.
func CartUpdateItem(carts CartRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(carts, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		variantID, err := validators.ParsePathID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.UpdateQuantity(r.Context(), variantID, *payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	})
}

// CartRemoveItem drops a variant. Removing an absent variant succeeds.
func CartRemoveItem(carts CartRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(carts, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		variantID, err := validators.ParsePathID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.RemoveItem(r.Context(), variantID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	})
}

// CartClear empties the cart.
func CartClear(carts CartRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(carts, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		if err := store.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	})
}

// CartRehydrate reloads the cart from durable storage, for example after
// another tab changed it.
func CartRehydrate(carts CartRegistry, logg *logger.Logger) http.HandlerFunc {
	return withCart(carts, logg, func(w http.ResponseWriter, r *http.Request, store *cart.Store) {
		if err := store.Rehydrate(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	})
}

func withCart(carts CartRegistry, logg *logger.Logger, fn func(http.ResponseWriter, *http.Request, *cart.Store)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		store, err := carts.ForSession(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fn(w, r, store)
	}
}
