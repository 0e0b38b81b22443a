package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/ui"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// UIRegistry resolves the drawer and modal state of a session.
type UIRegistry interface {
	ForSession(sessionID string) *ui.Store
}

type openModalRequest struct {
	Target string `json:"target" validate:"required"`
}

// UIGet returns the session's UI state.
func UIGet(states UIRegistry, logg *logger.Logger) http.HandlerFunc {
	return withUI(states, logg, func(w http.ResponseWriter, r *http.Request, store *ui.Store) {
		responses.WriteSuccess(w, store.State())
	})
}

// UIOpenCart opens the cart drawer.
func UIOpenCart(states UIRegistry, logg *logger.Logger) http.HandlerFunc {
	return withUI(states, logg, func(w http.ResponseWriter, r *http.Request, store *ui.Store) {
		store.OpenCart()
		responses.WriteSuccess(w, store.State())
	})
}

// UICloseCart closes the cart drawer.
func UICloseCart(states UIRegistry, logg *logger.Logger) http.HandlerFunc {
	return withUI(states, logg, func(w http.ResponseWriter, r *http.Request, store *ui.Store) {
		store.CloseCart()
		responses.WriteSuccess(w, store.State())
	})
}

// UIOpenModal opens the add-to-cart modal for a product.
func UIOpenModal(states UIRegistry, logg *logger.Logger) http.HandlerFunc {
	return withUI(states, logg, func(w http.ResponseWriter, r *http.Request, store *ui.Store) {
		var payload openModalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.OpenAddToCartModal(validators.SanitizeString(payload.Target, 200))
		responses.WriteSuccess(w, store.State())
	})
}

// UICloseModal closes the add-to-cart modal.
func UICloseModal(states UIRegistry, logg *logger.Logger) http.HandlerFunc {
	return withUI(states, logg, func(w http.ResponseWriter, r *http.Request, store *ui.Store) {
		store.CloseAddToCartModal()
		responses.WriteSuccess(w, store.State())
	})
}

func withUI(states UIRegistry, logg *logger.Logger, fn func(http.ResponseWriter, *http.Request, *ui.Store)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if states == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ui state unavailable"))
			return
		}
		sid := middleware.SessionIDFromContext(r.Context())
		if sid == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id required"))
			return
		}
		fn(w, r, states.ForSession(sid))
	}
}
