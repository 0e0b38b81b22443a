package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/landing"
	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// LandingBlocks returns the active landing blocks in display order.
func LandingBlocks(svc landing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "landing service unavailable"))
			return
		}
		blocks, err := svc.Blocks(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if blocks == nil {
			blocks = []backend.LandingBlock{}
		}
		responses.WriteSuccess(w, blocks)
	}
}

// AdminLandingBlocks lists every block, inactive ones included.
func AdminLandingBlocks(svc landing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "landing service unavailable"))
			return
		}
		blocks, err := svc.AllBlocks(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if blocks == nil {
			blocks = []backend.LandingBlock{}
		}
		responses.WriteSuccess(w, blocks)
	}
}

// AdminUpsertLandingBlock creates a block, or updates the one named by the
// {id} route parameter.
func AdminUpsertLandingBlock(svc landing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "landing service unavailable"))
			return
		}

		var input backend.LandingBlockInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if hasRouteParam(r, "id") {
			id, err := validators.ParsePathID(r, "id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.ID = id
			status = http.StatusOK
		}

		block, err := svc.UpsertBlock(r.Context(), middleware.AccessTokenFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, block)
	}
}

// AdminDeleteLandingBlock removes a block.
func AdminDeleteLandingBlock(svc landing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "landing service unavailable"))
			return
		}
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteBlock(r.Context(), middleware.AccessTokenFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// AdminBanners lists hero banners.
func AdminBanners(svc landing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "landing service unavailable"))
			return
		}
		banners, err := svc.ListBanners(r.Context(), middleware.AccessTokenFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if banners == nil {
			banners = []backend.Banner{}
		}
		responses.WriteSuccess(w, banners)
	}
}

type createBannerRequest struct {
	Title    string `json:"title" validate:"required"`
	Subtitle string `json:"subtitle"`
	LinkURL  string `json:"link_url" validate:"omitempty,url"`
	Position int    `json:"position" validate:"gte=0"`
	IsActive bool   `json:"is_active"`
}

// AdminCreateBanner creates a hero banner. The image is uploaded separately.
func AdminCreateBanner(svc landing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "landing service unavailable"))
			return
		}
		var payload createBannerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := backend.BannerInput{
			Title:    validators.SanitizeString(payload.Title, 200),
			Subtitle: validators.SanitizeString(payload.Subtitle, 500),
			LinkURL:  validators.SanitizeString(payload.LinkURL, 2048),
			Position: payload.Position,
			IsActive: payload.IsActive,
		}
		banner, err := svc.CreateBanner(r.Context(), middleware.AccessTokenFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, banner)
	}
}

// AdminDeleteBanner removes a hero banner.
func AdminDeleteBanner(svc landing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "landing service unavailable"))
			return
		}
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteBanner(r.Context(), middleware.AccessTokenFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
