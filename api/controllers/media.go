package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/media"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const (
	imageField      = "image"
	remoteURLField  = "remoteUrl"
	multipartMemory = 1 << 20
	// multipart framing and form fields on top of the file itself
	multipartSlack = 1 << 20
)

// MediaPreviewSelect registers the image picked for an admin form field and
// returns a URL the form can display. Without a file the remoteUrl form
// value is used.
func MediaPreviewSelect(svc media.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}
		file, err := readMultipartFile(w, r, imageField, maxBytes, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		remoteURL := validators.SanitizeString(r.FormValue(remoteURLField), 2048)

		preview, err := svc.SelectPreview(middleware.SessionIDFromContext(r.Context()), chi.URLParam(r, "target"), file, remoteURL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}

// MediaPreviewClose releases the preview held for an admin form field.
func MediaPreviewClose(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}
		svc.ClosePreview(middleware.SessionIDFromContext(r.Context()), chi.URLParam(r, "target"))
		responses.WriteNoContent(w)
	}
}

// MediaPreviewFile serves the bytes behind a preview reference.
func MediaPreviewFile(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}
		file, ok := svc.OpenPreview(chi.URLParam(r, "ref"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "preview not found"))
			return
		}
		w.Header().Set("Content-Type", file.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
		w.Header().Set("Cache-Control", "private, no-store")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(file.Data)
	}
}

// MediaUploadBannerImage uploads a banner's hero image.
func MediaUploadBannerImage(svc media.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}
		bannerID, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		file, err := readMultipartFile(w, r, imageField, maxBytes, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		banner, err := svc.UploadBannerImage(ctx, middleware.SessionIDFromContext(ctx), middleware.AccessTokenFromContext(ctx), bannerID, *file)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, banner)
	}
}

// MediaDeleteBannerImage removes a banner's hero image.
func MediaDeleteBannerImage(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}
		bannerID, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteBannerImage(r.Context(), middleware.AccessTokenFromContext(r.Context()), bannerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// MediaUploadProductImage adds an image to a product gallery.
func MediaUploadProductImage(svc media.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}
		productID, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		file, err := readMultipartFile(w, r, imageField, maxBytes, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		image, err := svc.UploadProductImage(ctx, middleware.SessionIDFromContext(ctx), middleware.AccessTokenFromContext(ctx), productID, *file)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, image)
	}
}

// MediaDeleteProductImage removes one image from a product gallery.
func MediaDeleteProductImage(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}
		productID, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		imageID, err := validators.ParsePathID(r, "imageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProductImage(r.Context(), middleware.AccessTokenFromContext(r.Context()), productID, imageID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// readMultipartFile reads one file field. A nil file with a nil error means
// the field was absent and optional.
func readMultipartFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64, optional bool) (*media.LocalFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.Wrap(pkgerrors.CodePayloadTooLarge, err, "file is too large").WithDetails(map[string]any{"max_bytes": maxBytes})
		}
		if optional && errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}

	part, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		if optional {
			return nil, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image file is required").WithDetails(map[string]any{"field": field})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	return &media.LocalFile{
		Name:        strings.TrimSpace(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func hasRouteParam(r *http.Request, key string) bool {
	return strings.TrimSpace(chi.URLParam(r, key)) != ""
}
