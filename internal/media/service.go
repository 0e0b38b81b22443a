package media

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type backendClient interface {
	UploadBannerImage(ctx context.Context, token string, bannerID int64, upload backend.Upload) (backend.Banner, error)
	DeleteBannerImage(ctx context.Context, token string, bannerID int64) error
	UploadProductImage(ctx context.Context, token string, productID int64, upload backend.Upload) (backend.ProductImage, error)
	DeleteProductImage(ctx context.Context, token string, productID, imageID int64) error
}

// Service exposes the admin image flows: local previews while editing and
// upload/delete against the backend.
type Service interface {
	SelectPreview(owner, target string, file *LocalFile, remoteURL string) (Preview, error)
	ClosePreview(owner, target string)
	CloseOwner(owner string)
	OpenPreview(ref string) (LocalFile, bool)
	// Sweep drops previews of owners idle longer than maxIdle.
	Sweep(maxIdle time.Duration) int
	Len() int

	UploadBannerImage(ctx context.Context, owner, token string, bannerID int64, file LocalFile) (backend.Banner, error)
	DeleteBannerImage(ctx context.Context, token string, bannerID int64) error
	UploadProductImage(ctx context.Context, owner, token string, productID int64, file LocalFile) (backend.ProductImage, error)
	DeleteProductImage(ctx context.Context, token string, productID, imageID int64) error
}

type service struct {
	backend  backendClient
	cache    *PreviewCache
	slots    *Slots
	maxBytes int64
}

// NewService constructs the admin media service.
func NewService(client backendClient, cache *PreviewCache, maxBytes int64) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if cache == nil {
		return nil, fmt.Errorf("preview cache required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be positive")
	}
	return &service{
		backend:  client,
		cache:    cache,
		slots:    NewSlots(cache),
		maxBytes: maxBytes,
	}, nil
}

// Target names the form field a preview belongs to, e.g. "banner:5".
func Target(kind Kind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// ParseTarget splits a target back into kind and id.
func ParseTarget(target string) (Kind, int64, error) {
	kindPart, idPart, ok := strings.Cut(strings.TrimSpace(target), ":")
	if !ok {
		return "", 0, pkgerrors.New(pkgerrors.CodeValidation, "target must look like <kind>:<id>")
	}
	kind := Kind(strings.ToLower(kindPart))
	if _, known := mimeTypesByKind[kind]; !known {
		return "", 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown target kind %q", kindPart))
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, pkgerrors.New(pkgerrors.CodeValidation, "target id must be a positive integer")
	}
	return kind, id, nil
}

func (s *service) SelectPreview(owner, target string, file *LocalFile, remoteURL string) (Preview, error) {
	kind, id, err := ParseTarget(target)
	if err != nil {
		return Preview{}, err
	}
	if file != nil {
		validated, err := ValidateUpload(kind, *file, s.maxBytes)
		if err != nil {
			return Preview{}, err
		}
		file = &validated
	}
	preview, err := s.slots.ForOwner(owner, Target(kind, id)).Select(file, remoteURL)
	if errors.Is(err, ErrNoPreview) {
		return Preview{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "a file or image url is required")
	}
	return preview, err
}

func (s *service) ClosePreview(owner, target string) {
	if kind, id, err := ParseTarget(target); err == nil {
		target = Target(kind, id)
	}
	s.slots.Close(owner, strings.TrimSpace(target))
}

func (s *service) CloseOwner(owner string) {
	s.slots.CloseOwner(owner)
}

func (s *service) Sweep(maxIdle time.Duration) int {
	return s.slots.Sweep(maxIdle)
}

func (s *service) Len() int {
	return s.slots.Len()
}

func (s *service) OpenPreview(ref string) (LocalFile, bool) {
	if !strings.HasPrefix(ref, refPrefix) {
		return LocalFile{}, false
	}
	return s.cache.Open(ref)
}

func (s *service) UploadBannerImage(ctx context.Context, owner, token string, bannerID int64, file LocalFile) (backend.Banner, error) {
	if bannerID <= 0 {
		return backend.Banner{}, pkgerrors.New(pkgerrors.CodeValidation, "banner id is required")
	}
	validated, err := ValidateUpload(KindBanner, file, s.maxBytes)
	if err != nil {
		return backend.Banner{}, err
	}
	banner, err := s.backend.UploadBannerImage(ctx, token, bannerID, toUpload(validated))
	if err != nil {
		return backend.Banner{}, err
	}
	s.slots.Close(owner, Target(KindBanner, bannerID))
	return banner, nil
}

func (s *service) DeleteBannerImage(ctx context.Context, token string, bannerID int64) error {
	if bannerID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "banner id is required")
	}
	return s.backend.DeleteBannerImage(ctx, token, bannerID)
}

func (s *service) UploadProductImage(ctx context.Context, owner, token string, productID int64, file LocalFile) (backend.ProductImage, error) {
	if productID <= 0 {
		return backend.ProductImage{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	validated, err := ValidateUpload(KindProduct, file, s.maxBytes)
	if err != nil {
		return backend.ProductImage{}, err
	}
	image, err := s.backend.UploadProductImage(ctx, token, productID, toUpload(validated))
	if err != nil {
		return backend.ProductImage{}, err
	}
	s.slots.Close(owner, Target(KindProduct, productID))
	return image, nil
}

func (s *service) DeleteProductImage(ctx context.Context, token string, productID, imageID int64) error {
	if productID <= 0 || imageID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id and image id are required")
	}
	return s.backend.DeleteProductImage(ctx, token, productID, imageID)
}

func toUpload(file LocalFile) backend.Upload {
	return backend.Upload{FileName: file.Name, ContentType: file.ContentType, Data: file.Data}
}
