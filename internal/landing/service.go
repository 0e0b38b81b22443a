package landing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/sequence"
)

type cmsClient interface {
	LandingBlocks(ctx context.Context) ([]backend.LandingBlock, error)
	UpsertLandingBlock(ctx context.Context, token string, input backend.LandingBlockInput) (backend.LandingBlock, error)
	DeleteLandingBlock(ctx context.Context, token string, id int64) error
	ListBanners(ctx context.Context, token string) ([]backend.Banner, error)
	CreateBanner(ctx context.Context, token string, input backend.BannerInput) (backend.Banner, error)
	DeleteBanner(ctx context.Context, token string, id int64) error
}

// Service serves landing page content and the admin CMS pass-throughs.
type Service interface {
	Blocks(ctx context.Context) ([]backend.LandingBlock, error)
	AllBlocks(ctx context.Context) ([]backend.LandingBlock, error)
	UpsertBlock(ctx context.Context, token string, input backend.LandingBlockInput) (backend.LandingBlock, error)
	DeleteBlock(ctx context.Context, token string, id int64) error

	ListBanners(ctx context.Context, token string) ([]backend.Banner, error)
	CreateBanner(ctx context.Context, token string, input backend.BannerInput) (backend.Banner, error)
	DeleteBanner(ctx context.Context, token string, id int64) error
}

type service struct {
	client cmsClient
	ttl    time.Duration
	now    func() time.Time

	guard     sequence.Guard
	mu        sync.RWMutex
	blocks    []backend.LandingBlock
	fetchedAt time.Time
}

func NewService(client cmsClient, ttl time.Duration) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	return &service{client: client, ttl: ttl, now: time.Now}, nil
}

// Blocks returns active blocks ordered by position. Results are cached for
// the configured ttl; a fetch that started before a newer fetch or an admin
// edit never replaces the cache.
func (s *service) Blocks(ctx context.Context) ([]backend.LandingBlock, error) {
	if blocks, ok := s.fresh(); ok {
		return blocks, nil
	}

	ticket := s.guard.Begin()
	all, err := s.client.LandingBlocks(ctx)
	if err != nil {
		return nil, err
	}
	blocks := Arrange(all)

	s.guard.Commit(ticket, func() {
		s.mu.Lock()
		s.blocks = blocks
		s.fetchedAt = s.now()
		s.mu.Unlock()
	})
	return cloneBlocks(blocks), nil
}

// AllBlocks returns every block, inactive ones included, for the editor.
func (s *service) AllBlocks(ctx context.Context) ([]backend.LandingBlock, error) {
	all, err := s.client.LandingBlocks(ctx)
	if err != nil {
		return nil, err
	}
	sortBlocks(all)
	return all, nil
}

func (s *service) UpsertBlock(ctx context.Context, token string, input backend.LandingBlockInput) (backend.LandingBlock, error) {
	if strings.TrimSpace(input.Type) == "" {
		return backend.LandingBlock{}, pkgerrors.New(pkgerrors.CodeValidation, "block type is required")
	}
	block, err := s.client.UpsertLandingBlock(ctx, token, input)
	if err != nil {
		return backend.LandingBlock{}, err
	}
	s.invalidate()
	return block, nil
}

func (s *service) DeleteBlock(ctx context.Context, token string, id int64) error {
	if id <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "block id is required")
	}
	if err := s.client.DeleteLandingBlock(ctx, token, id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *service) ListBanners(ctx context.Context, token string) ([]backend.Banner, error) {
	banners, err := s.client.ListBanners(ctx, token)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(banners, func(i, j int) bool { return banners[i].Position < banners[j].Position })
	return banners, nil
}

func (s *service) CreateBanner(ctx context.Context, token string, input backend.BannerInput) (backend.Banner, error) {
	if strings.TrimSpace(input.Title) == "" {
		return backend.Banner{}, pkgerrors.New(pkgerrors.CodeValidation, "banner title is required")
	}
	return s.client.CreateBanner(ctx, token, input)
}

func (s *service) DeleteBanner(ctx context.Context, token string, id int64) error {
	if id <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "banner id is required")
	}
	return s.client.DeleteBanner(ctx, token, id)
}

// invalidate drops the cache and supersedes fetches already in flight.
func (s *service) invalidate() {
	s.guard.Commit(s.guard.Begin(), func() {
		s.mu.Lock()
		s.blocks = nil
		s.fetchedAt = time.Time{}
		s.mu.Unlock()
	})
}

func (s *service) fresh() ([]backend.LandingBlock, bool) {
	if s.ttl <= 0 {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fetchedAt.IsZero() || s.now().Sub(s.fetchedAt) >= s.ttl {
		return nil, false
	}
	return cloneBlocks(s.blocks), true
}

// Arrange keeps active blocks and orders them by position, then id.
func Arrange(blocks []backend.LandingBlock) []backend.LandingBlock {
	out := make([]backend.LandingBlock, 0, len(blocks))
	for _, b := range blocks {
		if b.IsActive {
			out = append(out, b)
		}
	}
	sortBlocks(out)
	return out
}

func sortBlocks(blocks []backend.LandingBlock) {
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Position != blocks[j].Position {
			return blocks[i].Position < blocks[j].Position
		}
		return blocks[i].ID < blocks[j].ID
	})
}

func cloneBlocks(blocks []backend.LandingBlock) []backend.LandingBlock {
	out := make([]backend.LandingBlock, len(blocks))
	copy(out, blocks)
	return out
}
