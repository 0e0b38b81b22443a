package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	listCalls     int
	productCalls  int
	categoryCalls int
	err           error
}

func (c *countingClient) ListProducts(_ context.Context, q backend.ProductQuery) (backend.ProductPage, error) {
	c.listCalls++
	if c.err != nil {
		return backend.ProductPage{}, c.err
	}
	return backend.ProductPage{Count: 1, Results: []backend.Product{{ID: 1, Slug: "shirt", Category: q.Category}}}, nil
}

func (c *countingClient) GetProduct(_ context.Context, slug string) (backend.Product, error) {
	c.productCalls++
	if c.err != nil {
		return backend.Product{}, c.err
	}
	return backend.Product{ID: 1, Slug: slug}, nil
}

func (c *countingClient) ListCategories(context.Context) ([]backend.Category, error) {
	c.categoryCalls++
	return []backend.Category{{ID: 1, Slug: "tops", Name: "Tops"}}, nil
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (string, error) {
	return "", errors.New("redis down")
}

func (brokenCache) Set(context.Context, string, any, time.Duration) error {
	return errors.New("redis down")
}

func TestCatalogCachesResponses(t *testing.T) {
	ctx := context.Background()
	client := &countingClient{}
	svc, err := NewService(client, pkgredis.NewMemory(), time.Minute, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		page, err := svc.ListProducts(ctx, backend.ProductQuery{Category: "tops"})
		require.NoError(t, err)
		assert.Equal(t, "tops", page.Results[0].Category)
	}
	_, err = svc.ListProducts(ctx, backend.ProductQuery{Category: "bottoms"})
	require.NoError(t, err)
	assert.Equal(t, 2, client.listCalls, "distinct queries are cached separately")

	_, _ = svc.GetProduct(ctx, "shirt")
	_, _ = svc.GetProduct(ctx, " Shirt ")
	assert.Equal(t, 1, client.productCalls)

	_, _ = svc.ListCategories(ctx)
	_, _ = svc.ListCategories(ctx)
	assert.Equal(t, 1, client.categoryCalls)
}

func TestCatalogDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	client := &countingClient{err: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}
	svc, err := NewService(client, pkgredis.NewMemory(), time.Minute, nil)
	require.NoError(t, err)

	_, err = svc.GetProduct(ctx, "missing")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, _ = svc.GetProduct(ctx, "missing")
	assert.Equal(t, 2, client.productCalls)
}

func TestCatalogSurvivesCacheOutage(t *testing.T) {
	client := &countingClient{}
	svc, err := NewService(client, brokenCache{}, time.Minute, nil)
	require.NoError(t, err)

	page, err := svc.ListProducts(context.Background(), backend.ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
}

func TestCatalogWithoutCache(t *testing.T) {
	client := &countingClient{}
	svc, err := NewService(client, nil, 0, nil)
	require.NoError(t, err)
	_, _ = svc.ListCategories(context.Background())
	_, _ = svc.ListCategories(context.Background())
	assert.Equal(t, 2, client.categoryCalls)
}
