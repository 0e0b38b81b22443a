package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyManagerIsLazyAndStable(t *testing.T) {
	ctx := context.Background()
	kv := pkgredis.NewMemory()
	keys, err := NewKeyManager(kv, time.Hour)
	require.NoError(t, err)

	_, err = kv.Get(ctx, pkgredis.IdempotencyKey("checkout", "s1"))
	require.True(t, pkgredis.IsMiss(err), "nothing is stored before first use")

	first, err := keys.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotEmpty(t, first)
	second, err := keys.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := keys.Get(ctx, "s2")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	require.NoError(t, keys.Clear(ctx, "s1"))
	fresh, err := keys.Get(ctx, "s1")
	require.NoError(t, err)
	assert.NotEqual(t, first, fresh)
}

func TestKeyManagerRejectsEmptySession(t *testing.T) {
	keys, err := NewKeyManager(pkgredis.NewMemory(), time.Hour)
	require.NoError(t, err)
	_, err = keys.Get(context.Background(), " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

type stubSubmitter struct {
	keys  []string
	reqs  []backend.CheckoutRequest
	err   error
	calls int
	// during runs while the backend call is in flight
	during func()
}

func (s *stubSubmitter) SubmitCheckout(_ context.Context, key string, req backend.CheckoutRequest) (backend.CheckoutResult, error) {
	s.calls++
	s.keys = append(s.keys, key)
	s.reqs = append(s.reqs, req)
	if s.during != nil {
		s.during()
	}
	if s.err != nil {
		return backend.CheckoutResult{}, s.err
	}
	return backend.CheckoutResult{Reference: "ORD-1", Status: "pending", Total: decimal.NewFromInt(1500)}, nil
}

func newCheckout(t *testing.T, sub *stubSubmitter) (Service, *cart.Registry) {
	t.Helper()
	carts, err := cart.NewRegistry(cart.NewMemoryRepository())
	require.NoError(t, err)
	keys, err := NewKeyManager(pkgredis.NewMemory(), time.Hour)
	require.NoError(t, err)
	svc, err := NewService(carts, keys, sub, nil)
	require.NoError(t, err)
	return svc, carts
}

func seedCart(t *testing.T, carts *cart.Registry, sessionID string) {
	t.Helper()
	store, err := carts.ForSession(context.Background(), sessionID)
	require.NoError(t, err)
	require.NoError(t, store.AddItem(context.Background(), cart.LineItem{VariantID: 7, Price: decimal.NewFromInt(500), Quantity: 3}))
}

func TestSubmitRequiresItems(t *testing.T) {
	sub := &stubSubmitter{}
	svc, _ := newCheckout(t, sub)
	_, err := svc.Submit(context.Background(), "s", Input{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, 0, sub.calls)
}

func TestSubmitClearsCartAndKeyOnSuccess(t *testing.T) {
	ctx := context.Background()
	sub := &stubSubmitter{}
	svc, carts := newCheckout(t, sub)
	seedCart(t, carts, "s")

	result, err := svc.Submit(ctx, "s", Input{Customer: backend.Customer{Name: "Ada", Email: "ada@example.com", Address: "1 Main"}})
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", result.Reference)
	require.Len(t, sub.reqs, 1)
	assert.Equal(t, []backend.CheckoutItem{{VariantID: 7, Quantity: 3}}, sub.reqs[0].Items)

	store, _ := carts.ForSession(ctx, "s")
	assert.Empty(t, store.Items())

	seedCart(t, carts, "s")
	_, err = svc.Submit(ctx, "s", Input{})
	require.NoError(t, err)
	assert.NotEqual(t, sub.keys[0], sub.keys[1], "a new order gets a new key")
}

func TestRetryAfterFailureReusesKey(t *testing.T) {
	ctx := context.Background()
	sub := &stubSubmitter{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("timeout"), "backend unreachable")}
	svc, carts := newCheckout(t, sub)
	seedCart(t, carts, "s")

	_, err := svc.Submit(ctx, "s", Input{})
	require.Error(t, err)
	store, _ := carts.ForSession(ctx, "s")
	assert.Len(t, store.Items(), 1, "failed checkout keeps the cart")

	sub.err = nil
	_, err = svc.Submit(ctx, "s", Input{})
	require.NoError(t, err)
	require.Len(t, sub.keys, 2)
	assert.Equal(t, sub.keys[0], sub.keys[1])
}

func TestSubmitKeepsItemsAddedDuringSubmission(t *testing.T) {
	ctx := context.Background()
	sub := &stubSubmitter{}
	svc, carts := newCheckout(t, sub)
	seedCart(t, carts, "s")
	store, err := carts.ForSession(ctx, "s")
	require.NoError(t, err)

	sub.during = func() {
		require.NoError(t, store.AddItem(ctx, cart.LineItem{VariantID: 7, Price: decimal.NewFromInt(500), Quantity: 1}))
		require.NoError(t, store.AddItem(ctx, cart.LineItem{VariantID: 8, Price: decimal.NewFromInt(90), Quantity: 2}))
	}

	_, err = svc.Submit(ctx, "s", Input{})
	require.NoError(t, err)
	assert.Equal(t, []backend.CheckoutItem{{VariantID: 7, Quantity: 3}}, sub.reqs[0].Items)

	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(7), items[0].VariantID)
	assert.Equal(t, 1, items[0].Quantity, "only the ordered quantity is taken out")
	assert.Equal(t, int64(8), items[1].VariantID)
	assert.Equal(t, 2, items[1].Quantity)
}
