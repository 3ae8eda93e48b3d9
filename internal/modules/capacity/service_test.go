package capacity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightjarhq/nightjar-backend/internal/modules/capacity"
	"github.com/nightjarhq/nightjar-backend/internal/store"
)

func newService(t *testing.T) capacity.Service {
	t.Helper()
	return capacity.NewService(capacity.NewDocRepository(store.NewMemory()))
}

func TestDeclareAndGet(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	pc, err := svc.Declare(ctx, "prod-a", "item-1", capacity.DeclareRequest{CurrentStock: 10, CapacityPerDay: 5})
	require.NoError(t, err)
	assert.Equal(t, capacity.ItemCapacity{CurrentStock: 10, CapacityPerDay: 5}, pc.Items["item-1"])

	// A second declaration for the same item replaces the first.
	pc, err = svc.Declare(ctx, "prod-a", "item-1", capacity.DeclareRequest{CurrentStock: 2, CapacityPerDay: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, pc.Items["item-1"].CurrentStock)

	got, err := svc.Get(ctx, "prod-a")
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestGetUnknownProducerIsEmptyNotError(t *testing.T) {
	svc := newService(t)

	pc, err := svc.Get(context.Background(), "prod-missing")
	require.NoError(t, err)
	assert.Empty(t, pc.Items)
}

func TestDeclareValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Declare(ctx, "prod-a", "item-1", capacity.DeclareRequest{CurrentStock: -1})
	assert.ErrorContains(t, err, "negative")

	_, err = svc.Declare(ctx, "prod-a", "item-1", capacity.DeclareRequest{CapacityPerDay: -1})
	assert.ErrorContains(t, err, "negative")

	_, err = svc.Declare(ctx, "prod-a", "item-1", capacity.DeclareRequest{})
	assert.ErrorContains(t, err, "stock or daily capacity")
}

func TestRemove(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Declare(ctx, "prod-a", "item-1", capacity.DeclareRequest{CurrentStock: 10})
	require.NoError(t, err)

	pc, err := svc.Remove(ctx, "prod-a", "item-1")
	require.NoError(t, err)
	assert.Empty(t, pc.Items)

	_, err = svc.Remove(ctx, "prod-a", "item-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListAllIsSortedByProducer(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for _, id := range []string{"prod-c", "prod-a", "prod-b"} {
		_, err := svc.Declare(ctx, id, "item-1", capacity.DeclareRequest{CurrentStock: 1})
		require.NoError(t, err)
	}

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "prod-a", all[0].ProducerID)
	assert.Equal(t, "prod-b", all[1].ProducerID)
	assert.Equal(t, "prod-c", all[2].ProducerID)
}
