package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheOksigen/autopart-backend/internal/models"
	"github.com/TheOksigen/autopart-backend/internal/testutil"
)

func newTestProduct(oemNo string, manufacturerID *uuid.UUID) *models.Product {
	return &models.Product{
		OemNo:           oemNo,
		CodeOfProduct:   "C-" + oemNo,
		Image:           "https://cdn.example.com/" + oemNo + ".jpg",
		Name:            "Part " + oemNo,
		PriceWithOutKDV: 10,
		PriceWithKDV:    12,
		Stock:           true,
		ManufacturerID:  manufacturerID,
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestProductsRepository_CreateWithManufacturer(t *testing.T) {
	db := testutil.NewTestDB(t)
	manufacturers := NewManufacturerRepository(db, nil)
	repo := NewProductsRepository(db, nil)
	ctx := context.Background()

	m, err := manufacturers.Create(ctx, "Bosch")
	require.NoError(t, err)

	created, err := repo.CreateWithManufacturer(ctx, newTestProduct("A1", &m.ID))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	require.NotNil(t, created.Manufacturer)
	assert.Equal(t, "Bosch", created.Manufacturer.Name)

	orphan, err := repo.CreateWithManufacturer(ctx, newTestProduct("A2", nil))
	require.NoError(t, err)
	assert.Nil(t, orphan.ManufacturerID)
	assert.Nil(t, orphan.Manufacturer)
}

func TestProductsRepository_StoresFalseStock(t *testing.T) {
	repo := NewProductsRepository(testutil.NewTestDB(t), nil)
	ctx := context.Background()

	p := newTestProduct("A1", nil)
	p.Stock = false
	created, err := repo.CreateWithManufacturer(ctx, p)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Stock)
}

func TestProductsRepository_ListFilters(t *testing.T) {
	db := testutil.NewTestDB(t)
	manufacturers := NewManufacturerRepository(db, nil)
	repo := NewProductsRepository(db, nil)
	ctx := context.Background()

	m, err := manufacturers.Create(ctx, "Bosch")
	require.NoError(t, err)

	brake := newTestProduct("BRK-1", &m.ID)
	brake.Name = "Brake pad"
	_, err = repo.CreateWithManufacturer(ctx, brake)
	require.NoError(t, err)

	filter := newTestProduct("FLT-1", nil)
	filter.Name = "Air filter"
	filter.Stock = false
	_, err = repo.CreateWithManufacturer(ctx, filter)
	require.NoError(t, err)

	all, total, err := repo.List(ctx, models.ProductFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, all, 2)
	assert.Equal(t, "Air filter", all[0].Name)

	found, total, err := repo.List(ctx, models.ProductFilter{Page: 1, Limit: 10, Search: "brk"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "BRK-1", found[0].OemNo)

	inStock := false
	found, _, err = repo.List(ctx, models.ProductFilter{Page: 1, Limit: 10, InStock: &inStock})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "FLT-1", found[0].OemNo)

	found, _, err = repo.List(ctx, models.ProductFilter{Page: 1, Limit: 10, ManufacturerID: &m.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Bosch", found[0].Manufacturer.Name)

	page2, total, err := repo.List(ctx, models.ProductFilter{Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page2, 1)
	assert.Equal(t, "Brake pad", page2[0].Name)
}

func TestProductsRepository_UpdateAndDelete(t *testing.T) {
	repo := NewProductsRepository(testutil.NewTestDB(t), nil)
	ctx := context.Background()

	created, err := repo.CreateWithManufacturer(ctx, newTestProduct("A1", nil))
	require.NoError(t, err)

	updated, err := repo.Update(ctx, created.ID, map[string]interface{}{"name": "Renamed", "stock": false})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.False(t, updated.Stock)

	_, err = repo.Update(ctx, uuid.New(), map[string]interface{}{"name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, created.ID))
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), ErrNotFound)
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductsRepository_CacheInvalidation(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewProductsRepository(testutil.NewTestDB(t), client)
	ctx := context.Background()

	created, err := repo.CreateWithManufacturer(ctx, newTestProduct("A1", nil))
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(productCacheKey(created.ID)))

	_, _, err = repo.List(ctx, models.ProductFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	listKey := generateListCacheKey(models.ProductFilter{Page: 1, Limit: 10})
	assert.True(t, mr.Exists(listKey))

	updated, err := repo.Update(ctx, created.ID, map[string]interface{}{"name": "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.False(t, mr.Exists(productCacheKey(created.ID)))
	assert.False(t, mr.Exists(listKey))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}
