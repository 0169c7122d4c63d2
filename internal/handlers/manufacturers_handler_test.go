package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheOksigen/autopart-backend/internal/models"
	"github.com/TheOksigen/autopart-backend/internal/repository"
	"github.com/TheOksigen/autopart-backend/internal/testutil"
)

func newManufacturersRouter(t *testing.T) (*gin.Engine, *repository.ManufacturerRepository, *repository.ProductsRepository) {
	t.Helper()
	db := testutil.NewTestDB(t)
	manufacturers := repository.NewManufacturerRepository(db, nil)
	products := repository.NewProductsRepository(db, nil)
	h := NewManufacturersHandler(manufacturers, quietLogger())

	router := setupTestRouter()
	router.GET("/manufacturers", h.GetManufacturers)
	router.GET("/manufacturers/:id", h.GetManufacturer)
	router.POST("/manufacturers", h.CreateManufacturer)
	router.DELETE("/manufacturers/:id", h.DeleteManufacturer)
	return router, manufacturers, products
}

func TestCreateManufacturer(t *testing.T) {
	router, _, _ := newManufacturersRouter(t)

	w := performRequest(router, http.MethodPost, "/manufacturers", map[string]string{"name": "  Bosch  "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var m models.Manufacturer
	decodeBody(t, w, &m)
	assert.Equal(t, "Bosch", m.Name)

	w = performRequest(router, http.MethodPost, "/manufacturers", map[string]string{"name": "BOSCH"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_NAME", decodeError(t, w).Code)

	w = performRequest(router, http.MethodPost, "/manufacturers", map[string]string{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Manufacturer name is required", decodeError(t, w).Message)
}

func TestGetManufacturers_OrderedByName(t *testing.T) {
	router, manufacturers, _ := newManufacturersRouter(t)
	ctx := context.Background()
	for _, name := range []string{"Valeo", "Bosch", "Mahle"} {
		_, err := manufacturers.Create(ctx, name)
		require.NoError(t, err)
	}

	w := performRequest(router, http.MethodGet, "/manufacturers", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []models.Manufacturer
	decodeBody(t, w, &list)
	require.Len(t, list, 3)
	assert.Equal(t, "Bosch", list[0].Name)
	assert.Equal(t, "Valeo", list[2].Name)
}

func TestGetManufacturer_WithProducts(t *testing.T) {
	router, manufacturers, products := newManufacturersRouter(t)
	ctx := context.Background()
	m, err := manufacturers.Create(ctx, "Bosch")
	require.NoError(t, err)

	_, err = products.CreateWithManufacturer(ctx, &models.Product{
		OemNo: "A1", CodeOfProduct: "C1", Image: "a.jpg", Name: "Pad",
		PriceWithOutKDV: 1, PriceWithKDV: 2, Stock: true, ManufacturerID: &m.ID,
	})
	require.NoError(t, err)

	w := performRequest(router, http.MethodGet, "/manufacturers/"+m.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Manufacturer
	decodeBody(t, w, &got)
	require.Len(t, got.Products, 1)
	assert.Equal(t, "A1", got.Products[0].OemNo)

	w = performRequest(router, http.MethodGet, "/manufacturers/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(router, http.MethodGet, "/manufacturers/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid manufacturer ID format", decodeError(t, w).Message)
}

func TestDeleteManufacturer(t *testing.T) {
	router, manufacturers, products := newManufacturersRouter(t)
	ctx := context.Background()

	used, err := manufacturers.Create(ctx, "Bosch")
	require.NoError(t, err)
	_, err = products.CreateWithManufacturer(ctx, &models.Product{
		OemNo: "A1", CodeOfProduct: "C1", Image: "a.jpg", Name: "Pad",
		PriceWithOutKDV: 1, PriceWithKDV: 2, Stock: true, ManufacturerID: &used.ID,
	})
	require.NoError(t, err)

	w := performRequest(router, http.MethodDelete, "/manufacturers/"+used.ID.String(), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	var blocked models.DeleteBlockedResponse
	decodeBody(t, w, &blocked)
	assert.Equal(t, "MANUFACTURER_IN_USE", blocked.Error.Code)
	assert.Equal(t, int64(1), blocked.Blocked.OtherCount)

	unused, err := manufacturers.Create(ctx, "Valeo")
	require.NoError(t, err)

	w = performRequest(router, http.MethodDelete, "/manufacturers/"+unused.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = performRequest(router, http.MethodDelete, "/manufacturers/"+unused.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
