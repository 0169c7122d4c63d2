package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/TheOksigen/autopart-backend/internal/models"
	"github.com/TheOksigen/autopart-backend/internal/repository"
)

// ImageStore hosts product images
type ImageStore interface {
	Upload(ctx context.Context, source string) (string, error)
	Delete(ctx context.Context, url string) error
}

// ProductEventPublisher announces product changes
type ProductEventPublisher interface {
	PublishProductCreated(ctx context.Context, product *models.Product) error
	PublishProductUpdated(ctx context.Context, product *models.Product, changedFields []string) error
	PublishProductDeleted(ctx context.Context, product *models.Product) error
}

// ManufacturerLookup checks that a referenced manufacturer exists
type ManufacturerLookup interface {
	GetByID(ctx context.Context, id uuid.UUID, withProducts bool) (*models.Manufacturer, error)
}

type ProductsHandler struct {
	repo          repository.ProductStore
	manufacturers ManufacturerLookup
	images        ImageStore
	events        ProductEventPublisher
	defaultLimit  int
	maxLimit      int
	logger        *logrus.Entry
}

func NewProductsHandler(
	repo repository.ProductStore,
	manufacturers ManufacturerLookup,
	images ImageStore,
	events ProductEventPublisher,
	defaultLimit, maxLimit int,
	logger *logrus.Logger,
) *ProductsHandler {
	if defaultLimit < 1 {
		defaultLimit = 10
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &ProductsHandler{
		repo:          repo,
		manufacturers: manufacturers,
		images:        images,
		events:        events,
		defaultLimit:  defaultLimit,
		maxLimit:      maxLimit,
		logger:        logger.WithField("component", "products-handler"),
	}
}

// GetProducts retrieves products list with filtering and pagination
// @Summary List products
// @Tags products
// @Produce json
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(10)
// @Param search query string false "Matches name, OemNo or codeOfProduct"
// @Param manufacturerId query string false "Manufacturer ID"
// @Param inStock query bool false "Stock filter"
// @Success 200 {object} models.ProductListResponse
// @Security BearerAuth
// @Router /products [get]
func (h *ProductsHandler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.defaultLimit)))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = h.defaultLimit
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	filter := models.ProductFilter{
		Page:   page,
		Limit:  limit,
		Search: c.Query("search"),
	}

	if manufacturerID := c.Query("manufacturerId"); manufacturerID != "" {
		id, err := uuid.Parse(manufacturerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "INVALID_ID",
					Message: "Invalid manufacturer ID format",
					Field:   "manufacturerId",
				},
			})
			return
		}
		filter.ManufacturerID = &id
	}
	if inStock, ok := c.GetQuery("inStock"); ok {
		v := inStock == "true"
		filter.InStock = &v
	}

	products, total, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list products")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "Failed to retrieve products",
			},
		})
		return
	}
	if products == nil {
		products = []models.Product{}
	}

	c.JSON(http.StatusOK, models.ProductListResponse{
		Products:    products,
		Total:       total,
		TotalPages:  int((total + int64(limit) - 1) / int64(limit)),
		CurrentPage: page,
	})
}

// GetProduct retrieves a single product by ID
// @Summary Get product
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.Product
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/{id} [get]
func (h *ProductsHandler) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "product")
	if !ok {
		return
	}

	product, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// CreateProduct uploads the image and stores a new product
// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param request body models.CreateProductRequest true "Product"
// @Success 201 {object} models.Product
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products [post]
func (h *ProductsHandler) CreateProduct(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.CreateProductRequest
	if err := c.ShouldBind(&req); err != nil || strings.TrimSpace(req.Image) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Required fields are missing",
			},
		})
		return
	}

	imageURL, err := h.images.Upload(ctx, req.Image)
	if err != nil {
		h.logger.WithError(err).Error("Image upload failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "IMAGE_UPLOAD_FAILED",
				Message: "Error uploading image",
			},
		})
		return
	}

	var manufacturerID *uuid.UUID
	if req.ManufacturerID != nil && *req.ManufacturerID != "" {
		id, ok := h.resolveManufacturer(ctx, *req.ManufacturerID)
		if !ok {
			h.deleteImage(ctx, imageURL)
			respondInvalidManufacturer(c)
			return
		}
		manufacturerID = &id
	}

	product := &models.Product{
		OemNo:           strings.TrimSpace(req.OemNo),
		CodeOfProduct:   strings.TrimSpace(req.CodeOfProduct),
		Image:           imageURL,
		Name:            models.DefaultProductName,
		PriceWithOutKDV: req.PriceWithOutKDV,
		PriceWithKDV:    req.PriceWithKDV,
		Discouisnt:      req.Discouisnt,
		Stock:           req.Stock == nil || *req.Stock,
		ManufacturerID:  manufacturerID,
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		product.Name = name
	}
	if req.Iskonto != nil && strings.TrimSpace(*req.Iskonto) != "" {
		iskonto := strings.TrimSpace(*req.Iskonto)
		product.Iskonto = &iskonto
	}

	created, err := h.repo.CreateWithManufacturer(ctx, product)
	if err != nil {
		h.deleteImage(ctx, imageURL)
		h.logger.WithError(err).Error("Failed to create product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATE_FAILED",
				Message: "Failed to create product",
			},
		})
		return
	}

	if h.events != nil {
		if err := h.events.PublishProductCreated(ctx, created); err != nil {
			h.logger.WithError(err).Warn("Failed to publish product created event")
		}
	}

	c.JSON(http.StatusCreated, created)
}

// UpdateProduct applies the fields present in the request. A new image replaces the hosted one.
// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param request body models.UpdateProductRequest true "Fields to change"
// @Success 200 {object} models.Product
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/{id} [put]
func (h *ProductsHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "product")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	existing, err := h.repo.GetByID(ctx, id)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	updates := make(map[string]interface{})
	var changed []string

	if req.ManufacturerID != nil {
		if *req.ManufacturerID == "" {
			updates["manufacturer_id"] = nil
		} else {
			mid, ok := h.resolveManufacturer(ctx, *req.ManufacturerID)
			if !ok {
				respondInvalidManufacturer(c)
				return
			}
			updates["manufacturer_id"] = mid
		}
		changed = append(changed, "manufacturerId")
	}

	var newImage string
	if req.Image != nil && strings.TrimSpace(*req.Image) != "" {
		newImage, err = h.images.Upload(ctx, *req.Image)
		if err != nil {
			h.logger.WithError(err).Error("Image upload failed")
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "IMAGE_UPLOAD_FAILED",
					Message: "Error uploading image",
				},
			})
			return
		}
		updates["image"] = newImage
		changed = append(changed, models.FieldImage)
	}

	if req.OemNo != nil && strings.TrimSpace(*req.OemNo) != "" {
		updates["oem_no"] = strings.TrimSpace(*req.OemNo)
		changed = append(changed, models.FieldOemNo)
	}
	if req.CodeOfProduct != nil && strings.TrimSpace(*req.CodeOfProduct) != "" {
		updates["code_of_product"] = strings.TrimSpace(*req.CodeOfProduct)
		changed = append(changed, models.FieldCodeOfProduct)
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		updates["name"] = strings.TrimSpace(*req.Name)
		changed = append(changed, models.FieldName)
	}
	if req.PriceWithOutKDV != nil {
		updates["price_without_kdv"] = *req.PriceWithOutKDV
		changed = append(changed, models.FieldPriceWithOutKDV)
	}
	if req.PriceWithKDV != nil {
		updates["price_with_kdv"] = *req.PriceWithKDV
		changed = append(changed, models.FieldPriceWithKDV)
	}
	if req.Discouisnt != nil {
		updates["discouisnt"] = *req.Discouisnt
		changed = append(changed, models.FieldDiscouisnt)
	}
	if req.Iskonto != nil {
		if v := strings.TrimSpace(*req.Iskonto); v != "" {
			updates["iskonto"] = v
		} else {
			updates["iskonto"] = nil
		}
		changed = append(changed, models.FieldIskonto)
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
		changed = append(changed, models.FieldStock)
	}

	updated, err := h.repo.Update(ctx, id, updates)
	if err != nil {
		if newImage != "" {
			h.deleteImage(ctx, newImage)
		}
		if errors.Is(err, repository.ErrNotFound) {
			h.respondLookupError(c, err)
			return
		}
		h.logger.WithError(err).Error("Failed to update product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPDATE_FAILED",
				Message: "Failed to update product",
			},
		})
		return
	}

	if newImage != "" && existing.Image != "" {
		h.deleteImage(ctx, existing.Image)
	}
	if h.events != nil && len(changed) > 0 {
		if err := h.events.PublishProductUpdated(ctx, updated, changed); err != nil {
			h.logger.WithError(err).Warn("Failed to publish product updated event")
		}
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteProduct removes the hosted image and the product
// @Summary Delete product
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/{id} [delete]
func (h *ProductsHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "product")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	existing, err := h.repo.GetByID(ctx, id)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	h.deleteImage(ctx, existing.Image)

	if err := h.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.respondLookupError(c, err)
			return
		}
		h.logger.WithError(err).Error("Failed to delete product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DELETE_FAILED",
				Message: "Failed to delete product",
			},
		})
		return
	}

	if h.events != nil {
		if err := h.events.PublishProductDeleted(ctx, existing); err != nil {
			h.logger.WithError(err).Warn("Failed to publish product deleted event")
		}
	}

	message := "Product deleted successfully"
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: &message,
	})
}

func (h *ProductsHandler) resolveManufacturer(ctx context.Context, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	if _, err := h.manufacturers.GetByID(ctx, id, false); err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// deleteImage is best effort; a stale hosted image is not worth failing the request
func (h *ProductsHandler) deleteImage(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := h.images.Delete(ctx, url); err != nil {
		h.logger.WithError(err).WithField("url", url).Warn("Failed to delete hosted image")
	}
}

func (h *ProductsHandler) respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "NOT_FOUND",
				Message: "Product not found",
			},
		})
		return
	}
	h.logger.WithError(err).Error("Failed to load product")
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "FETCH_FAILED",
			Message: "Failed to retrieve product",
		},
	})
}

func respondInvalidManufacturer(c *gin.Context) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "INVALID_MANUFACTURER",
			Message: "Invalid manufacturer ID",
			Field:   "manufacturerId",
		},
	})
}
