package repository

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/TheOksigen/autopart-backend/internal/models"
)

// Cache TTL constants
const (
	ProductCacheTTL     = 5 * time.Minute // Single product cache
	ProductListCacheTTL = 2 * time.Minute // Product list cache (shorter due to frequent changes)
)

const cacheKeyPrefix = "autopart:products:"

type ProductsRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewProductsRepository(db *gorm.DB, redis *redis.Client) *ProductsRepository {
	return &ProductsRepository{
		db:    db,
		redis: redis,
	}
}

var _ ProductStore = (*ProductsRepository)(nil)

// generateListCacheKey creates a deterministic cache key for list queries
func generateListCacheKey(params interface{}) string {
	data, _ := json.Marshal(params)
	hash := md5.Sum(data)
	return fmt.Sprintf("%slist:%s", cacheKeyPrefix, hex.EncodeToString(hash[:]))
}

func productCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("%sproduct:%s", cacheKeyPrefix, id.String())
}

// invalidateProductCaches invalidates all caches related to a product
func (r *ProductsRepository) invalidateProductCaches(ctx context.Context, productID uuid.UUID) {
	if r.redis == nil {
		return
	}
	_ = r.redis.Del(ctx, productCacheKey(productID)).Err()
	r.invalidateListCaches(ctx)
}

// invalidateListCaches drops every cached list page
func (r *ProductsRepository) invalidateListCaches(ctx context.Context) {
	if r.redis == nil {
		return
	}
	iter := r.redis.Scan(ctx, 0, cacheKeyPrefix+"list:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		_ = r.redis.Del(ctx, keys...).Err()
	}
}

// CreateWithManufacturer inserts the product and returns it reloaded with its Manufacturer
func (r *ProductsRepository) CreateWithManufacturer(ctx context.Context, product *models.Product) (*models.Product, error) {
	product.Manufacturer = nil
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	r.invalidateListCaches(ctx)

	var created models.Product
	if err := r.db.WithContext(ctx).Preload("Manufacturer").First(&created, "id = ?", product.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload product: %w", err)
	}
	return &created, nil
}

// GetByID retrieves a product with its manufacturer, using the cache when available
func (r *ProductsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	cacheKey := productCacheKey(id)

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var product models.Product
			if err := json.Unmarshal([]byte(val), &product); err == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Manufacturer").First(&product, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}

	if r.redis != nil {
		data, err := json.Marshal(product)
		if err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductCacheTTL)
		}
	}

	return &product, nil
}

type listCachePayload struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
}

// List retrieves products with filters and pagination, ordered by name
func (r *ProductsRepository) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	cacheKey := generateListCacheKey(filter)
	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var cached listCachePayload
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return cached.Products, cached.Total, nil
			}
		}
	}

	var products []models.Product
	var total int64

	query := r.applyProductFilters(r.db.WithContext(ctx).Model(&models.Product{}), filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Preload("Manufacturer").
		Order("name ASC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(listCachePayload{Products: products, Total: total}); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductListCacheTTL)
		}
	}

	return products, total, nil
}

// Update applies a partial update and returns the fresh row
func (r *ProductsRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.Product, error) {
	var existing models.Product
	if err := r.db.WithContext(ctx).First(&existing, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}

	if len(updates) > 0 {
		updates["updated_at"] = time.Now()
		if err := r.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
		r.invalidateProductCaches(ctx, id)
	}

	var updated models.Product
	if err := r.db.WithContext(ctx).Preload("Manufacturer").First(&updated, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &updated, nil
}

func (r *ProductsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	r.invalidateProductCaches(ctx, id)
	return nil
}

func (r *ProductsRepository) applyProductFilters(query *gorm.DB, filter models.ProductFilter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(oem_no) LIKE ? OR LOWER(code_of_product) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if filter.ManufacturerID != nil {
		query = query.Where("manufacturer_id = ?", *filter.ManufacturerID)
	}
	if filter.InStock != nil {
		query = query.Where("stock = ?", *filter.InStock)
	}
	return query
}
