package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/TheOksigen/autopart-backend/internal/models"
)

// ManufacturerListCacheTTL bounds staleness of the manufacturer list
const ManufacturerListCacheTTL = 30 * time.Minute

const manufacturerListKey = "autopart:manufacturers:list"

type ManufacturerRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewManufacturerRepository(db *gorm.DB, redis *redis.Client) *ManufacturerRepository {
	return &ManufacturerRepository{db: db, redis: redis}
}

var _ ManufacturerStore = (*ManufacturerRepository)(nil)

// FindByNameCaseInsensitive returns ErrNotFound when no manufacturer matches
func (r *ManufacturerRepository) FindByNameCaseInsensitive(ctx context.Context, name string) (*models.Manufacturer, error) {
	var m models.Manufacturer
	err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&m).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &m, nil
}

// Create inserts a manufacturer. A case-insensitive name clash yields ErrDuplicate.
func (r *ManufacturerRepository) Create(ctx context.Context, name string) (*models.Manufacturer, error) {
	m := models.Manufacturer{Name: name}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("manufacturer %q: %w", name, ErrDuplicate)
		}
		return nil, err
	}
	r.invalidateList(ctx)
	return &m, nil
}

// FindOrCreate resolves a manufacturer by name ignoring case, creating it when absent.
// A concurrent creator winning the unique index race is resolved by re-reading.
// The boolean reports whether this call created the row.
func (r *ManufacturerRepository) FindOrCreate(ctx context.Context, name string) (*models.Manufacturer, bool, error) {
	existing, err := r.FindByNameCaseInsensitive(ctx, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("failed to lookup manufacturer: %w", err)
	}

	created, err := r.Create(ctx, name)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return nil, false, fmt.Errorf("failed to create manufacturer '%s': %w", name, err)
	}

	existing, err = r.FindByNameCaseInsensitive(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reload manufacturer '%s': %w", name, err)
	}
	return existing, false, nil
}

func (r *ManufacturerRepository) GetByID(ctx context.Context, id uuid.UUID, withProducts bool) (*models.Manufacturer, error) {
	var m models.Manufacturer
	query := r.db.WithContext(ctx)
	if withProducts {
		query = query.Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Order("name ASC")
		})
	}
	if err := query.First(&m, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &m, nil
}

// List returns all manufacturers ordered by name, served from redis when cached
func (r *ManufacturerRepository) List(ctx context.Context) ([]models.Manufacturer, error) {
	if r.redis != nil {
		if val, err := r.redis.Get(ctx, manufacturerListKey).Result(); err == nil {
			var cached []models.Manufacturer
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []models.Manufacturer
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(list); err == nil {
			r.redis.Set(ctx, manufacturerListKey, data, ManufacturerListCacheTTL)
		}
	}
	return list, nil
}

func (r *ManufacturerRepository) CountProducts(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("manufacturer_id = ?", id).Count(&count).Error
	return count, err
}

func (r *ManufacturerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Manufacturer{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	r.invalidateList(ctx)
	return nil
}

func (r *ManufacturerRepository) invalidateList(ctx context.Context) {
	if r.redis == nil {
		return
	}
	_ = r.redis.Del(ctx, manufacturerListKey).Err()
}
