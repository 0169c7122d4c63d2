package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/TheOksigen/autopart-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// pgUniqueViolation is the SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// ManufacturerStore is the persistence contract for manufacturers
type ManufacturerStore interface {
	FindByNameCaseInsensitive(ctx context.Context, name string) (*models.Manufacturer, error)
	Create(ctx context.Context, name string) (*models.Manufacturer, error)
	FindOrCreate(ctx context.Context, name string) (*models.Manufacturer, bool, error)
	GetByID(ctx context.Context, id uuid.UUID, withProducts bool) (*models.Manufacturer, error)
	List(ctx context.Context) ([]models.Manufacturer, error)
	CountProducts(ctx context.Context, id uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductStore is the persistence contract for products
type ProductStore interface {
	CreateWithManufacturer(ctx context.Context, product *models.Product) (*models.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserStore is the persistence contract for accounts
type UserStore interface {
	Create(ctx context.Context, email, name, password, role string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// isUniqueViolation reports whether err came from a unique index.
// Postgres is checked by SQLSTATE, other drivers by message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
