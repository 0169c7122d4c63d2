package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultProductName is stored when a record carries no usable name
const DefaultProductName = "no name"

// Product is a catalog entry for a single auto part.
// JSON keys keep the storefront's historical field names (OemNo, discouisnt, ...).
type Product struct {
	ID              uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	OemNo           string        `json:"OemNo" gorm:"column:oem_no;not null;index"`
	CodeOfProduct   string        `json:"codeOfProduct" gorm:"column:code_of_product;not null;index"`
	Image           string        `json:"image" gorm:"not null"`
	Name            string        `json:"name" gorm:"not null;index"`
	PriceWithOutKDV float64       `json:"priceWithOutKDV" gorm:"column:price_without_kdv;not null"`
	PriceWithKDV    float64       `json:"priceWithKDV" gorm:"column:price_with_kdv;not null"`
	Discouisnt      float64       `json:"discouisnt" gorm:"column:discouisnt;not null"`
	Iskonto         *string       `json:"iskonto" gorm:"column:iskonto"`
	Stock           bool          `json:"stock" gorm:"not null"`
	ManufacturerID  *uuid.UUID    `json:"manufacturerId" gorm:"type:uuid;index"`
	Manufacturer    *Manufacturer `json:"Manufacturer" gorm:"foreignKey:ManufacturerID"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// BeforeCreate assigns the primary key when the caller left it empty
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// ProductFilter holds list query options
type ProductFilter struct {
	Page           int
	Limit          int
	Search         string
	ManufacturerID *uuid.UUID
	InStock        *bool
}

// CreateProductRequest represents a request to create a product.
// Image is either a remote URL or a base64 data URI; both are re-hosted before the row is stored.
type CreateProductRequest struct {
	OemNo           string   `json:"OemNo" form:"OemNo" binding:"required"`
	CodeOfProduct   string   `json:"codeOfProduct" form:"codeOfProduct" binding:"required"`
	Image           string   `json:"image" form:"image"`
	Name            string   `json:"name" form:"name"`
	PriceWithOutKDV float64  `json:"priceWithOutKDV" form:"priceWithOutKDV" binding:"required"`
	PriceWithKDV    float64  `json:"priceWithKDV" form:"priceWithKDV" binding:"required"`
	Discouisnt      float64  `json:"discouisnt" form:"discouisnt"`
	Iskonto         *string  `json:"iskonto" form:"iskonto"`
	Stock           *bool    `json:"stock" form:"stock"`
	ManufacturerID  *string  `json:"manufacturerId" form:"manufacturerId"`
}

// UpdateProductRequest represents a partial product update
type UpdateProductRequest struct {
	OemNo           *string  `json:"OemNo" form:"OemNo"`
	CodeOfProduct   *string  `json:"codeOfProduct" form:"codeOfProduct"`
	Image           *string  `json:"image" form:"image"`
	Name            *string  `json:"name" form:"name"`
	PriceWithOutKDV *float64 `json:"priceWithOutKDV" form:"priceWithOutKDV"`
	PriceWithKDV    *float64 `json:"priceWithKDV" form:"priceWithKDV"`
	Discouisnt      *float64 `json:"discouisnt" form:"discouisnt"`
	Iskonto         *string  `json:"iskonto" form:"iskonto"`
	Stock           *bool    `json:"stock" form:"stock"`
	ManufacturerID  *string  `json:"manufacturerId" form:"manufacturerId"`
}

// ProductListResponse is the paginated list payload
type ProductListResponse struct {
	Products    []Product `json:"products"`
	Total       int64     `json:"total"`
	TotalPages  int       `json:"totalPages"`
	CurrentPage int       `json:"currentPage"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}
