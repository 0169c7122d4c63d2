package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Manufacturer is a parts brand. Names are unique ignoring case.
type Manufacturer struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Products  []Product `json:"products,omitempty" gorm:"foreignKey:ManufacturerID"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Manufacturer) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Manufacturer model
func (Manufacturer) TableName() string {
	return "manufacturers"
}

// CreateManufacturerRequest represents a request to create a manufacturer
type CreateManufacturerRequest struct {
	Name string `json:"name"`
}
