package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/TheOksigen/autopart-backend/internal/models"
)

// ProductEvent represents a product change event.
type ProductEvent struct {
	EventID        string    `json:"eventId"`
	EventType      string    `json:"eventType"`
	Timestamp      time.Time `json:"timestamp"`
	ProductID      string    `json:"productId"`
	OemNo          string    `json:"OemNo"`
	CodeOfProduct  string    `json:"codeOfProduct"`
	Name           string    `json:"name"`
	PriceWithKDV   float64   `json:"priceWithKDV"`
	Stock          bool      `json:"stock"`
	ManufacturerID string    `json:"manufacturerId,omitempty"`
	ChangedFields  []string  `json:"changedFields,omitempty"`
}

// BulkIngestedEvent summarizes one processed batch.
type BulkIngestedEvent struct {
	EventID        string                  `json:"eventId"`
	EventType      string                  `json:"eventType"`
	Timestamp      time.Time               `json:"timestamp"`
	RequestID      string                  `json:"requestId,omitempty"`
	TotalProcessed int                     `json:"totalProcessed"`
	SuccessCount   int                     `json:"successCount"`
	ErrorCount     int                     `json:"errorCount"`
	ProductIDs     []string                `json:"productIds"`
	Errors         []models.IngestionError `json:"errors"`
}

// BulkRequestedEvent carries a batch submitted for asynchronous ingestion.
type BulkRequestedEvent struct {
	RequestID string          `json:"requestId"`
	Records   json.RawMessage `json:"records"`
}

func NewProductEvent(eventType string, product *models.Product, changedFields []string) *ProductEvent {
	event := &ProductEvent{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Timestamp:     time.Now().UTC(),
		ProductID:     product.ID.String(),
		OemNo:         product.OemNo,
		CodeOfProduct: product.CodeOfProduct,
		Name:          product.Name,
		PriceWithKDV:  product.PriceWithKDV,
		Stock:         product.Stock,
		ChangedFields: changedFields,
	}
	if product.ManufacturerID != nil {
		event.ManufacturerID = product.ManufacturerID.String()
	}
	return event
}

// NewBulkIngestedEvent keeps product IDs only; full products stay in the HTTP response
func NewBulkIngestedEvent(report *models.IngestionReport) *BulkIngestedEvent {
	event := &BulkIngestedEvent{
		EventID:        uuid.New().String(),
		EventType:      SubjectBulkIngested,
		Timestamp:      time.Now().UTC(),
		TotalProcessed: report.TotalProcessed,
		SuccessCount:   report.SuccessCount,
		ErrorCount:     report.ErrorCount,
		ProductIDs:     make([]string, 0, len(report.SuccessfulProducts)),
		Errors:         report.Errors,
	}
	for _, p := range report.SuccessfulProducts {
		event.ProductIDs = append(event.ProductIDs, p.ID.String())
	}
	return event
}
