package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/TheOksigen/autopart-backend/internal/config"
	"github.com/TheOksigen/autopart-backend/internal/metrics"
	"github.com/TheOksigen/autopart-backend/internal/models"
)

const (
	ReportMessage            = "Bulk product creation completed"
	InvalidInputMessage      = "Request body must be an array of products"
	FailureMessage           = "Error processing bulk product creation"
	MissingFieldsMessage     = "Missing required fields"
	ManufacturerErrorMessage = "Error processing manufacturer"
	UnknownOemNo             = "unknown"
)

var (
	ErrInvalidInput              = errors.New("request body must be an array of products")
	ErrTooManyRecords            = fmt.Errorf("%w: too many records", ErrInvalidInput)
	ErrInternal                  = errors.New("internal error")
	ErrManufacturerStoreRequired = errors.New("manufacturer store is required")
	ErrProductStoreRequired      = errors.New("product store is required")
)

// ManufacturerResolver finds a manufacturer by name ignoring case, creating it when absent
type ManufacturerResolver interface {
	FindOrCreate(ctx context.Context, name string) (*models.Manufacturer, bool, error)
}

// ProductCreator persists a product and returns it with its Manufacturer attached
type ProductCreator interface {
	CreateWithManufacturer(ctx context.Context, product *models.Product) (*models.Product, error)
}

// EventPublisher announces finished batches
type EventPublisher interface {
	PublishBulkIngested(ctx context.Context, report *models.IngestionReport) error
}

// BulkIngestionService validates, normalizes and stores bulk product records one at a time,
// in input order, reporting every record's outcome.
type BulkIngestionService struct {
	manufacturers ManufacturerResolver
	products      ProductCreator
	parser        *RecordParser
	publisher     EventPublisher
	logger        *logrus.Entry
	maxRecords    int
}

// Option configures a BulkIngestionService.
type Option func(*BulkIngestionService)

// WithCoercionRules replaces the default stock token and name rules.
func WithCoercionRules(rules *config.CoercionRules) Option {
	return func(s *BulkIngestionService) {
		s.parser = NewRecordParser(rules)
	}
}

// WithPublisher sets the publisher notified after each batch.
func WithPublisher(p EventPublisher) Option {
	return func(s *BulkIngestionService) {
		s.publisher = p
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *BulkIngestionService) {
		if logger != nil {
			s.logger = logger.WithField("component", "bulk-ingestion")
		}
	}
}

// WithMaxRecords caps the batch size. Zero disables the cap.
func WithMaxRecords(n int) Option {
	return func(s *BulkIngestionService) {
		s.maxRecords = n
	}
}

func NewBulkIngestionService(manufacturers ManufacturerResolver, products ProductCreator, opts ...Option) (*BulkIngestionService, error) {
	if manufacturers == nil {
		return nil, ErrManufacturerStoreRequired
	}
	if products == nil {
		return nil, ErrProductStoreRequired
	}

	s := &BulkIngestionService{
		manufacturers: manufacturers,
		products:      products,
		parser:        NewRecordParser(nil),
		logger:        logrus.StandardLogger().WithField("component", "bulk-ingestion"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Parser exposes the record parser for dry runs
func (s *BulkIngestionService) Parser() *RecordParser {
	return s.parser
}

// DecodeRecords decodes a JSON body that must be an array. Elements that are not
// objects become empty records and fail the required field check.
func DecodeRecords(body []byte) ([]models.RawProductRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	items, ok := payload.([]interface{})
	if !ok {
		return nil, ErrInvalidInput
	}

	records := make([]models.RawProductRecord, len(items))
	for i, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			records[i] = obj
		} else {
			records[i] = models.RawProductRecord{}
		}
	}
	return records, nil
}

// IngestJSON decodes body and runs it through Ingest
func (s *BulkIngestionService) IngestJSON(ctx context.Context, body []byte) (*models.IngestionReport, error) {
	records, err := DecodeRecords(body)
	if err != nil {
		return nil, err
	}
	return s.Ingest(ctx, records)
}

// Ingest processes records sequentially. Per-record failures land in the report;
// only an oversized batch (ErrInvalidInput) or an unexpected fault (ErrInternal) fails the call.
func (s *BulkIngestionService) Ingest(ctx context.Context, records []models.RawProductRecord) (report *models.IngestionReport, err error) {
	if s.maxRecords > 0 && len(records) > s.maxRecords {
		return nil, fmt.Errorf("%w: batch of %d exceeds the limit of %d", ErrTooManyRecords, len(records), s.maxRecords)
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Error("Bulk ingestion aborted")
			report = nil
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	start := time.Now()
	report = &models.IngestionReport{
		Message:            ReportMessage,
		TotalProcessed:     len(records),
		SuccessfulProducts: make([]*models.Product, 0, len(records)),
		Errors:             make([]models.IngestionError, 0),
	}

	for i, raw := range records {
		product, ingestErr := s.processRecord(ctx, raw)
		if ingestErr != nil {
			report.Errors = append(report.Errors, *ingestErr)
			metrics.IngestedRecords.WithLabelValues(string(ingestErr.Kind)).Inc()
			s.logger.WithFields(logrus.Fields{
				"index": i,
				"oemNo": ingestErr.OemNo,
				"kind":  ingestErr.Kind,
			}).Warn(ingestErr.Error)
			continue
		}
		report.SuccessfulProducts = append(report.SuccessfulProducts, product)
		metrics.IngestedRecords.WithLabelValues("success").Inc()
	}

	report.SuccessCount = len(report.SuccessfulProducts)
	report.ErrorCount = len(report.Errors)
	metrics.BatchDuration.Observe(time.Since(start).Seconds())

	s.logger.WithFields(logrus.Fields{
		"total":      report.TotalProcessed,
		"successful": report.SuccessCount,
		"failed":     report.ErrorCount,
		"durationMs": time.Since(start).Milliseconds(),
	}).Info("Bulk ingestion completed")

	if s.publisher != nil {
		if pubErr := s.publisher.PublishBulkIngested(ctx, report); pubErr != nil {
			s.logger.WithError(pubErr).Warn("Failed to publish bulk ingestion event")
		}
	}

	return report, nil
}

// processRecord yields exactly one of a stored product or an error entry
func (s *BulkIngestionService) processRecord(ctx context.Context, raw models.RawProductRecord) (*models.Product, *models.IngestionError) {
	if missing := MissingRequiredFields(raw); len(missing) > 0 {
		oemNo := UnknownOemNo
		if !IsMissing(raw[models.FieldOemNo]) {
			oemNo = Stringify(raw[models.FieldOemNo])
		}
		return nil, &models.IngestionError{
			OemNo:  oemNo,
			Error:  MissingFieldsMessage,
			Kind:   models.ErrorKindValidation,
			Fields: missing,
		}
	}
	oemNo := Stringify(raw[models.FieldOemNo])

	var manufacturerID *uuid.UUID
	if name := ManufacturerName(raw); name != "" {
		m, created, err := s.manufacturers.FindOrCreate(ctx, name)
		if err != nil || m == nil {
			s.logger.WithError(err).WithField("manufacturer", name).Error("Manufacturer processing error")
			return nil, &models.IngestionError{
				OemNo: oemNo,
				Error: ManufacturerErrorMessage,
				Kind:  models.ErrorKindDependency,
			}
		}
		if created {
			metrics.ManufacturersCreated.Inc()
		}
		id := m.ID
		manufacturerID = &id
	}

	input, err := s.parser.Parse(raw)
	if err != nil {
		ingestErr := &models.IngestionError{
			OemNo: oemNo,
			Error: err.Error(),
			Kind:  models.ErrorKindValidation,
		}
		var fieldErrs FieldErrors
		if errors.As(err, &fieldErrs) {
			ingestErr.Fields = fieldErrs.Fields()
		}
		return nil, ingestErr
	}

	created, err := s.products.CreateWithManufacturer(ctx, input.ToProduct(manufacturerID))
	if err != nil {
		return nil, &models.IngestionError{
			OemNo: oemNo,
			Error: err.Error(),
			Kind:  models.ErrorKindDependency,
		}
	}
	return created, nil
}
