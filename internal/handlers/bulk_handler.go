package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/TheOksigen/autopart-backend/internal/models"
	"github.com/TheOksigen/autopart-backend/internal/services"
)

// BulkIngester runs raw records through the ingestion pipeline
type BulkIngester interface {
	IngestJSON(ctx context.Context, body []byte) (*models.IngestionReport, error)
	Ingest(ctx context.Context, records []models.RawProductRecord) (*models.IngestionReport, error)
}

type BulkHandler struct {
	ingester BulkIngester
	logger   *logrus.Entry
}

func NewBulkHandler(ingester BulkIngester, logger *logrus.Logger) *BulkHandler {
	return &BulkHandler{
		ingester: ingester,
		logger:   logger.WithField("component", "bulk-handler"),
	}
}

// BulkCreateProducts ingests an array of loosely typed product records
// @Summary Bulk create products
// @Description Validates, normalizes and stores each record; failures are reported per record
// @Tags products
// @Accept json
// @Produce json
// @Param products body []object true "Raw product records"
// @Success 201 {object} models.IngestionReport
// @Failure 400 {object} models.BulkFailureResponse
// @Failure 500 {object} models.BulkFailureResponse
// @Security BearerAuth
// @Router /products/bulk [post]
func (h *BulkHandler) BulkCreateProducts(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.BulkFailureResponse{Message: services.InvalidInputMessage})
		return
	}

	report, err := h.ingester.IngestJSON(c.Request.Context(), body)
	if err != nil {
		h.respondIngestError(c, err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

func (h *BulkHandler) respondIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTooManyRecords):
		c.JSON(http.StatusBadRequest, models.BulkFailureResponse{
			Message: services.InvalidInputMessage,
			Error:   err.Error(),
		})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, models.BulkFailureResponse{Message: services.InvalidInputMessage})
	default:
		h.logger.WithError(err).Error("Bulk product creation failed")
		c.JSON(http.StatusInternalServerError, models.BulkFailureResponse{
			Message: services.FailureMessage,
			Error:   err.Error(),
		})
	}
}
