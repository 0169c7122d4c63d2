package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/TheOksigen/autopart-backend/internal/importer"
	"github.com/TheOksigen/autopart-backend/internal/models"
	"github.com/TheOksigen/autopart-backend/internal/services"
)

type ImportHandler struct {
	ingester   BulkIngester
	maxRecords int
	logger     *logrus.Entry
}

func NewImportHandler(ingester BulkIngester, maxRecords int, logger *logrus.Logger) *ImportHandler {
	return &ImportHandler{
		ingester:   ingester,
		maxRecords: maxRecords,
		logger:     logger.WithField("component", "import-handler"),
	}
}

// GetImportTemplate returns the import template definition or file
// GET /api/products/import/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	switch models.ImportFormat(format) {
	case models.ImportFormatCSV:
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment; filename=products_import_template.csv")
		if err := importer.WriteCSVTemplate(c.Writer); err != nil {
			h.logger.WithError(err).Error("Failed to write CSV template")
		}
	case models.ImportFormatXLSX:
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=products_import_template.xlsx")
		if err := importer.WriteXLSXTemplate(c.Writer); err != nil {
			h.logger.WithError(err).Error("Failed to write XLSX template")
		}
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": models.ProductImportTemplate(),
		})
	}
}

// ImportProducts feeds the rows of an uploaded CSV, XLSX or JSON file through bulk ingestion
// POST /api/products/import
func (h *ImportHandler) ImportProducts(c *gin.Context) {
	startTime := time.Now()

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_REQUIRED",
				Message: "Please upload a CSV or Excel file",
			},
		})
		return
	}
	defer file.Close()

	format, err := importer.FormatFromFilename(header.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_FORMAT",
				Message: err.Error(),
			},
		})
		return
	}

	records, err := importer.ReadRecords(file, format)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "PARSE_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	if len(records) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "EMPTY_FILE",
				Message: "The file contains no data rows",
			},
		})
		return
	}

	if h.maxRecords > 0 && len(records) > h.maxRecords {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "TOO_MANY_RECORDS",
				Message: fmt.Sprintf("Maximum %d rows allowed per import", h.maxRecords),
			},
		})
		return
	}

	report, err := h.ingester.Ingest(c.Request.Context(), records)
	if err != nil {
		status, code := http.StatusInternalServerError, "IMPORT_FAILED"
		if errors.Is(err, services.ErrInvalidInput) {
			status, code = http.StatusBadRequest, "VALIDATION_ERROR"
		}
		h.logger.WithError(err).WithField("file", header.Filename).Error("Product import failed")
		c.JSON(status, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    code,
				Message: err.Error(),
			},
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"file":         header.Filename,
		"format":       format,
		"rows":         len(records),
		"successful":   report.SuccessCount,
		"failed":       report.ErrorCount,
		"processingMs": time.Since(startTime).Milliseconds(),
	}).Info("Product import completed")

	c.JSON(http.StatusCreated, report)
}
