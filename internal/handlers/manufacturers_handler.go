package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/TheOksigen/autopart-backend/internal/models"
	"github.com/TheOksigen/autopart-backend/internal/repository"
)

type ManufacturersHandler struct {
	repo   repository.ManufacturerStore
	logger *logrus.Entry
}

func NewManufacturersHandler(repo repository.ManufacturerStore, logger *logrus.Logger) *ManufacturersHandler {
	return &ManufacturersHandler{
		repo:   repo,
		logger: logger.WithField("component", "manufacturers-handler"),
	}
}

// GetManufacturers lists manufacturers ordered by name
// @Summary List manufacturers
// @Tags manufacturers
// @Produce json
// @Success 200 {array} models.Manufacturer
// @Security BearerAuth
// @Router /manufacturers [get]
func (h *ManufacturersHandler) GetManufacturers(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list manufacturers")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "Error fetching manufacturers",
			},
		})
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetManufacturer returns one manufacturer with its products
// @Summary Get manufacturer
// @Tags manufacturers
// @Produce json
// @Param id path string true "Manufacturer ID"
// @Success 200 {object} models.Manufacturer
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /manufacturers/{id} [get]
func (h *ManufacturersHandler) GetManufacturer(c *gin.Context) {
	id, ok := parseIDParam(c, "manufacturer")
	if !ok {
		return
	}

	m, err := h.repo.GetByID(c.Request.Context(), id, true)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Manufacturer not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "Error fetching manufacturer",
			},
		})
		return
	}
	c.JSON(http.StatusOK, m)
}

// CreateManufacturer creates a manufacturer. Names are unique ignoring case.
// @Summary Create manufacturer
// @Tags manufacturers
// @Accept json
// @Produce json
// @Param request body models.CreateManufacturerRequest true "Manufacturer"
// @Success 201 {object} models.Manufacturer
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /manufacturers [post]
func (h *ManufacturersHandler) CreateManufacturer(c *gin.Context) {
	var req models.CreateManufacturerRequest
	_ = c.ShouldBindJSON(&req)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Manufacturer name is required",
				Field:   "name",
			},
		})
		return
	}

	m, err := h.repo.Create(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "DUPLICATE_NAME",
					Message: "Manufacturer already exists",
					Field:   "name",
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to create manufacturer")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATE_FAILED",
				Message: "Error creating manufacturer",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, m)
}

// DeleteManufacturer removes a manufacturer no product references
// @Summary Delete manufacturer
// @Tags manufacturers
// @Param id path string true "Manufacturer ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.DeleteBlockedResponse
// @Security BearerAuth
// @Router /manufacturers/{id} [delete]
func (h *ManufacturersHandler) DeleteManufacturer(c *gin.Context) {
	id, ok := parseIDParam(c, "manufacturer")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	m, err := h.repo.GetByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Manufacturer not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DELETE_FAILED",
				Message: "Error deleting manufacturer",
			},
		})
		return
	}

	count, err := h.repo.CountProducts(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DELETE_FAILED",
				Message: "Error deleting manufacturer",
			},
		})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, models.DeleteBlockedResponse{
			Success: false,
			Error: models.Error{
				Code:    "MANUFACTURER_IN_USE",
				Message: "Manufacturer is referenced by products",
			},
			Blocked: models.BlockedEntity{
				Type:       "manufacturer",
				ID:         m.ID.String(),
				Name:       m.Name,
				Reason:     fmt.Sprintf("Referenced by %d products", count),
				OtherCount: count,
			},
		})
		return
	}

	if err := h.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Manufacturer not found",
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to delete manufacturer")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DELETE_FAILED",
				Message: "Error deleting manufacturer",
			},
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// parseIDParam writes a 400 and returns false when :id is not a UUID
func parseIDParam(c *gin.Context, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: fmt.Sprintf("Invalid %s ID format", entity),
			},
		})
		return uuid.Nil, false
	}
	return id, true
}
