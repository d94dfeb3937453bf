package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/models"
	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/services"
	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/pkg/utils"

	"github.com/gin-gonic/gin"
)

// WriteDownHandler holds the write-down service.
type WriteDownHandler struct {
	writeDownService services.WriteDownService
}

// NewWriteDownHandler creates a new WriteDownHandler.
func NewWriteDownHandler(ws services.WriteDownService) *WriteDownHandler {
	return &WriteDownHandler{writeDownService: ws}
}

// CreateWriteDown registers a write-down and debits the item's stock in the
// same transaction.
func (h *WriteDownHandler) CreateWriteDown(c *gin.Context) {
	var req services.CreateWriteDownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateWriteDown: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	writeDown, err := h.writeDownService.CreateWriteDown(req)
	if err != nil {
		utils.LogError(err, "CreateWriteDown: Error from writeDownService.CreateWriteDown")
		if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Item not found.", err.Error()))
		} else if errors.Is(err, services.ErrInsufficientStock) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Insufficient stock for this write-down.", err.Error()))
		} else if errors.Is(err, services.ErrInvalidReason) || errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create write-down.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, writeDown)
}

// GetWriteDowns handles listing write-downs with filters and pagination.
func (h *WriteDownHandler) GetWriteDowns(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	filters := models.WriteDownFilters{
		Page:     page,
		PageSize: pageSize,
	}
	if itemStr := c.Query("item_id"); itemStr != "" {
		itemID, err := strconv.ParseInt(itemStr, 10, 64)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid item_id format.", err.Error()))
			return
		}
		filters.ItemID = &itemID
	}
	if reason := c.Query("reason"); reason != "" {
		filters.Reason = &reason
	}
	if dateFrom := c.Query("date_from"); dateFrom != "" {
		parsed, err := time.ParseInLocation(services.DateLayout, dateFrom, time.Local)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid date_from; expected YYYY-MM-DD.", err.Error()))
			return
		}
		filters.DateFrom = &parsed
	}
	if dateTo := c.Query("date_to"); dateTo != "" {
		parsed, err := time.ParseInLocation(services.DateLayout, dateTo, time.Local)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid date_to; expected YYYY-MM-DD.", err.Error()))
			return
		}
		end := parsed.AddDate(0, 0, 1)
		filters.DateTo = &end
	}

	writeDowns, totalCount, err := h.writeDownService.GetWriteDowns(filters)
	if err != nil {
		utils.LogError(err, "GetWriteDowns: Error from writeDownService.GetWriteDowns")
		if errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrInvalidReason) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
			return
		}
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch write-downs.", "Internal error"))
		return
	}

	if writeDowns == nil {
		writeDowns = []models.WriteDown{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      writeDowns,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

// GetWriteDownByID handles fetching a single write-down by ID.
func (h *WriteDownHandler) GetWriteDownByID(c *gin.Context) {
	idStr := c.Param("id")
	writeDownID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid write-down ID format.", err.Error()))
		return
	}

	writeDown, err := h.writeDownService.GetWriteDownByID(writeDownID)
	if err != nil {
		utils.LogError(err, "GetWriteDownByID: Error from writeDownService.GetWriteDownByID for ID "+idStr)
		if errors.Is(err, services.ErrWriteDownNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Write-down not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch write-down.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, writeDown)
}

// UpdateWriteDown changes reason and note only. Quantity and item are fixed
// once the write-down exists; correcting those means deleting and recreating.
func (h *WriteDownHandler) UpdateWriteDown(c *gin.Context) {
	idStr := c.Param("id")
	writeDownID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid write-down ID format.", err.Error()))
		return
	}

	var req services.UpdateWriteDownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "UpdateWriteDown: Failed to bind JSON for ID "+idStr)
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	writeDown, err := h.writeDownService.UpdateWriteDown(writeDownID, req)
	if err != nil {
		utils.LogError(err, "UpdateWriteDown: Error from writeDownService.UpdateWriteDown for ID "+idStr)
		if errors.Is(err, services.ErrWriteDownNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Write-down not found to update.", err.Error()))
		} else if errors.Is(err, services.ErrInvalidReason) || errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update write-down.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, writeDown)
}

// DeleteWriteDown removes a write-down and restores its quantity to the item
// in the same transaction.
func (h *WriteDownHandler) DeleteWriteDown(c *gin.Context) {
	idStr := c.Param("id")
	writeDownID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid write-down ID format.", err.Error()))
		return
	}

	result, err := h.writeDownService.DeleteWriteDown(writeDownID)
	if err != nil {
		utils.LogError(err, "DeleteWriteDown: Error from writeDownService.DeleteWriteDown for ID "+idStr)
		if errors.Is(err, services.ErrWriteDownNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Write-down not found to delete.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to delete write-down.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetWriteDownStatistics aggregates write-downs over a named period
// (today, week, month, year). An empty period defaults to month.
func (h *WriteDownHandler) GetWriteDownStatistics(c *gin.Context) {
	period := c.Query("period")

	stats, err := h.writeDownService.GetStatistics(period)
	if err != nil {
		utils.LogError(err, "GetWriteDownStatistics: Error from writeDownService.GetStatistics")
		if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
			return
		}
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch write-down statistics.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetWriteDownReport builds a detailed report over a mandatory date range.
func (h *WriteDownHandler) GetWriteDownReport(c *gin.Context) {
	dateFrom := c.Query("date_from")
	dateTo := c.Query("date_to")

	var reason *string
	if r := c.Query("reason"); r != "" {
		reason = &r
	}

	report, err := h.writeDownService.GetReport(dateFrom, dateTo, reason)
	if err != nil {
		utils.LogError(err, "GetWriteDownReport: Error from writeDownService.GetReport")
		if errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrInvalidReason) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
			return
		}
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to build write-down report.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, report)
}
