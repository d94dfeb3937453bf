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

// PurchaseHandler holds the purchase service.
type PurchaseHandler struct {
	purchaseService services.PurchaseService
}

// NewPurchaseHandler creates a new PurchaseHandler.
func NewPurchaseHandler(ps services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: ps}
}

func respondPurchaseItemResolutionError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, services.ErrItemNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Referenced item not found.", err.Error()))
	case errors.Is(err, services.ErrAmbiguousItemName):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Item name matches more than one item; reference it by ID.", err.Error()))
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
	default:
		return false
	}
	return true
}

// CreatePurchase records a purchase with its lines. Stock is untouched until
// the purchase is finalized.
func (h *PurchaseHandler) CreatePurchase(c *gin.Context) {
	var req services.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreatePurchase: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	purchase, err := h.purchaseService.CreatePurchase(req)
	if err != nil {
		utils.LogError(err, "CreatePurchase: Error from purchaseService.CreatePurchase")
		if !respondPurchaseItemResolutionError(c, err) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create purchase.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, purchase)
}

// GetPurchases handles listing purchases with filters and pagination.
func (h *PurchaseHandler) GetPurchases(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	filters := models.PurchaseFilters{
		Page:     page,
		PageSize: pageSize,
	}
	if supplier := c.Query("supplier"); supplier != "" {
		filters.Supplier = &supplier
	}
	if finalizedStr := c.Query("finalized"); finalizedStr != "" {
		finalized, err := strconv.ParseBool(finalizedStr)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid finalized flag; expected true or false.", err.Error()))
			return
		}
		filters.Finalized = &finalized
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

	purchases, totalCount, err := h.purchaseService.GetPurchases(filters)
	if err != nil {
		utils.LogError(err, "GetPurchases: Error from purchaseService.GetPurchases")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch purchases.", "Internal error"))
		return
	}

	if purchases == nil {
		purchases = []models.Purchase{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      purchases,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

// GetPurchaseByID handles fetching a single purchase with its lines.
func (h *PurchaseHandler) GetPurchaseByID(c *gin.Context) {
	idStr := c.Param("id")
	purchaseID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid purchase ID format.", err.Error()))
		return
	}

	purchase, err := h.purchaseService.GetPurchaseByID(purchaseID)
	if err != nil {
		utils.LogError(err, "GetPurchaseByID: Error from purchaseService.GetPurchaseByID for ID "+idStr)
		if errors.Is(err, services.ErrPurchaseNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Purchase not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch purchase.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, purchase)
}

// AddPurchaseItem adds (or accumulates onto) a line of a non-finalized purchase.
func (h *PurchaseHandler) AddPurchaseItem(c *gin.Context) {
	idStr := c.Param("id")
	purchaseID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid purchase ID format.", err.Error()))
		return
	}

	var req services.PurchaseItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "AddPurchaseItem: Failed to bind JSON for purchase "+idStr)
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	line, err := h.purchaseService.AddItem(purchaseID, req)
	if err != nil {
		utils.LogError(err, "AddPurchaseItem: Error from purchaseService.AddItem for purchase "+idStr)
		if errors.Is(err, services.ErrPurchaseNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Purchase not found.", err.Error()))
		} else if errors.Is(err, services.ErrPurchaseFinalized) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Purchase is finalized and cannot be modified.", err.Error()))
		} else if !respondPurchaseItemResolutionError(c, err) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to add purchase item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, line)
}

// UpdatePurchaseItem changes quantity or unit cost of a line while the
// parent purchase is still open.
func (h *PurchaseHandler) UpdatePurchaseItem(c *gin.Context) {
	itemIDStr := c.Param("item_id")
	purchaseItemID, err := strconv.ParseInt(itemIDStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid purchase item ID format.", err.Error()))
		return
	}

	var req services.UpdatePurchaseItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "UpdatePurchaseItem: Failed to bind JSON for line "+itemIDStr)
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	line, err := h.purchaseService.UpdateItem(purchaseItemID, req)
	if err != nil {
		utils.LogError(err, "UpdatePurchaseItem: Error from purchaseService.UpdateItem for line "+itemIDStr)
		if errors.Is(err, services.ErrPurchaseItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Purchase item not found.", err.Error()))
		} else if errors.Is(err, services.ErrPurchaseFinalized) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Purchase is finalized and cannot be modified.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update purchase item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, line)
}

// RemovePurchaseItem deletes a line from a non-finalized purchase.
func (h *PurchaseHandler) RemovePurchaseItem(c *gin.Context) {
	itemIDStr := c.Param("item_id")
	purchaseItemID, err := strconv.ParseInt(itemIDStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid purchase item ID format.", err.Error()))
		return
	}

	if err := h.purchaseService.RemoveItem(purchaseItemID); err != nil {
		utils.LogError(err, "RemovePurchaseItem: Error from purchaseService.RemoveItem for line "+itemIDStr)
		if errors.Is(err, services.ErrPurchaseItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Purchase item not found.", err.Error()))
		} else if errors.Is(err, services.ErrPurchaseFinalized) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Purchase is finalized and cannot be modified.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to remove purchase item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Purchase item removed successfully"})
}

// FinalizePurchase applies every line to stock and locks the purchase.
// Finalizing twice fails on the second call without touching stock again.
func (h *PurchaseHandler) FinalizePurchase(c *gin.Context) {
	idStr := c.Param("id")
	purchaseID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid purchase ID format.", err.Error()))
		return
	}

	result, err := h.purchaseService.Finalize(purchaseID)
	if err != nil {
		utils.LogError(err, "FinalizePurchase: Error from purchaseService.Finalize for ID "+idStr)
		if errors.Is(err, services.ErrPurchaseNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Purchase not found.", err.Error()))
		} else if errors.Is(err, services.ErrPurchaseFinalized) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Purchase is already finalized.", err.Error()))
		} else if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "A referenced item no longer exists; purchase was not finalized.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to finalize purchase.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeletePurchase removes a purchase and its lines. Stock applied by a
// finalized purchase stays applied.
func (h *PurchaseHandler) DeletePurchase(c *gin.Context) {
	idStr := c.Param("id")
	purchaseID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid purchase ID format.", err.Error()))
		return
	}

	if err := h.purchaseService.DeletePurchase(purchaseID); err != nil {
		utils.LogError(err, "DeletePurchase: Error from purchaseService.DeletePurchase for ID "+idStr)
		if errors.Is(err, services.ErrPurchaseNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Purchase not found to delete.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to delete purchase.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Purchase deleted successfully"})
}

// GetPurchaseStatistics aggregates purchases over a named period.
func (h *PurchaseHandler) GetPurchaseStatistics(c *gin.Context) {
	period := c.Query("period")

	stats, err := h.purchaseService.GetStatistics(period)
	if err != nil {
		utils.LogError(err, "GetPurchaseStatistics: Error from purchaseService.GetStatistics")
		if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
			return
		}
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch purchase statistics.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetPurchaseReport builds a purchase report over a mandatory date range.
func (h *PurchaseHandler) GetPurchaseReport(c *gin.Context) {
	dateFrom := c.Query("date_from")
	dateTo := c.Query("date_to")

	report, err := h.purchaseService.GetReport(dateFrom, dateTo)
	if err != nil {
		utils.LogError(err, "GetPurchaseReport: Error from purchaseService.GetReport")
		if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
			return
		}
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to build purchase report.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, report)
}
