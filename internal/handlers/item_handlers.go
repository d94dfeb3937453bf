package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/models"
	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/services"
	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ItemHandler holds the item service.
type ItemHandler struct {
	itemService services.ItemService
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(is services.ItemService) *ItemHandler {
	return &ItemHandler{itemService: is}
}

// CreateItem handles the creation of a new stock item.
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req services.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateItem: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	item, err := h.itemService.CreateItem(req)
	if err != nil {
		utils.LogError(err, "CreateItem: Error from itemService.CreateItem")
		if errors.Is(err, services.ErrItemNameConflict) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "An item with this name already exists.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, item)
}

// GetItems handles fetching items with filters and pagination.
func (h *ItemHandler) GetItems(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	filters := models.ItemFilters{
		Page:     page,
		PageSize: pageSize,
	}
	if name := c.Query("name"); name != "" {
		filters.Name = &name
	}
	if itemType := c.Query("type"); itemType != "" {
		filters.Type = &itemType
	}
	if ownerStr := c.Query("owner_id"); ownerStr != "" {
		ownerID, err := strconv.ParseInt(ownerStr, 10, 64)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid owner_id format.", err.Error()))
			return
		}
		filters.OwnerID = &ownerID
	}

	items, totalCount, err := h.itemService.GetItems(filters)
	if err != nil {
		utils.LogError(err, "GetItems: Error from itemService.GetItems")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch items.", "Internal error"))
		return
	}

	if items == nil {
		items = []models.Item{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      items,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

// GetItemByID handles fetching a single item by ID.
func (h *ItemHandler) GetItemByID(c *gin.Context) {
	idStr := c.Param("id")
	itemID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid item ID format.", err.Error()))
		return
	}

	item, err := h.itemService.GetItemByID(itemID)
	if err != nil {
		utils.LogError(err, "GetItemByID: Error from itemService.GetItemByID for ID "+idStr)
		if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Item not found.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, item)
}

// UpdateItem handles updating an item's descriptive fields. Quantity cannot
// be changed here; the add-quantity and remove-quantity endpoints own stock.
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	idStr := c.Param("id")
	itemID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid item ID format.", err.Error()))
		return
	}

	var req services.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "UpdateItem: Failed to bind JSON for ID "+idStr)
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	item, err := h.itemService.UpdateItem(itemID, req)
	if err != nil {
		utils.LogError(err, "UpdateItem: Error from itemService.UpdateItem for ID "+idStr)
		if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Item not found to update.", err.Error()))
		} else if errors.Is(err, services.ErrItemNameConflict) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "An item with this name already exists.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteItem handles deleting an item.
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	idStr := c.Param("id")
	itemID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid item ID format.", err.Error()))
		return
	}

	if err := h.itemService.DeleteItem(itemID); err != nil {
		utils.LogError(err, "DeleteItem: Error from itemService.DeleteItem for ID "+idStr)
		if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Item not found to delete.", err.Error()))
		} else if errors.Is(err, services.ErrItemInUse) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Item is referenced by write-downs or purchases and cannot be deleted.", err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to delete item.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
}

// AddQuantity handles a direct stock increase on an item.
func (h *ItemHandler) AddQuantity(c *gin.Context) {
	idStr := c.Param("id")
	itemID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid item ID format.", err.Error()))
		return
	}

	var req services.AdjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "AddQuantity: Failed to bind JSON for ID "+idStr)
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	change, err := h.itemService.AddQuantity(itemID, req.Quantity)
	if err != nil {
		utils.LogError(err, "AddQuantity: Error from itemService.AddQuantity for ID "+idStr)
		if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Item not found.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to add quantity.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, change)
}

// RemoveQuantity handles a direct stock decrease on an item. A removal that
// would take stock below zero is rejected and leaves the quantity untouched.
func (h *ItemHandler) RemoveQuantity(c *gin.Context) {
	idStr := c.Param("id")
	itemID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid item ID format.", err.Error()))
		return
	}

	var req services.AdjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "RemoveQuantity: Failed to bind JSON for ID "+idStr)
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	change, err := h.itemService.RemoveQuantity(itemID, req.Quantity)
	if err != nil {
		utils.LogError(err, "RemoveQuantity: Error from itemService.RemoveQuantity for ID "+idStr)
		if errors.Is(err, services.ErrItemNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Item not found.", err.Error()))
		} else if errors.Is(err, services.ErrInsufficientStock) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Insufficient stock for this removal.", err.Error()))
		} else if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to remove quantity.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, change)
}
