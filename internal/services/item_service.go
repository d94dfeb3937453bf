package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/models"
	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/repositories"
)

// --- Custom Service Errors ---
var (
	ErrItemNotFound      = errors.New("item not found")
	ErrItemNameConflict  = errors.New("item name already exists")
	ErrItemInUse         = errors.New("item is referenced by purchases or write-downs")
	ErrInsufficientStock = errors.New("insufficient stock for item")
	ErrValidation        = errors.New("validation error")
)

// --- Item DTOs ---

type CreateItemRequest struct {
	Name      string  `json:"name" binding:"required"`
	Type      string  `json:"type" binding:"required"`
	Size      *string `json:"size"`
	Color     *string `json:"color"`
	UnitPrice float64 `json:"unit_price" binding:"required,gt=0"`
	Quantity  int     `json:"quantity" binding:"gte=0"`
	OwnerID   *int64  `json:"owner_id"`
}

type UpdateItemRequest struct {
	Name      *string  `json:"name"`
	Type      *string  `json:"type"`
	Size      *string  `json:"size"`
	Color     *string  `json:"color"`
	UnitPrice *float64 `json:"unit_price"`
	OwnerID   *int64   `json:"owner_id"`
}

// AdjustQuantityRequest carries a manual stock correction amount.
type AdjustQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// QuantityChange reports the outcome of a direct stock adjustment.
type QuantityChange struct {
	ItemID   int64 `json:"item_id"`
	Previous int   `json:"previous"`
	Added    int   `json:"added,omitempty"`
	Removed  int   `json:"removed,omitempty"`
	Current  int   `json:"current"`
}

// --- ItemService Interface ---
type ItemService interface {
	CreateItem(req CreateItemRequest) (*models.Item, error)
	GetItemByID(itemID int64) (*models.Item, error)
	GetItems(filters models.ItemFilters) ([]models.Item, int, error)
	UpdateItem(itemID int64, req UpdateItemRequest) (*models.Item, error)
	DeleteItem(itemID int64) error

	// AddQuantity and RemoveQuantity are the direct adjustment API for manual
	// stock corrections. Each runs as a single transaction around the item
	// store's AdjustQuantity primitive.
	AddQuantity(itemID int64, quantity int) (*QuantityChange, error)
	RemoveQuantity(itemID int64, quantity int) (*QuantityChange, error)
}

type itemService struct {
	itemRepo repositories.ItemRepository
	db       *sql.DB
}

// NewItemService creates a new instance of ItemService.
func NewItemService(repo repositories.ItemRepository, db *sql.DB) ItemService {
	return &itemService{itemRepo: repo, db: db}
}

func (s *itemService) CreateItem(req CreateItemRequest) (*models.Item, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: item name cannot be empty", ErrValidation)
	}
	if req.Quantity < 0 {
		return nil, fmt.Errorf("%w: initial quantity cannot be negative", ErrValidation)
	}

	item := &models.Item{
		Name:      req.Name,
		Type:      req.Type,
		Size:      req.Size,
		Color:     req.Color,
		UnitPrice: req.UnitPrice,
		Quantity:  req.Quantity,
		OwnerID:   req.OwnerID,
	}
	id, err := s.itemRepo.CreateItem(s.db, item)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %s", ErrItemNameConflict, err.Error())
		}
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return s.itemRepo.GetItemByID(id)
}

func (s *itemService) GetItemByID(itemID int64) (*models.Item, error) {
	item, err := s.itemRepo.GetItemByID(itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item by ID: %w", err)
	}
	return item, nil
}

func (s *itemService) GetItems(filters models.ItemFilters) ([]models.Item, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 10
	}
	items, totalCount, err := s.itemRepo.GetItems(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get items: %w", err)
	}
	return items, totalCount, nil
}

func (s *itemService) UpdateItem(itemID int64, req UpdateItemRequest) (*models.Item, error) {
	item, err := s.itemRepo.GetItemByID(itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to find item for update: %w", err)
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: item name cannot be empty if provided", ErrValidation)
		}
		item.Name = *req.Name
	}
	if req.Type != nil {
		item.Type = *req.Type
	}
	if req.Size != nil {
		item.Size = req.Size
	}
	if req.Color != nil {
		item.Color = req.Color
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice <= 0 {
			return nil, fmt.Errorf("%w: unit price must be positive", ErrValidation)
		}
		item.UnitPrice = *req.UnitPrice
	}
	if req.OwnerID != nil {
		item.OwnerID = req.OwnerID
	}

	err = s.itemRepo.UpdateItem(s.db, item)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %s", ErrItemNameConflict, err.Error())
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return s.itemRepo.GetItemByID(itemID)
}

func (s *itemService) DeleteItem(itemID int64) error {
	_, err := s.itemRepo.GetItemByID(itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("failed to find item for deletion: %w", err)
	}

	err = s.itemRepo.DeleteItem(s.db, itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrItemNotFound
		}
		if strings.Contains(err.Error(), "is referenced by other records") || strings.Contains(err.Error(), "violates foreign key constraint") {
			return fmt.Errorf("%w: item cannot be deleted while purchases or write-downs reference it", ErrItemInUse)
		}
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func (s *itemService) AddQuantity(itemID int64, quantity int) (*QuantityChange, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	newQuantity, err := s.itemRepo.AdjustQuantity(tx, itemID, quantity)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to add quantity to item %d: %w", itemID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit quantity addition: %w", err)
	}
	return &QuantityChange{
		ItemID:   itemID,
		Previous: newQuantity - quantity,
		Added:    quantity,
		Current:  newQuantity,
	}, nil
}

func (s *itemService) RemoveQuantity(itemID int64, quantity int) (*QuantityChange, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	newQuantity, err := s.itemRepo.AdjustQuantity(tx, itemID, -quantity)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		if errors.Is(err, repositories.ErrInsufficientStock) {
			// The repository error already carries available vs requested.
			return nil, fmt.Errorf("%w: %v", ErrInsufficientStock, err)
		}
		return nil, fmt.Errorf("failed to remove quantity from item %d: %w", itemID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit quantity removal: %w", err)
	}
	return &QuantityChange{
		ItemID:   itemID,
		Previous: newQuantity + quantity,
		Removed:  quantity,
		Current:  newQuantity,
	}, nil
}
