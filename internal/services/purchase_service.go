package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/models"
	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/repositories"
)

// --- Custom Service Errors ---
var (
	ErrPurchaseNotFound     = errors.New("purchase not found")
	ErrPurchaseItemNotFound = errors.New("purchase item not found")
	ErrPurchaseFinalized    = errors.New("purchase is finalized and cannot be modified")
	ErrAmbiguousItemName    = errors.New("item name matches more than one item")
)

// --- DTOs ---

// ItemRef identifies an item either by ID or by name. Exactly one side must
// be set; resolution happens once, at the start of the owning operation.
type ItemRef struct {
	ItemID   *int64  `json:"item_id"`
	ItemName *string `json:"item_name"`
}

type PurchaseItemRequest struct {
	ItemRef
	Quantity int     `json:"quantity" binding:"required,gt=0"`
	UnitCost float64 `json:"unit_cost" binding:"gte=0"`
}

type CreatePurchaseRequest struct {
	Supplier     string                `json:"supplier" binding:"required"`
	PurchaseDate string                `json:"purchase_date"`
	AmountPaid   float64               `json:"amount_paid" binding:"gte=0"`
	Items        []PurchaseItemRequest `json:"items" binding:"dive"`
}

type UpdatePurchaseItemRequest struct {
	Quantity *int     `json:"quantity"`
	UnitCost *float64 `json:"unit_cost"`
}

// FinalizeResult reports how many item stocks a finalization touched.
type FinalizeResult struct {
	PurchaseID   int64 `json:"purchase_id"`
	ItemsUpdated int   `json:"items_updated"`
}

// PurchaseReport is the mandatory-date-range report over purchases.
type PurchaseReport struct {
	DateFrom   string            `json:"date_from"`
	DateTo     string            `json:"date_to"`
	TotalCount int               `json:"total_count"`
	TotalPaid  float64           `json:"total_paid"`
	Purchases  []models.Purchase `json:"purchases"`
}

// --- PurchaseService Interface ---
type PurchaseService interface {
	CreatePurchase(req CreatePurchaseRequest) (*models.Purchase, error)
	GetPurchaseByID(purchaseID int64) (*models.Purchase, error)
	GetPurchases(filters models.PurchaseFilters) ([]models.Purchase, int, error)
	AddItem(purchaseID int64, req PurchaseItemRequest) (*models.PurchaseItem, error)
	UpdateItem(purchaseItemID int64, req UpdatePurchaseItemRequest) (*models.PurchaseItem, error)
	RemoveItem(purchaseItemID int64) error
	Finalize(purchaseID int64) (*FinalizeResult, error)
	DeletePurchase(purchaseID int64) error
	GetStatistics(period string) (*models.PurchaseStatistics, error)
	GetReport(dateFrom, dateTo string) (*PurchaseReport, error)
}

type purchaseService struct {
	purchaseRepo repositories.PurchaseRepository
	itemRepo     repositories.ItemRepository
	db           *sql.DB
}

// NewPurchaseService creates a new instance of PurchaseService.
func NewPurchaseService(pr repositories.PurchaseRepository, ir repositories.ItemRepository, db *sql.DB) PurchaseService {
	return &purchaseService{
		purchaseRepo: pr,
		itemRepo:     ir,
		db:           db,
	}
}

// resolveItemRef resolves a by-id or by-name item reference to an existing
// item without touching its stock.
func (s *purchaseService) resolveItemRef(ref ItemRef) (*models.Item, error) {
	switch {
	case ref.ItemID != nil:
		item, err := s.itemRepo.GetItemByID(*ref.ItemID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: item ID %d", ErrItemNotFound, *ref.ItemID)
			}
			return nil, fmt.Errorf("failed to resolve item by ID %d: %w", *ref.ItemID, err)
		}
		return item, nil
	case ref.ItemName != nil && strings.TrimSpace(*ref.ItemName) != "":
		item, err := s.itemRepo.FindItemByName(*ref.ItemName)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: item name '%s'", ErrItemNotFound, *ref.ItemName)
			}
			if errors.Is(err, repositories.ErrAmbiguousMatch) {
				return nil, fmt.Errorf("%w: '%s'", ErrAmbiguousItemName, *ref.ItemName)
			}
			return nil, fmt.Errorf("failed to resolve item by name '%s': %w", *ref.ItemName, err)
		}
		return item, nil
	default:
		return nil, fmt.Errorf("%w: purchase item must reference an item by item_id or item_name", ErrValidation)
	}
}

// CreatePurchase persists the purchase and its lines in one transaction with
// no stock effect. A resolution failure on any line rolls back the whole
// purchase.
func (s *purchaseService) CreatePurchase(req CreatePurchaseRequest) (*models.Purchase, error) {
	if strings.TrimSpace(req.Supplier) == "" {
		return nil, fmt.Errorf("%w: supplier cannot be empty", ErrValidation)
	}

	purchaseDate := time.Now()
	if req.PurchaseDate != "" {
		parsed, err := time.ParseInLocation(DateLayout, req.PurchaseDate, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid purchase_date '%s': expected %s", ErrValidation, req.PurchaseDate, DateLayout)
		}
		purchaseDate = parsed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	purchase := &models.Purchase{
		Supplier:     req.Supplier,
		PurchaseDate: purchaseDate,
		AmountPaid:   req.AmountPaid,
	}
	purchaseID, err := s.purchaseRepo.CreatePurchase(tx, purchase)
	if err != nil {
		return nil, fmt.Errorf("failed to create purchase record: %w", err)
	}

	for _, lineReq := range req.Items {
		if lineReq.Quantity <= 0 {
			return nil, fmt.Errorf("%w: purchase item quantity must be positive", ErrValidation)
		}
		item, err := s.resolveItemRef(lineReq.ItemRef)
		if err != nil {
			return nil, err
		}

		// The same item twice in one request accumulates onto one line.
		existing, err := s.purchaseRepo.GetPurchaseItemByPurchaseAndItem(tx, purchaseID, item.ID)
		if err == nil {
			existing.Quantity += lineReq.Quantity
			existing.UnitCost = lineReq.UnitCost
			if err := s.purchaseRepo.UpdatePurchaseItem(tx, existing); err != nil {
				return nil, fmt.Errorf("failed to accumulate purchase line for item %d: %w", item.ID, err)
			}
			continue
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to check existing purchase line for item %d: %w", item.ID, err)
		}

		line := &models.PurchaseItem{
			PurchaseID: purchaseID,
			ItemID:     item.ID,
			Quantity:   lineReq.Quantity,
			UnitCost:   lineReq.UnitCost,
		}
		if _, err := s.purchaseRepo.CreatePurchaseItem(tx, line); err != nil {
			return nil, fmt.Errorf("failed to create purchase line for item %d: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit purchase transaction: %w", err)
	}
	return s.GetPurchaseByID(purchaseID)
}

func (s *purchaseService) GetPurchaseByID(purchaseID int64) (*models.Purchase, error) {
	purchase, err := s.purchaseRepo.GetPurchaseByID(purchaseID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("failed to get purchase by ID: %w", err)
	}
	items, err := s.purchaseRepo.GetPurchaseItemsByPurchaseID(s.db, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase items: %w", err)
	}
	purchase.Items = items
	return purchase, nil
}

func (s *purchaseService) GetPurchases(filters models.PurchaseFilters) ([]models.Purchase, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 10
	}
	purchases, totalCount, err := s.purchaseRepo.GetPurchases(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get purchases: %w", err)
	}
	return purchases, totalCount, nil
}

// AddItem accumulates a line onto a non-finalized purchase. Adding an item
// that already has a line increments the existing quantity instead of
// creating a duplicate row.
func (s *purchaseService) AddItem(purchaseID int64, req PurchaseItemRequest) (*models.PurchaseItem, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: purchase item quantity must be positive", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	purchase, err := s.purchaseRepo.GetPurchaseForUpdate(tx, purchaseID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("failed to lock purchase %d: %w", purchaseID, err)
	}
	if purchase.Finalized {
		return nil, fmt.Errorf("%w: purchase ID %d", ErrPurchaseFinalized, purchaseID)
	}

	item, err := s.resolveItemRef(req.ItemRef)
	if err != nil {
		return nil, err
	}

	line, err := s.purchaseRepo.GetPurchaseItemByPurchaseAndItem(tx, purchaseID, item.ID)
	if err == nil {
		line.Quantity += req.Quantity
		line.UnitCost = req.UnitCost
		if err := s.purchaseRepo.UpdatePurchaseItem(tx, line); err != nil {
			return nil, fmt.Errorf("failed to accumulate purchase line: %w", err)
		}
	} else if errors.Is(err, repositories.ErrNotFound) {
		line = &models.PurchaseItem{
			PurchaseID: purchaseID,
			ItemID:     item.ID,
			Quantity:   req.Quantity,
			UnitCost:   req.UnitCost,
		}
		lineID, err := s.purchaseRepo.CreatePurchaseItem(tx, line)
		if err != nil {
			return nil, fmt.Errorf("failed to create purchase line: %w", err)
		}
		line.ID = lineID
	} else {
		return nil, fmt.Errorf("failed to check existing purchase line: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit purchase line addition: %w", err)
	}
	line.Item = item
	return line, nil
}

func (s *purchaseService) UpdateItem(purchaseItemID int64, req UpdatePurchaseItemRequest) (*models.PurchaseItem, error) {
	if req.Quantity != nil && *req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: purchase item quantity must be positive", ErrValidation)
	}
	if req.UnitCost != nil && *req.UnitCost < 0 {
		return nil, fmt.Errorf("%w: unit cost cannot be negative", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	line, err := s.purchaseRepo.GetPurchaseItemByID(purchaseItemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPurchaseItemNotFound
		}
		return nil, fmt.Errorf("failed to find purchase item for update: %w", err)
	}

	purchase, err := s.purchaseRepo.GetPurchaseForUpdate(tx, line.PurchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock parent purchase %d: %w", line.PurchaseID, err)
	}
	if purchase.Finalized {
		return nil, fmt.Errorf("%w: purchase ID %d", ErrPurchaseFinalized, purchase.ID)
	}

	if req.Quantity != nil {
		line.Quantity = *req.Quantity
	}
	if req.UnitCost != nil {
		line.UnitCost = *req.UnitCost
	}
	if err := s.purchaseRepo.UpdatePurchaseItem(tx, line); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPurchaseItemNotFound
		}
		return nil, fmt.Errorf("failed to update purchase item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit purchase item update: %w", err)
	}
	return line, nil
}

func (s *purchaseService) RemoveItem(purchaseItemID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	line, err := s.purchaseRepo.GetPurchaseItemByID(purchaseItemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrPurchaseItemNotFound
		}
		return fmt.Errorf("failed to find purchase item for removal: %w", err)
	}

	purchase, err := s.purchaseRepo.GetPurchaseForUpdate(tx, line.PurchaseID)
	if err != nil {
		return fmt.Errorf("failed to lock parent purchase %d: %w", line.PurchaseID, err)
	}
	if purchase.Finalized {
		return fmt.Errorf("%w: purchase ID %d", ErrPurchaseFinalized, purchase.ID)
	}

	if err := s.purchaseRepo.DeletePurchaseItem(tx, purchaseItemID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrPurchaseItemNotFound
		}
		return fmt.Errorf("failed to delete purchase item: %w", err)
	}
	return tx.Commit()
}

// Finalize applies every line of the purchase to item stock and flips the
// finalized flag, all in one transaction. The purchase row is locked first so
// two concurrent finalize calls cannot both observe finalized=false; the
// second caller fails with ErrPurchaseFinalized and stock is applied exactly
// once. A purchase with no lines finalizes as a successful no-op.
func (s *purchaseService) Finalize(purchaseID int64) (*FinalizeResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	purchase, err := s.purchaseRepo.GetPurchaseForUpdate(tx, purchaseID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("failed to lock purchase %d for finalization: %w", purchaseID, err)
	}
	if purchase.Finalized {
		return nil, fmt.Errorf("%w: purchase ID %d", ErrPurchaseFinalized, purchaseID)
	}

	lines, err := s.purchaseRepo.GetPurchaseItemsByPurchaseID(tx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase lines for finalization: %w", err)
	}

	for _, line := range lines {
		if _, err := s.itemRepo.AdjustQuantity(tx, line.ItemID, line.Quantity); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: item ID %d referenced by purchase %d no longer exists", ErrItemNotFound, line.ItemID, purchaseID)
			}
			return nil, fmt.Errorf("failed to apply purchase line for item %d: %w", line.ItemID, err)
		}
	}

	if err := s.purchaseRepo.SetFinalized(tx, purchaseID); err != nil {
		return nil, fmt.Errorf("failed to mark purchase %d finalized: %w", purchaseID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit purchase finalization: %w", err)
	}
	return &FinalizeResult{PurchaseID: purchaseID, ItemsUpdated: len(lines)}, nil
}

// DeletePurchase removes the bookkeeping rows, lines first, then the header.
// Deleting a finalized purchase never reverses the stock it applied;
// finalized purchases are historical fact.
func (s *purchaseService) DeletePurchase(purchaseID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = s.purchaseRepo.GetPurchaseForUpdate(tx, purchaseID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrPurchaseNotFound
		}
		return fmt.Errorf("failed to lock purchase %d for deletion: %w", purchaseID, err)
	}

	if _, err := s.purchaseRepo.DeletePurchaseItemsByPurchaseID(tx, purchaseID); err != nil {
		return fmt.Errorf("failed to delete purchase lines: %w", err)
	}
	if err := s.purchaseRepo.DeletePurchase(tx, purchaseID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrPurchaseNotFound
		}
		return fmt.Errorf("failed to delete purchase: %w", err)
	}
	return tx.Commit()
}

func (s *purchaseService) GetStatistics(period string) (*models.PurchaseStatistics, error) {
	from, to, err := periodWindow(period, time.Now())
	if err != nil {
		return nil, err
	}
	stats, err := s.purchaseRepo.GetStatistics(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase statistics: %w", err)
	}
	return stats, nil
}

func (s *purchaseService) GetReport(dateFrom, dateTo string) (*PurchaseReport, error) {
	from, to, err := reportWindow(dateFrom, dateTo)
	if err != nil {
		return nil, err
	}
	rows, err := s.purchaseRepo.GetReportRows(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase report: %w", err)
	}

	report := &PurchaseReport{
		DateFrom:  dateFrom,
		DateTo:    dateTo,
		Purchases: rows,
	}
	for _, p := range rows {
		report.TotalCount++
		report.TotalPaid += p.AmountPaid
	}
	return report, nil
}
