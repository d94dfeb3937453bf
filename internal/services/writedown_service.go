package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/models"
	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/repositories"
)

// --- Custom Service Errors ---
var (
	ErrWriteDownNotFound = errors.New("write-down not found")
	ErrInvalidReason     = errors.New("invalid write-down reason")
)

// --- DTOs ---

type CreateWriteDownRequest struct {
	ItemID   int64   `json:"item_id" binding:"required"`
	Quantity int     `json:"quantity" binding:"required,gt=0"`
	Reason   string  `json:"reason" binding:"required"`
	Note     *string `json:"note"`
}

// UpdateWriteDownRequest carries the only mutable fields of a write-down.
// Quantity and item are frozen at creation so the ledger stays consistent.
type UpdateWriteDownRequest struct {
	Reason *string `json:"reason"`
	Note   *string `json:"note"`
}

// DeleteWriteDownResult reports the stock restored by deleting a write-down.
type DeleteWriteDownResult struct {
	ItemID           int64 `json:"item_id"`
	RestoredQuantity int   `json:"restored_quantity"`
	CurrentQuantity  int   `json:"current_quantity"`
}

// WriteDownReport is the mandatory-date-range report over write-downs.
type WriteDownReport struct {
	DateFrom      string             `json:"date_from"`
	DateTo        string             `json:"date_to"`
	TotalCount    int                `json:"total_count"`
	TotalQuantity int                `json:"total_quantity"`
	TotalValue    float64            `json:"total_value"`
	Items         []models.WriteDown `json:"items"`
}

// --- WriteDownService Interface ---
type WriteDownService interface {
	CreateWriteDown(req CreateWriteDownRequest) (*models.WriteDown, error)
	GetWriteDownByID(id int64) (*models.WriteDown, error)
	GetWriteDowns(filters models.WriteDownFilters) ([]models.WriteDown, int, error)
	UpdateWriteDown(id int64, req UpdateWriteDownRequest) (*models.WriteDown, error)
	DeleteWriteDown(id int64) (*DeleteWriteDownResult, error)
	GetStatistics(period string) (*models.WriteDownStatistics, error)
	GetReport(dateFrom, dateTo string, reason *string) (*WriteDownReport, error)
}

type writeDownService struct {
	writeDownRepo repositories.WriteDownRepository
	itemRepo      repositories.ItemRepository
	db            *sql.DB
}

// NewWriteDownService creates a new instance of WriteDownService.
func NewWriteDownService(wdr repositories.WriteDownRepository, ir repositories.ItemRepository, db *sql.DB) WriteDownService {
	return &writeDownService{
		writeDownRepo: wdr,
		itemRepo:      ir,
		db:            db,
	}
}

// CreateWriteDown decrements the item's stock and records the write-down in a
// single transaction. The decrement goes through AdjustQuantity, which locks
// the item row and rejects the operation when stock is insufficient, so a
// failure on either step leaves no partial state.
func (s *writeDownService) CreateWriteDown(req CreateWriteDownRequest) (*models.WriteDown, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: write-down quantity must be positive", ErrValidation)
	}
	if !models.IsValidWriteDownReason(req.Reason) {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidReason, req.Reason)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = s.itemRepo.AdjustQuantity(tx, req.ItemID, -req.Quantity)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: item ID %d", ErrItemNotFound, req.ItemID)
		}
		if errors.Is(err, repositories.ErrInsufficientStock) {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientStock, err)
		}
		return nil, fmt.Errorf("failed to decrement stock for write-down: %w", err)
	}

	wd := &models.WriteDown{
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
		Reason:   req.Reason,
		Note:     req.Note,
	}
	id, err := s.writeDownRepo.CreateWriteDown(tx, wd)
	if err != nil {
		return nil, fmt.Errorf("failed to record write-down: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit write-down transaction: %w", err)
	}
	return s.writeDownRepo.GetWriteDownByID(id)
}

func (s *writeDownService) GetWriteDownByID(id int64) (*models.WriteDown, error) {
	wd, err := s.writeDownRepo.GetWriteDownByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrWriteDownNotFound
		}
		return nil, fmt.Errorf("failed to get write-down by ID: %w", err)
	}
	return wd, nil
}

func (s *writeDownService) GetWriteDowns(filters models.WriteDownFilters) ([]models.WriteDown, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 10
	}
	if filters.Reason != nil && *filters.Reason != "" && !models.IsValidWriteDownReason(*filters.Reason) {
		return nil, 0, fmt.Errorf("%w: '%s'", ErrInvalidReason, *filters.Reason)
	}
	writeDowns, totalCount, err := s.writeDownRepo.GetWriteDowns(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get write-downs: %w", err)
	}
	return writeDowns, totalCount, nil
}

// UpdateWriteDown changes descriptive fields only; stock is untouched.
func (s *writeDownService) UpdateWriteDown(id int64, req UpdateWriteDownRequest) (*models.WriteDown, error) {
	wd, err := s.writeDownRepo.GetWriteDownByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrWriteDownNotFound
		}
		return nil, fmt.Errorf("failed to find write-down for update: %w", err)
	}

	if req.Reason != nil {
		if !models.IsValidWriteDownReason(*req.Reason) {
			return nil, fmt.Errorf("%w: '%s'", ErrInvalidReason, *req.Reason)
		}
		wd.Reason = *req.Reason
	}
	if req.Note != nil {
		wd.Note = req.Note
	}

	err = s.writeDownRepo.UpdateWriteDown(s.db, wd)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrWriteDownNotFound
		}
		return nil, fmt.Errorf("failed to update write-down: %w", err)
	}
	return s.writeDownRepo.GetWriteDownByID(id)
}

// DeleteWriteDown is the compensating transaction of CreateWriteDown: it
// restores the written-down quantity to the item and removes the record in
// one transaction. The restore is additive so sufficiency is not re-checked.
func (s *writeDownService) DeleteWriteDown(id int64) (*DeleteWriteDownResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	wd, err := s.writeDownRepo.GetWriteDownByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrWriteDownNotFound
		}
		return nil, fmt.Errorf("failed to find write-down for deletion: %w", err)
	}

	newQuantity, err := s.itemRepo.AdjustQuantity(tx, wd.ItemID, wd.Quantity)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: item ID %d", ErrItemNotFound, wd.ItemID)
		}
		return nil, fmt.Errorf("failed to restore stock for write-down %d: %w", id, err)
	}

	if err := s.writeDownRepo.DeleteWriteDown(tx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrWriteDownNotFound
		}
		return nil, fmt.Errorf("failed to delete write-down %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit write-down deletion: %w", err)
	}
	return &DeleteWriteDownResult{
		ItemID:           wd.ItemID,
		RestoredQuantity: wd.Quantity,
		CurrentQuantity:  newQuantity,
	}, nil
}

func (s *writeDownService) GetStatistics(period string) (*models.WriteDownStatistics, error) {
	from, to, err := periodWindow(period, time.Now())
	if err != nil {
		return nil, err
	}
	stats, err := s.writeDownRepo.GetStatistics(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get write-down statistics: %w", err)
	}
	return stats, nil
}

func (s *writeDownService) GetReport(dateFrom, dateTo string, reason *string) (*WriteDownReport, error) {
	from, to, err := reportWindow(dateFrom, dateTo)
	if err != nil {
		return nil, err
	}
	if reason != nil && *reason != "" && !models.IsValidWriteDownReason(*reason) {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidReason, *reason)
	}

	rows, err := s.writeDownRepo.GetReportRows(from, to, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to get write-down report: %w", err)
	}

	report := &WriteDownReport{
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Items:    rows,
	}
	for _, wd := range rows {
		report.TotalCount++
		report.TotalQuantity += wd.Quantity
		if wd.Item != nil {
			report.TotalValue += float64(wd.Quantity) * wd.Item.UnitPrice
		}
	}
	return report, nil
}
