package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/models"

	"github.com/lib/pq"
)

// PurchaseRepository defines the interface for purchase-related database
// operations. Purchases and their lines have no stock effect here; the
// service applies line quantities through ItemRepository.AdjustQuantity when
// a purchase is finalized.
type PurchaseRepository interface {
	CreatePurchase(executor SQLExecutor, p *models.Purchase) (int64, error)
	GetPurchaseByID(id int64) (*models.Purchase, error)
	// GetPurchaseForUpdate loads the purchase row with FOR UPDATE inside the
	// caller's transaction. Finalize and line mutations go through this so
	// two concurrent callers cannot both observe finalized=false.
	GetPurchaseForUpdate(executor SQLExecutor, id int64) (*models.Purchase, error)
	GetPurchases(filters models.PurchaseFilters) ([]models.Purchase, int, error)
	SetFinalized(executor SQLExecutor, id int64) error
	DeletePurchase(executor SQLExecutor, id int64) error
	DeletePurchaseItemsByPurchaseID(executor SQLExecutor, purchaseID int64) (int64, error)

	CreatePurchaseItem(executor SQLExecutor, pi *models.PurchaseItem) (int64, error)
	GetPurchaseItemByID(id int64) (*models.PurchaseItem, error)
	GetPurchaseItemsByPurchaseID(executor SQLExecutor, purchaseID int64) ([]models.PurchaseItem, error)
	GetPurchaseItemByPurchaseAndItem(executor SQLExecutor, purchaseID, itemID int64) (*models.PurchaseItem, error)
	UpdatePurchaseItem(executor SQLExecutor, pi *models.PurchaseItem) error
	DeletePurchaseItem(executor SQLExecutor, id int64) error

	GetStatistics(from, to time.Time) (*models.PurchaseStatistics, error)
	GetReportRows(from, to time.Time) ([]models.Purchase, error)
}

type purchaseRepository struct {
	db *sql.DB
}

// NewPurchaseRepository creates a new instance of PurchaseRepository.
func NewPurchaseRepository(db *sql.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) CreatePurchase(executor SQLExecutor, p *models.Purchase) (int64, error) {
	query := `INSERT INTO purchases (supplier, purchase_date, amount_paid, finalized, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	currentTime := time.Now()
	err := executor.QueryRow(query,
		p.Supplier, p.PurchaseDate, p.AmountPaid, p.Finalized, currentTime, currentTime,
	).Scan(&p.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating purchase: %v", ErrDatabaseError, err)
	}
	return p.ID, nil
}

func scanPurchase(s interface{ Scan(...interface{}) error }, p *models.Purchase, extra ...interface{}) error {
	dest := []interface{}{
		&p.ID, &p.Supplier, &p.PurchaseDate, &p.AmountPaid, &p.Finalized,
		&p.CreatedAt, &p.UpdatedAt,
	}
	dest = append(dest, extra...)
	return s.Scan(dest...)
}

const purchaseSelectColumns = `id, supplier, purchase_date, amount_paid, finalized, created_at, updated_at`

func (r *purchaseRepository) GetPurchaseByID(id int64) (*models.Purchase, error) {
	p := &models.Purchase{}
	query := `SELECT ` + purchaseSelectColumns + ` FROM purchases WHERE id = $1`
	err := scanPurchase(r.db.QueryRow(query, id), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting purchase by ID %d: %v", ErrDatabaseError, id, err)
	}
	return p, nil
}

func (r *purchaseRepository) GetPurchaseForUpdate(executor SQLExecutor, id int64) (*models.Purchase, error) {
	p := &models.Purchase{}
	query := `SELECT ` + purchaseSelectColumns + ` FROM purchases WHERE id = $1 FOR UPDATE`
	err := scanPurchase(executor.QueryRow(query, id), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking purchase ID %d: %v", ErrDatabaseError, id, err)
	}
	return p, nil
}

func (r *purchaseRepository) GetPurchases(filters models.PurchaseFilters) ([]models.Purchase, int, error) {
	purchases := []models.Purchase{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + purchaseSelectColumns + `, COUNT(*) OVER() AS total_count FROM purchases`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.Supplier != nil && *filters.Supplier != "" {
		conditions = append(conditions, fmt.Sprintf("supplier ILIKE '%%' || $%d || '%%'", argCount))
		args = append(args, *filters.Supplier)
		argCount++
	}
	if filters.Finalized != nil {
		conditions = append(conditions, fmt.Sprintf("finalized = $%d", argCount))
		args = append(args, *filters.Finalized)
		argCount++
	}
	if filters.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("purchase_date >= $%d", argCount))
		args = append(args, *filters.DateFrom)
		argCount++
	}
	if filters.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("purchase_date <= $%d", argCount))
		args = append(args, *filters.DateTo)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY purchase_date DESC, created_at DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting purchases: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Purchase
		if err := scanPurchase(rows, &p, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning purchase: %v", ErrDatabaseError, err)
		}
		purchases = append(purchases, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating purchases: %v", ErrDatabaseError, err)
	}
	return purchases, totalCount, nil
}

func (r *purchaseRepository) SetFinalized(executor SQLExecutor, id int64) error {
	result, err := executor.Exec(`UPDATE purchases SET finalized = TRUE, updated_at = $1 WHERE id = $2`,
		time.Now(), id)
	if err != nil {
		return fmt.Errorf("%w: finalizing purchase ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *purchaseRepository) DeletePurchase(executor SQLExecutor, id int64) error {
	result, err := executor.Exec(`DELETE FROM purchases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting purchase ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *purchaseRepository) DeletePurchaseItemsByPurchaseID(executor SQLExecutor, purchaseID int64) (int64, error) {
	result, err := executor.Exec(`DELETE FROM purchase_items WHERE purchase_id = $1`, purchaseID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting purchase items for purchase ID %d: %v", ErrDatabaseError, purchaseID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

func (r *purchaseRepository) CreatePurchaseItem(executor SQLExecutor, pi *models.PurchaseItem) (int64, error) {
	query := `INSERT INTO purchase_items (purchase_id, item_id, quantity, unit_cost, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	currentTime := time.Now()
	err := executor.QueryRow(query,
		pi.PurchaseID, pi.ItemID, pi.Quantity, pi.UnitCost, currentTime, currentTime,
	).Scan(&pi.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			if pqErr.Code.Name() == "unique_violation" {
				return 0, fmt.Errorf("%w: purchase %d already has a line for item %d (constraint: %s)", ErrDuplicateKey, pi.PurchaseID, pi.ItemID, pqErr.Constraint)
			}
			if pqErr.Code.Name() == "foreign_key_violation" {
				return 0, fmt.Errorf("%w: purchase %d or item %d does not exist", ErrNotFound, pi.PurchaseID, pi.ItemID)
			}
		}
		return 0, fmt.Errorf("%w: creating purchase item: %v", ErrDatabaseError, err)
	}
	return pi.ID, nil
}

const purchaseItemSelectColumns = `pi.id, pi.purchase_id, pi.item_id, pi.quantity, pi.unit_cost, pi.created_at, pi.updated_at`

func scanPurchaseItem(s interface{ Scan(...interface{}) error }, pi *models.PurchaseItem) error {
	return s.Scan(&pi.ID, &pi.PurchaseID, &pi.ItemID, &pi.Quantity, &pi.UnitCost, &pi.CreatedAt, &pi.UpdatedAt)
}

func (r *purchaseRepository) GetPurchaseItemByID(id int64) (*models.PurchaseItem, error) {
	pi := &models.PurchaseItem{}
	query := `SELECT ` + purchaseItemSelectColumns + ` FROM purchase_items pi WHERE pi.id = $1`
	err := scanPurchaseItem(r.db.QueryRow(query, id), pi)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting purchase item by ID %d: %v", ErrDatabaseError, id, err)
	}
	return pi, nil
}

func (r *purchaseRepository) GetPurchaseItemsByPurchaseID(executor SQLExecutor, purchaseID int64) ([]models.PurchaseItem, error) {
	items := []models.PurchaseItem{}
	query := `SELECT ` + purchaseItemSelectColumns + `,
	            i.id, i.name, i.type, i.size, i.color, i.unit_price, i.quantity, i.owner_id, i.created_at, i.updated_at
	          FROM purchase_items pi
	          JOIN items i ON pi.item_id = i.id
	          WHERE pi.purchase_id = $1
	          ORDER BY pi.id`
	rows, err := executor.Query(query, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting purchase items for purchase ID %d: %v", ErrDatabaseError, purchaseID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var pi models.PurchaseItem
		item := models.Item{}
		var ownerID sql.NullInt64
		if err := rows.Scan(
			&pi.ID, &pi.PurchaseID, &pi.ItemID, &pi.Quantity, &pi.UnitCost, &pi.CreatedAt, &pi.UpdatedAt,
			&item.ID, &item.Name, &item.Type, &item.Size, &item.Color,
			&item.UnitPrice, &item.Quantity, &ownerID, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning purchase item: %v", ErrDatabaseError, err)
		}
		if ownerID.Valid {
			item.OwnerID = &ownerID.Int64
		}
		pi.Item = &item
		items = append(items, pi)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating purchase items: %v", ErrDatabaseError, err)
	}
	return items, nil
}

func (r *purchaseRepository) GetPurchaseItemByPurchaseAndItem(executor SQLExecutor, purchaseID, itemID int64) (*models.PurchaseItem, error) {
	pi := &models.PurchaseItem{}
	query := `SELECT ` + purchaseItemSelectColumns + ` FROM purchase_items pi
	          WHERE pi.purchase_id = $1 AND pi.item_id = $2`
	err := scanPurchaseItem(executor.QueryRow(query, purchaseID, itemID), pi)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting purchase item for purchase %d item %d: %v", ErrDatabaseError, purchaseID, itemID, err)
	}
	return pi, nil
}

func (r *purchaseRepository) UpdatePurchaseItem(executor SQLExecutor, pi *models.PurchaseItem) error {
	query := `UPDATE purchase_items SET quantity = $1, unit_cost = $2, updated_at = $3 WHERE id = $4`
	result, err := executor.Exec(query, pi.Quantity, pi.UnitCost, time.Now(), pi.ID)
	if err != nil {
		return fmt.Errorf("%w: updating purchase item ID %d: %v", ErrDatabaseError, pi.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *purchaseRepository) DeletePurchaseItem(executor SQLExecutor, id int64) error {
	result, err := executor.Exec(`DELETE FROM purchase_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting purchase item ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *purchaseRepository) GetStatistics(from, to time.Time) (*models.PurchaseStatistics, error) {
	stats := &models.PurchaseStatistics{}
	// Summing amount_paid across a line join would multiply it per line;
	// aggregate the header and line sides separately.
	headerQuery := `SELECT COUNT(*), COALESCE(SUM(amount_paid), 0)
	                FROM purchases WHERE purchase_date BETWEEN $1 AND $2`
	lineQuery := `SELECT COALESCE(SUM(pi.quantity), 0)
	              FROM purchase_items pi
	              JOIN purchases p ON pi.purchase_id = p.id
	              WHERE p.purchase_date BETWEEN $1 AND $2`

	err := r.db.QueryRow(headerQuery, from, to).Scan(&stats.TotalCount, &stats.TotalPaid)
	if err != nil {
		return nil, fmt.Errorf("%w: getting purchase statistics: %v", ErrDatabaseError, err)
	}
	err = r.db.QueryRow(lineQuery, from, to).Scan(&stats.TotalQuantity)
	if err != nil {
		return nil, fmt.Errorf("%w: getting purchase quantity statistics: %v", ErrDatabaseError, err)
	}
	return stats, nil
}

func (r *purchaseRepository) GetReportRows(from, to time.Time) ([]models.Purchase, error) {
	purchases := []models.Purchase{}
	query := `SELECT ` + purchaseSelectColumns + ` FROM purchases
	          WHERE purchase_date BETWEEN $1 AND $2
	          ORDER BY purchase_date DESC, created_at DESC`
	rows, err := r.db.Query(query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: getting purchase report rows: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Purchase
		if err := scanPurchase(rows, &p); err != nil {
			return nil, fmt.Errorf("%w: scanning purchase report row: %v", ErrDatabaseError, err)
		}
		purchases = append(purchases, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating purchase report rows: %v", ErrDatabaseError, err)
	}
	return purchases, nil
}
