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

// ItemRepository defines the interface for item-related database operations.
// AdjustQuantity is the only quantity mutation primitive in the repository:
// every stock-touching component goes through it so the non-negative
// invariant is enforced in a single place, under a row lock.
type ItemRepository interface {
	CreateItem(executor SQLExecutor, item *models.Item) (int64, error)
	GetItemByID(id int64) (*models.Item, error)
	GetItems(filters models.ItemFilters) ([]models.Item, int, error)
	UpdateItem(executor SQLExecutor, item *models.Item) error
	DeleteItem(executor SQLExecutor, id int64) error

	// FindItemByName resolves an item by exact name first, then by a fuzzy
	// ILIKE match. Returns ErrNotFound when nothing matches and
	// ErrAmbiguousMatch when the fuzzy lookup matches more than one item.
	FindItemByName(name string) (*models.Item, error)

	GetQuantity(itemID int64) (int, error)

	// AdjustQuantity applies delta (positive or negative) to the item's
	// quantity inside the caller's transaction. The row is locked with
	// SELECT ... FOR UPDATE for the whole read-modify-write so concurrent
	// adjustments on the same item serialize. Returns the new quantity,
	// ErrNotFound when the item does not exist, or ErrInsufficientStock when
	// current+delta would be negative (in which case nothing is written).
	AdjustQuantity(executor SQLExecutor, itemID int64, delta int) (int, error)
}

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new instance of ItemRepository.
func NewItemRepository(db *sql.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) CreateItem(executor SQLExecutor, item *models.Item) (int64, error) {
	query := `INSERT INTO items (name, type, size, color, unit_price, quantity, owner_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id`
	currentTime := time.Now()

	var ownerID sql.NullInt64
	if item.OwnerID != nil {
		ownerID = sql.NullInt64{Int64: *item.OwnerID, Valid: true}
	}

	err := executor.QueryRow(query,
		item.Name, item.Type, item.Size, item.Color, item.UnitPrice,
		item.Quantity, ownerID, currentTime, currentTime,
	).Scan(&item.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: item name '%s' already exists (constraint: %s)", ErrDuplicateKey, item.Name, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating item: %v", ErrDatabaseError, err)
	}
	return item.ID, nil
}

func (r *itemRepository) GetItemByID(id int64) (*models.Item, error) {
	item := &models.Item{}
	var ownerID sql.NullInt64
	query := `SELECT id, name, type, size, color, unit_price, quantity, owner_id, created_at, updated_at
	          FROM items WHERE id = $1`
	err := r.db.QueryRow(query, id).Scan(
		&item.ID, &item.Name, &item.Type, &item.Size, &item.Color,
		&item.UnitPrice, &item.Quantity, &ownerID, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting item by ID %d: %v", ErrDatabaseError, id, err)
	}
	if ownerID.Valid {
		item.OwnerID = &ownerID.Int64
	}
	return item, nil
}

func (r *itemRepository) GetItems(filters models.ItemFilters) ([]models.Item, int, error) {
	items := []models.Item{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, name, type, size, color, unit_price, quantity, owner_id,
	    created_at, updated_at, COUNT(*) OVER() AS total_count
	  FROM items`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.Name != nil && *filters.Name != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE '%%' || $%d || '%%'", argCount))
		args = append(args, *filters.Name)
		argCount++
	}
	if filters.Type != nil && *filters.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argCount))
		args = append(args, *filters.Type)
		argCount++
	}
	if filters.OwnerID != nil {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argCount))
		args = append(args, *filters.OwnerID)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY name")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting items: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.Item
		var ownerID sql.NullInt64
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Type, &item.Size, &item.Color,
			&item.UnitPrice, &item.Quantity, &ownerID, &item.CreatedAt, &item.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning item: %v", ErrDatabaseError, err)
		}
		if ownerID.Valid {
			item.OwnerID = &ownerID.Int64
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating items: %v", ErrDatabaseError, err)
	}
	return items, totalCount, nil
}

func (r *itemRepository) UpdateItem(executor SQLExecutor, item *models.Item) error {
	// Quantity is deliberately absent here: stock moves only through
	// AdjustQuantity.
	query := `UPDATE items SET name = $1, type = $2, size = $3, color = $4,
	            unit_price = $5, owner_id = $6, updated_at = $7
	          WHERE id = $8`

	var ownerID sql.NullInt64
	if item.OwnerID != nil {
		ownerID = sql.NullInt64{Int64: *item.OwnerID, Valid: true}
	}

	result, err := executor.Exec(query,
		item.Name, item.Type, item.Size, item.Color, item.UnitPrice,
		ownerID, time.Now(), item.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: item name '%s' already exists (constraint: %s)", ErrDuplicateKey, item.Name, pqErr.Constraint)
		}
		return fmt.Errorf("%w: updating item ID %d: %v", ErrDatabaseError, item.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepository) DeleteItem(executor SQLExecutor, id int64) error {
	query := `DELETE FROM items WHERE id = $1`
	result, err := executor.Exec(query, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" { // foreign_key_violation
			return fmt.Errorf("%w: item ID %d is referenced by other records (purchases or write-downs) (constraint: %s)", ErrDatabaseError, id, pqErr.Constraint)
		}
		return fmt.Errorf("%w: deleting item ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepository) FindItemByName(name string) (*models.Item, error) {
	item := &models.Item{}
	var ownerID sql.NullInt64

	query := `SELECT id, name, type, size, color, unit_price, quantity, owner_id, created_at, updated_at
	          FROM items WHERE name = $1`
	err := r.db.QueryRow(query, name).Scan(
		&item.ID, &item.Name, &item.Type, &item.Size, &item.Color,
		&item.UnitPrice, &item.Quantity, &ownerID, &item.CreatedAt, &item.UpdatedAt,
	)
	if err == nil {
		if ownerID.Valid {
			item.OwnerID = &ownerID.Int64
		}
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: finding item by name '%s': %v", ErrDatabaseError, name, err)
	}

	// No exact match, fall back to a fuzzy lookup. LIMIT 2 is enough to
	// detect ambiguity.
	fuzzyQuery := `SELECT id, name, type, size, color, unit_price, quantity, owner_id, created_at, updated_at
	               FROM items WHERE name ILIKE '%' || $1 || '%' ORDER BY name LIMIT 2`
	rows, err := r.db.Query(fuzzyQuery, name)
	if err != nil {
		return nil, fmt.Errorf("%w: fuzzy-finding item by name '%s': %v", ErrDatabaseError, name, err)
	}
	defer rows.Close()

	matches := 0
	for rows.Next() {
		matches++
		if matches > 1 {
			return nil, fmt.Errorf("%w: item name '%s' matches more than one item", ErrAmbiguousMatch, name)
		}
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Type, &item.Size, &item.Color,
			&item.UnitPrice, &item.Quantity, &ownerID, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning item matched by name '%s': %v", ErrDatabaseError, name, err)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating items matched by name '%s': %v", ErrDatabaseError, name, err)
	}
	if matches == 0 {
		return nil, ErrNotFound
	}
	if ownerID.Valid {
		item.OwnerID = &ownerID.Int64
	}
	return item, nil
}

func (r *itemRepository) GetQuantity(itemID int64) (int, error) {
	var quantity int
	err := r.db.QueryRow(`SELECT quantity FROM items WHERE id = $1`, itemID).Scan(&quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: getting quantity for item ID %d: %v", ErrDatabaseError, itemID, err)
	}
	return quantity, nil
}

func (r *itemRepository) AdjustQuantity(executor SQLExecutor, itemID int64, delta int) (int, error) {
	var current int
	err := executor.QueryRow(`SELECT quantity FROM items WHERE id = $1 FOR UPDATE`, itemID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: locking item ID %d for adjustment: %v", ErrDatabaseError, itemID, err)
	}

	newQuantity := current + delta
	if newQuantity < 0 {
		return 0, fmt.Errorf("%w: item ID %d has %d on hand, requested removal of %d", ErrInsufficientStock, itemID, current, -delta)
	}

	_, err = executor.Exec(`UPDATE items SET quantity = $1, updated_at = $2 WHERE id = $3`,
		newQuantity, time.Now(), itemID)
	if err != nil {
		return 0, fmt.Errorf("%w: adjusting quantity for item ID %d: %v", ErrDatabaseError, itemID, err)
	}
	return newQuantity, nil
}
