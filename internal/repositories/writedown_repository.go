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

// WriteDownRepository defines the interface for write-down (baixa) database
// operations. Stock effects are not handled here: the owning service pairs
// every insert/delete with an ItemRepository.AdjustQuantity call inside the
// same transaction.
type WriteDownRepository interface {
	CreateWriteDown(executor SQLExecutor, wd *models.WriteDown) (int64, error)
	GetWriteDownByID(id int64) (*models.WriteDown, error)
	GetWriteDowns(filters models.WriteDownFilters) ([]models.WriteDown, int, error)
	// UpdateWriteDown only touches reason and note. Quantity and item_id are
	// frozen at creation.
	UpdateWriteDown(executor SQLExecutor, wd *models.WriteDown) error
	DeleteWriteDown(executor SQLExecutor, id int64) error
	GetStatistics(from, to time.Time) (*models.WriteDownStatistics, error)
	GetReportRows(from, to time.Time, reason *string) ([]models.WriteDown, error)
}

type writeDownRepository struct {
	db *sql.DB
}

// NewWriteDownRepository creates a new instance of WriteDownRepository.
func NewWriteDownRepository(db *sql.DB) WriteDownRepository {
	return &writeDownRepository{db: db}
}

const writeDownSelectColumns = `wd.id, wd.item_id, wd.quantity, wd.reason, wd.note, wd.created_at, wd.updated_at,
	    i.id, i.name, i.type, i.size, i.color, i.unit_price, i.quantity, i.owner_id, i.created_at, i.updated_at`

func scanWriteDownRow(s interface{ Scan(...interface{}) error }, wd *models.WriteDown, extra ...interface{}) error {
	item := models.Item{}
	var ownerID sql.NullInt64
	dest := []interface{}{
		&wd.ID, &wd.ItemID, &wd.Quantity, &wd.Reason, &wd.Note, &wd.CreatedAt, &wd.UpdatedAt,
		&item.ID, &item.Name, &item.Type, &item.Size, &item.Color,
		&item.UnitPrice, &item.Quantity, &ownerID, &item.CreatedAt, &item.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := s.Scan(dest...); err != nil {
		return err
	}
	if ownerID.Valid {
		item.OwnerID = &ownerID.Int64
	}
	wd.Item = &item
	return nil
}

func (r *writeDownRepository) CreateWriteDown(executor SQLExecutor, wd *models.WriteDown) (int64, error) {
	query := `INSERT INTO write_downs (item_id, quantity, reason, note, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id, created_at`
	currentTime := time.Now()
	err := executor.QueryRow(query,
		wd.ItemID, wd.Quantity, wd.Reason, wd.Note, currentTime, currentTime,
	).Scan(&wd.ID, &wd.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return 0, fmt.Errorf("%w: item ID %d does not exist for write-down", ErrNotFound, wd.ItemID)
		}
		return 0, fmt.Errorf("%w: creating write-down: %v", ErrDatabaseError, err)
	}
	return wd.ID, nil
}

func (r *writeDownRepository) GetWriteDownByID(id int64) (*models.WriteDown, error) {
	wd := &models.WriteDown{}
	query := `SELECT ` + writeDownSelectColumns + `
	          FROM write_downs wd
	          JOIN items i ON wd.item_id = i.id
	          WHERE wd.id = $1`
	err := scanWriteDownRow(r.db.QueryRow(query, id), wd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting write-down by ID %d: %v", ErrDatabaseError, id, err)
	}
	return wd, nil
}

func (r *writeDownRepository) GetWriteDowns(filters models.WriteDownFilters) ([]models.WriteDown, int, error) {
	writeDowns := []models.WriteDown{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + writeDownSelectColumns + `, COUNT(*) OVER() AS total_count
	  FROM write_downs wd
	  JOIN items i ON wd.item_id = i.id`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.ItemID != nil {
		conditions = append(conditions, fmt.Sprintf("wd.item_id = $%d", argCount))
		args = append(args, *filters.ItemID)
		argCount++
	}
	if filters.Reason != nil && *filters.Reason != "" {
		conditions = append(conditions, fmt.Sprintf("wd.reason = $%d", argCount))
		args = append(args, *filters.Reason)
		argCount++
	}
	if filters.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("wd.created_at >= $%d", argCount))
		args = append(args, *filters.DateFrom)
		argCount++
	}
	if filters.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("wd.created_at <= $%d", argCount))
		args = append(args, *filters.DateTo)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY wd.created_at DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting write-downs: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var wd models.WriteDown
		if err := scanWriteDownRow(rows, &wd, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning write-down: %v", ErrDatabaseError, err)
		}
		writeDowns = append(writeDowns, wd)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating write-downs: %v", ErrDatabaseError, err)
	}
	return writeDowns, totalCount, nil
}

func (r *writeDownRepository) UpdateWriteDown(executor SQLExecutor, wd *models.WriteDown) error {
	query := `UPDATE write_downs SET reason = $1, note = $2, updated_at = $3 WHERE id = $4`
	result, err := executor.Exec(query, wd.Reason, wd.Note, time.Now(), wd.ID)
	if err != nil {
		return fmt.Errorf("%w: updating write-down ID %d: %v", ErrDatabaseError, wd.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *writeDownRepository) DeleteWriteDown(executor SQLExecutor, id int64) error {
	result, err := executor.Exec(`DELETE FROM write_downs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting write-down ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *writeDownRepository) GetStatistics(from, to time.Time) (*models.WriteDownStatistics, error) {
	stats := &models.WriteDownStatistics{ByReason: map[string]models.ReasonAggregate{}}

	query := `SELECT wd.reason, COUNT(*), COALESCE(SUM(wd.quantity), 0), COALESCE(SUM(wd.quantity * i.unit_price), 0)
	          FROM write_downs wd
	          JOIN items i ON wd.item_id = i.id
	          WHERE wd.created_at BETWEEN $1 AND $2
	          GROUP BY wd.reason`
	rows, err := r.db.Query(query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: getting write-down statistics: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var reason string
		var count, quantity int
		var value float64
		if err := rows.Scan(&reason, &count, &quantity, &value); err != nil {
			return nil, fmt.Errorf("%w: scanning write-down statistics: %v", ErrDatabaseError, err)
		}
		stats.TotalCount += count
		stats.TotalQuantity += quantity
		stats.ByReason[reason] = models.ReasonAggregate{Quantity: quantity, Value: value}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating write-down statistics: %v", ErrDatabaseError, err)
	}
	return stats, nil
}

func (r *writeDownRepository) GetReportRows(from, to time.Time, reason *string) ([]models.WriteDown, error) {
	writeDowns := []models.WriteDown{}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + writeDownSelectColumns + `
	  FROM write_downs wd
	  JOIN items i ON wd.item_id = i.id
	  WHERE wd.created_at BETWEEN $1 AND $2`)
	args := []interface{}{from, to}

	if reason != nil && *reason != "" {
		queryBuilder.WriteString(" AND wd.reason = $3")
		args = append(args, *reason)
	}
	queryBuilder.WriteString(" ORDER BY wd.created_at DESC")

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: getting write-down report rows: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var wd models.WriteDown
		if err := scanWriteDownRow(rows, &wd); err != nil {
			return nil, fmt.Errorf("%w: scanning write-down report row: %v", ErrDatabaseError, err)
		}
		writeDowns = append(writeDowns, wd)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating write-down report rows: %v", ErrDatabaseError, err)
	}
	return writeDowns, nil
}
