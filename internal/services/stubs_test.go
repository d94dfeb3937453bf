package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/models"
	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/repositories"
)

// In-memory repository stubs. They implement the repository interfaces over
// maps guarded by a mutex, so the same service code paths (including the
// concurrent ones) run without Postgres. The executor argument is ignored;
// transaction semantics are not part of what these tests assert beyond the
// quantity invariant, which AdjustQuantity enforces under the mutex exactly
// like the real repository enforces it under a row lock.

// --- item repository stub ---

type stubItemRepository struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*models.Item
}

func newStubItemRepository() *stubItemRepository {
	return &stubItemRepository{nextID: 1, items: make(map[int64]*models.Item)}
}

func (r *stubItemRepository) seed(name string, quantity int, unitPrice float64) *models.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := &models.Item{
		ID:        r.nextID,
		Name:      name,
		Type:      "garment",
		UnitPrice: unitPrice,
		Quantity:  quantity,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.items[item.ID] = item
	r.nextID++
	copied := *item
	return &copied
}

func (r *stubItemRepository) CreateItem(executor repositories.SQLExecutor, item *models.Item) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.Name == item.Name {
			return 0, fmt.Errorf("%w: item name '%s'", repositories.ErrDuplicateKey, item.Name)
		}
	}
	item.ID = r.nextID
	r.nextID++
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	copied := *item
	r.items[item.ID] = &copied
	return item.ID, nil
}

func (r *stubItemRepository) GetItemByID(id int64) (*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: item ID %d", repositories.ErrNotFound, id)
	}
	copied := *item
	return &copied, nil
}

func (r *stubItemRepository) GetItems(filters models.ItemFilters) ([]models.Item, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.Item
	for _, item := range r.items {
		if filters.Name != nil && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(*filters.Name)) {
			continue
		}
		if filters.Type != nil && item.Type != *filters.Type {
			continue
		}
		result = append(result, *item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, len(result), nil
}

func (r *stubItemRepository) UpdateItem(executor repositories.SQLExecutor, item *models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[item.ID]
	if !ok {
		return fmt.Errorf("%w: item ID %d", repositories.ErrNotFound, item.ID)
	}
	// Quantity is deliberately not copied; only AdjustQuantity moves stock.
	existing.Name = item.Name
	existing.Type = item.Type
	existing.Size = item.Size
	existing.Color = item.Color
	existing.UnitPrice = item.UnitPrice
	existing.OwnerID = item.OwnerID
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *stubItemRepository) DeleteItem(executor repositories.SQLExecutor, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("%w: item ID %d", repositories.ErrNotFound, id)
	}
	delete(r.items, id)
	return nil
}

func (r *stubItemRepository) FindItemByName(name string) (*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.Name == name {
			copied := *item
			return &copied, nil
		}
	}
	var matches []*models.Item
	for _, item := range r.items {
		if strings.Contains(strings.ToLower(item.Name), strings.ToLower(name)) {
			matches = append(matches, item)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: item name '%s'", repositories.ErrNotFound, name)
	case 1:
		copied := *matches[0]
		return &copied, nil
	default:
		return nil, fmt.Errorf("%w: item name '%s'", repositories.ErrAmbiguousMatch, name)
	}
}

func (r *stubItemRepository) GetQuantity(itemID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok {
		return 0, fmt.Errorf("%w: item ID %d", repositories.ErrNotFound, itemID)
	}
	return item.Quantity, nil
}

func (r *stubItemRepository) AdjustQuantity(executor repositories.SQLExecutor, itemID int64, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok {
		return 0, fmt.Errorf("%w: item ID %d", repositories.ErrNotFound, itemID)
	}
	newQuantity := item.Quantity + delta
	if newQuantity < 0 {
		return 0, fmt.Errorf("%w: item ID %d has %d on hand, requested removal of %d",
			repositories.ErrInsufficientStock, itemID, item.Quantity, -delta)
	}
	item.Quantity = newQuantity
	item.UpdatedAt = time.Now()
	return newQuantity, nil
}

// --- write-down repository stub ---

type stubWriteDownRepository struct {
	mu         sync.Mutex
	nextID     int64
	writeDowns map[int64]*models.WriteDown
	itemRepo   *stubItemRepository
}

func newStubWriteDownRepository(itemRepo *stubItemRepository) *stubWriteDownRepository {
	return &stubWriteDownRepository{
		nextID:     1,
		writeDowns: make(map[int64]*models.WriteDown),
		itemRepo:   itemRepo,
	}
}

func (r *stubWriteDownRepository) CreateWriteDown(executor repositories.SQLExecutor, wd *models.WriteDown) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wd.ID = r.nextID
	r.nextID++
	wd.CreatedAt = time.Now()
	wd.UpdatedAt = wd.CreatedAt
	copied := *wd
	r.writeDowns[wd.ID] = &copied
	return wd.ID, nil
}

func (r *stubWriteDownRepository) GetWriteDownByID(id int64) (*models.WriteDown, error) {
	r.mu.Lock()
	wd, ok := r.writeDowns[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: write-down ID %d", repositories.ErrNotFound, id)
	}
	copied := *wd
	r.mu.Unlock()

	item, err := r.itemRepo.GetItemByID(copied.ItemID)
	if err == nil {
		copied.Item = item
	}
	return &copied, nil
}

func (r *stubWriteDownRepository) GetWriteDowns(filters models.WriteDownFilters) ([]models.WriteDown, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.WriteDown
	for _, wd := range r.writeDowns {
		if filters.ItemID != nil && wd.ItemID != *filters.ItemID {
			continue
		}
		if filters.Reason != nil && wd.Reason != *filters.Reason {
			continue
		}
		if filters.DateFrom != nil && wd.CreatedAt.Before(*filters.DateFrom) {
			continue
		}
		if filters.DateTo != nil && !wd.CreatedAt.Before(*filters.DateTo) {
			continue
		}
		result = append(result, *wd)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, len(result), nil
}

func (r *stubWriteDownRepository) UpdateWriteDown(executor repositories.SQLExecutor, wd *models.WriteDown) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.writeDowns[wd.ID]
	if !ok {
		return fmt.Errorf("%w: write-down ID %d", repositories.ErrNotFound, wd.ID)
	}
	existing.Reason = wd.Reason
	existing.Note = wd.Note
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *stubWriteDownRepository) DeleteWriteDown(executor repositories.SQLExecutor, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.writeDowns[id]; !ok {
		return fmt.Errorf("%w: write-down ID %d", repositories.ErrNotFound, id)
	}
	delete(r.writeDowns, id)
	return nil
}

func (r *stubWriteDownRepository) GetStatistics(from, to time.Time) (*models.WriteDownStatistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &models.WriteDownStatistics{ByReason: make(map[string]models.ReasonAggregate)}
	for _, wd := range r.writeDowns {
		if wd.CreatedAt.Before(from) || wd.CreatedAt.After(to) {
			continue
		}
		var unitPrice float64
		if item, ok := r.itemRepo.items[wd.ItemID]; ok {
			unitPrice = item.UnitPrice
		}
		agg := stats.ByReason[wd.Reason]
		agg.Quantity += wd.Quantity
		agg.Value += float64(wd.Quantity) * unitPrice
		stats.ByReason[wd.Reason] = agg
		stats.TotalCount++
		stats.TotalQuantity += wd.Quantity
	}
	return stats, nil
}

func (r *stubWriteDownRepository) GetReportRows(from, to time.Time, reason *string) ([]models.WriteDown, error) {
	r.mu.Lock()
	var ids []int64
	for id, wd := range r.writeDowns {
		if wd.CreatedAt.Before(from) || wd.CreatedAt.After(to) {
			continue
		}
		if reason != nil && wd.Reason != *reason {
			continue
		}
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var result []models.WriteDown
	for _, id := range ids {
		wd, err := r.GetWriteDownByID(id)
		if err != nil {
			return nil, err
		}
		result = append(result, *wd)
	}
	return result, nil
}

// --- purchase repository stub ---

type stubPurchaseRepository struct {
	mu        sync.Mutex
	nextID    int64
	purchases map[int64]*models.Purchase
	lines     map[int64]*models.PurchaseItem
}

func newStubPurchaseRepository() *stubPurchaseRepository {
	return &stubPurchaseRepository{
		nextID:    1,
		purchases: make(map[int64]*models.Purchase),
		lines:     make(map[int64]*models.PurchaseItem),
	}
}

func (r *stubPurchaseRepository) CreatePurchase(executor repositories.SQLExecutor, p *models.Purchase) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	copied := *p
	r.purchases[p.ID] = &copied
	return p.ID, nil
}

func (r *stubPurchaseRepository) GetPurchaseByID(id int64) (*models.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.purchases[id]
	if !ok {
		return nil, fmt.Errorf("%w: purchase ID %d", repositories.ErrNotFound, id)
	}
	copied := *p
	return &copied, nil
}

func (r *stubPurchaseRepository) GetPurchaseForUpdate(executor repositories.SQLExecutor, id int64) (*models.Purchase, error) {
	return r.GetPurchaseByID(id)
}

func (r *stubPurchaseRepository) GetPurchases(filters models.PurchaseFilters) ([]models.Purchase, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.Purchase
	for _, p := range r.purchases {
		if filters.Supplier != nil && !strings.Contains(strings.ToLower(p.Supplier), strings.ToLower(*filters.Supplier)) {
			continue
		}
		if filters.Finalized != nil && p.Finalized != *filters.Finalized {
			continue
		}
		if filters.DateFrom != nil && p.PurchaseDate.Before(*filters.DateFrom) {
			continue
		}
		if filters.DateTo != nil && !p.PurchaseDate.Before(*filters.DateTo) {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, len(result), nil
}

func (r *stubPurchaseRepository) SetFinalized(executor repositories.SQLExecutor, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.purchases[id]
	if !ok {
		return fmt.Errorf("%w: purchase ID %d", repositories.ErrNotFound, id)
	}
	p.Finalized = true
	p.UpdatedAt = time.Now()
	return nil
}

func (r *stubPurchaseRepository) DeletePurchase(executor repositories.SQLExecutor, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.purchases[id]; !ok {
		return fmt.Errorf("%w: purchase ID %d", repositories.ErrNotFound, id)
	}
	delete(r.purchases, id)
	return nil
}

func (r *stubPurchaseRepository) DeletePurchaseItemsByPurchaseID(executor repositories.SQLExecutor, purchaseID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, line := range r.lines {
		if line.PurchaseID == purchaseID {
			delete(r.lines, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *stubPurchaseRepository) CreatePurchaseItem(executor repositories.SQLExecutor, pi *models.PurchaseItem) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range r.lines {
		if line.PurchaseID == pi.PurchaseID && line.ItemID == pi.ItemID {
			return 0, fmt.Errorf("%w: purchase %d already has a line for item %d",
				repositories.ErrDuplicateKey, pi.PurchaseID, pi.ItemID)
		}
	}
	pi.ID = r.nextID
	r.nextID++
	pi.CreatedAt = time.Now()
	pi.UpdatedAt = pi.CreatedAt
	copied := *pi
	r.lines[pi.ID] = &copied
	return pi.ID, nil
}

func (r *stubPurchaseRepository) GetPurchaseItemByID(id int64) (*models.PurchaseItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	line, ok := r.lines[id]
	if !ok {
		return nil, fmt.Errorf("%w: purchase item ID %d", repositories.ErrNotFound, id)
	}
	copied := *line
	return &copied, nil
}

func (r *stubPurchaseRepository) GetPurchaseItemsByPurchaseID(executor repositories.SQLExecutor, purchaseID int64) ([]models.PurchaseItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.PurchaseItem
	for _, line := range r.lines {
		if line.PurchaseID == purchaseID {
			result = append(result, *line)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *stubPurchaseRepository) GetPurchaseItemByPurchaseAndItem(executor repositories.SQLExecutor, purchaseID, itemID int64) (*models.PurchaseItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range r.lines {
		if line.PurchaseID == purchaseID && line.ItemID == itemID {
			copied := *line
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: purchase %d has no line for item %d", repositories.ErrNotFound, purchaseID, itemID)
}

func (r *stubPurchaseRepository) UpdatePurchaseItem(executor repositories.SQLExecutor, pi *models.PurchaseItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.lines[pi.ID]
	if !ok {
		return fmt.Errorf("%w: purchase item ID %d", repositories.ErrNotFound, pi.ID)
	}
	existing.Quantity = pi.Quantity
	existing.UnitCost = pi.UnitCost
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *stubPurchaseRepository) DeletePurchaseItem(executor repositories.SQLExecutor, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lines[id]; !ok {
		return fmt.Errorf("%w: purchase item ID %d", repositories.ErrNotFound, id)
	}
	delete(r.lines, id)
	return nil
}

func (r *stubPurchaseRepository) GetStatistics(from, to time.Time) (*models.PurchaseStatistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &models.PurchaseStatistics{}
	inWindow := make(map[int64]bool)
	for _, p := range r.purchases {
		if p.PurchaseDate.Before(from) || p.PurchaseDate.After(to) {
			continue
		}
		inWindow[p.ID] = true
		stats.TotalCount++
		stats.TotalPaid += p.AmountPaid
	}
	for _, line := range r.lines {
		if inWindow[line.PurchaseID] {
			stats.TotalQuantity += line.Quantity
		}
	}
	return stats, nil
}

func (r *stubPurchaseRepository) GetReportRows(from, to time.Time) ([]models.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.Purchase
	for _, p := range r.purchases {
		if p.PurchaseDate.Before(from) || p.PurchaseDate.After(to) {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
