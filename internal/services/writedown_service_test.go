package services

import (
	"testing"

	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWriteDownServiceForTest(t *testing.T) (WriteDownService, *stubItemRepository, *stubWriteDownRepository) {
	t.Helper()
	itemRepo := newStubItemRepository()
	wdRepo := newStubWriteDownRepository(itemRepo)
	return NewWriteDownService(wdRepo, itemRepo, newStubDB(t)), itemRepo, wdRepo
}

func TestCreateWriteDownDecrementsStock(t *testing.T) {
	svc, itemRepo, _ := newWriteDownServiceForTest(t)
	item := itemRepo.seed("Vestido Floral", 10, 120.00)

	wd, err := svc.CreateWriteDown(CreateWriteDownRequest{
		ItemID:   item.ID,
		Quantity: 3,
		Reason:   models.ReasonStained,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, wd.Quantity)
	assert.Equal(t, models.ReasonStained, wd.Reason)
	require.NotNil(t, wd.Item)
	assert.Equal(t, 7, wd.Item.Quantity)

	quantity, err := itemRepo.GetQuantity(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, quantity)
}

func TestCreateWriteDownInsufficientStock(t *testing.T) {
	svc, itemRepo, wdRepo := newWriteDownServiceForTest(t)
	item := itemRepo.seed("Vestido Floral", 2, 120.00)

	_, err := svc.CreateWriteDown(CreateWriteDownRequest{
		ItemID:   item.ID,
		Quantity: 5,
		Reason:   models.ReasonLoss,
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	quantity, err := itemRepo.GetQuantity(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, quantity)

	_, total, err := wdRepo.GetWriteDowns(models.WriteDownFilters{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestCreateWriteDownInvalidReason(t *testing.T) {
	svc, itemRepo, _ := newWriteDownServiceForTest(t)
	item := itemRepo.seed("Vestido Floral", 10, 120.00)

	_, err := svc.CreateWriteDown(CreateWriteDownRequest{
		ItemID:   item.ID,
		Quantity: 1,
		Reason:   "vanished",
	})
	assert.ErrorIs(t, err, ErrInvalidReason)

	quantity, err := itemRepo.GetQuantity(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, quantity)
}

func TestCreateWriteDownUnknownItem(t *testing.T) {
	svc, _, _ := newWriteDownServiceForTest(t)

	_, err := svc.CreateWriteDown(CreateWriteDownRequest{
		ItemID:   999,
		Quantity: 1,
		Reason:   models.ReasonLoss,
	})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

// Creating and then deleting a write-down must return the item to its
// original quantity.
func TestDeleteWriteDownRestoresStock(t *testing.T) {
	svc, itemRepo, _ := newWriteDownServiceForTest(t)
	item := itemRepo.seed("Vestido Floral", 10, 120.00)

	wd, err := svc.CreateWriteDown(CreateWriteDownRequest{
		ItemID:   item.ID,
		Quantity: 4,
		Reason:   models.ReasonDefect,
	})
	require.NoError(t, err)

	result, err := svc.DeleteWriteDown(wd.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, result.ItemID)
	assert.Equal(t, 4, result.RestoredQuantity)
	assert.Equal(t, 10, result.CurrentQuantity)

	quantity, err := itemRepo.GetQuantity(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, quantity)

	_, err = svc.GetWriteDownByID(wd.ID)
	assert.ErrorIs(t, err, ErrWriteDownNotFound)
}

func TestDeleteWriteDownNotFound(t *testing.T) {
	svc, _, _ := newWriteDownServiceForTest(t)

	_, err := svc.DeleteWriteDown(999)
	assert.ErrorIs(t, err, ErrWriteDownNotFound)
}

func TestUpdateWriteDownChangesMetadataOnly(t *testing.T) {
	svc, itemRepo, _ := newWriteDownServiceForTest(t)
	item := itemRepo.seed("Vestido Floral", 10, 120.00)

	wd, err := svc.CreateWriteDown(CreateWriteDownRequest{
		ItemID:   item.ID,
		Quantity: 3,
		Reason:   models.ReasonLoss,
	})
	require.NoError(t, err)

	newReason := models.ReasonTheft
	note := "confirmed after recount"
	updated, err := svc.UpdateWriteDown(wd.ID, UpdateWriteDownRequest{Reason: &newReason, Note: &note})
	require.NoError(t, err)
	assert.Equal(t, models.ReasonTheft, updated.Reason)
	require.NotNil(t, updated.Note)
	assert.Equal(t, "confirmed after recount", *updated.Note)
	assert.Equal(t, 3, updated.Quantity)

	quantity, err := itemRepo.GetQuantity(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, quantity)
}

func TestUpdateWriteDownInvalidReason(t *testing.T) {
	svc, itemRepo, _ := newWriteDownServiceForTest(t)
	item := itemRepo.seed("Vestido Floral", 10, 120.00)

	wd, err := svc.CreateWriteDown(CreateWriteDownRequest{
		ItemID:   item.ID,
		Quantity: 1,
		Reason:   models.ReasonLoss,
	})
	require.NoError(t, err)

	badReason := "vanished"
	_, err = svc.UpdateWriteDown(wd.ID, UpdateWriteDownRequest{Reason: &badReason})
	assert.ErrorIs(t, err, ErrInvalidReason)
}

func TestGetWriteDownsRejectsInvalidReasonFilter(t *testing.T) {
	svc, _, _ := newWriteDownServiceForTest(t)

	badReason := "vanished"
	_, _, err := svc.GetWriteDowns(models.WriteDownFilters{Reason: &badReason})
	assert.ErrorIs(t, err, ErrInvalidReason)
}

func TestWriteDownStatisticsAggregatesByReason(t *testing.T) {
	svc, itemRepo, _ := newWriteDownServiceForTest(t)
	item := itemRepo.seed("Vestido Floral", 20, 100.00)

	for _, req := range []CreateWriteDownRequest{
		{ItemID: item.ID, Quantity: 2, Reason: models.ReasonLoss},
		{ItemID: item.ID, Quantity: 3, Reason: models.ReasonLoss},
		{ItemID: item.ID, Quantity: 1, Reason: models.ReasonDonation},
	} {
		_, err := svc.CreateWriteDown(req)
		require.NoError(t, err)
	}

	stats, err := svc.GetStatistics(PeriodToday)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalCount)
	assert.Equal(t, 6, stats.TotalQuantity)
	assert.Equal(t, 5, stats.ByReason[models.ReasonLoss].Quantity)
	assert.Equal(t, 500.0, stats.ByReason[models.ReasonLoss].Value)
	assert.Equal(t, 1, stats.ByReason[models.ReasonDonation].Quantity)
}

func TestWriteDownStatisticsDefaultsToMonth(t *testing.T) {
	svc, itemRepo, _ := newWriteDownServiceForTest(t)
	item := itemRepo.seed("Vestido Floral", 10, 100.00)

	_, err := svc.CreateWriteDown(CreateWriteDownRequest{
		ItemID:   item.ID,
		Quantity: 2,
		Reason:   models.ReasonLoss,
	})
	require.NoError(t, err)

	stats, err := svc.GetStatistics("")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCount)
}

func TestWriteDownStatisticsUnknownPeriod(t *testing.T) {
	svc, _, _ := newWriteDownServiceForTest(t)

	_, err := svc.GetStatistics("quarter")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWriteDownReportRequiresBothDates(t *testing.T) {
	svc, _, _ := newWriteDownServiceForTest(t)

	_, err := svc.GetReport("", "2026-08-31", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.GetReport("2026-08-01", "", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.GetReport("2026-08-31", "2026-08-01", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.GetReport("31/08/2026", "2026-08-31", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWriteDownReportSummarizesWindow(t *testing.T) {
	svc, itemRepo, _ := newWriteDownServiceForTest(t)
	item := itemRepo.seed("Vestido Floral", 10, 50.00)

	_, err := svc.CreateWriteDown(CreateWriteDownRequest{
		ItemID:   item.ID,
		Quantity: 2,
		Reason:   models.ReasonObsolescence,
	})
	require.NoError(t, err)

	today := timeNowDate(t)
	report, err := svc.GetReport(today, today, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalCount)
	assert.Equal(t, 2, report.TotalQuantity)
	assert.Equal(t, 100.0, report.TotalValue)
	require.Len(t, report.Items, 1)
}
