package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPurchaseServiceForTest(t *testing.T) (PurchaseService, *stubItemRepository, *stubPurchaseRepository) {
	t.Helper()
	itemRepo := newStubItemRepository()
	purchaseRepo := newStubPurchaseRepository()
	return NewPurchaseService(purchaseRepo, itemRepo, newStubDB(t)), itemRepo, purchaseRepo
}

func itemRefByID(id int64) ItemRef      { return ItemRef{ItemID: &id} }
func itemRefByName(name string) ItemRef { return ItemRef{ItemName: &name} }

func TestCreatePurchaseDoesNotTouchStock(t *testing.T) {
	svc, itemRepo, _ := newPurchaseServiceForTest(t)
	shirt := itemRepo.seed("Camiseta Azul", 5, 39.90)
	dress := itemRepo.seed("Vestido Floral", 2, 120.00)

	purchase, err := svc.CreatePurchase(CreatePurchaseRequest{
		Supplier:   "Confeccoes Silva",
		AmountPaid: 500.00,
		Items: []PurchaseItemRequest{
			{ItemRef: itemRefByID(shirt.ID), Quantity: 10, UnitCost: 20.00},
			{ItemRef: itemRefByName("Vestido Floral"), Quantity: 4, UnitCost: 60.00},
		},
	})
	require.NoError(t, err)
	assert.False(t, purchase.Finalized)
	require.Len(t, purchase.Items, 2)

	for _, seeded := range []struct {
		id   int64
		want int
	}{{shirt.ID, 5}, {dress.ID, 2}} {
		quantity, err := itemRepo.GetQuantity(seeded.id)
		require.NoError(t, err)
		assert.Equal(t, seeded.want, quantity)
	}
}

func TestCreatePurchaseResolvesFuzzyName(t *testing.T) {
	svc, itemRepo, _ := newPurchaseServiceForTest(t)
	itemRepo.seed("Vestido Floral Longo", 2, 120.00)

	purchase, err := svc.CreatePurchase(CreatePurchaseRequest{
		Supplier: "Confeccoes Silva",
		Items: []PurchaseItemRequest{
			{ItemRef: itemRefByName("floral"), Quantity: 3, UnitCost: 60.00},
		},
	})
	require.NoError(t, err)
	require.Len(t, purchase.Items, 1)
}

func TestCreatePurchaseAmbiguousNameFails(t *testing.T) {
	svc, itemRepo, _ := newPurchaseServiceForTest(t)
	itemRepo.seed("Vestido Floral Longo", 2, 120.00)
	itemRepo.seed("Vestido Floral Curto", 3, 90.00)

	_, err := svc.CreatePurchase(CreatePurchaseRequest{
		Supplier: "Confeccoes Silva",
		Items: []PurchaseItemRequest{
			{ItemRef: itemRefByName("floral"), Quantity: 3, UnitCost: 60.00},
		},
	})
	assert.ErrorIs(t, err, ErrAmbiguousItemName)
}

func TestCreatePurchaseUnknownItemFails(t *testing.T) {
	svc, _, _ := newPurchaseServiceForTest(t)

	_, err := svc.CreatePurchase(CreatePurchaseRequest{
		Supplier: "Confeccoes Silva",
		Items: []PurchaseItemRequest{
			{ItemRef: itemRefByID(999), Quantity: 3, UnitCost: 60.00},
		},
	})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestCreatePurchaseRequiresItemReference(t *testing.T) {
	svc, _, _ := newPurchaseServiceForTest(t)

	_, err := svc.CreatePurchase(CreatePurchaseRequest{
		Supplier: "Confeccoes Silva",
		Items: []PurchaseItemRequest{
			{Quantity: 3, UnitCost: 60.00},
		},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreatePurchaseAccumulatesDuplicateLines(t *testing.T) {
	svc, itemRepo, _ := newPurchaseServiceForTest(t)
	shirt := itemRepo.seed("Camiseta Azul", 5, 39.90)

	purchase, err := svc.CreatePurchase(CreatePurchaseRequest{
		Supplier: "Confeccoes Silva",
		Items: []PurchaseItemRequest{
			{ItemRef: itemRefByID(shirt.ID), Quantity: 10, UnitCost: 20.00},
			{ItemRef: itemRefByID(shirt.ID), Quantity: 5, UnitCost: 20.00},
		},
	})
	require.NoError(t, err)
	require.Len(t, purchase.Items, 1)
	assert.Equal(t, 15, purchase.Items[0].Quantity)
}

// Finalizing applies every line to stock exactly once and flips the flag.
func TestFinalizePurchaseAppliesStock(t *testing.T) {
	svc, itemRepo, _ := newPurchaseServiceForTest(t)
	shirt := itemRepo.seed("Camiseta Azul", 5, 39.90)
	dress := itemRepo.seed("Vestido Floral", 2, 120.00)

	purchase, err := svc.CreatePurchase(CreatePurchaseRequest{
		Supplier: "Confeccoes Silva",
		Items: []PurchaseItemRequest{
			{ItemRef: itemRefByID(shirt.ID), Quantity: 10, UnitCost: 20.00},
			{ItemRef: itemRefByID(dress.ID), Quantity: 4, UnitCost: 60.00},
		},
	})
	require.NoError(t, err)

	result, err := svc.Finalize(purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ItemsUpdated)

	shirtQty, err := itemRepo.GetQuantity(shirt.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, shirtQty)

	dressQty, err := itemRepo.GetQuantity(dress.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, dressQty)

	reloaded, err := svc.GetPurchaseByID(purchase.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Finalized)
}

func TestFinalizePurchaseTwiceFailsWithoutDoubleApply(t *testing.T) {
	svc, itemRepo, _ := newPurchaseServiceForTest(t)
	shirt := itemRepo.seed("Camiseta Azul", 5, 39.90)

	purchase, err := svc.CreatePurchase(CreatePurchaseRequest{
		Supplier: "Confeccoes Silva",
		Items: []PurchaseItemRequest{
			{ItemRef: itemRefByID(shirt.ID), Quantity: 10, UnitCost: 20.00},
		},
	})
	require.NoError(t, err)

	_, err = svc.Finalize(purchase.ID)
	require.NoError(t, err)

	_, err = svc.Finalize(purchase.ID)
	assert.ErrorIs(t, err, ErrPurchaseFinalized)

	quantity, err := itemRepo.GetQuantity(shirt.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, quantity)
}

func TestFinalizeEmptyPurchaseIsNoOp(t *testing.T) {
	svc, _, _ := newPurchaseServiceForTest(t)

	purchase, err := svc.CreatePurchase(CreatePurchaseRequest{Supplier: "Confeccoes Silva"})
	require.NoError(t, err)

	result, err := svc.Finalize(purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ItemsUpdated)

	reloaded, err := svc.GetPurchaseByID(purchase.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Finalized)
}

func TestFinalizeUnknownPurchase(t *testing.T) {
	svc, _, _ := newPurchaseServiceForTest(t)

	_, err := svc.Finalize(999)
	assert.ErrorIs(t, err, ErrPurchaseNotFound)
}

func TestAddItemAccumulatesExistingLine(t *testing.T) {
	svc, itemRepo, _ := newPurchaseServiceForTest(t)
	shirt := itemRepo.seed("Camiseta Azul", 5, 39.90)

	purchase, err := svc.CreatePurchase(CreatePurchaseRequest{
		Supplier: "Confeccoes Silva",
		Items: []PurchaseItemRequest{
			{ItemRef: itemRefByID(shirt.ID), Quantity: 10, UnitCost: 20.00},
		},
	})
	require.NoError(t, err)

	line, err := svc.AddItem(purchase.ID, PurchaseItemRequest{
		ItemRef:  itemRefByID(shirt.ID),
		Quantity: 5,
		UnitCost: 18.00,
	})
	require.NoError(t, err)
	assert.Equal(t, 15, line.Quantity)
	assert.Equal(t, 18.00, line.UnitCost)

	reloaded, err := svc.GetPurchaseByID(purchase.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
}

func TestFinalizedPurchaseRejectsLineChanges(t *testing.T) {
	svc, itemRepo, _ := newPurchaseServiceForTest(t)
	shirt := itemRepo.seed("Camiseta Azul", 5, 39.90)

	purchase, err := svc.CreatePurchase(CreatePurchaseRequest{
		Supplier: "Confeccoes Silva",
		Items: []PurchaseItemRequest{
			{ItemRef: itemRefByID(shirt.ID), Quantity: 10, UnitCost: 20.00},
		},
	})
	require.NoError(t, err)
	lineID := purchase.Items[0].ID

	_, err = svc.Finalize(purchase.ID)
	require.NoError(t, err)

	_, err = svc.AddItem(purchase.ID, PurchaseItemRequest{
		ItemRef:  itemRefByID(shirt.ID),
		Quantity: 1,
		UnitCost: 20.00,
	})
	assert.ErrorIs(t, err, ErrPurchaseFinalized)

	newQuantity := 99
	_, err = svc.UpdateItem(lineID, UpdatePurchaseItemRequest{Quantity: &newQuantity})
	assert.ErrorIs(t, err, ErrPurchaseFinalized)

	err = svc.RemoveItem(lineID)
	assert.ErrorIs(t, err, ErrPurchaseFinalized)
}

func TestUpdatePurchaseItem(t *testing.T) {
	svc, itemRepo, _ := newPurchaseServiceForTest(t)
	shirt := itemRepo.seed("Camiseta Azul", 5, 39.90)

	purchase, err := svc.CreatePurchase(CreatePurchaseRequest{
		Supplier: "Confeccoes Silva",
		Items: []PurchaseItemRequest{
			{ItemRef: itemRefByID(shirt.ID), Quantity: 10, UnitCost: 20.00},
		},
	})
	require.NoError(t, err)

	newQuantity := 7
	line, err := svc.UpdateItem(purchase.Items[0].ID, UpdatePurchaseItemRequest{Quantity: &newQuantity})
	require.NoError(t, err)
	assert.Equal(t, 7, line.Quantity)

	badQuantity := 0
	_, err = svc.UpdateItem(purchase.Items[0].ID, UpdatePurchaseItemRequest{Quantity: &badQuantity})
	assert.ErrorIs(t, err, ErrValidation)
}

// Deleting a finalized purchase removes the bookkeeping only; the stock it
// applied stays.
func TestDeleteFinalizedPurchaseKeepsStock(t *testing.T) {
	svc, itemRepo, _ := newPurchaseServiceForTest(t)
	shirt := itemRepo.seed("Camiseta Azul", 5, 39.90)

	purchase, err := svc.CreatePurchase(CreatePurchaseRequest{
		Supplier: "Confeccoes Silva",
		Items: []PurchaseItemRequest{
			{ItemRef: itemRefByID(shirt.ID), Quantity: 10, UnitCost: 20.00},
		},
	})
	require.NoError(t, err)

	_, err = svc.Finalize(purchase.ID)
	require.NoError(t, err)

	err = svc.DeletePurchase(purchase.ID)
	require.NoError(t, err)

	quantity, err := itemRepo.GetQuantity(shirt.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, quantity)

	_, err = svc.GetPurchaseByID(purchase.ID)
	assert.ErrorIs(t, err, ErrPurchaseNotFound)
}

func TestPurchaseStatistics(t *testing.T) {
	svc, itemRepo, _ := newPurchaseServiceForTest(t)
	shirt := itemRepo.seed("Camiseta Azul", 5, 39.90)

	_, err := svc.CreatePurchase(CreatePurchaseRequest{
		Supplier:   "Confeccoes Silva",
		AmountPaid: 200.00,
		Items: []PurchaseItemRequest{
			{ItemRef: itemRefByID(shirt.ID), Quantity: 10, UnitCost: 20.00},
		},
	})
	require.NoError(t, err)

	_, err = svc.CreatePurchase(CreatePurchaseRequest{
		Supplier:   "Malharia Costa",
		AmountPaid: 150.00,
	})
	require.NoError(t, err)

	stats, err := svc.GetStatistics(PeriodToday)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCount)
	assert.Equal(t, 350.00, stats.TotalPaid)
	assert.Equal(t, 10, stats.TotalQuantity)

	_, err = svc.GetStatistics("quarter")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPurchaseReport(t *testing.T) {
	svc, _, _ := newPurchaseServiceForTest(t)

	_, err := svc.CreatePurchase(CreatePurchaseRequest{
		Supplier:   "Confeccoes Silva",
		AmountPaid: 200.00,
	})
	require.NoError(t, err)

	today := timeNowDate(t)
	report, err := svc.GetReport(today, today)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalCount)
	assert.Equal(t, 200.00, report.TotalPaid)

	_, err = svc.GetReport("", today)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreatePurchaseParsesPurchaseDate(t *testing.T) {
	svc, _, _ := newPurchaseServiceForTest(t)

	purchase, err := svc.CreatePurchase(CreatePurchaseRequest{
		Supplier:     "Confeccoes Silva",
		PurchaseDate: "2026-08-15",
	})
	require.NoError(t, err)
	assert.Equal(t, 2026, purchase.PurchaseDate.Year())
	assert.False(t, purchase.Finalized)

	_, err = svc.CreatePurchase(CreatePurchaseRequest{
		Supplier:     "Confeccoes Silva",
		PurchaseDate: "15/08/2026",
	})
	assert.ErrorIs(t, err, ErrValidation)
}
