package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mini-erp/telecrm/internal/activities"
	"github.com/mini-erp/telecrm/internal/customers"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type memoryIdem map[string]bool

func (m memoryIdem) CheckAndInsert(_ context.Context, key, module string) error {
	if m[module+key] {
		return shared.ErrIdempotencyConflict
	}
	m[module+key] = true
	return nil
}

func (m memoryIdem) Delete(_ context.Context, key, module string) error {
	delete(m, module+key)
	return nil
}

type bumpCounter int

func (b *bumpCounter) Bump(context.Context) error {
	*b++
	return nil
}

func newTestService() (*Service, *memoryRepo, *bumpCounter) {
	repo := newMemoryRepo()
	bumps := new(bumpCounter)
	svc := NewService(repo, Options{Idempotency: memoryIdem{}, Reports: bumps, Ownership: 90 * 24 * time.Hour})
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, bumps
}

func sampleInput() CreateInput {
	return CreateInput{
		CompanyID:     1,
		CustomerID:    10,
		PaymentMethod: MethodCOD,
		ShippingCost:  decimal.NewFromInt(50),
		Items: []ItemInput{
			{ProductName: "Fertiliser 25kg", Quantity: 2, PricePerUnit: decimal.NewFromInt(750), Discount: decimal.NewFromInt(50)},
			{ProductName: "Sample pack", Quantity: 1, PricePerUnit: decimal.NewFromInt(99), IsFreebie: true},
		},
		TrackingNumbers: []string{" TH01 ", "TH01", ""},
	}
}

func TestCreateOrder(t *testing.T) {
	svc, repo, bumps := newTestService()

	o, err := svc.Create(context.Background(), 7, "", sampleInput())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(o.ID, "250310-"))
	require.Equal(t, "1500", o.TotalAmount.String())
	require.Equal(t, "1500", o.CODAmount.String())
	require.Equal(t, []string{"TH01"}, o.TrackingNumbers)
	require.Equal(t, "Malee Sukjai", o.RecipientName)
	require.Equal(t, StatusPending, o.OrderStatus)
	require.Equal(t, PaymentUnpaid, o.PaymentStatus)
	require.Len(t, o.Items, 2)
	require.True(t, o.Items[1].LineTotal.IsZero())
	require.Equal(t, 1, o.Items[0].BoxNumber)

	cust := repo.customers[10]
	require.NotNil(t, cust.AssignedTo)
	require.Equal(t, int64(7), *cust.AssignedTo)
	require.Equal(t, fixedNow.Add(90*24*time.Hour), *cust.OwnershipExpires)
	require.Equal(t, []activities.Type{activities.TypeAssignment, activities.TypeOrderCreated}, repo.activityTypes())
	require.Equal(t, bumpCounter(1), *bumps)
}

func TestCreateOrderRejects(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	in := sampleInput()
	in.BillDiscount = decimal.NewFromInt(5000)
	_, err := svc.Create(ctx, 7, "", in)
	require.ErrorIs(t, err, httpx.ErrValidation)

	in = sampleInput()
	in.CustomerID = 99
	_, err = svc.Create(ctx, 7, "", in)
	require.ErrorIs(t, err, httpx.ErrValidation)

	in = sampleInput()
	in.Items = nil
	_, err = svc.Create(ctx, 7, "", in)
	require.ErrorIs(t, err, httpx.ErrValidation)

	in = sampleInput()
	in.ID = "A-1"
	_, err = svc.Create(ctx, 7, "", in)
	require.NoError(t, err)
	_, err = svc.Create(ctx, 7, "", in)
	var fe *httpx.FieldErrors
	require.ErrorAs(t, err, &fe)
	require.Contains(t, fe.Fields, "id")
}

func TestCreateOrderRetriesTakenID(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	repo.orders["250310-TAKEN"] = Order{ID: "250310-TAKEN", CompanyID: 1, CustomerID: 10}

	ids := []string{"250310-TAKEN", "250310-FRESH"}
	svc.newID = func(time.Time) string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	o, err := svc.Create(ctx, 7, "", sampleInput())
	require.NoError(t, err)
	require.Equal(t, "250310-FRESH", o.ID)
	require.Equal(t, 2, repo.inserts)
	require.Len(t, repo.orders, 2)
	require.Equal(t, []activities.Type{activities.TypeAssignment, activities.TypeOrderCreated}, repo.activityTypes())

	svc.newID = func(time.Time) string { return "250310-TAKEN" }
	repo.inserts = 0
	_, err = svc.Create(ctx, 7, "", sampleInput())
	require.ErrorIs(t, err, httpx.ErrDuplicate)
	require.Equal(t, 5, repo.inserts)
	require.Len(t, repo.orders, 2)
}

func TestCreateOrderIdempotency(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, 7, "key-1", sampleInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, 7, "key-1", sampleInput())
	require.ErrorIs(t, err, httpx.ErrConflict)
	require.Len(t, repo.orders, 1)

	bad := sampleInput()
	bad.CustomerID = 99
	_, err = svc.Create(ctx, 7, "key-2", bad)
	require.Error(t, err)
	_, err = svc.Create(ctx, 7, "key-2", sampleInput())
	require.NoError(t, err, "a failed create releases its key")
}

func TestPatchPaidAndDeliveredCountsSaleOnce(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	o, err := svc.Create(ctx, 7, "", sampleInput())
	require.NoError(t, err)
	repo.timeline = nil

	o, err = svc.Patch(ctx, 1, o.ID, PatchInput{PaymentStatus: PaymentPaid})
	require.NoError(t, err)
	require.Equal(t, customers.LifecycleOld3Months, repo.customers[10].LifecycleStatus)
	require.Empty(t, repo.sales)

	o, err = svc.Patch(ctx, 1, o.ID, PatchInput{OrderStatus: StatusDelivered, TrackingNumbers: []string{"TH01", "TH02"}})
	require.NoError(t, err)
	require.Len(t, repo.sales, 1)
	require.True(t, repo.orders[o.ID].SaleCounted)
	require.Equal(t, []string{"TH01", "TH02"}, o.TrackingNumbers)

	cust := repo.customers[10]
	require.Equal(t, "5500", cust.TotalPurchases.String())
	require.Equal(t, customers.GradeB, cust.Grade)
	require.Equal(t, fixedNow.Add(90*24*time.Hour), *cust.OwnershipExpires)

	require.Equal(t, []activities.Type{
		activities.TypePaymentVerified,
		activities.TypeStatusChange,
		activities.TypeOrderStatusChanged,
		activities.TypeTrackingAdded,
		activities.TypeGradeChange,
	}, repo.activityTypes())

	_, err = svc.Patch(ctx, 1, o.ID, PatchInput{Notes: "called twice"})
	require.NoError(t, err)
	require.Len(t, repo.sales, 1)
	require.Equal(t, activities.TypeOrderNoteAdded, repo.timeline[len(repo.timeline)-1].Type)
}

func TestPatchCancelAndValidation(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	o, err := svc.Create(ctx, 7, "", sampleInput())
	require.NoError(t, err)

	_, err = svc.Patch(ctx, 1, o.ID, PatchInput{OrderStatus: "Lost"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	neg := decimal.NewFromInt(-1)
	_, err = svc.Patch(ctx, 1, o.ID, PatchInput{AmountPaid: &neg})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Patch(ctx, 1, "missing", PatchInput{OrderStatus: StatusCancelled})
	require.ErrorIs(t, err, httpx.ErrNotFound)

	o, err = svc.Patch(ctx, 1, o.ID, PatchInput{OrderStatus: StatusCancelled})
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, o.OrderStatus)
	require.Equal(t, activities.TypeOrderCancelled, repo.timeline[len(repo.timeline)-1].Type)
	require.Equal(t, customers.LifecycleNew, repo.customers[10].LifecycleStatus)
}

func TestExtendOwnership(t *testing.T) {
	window := 90 * 24 * time.Hour
	now := fixedNow

	require.Equal(t, now.Add(window), ExtendOwnership(nil, now, window))

	soon := now.Add(10 * 24 * time.Hour)
	require.Equal(t, now.Add(window), ExtendOwnership(&soon, now, window), "clamped to now+window")

	lapsed := now.Add(-30 * 24 * time.Hour)
	require.Equal(t, lapsed.Add(window), ExtendOwnership(&lapsed, now, window))
}

func TestAddSlip(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	in := sampleInput()
	in.PaymentMethod = MethodTransfer
	o, err := svc.Create(ctx, 7, "", in)
	require.NoError(t, err)
	require.True(t, o.CODAmount.IsZero())

	_, err = svc.AddSlip(ctx, 7, o.ID, SlipInput{URL: "not a url"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	o, err = svc.AddSlip(ctx, 7, o.ID, SlipInput{URL: "https://files.example.com/slip.jpg", Amount: decimal.NewFromInt(1500)})
	require.NoError(t, err)
	require.Len(t, o.Slips, 1)
	require.Equal(t, PaymentPendingVerification, o.PaymentStatus)
}

func TestApplyTracking(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	in := sampleInput()
	in.ID = "250310-00001"
	_, err := svc.Create(ctx, 7, "", in)
	require.NoError(t, err)
	repo.timeline = nil

	rows := []TrackingRow{
		{OrderID: "250310-00001", TrackingNumber: "TH01"},
		{OrderID: "250310-00001", TrackingNumber: "KRY9"},
		{OrderID: "250310-00001", TrackingNumber: "KRY9"},
		{OrderID: "nope", TrackingNumber: "X"},
	}
	preview, err := svc.ValidateTracking(ctx, rows)
	require.NoError(t, err)
	require.Equal(t, TrackingCounts{Valid: 1, Duplicate: 2, Error: 1}, preview.Counts)
	require.Equal(t, []string{"TH01"}, repo.orders["250310-00001"].TrackingNumbers)

	result, err := svc.ApplyTracking(ctx, 1, rows)
	require.NoError(t, err)
	require.Equal(t, 1, result.Applied)
	require.Equal(t, []string{"TH01", "KRY9"}, repo.orders["250310-00001"].TrackingNumbers)
	require.Equal(t, []activities.Type{activities.TypeTrackingAdded}, repo.activityTypes())
}

func TestListPaging(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	for _, id := range []string{"A", "B", "C"} {
		in := sampleInput()
		in.ID = id
		_, err := svc.Create(ctx, 7, "", in)
		require.NoError(t, err)
	}
	page, err := svc.List(ctx, shared.ListParams{Page: 2, PageSize: 2}, Filters{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "C", page.Items[0].ID)
	require.Equal(t, 3, page.Pagination.StartIndex)
	require.Equal(t, 2, page.Pagination.TotalPages)
}
