package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

type memoryRepo struct {
	lots      map[string]Lot
	stocks    map[string]Stock
	movements []Movement
	nextID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{lots: map[string]Lot{}, stocks: map[string]Stock{}}
}

func key(warehouseID, productID int64, lot string) string {
	return fmt.Sprintf("%d:%d:%s", warehouseID, productID, lot)
}

// WithTx stages writes on a copy so a failing callback leaves the repo untouched.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := &memoryRepo{lots: map[string]Lot{}, stocks: map[string]Stock{}, nextID: r.nextID}
	for k, v := range r.lots {
		staged.lots[k] = v
	}
	for k, v := range r.stocks {
		staged.stocks[k] = v
	}
	staged.movements = append(staged.movements, r.movements...)
	if err := fn(ctx, &memoryTx{repo: staged}); err != nil {
		return err
	}
	*r = *staged
	return nil
}

func (r *memoryRepo) ListStocks(_ context.Context, _ shared.ListParams, _ StockFilters) ([]Stock, int, error) {
	out := make([]Stock, 0, len(r.stocks))
	for _, s := range r.stocks {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (r *memoryRepo) ListLots(ctx context.Context, _ shared.ListParams, f LotFilters, today time.Time) ([]Lot, int, error) {
	out, err := r.AllLots(ctx, f, today)
	return out, len(out), err
}

func (r *memoryRepo) AllLots(_ context.Context, f LotFilters, today time.Time) ([]Lot, error) {
	out := []Lot{}
	for _, l := range r.lots {
		if f.Status != "" && EffectiveStatus(l, today) != f.Status {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *memoryRepo) ListMovements(_ context.Context, params shared.ListParams, f MovementFilters) ([]Movement, int, error) {
	var matched []Movement
	for _, m := range r.movements {
		if f.Type != "" && string(m.Type) != f.Type {
			continue
		}
		matched = append(matched, m)
	}
	start := params.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + params.Limit()
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func (r *memoryRepo) ExpireLots(_ context.Context, today time.Time) (int64, int64, error) {
	var expired, depleted int64
	for k, l := range r.lots {
		next := EffectiveStatus(l, today)
		if next == l.Status {
			continue
		}
		switch next {
		case LotExpired:
			expired++
		case LotDepleted:
			depleted++
		default:
			continue
		}
		l.Status = next
		r.lots[k] = l
	}
	return expired, depleted, nil
}

func (tx *memoryTx) LotForUpdate(_ context.Context, warehouseID, productID int64, lotNumber string) (Lot, error) {
	if l, ok := tx.repo.lots[key(warehouseID, productID, lotNumber)]; ok {
		return l, nil
	}
	return Lot{}, ErrLotNotFound
}

func (tx *memoryTx) SaveLot(_ context.Context, l Lot) (int64, error) {
	if l.ID == 0 {
		tx.repo.nextID++
		l.ID = tx.repo.nextID
	}
	tx.repo.lots[key(l.WarehouseID, l.ProductID, l.LotNumber)] = l
	return l.ID, nil
}

func (tx *memoryTx) StockForUpdate(_ context.Context, warehouseID, productID int64, lotNumber string) (Stock, error) {
	if s, ok := tx.repo.stocks[key(warehouseID, productID, lotNumber)]; ok {
		return s, nil
	}
	return Stock{}, ErrStockNotFound
}

func (tx *memoryTx) SaveStock(_ context.Context, s Stock) error {
	if s.ID == 0 {
		tx.repo.nextID++
		s.ID = tx.repo.nextID
	}
	tx.repo.stocks[key(s.WarehouseID, s.ProductID, s.LotNumber)] = s
	return nil
}

func (tx *memoryTx) InsertMovement(_ context.Context, m Movement) (int64, error) {
	tx.repo.nextID++
	m.ID = tx.repo.nextID
	tx.repo.movements = append(tx.repo.movements, m)
	return m.ID, nil
}

type auditSpy struct{ logs []shared.AuditLog }

func (a *auditSpy) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

var today = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memoryRepo, *auditSpy) {
	repo := newMemoryRepo()
	audit := &auditSpy{}
	svc := NewService(repo, audit, ServiceConfig{})
	svc.now = func() time.Time { return today }
	return svc, repo, audit
}

func receive(t *testing.T, repo *memoryRepo, lot string, qty int, cost string, expiry *time.Time) {
	t.Helper()
	err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		_, err := PostReceipt(ctx, tx, ReceiptInput{
			WarehouseID: 1, ProductID: 2, LotNumber: lot, Quantity: qty,
			UnitCost: decimal.RequireFromString(cost), PurchaseDate: today, ExpiryDate: expiry,
			Reference: "PO-20250310-0001", ActorID: 5,
		}, today)
		return err
	})
	require.NoError(t, err)
}

func TestPostReceiptCreatesLotStockAndMovement(t *testing.T) {
	_, repo, _ := newTestService()
	receive(t, repo, "LOT-A", 10, "25.50", nil)
	receive(t, repo, "LOT-A", 5, "25.50", nil)

	lot := repo.lots[key(1, 2, "LOT-A")]
	require.Equal(t, 15, lot.QuantityReceived)
	require.Equal(t, 15, lot.QuantityRemaining)
	require.Equal(t, LotActive, lot.Status)
	require.Equal(t, 15, repo.stocks[key(1, 2, "LOT-A")].Quantity)

	require.Len(t, repo.movements, 2)
	require.Equal(t, MovementIn, repo.movements[0].Type)
	require.Equal(t, "PO-20250310-0001", repo.movements[0].DocumentNo())
}

func TestPostReceiptRejectsNonPositive(t *testing.T) {
	_, repo, _ := newTestService()
	err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		_, err := PostReceipt(ctx, tx, ReceiptInput{WarehouseID: 1, ProductID: 2, LotNumber: "X", Quantity: 0}, today)
		return err
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestAdjustDepletesLot(t *testing.T) {
	svc, repo, audit := newTestService()
	receive(t, repo, "LOT-A", 4, "10", nil)

	m, err := svc.Adjust(context.Background(), 9, AdjustmentInput{
		WarehouseID: 1, ProductID: 2, LotNumber: " LOT-A ", Quantity: -4, Reason: " damaged ",
	})
	require.NoError(t, err)
	require.Equal(t, MovementAdjustment, m.Type)
	require.Equal(t, "damaged", m.Reason)
	require.Equal(t, -4, m.Quantity)

	lot := repo.lots[key(1, 2, "LOT-A")]
	require.Equal(t, 0, lot.QuantityRemaining)
	require.Equal(t, LotDepleted, lot.Status)
	require.Equal(t, 0, repo.stocks[key(1, 2, "LOT-A")].Quantity)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "inventory:ADJUSTMENT", audit.logs[0].Action)
}

func TestAdjustNegativeStockGuard(t *testing.T) {
	svc, repo, audit := newTestService()
	receive(t, repo, "LOT-A", 3, "10", nil)

	_, err := svc.Adjust(context.Background(), 9, AdjustmentInput{
		WarehouseID: 1, ProductID: 2, LotNumber: "LOT-A", Quantity: -5, Reason: "count",
	})
	require.ErrorIs(t, err, ErrNegativeStock)
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Equal(t, 3, repo.lots[key(1, 2, "LOT-A")].QuantityRemaining)
	require.Len(t, repo.movements, 1)
	require.Empty(t, audit.logs)
}

func TestAdjustUnknownLot(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Adjust(context.Background(), 9, AdjustmentInput{
		WarehouseID: 1, ProductID: 2, LotNumber: "NOPE", Quantity: -1, Reason: "count",
	})
	var fe *httpx.FieldErrors
	require.True(t, errors.As(err, &fe))
	require.Contains(t, fe.Fields, "lotNumber")
}

func TestAdjustValidation(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Adjust(context.Background(), 9, AdjustmentInput{WarehouseID: 1, ProductID: 2, Quantity: 0, Reason: "  "})
	var fe *httpx.FieldErrors
	require.True(t, errors.As(err, &fe))
	require.Contains(t, fe.Fields, "quantity")
	require.Contains(t, fe.Fields, "reason")
}

func TestListLotsSummary(t *testing.T) {
	svc, repo, _ := newTestService()
	soon := today.AddDate(0, 0, 10)
	past := today.AddDate(0, 0, -1)
	receive(t, repo, "A", 10, "2.50", &soon)
	receive(t, repo, "B", 4, "10", &past)
	receive(t, repo, "C", 1, "1", nil)
	_, err := svc.Adjust(context.Background(), 9, AdjustmentInput{WarehouseID: 1, ProductID: 2, LotNumber: "C", Quantity: -1, Reason: "used"})
	require.NoError(t, err)

	page, err := svc.ListLots(context.Background(), shared.ListParams{Page: 1, PageSize: 50}, LotFilters{})
	require.NoError(t, err)
	require.Equal(t, 3, page.Pagination.Total)
	require.Equal(t, 14, page.Summary.TotalRemaining)
	require.Equal(t, 1, page.Summary.Active)
	require.Equal(t, 1, page.Summary.Depleted)
	require.Equal(t, 1, page.Summary.Expired)
	require.Equal(t, 1, page.Summary.ExpiringSoon)
	require.True(t, decimal.RequireFromString("65").Equal(page.Summary.TotalValue))
}

func TestSummariseLotsExpiringWindow(t *testing.T) {
	at := func(days int) *time.Time { d := today.AddDate(0, 0, days); return &d }
	lots := []Lot{
		{QuantityRemaining: 1, ExpiryDate: at(0)},
		{QuantityRemaining: 1, ExpiryDate: at(30)},
		{QuantityRemaining: 1, ExpiryDate: at(31)},
		{QuantityRemaining: 0, ExpiryDate: at(5)},
	}
	sum := SummariseLots(lots, today, 30)
	require.Equal(t, 3, sum.Active)
	require.Equal(t, 2, sum.ExpiringSoon)
	require.Equal(t, 1, sum.Depleted)
	require.True(t, sum.TotalValue.IsZero())
}

func TestEffectiveStatus(t *testing.T) {
	expiry := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	require.Equal(t, LotActive, EffectiveStatus(Lot{QuantityRemaining: 1, ExpiryDate: &expiry}, today))
	require.Equal(t, LotExpired, EffectiveStatus(Lot{QuantityRemaining: 1, ExpiryDate: &expiry}, today.AddDate(0, 0, 1)))
	require.Equal(t, LotDepleted, EffectiveStatus(Lot{QuantityRemaining: 0, ExpiryDate: &expiry}, today.AddDate(0, 0, 1)))
}

func TestExpireLots(t *testing.T) {
	svc, repo, _ := newTestService()
	past := today.AddDate(0, 0, -3)
	repo.lots[key(1, 2, "OLD")] = Lot{LotNumber: "OLD", QuantityRemaining: 2, ExpiryDate: &past, Status: LotActive}
	repo.lots[key(1, 2, "EMPTY")] = Lot{LotNumber: "EMPTY", QuantityRemaining: 0, Status: LotActive}
	repo.lots[key(1, 2, "OK")] = Lot{LotNumber: "OK", QuantityRemaining: 2, Status: LotActive}

	expired, depleted, err := svc.ExpireLots(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), expired)
	require.Equal(t, int64(1), depleted)
	require.Equal(t, LotExpired, repo.lots[key(1, 2, "OLD")].Status)
	require.Equal(t, LotActive, repo.lots[key(1, 2, "OK")].Status)
}

func TestExportMovementsCSV(t *testing.T) {
	svc, repo, _ := newTestService()
	receive(t, repo, "LOT-A", 10, "1", nil)
	repo.movements[0].ProductSKU = "SKU-1"
	repo.movements[0].ProductName = "Soap"
	repo.movements[0].WarehouseName = "Bangkok"

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	n, err := svc.ExportMovementsCSV(context.Background(), shared.ListParams{}, MovementFilters{From: &from, To: &to}, &buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"))
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(out, "\ufeff")), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "ช่วงเวลา,2025-03-01 ถึง 2025-03-31", strings.TrimSpace(lines[1]))
	require.Contains(t, lines[3], "PO-20250310-0001,รับเข้า,SKU-1 - Soap,Bangkok,LOT-A,10,IN")
}

func TestMovementTypeLabel(t *testing.T) {
	require.Equal(t, "ปรับปรุงยอด", MovementAdjustment.Label())
	require.Equal(t, "OTHER", MovementType("OTHER").Label())
	require.Equal(t, "MV-000042", Movement{ID: 42}.DocumentNo())
}
