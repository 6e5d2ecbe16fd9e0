package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListStocks(ctx context.Context, params shared.ListParams, f StockFilters) ([]Stock, int, error)
	ListLots(ctx context.Context, params shared.ListParams, f LotFilters, today time.Time) ([]Lot, int, error)
	AllLots(ctx context.Context, f LotFilters, today time.Time) ([]Lot, error)
	ListMovements(ctx context.Context, params shared.ListParams, f MovementFilters) ([]Movement, int, error)
	ExpireLots(ctx context.Context, today time.Time) (expired, depleted int64, err error)
}

// TxRepository exposes the row-locking operations a movement needs.
type TxRepository interface {
	LotForUpdate(ctx context.Context, warehouseID, productID int64, lotNumber string) (Lot, error)
	SaveLot(ctx context.Context, lot Lot) (int64, error)
	StockForUpdate(ctx context.Context, warehouseID, productID int64, lotNumber string) (Stock, error)
	SaveStock(ctx context.Context, stock Stock) error
	InsertMovement(ctx context.Context, m Movement) (int64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates inventory operations.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	warnDays int
	now      func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// ExpiryWarnDays is the window counted as "expiring soon" in lot summaries.
	ExpiryWarnDays int
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cfg ServiceConfig) *Service {
	if cfg.ExpiryWarnDays <= 0 {
		cfg.ExpiryWarnDays = 30
	}
	return &Service{repo: repo, audit: audit, warnDays: cfg.ExpiryWarnDays, now: time.Now}
}

// LotPage is a lot listing with a summary over every matching lot.
type LotPage struct {
	shared.Page[Lot]
	Summary LotSummary `json:"summary"`
}

// ListStocks returns warehouse stock rows with availability.
func (s *Service) ListStocks(ctx context.Context, params shared.ListParams, f StockFilters) (shared.Page[Stock], error) {
	items, total, err := s.repo.ListStocks(ctx, params, f)
	if err != nil {
		return shared.Page[Stock]{}, err
	}
	for i := range items {
		items[i].Available = items[i].Quantity - items[i].Reserved
	}
	return shared.NewPage(items, params, total), nil
}

// ListLots returns a page of lots and the summary of all matching lots.
func (s *Service) ListLots(ctx context.Context, params shared.ListParams, f LotFilters) (LotPage, error) {
	now := s.now()
	items, total, err := s.repo.ListLots(ctx, params, f, now)
	if err != nil {
		return LotPage{}, err
	}
	all, err := s.repo.AllLots(ctx, f, now)
	if err != nil {
		return LotPage{}, err
	}
	for i := range items {
		items[i].Status = EffectiveStatus(items[i], now)
	}
	return LotPage{Page: shared.NewPage(items, params, total), Summary: SummariseLots(all, now, s.warnDays)}, nil
}

// ListMovements returns a page of the movement ledger.
func (s *Service) ListMovements(ctx context.Context, params shared.ListParams, f MovementFilters) (shared.Page[Movement], error) {
	items, total, err := s.repo.ListMovements(ctx, params, f)
	if err != nil {
		return shared.Page[Movement]{}, err
	}
	return shared.NewPage(items, params, total), nil
}

// ExpireLots marks lots past expiry as Expired and empty lots as Depleted.
func (s *Service) ExpireLots(ctx context.Context) (expired, depleted int64, err error) {
	return s.repo.ExpireLots(ctx, s.now())
}

// Adjust applies a manual correction to a lot and its warehouse stock.
func (s *Service) Adjust(ctx context.Context, actorID int64, in AdjustmentInput) (Movement, error) {
	in.LotNumber = strings.TrimSpace(in.LotNumber)
	in.Reason = strings.TrimSpace(in.Reason)
	if err := httpx.Validate(in); err != nil {
		return Movement{}, err
	}
	params := movementParams{
		WarehouseID: in.WarehouseID,
		ProductID:   in.ProductID,
		LotNumber:   in.LotNumber,
		QtyChange:   in.Quantity,
		Type:        MovementAdjustment,
		Reason:      in.Reason,
		RefType:     "adjustment",
		ActorID:     actorID,
	}
	var m Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		m, err = postMovement(ctx, tx, params, s.now())
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "inventory:ADJUSTMENT",
			Entity:   "stock_movement",
			EntityID: fmt.Sprint(m.ID),
			Meta: map[string]any{
				"warehouse_id": in.WarehouseID,
				"product_id":   in.ProductID,
				"lot_number":   in.LotNumber,
				"qty":          in.Quantity,
				"reason":       in.Reason,
			},
		})
	}
	return m, nil
}

// PostReceipt books received goods into a lot and the warehouse stock and
// records an IN movement. It runs on the caller's transaction.
func PostReceipt(ctx context.Context, tx TxRepository, in ReceiptInput, now time.Time) (Movement, error) {
	if in.WarehouseID == 0 || in.ProductID == 0 {
		return Movement{}, fmt.Errorf("%w: warehouse and product required", httpx.ErrValidation)
	}
	if in.Quantity <= 0 {
		return Movement{}, fmt.Errorf("%w: receipt quantity must be positive", httpx.ErrValidation)
	}
	return postMovement(ctx, tx, movementParams{
		WarehouseID: in.WarehouseID,
		ProductID:   in.ProductID,
		LotNumber:   strings.TrimSpace(in.LotNumber),
		QtyChange:   in.Quantity,
		Type:        MovementIn,
		Reason:      "purchase receipt",
		RefType:     "purchase",
		RefID:       in.Reference,
		ActorID:     in.ActorID,
		receipt:     &in,
	}, now)
}

type movementParams struct {
	WarehouseID int64
	ProductID   int64
	LotNumber   string
	QtyChange   int
	Type        MovementType
	Reason      string
	RefType     string
	RefID       string
	ActorID     int64
	receipt     *ReceiptInput
}

func postMovement(ctx context.Context, tx TxRepository, params movementParams, now time.Time) (Movement, error) {
	if params.QtyChange == 0 {
		return Movement{}, fmt.Errorf("%w: quantity must be non zero", httpx.ErrValidation)
	}

	if params.LotNumber != "" {
		lot, err := tx.LotForUpdate(ctx, params.WarehouseID, params.ProductID, params.LotNumber)
		switch {
		case errors.Is(err, ErrLotNotFound):
			if params.QtyChange < 0 {
				return Movement{}, httpx.NewFieldErrors("lotNumber", "lot not found")
			}
			lot = Lot{
				LotNumber:    params.LotNumber,
				ProductID:    params.ProductID,
				WarehouseID:  params.WarehouseID,
				PurchaseDate: now,
				UnitCost:     decimal.Zero,
				Status:       LotActive,
			}
		case err != nil:
			return Movement{}, err
		}
		lot.QuantityRemaining += params.QtyChange
		if lot.QuantityRemaining < 0 {
			return Movement{}, ErrNegativeStock
		}
		if r := params.receipt; r != nil {
			lot.QuantityReceived += params.QtyChange
			lot.PurchaseID, lot.SupplierID = r.PurchaseID, r.SupplierID
			lot.PurchaseDate, lot.UnitCost = r.PurchaseDate, r.UnitCost
			if r.ExpiryDate != nil {
				lot.ExpiryDate = r.ExpiryDate
			}
		}
		lot.Status = EffectiveStatus(lot, now)
		if _, err := tx.SaveLot(ctx, lot); err != nil {
			return Movement{}, err
		}
	}

	stock, err := tx.StockForUpdate(ctx, params.WarehouseID, params.ProductID, params.LotNumber)
	if errors.Is(err, ErrStockNotFound) {
		stock = Stock{WarehouseID: params.WarehouseID, ProductID: params.ProductID, LotNumber: params.LotNumber}
	} else if err != nil {
		return Movement{}, err
	}
	stock.Quantity += params.QtyChange
	if stock.Quantity < 0 {
		return Movement{}, ErrNegativeStock
	}
	if err := tx.SaveStock(ctx, stock); err != nil {
		return Movement{}, err
	}

	m := Movement{
		WarehouseID:   params.WarehouseID,
		ProductID:     params.ProductID,
		LotNumber:     params.LotNumber,
		Type:          params.Type,
		Quantity:      params.QtyChange,
		ReferenceType: params.RefType,
		ReferenceID:   params.RefID,
		Reason:        params.Reason,
		CreatedAt:     now,
	}
	if params.ActorID > 0 {
		actor := params.ActorID
		m.CreatedBy = &actor
	}
	if m.ID, err = tx.InsertMovement(ctx, m); err != nil {
		return Movement{}, err
	}
	return m, nil
}
