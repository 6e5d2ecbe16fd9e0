package procurement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mini-erp/telecrm/internal/inventory"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, params shared.ListParams, f Filters) ([]Purchase, int, error)
	Get(ctx context.Context, id int64) (Purchase, error)
}

// TxRepository is the transactional view of the purchase tables. Inventory
// returns the stock ledger bound to the same transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Purchase, error)
	LastSequence(ctx context.Context, prefix string) (int, error)
	Insert(ctx context.Context, p Purchase) (int64, error)
	AddReceived(ctx context.Context, itemID int64, qty int) error
	UpdateStatus(ctx context.Context, id int64, status string, receivedDate *time.Time) error
	UpdatePayment(ctx context.Context, id int64, status string, paid decimal.Decimal) error
	Inventory() inventory.TxRepository
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates procurement flows.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs procurement service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// List returns a page of purchases.
func (s *Service) List(ctx context.Context, params shared.ListParams, f Filters) (shared.Page[Purchase], error) {
	items, total, err := s.repo.List(ctx, params, f)
	if err != nil {
		return shared.Page[Purchase]{}, err
	}
	return shared.NewPage(items, params, total), nil
}

// Get returns a purchase with its items.
func (s *Service) Get(ctx context.Context, id int64) (Purchase, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a purchase, numbering it PO-YYYYMMDD-#### unless the caller
// supplied a number.
func (s *Service) Create(ctx context.Context, actorID int64, in CreateInput) (Purchase, error) {
	in.PurchaseNumber = strings.TrimSpace(in.PurchaseNumber)
	in.Notes = strings.TrimSpace(in.Notes)
	if err := httpx.Validate(in); err != nil {
		return Purchase{}, err
	}
	if in.CompanyID == 0 {
		return Purchase{}, httpx.NewFieldErrors("companyId", "is required")
	}
	for i, it := range in.Items {
		if it.UnitCost.IsNegative() {
			return Purchase{}, httpx.NewFieldErrors(fmt.Sprintf("items[%d].unitCost", i), "must not be negative")
		}
	}
	now := s.now()
	p := Purchase{
		CompanyID:            in.CompanyID,
		PurchaseNumber:       in.PurchaseNumber,
		SupplierID:           in.SupplierID,
		WarehouseID:          in.WarehouseID,
		PurchaseDate:         now,
		ExpectedDeliveryDate: in.ExpectedDeliveryDate,
		Status:               orDefault(in.Status, StatusDraft),
		PaymentStatus:        PaymentUnpaid,
		TotalAmount:          Total(in.Items),
		Notes:                in.Notes,
		CreatedBy:            &actorID,
	}
	if in.PurchaseDate != nil {
		p.PurchaseDate = *in.PurchaseDate
	}
	for _, it := range in.Items {
		p.Items = append(p.Items, Item{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitCost:  it.UnitCost.Round(2),
			LotNumber: strings.TrimSpace(it.LotNumber),
		})
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if p.PurchaseNumber == "" {
			seq, err := tx.LastSequence(ctx, NumberPrefix(p.PurchaseDate))
			if err != nil {
				return err
			}
			p.PurchaseNumber = FormatNumber(p.PurchaseDate, seq+1)
		}
		id, err := tx.Insert(ctx, p)
		p.ID = id
		return err
	})
	switch {
	case errors.Is(err, httpx.ErrDuplicate):
		return Purchase{}, httpx.NewFieldErrors("purchaseNumber", "already exists")
	case errors.Is(err, httpx.ErrConflict):
		return Purchase{}, httpx.NewFieldErrors("items", "unknown supplier, warehouse or product")
	case err != nil:
		return Purchase{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: "purchase.create", Entity: "purchase",
		EntityID: fmt.Sprint(p.ID), Meta: map[string]any{"number": p.PurchaseNumber, "total": p.TotalAmount.StringFixed(2)}})
	return s.repo.Get(ctx, p.ID)
}

// Receive books goods against purchase items. Every receipt creates or tops
// up a lot and the warehouse stock and writes an IN movement; the purchase
// becomes Partial or Received.
func (s *Service) Receive(ctx context.Context, actorID, id int64, in ReceiveInput) (Purchase, error) {
	if err := httpx.Validate(in); err != nil {
		return Purchase{}, err
	}
	now := s.now()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.Status == StatusCancelled || p.Status == StatusReceived {
			return fmt.Errorf("%w: purchase is %s", ErrInvalidState, strings.ToLower(p.Status))
		}
		index := make(map[int64]int, len(p.Items))
		for i, it := range p.Items {
			index[it.ID] = i
		}
		for i, r := range in.Items {
			pos, ok := index[r.ItemID]
			if !ok {
				return httpx.NewFieldErrors(fmt.Sprintf("items[%d].itemId", i), "does not belong to this purchase")
			}
			item := &p.Items[pos]
			if r.Quantity > item.Outstanding() {
				return httpx.NewFieldErrors(fmt.Sprintf("items[%d].quantity", i),
					fmt.Sprintf("exceeds outstanding quantity %d", item.Outstanding()))
			}
			lot := strings.TrimSpace(r.LotNumber)
			if lot == "" {
				lot = item.LotNumber
			}
			if lot == "" {
				lot = fmt.Sprintf("%s-%d", p.PurchaseNumber, item.ID)
			}
			purchaseID, supplierID := p.ID, p.SupplierID
			if _, err := inventory.PostReceipt(ctx, tx.Inventory(), inventory.ReceiptInput{
				WarehouseID:  p.WarehouseID,
				ProductID:    item.ProductID,
				SupplierID:   &supplierID,
				PurchaseID:   &purchaseID,
				LotNumber:    lot,
				Quantity:     r.Quantity,
				UnitCost:     item.UnitCost,
				PurchaseDate: p.PurchaseDate,
				ExpiryDate:   r.ExpiryDate,
				Reference:    p.PurchaseNumber,
				ActorID:      actorID,
			}, now); err != nil {
				return err
			}
			if err := tx.AddReceived(ctx, item.ID, r.Quantity); err != nil {
				return err
			}
			item.ReceivedQuantity += r.Quantity
		}
		status := ReceiptStatus(p.Items, p.Status)
		var received *time.Time
		if status == StatusReceived {
			received = &now
		}
		return tx.UpdateStatus(ctx, p.ID, status, received)
	})
	if err != nil {
		return Purchase{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: "purchase.receive", Entity: "purchase",
		EntityID: fmt.Sprint(id), Meta: map[string]any{"lines": len(in.Items)}})
	return s.repo.Get(ctx, id)
}

// UpdateStatus changes the lifecycle status and/or payment of a purchase.
// Cancelling is refused once goods have been received.
func (s *Service) UpdateStatus(ctx context.Context, actorID, id int64, in StatusInput) (Purchase, error) {
	if err := httpx.Validate(in); err != nil {
		return Purchase{}, err
	}
	if in.Status == "" && in.PaymentStatus == "" && in.PaidAmount == nil {
		return Purchase{}, httpx.NewFieldErrors("status", "nothing to update")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.Status != "" {
			if err := checkTransition(p, in.Status); err != nil {
				return err
			}
			if err := tx.UpdateStatus(ctx, id, in.Status, p.ReceivedDate); err != nil {
				return err
			}
		}
		if in.PaymentStatus != "" || in.PaidAmount != nil {
			status, paid, err := ResolvePayment(p.TotalAmount, p.PaidAmount, in.PaymentStatus, in.PaidAmount)
			if err != nil {
				return err
			}
			return tx.UpdatePayment(ctx, id, status, paid)
		}
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: "purchase.status", Entity: "purchase",
		EntityID: fmt.Sprint(id), Meta: map[string]any{"status": in.Status, "payment_status": in.PaymentStatus}})
	return s.repo.Get(ctx, id)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
