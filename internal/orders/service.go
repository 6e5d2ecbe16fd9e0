package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mini-erp/telecrm/internal/activities"
	"github.com/mini-erp/telecrm/internal/customers"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

const idempotencyModule = "orders.create"

// Idempotency guards retried creates.
type Idempotency interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Invalidator drops cached aggregates after order writes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service implements order business rules.
type Service struct {
	repo      Repository
	idem      Idempotency
	reports   Invalidator
	audit     shared.AuditRecorder
	ownership time.Duration
	now       func() time.Time
	newID     func(time.Time) string
}

// Options carries optional collaborators.
type Options struct {
	Idempotency Idempotency
	Reports     Invalidator
	Audit       shared.AuditRecorder
	Ownership   time.Duration
}

// NewService builds a Service.
func NewService(repo Repository, opts Options) *Service {
	if opts.Audit == nil {
		opts.Audit = shared.NopAudit{}
	}
	if opts.Ownership <= 0 {
		opts.Ownership = 90 * 24 * time.Hour
	}
	return &Service{
		repo:      repo,
		idem:      opts.Idempotency,
		reports:   opts.Reports,
		audit:     opts.Audit,
		ownership: opts.Ownership,
		now:       time.Now,
		newID:     GenerateID,
	}
}

// List returns a page of orders.
func (s *Service) List(ctx context.Context, params shared.ListParams, f Filters) (shared.Page[Order], error) {
	items, total, err := s.repo.List(ctx, params, f)
	if err != nil {
		return shared.Page[Order]{}, err
	}
	return shared.NewPage(items, params, total), nil
}

// Get returns a full order.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.repo.Get(ctx, strings.TrimSpace(id))
}

// Create prices and stores an order. An unassigned customer is handed to
// the creator. idemKey, when set, makes retries fail with ErrConflict.
func (s *Service) Create(ctx context.Context, creatorID int64, idemKey string, in CreateInput) (Order, error) {
	in.ID = strings.TrimSpace(in.ID)
	if err := httpx.Validate(in); err != nil {
		return Order{}, err
	}
	totals, err := CalculateTotals(in.Items, in.ShippingCost, in.BillDiscount)
	if err != nil {
		return Order{}, err
	}

	if idemKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idemKey, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Order{}, fmt.Errorf("%w: request already processed", httpx.ErrConflict)
			}
			return Order{}, err
		}
	}

	now := s.now()
	o := Order{
		ID:              in.ID,
		CompanyID:       in.CompanyID,
		CustomerID:      in.CustomerID,
		CreatorID:       creatorID,
		OrderDate:       now,
		DeliveryDate:    in.DeliveryDate,
		RecipientName:   strings.TrimSpace(in.RecipientName),
		ShippingAddress: in.ShippingAddress,
		ShippingCost:    in.ShippingCost,
		BillDiscount:    in.BillDiscount,
		TotalAmount:     totals.Total,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   orDefault(in.PaymentStatus, PaymentUnpaid),
		AmountPaid:      in.AmountPaid,
		CODAmount:       in.CODAmount,
		OrderStatus:     StatusPending,
		Notes:           in.Notes,
		SalesChannel:    strings.TrimSpace(in.SalesChannel),
		TrackingNumbers: NormaliseTracking(in.TrackingNumbers),
		Items:           make([]Item, len(in.Items)),
	}
	if o.PaymentMethod == MethodCOD && o.CODAmount.IsZero() {
		o.CODAmount = totals.Total
	}
	for i, it := range in.Items {
		box := it.BoxNumber
		if box == 0 {
			box = 1
		}
		o.Items[i] = Item{
			ProductID:    it.ProductID,
			PromotionID:  it.PromotionID,
			ProductName:  strings.TrimSpace(it.ProductName),
			Quantity:     it.Quantity,
			PricePerUnit: it.PricePerUnit,
			Discount:     it.Discount,
			IsFreebie:    it.IsFreebie,
			BoxNumber:    box,
			LineTotal:    totals.Lines[i],
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		cust, err := repo.Customer(ctx, o.CustomerID)
		if errors.Is(err, httpx.ErrNotFound) {
			return httpx.NewFieldErrors("customerId", "unknown customer")
		}
		if err != nil {
			return err
		}
		if cust.CompanyID != o.CompanyID {
			return httpx.NewFieldErrors("customerId", "belongs to another company")
		}
		if o.RecipientName == "" {
			o.RecipientName = cust.Name
		}
		if err := s.insertWithID(ctx, repo, &o, in.ID == ""); err != nil {
			return err
		}
		if cust.AssignedTo == nil {
			if err := repo.AssignCustomer(ctx, cust.ID, creatorID, now, now.Add(s.ownership)); err != nil {
				return err
			}
			if err := repo.RecordActivity(ctx, activities.Activity{
				CustomerID:  cust.ID,
				Type:        activities.TypeAssignment,
				Description: "Assigned to order creator",
				ActorID:     activities.Actor(creatorID),
			}); err != nil {
				return err
			}
		}
		return repo.RecordActivity(ctx, activities.Activity{
			CustomerID:  cust.ID,
			Type:        activities.TypeOrderCreated,
			Description: fmt.Sprintf("Order %s created, total %s", o.ID, o.TotalAmount.StringFixed(2)),
			ActorID:     activities.Actor(creatorID),
		})
	})
	if err != nil {
		if idemKey != "" && s.idem != nil {
			_ = s.idem.Delete(ctx, idemKey, idempotencyModule)
		}
		return Order{}, err
	}
	s.invalidate(ctx)
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: creatorID, Action: "order.create", Entity: "order", EntityID: o.ID,
		Meta: map[string]any{"total": o.TotalAmount.StringFixed(2)}})
	return s.repo.Get(ctx, o.ID)
}

// insertWithID stores o, retrying generated ids that collide.
func (s *Service) insertWithID(ctx context.Context, repo Repository, o *Order, generate bool) error {
	const attempts = 5
	for i := 0; ; i++ {
		if generate {
			o.ID = s.newID(o.OrderDate)
		}
		err := repo.Insert(ctx, *o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, httpx.ErrDuplicate) {
			return err
		}
		if !generate {
			return httpx.NewFieldErrors("id", "order id already exists")
		}
		if i == attempts-1 {
			return fmt.Errorf("generate order id: %w", err)
		}
	}
}

// Patch updates status, payment and tracking fields and applies customer side effects.
func (s *Service) Patch(ctx context.Context, actorID int64, id string, in PatchInput) (Order, error) {
	if err := httpx.Validate(in); err != nil {
		return Order{}, err
	}
	if in.AmountPaid != nil && in.AmountPaid.IsNegative() {
		return Order{}, httpx.NewFieldErrors("amountPaid", "must not be negative")
	}
	if in.CODAmount != nil && in.CODAmount.IsNegative() {
		return Order{}, httpx.NewFieldErrors("codAmount", "must not be negative")
	}
	id = strings.TrimSpace(id)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		current, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		next := current
		if in.OrderStatus != "" {
			next.OrderStatus = in.OrderStatus
		}
		if in.PaymentStatus != "" {
			next.PaymentStatus = in.PaymentStatus
		}
		if in.AmountPaid != nil {
			next.AmountPaid = *in.AmountPaid
		}
		if in.CODAmount != nil {
			next.CODAmount = *in.CODAmount
		}
		if in.Notes != "" {
			next.Notes = in.Notes
		}
		if in.SalesChannel != "" {
			next.SalesChannel = strings.TrimSpace(in.SalesChannel)
		}

		var events []activities.Activity
		event := func(t activities.Type, desc string) {
			events = append(events, activities.Activity{
				CustomerID: current.CustomerID, Type: t, Description: desc, ActorID: activities.Actor(actorID),
			})
		}
		if next.OrderStatus != current.OrderStatus {
			if next.OrderStatus == StatusCancelled {
				event(activities.TypeOrderCancelled, fmt.Sprintf("Order %s cancelled", id))
			} else {
				event(activities.TypeOrderStatusChanged, fmt.Sprintf("Order %s: %s → %s", id, current.OrderStatus, next.OrderStatus))
			}
		}
		if next.PaymentStatus != current.PaymentStatus && next.PaymentStatus == PaymentPaid {
			event(activities.TypePaymentVerified, fmt.Sprintf("Payment verified for order %s", id))
		}
		if next.Notes != current.Notes {
			event(activities.TypeOrderNoteAdded, fmt.Sprintf("Note on order %s: %s", id, next.Notes))
		}

		if in.TrackingNumbers != nil {
			numbers := NormaliseTracking(in.TrackingNumbers)
			if err := repo.ReplaceTracking(ctx, id, numbers); err != nil {
				return err
			}
			if added := newNumbers(current.TrackingNumbers, numbers); len(added) > 0 {
				event(activities.TypeTrackingAdded, fmt.Sprintf("Tracking for order %s: %s", id, strings.Join(added, ", ")))
			}
			next.TrackingNumbers = numbers
		}

		paid := next.PaymentStatus == PaymentPaid
		delivered := next.OrderStatus == StatusDelivered
		var sale *Sale
		if paid || delivered {
			cust, err := repo.Customer(ctx, current.CustomerID)
			if err != nil {
				return err
			}
			if cust.LifecycleStatus != customers.LifecycleOld3Months {
				if err := repo.SetLifecycle(ctx, cust.ID, customers.LifecycleOld3Months); err != nil {
					return err
				}
				event(activities.TypeStatusChange, fmt.Sprintf("Lifecycle %s → %s", cust.LifecycleStatus, customers.LifecycleOld3Months))
			}
			if paid && delivered && !current.SaleCounted {
				now := s.now()
				total := cust.TotalPurchases.Add(next.TotalAmount)
				sale = &Sale{
					CustomerID:       cust.ID,
					Amount:           next.TotalAmount,
					At:               now,
					OwnershipExpires: ExtendOwnership(cust.OwnershipExpires, now, s.ownership),
					Grade:            customers.GradeFor(total),
				}
				if sale.Grade != cust.Grade {
					event(activities.TypeGradeChange, fmt.Sprintf("Grade %s → %s", cust.Grade, sale.Grade))
				}
				next.SaleCounted = true
			}
		}

		if err := repo.Update(ctx, next); err != nil {
			return err
		}
		if sale != nil {
			if err := repo.ApplySale(ctx, *sale); err != nil {
				return err
			}
		}
		for _, a := range events {
			if err := repo.RecordActivity(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.invalidate(ctx)
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: "order.update", Entity: "order", EntityID: id})
	return s.repo.Get(ctx, id)
}

// ExtendOwnership pushes the ownership window forward by window, never past now+window.
func ExtendOwnership(current *time.Time, now time.Time, window time.Duration) time.Time {
	limit := now.Add(window)
	if current == nil {
		return limit
	}
	extended := current.Add(window)
	if extended.After(limit) {
		return limit
	}
	return extended
}

// AddSlip attaches a transfer slip and moves an unpaid order to PendingVerification.
func (s *Service) AddSlip(ctx context.Context, actorID int64, id string, in SlipInput) (Order, error) {
	if err := httpx.Validate(in); err != nil {
		return Order{}, err
	}
	if in.Amount.IsNegative() {
		return Order{}, httpx.NewFieldErrors("amount", "must not be negative")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		o, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if _, err := repo.AddSlip(ctx, o.ID, Slip{URL: in.URL, Amount: in.Amount, TransferDate: in.TransferDate}, actorID); err != nil {
			return err
		}
		if o.PaymentStatus == PaymentUnpaid {
			o.PaymentStatus = PaymentPendingVerification
			return repo.Update(ctx, o)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}

// ValidateTracking checks bulk tracking rows against stored orders.
func (s *Service) ValidateTracking(ctx context.Context, rows []TrackingRow) (TrackingResult, error) {
	return s.validateTracking(ctx, s.repo, rows)
}

func (s *Service) validateTracking(ctx context.Context, repo Repository, rows []TrackingRow) (TrackingResult, error) {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if id := strings.TrimSpace(r.OrderID); id != "" {
			ids = append(ids, id)
		}
	}
	index, err := repo.TrackingIndex(ctx, ids)
	if err != nil {
		return TrackingResult{}, err
	}
	return ValidateTrackingRows(rows, func(orderID string) (string, []string, bool) {
		e, ok := index[strings.ToLower(orderID)]
		return e.ID, e.Existing, ok
	}), nil
}

// ApplyTracking validates again and stores the valid rows in one transaction.
func (s *Service) ApplyTracking(ctx context.Context, actorID int64, rows []TrackingRow) (TrackingResult, error) {
	var result TrackingResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		result, err = s.validateTracking(ctx, repo, rows)
		if err != nil {
			return err
		}
		customersByOrder := map[string]int64{}
		for _, row := range result.Rows {
			if row.Status != TrackingValid {
				continue
			}
			if err := repo.AddTracking(ctx, row.CanonicalID, row.TrackingNumber); err != nil {
				return err
			}
			result.Applied++
			if _, ok := customersByOrder[row.CanonicalID]; !ok {
				o, err := repo.Get(ctx, row.CanonicalID)
				if err != nil {
					return err
				}
				customersByOrder[row.CanonicalID] = o.CustomerID
			}
			if err := repo.RecordActivity(ctx, activities.Activity{
				CustomerID:  customersByOrder[row.CanonicalID],
				Type:        activities.TypeTrackingAdded,
				Description: fmt.Sprintf("Tracking for order %s: %s", row.CanonicalID, row.TrackingNumber),
				ActorID:     activities.Actor(actorID),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return TrackingResult{}, err
	}
	return result, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.reports != nil {
		_ = s.reports.Bump(ctx)
	}
}

func newNumbers(before, after []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, n := range before {
		seen[n] = struct{}{}
	}
	var added []string
	for _, n := range after {
		if _, ok := seen[n]; !ok {
			added = append(added, n)
		}
	}
	return added
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

