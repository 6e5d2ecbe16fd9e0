package customers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mini-erp/telecrm/internal/activities"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Service implements customer business rules.
type Service struct {
	repo      Repository
	audit     shared.AuditRecorder
	ownership time.Duration
	now       func() time.Time
}

// NewService builds a Service. ownership is how long an assignment lasts.
func NewService(repo Repository, audit shared.AuditRecorder, ownership time.Duration) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, audit: audit, ownership: ownership, now: time.Now}
}

// List returns a page of customers.
func (s *Service) List(ctx context.Context, params shared.ListParams, f Filters) (shared.Page[Customer], error) {
	items, total, err := s.repo.List(ctx, params, f)
	if err != nil {
		return shared.Page[Customer]{}, err
	}
	return shared.NewPage(items, params, total), nil
}

// Get returns one customer with tags.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and inserts a customer, assigning it when an owner is given.
func (s *Service) Create(ctx context.Context, actorID int64, in CreateInput) (Customer, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = NormalisePhone(in.Phone)
	if err := httpx.Validate(in); err != nil {
		return Customer{}, err
	}
	if !ValidPhone(in.Phone) {
		return Customer{}, httpx.NewFieldErrors("phone", "must be a Thai phone number")
	}
	if in.CompanyID <= 0 {
		return Customer{}, httpx.NewFieldErrors("companyId", "is required")
	}

	c := Customer{
		CompanyID:        in.CompanyID,
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		Phone:            in.Phone,
		Email:            strings.TrimSpace(in.Email),
		FacebookName:     strings.TrimSpace(in.FacebookName),
		LineID:           strings.TrimSpace(in.LineID),
		Address:          trimAddress(in.Address),
		LifecycleStatus:  orDefault(in.LifecycleStatus, LifecycleNew),
		BehavioralStatus: orDefault(in.BehavioralStatus, BehaviorWarm),
		Grade:            GradeD,
		FollowUpDate:     in.FollowUpDate,
		Notes:            in.Notes,
	}

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if in.AssignedTo != nil && *in.AssignedTo > 0 {
			if _, err := s.assigneeName(ctx, repo, *in.AssignedTo); err != nil {
				return err
			}
			now := s.now()
			expires := now.Add(s.ownership)
			c.AssignedTo, c.DateAssigned, c.OwnershipExpires = in.AssignedTo, &now, &expires
		}
		var err error
		id, err = repo.Create(ctx, c)
		if err != nil {
			if errors.Is(err, httpx.ErrDuplicate) {
				return httpx.NewFieldErrors("phone", "already registered")
			}
			return err
		}
		if len(in.TagIDs) > 0 {
			if err := repo.ReplaceTags(ctx, id, dedupeIDs(in.TagIDs)); err != nil {
				return err
			}
		}
		if c.AssignedTo != nil {
			return repo.RecordActivity(ctx, activities.Activity{
				CustomerID:  id,
				Type:        activities.TypeAssignment,
				Description: "Assigned on registration",
				ActorID:     activities.Actor(actorID),
			})
		}
		return nil
	})
	if err != nil {
		return Customer{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: "customer.create", Entity: "customer", EntityID: strconv.FormatInt(id, 10)})
	return s.repo.Get(ctx, id)
}

// Update applies a partial update and records status and grade changes on the timeline.
func (s *Service) Update(ctx context.Context, actorID, id int64, in UpdateInput) (Customer, error) {
	if err := httpx.Validate(in); err != nil {
		return Customer{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		current, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		next, err := applyUpdate(current, in)
		if err != nil {
			return err
		}
		if err := repo.Update(ctx, next); err != nil {
			if errors.Is(err, httpx.ErrDuplicate) {
				return httpx.NewFieldErrors("phone", "already registered")
			}
			return err
		}
		if next.LifecycleStatus != current.LifecycleStatus {
			if err := repo.RecordActivity(ctx, activities.Activity{
				CustomerID:  id,
				Type:        activities.TypeStatusChange,
				Description: fmt.Sprintf("Lifecycle %s → %s", current.LifecycleStatus, next.LifecycleStatus),
				ActorID:     activities.Actor(actorID),
			}); err != nil {
				return err
			}
		}
		if next.Grade != current.Grade {
			return repo.RecordActivity(ctx, activities.Activity{
				CustomerID:  id,
				Type:        activities.TypeGradeChange,
				Description: fmt.Sprintf("Grade %s → %s", current.Grade, next.Grade),
				ActorID:     activities.Actor(actorID),
			})
		}
		return nil
	})
	if err != nil {
		return Customer{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: "customer.update", Entity: "customer", EntityID: strconv.FormatInt(id, 10)})
	return s.repo.Get(ctx, id)
}

func applyUpdate(c Customer, in UpdateInput) (Customer, error) {
	if in.FirstName != nil {
		c.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		c.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		phone := NormalisePhone(*in.Phone)
		if !ValidPhone(phone) {
			return Customer{}, httpx.NewFieldErrors("phone", "must be a Thai phone number")
		}
		c.Phone = phone
	}
	if in.Email != nil {
		c.Email = strings.TrimSpace(*in.Email)
	}
	if in.FacebookName != nil {
		c.FacebookName = strings.TrimSpace(*in.FacebookName)
	}
	if in.LineID != nil {
		c.LineID = strings.TrimSpace(*in.LineID)
	}
	if in.Address != nil {
		c.Address = trimAddress(*in.Address)
	}
	if in.LifecycleStatus != nil {
		c.LifecycleStatus = *in.LifecycleStatus
	}
	if in.BehavioralStatus != nil {
		c.BehavioralStatus = *in.BehavioralStatus
	}
	if in.Grade != nil {
		c.Grade = *in.Grade
	}
	if in.FollowUpDate != nil {
		c.FollowUpDate = in.FollowUpDate
	}
	if in.Notes != nil {
		c.Notes = *in.Notes
	}
	return c, nil
}

// Delete removes a customer.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: "customer.delete", Entity: "customer", EntityID: strconv.FormatInt(id, 10)})
	return nil
}

// Assign hands the customer to a telesale and restarts the ownership window.
// A nil user returns the customer to the pool.
func (s *Service) Assign(ctx context.Context, actorID, id int64, in AssignInput) (Customer, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		if in.UserID == nil || *in.UserID == 0 {
			if err := repo.Assign(ctx, id, nil, nil, nil); err != nil {
				return err
			}
			return repo.RecordActivity(ctx, activities.Activity{
				CustomerID:  id,
				Type:        activities.TypeAssignment,
				Description: "Returned to the pool",
				ActorID:     activities.Actor(actorID),
			})
		}
		name, err := s.assigneeName(ctx, repo, *in.UserID)
		if err != nil {
			return err
		}
		now := s.now()
		expires := now.Add(s.ownership)
		if err := repo.Assign(ctx, id, in.UserID, &now, &expires); err != nil {
			return err
		}
		return repo.RecordActivity(ctx, activities.Activity{
			CustomerID:  id,
			Type:        activities.TypeAssignment,
			Description: "Assigned to " + name,
			ActorID:     activities.Actor(actorID),
		})
	})
	if err != nil {
		return Customer{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) assigneeName(ctx context.Context, repo Repository, userID int64) (string, error) {
	name, err := repo.UserName(ctx, userID)
	if errors.Is(err, httpx.ErrNotFound) {
		return "", httpx.NewFieldErrors("userId", "unknown or inactive user")
	}
	return name, err
}

// SetTags replaces the tag set.
func (s *Service) SetTags(ctx context.Context, id int64, in TagsInput) (Customer, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		return repo.ReplaceTags(ctx, id, dedupeIDs(in.TagIDs))
	})
	if err != nil {
		return Customer{}, err
	}
	return s.repo.Get(ctx, id)
}

// LogCall increments the call counter and writes a call_logged activity.
func (s *Service) LogCall(ctx context.Context, actorID, id int64, in CallInput) (Customer, error) {
	if err := httpx.Validate(in); err != nil {
		return Customer{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		c, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		c.TotalCalls++
		if err := repo.Update(ctx, c); err != nil {
			return err
		}
		desc := "Call logged"
		if r := strings.TrimSpace(in.Result); r != "" {
			desc += ": " + r
		}
		if n := strings.TrimSpace(in.Notes); n != "" {
			desc += " (" + n + ")"
		}
		return repo.RecordActivity(ctx, activities.Activity{
			CustomerID: id, Type: activities.TypeCallLogged, Description: desc, ActorID: activities.Actor(actorID),
		})
	})
	if err != nil {
		return Customer{}, err
	}
	return s.repo.Get(ctx, id)
}

// SetAppointment schedules a follow-up and moves the customer to FollowUp.
func (s *Service) SetAppointment(ctx context.Context, actorID, id int64, in AppointmentInput) (Customer, error) {
	if err := httpx.Validate(in); err != nil {
		return Customer{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		c, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		date := in.Date
		c.FollowUpDate = &date
		c.FollowUpCount++
		c.LifecycleStatus = LifecycleFollowUp
		if err := repo.Update(ctx, c); err != nil {
			return err
		}
		desc := "Appointment set for " + date.Format("2006-01-02 15:04")
		if n := strings.TrimSpace(in.Notes); n != "" {
			desc += " (" + n + ")"
		}
		return repo.RecordActivity(ctx, activities.Activity{
			CustomerID: id, Type: activities.TypeAppointmentSet, Description: desc, ActorID: activities.Actor(actorID),
		})
	})
	if err != nil {
		return Customer{}, err
	}
	return s.repo.Get(ctx, id)
}

// ReleaseExpired returns lapsed customers to the pool.
func (s *Service) ReleaseExpired(ctx context.Context) (int64, error) {
	return s.repo.ReleaseExpired(ctx, s.now())
}

// RefreshGrades recomputes grades from lifetime purchases.
func (s *Service) RefreshGrades(ctx context.Context) (int64, error) {
	return s.repo.RefreshGrades(ctx)
}

func trimAddress(a Address) Address {
	return Address{
		Street:      strings.TrimSpace(a.Street),
		Subdistrict: strings.TrimSpace(a.Subdistrict),
		District:    strings.TrimSpace(a.District),
		Province:    strings.TrimSpace(a.Province),
		PostalCode:  strings.TrimSpace(a.PostalCode),
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
