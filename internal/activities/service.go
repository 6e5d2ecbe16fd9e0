package activities

import (
	"context"

	"github.com/mini-erp/telecrm/internal/shared"
)

// Recorder appends timeline entries.
type Recorder interface {
	Record(ctx context.Context, a Activity) error
}

// Lister reads timeline entries.
type Lister interface {
	List(ctx context.Context, params shared.ListParams, f Filters) ([]Activity, int, error)
}

// Service exposes the timeline to handlers.
type Service struct {
	repo Lister
}

// NewService constructs a Service.
func NewService(repo Lister) *Service {
	return &Service{repo: repo}
}

// List returns a page of activities.
func (s *Service) List(ctx context.Context, params shared.ListParams, f Filters) (shared.Page[Activity], error) {
	items, total, err := s.repo.List(ctx, params, f)
	if err != nil {
		return shared.Page[Activity]{}, err
	}
	return shared.NewPage(items, params, total), nil
}

// Actor converts a user id into the nullable actor column value.
func Actor(userID int64) *int64 {
	if userID <= 0 {
		return nil
	}
	return &userID
}
