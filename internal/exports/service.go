package exports

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Service records export runs and hands out their files.
type Service struct {
	repo  Repository
	store *Store
	now   func() time.Time
}

// NewService wires the export history service.
func NewService(repo Repository, store *Store) *Service {
	return &Service{repo: repo, store: store, now: time.Now}
}

// List returns a page of export history.
func (s *Service) List(ctx context.Context, params shared.ListParams, f Filters) (shared.Page[Record], error) {
	items, total, err := s.repo.List(ctx, params, f)
	if err != nil {
		return shared.Page[Record]{}, err
	}
	return shared.NewPage(items, params, total), nil
}

// Get loads one record, hiding records of other companies when companyID is set.
func (s *Service) Get(ctx context.Context, id int64, companyID *int64) (Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if companyID != nil && rec.CompanyID != *companyID {
		return Record{}, httpx.ErrNotFound
	}
	return rec, nil
}

// Open returns the finished export and its file contents.
func (s *Service) Open(ctx context.Context, id int64, companyID *int64) (Record, io.ReadCloser, error) {
	rec, err := s.Get(ctx, id, companyID)
	if err != nil {
		return Record{}, nil, err
	}
	if rec.Status != StatusDone || rec.FilePath == "" {
		return Record{}, nil, ErrNotReady
	}
	f, err := s.store.Open(rec.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, nil, httpx.ErrNotFound
	}
	if err != nil {
		return Record{}, nil, err
	}
	return rec, f, nil
}

// Run records a pending export, lets write fill a new file and marks the
// record done or failed. The returned record reflects the final state.
func (s *Service) Run(ctx context.Context, rec Record, ext string, write func(io.Writer) (int, error)) (Record, error) {
	rec, err := s.repo.Create(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	rows, path, err := s.writeFile(rec.Kind, ext, write)
	if err != nil {
		rec.Status, rec.Error = StatusFailed, err.Error()
		if ferr := s.repo.Fail(ctx, rec.ID, err.Error(), s.now()); ferr != nil {
			return rec, errors.Join(err, ferr)
		}
		return rec, err
	}
	finished := s.now()
	if err := s.repo.Finish(ctx, rec.ID, path, rows, finished); err != nil {
		_ = s.store.Remove(path)
		return rec, err
	}
	rec.Status, rec.FilePath, rec.RowCount, rec.FinishedAt = StatusDone, path, rows, &finished
	return rec, nil
}

func (s *Service) writeFile(kind, ext string, write func(io.Writer) (int, error)) (int, string, error) {
	f, path, err := s.store.Create(kind, ext)
	if err != nil {
		return 0, "", err
	}
	rows, err := write(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.store.Remove(path)
		return 0, "", err
	}
	return rows, path, nil
}
