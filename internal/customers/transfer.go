package customers

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/mini-erp/telecrm/internal/csvio"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

// ExportHeader is the column order of customers export.csv. The import accepts the same headers.
var ExportHeader = []string{
	"id", "firstName", "lastName", "phone", "email", "facebookName", "lineId",
	"street", "subdistrict", "district", "province", "postalCode",
	"lifecycleStatus", "behavioralStatus", "grade", "assignedTo", "totalPurchases", "totalCalls",
	"dateRegistered", "ownershipExpires", "tags",
}

// ExportRow renders one customer in ExportHeader order.
func ExportRow(c Customer) []string {
	tags := make([]string, len(c.Tags))
	for i, t := range c.Tags {
		tags[i] = t.Name
	}
	expires := ""
	if c.OwnershipExpires != nil {
		expires = c.OwnershipExpires.Format("2006-01-02")
	}
	return []string{
		strconv.FormatInt(c.ID, 10), c.FirstName, c.LastName, c.Phone, c.Email, c.FacebookName, c.LineID,
		c.Address.Street, c.Address.Subdistrict, c.Address.District, c.Address.Province, c.Address.PostalCode,
		c.LifecycleStatus, c.BehavioralStatus, c.Grade, c.AssignedToName, c.TotalPurchases.StringFixed(2),
		strconv.Itoa(c.TotalCalls), c.DateRegistered.Format("2006-01-02"), expires, strings.Join(tags, "|"),
	}
}

// Export writes every customer matching f as CSV, ignoring paging.
func (s *Service) Export(ctx context.Context, params shared.ListParams, f Filters, out io.Writer) (int, error) {
	w := csvio.NewWriter(out)
	if err := w.Write(ExportHeader); err != nil {
		return 0, err
	}
	params.PageSize = shared.MaxPageSize
	written := 0
	for params.Page = 1; ; params.Page++ {
		items, total, err := s.repo.List(ctx, params, f)
		if err != nil {
			return written, err
		}
		for _, c := range items {
			if err := w.Write(ExportRow(c)); err != nil {
				return written, err
			}
			written++
		}
		if len(items) == 0 || written >= total {
			break
		}
	}
	return written, w.Flush()
}

// Import upserts customers by phone. Rows failing validation are reported
// and skipped; the rest are applied individually.
func (s *Service) Import(ctx context.Context, actorID, companyID int64, in io.Reader) (csvio.Result, error) {
	result := csvio.Result{Errors: []*csvio.RowError{}}
	parser, err := csvio.NewParser(in)
	if err != nil {
		return result, errors.Join(httpx.ErrValidation, err)
	}
	if err := parser.Require("firstName", "phone"); err != nil {
		return result, errors.Join(httpx.ErrValidation, err)
	}

	seen := make(map[string]int)
	for {
		row, err := parser.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var rowErr *csvio.RowError
		if errors.As(err, &rowErr) {
			result.Errors = append(result.Errors, rowErr)
			result.Skipped++
			continue
		}
		if err != nil {
			return result, err
		}
		if row.IsEmpty() {
			continue
		}

		phone := NormalisePhone(row.Get("phone"))
		switch {
		case row.Get("firstName") == "":
			result.Fail(row.Line, "firstName", csvio.CodeRequired, "first name is required")
			result.Skipped++
			continue
		case !ValidPhone(phone):
			result.Fail(row.Line, "phone", csvio.CodeInvalidValue, "invalid phone "+strconv.Quote(row.Get("phone")))
			result.Skipped++
			continue
		}
		if first, dup := seen[phone]; dup {
			result.Fail(row.Line, "phone", csvio.CodeDuplicateInFile, "phone already used on line "+strconv.Itoa(first))
			result.Skipped++
			continue
		}
		seen[phone] = row.Line

		created, err := s.upsertRow(ctx, actorID, companyID, phone, row)
		if err != nil {
			if httpx.IsInternal(err) {
				return result, err
			}
			result.Fail(row.Line, "", csvio.CodeInvalidValue, err.Error())
			result.Skipped++
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	return result, nil
}

func (s *Service) upsertRow(ctx context.Context, actorID, companyID int64, phone string, row csvio.Row) (bool, error) {
	addr := Address{
		Street:      row.Get("street"),
		Subdistrict: row.Get("subdistrict"),
		District:    row.Get("district"),
		Province:    row.Get("province"),
		PostalCode:  row.Get("postalCode"),
	}
	existing, err := s.repo.FindByPhone(ctx, companyID, phone)
	switch {
	case errors.Is(err, httpx.ErrNotFound):
		_, err := s.Create(ctx, actorID, CreateInput{
			CompanyID:        companyID,
			FirstName:        row.Get("firstName"),
			LastName:         row.Get("lastName"),
			Phone:            phone,
			Email:            row.Get("email"),
			FacebookName:     row.Get("facebookName"),
			LineID:           row.Get("lineId"),
			Address:          addr,
			LifecycleStatus:  row.Get("lifecycleStatus"),
			BehavioralStatus: row.Get("behavioralStatus"),
			Notes:            row.Get("notes"),
		})
		return true, err
	case err != nil:
		return false, err
	}

	in := UpdateInput{
		FirstName:        nonEmpty(row.Get("firstName")),
		LastName:         nonEmpty(row.Get("lastName")),
		Email:            nonEmpty(row.Get("email")),
		FacebookName:     nonEmpty(row.Get("facebookName")),
		LineID:           nonEmpty(row.Get("lineId")),
		LifecycleStatus:  nonEmpty(row.Get("lifecycleStatus")),
		BehavioralStatus: nonEmpty(row.Get("behavioralStatus")),
		Notes:            nonEmpty(row.Get("notes")),
	}
	if addr != (Address{}) {
		in.Address = &addr
	}
	_, err = s.Update(ctx, actorID, existing.ID, in)
	return false, err
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
