package inventory

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mini-erp/telecrm/internal/csvio"
	"github.com/mini-erp/telecrm/internal/shared"
)

// MovementHeader is the column order of movements export.csv.
var MovementHeader = []string{
	"วันที่", "เลขที่เอกสาร", "ประเภท", "สินค้า", "คลัง", "ล็อต", "จำนวน", "ประเภท (ระบบ)", "ผู้บันทึก", "เหตุผล",
}

// MovementRow renders one movement in MovementHeader order.
func MovementRow(m Movement) []string {
	return []string{
		m.CreatedAt.Format("2006-01-02 15:04"),
		m.DocumentNo(),
		m.Type.Label(),
		m.ProductSKU + " - " + m.ProductName,
		m.WarehouseName,
		m.LotNumber,
		strconv.Itoa(m.Quantity),
		string(m.Type),
		m.CreatedByName,
		m.Reason,
	}
}

// ExportMovementsCSV writes every movement matching f, preceded by a title
// and the reporting period.
func (s *Service) ExportMovementsCSV(ctx context.Context, params shared.ListParams, f MovementFilters, out io.Writer) (int, error) {
	w := csvio.NewWriter(out)
	if err := w.Write([]string{"รายงานความเคลื่อนไหวสต็อก"}); err != nil {
		return 0, err
	}
	if err := w.Write([]string{"ช่วงเวลา", period(f.From, f.To)}); err != nil {
		return 0, err
	}
	if err := w.Write(MovementHeader); err != nil {
		return 0, err
	}
	params.PageSize = shared.MaxPageSize
	seen := 0
	for params.Page = 1; ; params.Page++ {
		items, total, err := s.repo.ListMovements(ctx, params, f)
		if err != nil {
			return seen, err
		}
		for _, m := range items {
			if err := w.Write(MovementRow(m)); err != nil {
				return seen, err
			}
			seen++
		}
		if len(items) == 0 || seen >= total {
			break
		}
	}
	return seen, w.Flush()
}

// period renders a half-open [from, to) window as inclusive dates.
func period(from, to *time.Time) string {
	const layout = "2006-01-02"
	switch {
	case from == nil && to == nil:
		return "ทั้งหมด"
	case to == nil:
		return fmt.Sprintf("ตั้งแต่ %s", from.Format(layout))
	case from == nil:
		return fmt.Sprintf("ถึง %s", to.AddDate(0, 0, -1).Format(layout))
	}
	return fmt.Sprintf("%s ถึง %s", from.Format(layout), to.AddDate(0, 0, -1).Format(layout))
}
