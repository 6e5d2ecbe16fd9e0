package orders

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mini-erp/telecrm/internal/csvio"
	"github.com/mini-erp/telecrm/internal/customers"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
	"github.com/mini-erp/telecrm/internal/xlsx"
)

// ExportHeader is the column order of orders export.csv and the xlsx Orders sheet.
var ExportHeader = []string{
	"id", "orderDate", "customer", "phone", "creator", "orderStatus", "paymentStatus", "paymentMethod",
	"totalAmount", "amountPaid", "codAmount", "trackingNumbers", "recipientName",
	"street", "subdistrict", "district", "province", "postalCode", "salesChannel", "notes",
}

// ImportHeader lists the columns an order import must carry.
var ImportHeader = []string{"orderId", "customerPhone", "paymentMethod", "productName", "quantity", "pricePerUnit"}

// ExportRow renders one order in ExportHeader order.
func ExportRow(o Order) []string {
	a := o.ShippingAddress
	return []string{
		o.ID, o.OrderDate.Format("2006-01-02 15:04"), o.CustomerName, o.CustomerPhone, o.CreatorName,
		o.OrderStatus, o.PaymentStatus, o.PaymentMethod,
		o.TotalAmount.StringFixed(2), o.AmountPaid.StringFixed(2), o.CODAmount.StringFixed(2),
		strings.Join(o.TrackingNumbers, " "), o.RecipientName,
		a.Street, a.Subdistrict, a.District, a.Province, a.PostalCode, o.SalesChannel, o.Notes,
	}
}

// each walks every order matching f in MaxPageSize pages.
func (s *Service) each(ctx context.Context, params shared.ListParams, f Filters, fn func(Order) error) (int, error) {
	params.PageSize = shared.MaxPageSize
	seen := 0
	for params.Page = 1; ; params.Page++ {
		items, total, err := s.repo.List(ctx, params, f)
		if err != nil {
			return seen, err
		}
		for _, o := range items {
			if err := fn(o); err != nil {
				return seen, err
			}
			seen++
		}
		if len(items) == 0 || seen >= total {
			return seen, nil
		}
	}
}

// ExportCSV writes every order matching f as CSV, ignoring paging.
func (s *Service) ExportCSV(ctx context.Context, params shared.ListParams, f Filters, out io.Writer) (int, error) {
	w := csvio.NewWriter(out)
	if err := w.Write(ExportHeader); err != nil {
		return 0, err
	}
	n, err := s.each(ctx, params, f, func(o Order) error { return w.Write(ExportRow(o)) })
	if err != nil {
		return n, err
	}
	return n, w.Flush()
}

// Sheet collects every order matching f into an "Orders" worksheet with
// numeric money cells.
func (s *Service) Sheet(ctx context.Context, params shared.ListParams, f Filters) (xlsx.Sheet, int, error) {
	sheet := xlsx.Sheet{Name: "Orders", Header: ExportHeader, Widths: map[int]float64{0: 16, 1: 18, 2: 24, 12: 24, 13: 32}}
	n, err := s.each(ctx, params, f, func(o Order) error {
		cells := ExportRow(o)
		row := make([]any, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		row[8], _ = o.TotalAmount.Float64()
		row[9], _ = o.AmountPaid.Float64()
		row[10], _ = o.CODAmount.Float64()
		sheet.Rows = append(sheet.Rows, row)
		return nil
	})
	return sheet, n, err
}

// ExportXLSX writes the same rows as ExportCSV to a workbook.
func (s *Service) ExportXLSX(ctx context.Context, params shared.ListParams, f Filters, out io.Writer) (int, error) {
	sheet, n, err := s.Sheet(ctx, params, f)
	if err != nil {
		return n, err
	}
	return n, xlsx.Write(out, sheet)
}

type importGroup struct {
	line  int
	input CreateInput
	phone string
}

// Import creates one order per distinct orderId. Rows sharing an id become
// the lines of that order; header fields come from its first row.
func (s *Service) Import(ctx context.Context, actorID, companyID int64, in io.Reader) (csvio.Result, error) {
	result := csvio.Result{Errors: []*csvio.RowError{}}
	parser, err := csvio.NewParser(in)
	if err != nil {
		return result, errors.Join(httpx.ErrValidation, err)
	}
	if err := parser.Require(ImportHeader...); err != nil {
		return result, errors.Join(httpx.ErrValidation, err)
	}

	var order []string
	groups := map[string]*importGroup{}
	failed := map[string]bool{}
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
		id := row.Get("orderId")
		if id == "" {
			result.Fail(row.Line, "orderId", csvio.CodeRequired, "order id is required")
			result.Skipped++
			continue
		}
		if _, known := groups[id]; !known && !failed[id] {
			order = append(order, id)
		}
		item, col, msg := parseImportItem(row)
		if col != "" {
			result.Fail(row.Line, col, csvio.CodeInvalidValue, msg)
			failed[id] = true
			continue
		}
		g, ok := groups[id]
		if !ok {
			g = &importGroup{line: row.Line, phone: customers.NormalisePhone(row.Get("customerPhone"))}
			g.input = CreateInput{
				ID:            id,
				CompanyID:     companyID,
				PaymentMethod: row.Get("paymentMethod"),
				RecipientName: row.Get("recipientName"),
				SalesChannel:  row.Get("salesChannel"),
				Notes:         row.Get("notes"),
				ShippingAddress: customers.Address{
					Street:      row.Get("street"),
					Subdistrict: row.Get("subdistrict"),
					District:    row.Get("district"),
					Province:    row.Get("province"),
					PostalCode:  row.Get("postalCode"),
				},
			}
			if g.input.ShippingCost, err = parseAmount(row.Get("shippingCost")); err != nil {
				result.Fail(row.Line, "shippingCost", csvio.CodeInvalidValue, "invalid amount")
				failed[id] = true
			}
			if g.input.BillDiscount, err = parseAmount(row.Get("billDiscount")); err != nil {
				result.Fail(row.Line, "billDiscount", csvio.CodeInvalidValue, "invalid amount")
				failed[id] = true
			}
			groups[id] = g
		}
		g.input.Items = append(g.input.Items, item)
		if tn := row.Get("trackingNumber"); tn != "" {
			g.input.TrackingNumbers = append(g.input.TrackingNumbers, tn)
		}
	}

	for _, id := range order {
		g := groups[id]
		if failed[id] || g == nil {
			result.Skipped++
			continue
		}
		customerID, err := s.repo.CustomerIDByPhone(ctx, companyID, g.phone)
		if errors.Is(err, httpx.ErrNotFound) || g.phone == "" {
			result.Fail(g.line, "customerPhone", csvio.CodeNotFound, "no customer with phone "+strconv.Quote(g.phone))
			result.Skipped++
			continue
		}
		if err != nil {
			return result, err
		}
		g.input.CustomerID = customerID
		if _, err := s.Create(ctx, actorID, "", g.input); err != nil {
			if httpx.IsInternal(err) {
				return result, err
			}
			result.Fail(g.line, importColumn(err), csvio.CodeInvalidValue, err.Error())
			result.Skipped++
			continue
		}
		result.Created++
	}
	return result, nil
}

func parseImportItem(row csvio.Row) (ItemInput, string, string) {
	qty, err := strconv.Atoi(row.Get("quantity"))
	if err != nil || qty <= 0 {
		return ItemInput{}, "quantity", "quantity must be a positive integer"
	}
	price, err := parseAmount(row.Get("pricePerUnit"))
	if err != nil {
		return ItemInput{}, "pricePerUnit", "invalid amount"
	}
	discount, err := parseAmount(row.Get("discount"))
	if err != nil {
		return ItemInput{}, "discount", "invalid amount"
	}
	freebie := false
	if v := row.Get("isFreebie"); v != "" {
		if freebie, err = strconv.ParseBool(v); err != nil {
			return ItemInput{}, "isFreebie", "expected true or false"
		}
	}
	box := 0
	if v := row.Get("boxNumber"); v != "" {
		if box, err = strconv.Atoi(v); err != nil || box < 0 {
			return ItemInput{}, "boxNumber", "invalid box number"
		}
	}
	return ItemInput{
		ProductName:  row.Get("productName"),
		Quantity:     qty,
		PricePerUnit: price,
		Discount:     discount,
		IsFreebie:    freebie,
		BoxNumber:    box,
	}, "", ""
}

// parseAmount accepts blank as zero and tolerates thousands separators.
func parseAmount(v string) (decimal.Decimal, error) {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(v)
}

func importColumn(err error) string {
	var fe *httpx.FieldErrors
	if errors.As(err, &fe) {
		for k := range fe.Fields {
			return k
		}
	}
	return ""
}
