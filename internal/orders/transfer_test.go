package orders

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mini-erp/telecrm/internal/csvio"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

func TestExportCSVMatchesListedRows(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	for _, id := range []string{"X-1", "X-2"} {
		in := sampleInput()
		in.ID = id
		_, err := svc.Create(ctx, 7, "", in)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	n, err := svc.ExportCSV(ctx, shared.ListParams{Page: 1, PageSize: 1}, Filters{}, &buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.True(t, strings.HasPrefix(buf.String(), "\ufeff"))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, ExportHeader, records[0])
	require.Equal(t, "X-1", records[1][0])
	require.Equal(t, "Malee Sukjai", records[1][2])
	require.Equal(t, "1500.00", records[1][8])
	require.Equal(t, "TH01", records[2][11])
}

func TestExportXLSX(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	in := sampleInput()
	in.ID = "X-1"
	_, err := svc.Create(ctx, 7, "", in)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := svc.ExportXLSX(ctx, shared.ListParams{}, Filters{}, &buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "X-1", rows[1][0])
	require.Equal(t, "1500", rows[1][8])
}

func TestImportGroupsRowsByOrderID(t *testing.T) {
	svc, repo, _ := newTestService()
	body := strings.Join([]string{
		"Order ID,Customer Phone,Payment Method,Product Name,Quantity,Price Per Unit,Discount,Is Freebie,Shipping Cost,Tracking Number",
		"IMP-1,+66811111111,COD,Fertiliser,2,750,,,50,TH9",
		"IMP-1,,,Sample,1,0,,true,,",
		"IMP-2,0899999999,COD,Fertiliser,1,750,,,,",
		"IMP-3,0811111111,COD,Fertiliser,zero,750,,,,",
		",0811111111,COD,Fertiliser,1,750,,,,",
		"IMP-4,0811111111,Cash,Fertiliser,1,750,,,,",
	}, "\n")

	result, err := svc.Import(context.Background(), 7, 1, strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, 1, result.Created)
	require.Equal(t, 4, result.Skipped)

	codes := map[string]string{}
	for _, e := range result.Errors {
		codes[e.Column] = e.Code
	}
	require.Equal(t, csvio.CodeNotFound, codes["customerPhone"])
	require.Equal(t, csvio.CodeInvalidValue, codes["quantity"])
	require.Equal(t, csvio.CodeRequired, codes["orderId"])
	require.Equal(t, csvio.CodeInvalidValue, codes["paymentMethod"])

	o := repo.orders["IMP-1"]
	require.Len(t, o.Items, 2)
	require.True(t, o.Items[1].IsFreebie)
	require.Equal(t, "1550", o.TotalAmount.String())
	require.Equal(t, []string{"TH9"}, o.TrackingNumbers)
}

func TestImportRequiresColumns(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Import(context.Background(), 7, 1, strings.NewReader("orderId,quantity\nA,1\n"))
	require.ErrorIs(t, err, httpx.ErrValidation)
}
