package orders

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/mini-erp/telecrm/internal/csvio"
	"github.com/mini-erp/telecrm/report"
)

// Renderer turns HTML into PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, html string, paper report.Paper) ([]byte, error)
}

var labelTemplate = template.Must(template.New("label").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`<!doctype html>
<html lang="th"><head><meta charset="utf-8"><title>{{.Order.ID}}</title>
<style>
body{font-family:"Sarabun","Noto Sans Thai",sans-serif;font-size:12px;margin:0}
.box{border:1px solid #000;padding:6px;margin-bottom:6px}
h1{font-size:16px;margin:0 0 4px}
.cod{font-size:18px;font-weight:bold;text-align:center}
table{width:100%;border-collapse:collapse}
td{padding:1px 2px;vertical-align:top}
</style></head>
<body>
<div class="box">
  <h1>ผู้รับ {{.Order.RecipientName}}</h1>
  <div>โทร {{.Order.CustomerPhone}}</div>
  <div>{{.Address}}</div>
</div>
{{if .COD}}<div class="box cod">เก็บเงินปลายทาง {{.COD}} บาท</div>{{end}}
<div class="box">
  <div>คำสั่งซื้อ {{.Order.ID}} · {{.Order.OrderDate.Format "02/01/2006"}}</div>
  {{if .Order.TrackingNumbers}}<div>Tracking {{join .Order.TrackingNumbers ", "}}</div>{{end}}
  <table>{{range .Order.Items}}<tr><td>{{.ProductName}}{{if .IsFreebie}} (แถม){{end}}</td><td>x{{.Quantity}}</td><td>กล่อง {{.BoxNumber}}</td></tr>{{end}}</table>
</div>
</body></html>`))

type labelData struct {
	Order   Order
	Address string
	COD     string
}

// LabelHTML renders the shipping label markup for o.
func LabelHTML(o Order) (string, error) {
	a := o.ShippingAddress
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.Subdistrict, a.District, a.Province, a.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	data := labelData{Order: o, Address: strings.Join(parts, " ")}
	if o.PaymentMethod == MethodCOD && o.CODAmount.IsPositive() {
		data.COD = csvio.FormatAmount(o.CODAmount)
	}
	var buf bytes.Buffer
	if err := labelTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render label: %w", err)
	}
	return buf.String(), nil
}

// Label renders the shipping label PDF of an order.
func (s *Service) Label(ctx context.Context, renderer Renderer, id string) ([]byte, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	html, err := LabelHTML(o)
	if err != nil {
		return nil, err
	}
	return renderer.RenderHTML(ctx, html, report.Label)
}
