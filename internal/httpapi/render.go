package httpapi

import (
	"bytes"
	"encoding/csv"
	"html/template"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"fptmart/backend/internal/domain"
)

var vndPrinter = message.NewPrinter(language.Vietnamese)

// formatVND renders whole đồng with Vietnamese digit grouping, e.g. "12.000 ₫".
func formatVND(amount int64) string {
	return vndPrinter.Sprintf("%d ₫", amount)
}

var renderFuncs = template.FuncMap{"vnd": formatVND}

var invoiceHTMLTmpl = template.Must(template.New("invoice").Funcs(renderFuncs).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Hóa đơn {{.Sale.InvoiceNumber}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; max-width: 480px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border-bottom: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
    .void { color: #b00; font-weight: bold; }
  </style>
</head>
<body>
  <h2>FPTMart</h2>
  <p>Hóa đơn: {{.Sale.InvoiceNumber}}</p>
  <p>Ngày: {{.Date}}</p>
  <p>Khách hàng: {{if .Sale.CustomerName}}{{.Sale.CustomerName}}{{else}}Khách lẻ{{end}}</p>
  {{if eq .Sale.Status "Cancelled"}}<p class="void">ĐÃ HỦY{{if .Sale.CancelReason}}: {{.Sale.CancelReason}}{{end}}</p>{{end}}
  <table>
    <thead><tr><th>Sản phẩm</th><th>SL</th><th>Đơn giá</th><th>Thành tiền</th></tr></thead>
    <tbody>{{range .Sale.Items}}<tr><td>{{.ProductName}}</td><td class="num">{{.Quantity}}</td><td class="num">{{vnd .UnitPrice}}</td><td class="num">{{vnd .TotalPrice}}</td></tr>{{end}}</tbody>
  </table>
  <p>Tạm tính: {{vnd .Sale.SubTotal}}</p>
  {{if gt .Sale.DiscountAmount 0}}<p>Giảm giá: {{vnd .Sale.DiscountAmount}}</p>{{end}}
  <p><strong>Tổng cộng: {{vnd .Sale.TotalAmount}}</strong></p>
  <p>Thanh toán ({{.Sale.PaymentMethod}}): {{vnd .Sale.PaidAmount}}</p>
  <p>Tiền thừa: {{vnd .Sale.ChangeAmount}}</p>
</body>
</html>
`))

func renderInvoiceHTML(sale domain.Sale, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	err := invoiceHTMLTmpl.Execute(&buf, map[string]any{
		"Sale": sale,
		"Date": sale.SaleDate.In(loc).Format("02/01/2006 15:04"),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// salesReportToCSV writes three sections separated by blank lines, each
// opened by its own header row: summary metrics, daily revenue and the top
// products.
func salesReportToCSV(report domain.SalesReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	records := [][]string{
		{"metric", "value"},
		{"from", report.From},
		{"to", report.To},
		{"total_revenue", strconv.FormatInt(report.TotalRevenue, 10)},
		{"total_orders", strconv.Itoa(report.TotalOrders)},
		{"average_order_value", strconv.FormatInt(report.AverageOrderValue, 10)},
		{"total_products_sold", strconv.Itoa(report.TotalProductsSold)},
		{},
		{"date", "orders", "revenue"},
	}
	for _, day := range report.Daily {
		records = append(records, []string{day.Date, strconv.Itoa(day.Orders), strconv.FormatInt(day.Revenue, 10)})
	}
	records = append(records, []string{}, []string{"rank", "product_code", "product_name", "quantity_sold", "total_revenue"})
	for _, top := range report.TopProducts {
		records = append(records, []string{
			strconv.Itoa(top.Rank),
			top.ProductCode,
			top.ProductName,
			strconv.Itoa(top.QuantitySold),
			strconv.FormatInt(top.TotalRevenue, 10),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var salesReportHTMLTmpl = template.Must(template.New("sales-report").Funcs(renderFuncs).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Báo cáo doanh thu {{.From}} - {{.To}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Báo cáo doanh thu {{.From}} - {{.To}}</h2>
  <p>Doanh thu: {{vnd .TotalRevenue}} | Đơn hàng: {{.TotalOrders}} | Giá trị TB: {{vnd .AverageOrderValue}} | Sản phẩm bán: {{.TotalProductsSold}}</p>

  <h3>Sản phẩm bán chạy</h3>
  <table>
    <thead><tr><th>#</th><th>Mã</th><th>Sản phẩm</th><th>SL</th><th>Doanh thu</th></tr></thead>
    <tbody>{{range .TopProducts}}<tr><td>{{.Rank}}</td><td>{{.ProductCode}}</td><td>{{.ProductName}}</td><td class="num">{{.QuantitySold}}</td><td class="num">{{vnd .TotalRevenue}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Theo ngày</h3>
  <table>
    <thead><tr><th>Ngày</th><th>Đơn hàng</th><th>Doanh thu</th></tr></thead>
    <tbody>{{range .Daily}}<tr><td>{{.Date}}</td><td class="num">{{.Orders}}</td><td class="num">{{vnd .Revenue}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func salesReportToPrintableHTML(report domain.SalesReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := salesReportHTMLTmpl.Execute(&buf, report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
