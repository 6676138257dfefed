// HTML table rendering for the admin report page.
//
// The table is a bounded page of formatted rows. Unclaimed rows carry a
// bulk-selection checkbox and a data attribute with the gift transaction id
// so the admin UI can collect ids for the bulk resend endpoint. All cell
// values pass through html/template's contextual escaping.
package report

import (
	"html/template"
	"io"
)

// tableTemplate renders one report page. Status cells carry a class derived
// from the display status so the stylesheet can color them.
const tableTemplate = `<table class="gift-report-table">
<thead>
<tr>
<th class="gift-select-col"><input type="checkbox" class="gift-select-all"></th>
<th>Gift ID</th>
<th>Purchase Date</th>
<th>Gifter Email</th>
<th>Product</th>
<th>Coupon Code</th>
<th>Status</th>
<th>Recipient Email</th>
<th>Redemption Date</th>
<th>Amount</th>
</tr>
</thead>
<tbody>
{{- range .Rows}}
<tr{{if .Unclaimed}} class="gift-unclaimed-row"{{end}}>
<td class="gift-select-col">{{if .Unclaimed}}<input type="checkbox" class="gift-select" data-gift-id="{{.GiftID}}">{{end}}</td>
<td>{{.GiftID}}</td>
<td>{{.PurchaseDate}}</td>
<td>{{.GifterEmail}}</td>
<td>{{.ProductName}}</td>
<td>{{.CouponCode}}</td>
<td class="{{statusClass .DisplayStatus}}">{{.DisplayStatus}}</td>
<td>{{orNA .RecipientEmail}}</td>
<td>{{orNA .RedemptionDate}}</td>
<td>{{.Total}}</td>
</tr>
{{- end}}
</tbody>
</table>
`

var tableTmpl = template.Must(template.New("report-table").Funcs(template.FuncMap{
	"statusClass": statusClass,
	"orNA":        orNA,
}).Parse(tableTemplate))

// statusClass maps a display status to its stylesheet class.
func statusClass(display string) string {
	switch display {
	case DisplayClaimed:
		return "gift-claimed"
	case DisplayUnclaimed:
		return "gift-unclaimed"
	default:
		return "gift-refunded"
	}
}

// orNA substitutes "N/A" for empty presentation values (no redemption yet).
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// RenderTable writes the HTML table for one page of formatted rows.
func RenderTable(w io.Writer, rows []Row) error {
	return tableTmpl.Execute(w, struct{ Rows []Row }{Rows: rows})
}
