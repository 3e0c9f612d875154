package fee

import (
	htmltmpl "html/template"
	"net/mail"
	texttmpl "text/template"

	"github.com/trezcool/academia/core"
)

var (
	receiptText = texttmpl.Must(texttmpl.New("receipt.txt").Parse(`Payment received

Invoice:   {{.Invoice.ID}}
Student:   {{.Invoice.StudentID}}
Amount:    {{.Payment.AmountPaid.StringFixed 2}}
Method:    {{.Payment.PaymentMethod}}
Date:      {{.Payment.PaymentDate.Format "2006-01-02"}}

Total payable: {{.Invoice.TotalPayable.StringFixed 2}}
Total paid:    {{.Invoice.TotalPaid.StringFixed 2}}
Balance:       {{.Invoice.Balance.StringFixed 2}}
Status:        {{.Invoice.Status}}
`))

	receiptHTML = htmltmpl.Must(htmltmpl.New("receipt.gohtml").Parse(`<h2>Payment received</h2>
<table>
  <tr><td>Invoice</td><td>{{.Invoice.ID}}</td></tr>
  <tr><td>Student</td><td>{{.Invoice.StudentID}}</td></tr>
  <tr><td>Amount</td><td>{{.Payment.AmountPaid.StringFixed 2}}</td></tr>
  <tr><td>Method</td><td>{{.Payment.PaymentMethod}}</td></tr>
  <tr><td>Date</td><td>{{.Payment.PaymentDate.Format "2006-01-02"}}</td></tr>
  <tr><td>Total payable</td><td>{{.Invoice.TotalPayable.StringFixed 2}}</td></tr>
  <tr><td>Total paid</td><td>{{.Invoice.TotalPaid.StringFixed 2}}</td></tr>
  <tr><td>Balance</td><td>{{.Invoice.Balance.StringFixed 2}}</td></tr>
  <tr><td>Status</td><td>{{.Invoice.Status}}</td></tr>
</table>
`))
)

type receiptData struct {
	Invoice Invoice
	Payment Payment
}

func newReceiptMessage(inv Invoice, pmt Payment) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Address: pmt.PayerEmail}},
		Subject:      "Payment receipt",
		Category:     "receipt",
		Tags:         map[string]string{"invoice_id": inv.ID, "payment_id": pmt.ID},
		TextTemplate: receiptText,
		HTMLTemplate: receiptHTML,
		TemplateData: receiptData{Invoice: inv, Payment: pmt},
	}
}
