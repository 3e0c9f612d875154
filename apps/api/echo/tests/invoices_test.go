package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/fee"
	"github.com/trezcool/academia/tests"
)

const dueDate = "2024-10-31T00:00:00Z"

func assertAmount(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s = %s; want %s", field, got, want)
}

func TestInvoiceAPI_Generate(t *testing.T) {
	ts := setup(t)
	fs := testutil.CreateFeeStructure(t, ts.env, "main", "jss1", "sess-1", map[string]int64{
		"Tuition":          45000,
		"Development levy": 5000,
	})
	token := getToken(t, ts.env.Conf, admin)
	body := map[string]string{
		"student_id":       "stu-1",
		"fee_structure_id": fs.ID,
		"session_id":       fs.SessionID,
		"due_date":         dueDate,
	}

	rec := ts.do(t, http.MethodPost, "/v1/invoices", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inv fee.Invoice
	decode(t, rec, &inv)
	assert.Equal(t, fee.Unpaid, inv.Status)
	assertAmount(t, "50000", inv.TotalPayable, "TotalPayable")
	assertAmount(t, "50000", inv.Balance, "Balance")

	rec = ts.do(t, http.MethodPost, "/v1/invoices", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var again fee.Invoice
	decode(t, rec, &again)
	assert.Equal(t, inv.ID, again.ID)

	ts.run(t, []httpTest{
		{
			name:     "unknown structure",
			method:   http.MethodPost,
			path:     "/v1/invoices",
			body:     map[string]string{"student_id": "stu-2", "fee_structure_id": "nope", "session_id": "sess-1", "due_date": dueDate},
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: httpErr{Error: "fee structure not found"},
		},
		{
			name:     "session mismatch",
			method:   http.MethodPost,
			path:     "/v1/invoices",
			body:     map[string]string{"student_id": "stu-2", "fee_structure_id": fs.ID, "session_id": "sess-2", "due_date": dueDate},
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: httpErr{Error: fee.ErrSessionMismatch.Error()},
		},
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/v1/invoices",
			body:     map[string]string{"fee_structure_id": fs.ID},
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{
				"student_id": "this field is required",
				"session_id": "this field is required",
				"due_date":   "this field is required",
			},
		},
		{
			name:     "retrieve unknown",
			method:   http.MethodGet,
			path:     "/v1/invoices/nope",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: httpErr{Error: "invoice not found"},
		},
	})
}

func TestInvoiceAPI_GenerateAll(t *testing.T) {
	ts := setup(t)
	ctx := context.Background()
	testutil.CreateFeeStructure(t, ts.env, "main", "jss1", "sess-1", map[string]int64{"Tuition": 45000})
	testutil.CreateFeeStructure(t, ts.env, "main", "jss2", "sess-1", map[string]int64{"Tuition": 60000})
	ts.env.Students.AddStudents(ctx,
		fee.Student{ID: "stu-1", BranchID: "main", ClassLevelID: "jss1"},
		fee.Student{ID: "stu-2", BranchID: "main", ClassLevelID: "jss2"},
		fee.Student{ID: "stu-3", BranchID: "annex", ClassLevelID: "jss1"},
	)
	token := getToken(t, ts.env.Conf, admin)
	body := map[string]string{"branch_id": "main", "session_id": "sess-1", "due_date": dueDate}

	rec := ts.do(t, http.MethodPost, "/v1/invoices/generate", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report fee.BulkReport
	decode(t, rec, &report)
	assert.Equal(t, fee.BulkReport{Generated: 2}, report)

	rec = ts.do(t, http.MethodPost, "/v1/invoices/generate", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &report)
	assert.Equal(t, fee.BulkReport{Skipped: 2}, report)

	var invoices []fee.Invoice
	rec = ts.do(t, http.MethodGet, "/v1/invoices?branch_id=main&session_id=sess-1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &invoices)
	assert.Len(t, invoices, 2)

	rec = ts.do(t, http.MethodGet, "/v1/invoices?student_id=stu-2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &invoices)
	if assert.Len(t, invoices, 1) {
		assertAmount(t, "60000", invoices[0].TotalPayable, "TotalPayable")
	}

	ts.run(t, []httpTest{{
		name:     "invalid status filter",
		method:   http.MethodGet,
		path:     "/v1/invoices?status=Overdue",
		token:    token,
		wantCode: http.StatusBadRequest,
	}})
}

func TestInvoiceAPI_AdjustAndPay(t *testing.T) {
	ts := setup(t)
	fs := testutil.CreateFeeStructure(t, ts.env, "main", "jss1", "sess-1", map[string]int64{
		"Tuition":          45000,
		"Development levy": 5000,
	})
	inv := testutil.GenerateInvoice(t, ts.env, "stu-1", fs)
	token := getToken(t, ts.env.Conf, admin)
	base := "/v1/invoices/" + inv.ID

	rec := ts.do(t, http.MethodPost, base+"/adjustments", token, map[string]string{"kind": "discount", "amount": "4000"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &inv)
	assertAmount(t, "46000", inv.TotalPayable, "TotalPayable")
	assertAmount(t, "4000", inv.Discount, "Discount")

	rec = ts.do(t, http.MethodPost, base+"/payments", token, map[string]string{
		"amount_paid":    "20000",
		"payment_method": "bank transfer",
		"payer_email":    "parent@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var paid PaymentResponse
	decode(t, rec, &paid)
	assert.Equal(t, fee.PartiallyPaid, paid.Invoice.Status)
	assertAmount(t, "26000", paid.Invoice.Balance, "Balance")
	assert.Equal(t, inv.ID, paid.Payment.InvoiceID)
	assert.Equal(t, admin.ID, paid.Payment.ReceivedBy)
	assert.Len(t, ts.env.Mailer.Sent(), 1)

	rec = ts.do(t, http.MethodPost, base+"/payments", token, map[string]string{
		"amount_paid":    "26000",
		"payment_method": "cash",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &paid)
	assert.Equal(t, fee.Paid, paid.Invoice.Status)
	assertAmount(t, "0", paid.Invoice.Balance, "Balance")
	assert.Len(t, ts.env.Mailer.Sent(), 1, "no payer email, no receipt")

	var payments []fee.Payment
	rec = ts.do(t, http.MethodGet, base+"/payments", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &payments)
	assert.Len(t, payments, 2)

	rec = ts.do(t, http.MethodGet, base, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &inv)
	assert.Equal(t, fee.Paid, inv.Status)
	assertAmount(t, "46000", inv.TotalPaid, "TotalPaid")

	ts.run(t, []httpTest{
		{
			name:     "zero payment",
			method:   http.MethodPost,
			path:     base + "/payments",
			body:     map[string]string{"amount_paid": "0", "payment_method": "cash"},
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: httpErr{Error: fee.ErrNonPositivePay.Error()},
		},
		{
			name:     "payment without method",
			method:   http.MethodPost,
			path:     base + "/payments",
			body:     map[string]string{"amount_paid": "10"},
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"payment_method": "this field is required"},
		},
		{
			name:     "payment on unknown invoice",
			method:   http.MethodPost,
			path:     "/v1/invoices/nope/payments",
			body:     map[string]string{"amount_paid": "10", "payment_method": "cash"},
			token:    token,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "unknown adjustment kind",
			method:   http.MethodPost,
			path:     base + "/adjustments",
			body:     map[string]string{"kind": "bribe", "amount": "10"},
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"kind": "kind must be one of discount, scholarship or lateFee"},
		},
		{
			name:     "negative payable",
			method:   http.MethodPost,
			path:     base + "/adjustments",
			body:     map[string]string{"kind": "scholarship", "amount": "60000"},
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: httpErr{Error: fee.ErrNegativePayable.Error()},
		},
	})
}
