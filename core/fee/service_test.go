package fee_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/fee"
	"github.com/trezcool/academia/tests"
)

var dueDate = time.Date(2024, time.October, 31, 0, 0, 0, 0, time.UTC)

func assertAmount(t *testing.T, want int64, got decimal.Decimal, field string) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Errorf("%s = %s; want %d", field, got, want)
	}
}

func seedStructure(t *testing.T, env *testutil.Env) fee.FeeStructure {
	t.Helper()
	return testutil.CreateFeeStructure(t, env, "main", "jss1", "sess-1", map[string]int64{
		"Tuition":          45000,
		"Development levy": 5000,
	})
}

func TestService_GenerateInvoice(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	fs := seedStructure(t, env)

	inv, outcome, err := env.Fees.GenerateInvoice(ctx, fee.NewInvoice{
		StudentID:      "s1",
		FeeStructureID: fs.ID,
		SessionID:      fs.SessionID,
		DueDate:        dueDate,
	})
	require.NoError(t, err)
	assert.Equal(t, fee.Generated, outcome)
	assert.NotEmpty(t, inv.ID)
	assert.Equal(t, "s1", inv.StudentID)
	assert.Equal(t, "main", inv.BranchID)
	assert.Equal(t, fs.ID, inv.FeeStructureID)
	assert.Equal(t, fee.Unpaid, inv.Status)
	assert.Len(t, inv.FeeSnapshot, 2)
	assertAmount(t, 50000, inv.TotalPayable, "TotalPayable")
	assertAmount(t, 0, inv.TotalPaid, "TotalPaid")
	assertAmount(t, 50000, inv.Balance, "Balance")

	// generating again returns the existing invoice
	again, outcome, err := env.Fees.GenerateInvoice(ctx, fee.NewInvoice{
		StudentID:      "s1",
		FeeStructureID: fs.ID,
		DueDate:        dueDate,
	})
	require.NoError(t, err)
	assert.Equal(t, fee.Skipped, outcome)
	assert.Equal(t, inv.ID, again.ID)

	invoices, err := env.Fees.QueryInvoices(ctx, fee.InvoiceFilter{StudentID: "s1"})
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
}

func TestService_GenerateInvoice_Errors(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	fs := seedStructure(t, env)

	tests := []struct {
		name    string
		ni      fee.NewInvoice
		wantErr error
	}{
		{name: "missing student", ni: fee.NewInvoice{FeeStructureID: fs.ID}, wantErr: core.ErrInvalidArgument},
		{name: "unknown structure", ni: fee.NewInvoice{StudentID: "s1", FeeStructureID: "nope"}, wantErr: fee.ErrStructureNotFound},
		{name: "session mismatch", ni: fee.NewInvoice{StudentID: "s1", FeeStructureID: fs.ID, SessionID: "sess-2"}, wantErr: fee.ErrSessionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := env.Fees.GenerateInvoice(ctx, tt.ni); !errors.Is(err, tt.wantErr) {
				t.Errorf("GenerateInvoice() error = %v; want %v", err, tt.wantErr)
			}
		})
	}

	invoices, err := env.Fees.QueryInvoices(ctx, fee.InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestService_GenerateInvoice_SnapshotIsolation(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	fs := seedStructure(t, env)
	inv := testutil.GenerateInvoice(t, env, "s1", fs)

	fs.Fees = append(fs.Fees, fee.FeeItem{FeeType: "Bus", Amount: decimal.NewFromInt(10000)})
	fs.Fees[0].Amount = decimal.NewFromInt(1)
	_, err := env.FeeRepo.UpdateFeeStructure(ctx, fs)
	require.NoError(t, err)

	got, err := env.Fees.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, got.FeeSnapshot, 2)
	assertAmount(t, 50000, got.TotalPayable, "TotalPayable")

	// later adjustments still use the snapshot
	got, err = env.Fees.ApplyAdjustment(ctx, inv.ID, fee.Adjustment{Kind: fee.LateFee, Amount: decimal.NewFromInt(500)})
	require.NoError(t, err)
	assertAmount(t, 50500, got.TotalPayable, "TotalPayable")

	// new invoices use the updated structure
	other := testutil.GenerateInvoice(t, env, "s2", fs)
	assertAmount(t, 55001, other.TotalPayable, "TotalPayable")
}

func TestService_GenerateInvoices(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	jss1 := seedStructure(t, env)
	jss2 := testutil.CreateFeeStructure(t, env, "main", "jss2", "sess-1", map[string]int64{"Tuition": 60000})
	testutil.CreateFeeStructure(t, env, "annex", "jss1", "sess-1", map[string]int64{"Tuition": 30000})

	env.Students.AddStudents(ctx,
		fee.Student{ID: "s1", BranchID: "main", ClassLevelID: "jss1"},
		fee.Student{ID: "s2", BranchID: "main", ClassLevelID: "jss1"},
		fee.Student{ID: "s3", BranchID: "main", ClassLevelID: "jss2"},
		fee.Student{ID: "s4", BranchID: "annex", ClassLevelID: "jss1"},
	)
	testutil.GenerateInvoice(t, env, "s1", jss1)

	report, err := env.Fees.GenerateInvoices(ctx, fee.BulkGenerate{BranchID: "main", SessionID: "sess-1", DueDate: dueDate})
	require.NoError(t, err)
	assert.Equal(t, fee.BulkReport{Generated: 2, Skipped: 1}, report)

	invoices, err := env.Fees.QueryInvoices(ctx, fee.InvoiceFilter{BranchID: "main", SessionID: "sess-1"})
	require.NoError(t, err)
	assert.Len(t, invoices, 3)
	for _, inv := range invoices {
		if inv.StudentID == "s3" {
			assert.Equal(t, jss2.ID, inv.FeeStructureID)
			assertAmount(t, 60000, inv.TotalPayable, "TotalPayable")
		}
	}

	// running it again generates nothing
	report, err = env.Fees.GenerateInvoices(ctx, fee.BulkGenerate{BranchID: "main", SessionID: "sess-1", DueDate: dueDate})
	require.NoError(t, err)
	assert.Equal(t, fee.BulkReport{Skipped: 3}, report)
}

func TestService_AdjustAndPay(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	inv := testutil.GenerateInvoice(t, env, "s1", seedStructure(t, env))

	inv, err := env.Fees.ApplyAdjustment(ctx, inv.ID, fee.Adjustment{Kind: fee.Discount, Amount: decimal.NewFromInt(5000)})
	require.NoError(t, err)
	inv, err = env.Fees.ApplyAdjustment(ctx, inv.ID, fee.Adjustment{Kind: fee.LateFee, Amount: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	assertAmount(t, 46000, inv.TotalPayable, "TotalPayable")
	assert.Equal(t, fee.Unpaid, inv.Status)

	inv, pmt, err := env.Fees.RecordPayment(ctx, fee.NewPayment{
		InvoiceID:     inv.ID,
		AmountPaid:    decimal.NewFromInt(20000),
		PaymentMethod: "cash",
	}, "bursar")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, pmt.InvoiceID)
	assert.Equal(t, "s1", pmt.StudentID)
	assert.Equal(t, "bursar", pmt.ReceivedBy)
	assert.False(t, pmt.PaymentDate.IsZero())
	assertAmount(t, 20000, inv.TotalPaid, "TotalPaid")
	assertAmount(t, 26000, inv.Balance, "Balance")
	assert.Equal(t, fee.PartiallyPaid, inv.Status)

	inv, _, err = env.Fees.RecordPayment(ctx, fee.NewPayment{
		InvoiceID:     inv.ID,
		AmountPaid:    decimal.NewFromInt(26000),
		PaymentMethod: "transfer",
	}, "bursar")
	require.NoError(t, err)
	assertAmount(t, 46000, inv.TotalPaid, "TotalPaid")
	assertAmount(t, 0, inv.Balance, "Balance")
	assert.Equal(t, fee.Paid, inv.Status)

	payments, err := env.Fees.QueryPayments(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assertAmount(t, 20000, payments[0].AmountPaid, "AmountPaid")
	assertAmount(t, 26000, payments[1].AmountPaid, "AmountPaid")

	// adjustments replace the previous value
	inv, err = env.Fees.ApplyAdjustment(ctx, inv.ID, fee.Adjustment{Kind: fee.Discount, Amount: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	assertAmount(t, 50000, inv.TotalPayable, "TotalPayable")
	assertAmount(t, 4000, inv.Balance, "Balance")
	assert.Equal(t, fee.PartiallyPaid, inv.Status)

	// no receipt without a payer email
	assert.Empty(t, env.Mailer.Sent())
}

func TestService_ApplyAdjustment_Errors(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	inv := testutil.GenerateInvoice(t, env, "s1", seedStructure(t, env))

	tests := []struct {
		name    string
		id      string
		adj     fee.Adjustment
		wantErr error
	}{
		{name: "unknown kind", id: inv.ID, adj: fee.Adjustment{Kind: "bonus", Amount: decimal.NewFromInt(1)}, wantErr: fee.ErrInvalidAdjustment},
		{name: "negative amount", id: inv.ID, adj: fee.Adjustment{Kind: fee.Discount, Amount: decimal.NewFromInt(-1)}, wantErr: fee.ErrNegativeAmount},
		{name: "negative payable", id: inv.ID, adj: fee.Adjustment{Kind: fee.Scholarship, Amount: decimal.NewFromInt(50001)}, wantErr: fee.ErrNegativePayable},
		{name: "unknown invoice", id: "nope", adj: fee.Adjustment{Kind: fee.Discount, Amount: decimal.NewFromInt(1)}, wantErr: fee.ErrInvoiceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.Fees.ApplyAdjustment(ctx, tt.id, tt.adj); !errors.Is(err, tt.wantErr) {
				t.Errorf("ApplyAdjustment() error = %v; want %v", err, tt.wantErr)
			}
		})
	}

	// failed adjustments leave the invoice untouched
	got, err := env.Fees.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.Scholarship.IsZero())
	assertAmount(t, 50000, got.TotalPayable, "TotalPayable")
}

func TestService_RecordPayment_Errors(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	inv := testutil.GenerateInvoice(t, env, "s1", seedStructure(t, env))

	tests := []struct {
		name    string
		np      fee.NewPayment
		wantErr error
	}{
		{name: "zero amount", np: fee.NewPayment{InvoiceID: inv.ID, PaymentMethod: "cash"}, wantErr: fee.ErrNonPositivePay},
		{name: "negative amount", np: fee.NewPayment{InvoiceID: inv.ID, AmountPaid: decimal.NewFromInt(-10), PaymentMethod: "cash"}, wantErr: fee.ErrNonPositivePay},
		{name: "unknown invoice", np: fee.NewPayment{InvoiceID: "nope", AmountPaid: decimal.NewFromInt(10), PaymentMethod: "cash"}, wantErr: core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := env.Fees.RecordPayment(ctx, tt.np, "bursar"); !errors.Is(err, tt.wantErr) {
				t.Errorf("RecordPayment() error = %v; want %v", err, tt.wantErr)
			}
		})
	}

	payments, err := env.Fees.QueryPayments(ctx, inv.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	_, err = env.Fees.QueryPayments(ctx, "nope")
	assert.True(t, errors.Is(err, core.ErrNotFound), "QueryPayments() error = %v", err)
}

func TestService_RecordPayment_Overpayment(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	inv := testutil.GenerateInvoice(t, env, "s1", seedStructure(t, env))

	inv, _, err := env.Fees.RecordPayment(ctx, fee.NewPayment{
		InvoiceID:     inv.ID,
		AmountPaid:    decimal.NewFromInt(60000),
		PaymentMethod: "cash",
	}, "bursar")
	require.NoError(t, err)
	assertAmount(t, -10000, inv.Balance, "Balance")
	assert.Equal(t, fee.Paid, inv.Status)
}

func TestService_RecordPayment_Receipt(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	inv := testutil.GenerateInvoice(t, env, "s1", seedStructure(t, env))

	_, pmt, err := env.Fees.RecordPayment(ctx, fee.NewPayment{
		InvoiceID:     inv.ID,
		AmountPaid:    decimal.NewFromInt(20000),
		PaymentMethod: "cash",
		PayerDetails:  "Mr. Parent",
		PayerEmail:    "parent@example.com",
	}, "bursar")
	require.NoError(t, err)
	assert.Equal(t, "parent@example.com", pmt.PayerEmail)

	sent := env.Mailer.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	require.Len(t, msg.To, 1)
	assert.Equal(t, "parent@example.com", msg.To[0].Address)
	assert.Equal(t, "Payment receipt", msg.Subject)
	assert.Equal(t, "receipt", msg.Category)
	assert.Equal(t, map[string]string{"invoice_id": inv.ID, "payment_id": pmt.ID}, msg.Tags)
	assert.True(t, strings.Contains(msg.TextContent, "20000.00"), msg.TextContent)
	assert.True(t, strings.Contains(msg.TextContent, "PartiallyPaid"), msg.TextContent)
	assert.True(t, strings.Contains(msg.HTMLContent, inv.ID), msg.HTMLContent)
}

func TestService_CreateFeeStructure_NegativeAmount(t *testing.T) {
	env := testutil.NewEnv(t)

	_, err := env.Fees.CreateFeeStructure(context.Background(), fee.FeeStructure{
		BranchID:     "main",
		ClassLevelID: "jss1",
		SessionID:    "sess-1",
		Fees:         []fee.FeeItem{{FeeType: "Tuition", Amount: decimal.NewFromInt(-1)}},
	})
	assert.True(t, errors.Is(err, fee.ErrNegativeAmount), "CreateFeeStructure() error = %v", err)
}
