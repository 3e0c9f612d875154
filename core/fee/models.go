package fee

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/academia/core"
)

// FeeItem is one fee type and its amount, e.g. {"Tuition", 45000}.
type FeeItem struct {
	FeeType string          `json:"fee_type"`
	Amount  decimal.Decimal `json:"amount"`
}

func SumFees(items []FeeItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Amount)
	}
	return sum
}

// FeeStructure is reference data: the fees of a class level in a branch for a session.
type FeeStructure struct {
	ID           string    `json:"id"`
	BranchID     string    `json:"branch_id"`
	ClassLevelID string    `json:"class_level_id"`
	SessionID    string    `json:"session_id"`
	Fees         []FeeItem `json:"fees"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (fs FeeStructure) Total() decimal.Decimal { return SumFees(fs.Fees) }

// Student is reference data resolved by the StudentDirectory.
type Student struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	BranchID     string `json:"branch_id"`
	ClassLevelID string `json:"class_level_id"`
}

type InvoiceStatus string

const (
	Unpaid        InvoiceStatus = "Unpaid"
	PartiallyPaid InvoiceStatus = "PartiallyPaid"
	Paid          InvoiceStatus = "Paid"
)

func (s InvoiceStatus) IsValid() bool { return s == Unpaid || s == PartiallyPaid || s == Paid }

type AdjustmentKind string

const (
	Discount    AdjustmentKind = "discount"
	Scholarship AdjustmentKind = "scholarship"
	LateFee     AdjustmentKind = "lateFee"
)

func (k AdjustmentKind) IsValid() bool { return k == Discount || k == Scholarship || k == LateFee }

// Adjustments are the mutable parts of an invoice.
type Adjustments struct {
	Discount    decimal.Decimal `json:"discount"`
	Scholarship decimal.Decimal `json:"scholarship"`
	LateFee     decimal.Decimal `json:"late_fee"`
}

// Invoice is a student's fee obligation for a session.
// A negative Balance is a credit in the student's favour.
type Invoice struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"student_id"`
	BranchID       string    `json:"branch_id"`
	SessionID      string    `json:"session_id"`
	FeeStructureID string    `json:"fee_structure_id"`
	FeeSnapshot    []FeeItem `json:"fee_snapshot"` // copied at generation time
	Adjustments
	TotalPayable decimal.Decimal `json:"total_payable"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Balance      decimal.Decimal `json:"balance"`
	Status       InvoiceStatus   `json:"status"`
	DueDate      time.Time       `json:"due_date"`
	CreatedAt    time.Time       `json:"created_at"` // UTC
	UpdatedAt    time.Time       `json:"updated_at"` // UTC
}

// Recompute refreshes the derived fields from the snapshot, adjustments & persisted payments.
func (inv *Invoice) Recompute(payments []Payment) {
	t := Totals(inv.FeeSnapshot, inv.Adjustments, payments)
	inv.TotalPayable = t.TotalPayable
	inv.TotalPaid = t.TotalPaid
	inv.Balance = t.Balance
	inv.Status = t.Status
}

// Payment is an append-only payment event against an invoice.
type Payment struct {
	ID            string          `json:"id"`
	InvoiceID     string          `json:"invoice_id"`
	StudentID     string          `json:"student_id"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaymentMethod string          `json:"payment_method"`
	PaymentDate   time.Time       `json:"payment_date"`
	PayerDetails  string          `json:"payer_details"`
	PayerEmail    string          `json:"payer_email,omitempty"`
	ReceivedBy    string          `json:"received_by"`
	CreatedAt     time.Time       `json:"created_at"` // UTC
}

// NewInvoice contains information needed to generate an Invoice.
type NewInvoice struct {
	StudentID      string    `json:"student_id" validate:"required,notblank"`
	FeeStructureID string    `json:"fee_structure_id" validate:"required,notblank"`
	SessionID      string    `json:"session_id" validate:"required,notblank"`
	DueDate        time.Time `json:"due_date" validate:"required"`
}

func (ni *NewInvoice) Validate(validate *validator.Validate) error {
	ni.StudentID = core.CleanString(ni.StudentID)
	ni.FeeStructureID = core.CleanString(ni.FeeStructureID)
	ni.SessionID = core.CleanString(ni.SessionID)
	return validate.Struct(ni)
}

type Outcome string

const (
	Generated Outcome = "generated"
	Skipped   Outcome = "skipped" // an invoice already existed for the student & session
)

// BulkGenerate sweeps every fee structure of a branch & session.
type BulkGenerate struct {
	BranchID  string    `json:"branch_id" validate:"required,notblank"`
	SessionID string    `json:"session_id" validate:"required,notblank"`
	DueDate   time.Time `json:"due_date" validate:"required"`
}

func (bg *BulkGenerate) Validate(validate *validator.Validate) error {
	bg.BranchID = core.CleanString(bg.BranchID)
	bg.SessionID = core.CleanString(bg.SessionID)
	return validate.Struct(bg)
}

type BulkReport struct {
	Generated int      `json:"generated"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// Adjustment replaces the current value of one adjustment kind.
type Adjustment struct {
	Kind   AdjustmentKind  `json:"kind" validate:"required,adjustment_kind"`
	Amount decimal.Decimal `json:"amount"`
}

// NewPayment contains information needed to record a Payment.
type NewPayment struct {
	InvoiceID     string          `json:"-"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaymentMethod string          `json:"payment_method" validate:"required,notblank,max=50"`
	PaymentDate   time.Time       `json:"payment_date"` // defaults to now
	PayerDetails  string          `json:"payer_details" validate:"max=500"`
	PayerEmail    string          `json:"payer_email" validate:"omitempty,email"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.PaymentMethod = core.CleanString(np.PaymentMethod)
	np.PayerDetails = core.CleanString(np.PayerDetails)
	np.PayerEmail = core.CleanString(np.PayerEmail, true /* lower */)
	return validate.Struct(np)
}

type InvoiceFilter struct {
	StudentID string        `query:"student_id"`
	BranchID  string        `query:"branch_id"`
	SessionID string        `query:"session_id"`
	Status    InvoiceStatus `query:"status" validate:"omitempty,invoice_status"`
}

var (
	adjustmentKindTag  = "adjustment_kind"
	adjustmentKindText = "kind must be one of discount, scholarship or lateFee"

	invoiceStatusTag  = "invoice_status"
	invoiceStatusText = "status must be one of Unpaid, PartiallyPaid or Paid"
)

// RegisterValidators registers the fee validation tags.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(adjustmentKindTag, func(fl validator.FieldLevel) bool {
		return AdjustmentKind(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(validate, translator, adjustmentKindTag, adjustmentKindText)

	_ = validate.RegisterValidation(invoiceStatusTag, func(fl validator.FieldLevel) bool {
		return InvoiceStatus(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(validate, translator, invoiceStatusTag, invoiceStatusText)
}
