package sqlxrepos

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/fee"
)

const (
	structureColumns = `id, branch_id, class_level_id, session_id, fees, created_at, updated_at`
	invoiceColumns   = `id, student_id, branch_id, session_id, fee_structure_id, fee_snapshot,
		discount, scholarship, late_fee, total_payable, total_paid, balance, status, due_date,
		created_at, updated_at`
	paymentColumns = `id, invoice_id, student_id, amount_paid, payment_method, payment_date,
		payer_details, payer_email, received_by, created_at`
)

type structureRow struct {
	ID           string    `db:"id"`
	BranchID     string    `db:"branch_id"`
	ClassLevelID string    `db:"class_level_id"`
	SessionID    string    `db:"session_id"`
	Fees         feeItems  `db:"fees"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (row structureRow) toStructure() fee.FeeStructure {
	return fee.FeeStructure{
		ID:           row.ID,
		BranchID:     row.BranchID,
		ClassLevelID: row.ClassLevelID,
		SessionID:    row.SessionID,
		Fees:         []fee.FeeItem(row.Fees),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

type invoiceRow struct {
	ID             string          `db:"id"`
	StudentID      string          `db:"student_id"`
	BranchID       string          `db:"branch_id"`
	SessionID      string          `db:"session_id"`
	FeeStructureID string          `db:"fee_structure_id"`
	FeeSnapshot    feeItems        `db:"fee_snapshot"`
	Discount       decimal.Decimal `db:"discount"`
	Scholarship    decimal.Decimal `db:"scholarship"`
	LateFee        decimal.Decimal `db:"late_fee"`
	TotalPayable   decimal.Decimal `db:"total_payable"`
	TotalPaid      decimal.Decimal `db:"total_paid"`
	Balance        decimal.Decimal `db:"balance"`
	Status         string          `db:"status"`
	DueDate        time.Time       `db:"due_date"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func toInvoiceRow(inv fee.Invoice) invoiceRow {
	return invoiceRow{
		ID:             inv.ID,
		StudentID:      inv.StudentID,
		BranchID:       inv.BranchID,
		SessionID:      inv.SessionID,
		FeeStructureID: inv.FeeStructureID,
		FeeSnapshot:    feeItems(inv.FeeSnapshot),
		Discount:       inv.Discount,
		Scholarship:    inv.Scholarship,
		LateFee:        inv.LateFee,
		TotalPayable:   inv.TotalPayable,
		TotalPaid:      inv.TotalPaid,
		Balance:        inv.Balance,
		Status:         string(inv.Status),
		DueDate:        inv.DueDate,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
}

func (row invoiceRow) toInvoice() fee.Invoice {
	return fee.Invoice{
		ID:             row.ID,
		StudentID:      row.StudentID,
		BranchID:       row.BranchID,
		SessionID:      row.SessionID,
		FeeStructureID: row.FeeStructureID,
		FeeSnapshot:    []fee.FeeItem(row.FeeSnapshot),
		Adjustments: fee.Adjustments{
			Discount:    row.Discount,
			Scholarship: row.Scholarship,
			LateFee:     row.LateFee,
		},
		TotalPayable: row.TotalPayable,
		TotalPaid:    row.TotalPaid,
		Balance:      row.Balance,
		Status:       fee.InvoiceStatus(row.Status),
		DueDate:      row.DueDate.UTC(),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

type paymentRow struct {
	ID            string          `db:"id"`
	InvoiceID     string          `db:"invoice_id"`
	StudentID     string          `db:"student_id"`
	AmountPaid    decimal.Decimal `db:"amount_paid"`
	PaymentMethod string          `db:"payment_method"`
	PaymentDate   time.Time       `db:"payment_date"`
	PayerDetails  string          `db:"payer_details"`
	PayerEmail    null.String     `db:"payer_email"`
	ReceivedBy    string          `db:"received_by"`
	CreatedAt     time.Time       `db:"created_at"`
}

func toPaymentRow(pmt fee.Payment) paymentRow {
	row := paymentRow{
		ID:            pmt.ID,
		InvoiceID:     pmt.InvoiceID,
		StudentID:     pmt.StudentID,
		AmountPaid:    pmt.AmountPaid,
		PaymentMethod: pmt.PaymentMethod,
		PaymentDate:   pmt.PaymentDate,
		PayerDetails:  pmt.PayerDetails,
		ReceivedBy:    pmt.ReceivedBy,
		CreatedAt:     pmt.CreatedAt,
	}
	if pmt.PayerEmail != "" {
		row.PayerEmail = null.StringFrom(pmt.PayerEmail)
	}
	return row
}

func (row paymentRow) toPayment() fee.Payment {
	return fee.Payment{
		ID:            row.ID,
		InvoiceID:     row.InvoiceID,
		StudentID:     row.StudentID,
		AmountPaid:    row.AmountPaid,
		PaymentMethod: row.PaymentMethod,
		PaymentDate:   row.PaymentDate.UTC(),
		PayerDetails:  row.PayerDetails,
		PayerEmail:    row.PayerEmail.String,
		ReceivedBy:    row.ReceivedBy,
		CreatedAt:     row.CreatedAt.UTC(),
	}
}

type feeRepository struct {
	db *DB
}

var _ fee.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *DB) fee.Repository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) GetFeeStructureByID(ctx context.Context, id string) (fee.FeeStructure, error) {
	var row structureRow
	if err := repo.db.get(ctx, &row, `SELECT `+structureColumns+` FROM fee_structure WHERE id = ?`, id); err != nil {
		return fee.FeeStructure{}, notFound(err, fee.ErrStructureNotFound)
	}
	return row.toStructure(), nil
}

func (repo *feeRepository) FilterFeeStructures(ctx context.Context, branchID, sessionID string) ([]fee.FeeStructure, error) {
	var w where
	w.eq("branch_id", branchID)
	w.eq("session_id", sessionID)

	var rows []structureRow
	q := `SELECT ` + structureColumns + ` FROM fee_structure` + w.String() +
		orderBy(core.DBOrdering{Field: "id", Ascending: true})
	if err := repo.db.sel(ctx, &rows, q, w.args...); err != nil {
		return nil, err
	}

	structures := make([]fee.FeeStructure, 0, len(rows))
	for _, row := range rows {
		structures = append(structures, row.toStructure())
	}
	return structures, nil
}

func (repo *feeRepository) CreateFeeStructure(ctx context.Context, fs fee.FeeStructure) (fee.FeeStructure, error) {
	_, err := repo.db.namedExec(ctx, `INSERT INTO fee_structure (`+structureColumns+`) VALUES (
		:id, :branch_id, :class_level_id, :session_id, :fees, :created_at, :updated_at)`,
		structureRow{
			ID:           fs.ID,
			BranchID:     fs.BranchID,
			ClassLevelID: fs.ClassLevelID,
			SessionID:    fs.SessionID,
			Fees:         feeItems(fs.Fees),
			CreatedAt:    fs.CreatedAt,
			UpdatedAt:    fs.UpdatedAt,
		})
	if err != nil {
		return fee.FeeStructure{}, err
	}
	return fs, nil
}

func (repo *feeRepository) UpdateFeeStructure(ctx context.Context, fs fee.FeeStructure) (fee.FeeStructure, error) {
	r, err := repo.db.namedExec(ctx, `UPDATE fee_structure SET fees = :fees, updated_at = :updated_at WHERE id = :id`,
		structureRow{ID: fs.ID, Fees: feeItems(fs.Fees), UpdatedAt: fs.UpdatedAt})
	if err != nil {
		return fee.FeeStructure{}, err
	}
	if err = checkAffected(r, fee.ErrStructureNotFound); err != nil {
		return fee.FeeStructure{}, err
	}
	return fs, nil
}

func (repo *feeRepository) GetInvoiceByID(ctx context.Context, id string) (fee.Invoice, error) {
	var row invoiceRow
	q := repo.db.forUpdate(ctx, `SELECT `+invoiceColumns+` FROM invoice WHERE id = ?`)
	if err := repo.db.get(ctx, &row, q, id); err != nil {
		return fee.Invoice{}, notFound(err, fee.ErrInvoiceNotFound)
	}
	return row.toInvoice(), nil
}

func (repo *feeRepository) GetInvoiceByStudentSession(ctx context.Context, studentID, sessionID string) (fee.Invoice, error) {
	var row invoiceRow
	q := `SELECT ` + invoiceColumns + ` FROM invoice WHERE student_id = ? AND session_id = ?`
	if err := repo.db.get(ctx, &row, q, studentID, sessionID); err != nil {
		return fee.Invoice{}, notFound(err, fee.ErrInvoiceNotFound)
	}
	return row.toInvoice(), nil
}

func (repo *feeRepository) CreateInvoice(ctx context.Context, inv fee.Invoice) (fee.Invoice, error) {
	_, err := repo.db.namedExec(ctx, `INSERT INTO invoice (`+invoiceColumns+`) VALUES (
		:id, :student_id, :branch_id, :session_id, :fee_structure_id, :fee_snapshot,
		:discount, :scholarship, :late_fee, :total_payable, :total_paid, :balance, :status, :due_date,
		:created_at, :updated_at)`, toInvoiceRow(inv))
	if isUniqueViolation(err) {
		return fee.Invoice{}, fee.ErrInvoiceExists
	}
	if err != nil {
		return fee.Invoice{}, err
	}
	return inv, nil
}

func (repo *feeRepository) UpdateInvoice(ctx context.Context, inv fee.Invoice) (fee.Invoice, error) {
	r, err := repo.db.namedExec(ctx, `UPDATE invoice SET
		discount = :discount,
		scholarship = :scholarship,
		late_fee = :late_fee,
		total_payable = :total_payable,
		total_paid = :total_paid,
		balance = :balance,
		status = :status,
		due_date = :due_date,
		updated_at = :updated_at
		WHERE id = :id`, toInvoiceRow(inv))
	if err != nil {
		return fee.Invoice{}, err
	}
	if err = checkAffected(r, fee.ErrInvoiceNotFound); err != nil {
		return fee.Invoice{}, err
	}
	return inv, nil
}

func (repo *feeRepository) FilterInvoices(ctx context.Context, filter fee.InvoiceFilter) ([]fee.Invoice, error) {
	var w where
	w.eq("student_id", filter.StudentID)
	w.eq("branch_id", filter.BranchID)
	w.eq("session_id", filter.SessionID)
	w.eq("status", string(filter.Status))

	var rows []invoiceRow
	q := `SELECT ` + invoiceColumns + ` FROM invoice` + w.String() +
		orderBy(core.DBOrdering{Field: "student_id", Ascending: true}, core.DBOrdering{Field: "session_id", Ascending: true})
	if err := repo.db.sel(ctx, &rows, q, w.args...); err != nil {
		return nil, err
	}

	invoices := make([]fee.Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, row.toInvoice())
	}
	return invoices, nil
}

func (repo *feeRepository) CreatePayment(ctx context.Context, pmt fee.Payment) (fee.Payment, error) {
	_, err := repo.db.namedExec(ctx, `INSERT INTO payment (`+paymentColumns+`) VALUES (
		:id, :invoice_id, :student_id, :amount_paid, :payment_method, :payment_date,
		:payer_details, :payer_email, :received_by, :created_at)`, toPaymentRow(pmt))
	if err != nil {
		return fee.Payment{}, err
	}
	return pmt, nil
}

func (repo *feeRepository) FilterPayments(ctx context.Context, invoiceID string) ([]fee.Payment, error) {
	var rows []paymentRow
	q := `SELECT ` + paymentColumns + ` FROM payment WHERE invoice_id = ?` +
		orderBy(core.DBOrdering{Field: "created_at", Ascending: true}, core.DBOrdering{Field: "id", Ascending: true})
	if err := repo.db.sel(ctx, &rows, q, invoiceID); err != nil {
		return nil, err
	}

	payments := make([]fee.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.toPayment())
	}
	return payments, nil
}
