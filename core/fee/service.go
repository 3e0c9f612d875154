package fee

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrStructureNotFound = core.NewNotFoundError("fee structure not found")
	ErrInvoiceNotFound   = core.NewNotFoundError("invoice not found")
	ErrInvoiceExists     = errors.New("an invoice already exists for this student and session")
	ErrSessionMismatch   = core.NewInvalidArgumentError("fee structure does not belong to this session")
	ErrNegativePayable   = core.NewInvalidArgumentError("adjustments would make the total payable negative")
	ErrNegativeAmount    = core.NewInvalidArgumentError("amount must be 0 or greater")
	ErrNonPositivePay    = core.NewInvalidArgumentError("amount paid must be greater than 0")
	ErrInvalidAdjustment = core.NewInvalidArgumentError(adjustmentKindText)

	NowFunc = time.Now // mockable
)

type Repository interface {
	GetFeeStructureByID(ctx context.Context, id string) (FeeStructure, error)
	FilterFeeStructures(ctx context.Context, branchID, sessionID string) ([]FeeStructure, error)
	CreateFeeStructure(ctx context.Context, fs FeeStructure) (FeeStructure, error)
	// UpdateFeeStructure never touches invoices already generated from fs.
	UpdateFeeStructure(ctx context.Context, fs FeeStructure) (FeeStructure, error)

	// GetInvoiceByID locks the row for update when ctx carries a transaction.
	GetInvoiceByID(ctx context.Context, id string) (Invoice, error)
	// GetInvoiceByStudentSession returns ErrInvoiceNotFound when the student has no invoice for the session.
	GetInvoiceByStudentSession(ctx context.Context, studentID, sessionID string) (Invoice, error)
	// CreateInvoice returns ErrInvoiceExists when (student, session) is already invoiced.
	CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	FilterInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)

	CreatePayment(ctx context.Context, pmt Payment) (Payment, error)
	FilterPayments(ctx context.Context, invoiceID string) ([]Payment, error)
}

// StudentDirectory resolves students from reference data.
type StudentDirectory interface {
	StudentsOfClassLevel(ctx context.Context, branchID, classLevelID string) ([]Student, error)
}

type Service struct {
	repo      Repository
	directory StudentDirectory
	tx        core.Transactor
	locker    core.Locker
	mailer    core.EmailService
	logger    core.Logger
}

func NewService(
	repo Repository,
	directory StudentDirectory,
	tx core.Transactor,
	locker core.Locker,
	mailer core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		tx:        tx,
		locker:    locker,
		mailer:    mailer,
		logger:    logger,
	}
}

// GenerateInvoice snapshots the fee structure onto a new invoice.
// If the student already has an invoice for the session, it is returned with the Skipped outcome.
func (svc *Service) GenerateInvoice(ctx context.Context, ni NewInvoice) (Invoice, Outcome, error) {
	if ni.StudentID == "" {
		return Invoice{}, "", core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "this field is required"})
	}

	var (
		inv       Invoice
		outcome   Outcome
		sessionID = ni.SessionID
	)
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		fs, err := svc.repo.GetFeeStructureByID(ctx, ni.FeeStructureID)
		if err != nil {
			return err
		}
		if sessionID != "" && sessionID != fs.SessionID {
			return ErrSessionMismatch
		}
		sessionID = fs.SessionID

		existing, err := svc.repo.GetInvoiceByStudentSession(ctx, ni.StudentID, fs.SessionID)
		switch {
		case err == nil:
			inv, outcome = existing, Skipped
			return nil
		case !errors.Is(err, ErrInvoiceNotFound):
			return errors.Wrap(err, "getting invoice")
		}

		now := NowFunc().UTC()
		snapshot := make([]FeeItem, len(fs.Fees))
		copy(snapshot, fs.Fees)
		inv = Invoice{
			ID:             uuid.New().String(),
			StudentID:      ni.StudentID,
			BranchID:       fs.BranchID,
			SessionID:      fs.SessionID,
			FeeStructureID: fs.ID,
			FeeSnapshot:    snapshot,
			DueDate:        ni.DueDate,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		inv.Recompute(nil)
		inv, err = svc.repo.CreateInvoice(ctx, inv)
		outcome = Generated
		return err
	})

	// lost a race against a concurrent generation
	if errors.Is(err, ErrInvoiceExists) {
		inv, err = svc.repo.GetInvoiceByStudentSession(ctx, ni.StudentID, sessionID)
		outcome = Skipped
	}
	if err != nil {
		return Invoice{}, "", err
	}
	return inv, outcome, nil
}

// GenerateInvoices invoices every student of every fee structure of the branch & session.
func (svc *Service) GenerateInvoices(ctx context.Context, bg BulkGenerate) (BulkReport, error) {
	structures, err := svc.repo.FilterFeeStructures(ctx, bg.BranchID, bg.SessionID)
	if err != nil {
		return BulkReport{}, errors.Wrap(err, "filtering fee structures")
	}

	var report BulkReport
	for _, fs := range structures {
		students, err := svc.directory.StudentsOfClassLevel(ctx, bg.BranchID, fs.ClassLevelID)
		if err != nil {
			return report, errors.Wrap(err, "listing students")
		}
		for _, std := range students {
			_, outcome, err := svc.GenerateInvoice(ctx, NewInvoice{
				StudentID:      std.ID,
				FeeStructureID: fs.ID,
				SessionID:      bg.SessionID,
				DueDate:        bg.DueDate,
			})
			switch {
			case err != nil:
				report.Failed++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", std.ID, err))
			case outcome == Skipped:
				report.Skipped++
			default:
				report.Generated++
			}
		}
	}

	svc.logger.Info("invoices generated", map[string]interface{}{
		"branch":    bg.BranchID,
		"session":   bg.SessionID,
		"generated": report.Generated,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	})
	return report, nil
}

// ApplyAdjustment replaces the current value of one adjustment and recomputes the invoice.
func (svc *Service) ApplyAdjustment(ctx context.Context, invoiceID string, adj Adjustment) (Invoice, error) {
	if !adj.Kind.IsValid() {
		return Invoice{}, ErrInvalidAdjustment
	}
	if adj.Amount.IsNegative() {
		return Invoice{}, ErrNegativeAmount
	}

	var inv Invoice
	err := svc.withInvoice(ctx, invoiceID, func(ctx context.Context, cur Invoice) error {
		inv = cur
		switch adj.Kind {
		case Discount:
			inv.Discount = adj.Amount
		case Scholarship:
			inv.Scholarship = adj.Amount
		case LateFee:
			inv.LateFee = adj.Amount
		}

		payments, err := svc.repo.FilterPayments(ctx, inv.ID)
		if err != nil {
			return errors.Wrap(err, "filtering payments")
		}
		inv.Recompute(payments)
		if inv.TotalPayable.IsNegative() {
			return ErrNegativePayable
		}
		inv.UpdatedAt = NowFunc().UTC()
		inv, err = svc.repo.UpdateInvoice(ctx, inv)
		return errors.Wrap(err, "updating invoice")
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// RecordPayment appends a payment and recomputes the invoice from every persisted payment.
// Over-payments are accepted: the balance goes negative and the invoice is Paid.
func (svc *Service) RecordPayment(ctx context.Context, np NewPayment, receivedBy string) (Invoice, Payment, error) {
	if np.AmountPaid.Sign() <= 0 {
		return Invoice{}, Payment{}, ErrNonPositivePay
	}

	var (
		inv Invoice
		pmt Payment
	)
	err := svc.withInvoice(ctx, np.InvoiceID, func(ctx context.Context, cur Invoice) error {
		inv = cur
		now := NowFunc().UTC()
		pmt = Payment{
			ID:            uuid.New().String(),
			InvoiceID:     inv.ID,
			StudentID:     inv.StudentID,
			AmountPaid:    np.AmountPaid,
			PaymentMethod: np.PaymentMethod,
			PaymentDate:   np.PaymentDate,
			PayerDetails:  np.PayerDetails,
			PayerEmail:    np.PayerEmail,
			ReceivedBy:    receivedBy,
			CreatedAt:     now,
		}
		if pmt.PaymentDate.IsZero() {
			pmt.PaymentDate = now
		}

		var err error
		if pmt, err = svc.repo.CreatePayment(ctx, pmt); err != nil {
			return errors.Wrap(err, "creating payment")
		}
		payments, err := svc.repo.FilterPayments(ctx, inv.ID)
		if err != nil {
			return errors.Wrap(err, "filtering payments")
		}
		inv.Recompute(payments)
		inv.UpdatedAt = now
		inv, err = svc.repo.UpdateInvoice(ctx, inv)
		return errors.Wrap(err, "updating invoice")
	})
	if err != nil {
		return Invoice{}, Payment{}, err
	}

	svc.logger.Info("payment recorded", map[string]interface{}{
		"invoice": inv.ID,
		"amount":  pmt.AmountPaid.String(),
		"balance": inv.Balance.String(),
		"status":  inv.Status,
	})
	if pmt.PayerEmail != "" {
		svc.mailer.SendMessages(newReceiptMessage(inv, pmt))
	}
	return inv, pmt, nil
}

// withInvoice runs fn on the locked, persisted invoice inside a transaction.
// Work on the same invoice is serialized through the Locker on top of the transaction.
func (svc *Service) withInvoice(ctx context.Context, id string, fn func(ctx context.Context, inv Invoice) error) error {
	unlock, err := svc.locker.Lock(ctx, InvoiceLockKey(id))
	if err != nil {
		return errors.Wrap(err, "locking invoice")
	}
	defer unlock()

	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		inv, err := svc.repo.GetInvoiceByID(ctx, id)
		if err != nil {
			return err
		}
		return fn(ctx, inv)
	})
}

func (svc *Service) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	return svc.repo.GetInvoiceByID(ctx, id)
}

func (svc *Service) QueryInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	return svc.repo.FilterInvoices(ctx, filter)
}

func (svc *Service) QueryPayments(ctx context.Context, invoiceID string) ([]Payment, error) {
	if _, err := svc.repo.GetInvoiceByID(ctx, invoiceID); err != nil {
		return nil, err
	}
	return svc.repo.FilterPayments(ctx, invoiceID)
}

// CreateFeeStructure stores reference fee data (seeding).
func (svc *Service) CreateFeeStructure(ctx context.Context, fs FeeStructure) (FeeStructure, error) {
	for _, it := range fs.Fees {
		if it.Amount.IsNegative() {
			return FeeStructure{}, ErrNegativeAmount
		}
	}
	now := NowFunc().UTC()
	if fs.ID == "" {
		fs.ID = uuid.New().String()
	}
	fs.CreatedAt = now
	fs.UpdatedAt = now
	return svc.repo.CreateFeeStructure(ctx, fs)
}

// InvoiceLockKey names the lock serializing work on an invoice.
func InvoiceLockKey(invoiceID string) string {
	return core.LockKey("invoice", invoiceID)
}
