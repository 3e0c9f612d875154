package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core/fee"
)

type feeRepository struct {
	db *DB
}

var _ fee.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *DB) fee.Repository {
	return &feeRepository{db: db}
}

func copyFees(items []fee.FeeItem) []fee.FeeItem {
	c := make([]fee.FeeItem, len(items))
	copy(c, items)
	return c
}

func (repo *feeRepository) GetFeeStructureByID(ctx context.Context, id string) (fee.FeeStructure, error) {
	defer repo.db.rlock(ctx)()

	if fs, ok := repo.db.t.structures[id]; ok {
		fs.Fees = copyFees(fs.Fees)
		return fs, nil
	}
	return fee.FeeStructure{}, fee.ErrStructureNotFound
}

func (repo *feeRepository) FilterFeeStructures(ctx context.Context, branchID, sessionID string) ([]fee.FeeStructure, error) {
	defer repo.db.rlock(ctx)()

	structures := make([]fee.FeeStructure, 0)
	for _, fs := range repo.db.t.structures {
		if (branchID == "" || fs.BranchID == branchID) && (sessionID == "" || fs.SessionID == sessionID) {
			fs.Fees = copyFees(fs.Fees)
			structures = append(structures, fs)
		}
	}
	sort.Slice(structures, func(i, j int) bool { return structures[i].ID < structures[j].ID })
	return structures, nil
}

func (repo *feeRepository) CreateFeeStructure(ctx context.Context, fs fee.FeeStructure) (fee.FeeStructure, error) {
	defer repo.db.lock(ctx)()

	fs.Fees = copyFees(fs.Fees)
	repo.db.t.structures[fs.ID] = fs
	return fs, nil
}

// UpdateFeeStructure edits reference data; existing invoices keep their snapshot.
func (repo *feeRepository) UpdateFeeStructure(ctx context.Context, fs fee.FeeStructure) (fee.FeeStructure, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.structures[fs.ID]; !ok {
		return fee.FeeStructure{}, fee.ErrStructureNotFound
	}
	fs.Fees = copyFees(fs.Fees)
	repo.db.t.structures[fs.ID] = fs
	return fs, nil
}

func (repo *feeRepository) GetInvoiceByID(ctx context.Context, id string) (fee.Invoice, error) {
	defer repo.db.rlock(ctx)()

	if inv, ok := repo.db.t.invoices[id]; ok {
		inv.FeeSnapshot = copyFees(inv.FeeSnapshot)
		return inv, nil
	}
	return fee.Invoice{}, fee.ErrInvoiceNotFound
}

func (repo *feeRepository) GetInvoiceByStudentSession(ctx context.Context, studentID, sessionID string) (fee.Invoice, error) {
	defer repo.db.rlock(ctx)()

	for _, inv := range repo.db.t.invoices {
		if inv.StudentID == studentID && inv.SessionID == sessionID {
			inv.FeeSnapshot = copyFees(inv.FeeSnapshot)
			return inv, nil
		}
	}
	return fee.Invoice{}, fee.ErrInvoiceNotFound
}

func (repo *feeRepository) CreateInvoice(ctx context.Context, inv fee.Invoice) (fee.Invoice, error) {
	defer repo.db.lock(ctx)()

	for _, existing := range repo.db.t.invoices {
		if existing.StudentID == inv.StudentID && existing.SessionID == inv.SessionID {
			return fee.Invoice{}, fee.ErrInvoiceExists
		}
	}
	inv.FeeSnapshot = copyFees(inv.FeeSnapshot)
	repo.db.t.invoices[inv.ID] = inv
	return inv, nil
}

func (repo *feeRepository) UpdateInvoice(ctx context.Context, inv fee.Invoice) (fee.Invoice, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.invoices[inv.ID]; !ok {
		return fee.Invoice{}, fee.ErrInvoiceNotFound
	}
	inv.FeeSnapshot = copyFees(inv.FeeSnapshot)
	repo.db.t.invoices[inv.ID] = inv
	return inv, nil
}

func (repo *feeRepository) FilterInvoices(ctx context.Context, filter fee.InvoiceFilter) ([]fee.Invoice, error) {
	defer repo.db.rlock(ctx)()

	invoices := make([]fee.Invoice, 0)
	for _, inv := range repo.db.t.invoices {
		if filter.StudentID != "" && inv.StudentID != filter.StudentID {
			continue
		}
		if filter.BranchID != "" && inv.BranchID != filter.BranchID {
			continue
		}
		if filter.SessionID != "" && inv.SessionID != filter.SessionID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		inv.FeeSnapshot = copyFees(inv.FeeSnapshot)
		invoices = append(invoices, inv)
	}
	sort.Slice(invoices, func(i, j int) bool {
		if invoices[i].StudentID != invoices[j].StudentID {
			return invoices[i].StudentID < invoices[j].StudentID
		}
		return invoices[i].SessionID < invoices[j].SessionID
	})
	return invoices, nil
}

func (repo *feeRepository) CreatePayment(ctx context.Context, pmt fee.Payment) (fee.Payment, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.invoices[pmt.InvoiceID]; !ok {
		return fee.Payment{}, fee.ErrInvoiceNotFound
	}
	repo.db.t.payments[pmt.ID] = pmt
	return pmt, nil
}

func (repo *feeRepository) FilterPayments(ctx context.Context, invoiceID string) ([]fee.Payment, error) {
	defer repo.db.rlock(ctx)()

	payments := make([]fee.Payment, 0)
	for _, pmt := range repo.db.t.payments {
		if pmt.InvoiceID == invoiceID {
			payments = append(payments, pmt)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].CreatedAt.Equal(payments[j].CreatedAt) {
			return payments[i].CreatedAt.Before(payments[j].CreatedAt)
		}
		return payments[i].ID < payments[j].ID
	})
	return payments, nil
}
