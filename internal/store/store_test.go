package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/opencivic/civiledger/internal/model"
	"github.com/opencivic/civiledger/internal/money"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	err = st.CreateBudget(&model.BudgetRecord{
		FiscalYear:     "2026-27",
		StartDate:      time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC),
		TotalAllocated: money.FromRupees(1_000_000),
		Salary:         model.SalaryPool{Allocated: money.FromRupees(400_000)},
		Operational:    model.OperationalPool{Allocated: money.FromRupees(600_000)},
		Categories: map[model.Category]*model.CategoryPool{
			model.CategoryWater: {Category: model.CategoryWater, Allocated: money.FromRupees(100_000)},
		},
		Status:    model.BudgetDraft,
		CreatedAt: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	return st
}

func reservedBinding(t *testing.T, st *Store, id, ref string) *model.Binding {
	t.Helper()

	b := &model.Binding{
		ID:             id,
		GrievanceRef:   ref,
		FiscalYear:     "2026-27",
		Category:       model.CategoryWater,
		ReservedAmount: money.FromRupees(10_000),
		State:          model.BindingReserved,
		CreatedAt:      time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := st.ApplyReserve(b); err != nil {
		t.Fatalf("ApplyReserve: %v", err)
	}
	return b
}

// A binding that has settled must reject further expense rows at the SQL
// level: the reserved-state guard is the backstop against a write racing the
// settlement in another process.
func TestAppendExpenseRejectsSettledBinding(t *testing.T) {
	st := newTestStore(t)
	b := reservedBinding(t, st, "B1", "G1")

	entry := model.ExpenseEntry{Description: "pipe replacement", Amount: money.FromRupees(6_000), LoggedAt: time.Now()}
	if err := st.AppendExpense(b.ID, entry); err != nil {
		t.Fatalf("AppendExpense: %v", err)
	}
	if err := st.ApplySettlement(b, money.FromRupees(6_000), "", time.Now()); err != nil {
		t.Fatalf("ApplySettlement: %v", err)
	}

	late := model.ExpenseEntry{Description: "extra labour", Amount: money.FromRupees(2_000), LoggedAt: time.Now()}
	if err := st.AppendExpense(b.ID, late); !errors.Is(err, ErrNotFound) {
		t.Fatalf("AppendExpense after settlement: err = %v, want ErrNotFound", err)
	}

	got, err := st.GetBinding(b.ID)
	if err != nil {
		t.Fatalf("GetBinding: %v", err)
	}
	if got.SpentAmount != money.FromRupees(6_000) {
		t.Fatalf("SpentAmount = %s after settlement at ₹6,000, want unchanged", got.SpentAmount)
	}
	if len(got.Expenses) != 1 {
		t.Fatalf("breakdown rows = %d, want 1", len(got.Expenses))
	}
}

func TestAttachBillRejectsSettledBinding(t *testing.T) {
	st := newTestStore(t)
	b := reservedBinding(t, st, "B2", "G2")

	if err := st.ApplySettlement(b, 0, "", time.Now()); err != nil {
		t.Fatalf("ApplySettlement: %v", err)
	}

	if err := st.AttachBill(b.ID, "BILL-2026-0042"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("AttachBill after settlement: err = %v, want ErrNotFound", err)
	}

	got, err := st.GetBinding(b.ID)
	if err != nil {
		t.Fatalf("GetBinding: %v", err)
	}
	if len(got.BillRefs) != 0 {
		t.Fatalf("bill refs = %v, want none", got.BillRefs)
	}
}

func TestApplyReserveDuplicateGrievance(t *testing.T) {
	st := newTestStore(t)
	reservedBinding(t, st, "B3", "G3")

	dup := &model.Binding{
		ID:             "B3-again",
		GrievanceRef:   "G3",
		FiscalYear:     "2026-27",
		Category:       model.CategoryWater,
		ReservedAmount: money.FromRupees(5_000),
		State:          model.BindingReserved,
		CreatedAt:      time.Now(),
	}
	if err := st.ApplyReserve(dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second reserve for G3: err = %v, want ErrDuplicate", err)
	}
}

func TestAddEngineerDuplicateRef(t *testing.T) {
	st := newTestStore(t)

	eng := model.Engineer{
		Ref:           "ENG-1",
		MonthlySalary: money.FromRupees(30_000),
		JoinedDate:    time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Active:        true,
	}
	if err := st.AddEngineer("2026-27", eng); err != nil {
		t.Fatalf("AddEngineer: %v", err)
	}
	if err := st.AddEngineer("2026-27", eng); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second AddEngineer: err = %v, want ErrDuplicate", err)
	}
}
