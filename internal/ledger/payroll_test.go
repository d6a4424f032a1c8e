package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/opencivic/civiledger/internal/money"
)

func addEngineers(t *testing.T, e *Engine) {
	t.Helper()

	joined := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for _, eng := range []struct {
		ref    string
		salary money.Paise
	}{
		{"eng-asha", money.FromRupees(45_000)},
		{"eng-vikram", money.FromRupees(50_000)},
		{"eng-meena", money.FromRupees(40_000)},
	} {
		if err := e.AddEngineer(eng.ref, eng.salary, joined); err != nil {
			t.Fatalf("AddEngineer %s: %v", eng.ref, err)
		}
	}
}

func TestPayrollPending(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)
	addEngineers(t, e)

	p, err := e.PayrollPending(4, 2026)
	if err != nil {
		t.Fatalf("PayrollPending: %v", err)
	}
	if p.ActiveEngineers != 3 {
		t.Fatalf("ActiveEngineers = %d, want 3", p.ActiveEngineers)
	}
	if p.TotalPendingSalary != money.FromRupees(135_000) {
		t.Fatalf("TotalPendingSalary = %s, want ₹1,35,000", p.TotalPendingSalary)
	}
	if p.AlreadyProcessed {
		t.Fatal("AlreadyProcessed = true before any run")
	}
	if p.SalaryBudgetRemaining != money.FromRupees(400_000) {
		t.Fatalf("SalaryBudgetRemaining = %s, want ₹4,00,000", p.SalaryBudgetRemaining)
	}
}

func TestPayrollIdempotent(t *testing.T) {
	e, notifier := newTestEngine(t)
	activeBudget(t, e)
	addEngineers(t, e)

	res, err := e.ProcessPayroll(4, 2026)
	if err != nil {
		t.Fatalf("ProcessPayroll: %v", err)
	}
	if res.Receipt.TotalAmount != money.FromRupees(135_000) {
		t.Fatalf("receipt total = %s, want ₹1,35,000", res.Receipt.TotalAmount)
	}
	if res.Shortfall {
		t.Fatal("unexpected shortfall warning")
	}

	if _, err := e.ProcessPayroll(4, 2026); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("second run: err = %v, want ErrAlreadyProcessed", err)
	}

	// Salary pool debited exactly once.
	b, _ := e.ActiveBudget()
	if b.Salary.Spent != money.FromRupees(135_000) {
		t.Fatalf("salary spent = %s, want ₹1,35,000", b.Salary.Spent)
	}
	if len(b.PayrollHistory) != 1 {
		t.Fatalf("payroll history = %d entries, want 1", len(b.PayrollHistory))
	}
	if got := notifier.ofType(EventPayrollProcessed); len(got) != 1 {
		t.Fatalf("PayrollProcessed events = %d, want 1", len(got))
	}

	p, err := e.PayrollPending(4, 2026)
	if err != nil {
		t.Fatalf("PayrollPending: %v", err)
	}
	if !p.AlreadyProcessed {
		t.Fatal("AlreadyProcessed = false after run")
	}

	// The next month is its own key.
	if _, err := e.ProcessPayroll(5, 2026); err != nil {
		t.Fatalf("next month: %v", err)
	}
}

func TestPayrollShortfallWarns(t *testing.T) {
	e, notifier := newTestEngine(t)
	activeBudget(t, e)
	addEngineers(t, e)

	// Burn the salary pool down: 135,000 a month against 400,000.
	for month := 4; month <= 6; month++ {
		if _, err := e.ProcessPayroll(month, 2026); err != nil {
			t.Fatalf("month %d: %v", month, err)
		}
	}

	// Fourth run exceeds the pool; it must commit anyway, with a warning.
	res, err := e.ProcessPayroll(7, 2026)
	if err != nil {
		t.Fatalf("shortfall month: %v", err)
	}
	if !res.Shortfall {
		t.Fatal("expected shortfall warning")
	}
	if res.Remaining != -money.FromRupees(140_000) {
		t.Fatalf("remaining = %s, want -₹1,40,000", res.Remaining)
	}

	b, _ := e.ActiveBudget()
	if b.Salary.Spent != money.FromRupees(540_000) {
		t.Fatalf("salary spent = %s, want ₹5,40,000", b.Salary.Spent)
	}
	if got := notifier.ofType(EventBudgetOverrun); len(got) != 1 {
		t.Fatalf("BudgetOverrun events = %d, want 1", len(got))
	}
}

func TestDeactivatedEngineerSkipsPayroll(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)
	addEngineers(t, e)

	if err := e.SetEngineerActive("eng-vikram", false); err != nil {
		t.Fatalf("SetEngineerActive: %v", err)
	}

	p, err := e.PayrollPending(4, 2026)
	if err != nil {
		t.Fatalf("PayrollPending: %v", err)
	}
	if p.ActiveEngineers != 2 {
		t.Fatalf("ActiveEngineers = %d, want 2", p.ActiveEngineers)
	}
	if p.TotalPendingSalary != money.FromRupees(85_000) {
		t.Fatalf("TotalPendingSalary = %s, want ₹85,000", p.TotalPendingSalary)
	}
}

func TestDuplicateEngineerRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)
	addEngineers(t, e)

	err := e.AddEngineer("eng-asha", money.FromRupees(60_000), time.Now())
	if !errors.Is(err, ErrDuplicateEngineer) {
		t.Fatalf("err = %v, want ErrDuplicateEngineer", err)
	}
}

func TestPayrollValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)
	addEngineers(t, e)

	for _, tc := range []struct {
		month, year int
	}{
		{0, 2026}, {13, 2026}, {4, 1990},
	} {
		if _, err := e.ProcessPayroll(tc.month, tc.year); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ProcessPayroll(%d, %d): err = %v, want ErrInvalidInput", tc.month, tc.year, err)
		}
	}
}
