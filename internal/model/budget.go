package model

import (
	"time"

	"github.com/opencivic/civiledger/internal/money"
)

// BudgetStatus is the lifecycle state of a fiscal-year budget.
type BudgetStatus string

const (
	BudgetDraft  BudgetStatus = "draft"
	BudgetActive BudgetStatus = "active"
	BudgetClosed BudgetStatus = "closed"
)

// SalaryPool tracks the salary envelope of a budget.
type SalaryPool struct {
	Allocated money.Paise
	Spent     money.Paise
}

// Remaining returns the undebited salary balance. May go negative after a
// shortfall payroll run.
func (p SalaryPool) Remaining() money.Paise {
	return p.Allocated - p.Spent
}

// OperationalPool tracks the operational envelope. Spent, Pending, and
// Reserved are projections over the category pools and open bindings,
// recomputed whenever the record is loaded — never stored aggregates.
type OperationalPool struct {
	Allocated money.Paise
	Spent     money.Paise // Σ category spent
	Pending   money.Paise // Σ reserved amounts awaiting review
	Reserved  money.Paise // Σ category pending (all in-flight holds)
}

// Available returns the uncommitted operational balance.
func (p OperationalPool) Available() money.Paise {
	return p.Allocated - p.Spent - p.Reserved
}

// CategoryPool is one category's sub-allocation of the operational pool.
// A pool with Allocated == 0 is unset and rejects reservations.
type CategoryPool struct {
	Category       Category
	Allocated      money.Paise
	Spent          money.Paise
	Pending        money.Paise
	GrievanceCount int
}

// Available returns what the category can still reserve.
func (p CategoryPool) Available() money.Paise {
	return p.Allocated - p.Spent - p.Pending
}

// Overrun reports whether settled spend has exceeded the allocation.
func (p CategoryPool) Overrun() bool {
	return p.Allocated > 0 && p.Spent > p.Allocated
}

// Engineer is one salaried engineer attached to a budget.
type Engineer struct {
	Ref           string
	MonthlySalary money.Paise
	JoinedDate    time.Time
	Active        bool
}

// PayrollReceipt proves salaries were debited for one calendar month.
// Immutable once created; at most one receipt per (Month, Year).
type PayrollReceipt struct {
	Month         int
	Year          int
	TotalAmount   money.Paise
	EngineerCount int
	ProcessedAt   time.Time
}

// BudgetRecord is one fiscal-year budget with its pools and history.
type BudgetRecord struct {
	FiscalYear     string // e.g. "2026-27"
	StartDate      time.Time
	EndDate        time.Time
	TotalAllocated money.Paise
	Salary         SalaryPool
	Operational    OperationalPool
	Categories     map[Category]*CategoryPool
	Engineers      []Engineer
	PayrollHistory []PayrollReceipt
	Status         BudgetStatus
	CreatedAt      time.Time
	ActivatedAt    time.Time
	ClosedAt       time.Time
}

// Pool returns the category pool for c, which always exists on a loaded record.
func (b *BudgetRecord) Pool(c Category) *CategoryPool {
	return b.Categories[c]
}
