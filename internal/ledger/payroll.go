package ledger

import (
	"errors"
	"fmt"

	"github.com/opencivic/civiledger/internal/model"
	"github.com/opencivic/civiledger/internal/money"
	"github.com/opencivic/civiledger/internal/store"
)

// PendingPayroll is the pure-read preview of a payroll run.
type PendingPayroll struct {
	Month                 int
	Year                  int
	TotalPendingSalary    money.Paise
	ActiveEngineers       int
	AlreadyProcessed      bool
	SalaryBudgetRemaining money.Paise
}

// ProcessResult is the outcome of a committed payroll run.
type ProcessResult struct {
	Receipt   model.PayrollReceipt
	Remaining money.Paise // salary pool remaining after the debit; negative on shortfall
	Shortfall bool        // warning, not an error: salaries are not optional
}

func validateMonth(month, year int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidInput, month)
	}
	if year < 2000 || year > 2200 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidInput, year)
	}
	return nil
}

// PayrollPending sums active engineer salaries for the month and compares
// against the salary pool. Pure read; nothing is written.
func (e *Engine) PayrollPending(month, year int) (*PendingPayroll, error) {
	if err := validateMonth(month, year); err != nil {
		return nil, err
	}

	b, err := e.ActiveBudget()
	if err != nil {
		return nil, err
	}

	p := &PendingPayroll{
		Month:                 month,
		Year:                  year,
		SalaryBudgetRemaining: b.Salary.Remaining(),
	}
	for _, eng := range b.Engineers {
		if eng.Active {
			p.ActiveEngineers++
			p.TotalPendingSalary += eng.MonthlySalary
		}
	}

	if _, err := e.store.GetReceipt(month, year); err == nil {
		p.AlreadyProcessed = true
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return p, nil
}

// ProcessPayroll debits the salary pool for one calendar month and appends
// the receipt, exactly once per (month, year). A shortfall does not block the
// run; it is surfaced as a warning on the result and a BudgetOverrun event.
func (e *Engine) ProcessPayroll(month, year int) (*ProcessResult, error) {
	if err := validateMonth(month, year); err != nil {
		return nil, err
	}

	b, err := e.ActiveBudget()
	if err != nil {
		return nil, err
	}

	l := e.budgetLock(b.FiscalYear)
	l.record.Lock()
	defer l.record.Unlock()

	if _, err := e.store.GetReceipt(month, year); err == nil {
		return nil, fmt.Errorf("%w: %d-%02d", ErrAlreadyProcessed, year, month)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// Re-load under the lock for a current salary pool.
	b, err = e.ActiveBudget()
	if err != nil {
		return nil, err
	}

	var total money.Paise
	var count int
	for _, eng := range b.Engineers {
		if eng.Active {
			count++
			total += eng.MonthlySalary
		}
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: no active engineers on budget %s", ErrInvalidInput, b.FiscalYear)
	}

	receipt := model.PayrollReceipt{
		Month:         month,
		Year:          year,
		TotalAmount:   total,
		EngineerCount: count,
		ProcessedAt:   e.now(),
	}
	if err := e.store.ApplyPayroll(b.FiscalYear, receipt); err != nil {
		return nil, err
	}

	remaining := b.Salary.Remaining() - total
	res := &ProcessResult{
		Receipt:   receipt,
		Remaining: remaining,
		Shortfall: remaining < 0,
	}

	e.notify(Event{
		Type:       EventPayrollProcessed,
		FiscalYear: b.FiscalYear,
		Amount:     total,
		Month:      month,
		Year:       year,
		At:         receipt.ProcessedAt,
	})
	if res.Shortfall {
		e.notify(Event{
			Type:       EventBudgetOverrun,
			FiscalYear: b.FiscalYear,
			Amount:     -remaining,
			Month:      month,
			Year:       year,
			Detail:     "salary pool exhausted",
			At:         receipt.ProcessedAt,
		})
	}

	return res, nil
}
