package ledger

import "errors"

// Hard failures. Each leaves the budget record untouched; callers branch with
// errors.Is and retry after fixing input. Overruns are warnings carried on
// results, never errors (the work is already done and unreversible).
var (
	// ErrCategoryNotConfigured indicates a reservation against a category
	// whose allocation is still zero.
	ErrCategoryNotConfigured = errors.New("ledger: category not configured")
	// ErrInsufficientFunds indicates the category cannot cover the amount.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrBelowCommitted indicates an allocation shrink below spent+pending.
	ErrBelowCommitted = errors.New("ledger: allocation below committed funds")
	// ErrAlreadyProcessed indicates payroll was already run for the month.
	ErrAlreadyProcessed = errors.New("ledger: payroll already processed")
	// ErrBindingAlreadySettled indicates a second settlement attempt.
	ErrBindingAlreadySettled = errors.New("ledger: binding already settled")
	// ErrDuplicateEngineer indicates the engineer is already on the budget.
	ErrDuplicateEngineer = errors.New("ledger: engineer already registered")
	// ErrDuplicateGrievance indicates the grievance already has a binding.
	ErrDuplicateGrievance = errors.New("ledger: grievance already has a budget binding")
	// ErrNoActiveBudget indicates no budget is currently active.
	ErrNoActiveBudget = errors.New("ledger: no active budget")
	// ErrBudgetExists indicates a budget already exists for the fiscal year.
	ErrBudgetExists = errors.New("ledger: budget already exists for fiscal year")
	// ErrNotDraft indicates an activation attempt on a non-draft budget.
	// Activation is terminal; there is no re-draft.
	ErrNotDraft = errors.New("ledger: budget is not in draft")
	// ErrInvalidInput indicates malformed input rejected before any write.
	ErrInvalidInput = errors.New("ledger: invalid input")
)
