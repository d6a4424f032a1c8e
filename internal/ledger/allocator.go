package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/opencivic/civiledger/internal/model"
	"github.com/opencivic/civiledger/internal/money"
	"github.com/opencivic/civiledger/internal/store"
)

// Reserve places a provisional hold against a category of the active budget
// for an assigned grievance. The binding ID doubles as the reservation token;
// callers retrying a timed-out reserve must pass the same grievance ref, which
// is the natural idempotency key (one binding per grievance).
//
// The conservation check is hard: spent + pending ≤ allocated. A category
// that has overrun stays closed to new reservations until its allocation is
// raised — an explicit admin lever, not an implicit block.
func (e *Engine) Reserve(grievanceRef string, category model.Category, amount money.Paise) (*model.Binding, error) {
	if grievanceRef == "" {
		return nil, fmt.Errorf("%w: grievance ref required", ErrInvalidInput)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: reservation amount must be positive", ErrInvalidInput)
	}
	if _, err := model.ParseCategory(string(category)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	b, err := e.ActiveBudget()
	if err != nil {
		return nil, err
	}

	mu := e.categoryLock(b.FiscalYear, category)
	mu.Lock()
	defer mu.Unlock()

	// Re-load under the lock so the availability check sees committed state.
	b, err = e.ActiveBudget()
	if err != nil {
		return nil, err
	}

	if _, err := e.store.GetBindingByGrievance(grievanceRef); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateGrievance, grievanceRef)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	pool := b.Pool(category)
	if pool.Allocated == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotConfigured, category)
	}
	if amount > pool.Available() {
		return nil, fmt.Errorf("%w: %s available in %s, %s requested",
			ErrInsufficientFunds, pool.Available(), category, amount)
	}

	binding := &model.Binding{
		ID:             uuid.NewString(),
		GrievanceRef:   grievanceRef,
		FiscalYear:     b.FiscalYear,
		Category:       category,
		ReservedAmount: amount,
		State:          model.BindingReserved,
		CreatedAt:      e.now(),
	}

	if err := e.store.ApplyReserve(binding); err != nil {
		// A racing reserve from another process can slip past the pre-check;
		// the bindings table's unique grievance ref is the backstop.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateGrievance, grievanceRef)
		}
		return nil, err
	}

	e.notify(Event{
		Type:         EventFundsReserved,
		FiscalYear:   b.FiscalYear,
		GrievanceRef: grievanceRef,
		Category:     category,
		Amount:       amount,
		At:           binding.CreatedAt,
	})
	return binding, nil
}

// UpdateAllocation changes a category's allocation on the active budget.
// Shrinking below already-committed funds (spent + pending) is rejected.
func (e *Engine) UpdateAllocation(category model.Category, newAllocated money.Paise) error {
	if newAllocated < 0 {
		return fmt.Errorf("%w: negative allocation", ErrInvalidInput)
	}
	if _, err := model.ParseCategory(string(category)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	b, err := e.ActiveBudget()
	if err != nil {
		return err
	}

	mu := e.categoryLock(b.FiscalYear, category)
	mu.Lock()
	defer mu.Unlock()

	b, err = e.ActiveBudget()
	if err != nil {
		return err
	}

	pool := b.Pool(category)
	committed := pool.Spent + pool.Pending
	if newAllocated < committed {
		return fmt.Errorf("%w: %s has %s committed, cannot shrink to %s",
			ErrBelowCommitted, category, committed, newAllocated)
	}

	otherTotal := money.Paise(0)
	for _, p := range b.Categories {
		if p.Category != category {
			otherTotal += p.Allocated
		}
	}
	if otherTotal+newAllocated > b.Operational.Allocated {
		return fmt.Errorf("%w: category allocations would exceed operational pool %s",
			ErrInsufficientFunds, b.Operational.Allocated)
	}

	return e.store.SetCategoryAllocation(b.FiscalYear, category, newAllocated)
}

// settle converts a binding's reservation into final spend under the category
// lock: pending -= reserved, spent += actual. The binding is re-loaded inside
// the critical section so an approve charges the expense total as of the
// settlement, not as of whenever the caller last read the binding. The
// returned delta (reserved - actual) is negative on overspend; the caller
// surfaces that as a BudgetOverrun warning, never a failure, since the work
// is already done.
func (e *Engine) settle(binding *model.Binding, decision Decision, notes string) (actual, returned money.Paise, err error) {
	mu := e.categoryLock(binding.FiscalYear, binding.Category)
	mu.Lock()
	defer mu.Unlock()

	fresh, err := e.store.GetBinding(binding.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("loading binding %s: %w", binding.ID, err)
	}
	if fresh.State == model.BindingSettled {
		return 0, 0, fmt.Errorf("%w: %s", ErrBindingAlreadySettled, fresh.GrievanceRef)
	}

	if decision == DecisionApprove {
		actual = fresh.ExpenseTotal()
	}

	err = e.store.ApplySettlement(fresh, actual, notes, e.now())
	if errors.Is(err, store.ErrNotFound) {
		return 0, 0, fmt.Errorf("%w: %s", ErrBindingAlreadySettled, fresh.GrievanceRef)
	}
	if err != nil {
		return 0, 0, err
	}

	return actual, fresh.ReservedAmount - actual, nil
}
