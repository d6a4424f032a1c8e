package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/opencivic/civiledger/internal/model"
	"github.com/opencivic/civiledger/internal/money"
	"github.com/opencivic/civiledger/internal/store"
)

// Decision is the admin's verdict on a completed task.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionRework  Decision = "rework"
	DecisionReject  Decision = "reject"
)

// ParseDecision validates a decision string.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApprove, DecisionRework, DecisionReject:
		return Decision(s), nil
	}
	return "", fmt.Errorf("%w: unknown decision %q", ErrInvalidInput, s)
}

// ConfirmResult reports one settlement.
type ConfirmResult struct {
	BindingID    string
	GrievanceRef string
	Category     model.Category
	Decision     Decision
	ActualSpent  money.Paise
	Returned     money.Paise // reserved - actual; negative on overspend
	Overrun      bool
}

// ConfirmSingle settles one binding according to the admin's decision.
//
// approve: actual spend is the expense-breakdown total; the unspent delta is
// released back to the category pool. reject: the full reservation is
// released (actual spend zero). rework: no monetary change and the binding
// stays reserved; the grievance workflow returns the task to in-progress.
func (e *Engine) ConfirmSingle(bindingID string, decision Decision, adminNotes string) (*ConfirmResult, error) {
	if _, err := ParseDecision(string(decision)); err != nil {
		return nil, err
	}

	binding, err := e.store.GetBinding(bindingID)
	if err != nil {
		return nil, fmt.Errorf("loading binding %s: %w", bindingID, err)
	}
	if binding.State == model.BindingSettled {
		return nil, fmt.Errorf("%w: %s", ErrBindingAlreadySettled, binding.GrievanceRef)
	}

	res := &ConfirmResult{
		BindingID:    binding.ID,
		GrievanceRef: binding.GrievanceRef,
		Category:     binding.Category,
		Decision:     decision,
	}

	if decision == DecisionRework {
		// Not a settlement. Clear the review mark; status transition is the
		// grievance workflow's job.
		if binding.Reviewable {
			if err := e.store.SetReviewable(binding.GrievanceRef, false); err != nil {
				return nil, err
			}
		}
		return res, nil
	}

	actual, returned, err := e.settle(binding, decision, adminNotes)
	if err != nil {
		return nil, err
	}

	res.ActualSpent = actual
	res.Returned = returned
	res.Overrun = returned < 0

	now := e.now()
	e.notify(Event{
		Type:         EventTaskSettled,
		FiscalYear:   binding.FiscalYear,
		GrievanceRef: binding.GrievanceRef,
		Category:     binding.Category,
		Amount:       actual,
		At:           now,
	})
	if res.Overrun {
		e.notify(Event{
			Type:         EventBudgetOverrun,
			FiscalYear:   binding.FiscalYear,
			GrievanceRef: binding.GrievanceRef,
			Category:     binding.Category,
			Amount:       -returned,
			Detail:       fmt.Sprintf("spent %s against a %s reservation", actual, binding.ReservedAmount),
			At:           now,
		})
	}

	return res, nil
}

// BindingError records one binding's failure inside a bulk confirm.
type BindingError struct {
	BindingID    string
	GrievanceRef string
	Err          error
}

// BulkConfirmResult aggregates a confirm-all run. Failures are collected per
// binding; the batch itself never fails.
type BulkConfirmResult struct {
	ConfirmedCount int
	TotalCount     int
	TotalSpent     money.Paise
	TotalReturned  money.Paise
	Overruns       int
	Errors         []BindingError
}

// ConfirmAll approves every reserved binding that is completed-awaiting-review.
// With explicit bindingIDs it confirms exactly those; with none it sweeps all
// reviewable bindings on the active budget. Each binding settles in its own
// critical section: one already settled concurrently is reported and skipped,
// never aborting the batch.
func (e *Engine) ConfirmAll(bindingIDs []string, adminNotes string) (*BulkConfirmResult, error) {
	if len(bindingIDs) == 0 {
		b, err := e.ActiveBudget()
		if err != nil {
			return nil, err
		}
		reserved, err := e.store.ListBindings(b.FiscalYear, model.BindingReserved)
		if err != nil {
			return nil, err
		}
		for _, binding := range reserved {
			if binding.Reviewable {
				bindingIDs = append(bindingIDs, binding.ID)
			}
		}
	}

	res := &BulkConfirmResult{TotalCount: len(bindingIDs)}
	for _, id := range bindingIDs {
		cr, err := e.ConfirmSingle(id, DecisionApprove, adminNotes)
		if err != nil {
			ref := ""
			if b, lookupErr := e.store.GetBinding(id); lookupErr == nil {
				ref = b.GrievanceRef
			}
			res.Errors = append(res.Errors, BindingError{BindingID: id, GrievanceRef: ref, Err: err})
			continue
		}
		res.ConfirmedCount++
		res.TotalSpent += cr.ActualSpent
		res.TotalReturned += cr.Returned
		if cr.Overrun {
			res.Overruns++
		}
	}
	return res, nil
}

// StatusSource reports grievance workflow statuses, keyed by grievance ref.
type StatusSource interface {
	Status(ctx context.Context, grievanceRef string) (string, error)
}

// GrievanceResolved is the workflow status that makes a binding reviewable.
const GrievanceResolved = "resolved"

// SyncReviewable refreshes the review marks on the active budget's reserved
// bindings from the grievance workflow. Unreachable grievances are skipped;
// the first error is returned after the sweep completes.
func (e *Engine) SyncReviewable(ctx context.Context, src StatusSource) (int, error) {
	b, err := e.ActiveBudget()
	if err != nil {
		return 0, err
	}
	reserved, err := e.store.ListBindings(b.FiscalYear, model.BindingReserved)
	if err != nil {
		return 0, err
	}

	var updated int
	var firstErr error
	for _, binding := range reserved {
		status, err := src.Status(ctx, binding.GrievanceRef)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("grievance %s: %w", binding.GrievanceRef, err)
			}
			continue
		}
		reviewable := status == GrievanceResolved
		if reviewable == binding.Reviewable {
			continue
		}
		if err := e.store.SetReviewable(binding.GrievanceRef, reviewable); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		updated++
	}
	return updated, firstErr
}

// MarkReviewable flags a reserved binding as completed-awaiting-review without
// consulting the workflow API (manual override, and the store-backed path for
// deployments without the dashboard).
func (e *Engine) MarkReviewable(grievanceRef string) error {
	err := e.store.SetReviewable(grievanceRef, true)
	if err != nil {
		return fmt.Errorf("marking %s reviewable: %w", grievanceRef, err)
	}
	return nil
}

// AddExpense appends one expense entry to a reserved binding.
func (e *Engine) AddExpense(grievanceRef, description string, amount money.Paise) error {
	if description == "" {
		return fmt.Errorf("%w: expense description required", ErrInvalidInput)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: expense amount must be positive", ErrInvalidInput)
	}

	binding, err := e.store.GetBindingByGrievance(grievanceRef)
	if err != nil {
		return fmt.Errorf("loading binding for %s: %w", grievanceRef, err)
	}

	// Same lock as settle, so an expense never lands on a binding mid-way
	// through confirmation. The store repeats the reserved-state check in SQL.
	mu := e.categoryLock(binding.FiscalYear, binding.Category)
	mu.Lock()
	defer mu.Unlock()

	err = e.store.AppendExpense(binding.ID, model.ExpenseEntry{
		Description: description,
		Amount:      amount,
		LoggedAt:    e.now(),
	})
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrBindingAlreadySettled, grievanceRef)
	}
	return err
}

// AttachBill records bill evidence on a reserved binding.
func (e *Engine) AttachBill(grievanceRef, billRef string) error {
	if billRef == "" {
		return fmt.Errorf("%w: bill ref required", ErrInvalidInput)
	}

	binding, err := e.store.GetBindingByGrievance(grievanceRef)
	if err != nil {
		return fmt.Errorf("loading binding for %s: %w", grievanceRef, err)
	}

	mu := e.categoryLock(binding.FiscalYear, binding.Category)
	mu.Lock()
	defer mu.Unlock()

	err = e.store.AttachBill(binding.ID, billRef)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrBindingAlreadySettled, grievanceRef)
	}
	return err
}

// Adjust records an append-only correction against a settled binding's
// category pool. Settled bindings never reopen; the adjustment row is the
// audit trail.
func (e *Engine) Adjust(grievanceRef string, amount money.Paise, note string) (*model.Adjustment, error) {
	if note == "" {
		return nil, fmt.Errorf("%w: adjustment note required", ErrInvalidInput)
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: adjustment amount must be nonzero", ErrInvalidInput)
	}

	binding, err := e.store.GetBindingByGrievance(grievanceRef)
	if err != nil {
		return nil, fmt.Errorf("loading binding for %s: %w", grievanceRef, err)
	}
	if binding.State != model.BindingSettled {
		return nil, fmt.Errorf("%w: %s is not settled; log an expense instead", ErrInvalidInput, grievanceRef)
	}

	mu := e.categoryLock(binding.FiscalYear, binding.Category)
	mu.Lock()
	defer mu.Unlock()

	adj := &model.Adjustment{
		ID:           uuid.NewString(),
		BindingID:    binding.ID,
		GrievanceRef: grievanceRef,
		Category:     binding.Category,
		Amount:       amount,
		Note:         note,
		CreatedAt:    e.now(),
	}
	if err := e.store.AddAdjustment(adj); err != nil {
		return nil, err
	}
	return adj, nil
}
