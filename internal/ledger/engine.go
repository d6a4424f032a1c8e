// Package ledger implements the budget ledger and reconciliation engine:
// fiscal-year budgets split into salary and operational pools, per-category
// reservations against in-flight grievances, settlement on completed-task
// review, and idempotent monthly payroll.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opencivic/civiledger/internal/model"
	"github.com/opencivic/civiledger/internal/money"
	"github.com/opencivic/civiledger/internal/store"
)

// Engine coordinates all budget mutations. Mutations are serialized per
// category (reservations and settlements) or per budget record (payroll,
// engineer changes), so concurrent admin actions can never overcommit a pool
// through lost updates. Activation takes its own engine-wide lock because it
// touches two records at once.
type Engine struct {
	store    *store.Store
	notifier Notifier
	now      func() time.Time

	activateMu sync.Mutex

	mu    sync.Mutex
	locks map[string]*budgetLock
}

type budgetLock struct {
	record sync.Mutex

	mu   sync.Mutex
	cats map[model.Category]*sync.Mutex
}

// New returns an engine over the given store. notifier may be nil.
func New(st *store.Store, notifier Notifier) *Engine {
	return &Engine{
		store:    st,
		notifier: notifier,
		now:      time.Now,
		locks:    make(map[string]*budgetLock),
	}
}

func (e *Engine) budgetLock(fiscalYear string) *budgetLock {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[fiscalYear]
	if !ok {
		l = &budgetLock{cats: make(map[model.Category]*sync.Mutex)}
		e.locks[fiscalYear] = l
	}
	return l
}

func (e *Engine) categoryLock(fiscalYear string, c model.Category) *sync.Mutex {
	l := e.budgetLock(fiscalYear)
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.cats[c]
	if !ok {
		m = &sync.Mutex{}
		l.cats[c] = m
	}
	return m
}

// CreateBudgetParams describes a new draft budget.
type CreateBudgetParams struct {
	FiscalYear           string
	StartDate            time.Time
	EndDate              time.Time
	TotalAllocated       money.Paise
	SalaryAllocated      money.Paise
	OperationalAllocated money.Paise
	CategoryAllocations  map[model.Category]money.Paise
}

// CreateBudget validates and persists a new draft budget.
func (e *Engine) CreateBudget(p CreateBudgetParams) (*model.BudgetRecord, error) {
	if p.FiscalYear == "" {
		return nil, fmt.Errorf("%w: fiscal year required", ErrInvalidInput)
	}
	if p.TotalAllocated < 0 || p.SalaryAllocated < 0 || p.OperationalAllocated < 0 {
		return nil, fmt.Errorf("%w: negative pool allocation", ErrInvalidInput)
	}
	if p.SalaryAllocated+p.OperationalAllocated > p.TotalAllocated {
		return nil, fmt.Errorf("%w: salary %s + operational %s exceeds total %s",
			ErrInvalidInput, p.SalaryAllocated, p.OperationalAllocated, p.TotalAllocated)
	}
	if !p.EndDate.After(p.StartDate) {
		return nil, fmt.Errorf("%w: end date must follow start date", ErrInvalidInput)
	}

	var categoryTotal money.Paise
	for c, amt := range p.CategoryAllocations {
		if _, err := model.ParseCategory(string(c)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if amt < 0 {
			return nil, fmt.Errorf("%w: negative allocation for %s", ErrInvalidInput, c)
		}
		categoryTotal += amt
	}
	if categoryTotal > p.OperationalAllocated {
		return nil, fmt.Errorf("%w: category allocations %s exceed operational pool %s",
			ErrInvalidInput, categoryTotal, p.OperationalAllocated)
	}

	if _, err := e.store.GetBudget(p.FiscalYear); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrBudgetExists, p.FiscalYear)
	}

	b := &model.BudgetRecord{
		FiscalYear:     p.FiscalYear,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		TotalAllocated: p.TotalAllocated,
		Salary:         model.SalaryPool{Allocated: p.SalaryAllocated},
		Operational:    model.OperationalPool{Allocated: p.OperationalAllocated},
		Categories:     make(map[model.Category]*model.CategoryPool),
		Status:         model.BudgetDraft,
		CreatedAt:      e.now(),
	}
	for _, c := range model.Categories {
		b.Categories[c] = &model.CategoryPool{Category: c, Allocated: p.CategoryAllocations[c]}
	}

	if err := e.store.CreateBudget(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Activate transitions a draft budget to active, closing any currently active
// budget atomically. A budget can only be superseded by one for a later
// fiscal year.
func (e *Engine) Activate(fiscalYear string) error {
	e.activateMu.Lock()
	defer e.activateMu.Unlock()

	target, err := e.store.GetBudget(fiscalYear)
	if err != nil {
		return fmt.Errorf("loading budget %s: %w", fiscalYear, err)
	}
	if target.Status != model.BudgetDraft {
		return fmt.Errorf("%w: %s is %s", ErrNotDraft, fiscalYear, target.Status)
	}

	current, err := e.store.ActiveBudget()
	if err == nil && !target.StartDate.After(current.StartDate) {
		return fmt.Errorf("%w: %s does not supersede active budget %s",
			ErrInvalidInput, fiscalYear, current.FiscalYear)
	}

	if err := e.store.ActivateBudget(fiscalYear, e.now()); err != nil {
		return err
	}

	e.notify(Event{Type: EventBudgetActivated, FiscalYear: fiscalYear, At: e.now()})
	return nil
}

// ActiveBudget returns the currently active budget, freshly loaded.
func (e *Engine) ActiveBudget() (*model.BudgetRecord, error) {
	b, err := e.store.ActiveBudget()
	if err != nil {
		return nil, ErrNoActiveBudget
	}
	return b, nil
}

// AddEngineer registers a salaried engineer on the active budget.
func (e *Engine) AddEngineer(ref string, monthlySalary money.Paise, joined time.Time) error {
	if ref == "" {
		return fmt.Errorf("%w: engineer ref required", ErrInvalidInput)
	}
	if monthlySalary <= 0 {
		return fmt.Errorf("%w: monthly salary must be positive", ErrInvalidInput)
	}

	b, err := e.ActiveBudget()
	if err != nil {
		return err
	}

	l := e.budgetLock(b.FiscalYear)
	l.record.Lock()
	defer l.record.Unlock()

	for _, eng := range b.Engineers {
		if eng.Ref == ref {
			return fmt.Errorf("%w: %s", ErrDuplicateEngineer, ref)
		}
	}

	err = e.store.AddEngineer(b.FiscalYear, model.Engineer{
		Ref:           ref,
		MonthlySalary: monthlySalary,
		JoinedDate:    joined,
		Active:        true,
	})
	// The loop above works off the budget loaded before the lock; the
	// engineers primary key catches a ref registered since then.
	if errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("%w: %s", ErrDuplicateEngineer, ref)
	}
	return err
}

// SetEngineerActive flips an engineer's active flag on the active budget.
// Deactivated engineers keep their history but drop out of future payroll.
func (e *Engine) SetEngineerActive(ref string, active bool) error {
	b, err := e.ActiveBudget()
	if err != nil {
		return err
	}

	l := e.budgetLock(b.FiscalYear)
	l.record.Lock()
	defer l.record.Unlock()

	return e.store.SetEngineerActive(b.FiscalYear, ref, active)
}
