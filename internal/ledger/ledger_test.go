package ledger

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/opencivic/civiledger/internal/model"
	"github.com/opencivic/civiledger/internal/money"
	"github.com/opencivic/civiledger/internal/store"
)

type captureNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *captureNotifier) Notify(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *captureNotifier) ofType(t EventType) []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Event
	for _, ev := range n.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newTestEngine(t *testing.T) (*Engine, *captureNotifier) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	notifier := &captureNotifier{}
	return New(st, notifier), notifier
}

// activeBudget creates and activates the standard test budget:
// total 1,000,000 / salary 400,000 / operational 600,000 / water 100,000.
func activeBudget(t *testing.T, e *Engine) *model.BudgetRecord {
	t.Helper()

	_, err := e.CreateBudget(CreateBudgetParams{
		FiscalYear:           "2026-27",
		StartDate:            time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:              time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC),
		TotalAllocated:       money.FromRupees(1_000_000),
		SalaryAllocated:      money.FromRupees(400_000),
		OperationalAllocated: money.FromRupees(600_000),
		CategoryAllocations: map[model.Category]money.Paise{
			model.CategoryWater: money.FromRupees(100_000),
			model.CategoryRoads: money.FromRupees(150_000),
		},
	})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if err := e.Activate("2026-27"); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	b, err := e.ActiveBudget()
	if err != nil {
		t.Fatalf("ActiveBudget: %v", err)
	}
	return b
}

func TestEndToEndSettlement(t *testing.T) {
	e, notifier := newTestEngine(t)
	activeBudget(t, e)

	binding, err := e.Reserve("G1", model.CategoryWater, money.FromRupees(20_000))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	if err := e.AddExpense("G1", "pipe replacement", money.FromRupees(12_000)); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if err := e.AddExpense("G1", "labour", money.FromRupees(3_000)); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if err := e.AttachBill("G1", "BILL-2026-0001"); err != nil {
		t.Fatalf("AttachBill: %v", err)
	}

	res, err := e.ConfirmSingle(binding.ID, DecisionApprove, "verified on site")
	if err != nil {
		t.Fatalf("ConfirmSingle: %v", err)
	}
	if res.ActualSpent != money.FromRupees(15_000) {
		t.Fatalf("ActualSpent = %s, want ₹15,000", res.ActualSpent)
	}
	if res.Returned != money.FromRupees(5_000) {
		t.Fatalf("Returned = %s, want ₹5,000", res.Returned)
	}
	if res.Overrun {
		t.Fatal("unexpected overrun warning")
	}

	b, err := e.ActiveBudget()
	if err != nil {
		t.Fatalf("ActiveBudget: %v", err)
	}
	water := b.Pool(model.CategoryWater)
	if water.Spent != money.FromRupees(15_000) {
		t.Fatalf("water spent = %s, want ₹15,000", water.Spent)
	}
	if water.Pending != 0 {
		t.Fatalf("water pending = %s, want 0", water.Pending)
	}
	wantAvail := money.FromRupees(600_000 - 15_000)
	if b.Operational.Available() != wantAvail {
		t.Fatalf("operational available = %s, want %s", b.Operational.Available(), wantAvail)
	}

	if got := notifier.ofType(EventTaskSettled); len(got) != 1 {
		t.Fatalf("TaskSettled events = %d, want 1", len(got))
	}
}

func TestSettlementDeltaCorrectness(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)

	binding, err := e.Reserve("G-delta", model.CategoryWater, 10_000)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := e.AddExpense("G-delta", "works", 7_000); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	res, err := e.ConfirmSingle(binding.ID, DecisionApprove, "")
	if err != nil {
		t.Fatalf("ConfirmSingle: %v", err)
	}
	if res.Returned != 3_000 {
		t.Fatalf("Returned = %d, want 3000", res.Returned)
	}

	b, _ := e.ActiveBudget()
	water := b.Pool(model.CategoryWater)
	if water.Spent != 7_000 {
		t.Fatalf("spent = %d, want 7000", water.Spent)
	}
	if water.Pending != 0 {
		t.Fatalf("pending = %d, want 0", water.Pending)
	}
}

func TestReserveUnconfiguredCategory(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)

	// parks has no allocation in the fixture.
	_, err := e.Reserve("G2", model.CategoryParks, money.FromRupees(1_000))
	if !errors.Is(err, ErrCategoryNotConfigured) {
		t.Fatalf("err = %v, want ErrCategoryNotConfigured", err)
	}
}

func TestReserveInsufficientFunds(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)

	if _, err := e.Reserve("G3", model.CategoryWater, money.FromRupees(80_000)); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	_, err := e.Reserve("G4", model.CategoryWater, money.FromRupees(30_000))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	// Pool unchanged by the failed reserve.
	b, _ := e.ActiveBudget()
	if got := b.Pool(model.CategoryWater).Pending; got != money.FromRupees(80_000) {
		t.Fatalf("pending = %s, want ₹80,000", got)
	}
}

func TestReserveDuplicateGrievance(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)

	if _, err := e.Reserve("G5", model.CategoryWater, 1_000); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	_, err := e.Reserve("G5", model.CategoryRoads, 1_000)
	if !errors.Is(err, ErrDuplicateGrievance) {
		t.Fatalf("err = %v, want ErrDuplicateGrievance", err)
	}
}

func TestConcurrentReservationsConserveFunds(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)

	// water has 100,000 allocated; ten concurrent 20,000 holds — exactly
	// five can fit.
	const n = 10
	results := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, results[i] = e.Reserve(
				"G-conc-"+string(rune('a'+i)),
				model.CategoryWater,
				money.FromRupees(20_000),
			)
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 5 || insufficient != 5 {
		t.Fatalf("ok = %d, insufficient = %d, want 5/5", ok, insufficient)
	}

	b, _ := e.ActiveBudget()
	water := b.Pool(model.CategoryWater)
	if water.Pending != water.Allocated {
		t.Fatalf("pending = %s, want full allocation %s", water.Pending, water.Allocated)
	}
	if water.Spent+water.Pending > water.Allocated {
		t.Fatal("conservation violated: spent+pending > allocated")
	}
}

func TestUpdateAllocationShrinkGuard(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)

	if _, err := e.Reserve("G6", model.CategoryWater, money.FromRupees(40_000)); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	err := e.UpdateAllocation(model.CategoryWater, money.FromRupees(30_000))
	if !errors.Is(err, ErrBelowCommitted) {
		t.Fatalf("err = %v, want ErrBelowCommitted", err)
	}

	// Pool left unchanged.
	b, _ := e.ActiveBudget()
	if got := b.Pool(model.CategoryWater).Allocated; got != money.FromRupees(100_000) {
		t.Fatalf("allocated = %s, want ₹1,00,000", got)
	}

	// Shrinking to exactly the committed amount is allowed.
	if err := e.UpdateAllocation(model.CategoryWater, money.FromRupees(40_000)); err != nil {
		t.Fatalf("shrink to committed: %v", err)
	}
}

func TestUpdateAllocationOpensCategory(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)

	if err := e.UpdateAllocation(model.CategoryParks, money.FromRupees(10_000)); err != nil {
		t.Fatalf("UpdateAllocation: %v", err)
	}
	if _, err := e.Reserve("G7", model.CategoryParks, money.FromRupees(5_000)); err != nil {
		t.Fatalf("Reserve after opening category: %v", err)
	}
}

func TestSingleActiveBudget(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)

	_, err := e.CreateBudget(CreateBudgetParams{
		FiscalYear:           "2027-28",
		StartDate:            time.Date(2027, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:              time.Date(2028, 3, 31, 0, 0, 0, 0, time.UTC),
		TotalAllocated:       money.FromRupees(1_200_000),
		SalaryAllocated:      money.FromRupees(500_000),
		OperationalAllocated: money.FromRupees(700_000),
	})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if err := e.Activate("2027-28"); err != nil {
		t.Fatalf("Activate successor: %v", err)
	}

	b, err := e.ActiveBudget()
	if err != nil {
		t.Fatalf("ActiveBudget: %v", err)
	}
	if b.FiscalYear != "2027-28" {
		t.Fatalf("active = %s, want 2027-28", b.FiscalYear)
	}

	// Activation is terminal: the closed budget cannot come back.
	if err := e.Activate("2026-27"); !errors.Is(err, ErrNotDraft) {
		t.Fatalf("reactivating closed budget: err = %v, want ErrNotDraft", err)
	}
}

func TestActivateRejectsEarlierFiscalYear(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)

	_, err := e.CreateBudget(CreateBudgetParams{
		FiscalYear:           "2025-26",
		StartDate:            time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:              time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		TotalAllocated:       money.FromRupees(900_000),
		SalaryAllocated:      money.FromRupees(300_000),
		OperationalAllocated: money.FromRupees(600_000),
	})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if err := e.Activate("2025-26"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestOverspendSettlesWithOverrunWarning(t *testing.T) {
	e, notifier := newTestEngine(t)
	activeBudget(t, e)

	binding, err := e.Reserve("G8", model.CategoryWater, money.FromRupees(10_000))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := e.AddExpense("G8", "emergency repair", money.FromRupees(14_000)); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	res, err := e.ConfirmSingle(binding.ID, DecisionApprove, "")
	if err != nil {
		t.Fatalf("ConfirmSingle: %v", err)
	}
	if !res.Overrun {
		t.Fatal("expected overrun warning")
	}
	if res.Returned != -money.FromRupees(4_000) {
		t.Fatalf("Returned = %s, want -₹4,000", res.Returned)
	}

	if got := notifier.ofType(EventBudgetOverrun); len(got) != 1 {
		t.Fatalf("BudgetOverrun events = %d, want 1", len(got))
	}

	b, _ := e.ActiveBudget()
	water := b.Pool(model.CategoryWater)
	if water.Spent != money.FromRupees(14_000) {
		t.Fatalf("spent = %s, want ₹14,000", water.Spent)
	}
	if water.Pending != 0 {
		t.Fatalf("pending = %s, want 0", water.Pending)
	}
}

func TestRejectReleasesFullReservation(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)

	binding, err := e.Reserve("G9", model.CategoryWater, money.FromRupees(25_000))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := e.AddExpense("G9", "disputed work", money.FromRupees(9_000)); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	res, err := e.ConfirmSingle(binding.ID, DecisionReject, "work not done")
	if err != nil {
		t.Fatalf("ConfirmSingle: %v", err)
	}
	if res.ActualSpent != 0 {
		t.Fatalf("ActualSpent = %s, want 0", res.ActualSpent)
	}
	if res.Returned != money.FromRupees(25_000) {
		t.Fatalf("Returned = %s, want full reservation", res.Returned)
	}

	b, _ := e.ActiveBudget()
	water := b.Pool(model.CategoryWater)
	if water.Spent != 0 || water.Pending != 0 {
		t.Fatalf("pool = spent %s / pending %s, want 0/0", water.Spent, water.Pending)
	}
}

func TestReworkLeavesMoneyUntouched(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)

	binding, err := e.Reserve("G10", model.CategoryWater, money.FromRupees(5_000))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := e.MarkReviewable("G10"); err != nil {
		t.Fatalf("MarkReviewable: %v", err)
	}

	res, err := e.ConfirmSingle(binding.ID, DecisionRework, "incomplete")
	if err != nil {
		t.Fatalf("ConfirmSingle: %v", err)
	}
	if res.ActualSpent != 0 || res.Returned != 0 {
		t.Fatal("rework must not move money")
	}

	got, err := e.store.GetBinding(binding.ID)
	if err != nil {
		t.Fatalf("GetBinding: %v", err)
	}
	if got.State != model.BindingReserved {
		t.Fatalf("state = %s, want reserved", got.State)
	}
	if got.Reviewable {
		t.Fatal("rework must clear the review mark")
	}
}

func TestSettledBindingIsTerminal(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)

	binding, err := e.Reserve("G11", model.CategoryWater, money.FromRupees(2_000))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := e.ConfirmSingle(binding.ID, DecisionApprove, ""); err != nil {
		t.Fatalf("ConfirmSingle: %v", err)
	}

	if _, err := e.ConfirmSingle(binding.ID, DecisionApprove, ""); !errors.Is(err, ErrBindingAlreadySettled) {
		t.Fatalf("second confirm: err = %v, want ErrBindingAlreadySettled", err)
	}
	if err := e.AddExpense("G11", "late bill", 1_000); !errors.Is(err, ErrBindingAlreadySettled) {
		t.Fatalf("expense after settle: err = %v, want ErrBindingAlreadySettled", err)
	}
	if err := e.AttachBill("G11", "BILL-LATE"); !errors.Is(err, ErrBindingAlreadySettled) {
		t.Fatalf("bill after settle: err = %v, want ErrBindingAlreadySettled", err)
	}
}

// An expense racing a settlement must either land before the binding settles
// (and be counted in the actual spend) or be rejected outright. A settled
// binding's spend never drifts from its breakdown.
func TestExpenseRacingSettlement(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	e := New(st, nil)
	activeBudget(t, e)

	binding, err := e.Reserve("G30", model.CategoryWater, money.FromRupees(10_000))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := e.AddExpense("G30", "materials", money.FromRupees(6_000)); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	var expenseErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		expenseErr = e.AddExpense("G30", "labour", money.FromRupees(2_000))
	}()

	res, err := e.ConfirmSingle(binding.ID, DecisionApprove, "")
	if err != nil {
		t.Fatalf("ConfirmSingle: %v", err)
	}
	<-done

	got, err := st.GetBinding(binding.ID)
	if err != nil {
		t.Fatalf("GetBinding: %v", err)
	}
	if got.State != model.BindingSettled {
		t.Fatalf("State = %s, want settled", got.State)
	}
	if got.SpentAmount != got.ExpenseTotal() {
		t.Fatalf("SpentAmount = %s but breakdown sums to %s", got.SpentAmount, got.ExpenseTotal())
	}
	if got.SpentAmount != res.ActualSpent {
		t.Fatalf("SpentAmount = %s but settlement charged %s", got.SpentAmount, res.ActualSpent)
	}

	switch {
	case expenseErr == nil:
		if res.ActualSpent != money.FromRupees(8_000) {
			t.Fatalf("expense landed first but ActualSpent = %s, want ₹8,000", res.ActualSpent)
		}
	case errors.Is(expenseErr, ErrBindingAlreadySettled):
		if res.ActualSpent != money.FromRupees(6_000) {
			t.Fatalf("expense lost the race but ActualSpent = %s, want ₹6,000", res.ActualSpent)
		}
	default:
		t.Fatalf("racing expense: err = %v", expenseErr)
	}

	b, err := e.ActiveBudget()
	if err != nil {
		t.Fatalf("ActiveBudget: %v", err)
	}
	if spent := b.Pool(model.CategoryWater).Spent; spent != res.ActualSpent {
		t.Fatalf("pool spent = %s, want %s", spent, res.ActualSpent)
	}
}

func TestConfirmAllBulkIndependence(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)

	var ids []string
	for _, ref := range []string{"B1", "B2", "B3"} {
		binding, err := e.Reserve(ref, model.CategoryWater, money.FromRupees(10_000))
		if err != nil {
			t.Fatalf("Reserve %s: %v", ref, err)
		}
		if err := e.AddExpense(ref, "work", money.FromRupees(6_000)); err != nil {
			t.Fatalf("AddExpense %s: %v", ref, err)
		}
		if err := e.MarkReviewable(ref); err != nil {
			t.Fatalf("MarkReviewable %s: %v", ref, err)
		}
		ids = append(ids, binding.ID)
	}

	// B2 is settled out from under the batch by a single confirmation.
	if _, err := e.ConfirmSingle(ids[1], DecisionApprove, "spot check"); err != nil {
		t.Fatalf("concurrent single confirm: %v", err)
	}

	res, err := e.ConfirmAll(ids, "monthly review")
	if err != nil {
		t.Fatalf("ConfirmAll: %v", err)
	}
	if res.TotalCount != 3 {
		t.Fatalf("TotalCount = %d, want 3", res.TotalCount)
	}
	if res.ConfirmedCount != 2 {
		t.Fatalf("ConfirmedCount = %d, want 2", res.ConfirmedCount)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("Errors = %d, want 1", len(res.Errors))
	}
	if !errors.Is(res.Errors[0].Err, ErrBindingAlreadySettled) {
		t.Fatalf("batch error = %v, want ErrBindingAlreadySettled", res.Errors[0].Err)
	}
	if res.TotalSpent != money.FromRupees(12_000) {
		t.Fatalf("TotalSpent = %s, want ₹12,000", res.TotalSpent)
	}
	if res.TotalReturned != money.FromRupees(8_000) {
		t.Fatalf("TotalReturned = %s, want ₹8,000", res.TotalReturned)
	}

	// All three settlements landed exactly once.
	b, _ := e.ActiveBudget()
	water := b.Pool(model.CategoryWater)
	if water.Spent != money.FromRupees(18_000) {
		t.Fatalf("spent = %s, want ₹18,000", water.Spent)
	}
	if water.Pending != 0 {
		t.Fatalf("pending = %s, want 0", water.Pending)
	}
}

func TestConfirmAllSweepsOnlyReviewable(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)

	if _, err := e.Reserve("R1", model.CategoryWater, 5_000); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := e.Reserve("R2", model.CategoryWater, 5_000); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := e.MarkReviewable("R1"); err != nil {
		t.Fatalf("MarkReviewable: %v", err)
	}

	res, err := e.ConfirmAll(nil, "")
	if err != nil {
		t.Fatalf("ConfirmAll: %v", err)
	}
	if res.TotalCount != 1 || res.ConfirmedCount != 1 {
		t.Fatalf("counts = %d/%d, want 1/1", res.ConfirmedCount, res.TotalCount)
	}

	still, err := e.store.GetBindingByGrievance("R2")
	if err != nil {
		t.Fatalf("GetBindingByGrievance: %v", err)
	}
	if still.State != model.BindingReserved {
		t.Fatalf("R2 state = %s, want reserved", still.State)
	}
}

func TestAdjustmentAgainstSettledBinding(t *testing.T) {
	e, _ := newTestEngine(t)
	activeBudget(t, e)

	binding, err := e.Reserve("G12", model.CategoryWater, money.FromRupees(10_000))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := e.AddExpense("G12", "work", money.FromRupees(8_000)); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	// Adjusting an open binding is rejected.
	if _, err := e.Adjust("G12", money.FromRupees(500), "early"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("adjust before settle: err = %v, want ErrInvalidInput", err)
	}

	if _, err := e.ConfirmSingle(binding.ID, DecisionApprove, ""); err != nil {
		t.Fatalf("ConfirmSingle: %v", err)
	}

	adj, err := e.Adjust("G12", -money.FromRupees(1_000), "vendor refund")
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if adj.Amount != -money.FromRupees(1_000) {
		t.Fatalf("adjustment amount = %s, want -₹1,000", adj.Amount)
	}

	b, _ := e.ActiveBudget()
	if got := b.Pool(model.CategoryWater).Spent; got != money.FromRupees(7_000) {
		t.Fatalf("spent after adjustment = %s, want ₹7,000", got)
	}

	trail, err := e.store.ListAdjustments(binding.ID)
	if err != nil {
		t.Fatalf("ListAdjustments: %v", err)
	}
	if len(trail) != 1 {
		t.Fatalf("audit trail = %d rows, want 1", len(trail))
	}
}
