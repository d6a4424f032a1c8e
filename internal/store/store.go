// Package store provides the SQLite system of record for budgets, bindings,
// and payroll receipts.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencivic/civiledger/internal/model"
	"github.com/opencivic/civiledger/internal/money"

	_ "modernc.org/sqlite" // register sqlite driver
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate indicates an insert collided with an existing natural key.
var ErrDuplicate = errors.New("store: duplicate")

// isUniqueViolation recognizes sqlite unique-constraint failures, which is
// how a lost duplicate-insert race surfaces from the driver.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Store wraps the ledger database. Mutating methods each run in their own
// transaction; invariant checks live in the ledger engine, which serializes
// callers before touching the store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the ledger database.
func (s *Store) Close() error {
	return s.db.Close()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s.String)
	return t
}

// CreateBudget inserts a draft budget and its full set of category pools.
func (s *Store) CreateBudget(b *model.BudgetRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT INTO budgets
		(fiscal_year, start_date, end_date, total_allocated,
		 salary_allocated, salary_spent, operational_allocated,
		 status, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		b.FiscalYear, fmtTime(b.StartDate), fmtTime(b.EndDate), int64(b.TotalAllocated),
		int64(b.Salary.Allocated), int64(b.Operational.Allocated),
		string(b.Status), fmtTime(b.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting budget %s: %w", b.FiscalYear, err)
	}

	for _, c := range model.Categories {
		var allocated int64
		if p, ok := b.Categories[c]; ok {
			allocated = int64(p.Allocated)
		}
		_, err = tx.Exec(`INSERT INTO category_pools (fiscal_year, category, allocated)
			VALUES (?, ?, ?)`, b.FiscalYear, string(c), allocated)
		if err != nil {
			return fmt.Errorf("inserting %s pool: %w", c, err)
		}
	}

	return tx.Commit()
}

// GetBudget loads one budget with category pools, engineers, payroll history,
// and the derived operational projections.
func (s *Store) GetBudget(fiscalYear string) (*model.BudgetRecord, error) {
	return s.getBudgetWhere("fiscal_year = ?", fiscalYear)
}

// ActiveBudget loads the single active budget, or ErrNotFound if none.
// Always queried, never cached: concurrent admin sessions may activate a
// successor at any time.
func (s *Store) ActiveBudget() (*model.BudgetRecord, error) {
	return s.getBudgetWhere("status = 'active'")
}

func (s *Store) getBudgetWhere(where string, args ...any) (*model.BudgetRecord, error) {
	row := s.db.QueryRow(`SELECT fiscal_year, start_date, end_date, total_allocated,
		salary_allocated, salary_spent, operational_allocated, status,
		created_at, activated_at, closed_at
		FROM budgets WHERE `+where, args...)

	b := &model.BudgetRecord{Categories: make(map[model.Category]*model.CategoryPool)}
	var start, end, created sql.NullString
	var activated, closed sql.NullString
	var total, salAlloc, salSpent, opAlloc int64
	var status string

	err := row.Scan(&b.FiscalYear, &start, &end, &total,
		&salAlloc, &salSpent, &opAlloc, &status, &created, &activated, &closed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b.StartDate = parseTime(start)
	b.EndDate = parseTime(end)
	b.CreatedAt = parseTime(created)
	b.ActivatedAt = parseTime(activated)
	b.ClosedAt = parseTime(closed)
	b.TotalAllocated = money.Paise(total)
	b.Salary = model.SalaryPool{Allocated: money.Paise(salAlloc), Spent: money.Paise(salSpent)}
	b.Operational.Allocated = money.Paise(opAlloc)
	b.Status = model.BudgetStatus(status)

	if err := s.loadPools(b); err != nil {
		return nil, err
	}
	if err := s.loadEngineers(b); err != nil {
		return nil, err
	}
	if err := s.loadReceipts(b); err != nil {
		return nil, err
	}

	// Operational pending = reserved amounts awaiting review.
	var pending sql.NullInt64
	err = s.db.QueryRow(`SELECT COALESCE(SUM(reserved_amount), 0) FROM bindings
		WHERE fiscal_year = ? AND state = 'reserved' AND reviewable = 1`, b.FiscalYear).Scan(&pending)
	if err != nil {
		return nil, err
	}
	b.Operational.Pending = money.Paise(pending.Int64)

	return b, nil
}

func (s *Store) loadPools(b *model.BudgetRecord) error {
	rows, err := s.db.Query(`SELECT category, allocated, spent, pending, grievance_count
		FROM category_pools WHERE fiscal_year = ?`, b.FiscalYear)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var cat string
		var allocated, spent, pending int64
		var count int
		if err := rows.Scan(&cat, &allocated, &spent, &pending, &count); err != nil {
			return err
		}
		p := &model.CategoryPool{
			Category:       model.Category(cat),
			Allocated:      money.Paise(allocated),
			Spent:          money.Paise(spent),
			Pending:        money.Paise(pending),
			GrievanceCount: count,
		}
		b.Categories[p.Category] = p
		b.Operational.Spent += p.Spent
		b.Operational.Reserved += p.Pending
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// Every known category is always present, even if the schema predates it.
	for _, c := range model.Categories {
		if _, ok := b.Categories[c]; !ok {
			b.Categories[c] = &model.CategoryPool{Category: c}
		}
	}
	return nil
}

func (s *Store) loadEngineers(b *model.BudgetRecord) error {
	rows, err := s.db.Query(`SELECT engineer_ref, monthly_salary, joined_date, active
		FROM engineers WHERE fiscal_year = ? ORDER BY joined_date, engineer_ref`, b.FiscalYear)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var e model.Engineer
		var salary int64
		var joined sql.NullString
		var active int
		if err := rows.Scan(&e.Ref, &salary, &joined, &active); err != nil {
			return err
		}
		e.MonthlySalary = money.Paise(salary)
		e.JoinedDate = parseTime(joined)
		e.Active = active != 0
		b.Engineers = append(b.Engineers, e)
	}
	return rows.Err()
}

func (s *Store) loadReceipts(b *model.BudgetRecord) error {
	rows, err := s.db.Query(`SELECT year, month, total_amount, engineer_count, processed_at
		FROM payroll_receipts WHERE fiscal_year = ? ORDER BY year, month`, b.FiscalYear)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var r model.PayrollReceipt
		var total int64
		var processed sql.NullString
		if err := rows.Scan(&r.Year, &r.Month, &total, &r.EngineerCount, &processed); err != nil {
			return err
		}
		r.TotalAmount = money.Paise(total)
		r.ProcessedAt = parseTime(processed)
		b.PayrollHistory = append(b.PayrollHistory, r)
	}
	return rows.Err()
}

// ActivateBudget closes any currently active budget and activates fiscalYear,
// atomically. The partial unique index on status backstops the single-active
// invariant if a second writer slips past the engine lock.
func (s *Store) ActivateBudget(fiscalYear string, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`UPDATE budgets SET status = 'closed', closed_at = ?
		WHERE status = 'active'`, fmtTime(at))
	if err != nil {
		return err
	}

	res, err := tx.Exec(`UPDATE budgets SET status = 'active', activated_at = ?
		WHERE fiscal_year = ? AND status = 'draft'`, fmtTime(at), fiscalYear)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// SetCategoryAllocation updates one category pool's allocation.
func (s *Store) SetCategoryAllocation(fiscalYear string, c model.Category, allocated money.Paise) error {
	res, err := s.db.Exec(`UPDATE category_pools SET allocated = ?
		WHERE fiscal_year = ? AND category = ?`, int64(allocated), fiscalYear, string(c))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyReserve records a new binding and the matching category pool hold in
// one transaction.
func (s *Store) ApplyReserve(b *model.Binding) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`UPDATE category_pools
		SET pending = pending + ?, grievance_count = grievance_count + 1
		WHERE fiscal_year = ? AND category = ?`,
		int64(b.ReservedAmount), b.FiscalYear, string(b.Category))
	if err != nil {
		return err
	}

	_, err = tx.Exec(`INSERT INTO bindings
		(id, grievance_ref, fiscal_year, category, reserved_amount, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.GrievanceRef, b.FiscalYear, string(b.Category),
		int64(b.ReservedAmount), string(b.State), fmtTime(b.CreatedAt))
	if isUniqueViolation(err) {
		// A concurrent reserve for the same grievance won the insert.
		return fmt.Errorf("binding for %s: %w", b.GrievanceRef, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("inserting binding for %s: %w", b.GrievanceRef, err)
	}

	return tx.Commit()
}

// ApplySettlement moves a binding to settled and rebalances its category pool
// in one transaction: pending -= reserved, spent += actualSpent.
func (s *Store) ApplySettlement(b *model.Binding, actualSpent money.Paise, notes string, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`UPDATE bindings
		SET state = 'settled', spent_amount = ?, admin_notes = ?, settled_at = ?, reviewable = 0
		WHERE id = ? AND state = 'reserved'`,
		int64(actualSpent), notes, fmtTime(at), b.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Lost the race to a concurrent settlement.
		return ErrNotFound
	}

	_, err = tx.Exec(`UPDATE category_pools
		SET pending = pending - ?, spent = spent + ?
		WHERE fiscal_year = ? AND category = ?`,
		int64(b.ReservedAmount), int64(actualSpent), b.FiscalYear, string(b.Category))
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetBinding loads one binding by id.
func (s *Store) GetBinding(id string) (*model.Binding, error) {
	return s.getBindingWhere("id = ?", id)
}

// GetBindingByGrievance loads one binding by its grievance reference.
func (s *Store) GetBindingByGrievance(grievanceRef string) (*model.Binding, error) {
	return s.getBindingWhere("grievance_ref = ?", grievanceRef)
}

func (s *Store) getBindingWhere(where string, args ...any) (*model.Binding, error) {
	row := s.db.QueryRow(`SELECT id, grievance_ref, fiscal_year, category,
		reserved_amount, spent_amount, state, reviewable, admin_notes, created_at, settled_at
		FROM bindings WHERE `+where, args...)

	b, err := scanBinding(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadBindingDetail(b); err != nil {
		return nil, err
	}
	return b, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBinding(r rowScanner) (*model.Binding, error) {
	b := &model.Binding{}
	var cat, state string
	var reserved, spent int64
	var reviewable int
	var created, settled sql.NullString

	err := r.Scan(&b.ID, &b.GrievanceRef, &b.FiscalYear, &cat,
		&reserved, &spent, &state, &reviewable, &b.AdminNotes, &created, &settled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b.Category = model.Category(cat)
	b.ReservedAmount = money.Paise(reserved)
	b.SpentAmount = money.Paise(spent)
	b.State = model.BindingState(state)
	b.Reviewable = reviewable != 0
	b.CreatedAt = parseTime(created)
	b.SettledAt = parseTime(settled)
	return b, nil
}

func (s *Store) loadBindingDetail(b *model.Binding) error {
	rows, err := s.db.Query(`SELECT description, amount, logged_at
		FROM binding_expenses WHERE binding_id = ? ORDER BY seq`, b.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var e model.ExpenseEntry
		var amount int64
		var logged sql.NullString
		if err := rows.Scan(&e.Description, &amount, &logged); err != nil {
			return err
		}
		e.Amount = money.Paise(amount)
		e.LoggedAt = parseTime(logged)
		b.Expenses = append(b.Expenses, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	billRows, err := s.db.Query(`SELECT bill_ref FROM binding_bills
		WHERE binding_id = ? ORDER BY bill_ref`, b.ID)
	if err != nil {
		return err
	}
	defer func() { _ = billRows.Close() }()

	for billRows.Next() {
		var ref string
		if err := billRows.Scan(&ref); err != nil {
			return err
		}
		b.BillRefs = append(b.BillRefs, ref)
	}
	return billRows.Err()
}

// ListBindings returns bindings for a fiscal year, optionally filtered by state.
func (s *Store) ListBindings(fiscalYear string, state model.BindingState) ([]*model.Binding, error) {
	query := `SELECT id, grievance_ref, fiscal_year, category,
		reserved_amount, spent_amount, state, reviewable, admin_notes, created_at, settled_at
		FROM bindings WHERE fiscal_year = ?`
	args := []any{fiscalYear}
	if state != "" {
		query += " AND state = ?"
		args = append(args, string(state))
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Binding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, b := range out {
		if err := s.loadBindingDetail(b); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AppendExpense adds one expense entry and bumps the binding's accrued total.
// The accrual UPDATE carries a state guard so a settled binding is never
// mutated, whatever the caller saw before the write.
func (s *Store) AppendExpense(bindingID string, e model.ExpenseEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`UPDATE bindings SET spent_amount = spent_amount + ?
		WHERE id = ? AND state = 'reserved'`, int64(e.Amount), bindingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Missing binding, or it settled under us.
		return ErrNotFound
	}

	var next int
	err = tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) + 1 FROM binding_expenses
		WHERE binding_id = ?`, bindingID).Scan(&next)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`INSERT INTO binding_expenses (binding_id, seq, description, amount, logged_at)
		VALUES (?, ?, ?, ?, ?)`, bindingID, next, e.Description, int64(e.Amount), fmtTime(e.LoggedAt))
	if err != nil {
		return err
	}

	return tx.Commit()
}

// AttachBill records one bill evidence reference against a still-reserved
// binding. Duplicate refs are ignored.
func (s *Store) AttachBill(bindingID, billRef string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var state string
	err = tx.QueryRow(`SELECT state FROM bindings WHERE id = ?`, bindingID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if state != string(model.BindingReserved) {
		return ErrNotFound
	}

	_, err = tx.Exec(`INSERT OR IGNORE INTO binding_bills (binding_id, bill_ref)
		VALUES (?, ?)`, bindingID, billRef)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// SetReviewable marks a binding's grievance as completed-awaiting-review (or not).
func (s *Store) SetReviewable(grievanceRef string, reviewable bool) error {
	v := 0
	if reviewable {
		v = 1
	}
	res, err := s.db.Exec(`UPDATE bindings SET reviewable = ?
		WHERE grievance_ref = ? AND state = 'reserved'`, v, grievanceRef)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddEngineer inserts one engineer row.
func (s *Store) AddEngineer(fiscalYear string, e model.Engineer) error {
	active := 0
	if e.Active {
		active = 1
	}
	_, err := s.db.Exec(`INSERT INTO engineers
		(fiscal_year, engineer_ref, monthly_salary, joined_date, active)
		VALUES (?, ?, ?, ?, ?)`,
		fiscalYear, e.Ref, int64(e.MonthlySalary), fmtTime(e.JoinedDate), active)
	if isUniqueViolation(err) {
		return fmt.Errorf("engineer %s: %w", e.Ref, ErrDuplicate)
	}
	return err
}

// SetEngineerActive flips an engineer's active flag.
func (s *Store) SetEngineerActive(fiscalYear, ref string, active bool) error {
	v := 0
	if active {
		v = 1
	}
	res, err := s.db.Exec(`UPDATE engineers SET active = ?
		WHERE fiscal_year = ? AND engineer_ref = ?`, v, fiscalYear, ref)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetReceipt loads one payroll receipt by its (month, year) key.
func (s *Store) GetReceipt(month, year int) (*model.PayrollReceipt, error) {
	row := s.db.QueryRow(`SELECT year, month, total_amount, engineer_count, processed_at
		FROM payroll_receipts WHERE year = ? AND month = ?`, year, month)

	var r model.PayrollReceipt
	var total int64
	var processed sql.NullString
	err := row.Scan(&r.Year, &r.Month, &total, &r.EngineerCount, &processed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.TotalAmount = money.Paise(total)
	r.ProcessedAt = parseTime(processed)
	return &r, nil
}

// ApplyPayroll appends a receipt and debits the salary pool in one
// transaction. The (year, month) primary key rejects a double run even if two
// processes race.
func (s *Store) ApplyPayroll(fiscalYear string, r model.PayrollReceipt) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT INTO payroll_receipts
		(year, month, fiscal_year, total_amount, engineer_count, processed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.Year, r.Month, fiscalYear, int64(r.TotalAmount), r.EngineerCount, fmtTime(r.ProcessedAt))
	if err != nil {
		return fmt.Errorf("inserting receipt %d-%02d: %w", r.Year, r.Month, err)
	}

	_, err = tx.Exec(`UPDATE budgets SET salary_spent = salary_spent + ?
		WHERE fiscal_year = ?`, int64(r.TotalAmount), fiscalYear)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// AddAdjustment appends a correction audit row and applies its signed amount
// to the category pool's spent total.
func (s *Store) AddAdjustment(a *model.Adjustment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT INTO adjustments
		(id, binding_id, grievance_ref, category, amount, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.BindingID, a.GrievanceRef, string(a.Category), int64(a.Amount), a.Note, fmtTime(a.CreatedAt))
	if err != nil {
		return err
	}

	var fiscalYear string
	err = tx.QueryRow(`SELECT fiscal_year FROM bindings WHERE id = ?`, a.BindingID).Scan(&fiscalYear)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`UPDATE category_pools SET spent = spent + ?
		WHERE fiscal_year = ? AND category = ?`,
		int64(a.Amount), fiscalYear, string(a.Category))
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ListAdjustments returns the audit trail for one binding.
func (s *Store) ListAdjustments(bindingID string) ([]*model.Adjustment, error) {
	rows, err := s.db.Query(`SELECT id, binding_id, grievance_ref, category, amount, note, created_at
		FROM adjustments WHERE binding_id = ? ORDER BY created_at, id`, bindingID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Adjustment
	for rows.Next() {
		a := &model.Adjustment{}
		var cat string
		var amount int64
		var created sql.NullString
		if err := rows.Scan(&a.ID, &a.BindingID, &a.GrievanceRef, &cat, &amount, &a.Note, &created); err != nil {
			return nil, err
		}
		a.Category = model.Category(cat)
		a.Amount = money.Paise(amount)
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListBudgets returns fiscal year and status for every budget, newest first.
func (s *Store) ListBudgets() ([]*model.BudgetRecord, error) {
	rows, err := s.db.Query(`SELECT fiscal_year FROM budgets ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var years []string
	for rows.Next() {
		var fy string
		if err := rows.Scan(&fy); err != nil {
			return nil, err
		}
		years = append(years, fy)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []*model.BudgetRecord
	for _, fy := range years {
		b, err := s.GetBudget(fy)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
