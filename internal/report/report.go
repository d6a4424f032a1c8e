// Package report aggregates budget and binding data for the status and
// summary views and the daemon snapshot.
package report

import (
	"sort"

	"github.com/opencivic/civiledger/internal/model"
	"github.com/opencivic/civiledger/internal/money"
)

// CategoryUtilization is one category row of the utilization table.
type CategoryUtilization struct {
	Category       model.Category
	Allocated      money.Paise
	Spent          money.Paise
	Pending        money.Paise
	Available      money.Paise
	GrievanceCount int
	UsedPercent    float64 // (spent+pending)/allocated; 0 for unset pools
	Overrun        bool
}

// Utilization computes per-category rows in display order.
func Utilization(b *model.BudgetRecord) []CategoryUtilization {
	rows := make([]CategoryUtilization, 0, len(model.Categories))
	for _, c := range model.Categories {
		p := b.Pool(c)
		row := CategoryUtilization{
			Category:       c,
			Allocated:      p.Allocated,
			Spent:          p.Spent,
			Pending:        p.Pending,
			Available:      p.Available(),
			GrievanceCount: p.GrievanceCount,
			Overrun:        p.Overrun(),
		}
		if p.Allocated > 0 {
			row.UsedPercent = float64(p.Spent+p.Pending) / float64(p.Allocated)
		}
		rows = append(rows, row)
	}
	return rows
}

// Summary is the top-level budget aggregate.
type Summary struct {
	FiscalYear           string
	Status               model.BudgetStatus
	TotalAllocated       money.Paise
	SalaryAllocated      money.Paise
	SalarySpent          money.Paise
	SalaryRemaining      money.Paise
	OperationalAllocated money.Paise
	OperationalSpent     money.Paise
	OperationalPending   money.Paise
	OperationalReserved  money.Paise
	OperationalAvailable money.Paise
	OpenBindings         int
	ReviewableBindings   int
	SettledBindings      int
	ActiveEngineers      int
	PayrollRuns          int
	PayrollTotal         money.Paise
}

// Summarize folds a budget and its bindings into a Summary.
func Summarize(b *model.BudgetRecord, bindings []*model.Binding) Summary {
	s := Summary{
		FiscalYear:           b.FiscalYear,
		Status:               b.Status,
		TotalAllocated:       b.TotalAllocated,
		SalaryAllocated:      b.Salary.Allocated,
		SalarySpent:          b.Salary.Spent,
		SalaryRemaining:      b.Salary.Remaining(),
		OperationalAllocated: b.Operational.Allocated,
		OperationalSpent:     b.Operational.Spent,
		OperationalPending:   b.Operational.Pending,
		OperationalReserved:  b.Operational.Reserved,
		OperationalAvailable: b.Operational.Available(),
	}

	for _, binding := range bindings {
		switch binding.State {
		case model.BindingReserved:
			s.OpenBindings++
			if binding.Reviewable {
				s.ReviewableBindings++
			}
		case model.BindingSettled:
			s.SettledBindings++
		}
	}

	for _, eng := range b.Engineers {
		if eng.Active {
			s.ActiveEngineers++
		}
	}
	for _, r := range b.PayrollHistory {
		s.PayrollRuns++
		s.PayrollTotal += r.TotalAmount
	}

	return s
}

// MonthlySpend is settled spend bucketed by calendar month.
type MonthlySpend struct {
	Year    int
	Month   int
	Settled int
	Spent   money.Paise
}

// MonthlyBreakdown buckets settled bindings by settlement month, oldest first.
func MonthlyBreakdown(bindings []*model.Binding) []MonthlySpend {
	type key struct{ year, month int }
	buckets := make(map[key]*MonthlySpend)

	for _, b := range bindings {
		if b.State != model.BindingSettled || b.SettledAt.IsZero() {
			continue
		}
		k := key{b.SettledAt.Year(), int(b.SettledAt.Month())}
		row, ok := buckets[k]
		if !ok {
			row = &MonthlySpend{Year: k.year, Month: k.month}
			buckets[k] = row
		}
		row.Settled++
		row.Spent += b.SpentAmount
	}

	out := make([]MonthlySpend, 0, len(buckets))
	for _, row := range buckets {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}
