package model

import (
	"time"

	"github.com/opencivic/civiledger/internal/money"
)

// BindingState is the lifecycle state of a grievance budget binding.
// The only transition is reserved → settled; settled is terminal.
type BindingState string

const (
	BindingReserved BindingState = "reserved"
	BindingSettled  BindingState = "settled"
)

// ExpenseEntry is one line of a binding's expense breakdown.
type ExpenseEntry struct {
	Description string
	Amount      money.Paise
	LoggedAt    time.Time
}

// Binding links a grievance to the funds reserved for it, the expenses
// accrued against it, and its bill evidence.
type Binding struct {
	ID             string // uuid, doubles as the reservation token
	GrievanceRef   string
	FiscalYear     string
	Category       Category
	ReservedAmount money.Paise
	SpentAmount    money.Paise // Σ expense amounts, maintained on append
	Expenses       []ExpenseEntry
	BillRefs       []string
	State          BindingState
	Reviewable     bool // grievance workflow marked it completed-awaiting-review
	AdminNotes     string
	CreatedAt      time.Time
	SettledAt      time.Time
}

// ExpenseTotal sums the expense breakdown.
func (b *Binding) ExpenseTotal() money.Paise {
	var total money.Paise
	for _, e := range b.Expenses {
		total += e.Amount
	}
	return total
}

// Adjustment is an append-only correction recorded against a settled binding.
// Corrections never reopen a binding; they are their own audit entries.
type Adjustment struct {
	ID           string
	BindingID    string
	GrievanceRef string
	Category     Category
	Amount       money.Paise // signed delta applied to category spent
	Note         string
	CreatedAt    time.Time
}
