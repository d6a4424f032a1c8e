package ledger

import (
	"time"

	"github.com/opencivic/civiledger/internal/model"
	"github.com/opencivic/civiledger/internal/money"
)

// EventType names a structured ledger event.
type EventType string

const (
	EventBudgetActivated  EventType = "budget_activated"
	EventFundsReserved    EventType = "funds_reserved"
	EventTaskSettled      EventType = "task_settled"
	EventBudgetOverrun    EventType = "budget_overrun"
	EventPayrollProcessed EventType = "payroll_processed"
)

// Event is emitted after a mutation commits. The engine performs no user I/O
// itself; a notification collaborator translates events into emails or toasts.
type Event struct {
	Type         EventType      `json:"type"`
	FiscalYear   string         `json:"fiscal_year"`
	GrievanceRef string         `json:"grievance_ref,omitempty"`
	Category     model.Category `json:"category,omitempty"`
	Amount       money.Paise    `json:"amount,omitempty"`
	Month        int            `json:"month,omitempty"`
	Year         int            `json:"year,omitempty"`
	Detail       string         `json:"detail,omitempty"`
	At           time.Time      `json:"at"`
}

// Notifier receives ledger events. Implementations must not block.
type Notifier interface {
	Notify(Event)
}

func (e *Engine) notify(ev Event) {
	if e.notifier != nil {
		e.notifier.Notify(ev)
	}
}
