// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opencivic/civiledger/internal/money"
)

// FormatAmount formats a paise amount as grouped rupees, e.g. "₹1,50,000".
func FormatAmount(p money.Paise) string {
	return p.String()
}

// FormatCompact formats rupees with lakh/crore suffixes for dense tables.
// e.g., ₹1,50,000 -> "₹1.5L", ₹2,00,00,000 -> "₹2.0Cr"
func FormatCompact(p money.Paise) string {
	neg := p < 0
	abs := int64(p)
	if neg {
		abs = -abs
	}
	rupees := float64(abs) / 100

	var s string
	switch {
	case rupees >= 1_00_00_000:
		s = fmt.Sprintf("₹%.1fCr", rupees/1_00_00_000)
	case rupees >= 1_00_000:
		s = fmt.Sprintf("₹%.1fL", rupees/1_00_000)
	case rupees >= 1_000:
		s = fmt.Sprintf("₹%.1fK", rupees/1_000)
	default:
		s = fmt.Sprintf("₹%.0f", rupees)
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatNumber adds Indian-style separators to an integer.
// e.g., 1234567 -> "12,34,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	head := s[:len(s)-3]
	tail := s[len(s)-3:]

	var result strings.Builder
	remainder := len(head) % 2
	if remainder > 0 {
		result.WriteString(head[:remainder])
	}
	for i := remainder; i < len(head); i += 2 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(head[i : i+2])
	}
	result.WriteByte(',')
	result.WriteString(tail)
	return result.String()
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatMonth formats a (month, year) payroll key, e.g. "Apr 2026".
func FormatMonth(month, year int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("?%d %d", month, year)
	}
	return fmt.Sprintf("%s %d", time.Month(month).String()[:3], year)
}

// FormatDate formats a date for table cells; zero times render as "—".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("02 Jan 2006")
}
