// Package money provides fixed-point rupee amounts stored as integer paise.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Paise is a monetary amount in minor units (1 rupee = 100 paise).
// All ledger arithmetic happens on this type; floats never touch pool totals.
type Paise int64

var (
	// ErrNegativeAmount indicates a negative amount where only non-negative is valid.
	ErrNegativeAmount = errors.New("money: negative amount")
	// ErrMalformedAmount indicates an unparseable decimal string.
	ErrMalformedAmount = errors.New("money: malformed amount")
)

// Parse converts a decimal rupee string ("20000", "1,50,000.50") into paise.
// Commas are stripped, at most two fractional digits are allowed, and the
// result must be non-negative.
func Parse(s string) (Paise, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, ErrMalformedAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	if d.Exponent() < -2 {
		return 0, fmt.Errorf("%w: %q has sub-paise precision", ErrMalformedAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q", ErrNegativeAmount, s)
	}

	return Paise(d.Shift(2).IntPart()), nil
}

// FromRupees converts whole rupees to paise.
func FromRupees(r int64) Paise {
	return Paise(r * 100)
}

// Rupees returns the amount as a decimal for display or export.
func (p Paise) Rupees() decimal.Decimal {
	return decimal.New(int64(p), -2)
}

// String formats the amount as Indian-grouped rupees, e.g. "₹1,00,000.50".
// Whole-rupee amounts omit the paise digits.
func (p Paise) String() string {
	neg := p < 0
	abs := int64(p)
	if neg {
		abs = -abs
	}

	whole := abs / 100
	frac := abs % 100

	s := groupIndian(whole)
	if frac != 0 {
		s += fmt.Sprintf(".%02d", frac)
	}
	if neg {
		return "-₹" + s
	}
	return "₹" + s
}

// groupIndian applies Indian digit grouping: last three digits, then pairs.
// 1234567 -> "12,34,567"
func groupIndian(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	head := s[:len(s)-3]
	tail := s[len(s)-3:]

	var b strings.Builder
	rem := len(head) % 2
	if rem > 0 {
		b.WriteString(head[:rem])
	}
	for i := rem; i < len(head); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(head[i : i+2])
	}
	b.WriteByte(',')
	b.WriteString(tail)
	return b.String()
}
