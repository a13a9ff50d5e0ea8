package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

// Amounts are bounded so their decimal text stays small: at most
// MaxAmountDigits significant digits and an exponent within
// ±MaxAmountExponent.
const (
	MaxAmountDigits   = 38
	MaxAmountExponent = 64
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

type (
	TransactionType string

	// Date is a calendar date without time-of-day, always at UTC midnight.
	Date struct {
		time.Time
	}

	// Transaction is a single recorded monetary event.
	Transaction struct {
		ID        int64
		Category  string
		Note      *string
		Amount    decimal.Decimal
		Date      Date
		Type      TransactionType
		CreatedAt time.Time
	}

	// NewTransaction carries the caller-supplied fields of a transaction
	// before storage assigns its id.
	NewTransaction struct {
		Category string
		Note     *string
		Amount   decimal.Decimal
		Date     Date
		Type     TransactionType
	}
)

var (
	ErrNotFound       = errors.New("transaction not found")
	ErrMalformedMonth = errors.New("month must be formatted as YYYY-MM")
)

// ValidationError lists every violated field of a create request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a violation for field. The first message for a field wins.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Err returns nil when no violation was recorded.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Month returns the calendar month containing d.
func (d Date) Month() Month {
	return Month{Year: d.Year(), Month: d.Time.Month()}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("date must be a string formatted as %s", DateLayout)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

func (t TransactionType) String() string {
	return string(t)
}

// Validate checks the fields storage relies on. Presence of amount and date
// is the request schema's job since both have usable zero values; the zero
// Date is the real day 0001-01-01.
func (n NewTransaction) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(n.Category) == "" {
		verr.Add("category", "must not be blank")
	}
	switch {
	case strings.TrimSpace(string(n.Type)) == "":
		verr.Add("type", "must not be blank")
	case !n.Type.Valid():
		verr.Add("type", "must be INCOME or EXPENSE")
	}
	if exp := n.Amount.Exponent(); exp > MaxAmountExponent || exp < -MaxAmountExponent {
		verr.Add("amount", fmt.Sprintf("exponent must be within ±%d", MaxAmountExponent))
	} else if n.Amount.NumDigits() > MaxAmountDigits {
		verr.Add("amount", fmt.Sprintf("must have at most %d significant digits", MaxAmountDigits))
	}
	return verr.Err()
}
