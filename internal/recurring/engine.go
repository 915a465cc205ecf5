// Package recurring validates recurring-transaction definitions and expands
// them into concrete monthly occurrences. The engine is pure and stateless:
// every operation is a function of its input, so it is safe to call from any
// number of goroutines without coordination.
package recurring

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finwell/expense-tracker-api/internal/domain"
)

// Definition describes a recurring transaction series: what to book and the
// inclusive (startYear, startMonth)..(endYear, endMonth) window it covers,
// anchored to DayOfMonth within each month.
type Definition struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
	DayOfMonth  int             `json:"dayOfMonth"`
	StartMonth  int             `json:"startMonth"`
	StartYear   int             `json:"startYear"`
	EndMonth    int             `json:"endMonth"`
	EndYear     int             `json:"endYear"`
}

// Occurrence is one calendar instance derived from a Definition. It carries
// a concrete date and copies of the definition's descriptive fields.
type Occurrence struct {
	Date        domain.Date
	Amount      decimal.Decimal
	Currency    string
	Category    string
	Status      string
	Description string
}

// Config holds the allow-lists and year bounds the engine validates
// against. Defining them once here keeps every caller consistent instead of
// re-declaring the sets per screen.
type Config struct {
	Categories []string
	Currencies []string
	Statuses   []string
	MinYear    int
	MaxYear    int
}

// DefaultConfig returns the canonical allow-lists and the default
// 2000–2100 year range.
func DefaultConfig() Config {
	return Config{
		Categories: domain.Categories,
		Currencies: domain.TransactionCurrencies,
		Statuses:   domain.Statuses,
		MinYear:    2000,
		MaxYear:    2100,
	}
}

// Engine expands and validates recurring definitions against a Config.
type Engine struct {
	cfg Config
}

// NewEngine returns an engine bound to cfg. Zero year bounds fall back to
// the defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.MinYear == 0 {
		cfg.MinYear = 2000
	}
	if cfg.MaxYear == 0 {
		cfg.MaxYear = 2100
	}
	return &Engine{cfg: cfg}
}

// FieldError is one human-readable validation failure, attributed to the
// field that caused it.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult collects every failed check, in check order, so a form
// can highlight all bad fields at once rather than one per round trip.
type ValidationResult struct {
	Errors []FieldError `json:"errors"`
}

// OK reports whether the definition passed every check.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Reasons returns the failure messages in check order.
func (r ValidationResult) Reasons() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}

// Validate runs all field checks and collects every violation. It never
// returns a Go error: failed validation is an expected, user-triggered
// condition and is reported as data.
func (e *Engine) Validate(def Definition) ValidationResult {
	var res ValidationResult
	fail := func(field, msg string) {
		res.Errors = append(res.Errors, FieldError{Field: field, Message: msg})
	}

	if def.Amount.LessThanOrEqual(decimal.Zero) {
		fail("amount", "amount must be greater than zero")
	}
	if def.Category == "" {
		fail("category", "category is required")
	} else if !domain.ContainsString(e.cfg.Categories, def.Category) {
		fail("category", fmt.Sprintf("unknown category: %s", def.Category))
	}
	if !domain.ContainsString(e.cfg.Statuses, def.Status) {
		fail("status", fmt.Sprintf("status must be one of %v", e.cfg.Statuses))
	}
	if !domain.ContainsString(e.cfg.Currencies, def.Currency) {
		fail("currency", fmt.Sprintf("unknown currency: %s", def.Currency))
	}
	if def.DayOfMonth < 1 || def.DayOfMonth > 31 {
		fail("dayOfMonth", fmt.Sprintf("day of month must be between 1 and 31: %d", def.DayOfMonth))
	}
	if def.StartMonth < 1 || def.StartMonth > 12 {
		fail("startMonth", fmt.Sprintf("start month must be between 1 and 12: %d", def.StartMonth))
	}
	if def.EndMonth < 1 || def.EndMonth > 12 {
		fail("endMonth", fmt.Sprintf("end month must be between 1 and 12: %d", def.EndMonth))
	}
	if def.StartYear < e.cfg.MinYear || def.StartYear > e.cfg.MaxYear {
		fail("startYear", fmt.Sprintf("start year must be between %d and %d: %d", e.cfg.MinYear, e.cfg.MaxYear, def.StartYear))
	}
	if def.EndYear < e.cfg.MinYear || def.EndYear > e.cfg.MaxYear {
		fail("endYear", fmt.Sprintf("end year must be between %d and %d: %d", e.cfg.MinYear, e.cfg.MaxYear, def.EndYear))
	}
	// Ordering only makes sense once the individual bounds hold.
	if monthsInRange(def.StartMonth) && monthsInRange(def.EndMonth) &&
		monthIndex(def.StartYear, def.StartMonth) > monthIndex(def.EndYear, def.EndMonth) {
		fail("startMonth", "start month/year must not be after end month/year")
	}

	return res
}

// Enumerate expands def into its occurrences, one per covered month in
// chronologically ascending order. The occurrence day is clamped to the
// last valid day of each month (day 31 lands on Feb 28/29 and on the 30th
// of 30-day months); months are never skipped, so the count is always
// (endYear*12+endMonth) - (startYear*12+startMonth) + 1.
//
// Enumerate expects a definition that already passed Validate; a
// structurally malformed one fails with ErrInvalidDefinition rather than
// producing a partial or unbounded sequence.
func (e *Engine) Enumerate(def Definition) ([]Occurrence, error) {
	if !monthsInRange(def.StartMonth) || !monthsInRange(def.EndMonth) {
		return nil, &domain.ErrInvalidDefinition{Reason: "month out of range"}
	}
	if def.DayOfMonth < 1 || def.DayOfMonth > 31 {
		return nil, &domain.ErrInvalidDefinition{Reason: "day of month out of range"}
	}
	start := monthIndex(def.StartYear, def.StartMonth)
	end := monthIndex(def.EndYear, def.EndMonth)
	if start > end {
		return nil, &domain.ErrInvalidDefinition{Reason: "window start is after window end"}
	}

	occurrences := make([]Occurrence, 0, end-start+1)
	for idx := start; idx <= end; idx++ {
		year, month := yearMonth(idx)
		if year < e.cfg.MinYear || year > e.cfg.MaxYear {
			return nil, &domain.ErrOutOfRangeDate{Year: year, Month: month}
		}
		day := def.DayOfMonth
		if last := domain.DaysInMonth(year, month); day > last {
			day = last
		}
		occurrences = append(occurrences, Occurrence{
			Date:        domain.NewDate(year, month, day),
			Amount:      def.Amount,
			Currency:    def.Currency,
			Category:    def.Category,
			Status:      def.Status,
			Description: def.Description,
		})
	}

	return occurrences, nil
}

// monthIndex linearizes (year, month) so window arithmetic is plain
// integer comparison.
func monthIndex(year, month int) int {
	return year*12 + (month - 1)
}

func yearMonth(idx int) (year, month int) {
	return idx / 12, idx%12 + 1
}

func monthsInRange(m int) bool {
	return m >= 1 && m <= 12
}
