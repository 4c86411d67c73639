package loader

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/leapstack-labs/leapstar/pkg/core"
)

// dateLayouts are tried in order when casting an order date. The last one
// is the form database/sql produces when a driver hands back a time.Time
// and the destination is a string.
var dateLayouts = []string{
	core.DateLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05 -0700 MST",
}

// caster turns raw staging rows into typed fact rows, collecting every
// failure instead of stopping at the first one.
type caster struct {
	maxOrderNumberLength int
	errs                 core.ValidationErrors
}

func (c *caster) fail(row int, field, value, reason string) {
	c.errs = append(c.errs, &core.ValidationError{
		Phase:  core.PhaseFact,
		Row:    row,
		Field:  field,
		Value:  value,
		Reason: reason,
	})
}

// required returns the trimmed field, recording an error when it is absent.
func (c *caster) required(r core.StagingRow, field string) (string, bool) {
	v, ok := r.TrimmedField(field)
	if !ok {
		c.fail(r.Row, field, "", "is required")
	}
	return v, ok
}

// castFact converts one staging row. Natural-key attributes are not checked
// here; the resolvers have already validated them.
func (c *caster) castFact(r core.StagingRow) (core.FactRow, bool) {
	before := len(c.errs)
	var f core.FactRow

	if s, ok := c.required(r, core.FieldSalesOrderNumber); ok {
		if n := utf8.RuneCountInString(s); c.maxOrderNumberLength > 0 && n > c.maxOrderNumberLength {
			c.fail(r.Row, core.FieldSalesOrderNumber, s, "exceeds "+strconv.Itoa(c.maxOrderNumberLength)+" characters")
		} else {
			f.SalesOrderNumber = s
		}
	}
	if s, ok := c.required(r, core.FieldSalesOrderLineNumber); ok {
		if n, err := parseInteger(s); err != nil {
			c.fail(r.Row, core.FieldSalesOrderLineNumber, s, err.Error())
		} else {
			f.SalesOrderLineNumber = n
		}
	}
	if s, ok := c.required(r, core.FieldOrderDate); ok {
		if d, err := parseDate(s); err != nil {
			c.fail(r.Row, core.FieldOrderDate, s, err.Error())
		} else {
			f.OrderDate = d
		}
	}
	if s, ok := c.required(r, core.FieldQuantity); ok {
		if n, err := parseInteger(s); err != nil {
			c.fail(r.Row, core.FieldQuantity, s, err.Error())
		} else {
			f.Quantity = n
		}
	}
	if s, ok := c.required(r, core.FieldTaxAmount); ok {
		if v, err := parseFloat(s); err != nil {
			c.fail(r.Row, core.FieldTaxAmount, s, err.Error())
		} else {
			f.TaxAmount = v
		}
	}
	if s, ok := c.required(r, core.FieldUnitPrice); ok {
		if v, err := parseFloat(s); err != nil {
			c.fail(r.Row, core.FieldUnitPrice, s, err.Error())
		} else {
			f.UnitPrice = v
		}
	}

	return f, len(c.errs) == before
}

type castError string

func (e castError) Error() string { return string(e) }

const (
	errNotInteger = castError("is not an integer")
	errNotNumber  = castError("is not a number")
	errNotFinite  = castError("is not a finite number")
	errNotDate    = castError("is not a date")
)

// parseInteger parses a base-10 integer. Numeric staging columns may render
// integers as "2.0"; those are accepted only when the value is integral.
func parseInteger(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	if !strings.ContainsAny(s, ".eE") {
		return 0, errNotInteger
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errNotInteger
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errNotInteger
	}
	return int64(f), nil
}

// parseFloat parses a finite float64.
func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errNotNumber
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}

// parseDate parses a calendar date, dropping any time of day.
func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.TruncateDate(t), nil
		}
	}
	return time.Time{}, errNotDate
}
