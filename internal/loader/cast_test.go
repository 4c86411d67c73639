package loader

import (
	"database/sql"
	"testing"
	"time"

	"github.com/leapstack-labs/leapstar/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInteger(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "1", want: 1},
		{input: "-3", want: -3},
		{input: "2.0", want: 2},
		{input: "1e2", want: 100},
		{input: "2.5", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "1,000", wantErr: true},
		{input: "NaN", wantErr: true},
		{input: "Inf", wantErr: true},
		{input: "99999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseInteger(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{input: "9.99", want: 9.99},
		{input: "1", want: 1},
		{input: "-0.5", want: -0.5},
		{input: "NaN", wantErr: true},
		{input: "+Inf", wantErr: true},
		{input: "ten", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2021, time.May, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		wantErr bool
	}{
		{input: "2021-05-01"},
		{input: "2021-05-01T13:45:00Z"},
		{input: "2021-05-01T23:30:00-07:00"},
		{input: "2021-05-01 13:45:00"},
		{input: "2021-05-01T13:45:00"},
		{input: "2021-05-01 00:00:00 +0000 UTC"},
		{input: "2021-05-01 08:15:30.5 +0000 UTC"},
		{input: "05/01/2021", wantErr: true},
		{input: "2021-13-01", wantErr: true},
		{input: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func stagingRow(row int, values map[string]string) core.StagingRow {
	ns := func(field string) sql.NullString {
		v, ok := values[field]
		return sql.NullString{String: v, Valid: ok}
	}
	return core.StagingRow{
		Row:                  row,
		CustomerName:         ns(core.FieldCustomerName),
		EmailAddress:         ns(core.FieldEmailAddress),
		Item:                 ns(core.FieldItem),
		SalesOrderNumber:     ns(core.FieldSalesOrderNumber),
		SalesOrderLineNumber: ns(core.FieldSalesOrderLineNumber),
		OrderDate:            ns(core.FieldOrderDate),
		Quantity:             ns(core.FieldQuantity),
		TaxAmount:            ns(core.FieldTaxAmount),
		UnitPrice:            ns(core.FieldUnitPrice),
	}
}

func validValues() map[string]string {
	return map[string]string{
		core.FieldCustomerName:         "Alice",
		core.FieldEmailAddress:         "a@x.com",
		core.FieldItem:                 "Widget",
		core.FieldSalesOrderNumber:     " SO1 ",
		core.FieldSalesOrderLineNumber: "1",
		core.FieldOrderDate:            "2021-05-01",
		core.FieldQuantity:             "2",
		core.FieldTaxAmount:            "1.00",
		core.FieldUnitPrice:            "9.99",
	}
}

func TestCaster_CastFact(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(v map[string]string)
		wantFields []string
	}{
		{
			name:   "valid row",
			mutate: func(map[string]string) {},
		},
		{
			name:       "missing order number",
			mutate:     func(v map[string]string) { delete(v, core.FieldSalesOrderNumber) },
			wantFields: []string{core.FieldSalesOrderNumber},
		},
		{
			name:       "blank order number",
			mutate:     func(v map[string]string) { v[core.FieldSalesOrderNumber] = "   " },
			wantFields: []string{core.FieldSalesOrderNumber},
		},
		{
			name:       "order number too long",
			mutate:     func(v map[string]string) { v[core.FieldSalesOrderNumber] = "SO-0000000000" },
			wantFields: []string{core.FieldSalesOrderNumber},
		},
		{
			name:       "fractional quantity",
			mutate:     func(v map[string]string) { v[core.FieldQuantity] = "2.5" },
			wantFields: []string{core.FieldQuantity},
		},
		{
			name: "several bad measures",
			mutate: func(v map[string]string) {
				v[core.FieldTaxAmount] = "n/a"
				v[core.FieldUnitPrice] = "NaN"
				delete(v, core.FieldSalesOrderLineNumber)
			},
			wantFields: []string{core.FieldSalesOrderLineNumber, core.FieldTaxAmount, core.FieldUnitPrice},
		},
		{
			name:       "bad date",
			mutate:     func(v map[string]string) { v[core.FieldOrderDate] = "May 1st" },
			wantFields: []string{core.FieldOrderDate},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := validValues()
			tt.mutate(values)

			c := &caster{maxOrderNumberLength: 10}
			f, ok := c.castFact(stagingRow(7, values))

			if len(tt.wantFields) == 0 {
				require.True(t, ok, "unexpected errors: %v", c.errs)
				assert.Equal(t, "SO1", f.SalesOrderNumber)
				assert.Equal(t, int64(1), f.SalesOrderLineNumber)
				assert.Equal(t, time.Date(2021, time.May, 1, 0, 0, 0, 0, time.UTC), f.OrderDate)
				assert.Equal(t, int64(2), f.Quantity)
				assert.InDelta(t, 1.00, f.TaxAmount, 1e-9)
				assert.InDelta(t, 9.99, f.UnitPrice, 1e-9)
				return
			}

			require.False(t, ok)
			var fields []string
			for _, e := range c.errs {
				assert.Equal(t, 7, e.Row)
				assert.Equal(t, core.PhaseFact, e.Phase)
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}
