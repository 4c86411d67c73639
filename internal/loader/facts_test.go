package loader

import (
	"testing"
	"time"

	"github.com/leapstack-labs/leapstar/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestCollapseDuplicates(t *testing.T) {
	date := time.Date(2021, time.May, 1, 0, 0, 0, 0, time.UTC)
	base := core.FactRow{
		Keys:                 map[string]string{"customer": "c1", "product": "p1"},
		SalesOrderNumber:     "SO1",
		SalesOrderLineNumber: 1,
		OrderDate:            date,
		Quantity:             2,
		TaxAmount:            1,
		UnitPrice:            9.99,
	}
	otherPrice := base
	otherPrice.UnitPrice = 10.99
	otherCustomer := base
	otherCustomer.Keys = map[string]string{"customer": "c2", "product": "p1"}
	sameKeysNewMap := base
	sameKeysNewMap.Keys = map[string]string{"product": "p1", "customer": "c1"}

	pending := []pendingFact{
		{row: 1, fact: base},
		{row: 2, fact: sameKeysNewMap},
		{row: 3, fact: otherPrice},
		{row: 4, fact: otherCustomer},
		{row: 5, fact: base},
	}

	out, collapsed := collapseDuplicates(pending)
	assert.Equal(t, 2, collapsed)

	var rows []int
	for _, p := range out {
		rows = append(rows, p.row)
	}
	assert.Equal(t, []int{1, 3, 4}, rows)
}

func TestNewFactLoader_DefaultPolicy(t *testing.T) {
	l := NewFactLoader(nil, nil, "", 25, nil)
	assert.Equal(t, core.FactPolicySkip, l.policy)
}
