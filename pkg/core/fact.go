package core

import (
	"fmt"
	"time"
)

// FactRow is one row of the sales fact table.
type FactRow struct {
	// Keys maps dimension name to the referenced surrogate key.
	Keys map[string]string

	SalesOrderNumber     string
	SalesOrderLineNumber int64

	OrderDate time.Time
	Quantity  int64
	TaxAmount float64
	UnitPrice float64
}

// SurrogateFor returns the surrogate key referenced for dimension.
func (f FactRow) SurrogateFor(dimension string) string {
	return f.Keys[dimension]
}

// BusinessKey identifies a sales order line.
type BusinessKey struct {
	SalesOrderNumber     string
	SalesOrderLineNumber int64
}

func (k BusinessKey) String() string {
	return fmt.Sprintf("%s/%d", k.SalesOrderNumber, k.SalesOrderLineNumber)
}

// BusinessKey returns the order number and line number of the fact.
func (f FactRow) BusinessKey() BusinessKey {
	return BusinessKey{SalesOrderNumber: f.SalesOrderNumber, SalesOrderLineNumber: f.SalesOrderLineNumber}
}

// FactPolicy decides what happens when a fact's business key is already loaded.
type FactPolicy string

// Fact policies.
const (
	// FactPolicySkip skips business keys that already exist in the fact table.
	FactPolicySkip FactPolicy = "skip"
	// FactPolicyAppend appends every row, keeping duplicate history.
	FactPolicyAppend FactPolicy = "append"
	// FactPolicyError fails the load when a business key already exists.
	FactPolicyError FactPolicy = "error"
)

// ParseFactPolicy validates a policy name. Empty selects FactPolicySkip.
func ParseFactPolicy(s string) (FactPolicy, error) {
	switch FactPolicy(s) {
	case "", FactPolicySkip:
		return FactPolicySkip, nil
	case FactPolicyAppend, FactPolicyError:
		return FactPolicy(s), nil
	}
	return "", fmt.Errorf("unknown fact policy %q (valid: skip, append, error)", s)
}
