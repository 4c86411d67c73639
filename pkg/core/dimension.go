package core

import (
	"strconv"
	"strings"
)

// Attribute maps one natural-key column of a dimension table to the staging
// field it is copied from.
type Attribute struct {
	Column string
	Field  string
}

// DimensionSpec declares a dimension: its table, surrogate column, the
// natural-key attributes and the fact column referencing it.
type DimensionSpec struct {
	// Name is the logical dimension name ("customer", "product").
	Name string
	// Table is the dimension table name.
	Table string
	// KeyColumn holds the surrogate key.
	KeyColumn string
	// NaturalKey lists every attribute that together identify the entity.
	NaturalKey []Attribute
	// FactColumn is the column in the fact table that references KeyColumn.
	FactColumn string
}

// CustomerDimension returns the customer dimension spec for table.
func CustomerDimension(table string) DimensionSpec {
	return DimensionSpec{
		Name:      "customer",
		Table:     table,
		KeyColumn: "customer_key",
		NaturalKey: []Attribute{
			{Column: "customer_name", Field: FieldCustomerName},
			{Column: "email_address", Field: FieldEmailAddress},
		},
		FactColumn: "customer_key",
	}
}

// ProductDimension returns the product dimension spec for table.
func ProductDimension(table string) DimensionSpec {
	return DimensionSpec{
		Name:      "product",
		Table:     table,
		KeyColumn: "product_key",
		NaturalKey: []Attribute{
			{Column: "product_name", Field: FieldItem},
		},
		FactColumn: "product_key",
	}
}

// NaturalKey is the ordered tuple of natural-key attribute values.
type NaturalKey []string

// String encodes the key parts into a single comparable value. Each part
// carries its byte length, so distinct tuples never share an encoding
// whatever bytes the attributes contain.
func (k NaturalKey) String() string {
	var b strings.Builder
	for _, p := range k {
		b.WriteString(strconv.Itoa(len(p)))
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// Display renders the key for error messages.
func (k NaturalKey) Display() string {
	return "(" + strings.Join(k, ", ") + ")"
}

// DimensionRow is one row of a dimension table.
type DimensionRow struct {
	SurrogateKey string
	NaturalKey   NaturalKey
}
