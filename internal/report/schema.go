package report

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumn means a workbook lacks a column the report cannot do without.
var ErrMissingColumn = errors.New("required column not found")

// Field is a canonical order attribute.
type Field int

const (
	FieldDate Field = iota
	FieldCustomer
	FieldPhone
	FieldStore
	FieldProduct
	FieldStatus
	FieldShipment
	FieldAmount
	FieldOrigin
)

var fieldNames = map[Field]string{
	FieldDate:     "Date",
	FieldCustomer: "Customer",
	FieldPhone:    "Phone",
	FieldStore:    "Store",
	FieldProduct:  "Product",
	FieldStatus:   "Status",
	FieldShipment: "Shipment",
	FieldAmount:   "Amount",
	FieldOrigin:   "Origin",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// CategoricalFields are the fields exposed as filters and breakdowns.
var CategoricalFields = []Field{FieldOrigin, FieldStore, FieldStatus, FieldShipment, FieldProduct}

// Matcher decides whether a header names a field.
type Matcher func(header string) bool

// Exact matches a header by name, ignoring surrounding blanks and case.
func Exact(name string) Matcher {
	return func(header string) bool {
		return strings.EqualFold(strings.TrimSpace(header), name)
	}
}

// ContainsFold matches headers containing part, case-insensitively.
func ContainsFold(part string) Matcher {
	part = strings.ToLower(part)
	return func(header string) bool {
		return strings.Contains(strings.ToLower(header), part)
	}
}

// ColumnRule binds a field to candidate matchers tried in order.
type ColumnRule struct {
	Field    Field
	Matchers []Matcher
	Required bool
}

// DefaultRules is the mapping policy for the portal's order export.
// Order matters: shipment status claims "Estado de envío" before the plain
// status rule can, and exact names win over substrings within a rule.
var DefaultRules = []ColumnRule{
	{Field: FieldAmount, Required: true, Matchers: []Matcher{Exact("Total"), ContainsFold("total"), ContainsFold("monto")}},
	{Field: FieldShipment, Matchers: []Matcher{Exact("Estado de envío"), ContainsFold("envío"), ContainsFold("envio"), ContainsFold("shipment")}},
	{Field: FieldStatus, Matchers: []Matcher{Exact("Estado"), ContainsFold("estado"), ContainsFold("status")}},
	{Field: FieldDate, Required: true, Matchers: []Matcher{ContainsFold("fecha"), ContainsFold("date")}},
	{Field: FieldStore, Matchers: []Matcher{ContainsFold("tienda"), ContainsFold("store")}},
	{Field: FieldCustomer, Matchers: []Matcher{ContainsFold("cliente"), ContainsFold("customer")}},
	{Field: FieldPhone, Matchers: []Matcher{ContainsFold("teléfono"), ContainsFold("telefono"), ContainsFold("phone")}},
	{Field: FieldProduct, Matchers: []Matcher{ContainsFold("producto"), ContainsFold("product"), ContainsFold("descripci")}},
}

// Mapping is the column index of each resolved field in one header row.
type Mapping map[Field]int

// Resolve evaluates rules against a header row once. A column is claimed
// by at most one field.
func Resolve(headers []string, rules []ColumnRule) (Mapping, error) {
	m := Mapping{}
	claimed := make([]bool, len(headers))
	var missing []string

	for _, rule := range rules {
		idx := -1
	search:
		for _, match := range rule.Matchers {
			for i, h := range headers {
				if claimed[i] || strings.TrimSpace(h) == "" {
					continue
				}
				if match(h) {
					idx = i
					break search
				}
			}
		}
		if idx < 0 {
			if rule.Required {
				missing = append(missing, rule.Field.String())
			}
			continue
		}
		claimed[idx] = true
		m[rule.Field] = idx
	}

	if len(missing) > 0 {
		return m, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return m, nil
}

// Cell returns the trimmed value of field in row, or "".
func (m Mapping) Cell(row []string, f Field) string {
	i, ok := m[f]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
