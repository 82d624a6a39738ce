package report

import (
	"sort"
)

// Filter is the user's current selection. An empty selection for a field
// means no restriction on it; zero From/To leave the date range open.
type Filter struct {
	Selected map[Field]map[string]bool
	From     Date
	To       Date
}

// NewFilter returns a filter that lets everything through.
func NewFilter() Filter {
	return Filter{Selected: map[Field]map[string]bool{}}
}

// Toggle adds value to or removes it from the selection for f.
func (f *Filter) Toggle(field Field, value string) {
	if f.Selected == nil {
		f.Selected = map[Field]map[string]bool{}
	}
	set := f.Selected[field]
	if set == nil {
		set = map[string]bool{}
		f.Selected[field] = set
	}
	if set[value] {
		delete(set, value)
	} else {
		set[value] = true
	}
	if len(set) == 0 {
		delete(f.Selected, field)
	}
}

// Select replaces the selection for field.
func (f *Filter) Select(field Field, values ...string) {
	if f.Selected == nil {
		f.Selected = map[Field]map[string]bool{}
	}
	if len(values) == 0 {
		delete(f.Selected, field)
		return
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	f.Selected[field] = set
}

// IsSelected reports whether value is explicitly selected for field.
func (f Filter) IsSelected(field Field, value string) bool {
	return f.Selected[field][value]
}

// Active reports whether the filter restricts anything.
func (f Filter) Active() bool {
	return len(f.Selected) > 0 || !f.From.IsZero() || !f.To.IsZero()
}

// Match reports whether o passes every active restriction.
func (f Filter) Match(o Order) bool {
	if !f.From.IsZero() && o.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && o.Date.After(f.To) {
		return false
	}
	for field, set := range f.Selected {
		if len(set) == 0 {
			continue
		}
		if !set[o.Value(field)] {
			return false
		}
	}
	return true
}

// Apply returns the orders matching f, in input order.
func (f Filter) Apply(orders []Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if f.Match(o) {
			out = append(out, o)
		}
	}
	return out
}

// Domain is what the filter controls can offer.
type Domain struct {
	Values  map[Field][]string
	MinDate Date
	MaxDate Date
}

// Domains collects the sorted distinct values of each categorical field and
// the observed date range.
func Domains(orders []Order) Domain {
	d := Domain{Values: map[Field][]string{}}
	sets := map[Field]map[string]bool{}
	for _, f := range CategoricalFields {
		sets[f] = map[string]bool{}
	}
	for i, o := range orders {
		if i == 0 || o.Date.Before(d.MinDate) {
			d.MinDate = o.Date
		}
		if i == 0 || o.Date.After(d.MaxDate) {
			d.MaxDate = o.Date
		}
		for _, f := range CategoricalFields {
			sets[f][o.Value(f)] = true
		}
	}
	for f, set := range sets {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		d.Values[f] = values
	}
	return d
}
