package report

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DatePoint is one bar of the time series.
type DatePoint struct {
	Date  Date
	Count int
	Total decimal.Decimal
}

// Bucket is one group of a breakdown.
type Bucket struct {
	Key   string
	Count int
	Total decimal.Decimal
}

// Summary holds everything the dashboard shows for a set of orders.
type Summary struct {
	Count      int
	Total      decimal.Decimal
	Mean       decimal.Decimal
	ByDate     []DatePoint
	Breakdowns map[Field][]Bucket
}

// Summarize computes the aggregates over orders. The result depends only on
// the input rows, so identical input gives identical output.
func Summarize(orders []Order) Summary {
	s := Summary{
		Total:      decimal.Zero,
		Mean:       decimal.Zero,
		Breakdowns: map[Field][]Bucket{},
	}

	byDate := map[Date]*DatePoint{}
	groups := map[Field]map[string]*Bucket{}
	for _, f := range CategoricalFields {
		groups[f] = map[string]*Bucket{}
	}

	for _, o := range orders {
		s.Count++
		s.Total = s.Total.Add(o.Amount)

		p, ok := byDate[o.Date]
		if !ok {
			p = &DatePoint{Date: o.Date, Total: decimal.Zero}
			byDate[o.Date] = p
		}
		p.Count++
		p.Total = p.Total.Add(o.Amount)

		for _, f := range CategoricalFields {
			key := o.Value(f)
			b, ok := groups[f][key]
			if !ok {
				b = &Bucket{Key: key, Total: decimal.Zero}
				groups[f][key] = b
			}
			b.Count++
			b.Total = b.Total.Add(o.Amount)
		}
	}

	if s.Count > 0 {
		s.Mean = s.Total.DivRound(decimal.NewFromInt(int64(s.Count)), 4)
	}

	for _, p := range byDate {
		s.ByDate = append(s.ByDate, *p)
	}
	sort.Slice(s.ByDate, func(i, j int) bool {
		return s.ByDate[i].Date.Before(s.ByDate[j].Date)
	})

	for f, g := range groups {
		buckets := make([]Bucket, 0, len(g))
		for _, b := range g {
			buckets = append(buckets, *b)
		}
		sort.Slice(buckets, func(i, j int) bool {
			if c := buckets[i].Total.Cmp(buckets[j].Total); c != 0 {
				return c > 0
			}
			return buckets[i].Key < buckets[j].Key
		})
		s.Breakdowns[f] = buckets
	}
	return s
}

// TotalFor sums the bucket of key in the breakdown of f.
func (s Summary) TotalFor(f Field, key string) decimal.Decimal {
	for _, b := range s.Breakdowns[f] {
		if b.Key == key {
			return b.Total
		}
	}
	return decimal.Zero
}
