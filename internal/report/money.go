package report

import (
	"strings"

	"github.com/shopspring/decimal"
)

// currency markers seen in exports from both stores, longest first
var currencyStripper = strings.NewReplacer(
	"US$", "",
	"USD", "",
	"HNL", "",
	"Lps.", "",
	"Lps", "",
	"L.", "",
	"L", "",
	"$", "",
	"₡", "",
	"\u00a0", "",
	" ", "",
	"\t", "",
)

// ParseAmount turns a currency formatted cell such as "L 1,250.00" or
// "$ (99.90)" into a decimal. Text that is not a number yields zero.
func ParseAmount(text string) decimal.Decimal {
	s := currencyStripper.Replace(strings.TrimSpace(text))
	if s == "" {
		return decimal.Zero
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	if dot >= 0 && comma > dot {
		// 1.250,00
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	if s == "" || strings.ContainsAny(s, "+-eE") {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		d = d.Neg()
	}
	return d
}

// FormatMoney renders an amount as "L 1,250.00".
func FormatMoney(symbol string, d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := sign + b.String() + "." + frac
	if symbol == "" {
		return out
	}
	return symbol + " " + out
}
