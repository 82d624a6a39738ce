package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Date is a calendar date with no clock and no location, so it can never be
// shifted into a neighbouring day by a timezone conversion.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

// AddDays moves the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// DateOf takes the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, day := t.Date()
	return Date{Year: y, Month: m, Day: day}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

var (
	isoDateRe   = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})`)
	latamDateRe = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})`)
	serialRe    = regexp.MustCompile(`^\d{4,6}(\.\d+)?$`)
)

// ParseDate reads only the date-significant leading characters of text.
// Anything after the date (time of day, zone offset) is ignored, so
// "2024-03-31T23:30:00-06:00" is March 31 regardless of the local zone.
// Excel serial day numbers are accepted too.
func ParseDate(text string) (Date, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Date{}, false
	}

	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		return makeDate(m[1], m[2], m[3])
	}
	if m := latamDateRe.FindStringSubmatch(text); m != nil {
		return makeDate(m[3], m[2], m[1])
	}
	if serialRe.MatchString(text) {
		serial, err := strconv.ParseFloat(text, 64)
		if err != nil || serial < 1 {
			return Date{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return Date{}, false
		}
		return DateOf(t), true
	}
	return Date{}, false
}

func makeDate(ys, ms, ds string) (Date, bool) {
	y, _ := strconv.Atoi(ys)
	m, _ := strconv.Atoi(ms)
	d, _ := strconv.Atoi(ds)
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return Date{}, false
	}
	// reject 2024-02-30 and friends
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return Date{}, false
	}
	return Date{Year: y, Month: time.Month(m), Day: d}, true
}
