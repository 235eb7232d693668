package billing

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DateOnly truncates instant t to midnight of its calendar day in loc.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// CalendarDay returns midnight in loc of the calendar day t carries in its own
// location. Filter bounds are calendar days, so they are never shifted into loc.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ValidateRange rejects ranges whose end day precedes the start day.
func ValidateRange(from, to time.Time, loc *time.Location) error {
	if CalendarDay(to, loc).Before(CalendarDay(from, loc)) {
		return fmt.Errorf("%s is before %s: %w", to.Format(time.DateOnly), from.Format(time.DateOnly), ErrInvalidDateRange)
	}
	return nil
}

// InRange reports whether instant t falls, in loc, on a calendar day between
// the days of from and to inclusive.
func InRange(t, from, to time.Time, loc *time.Location) bool {
	day := DateOnly(t, loc)
	return !day.Before(CalendarDay(from, loc)) && !day.After(CalendarDay(to, loc))
}

// FilterRecords keeps the records of hospitalID dated within [from, to], preserving order.
func FilterRecords(records []UsageRecord, hospitalID string, from, to time.Time, loc *time.Location) []UsageRecord {
	out := make([]UsageRecord, 0, len(records))
	for _, rec := range records {
		if rec.HospitalID != hospitalID {
			continue
		}
		if !InRange(rec.AdmissionDate, from, to, loc) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Summarize totals the entries field by field.
func Summarize(entries []Entry) Summary {
	sum := Summary{
		TotalBillAmount:    decimal.Zero,
		TotalCommission:    decimal.Zero,
		TotalNetToHospital: decimal.Zero,
	}
	for _, e := range entries {
		sum.TotalBillAmount = sum.TotalBillAmount.Add(e.TotalServiceAmount)
		sum.TotalCommission = sum.TotalCommission.Add(e.CalculatedCommission)
		sum.TotalNetToHospital = sum.TotalNetToHospital.Add(e.NetAmountToHospital)
	}
	return sum
}

// Aggregate builds the bill report of hospital h from records. Records outside
// the hospital or date range are ignored; an empty selection yields an empty report.
func (b Builder) Aggregate(h Hospital, records []UsageRecord, catalog Catalog, f Filters) (Report, error) {
	loc := b.location()
	if err := ValidateRange(f.DateFrom, f.DateTo, loc); err != nil {
		return Report{}, err
	}
	selected := FilterRecords(records, h.ID, f.DateFrom, f.DateTo, loc)
	entries := make([]Entry, 0, len(selected))
	for _, rec := range selected {
		entry, err := b.Build(rec, h, catalog)
		if err != nil {
			return Report{}, err
		}
		entries = append(entries, entry)
	}
	return Report{
		HospitalName:    h.Name,
		ReferencePerson: h.Reference.Name,
		DateFrom:        FormatDate(CalendarDay(f.DateFrom, loc)),
		DateTo:          FormatDate(CalendarDay(f.DateTo, loc)),
		Entries:         entries,
		Summary:         Summarize(entries),
	}, nil
}

// PreviousMonth returns the first and last day of the calendar month before now.
func PreviousMonth(now time.Time, loc *time.Location) (time.Time, time.Time) {
	today := DateOnly(now, loc)
	firstThisMonth := today.AddDate(0, 0, 1-today.Day())
	return firstThisMonth.AddDate(0, -1, 0), firstThisMonth.AddDate(0, 0, -1)
}

// FormatDate renders t as a long date with an ordinal day, e.g. "October 15th, 2023".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%s %s, %d", t.Month(), ordinal(t.Day()), t.Year())
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
