package utils

import "time"

const DateLayout = "2006-01-02"

// FormatDate renders a date in the wire format used by the backend.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// LastTradingDay rolls weekend dates back to the preceding Friday.
func LastTradingDay(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, -2)
	default:
		return t
	}
}

// DateWindow returns the [start, end] pair ending at the last trading day
// before now and starting lookbackDays earlier.
func DateWindow(now time.Time, lookbackDays int) (time.Time, time.Time) {
	end := LastTradingDay(now)
	return end.AddDate(0, 0, -lookbackDays), end
}
