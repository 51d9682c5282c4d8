package timeutil

import (
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30)
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		IST = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Now returns the current time in IST
func Now() time.Time {
	return time.Now().In(IST)
}

// Today returns the current calendar date in IST
func Today() time.Time {
	return DateOf(Now())
}

// Date builds a calendar date at midnight IST
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, IST)
}

// DateOf strips the clock part of t after converting it to IST
func DateOf(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, IST)
}

// DaysBetween counts calendar days from `from` to `to`. Negative when to is earlier.
func DaysBetween(from, to time.Time) int {
	f := DateOf(from)
	t := DateOf(to)
	// compare as UTC dates so the count never depends on clock offsets
	fu := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	tu := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(tu.Sub(fu).Hours() / 24)
}

// FirstOfMonth returns day 1 of the billing month
func FirstOfMonth(year, month int) time.Time {
	return Date(year, time.Month(month), 1)
}

// DaysInMonth returns the number of days in the month
func DaysInMonth(year, month int) int {
	return Date(year, time.Month(month)+1, 0).Day()
}

// DueDate returns `day` of the billing month, clamped to the month's last day
func DueDate(year, month, day int) time.Time {
	if day < 1 {
		day = 1
	}
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return Date(year, time.Month(month), day)
}

// ParseDate parses a YYYY-MM-DD date in IST
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, IST)
}

// FormatIST formats a time in IST using the given layout
func FormatIST(t time.Time, layout string) string {
	return t.In(IST).Format(layout)
}

// Common layouts for IST formatting
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayDate    = "02 Jan 2006"
)
