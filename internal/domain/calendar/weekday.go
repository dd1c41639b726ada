// Package calendar holds the deterministic weekday utility. It deliberately
// avoids time.Time, the system clock and zone data: everything is integer
// arithmetic on the proleptic Gregorian calendar, so results are
// reproducible for any date, anywhere.
package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	apperrors "github.com/astrowise/astrowise-api/pkg/errors"
)

// WeekdayResult is the normalized date with its weekday in both languages.
type WeekdayResult struct {
	Status    string `json:"status"`
	Date      string `json:"date"`
	WeekdayTh string `json:"weekdayTh"`
	WeekdayEn string `json:"weekdayEn"`
}

var weekTh = [7]string{"อาทิตย์", "จันทร์", "อังคาร", "พุธ", "พฤหัสบดี", "ศุกร์", "เสาร์"}

var weekEn = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

var thaiMonths = map[string]int{
	"มกราคม": 1, "ม.ค.": 1,
	"กุมภาพันธ์": 2, "ก.พ.": 2,
	"มีนาคม": 3, "มี.ค.": 3,
	"เมษายน": 4, "เม.ย.": 4,
	"พฤษภาคม": 5, "พ.ค.": 5,
	"มิถุนายน": 6, "มิ.ย.": 6,
	"กรกฎาคม": 7, "ก.ค.": 7,
	"สิงหาคม": 8, "ส.ค.": 8,
	"กันยายน": 9, "ก.ย.": 9,
	"ตุลาคม": 10, "ต.ค.": 10,
	"พฤศจิกายน": 11, "พ.ย.": 11,
	"ธันวาคม": 12, "ธ.ค.": 12,
}

var (
	dayFirstPattern  = regexp.MustCompile(`^(\d{1,2})[/\-](\d{1,2})[/\-](\d{2,4})$`)
	yearFirstPattern = regexp.MustCompile(`^(\d{4})[/\-](\d{1,2})[/\-](\d{1,2})$`)
	monthNamePattern = regexp.MustCompile(`^(\d{1,2})\s+(\S+)\s+(\d{2,4})$`)
)

// Weekday parses a loosely formatted Gregorian or Buddhist-era date string
// and returns the ISO date plus weekday names. Patterns are tried in order;
// the first match wins.
func Weekday(input string) (WeekdayResult, error) {
	s := norm.NFC.String(strings.TrimSpace(input))
	s = strings.ReplaceAll(s, ",", " ")
	s = strings.Join(strings.Fields(s), " ")

	var day, month, year int
	switch {
	case dayFirstPattern.MatchString(s):
		m := dayFirstPattern.FindStringSubmatch(s)
		day = atoi(m[1])
		month = atoi(m[2])
		year = normalizeYear(m[3])
	case yearFirstPattern.MatchString(s):
		m := yearFirstPattern.FindStringSubmatch(s)
		year = normalizeYear(m[1])
		month = atoi(m[2])
		day = atoi(m[3])
	case monthNamePattern.MatchString(s):
		m := monthNamePattern.FindStringSubmatch(s)
		var err error
		day = atoi(m[1])
		month, err = parseMonthName(m[2])
		if err != nil {
			return WeekdayResult{}, err
		}
		year = normalizeYear(m[3])
	default:
		return WeekdayResult{}, apperrors.Wrap(apperrors.CodeUnparsableDate,
			fmt.Sprintf("unsupported date format %q", input), nil)
	}

	if month < 1 || month > 12 || day < 1 || day > daysInMonth(year, month) {
		return WeekdayResult{}, apperrors.Wrap(apperrors.CodeUnparsableDate,
			fmt.Sprintf("no such calendar date %04d-%02d-%02d", year, month, day), nil)
	}

	idx := weekdayIndex(year, month, day)
	return WeekdayResult{
		Status:    "ok",
		Date:      fmt.Sprintf("%04d-%02d-%02d", year, month, day),
		WeekdayTh: weekTh[idx],
		WeekdayEn: weekEn[idx],
	}, nil
}

// normalizeYear maps Buddhist-era and 2-digit years onto Gregorian years.
// Years above 2400 are BE (subtract 543); 2-digit years are anchored to the
// 2500s BE, not to a pivot around the current date.
func normalizeYear(raw string) int {
	year := atoi(raw)
	if year > 2400 {
		return year - 543
	}
	if year < 100 {
		return (2500 + year) - 543
	}
	return year
}

func parseMonthName(raw string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(key); err == nil {
		return n, nil
	}
	if month, ok := thaiMonths[key]; ok {
		return month, nil
	}
	return 0, apperrors.Wrap(apperrors.CodeUnparsableDate, fmt.Sprintf("unknown month name %q", raw), nil)
}

// weekdayIndex is Sakamoto's congruence; 0 is Sunday.
func weekdayIndex(year, month, day int) int {
	t := [12]int{0, 3, 2, 5, 0, 3, 5, 1, 4, 6, 2, 4}
	if month < 3 {
		year--
	}
	idx := (year + year/4 - year/100 + year/400 + t[month-1] + day) % 7
	if idx < 0 {
		idx += 7
	}
	return idx
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	default:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
