package seasonal

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "seasonalcli/internal/errors"
)

// DateExtent is the calendar span of one adjustment run.
type DateExtent struct {
	StartYear  int `json:"start_year"`
	EndYear    int `json:"end_year"`
	StartMonth int `json:"start_month"`
}

// StartLabel renders the start position as the specification expects it, e.g. 2021.1.
func (e DateExtent) StartLabel() string {
	return fmt.Sprintf("%d.%d", e.StartYear, e.StartMonth)
}

// String renders the extent with a zero-padded start month.
func (e DateExtent) String() string {
	return fmt.Sprintf("%d-%02d..%d", e.StartYear, e.StartMonth, e.EndYear)
}

// yearMonth is a record date split into its numeric parts.
type yearMonth struct {
	year  int
	month int
}

// key orders dates the way the grid is laid out, e.g. 202103.
func (ym yearMonth) key() int {
	return ym.year*100 + ym.month
}

// parseDate splits a "YYYY-MM" record date. The year is the text before
// the first dash and the month the text between the first and second.
func parseDate(rec Record, dateField string) (yearMonth, error) {
	raw, ok := rec[dateField]
	if !ok || raw == nil {
		return yearMonth{}, apperrors.NewValidationError(fmt.Sprintf("record has no %q field", dateField))
	}
	date, ok := raw.(string)
	if !ok {
		return yearMonth{}, apperrors.NewValidationError(fmt.Sprintf("%q must be a string, got %T", dateField, raw))
	}

	yearText, rest, _ := strings.Cut(date, "-")
	monthText, _, _ := strings.Cut(rest, "-")

	year, err := strconv.Atoi(strings.TrimSpace(yearText))
	if err != nil {
		return yearMonth{}, apperrors.NewExtentError(fmt.Sprintf("invalid year in date %q", date), err).
			WithContext("date", date)
	}
	month, err := strconv.Atoi(strings.TrimSpace(monthText))
	if err != nil {
		return yearMonth{}, apperrors.NewExtentError(fmt.Sprintf("invalid month in date %q", date), err).
			WithContext("date", date)
	}

	return yearMonth{year: year, month: month}, nil
}

// DetectExtent scans records for the first and last year and the earliest
// month of the first year. Any month outside 1..12 or a year that does not
// render as four digits is rejected.
func DetectExtent(records []Record, dateField string) (DateExtent, error) {
	if len(records) == 0 {
		return DateExtent{}, apperrors.NewValidationError("no records to adjust")
	}

	dates := make([]yearMonth, len(records))
	for i, rec := range records {
		ym, err := parseDate(rec, dateField)
		if err != nil {
			return DateExtent{}, err
		}
		dates[i] = ym
	}

	ext := DateExtent{StartYear: dates[0].year, EndYear: dates[0].year}
	for _, ym := range dates[1:] {
		ext.StartYear = min(ext.StartYear, ym.year)
		ext.EndYear = max(ext.EndYear, ym.year)
	}

	for _, ym := range dates {
		if ym.year != ext.StartYear {
			continue
		}
		if ext.StartMonth == 0 || ym.month < ext.StartMonth {
			ext.StartMonth = ym.month
		}
	}

	if err := ext.Validate(); err != nil {
		return DateExtent{}, err
	}

	for i, ym := range dates {
		if ym.month < 1 || ym.month > 12 {
			return DateExtent{}, apperrors.NewExtentError(fmt.Sprintf("month %d out of range in record %d", ym.month, i), nil).
				WithContext("record", i)
		}
	}

	return ext, nil
}

// Validate checks the extent invariants.
func (e DateExtent) Validate() error {
	if e.StartMonth < 1 || e.StartMonth > 12 {
		return apperrors.NewExtentError(fmt.Sprintf("start month %d out of range 1-12", e.StartMonth), nil).
			WithContext("start_month", e.StartMonth)
	}
	for _, year := range []int{e.StartYear, e.EndYear} {
		if len(strconv.Itoa(year)) != 4 {
			return apperrors.NewExtentError(fmt.Sprintf("year %d is not four digits", year), nil).
				WithContext("year", year)
		}
	}
	if e.StartYear > e.EndYear {
		return apperrors.NewExtentError(fmt.Sprintf("start year %d after end year %d", e.StartYear, e.EndYear), nil)
	}
	return nil
}
