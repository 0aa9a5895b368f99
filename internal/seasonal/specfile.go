package seasonal

import (
	"fmt"
	"sort"
	"strings"

	apperrors "seasonalcli/internal/errors"
	"seasonalcli/internal/files"
)

const specTitle = "seasonal auto adjust"

type datedRecord struct {
	date yearMonth
	rec  Record
}

// BuildSpec renders the specification document for one value field.
// Each year of the extent gets one line of space-separated monthly slots;
// months without a record stay empty so later values never shift.
func BuildSpec(ext DateExtent, records []Record, dateField, field string, tableIDs []string) (string, error) {
	if err := ext.Validate(); err != nil {
		return "", err
	}

	byYear := make(map[int][]datedRecord)
	for _, rec := range records {
		ym, err := parseDate(rec, dateField)
		if err != nil {
			return "", err
		}
		byYear[ym.year] = append(byYear[ym.year], datedRecord{date: ym, rec: rec})
	}

	var b strings.Builder
	b.WriteString("series {\n")
	fmt.Fprintf(&b, "title = %q\n", specTitle)
	b.WriteString("data = (\n")
	for y := ext.StartYear; y <= ext.EndYear; y++ {
		b.WriteString(gridLine(ext, y, byYear[y], field))
		b.WriteByte('\n')
	}
	b.WriteString(")\n")
	fmt.Fprintf(&b, "start = %s\n", ext.StartLabel())
	b.WriteString("}\n")
	fmt.Fprintf(&b, "x11{ save = (%s) }", strings.Join(tableIDs, " "))

	return b.String(), nil
}

// gridLine lays one year's records onto month slots. The first year starts
// at the start month and the last year stops at its last present month.
func gridLine(ext DateExtent, year int, recs []datedRecord, field string) string {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].date.key() < recs[j].date.key()
	})

	first, last := 1, 12
	if year == ext.StartYear {
		first = ext.StartMonth
	}
	if year == ext.EndYear && len(recs) > 0 {
		last = recs[len(recs)-1].date.month
	}

	byMonth := make(map[int]Record, len(recs))
	for _, dr := range recs {
		if _, seen := byMonth[dr.date.month]; !seen {
			byMonth[dr.date.month] = dr.rec
		}
	}

	slots := make([]string, 0, last-first+1)
	for m := first; m <= last; m++ {
		if rec, ok := byMonth[m]; ok {
			slots = append(slots, FormatValue(rec[field]))
		} else {
			slots = append(slots, "")
		}
	}
	return strings.Join(slots, " ")
}

// WriteSpec writes the document for field into ws and returns the base
// path handed to the external binary.
func WriteSpec(ws *files.Workspace, ext DateExtent, records []Record, dateField, field string, tableIDs []string) (string, error) {
	doc, err := BuildSpec(ext, records, dateField, field, tableIDs)
	if err != nil {
		return "", err
	}

	if _, err := ws.WriteFile(SpecBaseName(field)+specExtension, []byte(doc)); err != nil {
		return "", apperrors.NewStorageError(fmt.Sprintf("failed to write specification for %q", field), err).
			WithContext("field", field)
	}
	return ws.Path(SpecBaseName(field)), nil
}
