package trips

import (
	"strings"
	"time"

	"github.com/daytally/backend/internal/country"
	"github.com/daytally/backend/internal/dates"
)

// Row-level error messages. The wording is part of the import contract:
// users fix spreadsheets against these exact strings.
const (
	msgCountryInvalid  = "country code missing/invalid (expect 2-letter ISO, e.g. IL, BE)"
	msgDateFromInvalid = "dateFrom missing/invalid (use YYYY-MM-DD)"
	msgDateToInvalid   = "dateTo missing/invalid (use YYYY-MM-DD)"
	msgDateOrder       = "dateFrom is after dateTo"
)

// RowError is a single row-scoped validation failure. Row is 1-based,
// matching the data rows of the uploaded file.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// validatedRow is a batch row that survived normalization: canonical country
// code, parsed UTC dates in order, trimmed notes.
type validatedRow struct {
	index       int
	countryCode string
	dateFrom    time.Time
	dateTo      time.Time
	notes       string
}

// validateRows runs the per-row normalization pipeline over a batch.
//
// Every row is evaluated independently so one bad row does not stop
// reporting for the rest. The returned country codes cover every row whose
// country normalized, including rows that later failed date checks: the
// caller upserts those reference rows before deciding the batch verdict.
func validateRows(rows []RawRow) ([]validatedRow, []string, []RowError) {
	valid := make([]validatedRow, 0, len(rows))
	var rowErrors []RowError

	seenCodes := make(map[string]struct{})
	var codes []string

	for i, row := range rows {
		rowNumber := i + 1

		code, countryErr := country.Normalize(firstValue(row, countryAliases))
		if countryErr != nil {
			rowErrors = append(rowErrors, RowError{Row: rowNumber, Message: msgCountryInvalid})
			continue
		}
		if _, seen := seenCodes[code]; !seen {
			seenCodes[code] = struct{}{}
			codes = append(codes, code)
		}

		dateFrom, fromErr := dates.Parse(firstValue(row, dateFromAliases))
		if fromErr != nil {
			rowErrors = append(rowErrors, RowError{Row: rowNumber, Message: msgDateFromInvalid})
			continue
		}
		dateTo, toErr := dates.Parse(firstValue(row, dateToAliases))
		if toErr != nil {
			rowErrors = append(rowErrors, RowError{Row: rowNumber, Message: msgDateToInvalid})
			continue
		}
		if dateFrom.After(dateTo) {
			rowErrors = append(rowErrors, RowError{Row: rowNumber, Message: msgDateOrder})
			continue
		}

		valid = append(valid, validatedRow{
			index:       i,
			countryCode: code,
			dateFrom:    dateFrom,
			dateTo:      dateTo,
			notes:       strings.TrimSpace(firstValue(row, notesAliases)),
		})
	}

	return valid, codes, rowErrors
}

// overlapErrors checks every normalized batch row against the persisted trip
// set and then against every earlier row of the same batch. The later row is
// always the one blamed so a user fixing top-to-bottom clears conflicts in
// one pass.
func overlapErrors(rows []validatedRow, existing []Trip) []RowError {
	var rowErrors []RowError

	for _, row := range rows {
		if conflict := findConflict(row.dateFrom, row.dateTo, existing, ""); conflict != nil {
			rowErrors = append(rowErrors, RowError{
				Row:     row.index + 1,
				Message: (&ConflictError{Conflicting: *conflict}).Error(),
			})
		}
	}

	for j := 1; j < len(rows); j++ {
		for i := 0; i < j; i++ {
			if Overlaps(rows[j].dateFrom, rows[j].dateTo, rows[i].dateFrom, rows[i].dateTo) {
				earlier := Trip{
					CountryCode: rows[i].countryCode,
					DateFrom:    rows[i].dateFrom,
					DateTo:      rows[i].dateTo,
				}
				rowErrors = append(rowErrors, RowError{
					Row:     rows[j].index + 1,
					Message: (&ConflictError{Conflicting: earlier}).Error(),
				})
				break
			}
		}
	}

	return rowErrors
}
