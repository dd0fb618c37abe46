package trips

// RawRow is one loosely-typed row handed over by CSV ingestion: header names
// vary between our canonical export, older exports, and hand-edited
// spreadsheets, so values are located by alias lists, first match wins.
type RawRow map[string]string

// Header aliases accepted for each logical field. The tables live here, away
// from the validation logic, so new spreadsheet dialects only touch this file.
var (
	countryAliases  = []string{"countryCode", "country_code", "LOCATION", "location", "Country", "country"}
	dateFromAliases = []string{"dateFrom", "date_from", "from", "FROM", "start", "startDate", "Start Date"}
	dateToAliases   = []string{"dateTo", "date_to", "to", "TO", "end", "endDate", "End Date"}
	notesAliases    = []string{"notes", "NOTES", "comment", "Comment", "Comments"}
)

func firstValue(row RawRow, aliases []string) string {
	for _, key := range aliases {
		if value, ok := row[key]; ok && value != "" {
			return value
		}
	}
	return ""
}
