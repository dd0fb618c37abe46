package trips

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/daytally/backend/internal/dates"
)

// exportHeader is the fixed 4-column layout of the canonical export.
var exportHeader = []string{"FROM", "TO", "LOCATION", "NOTES"}

// ParseCSV reads a headered CSV document into loosely-typed rows keyed by
// the literal header names. Cells are trimmed and fully empty lines are
// skipped; header alias resolution happens later, against RawRow.
func ParseCSV(reader io.Reader) ([]RawRow, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("trips: reading csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []RawRow
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("trips: reading csv row %d: %w", len(rows)+1, err)
		}

		row := make(RawRow, len(header))
		empty := true
		for i, cell := range record {
			if i >= len(header) || header[i] == "" {
				continue
			}
			value := strings.TrimSpace(cell)
			if value != "" {
				empty = false
			}
			row[header[i]] = value
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// WriteCSV renders trips as the canonical FROM,TO,LOCATION,NOTES document
// with ISO dates. Embedded quotes in notes come out doubled per RFC 4180.
func WriteCSV(trips []Trip) ([]byte, error) {
	var buffer bytes.Buffer
	csvWriter := csv.NewWriter(&buffer)

	if err := csvWriter.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("trips: writing csv header: %w", err)
	}
	for _, trip := range trips {
		record := []string{
			dates.FormatISO(trip.DateFrom),
			dates.FormatISO(trip.DateTo),
			trip.CountryCode,
			trip.Notes,
		}
		if err := csvWriter.Write(record); err != nil {
			return nil, fmt.Errorf("trips: writing csv row: %w", err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return nil, fmt.Errorf("trips: flushing csv: %w", err)
	}
	return buffer.Bytes(), nil
}
