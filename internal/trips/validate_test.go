package trips

import (
	"testing"
	"time"
)

func TestValidateRowsCollectsIndependentErrors(t *testing.T) {
	rows := []RawRow{
		{"country": "Belgium", "from": "2024-01-01", "to": "2024-01-05"},
		{"country": "Atlantis", "from": "2024-02-01", "to": "2024-02-05"},
		{"country": "FR", "from": "not a date", "to": "2024-03-05"},
		{"country": "DE", "from": "2024-04-01", "to": "garbage"},
		{"country": "NL", "from": "2024-05-10", "to": "2024-05-01"},
	}

	valid, codes, rowErrors := validateRows(rows)

	if len(valid) != 1 {
		t.Fatalf("expected 1 valid row, got %d", len(valid))
	}
	if valid[0].countryCode != "BE" || valid[0].index != 0 {
		t.Fatalf("unexpected valid row: %+v", valid[0])
	}

	expectedErrors := []RowError{
		{Row: 2, Message: msgCountryInvalid},
		{Row: 3, Message: msgDateFromInvalid},
		{Row: 4, Message: msgDateToInvalid},
		{Row: 5, Message: msgDateOrder},
	}
	if len(rowErrors) != len(expectedErrors) {
		t.Fatalf("expected %d row errors, got %d: %+v", len(expectedErrors), len(rowErrors), rowErrors)
	}
	for i, expected := range expectedErrors {
		if rowErrors[i] != expected {
			t.Fatalf("row error %d: expected %+v, got %+v", i, expected, rowErrors[i])
		}
	}

	// FR, DE and NL normalized before their rows failed, so they still join
	// the reference upsert alongside BE.
	expectedCodes := []string{"BE", "FR", "DE", "NL"}
	if len(codes) != len(expectedCodes) {
		t.Fatalf("expected codes %v, got %v", expectedCodes, codes)
	}
	for i, code := range expectedCodes {
		if codes[i] != code {
			t.Fatalf("expected codes %v, got %v", expectedCodes, codes)
		}
	}
}

func TestValidateRowsHeaderAliases(t *testing.T) {
	rows := []RawRow{
		{"LOCATION": "be", "FROM": "2024-01-01", "TO": "2024-01-02", "NOTES": "  conference  "},
		{"country_code": "FR", "date_from": "05-03-2024", "date_to": "06-03-2024"},
	}

	valid, _, rowErrors := validateRows(rows)
	if len(rowErrors) != 0 {
		t.Fatalf("expected no row errors, got %+v", rowErrors)
	}
	if len(valid) != 2 {
		t.Fatalf("expected 2 valid rows, got %d", len(valid))
	}
	if valid[0].countryCode != "BE" || valid[0].notes != "conference" {
		t.Fatalf("unexpected first row: %+v", valid[0])
	}
	if valid[1].countryCode != "FR" || !valid[1].dateFrom.Equal(day(2024, time.March, 5)) {
		t.Fatalf("unexpected second row: %+v", valid[1])
	}
}

func TestOverlapErrorsAgainstExistingTrips(t *testing.T) {
	existing := []Trip{
		{CountryCode: "BE", DateFrom: day(2024, time.March, 1), DateTo: day(2024, time.March, 10)},
	}
	rows := []validatedRow{
		{index: 0, countryCode: "FR", dateFrom: day(2024, time.March, 5), dateTo: day(2024, time.March, 7)},
		{index: 1, countryCode: "DE", dateFrom: day(2024, time.March, 10), dateTo: day(2024, time.March, 12)},
	}

	rowErrors := overlapErrors(rows, existing)
	if len(rowErrors) != 1 {
		t.Fatalf("expected 1 overlap error, got %+v", rowErrors)
	}
	if rowErrors[0].Row != 1 {
		t.Fatalf("expected row 1 blamed, got %d", rowErrors[0].Row)
	}
	expected := "Trip overlaps with existing BE trip from 1/3/2024 to 10/3/2024"
	if rowErrors[0].Message != expected {
		t.Fatalf("expected %q, got %q", expected, rowErrors[0].Message)
	}
}

func TestOverlapErrorsWithinBatchBlamesLaterRow(t *testing.T) {
	rows := []validatedRow{
		{index: 0, countryCode: "FR", dateFrom: day(2024, time.May, 1), dateTo: day(2024, time.May, 10)},
		{index: 1, countryCode: "DE", dateFrom: day(2024, time.May, 5), dateTo: day(2024, time.May, 15)},
	}

	rowErrors := overlapErrors(rows, nil)
	if len(rowErrors) != 1 {
		t.Fatalf("expected 1 overlap error, got %+v", rowErrors)
	}
	if rowErrors[0].Row != 2 {
		t.Fatalf("expected later row blamed, got row %d", rowErrors[0].Row)
	}
	expected := "Trip overlaps with existing FR trip from 1/5/2024 to 10/5/2024"
	if rowErrors[0].Message != expected {
		t.Fatalf("expected %q, got %q", expected, rowErrors[0].Message)
	}
}

func TestOverlapErrorsBackToBackRowsAreClean(t *testing.T) {
	rows := []validatedRow{
		{index: 0, countryCode: "FR", dateFrom: day(2024, time.May, 1), dateTo: day(2024, time.May, 5)},
		{index: 1, countryCode: "DE", dateFrom: day(2024, time.May, 5), dateTo: day(2024, time.May, 10)},
	}

	if rowErrors := overlapErrors(rows, nil); len(rowErrors) != 0 {
		t.Fatalf("expected no overlap errors, got %+v", rowErrors)
	}
}
