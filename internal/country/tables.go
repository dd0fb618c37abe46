package country

// alpha3ToAlpha2 resolves 3-letter codes to their 2-letter equivalent.
// "UK" only matches here as an inner token; a bare "UK" cell takes the
// 2-letter passthrough instead.
var alpha3ToAlpha2 = map[string]string{
	"AGO": "AO",
	"BEL": "BE",
	"BWA": "BW",
	"CAN": "CA",
	"CHE": "CH",
	"DEU": "DE",
	"ESP": "ES",
	"FRA": "FR",
	"GBR": "GB",
	"HKG": "HK",
	"HUN": "HU",
	"ISR": "IL",
	"ITA": "IT",
	"NLD": "NL",
	"PRT": "PT",
	"ROU": "RO",
	"UK":  "GB",
	"USA": "US",
	"ZAF": "ZA",
}

// nameToAlpha2 resolves full country names, uppercased with punctuation
// stripped, to their 2-letter code.
var nameToAlpha2 = map[string]string{
	"ANGOLA":         "AO",
	"BELGIUM":        "BE",
	"BOTSWANA":       "BW",
	"CANADA":         "CA",
	"FRANCE":         "FR",
	"GERMANY":        "DE",
	"HONG KONG":      "HK",
	"HUNGARY":        "HU",
	"ISRAEL":         "IL",
	"ITALY":          "IT",
	"NETHERLANDS":    "NL",
	"PORTUGAL":       "PT",
	"ROMANIA":        "RO",
	"SOUTH AFRICA":   "ZA",
	"SPAIN":          "ES",
	"SWITZERLAND":    "CH",
	"UNITED KINGDOM": "GB",
	"UNITED STATES":  "US",
}
