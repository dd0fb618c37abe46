// Package country holds the country reference model and the normalizer that
// maps free-form country input (codes, names, decorated CSV cells) to a
// canonical ISO 3166-1 alpha-2 code.
package country

// Country is a reference entity keyed by its 2-letter code. Rows are created
// lazily whenever a trip first references a code and are never deleted.
type Country struct {
	Code  string `gorm:"column:code;primaryKey;size:2;not null"`
	Label string `gorm:"column:label;size:190;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Country) TableName() string {
	return "countries"
}
