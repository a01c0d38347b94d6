package reconcile

import "draftline/pkg/domain"

// FieldCategory groups fields that share an authoritative source.
type FieldCategory string

const (
	CategoryBiometric FieldCategory = "biometric"
	CategoryGrade     FieldCategory = "grade"
	CategoryStats     FieldCategory = "stats"
	CategoryStatus    FieldCategory = "status"
	CategoryIdentity  FieldCategory = "identity"
)

// fieldCategories assigns every reconciled field to a category. Fields
// not listed have no category and therefore no authority; conflicts on
// them always escalate.
var fieldCategories = map[string]FieldCategory{
	"height":      CategoryBiometric,
	"weight":      CategoryBiometric,
	"forty_time":  CategoryBiometric,
	"grade":       CategoryGrade,
	"touchdowns":  CategoryStats,
	"yards":       CategoryStats,
	"status":      CategoryStatus,
	"return_date": CategoryStatus,
	"first_name":  CategoryIdentity,
	"last_name":   CategoryIdentity,
	"college":     CategoryIdentity,
	"position":    CategoryIdentity,
}

// categoryAuthority is the fixed field-category to authoritative-source
// table. League data wins on measurements, grades, status and identity;
// espn's stat feeds win on production numbers.
var categoryAuthority = map[FieldCategory]domain.Source{
	CategoryBiometric: domain.SourceNFL,
	CategoryGrade:     domain.SourceNFL,
	CategoryStats:     domain.SourceESPN,
	CategoryStatus:    domain.SourceNFL,
	CategoryIdentity:  domain.SourceNFL,
}

// AuthorityFor returns the authoritative source for a field, if one is
// configured for its category.
func AuthorityFor(field string) (domain.Source, bool) {
	cat, ok := fieldCategories[field]
	if !ok {
		return "", false
	}
	src, ok := categoryAuthority[cat]
	return src, ok
}
