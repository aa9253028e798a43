package farm

// Enumerated field values shared by the CRUD services and the sync engine so
// both paths reject the same inputs identically.

var cropValues = map[string]bool{
	"cocoa":      true,
	"coffee":     true,
	"oilPalm":    true,
	"rubber":     true,
	"maize":      true,
	"cassava":    true,
	"rice":       true,
	"plantain":   true,
	"vegetables": true,
	"other":      true,
}

var activityCategories = map[string]bool{
	"landPreparation": true,
	"planting":        true,
	"irrigation":      true,
	"fertilizing":     true,
	"pestControl":     true,
	"weeding":         true,
	"pruning":         true,
	"harvest":         true,
	"other":           true,
}

var financialRecordTypes = map[string]bool{
	"income":  true,
	"expense": true,
}

// ValidCrop reports whether value is a legal crop identifier.
func ValidCrop(value string) bool {
	return cropValues[value]
}

// ValidActivityCategory reports whether value is a legal activity category.
func ValidActivityCategory(value string) bool {
	return activityCategories[value]
}

// ValidFinancialRecordType reports whether value is a legal record type.
func ValidFinancialRecordType(value string) bool {
	return financialRecordTypes[value]
}
