package farm

import "testing"

func TestValidCrop(t *testing.T) {
	cases := []struct {
		value string
		valid bool
	}{
		{value: "cocoa", valid: true},
		{value: "oilPalm", valid: true},
		{value: "other", valid: true},
		{value: "tulips", valid: false},
		{value: "Cocoa", valid: false},
		{value: "", valid: false},
	}

	for _, testCase := range cases {
		if got := ValidCrop(testCase.value); got != testCase.valid {
			t.Fatalf("ValidCrop(%q) = %v, expected %v", testCase.value, got, testCase.valid)
		}
	}
}

func TestValidActivityCategory(t *testing.T) {
	cases := []struct {
		value string
		valid bool
	}{
		{value: "landPreparation", valid: true},
		{value: "pestControl", valid: true},
		{value: "harvest", valid: true},
		{value: "dancing", valid: false},
		{value: "", valid: false},
	}

	for _, testCase := range cases {
		if got := ValidActivityCategory(testCase.value); got != testCase.valid {
			t.Fatalf("ValidActivityCategory(%q) = %v, expected %v", testCase.value, got, testCase.valid)
		}
	}
}

func TestValidFinancialRecordType(t *testing.T) {
	cases := []struct {
		value string
		valid bool
	}{
		{value: "income", valid: true},
		{value: "expense", valid: true},
		{value: "transfer", valid: false},
		{value: "", valid: false},
	}

	for _, testCase := range cases {
		if got := ValidFinancialRecordType(testCase.value); got != testCase.valid {
			t.Fatalf("ValidFinancialRecordType(%q) = %v, expected %v", testCase.value, got, testCase.valid)
		}
	}
}

func TestKindsCoverEveryEntity(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 6 {
		t.Fatalf("expected six entity kinds, got %d", len(kinds))
	}
	if kinds[0] != KindPlantation {
		t.Fatalf("plantations must come first so parents precede children, got %q", kinds[0])
	}
	seen := make(map[EntityKind]bool, len(kinds))
	for _, kind := range kinds {
		if seen[kind] {
			t.Fatalf("duplicate kind %q", kind)
		}
		seen[kind] = true
	}
}
