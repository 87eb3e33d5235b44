package constants

import "strings"

type Category string

const (
	Food          Category = "식비"
	Cafe          Category = "카페/간식"
	Groceries     Category = "장보기"
	Transport     Category = "교통"
	Household     Category = "생활용품"
	Medical       Category = "의료/건강"
	Entertainment Category = "문화/여가"
	Misc          Category = "기타"
)

// DefaultCategory is the catch-all tag applied when a receipt is saved
// without an explicit category.
const DefaultCategory = Misc

var allCategories = []Category{
	Food,
	Cafe,
	Groceries,
	Transport,
	Household,
	Medical,
	Entertainment,
	Misc,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps a free-form label to a canonical category. Unrecognized
// labels fall back to Misc with ok=false; the stored tag stays free-form,
// this mapping only drives reporting buckets.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Misc, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]Category{
		"음식":          Food,
		"식당":          Food,
		"외식":          Food,
		"restaurant":  Food,
		"food":        Food,
		"커피":          Cafe,
		"카페":          Cafe,
		"cafe":        Cafe,
		"coffee":      Cafe,
		"마트":          Groceries,
		"편의점":         Groceries,
		"grocery":     Groceries,
		"택시":          Transport,
		"버스":          Transport,
		"지하철":         Transport,
		"taxi":        Transport,
		"약국":          Medical,
		"병원":          Medical,
		"pharmacy":    Medical,
		"영화":          Entertainment,
		"misc":        Misc,
		"uncategorized": Misc,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Misc, false
}
