package service

import (
	"geonames-importer/internal/models"
)

// CategoryFilter accepts records whose feature code is in a fixed set.
type CategoryFilter struct {
	codes map[string]struct{}
}

// NewCategoryFilter builds a filter for the given, already validated, codes.
func NewCategoryFilter(codes []string) CategoryFilter {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return CategoryFilter{codes: set}
}

// Accept reports whether rec should be loaded.
func (f CategoryFilter) Accept(rec *models.LocationRecord) bool {
	_, ok := f.codes[rec.FeatureCode]
	return ok
}
