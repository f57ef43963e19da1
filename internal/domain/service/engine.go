package service

import "AstroTransit/internal/domain/models"

// AspectMatcher classifies the angular relation of two longitudes.
type AspectMatcher interface {
	Match(a, b float64) (models.AspectMatch, bool)
}
