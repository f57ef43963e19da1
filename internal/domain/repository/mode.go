package repository

import "AstroTransit/internal/domain/models"

// IsValidMode returns true if m is a supported report mode.
func IsValidMode(m models.ReportMode) bool {
	switch m {
	case models.ModeNatal, models.ModeWeekly:
		return true
	default:
		return false
	}
}

// NormalizeFormat converts raw string to a valid format (or text).
func NormalizeFormat(s string) models.ReportFormat {
	f := models.ReportFormat(s)
	switch f {
	case models.FormatText, models.FormatMarkdown, models.FormatJSON:
		return f
	default:
		return models.FormatText
	}
}
