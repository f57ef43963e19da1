package aspects

import "AstroTransit/internal/domain/models"

// HouseOf returns the 1-based house whose span [cusp_i, cusp_i+1) contains
// longitude, wrapping through 0° when the next cusp is smaller. Zero means no
// span matched, which only happens for degenerate cusps.
func HouseOf(longitude float64, cusps models.HouseCusps) int {
	lon := models.NormalizeDegrees(longitude)
	for i := 0; i < 12; i++ {
		start := cusps[i]
		end := cusps[(i+1)%12]
		if start <= end {
			if lon >= start && lon < end {
				return i + 1
			}
			continue
		}
		if lon >= start || lon < end {
			return i + 1
		}
	}
	return 0
}
