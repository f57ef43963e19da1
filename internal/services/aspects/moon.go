package aspects

import "AstroTransit/internal/domain/models"

var moonPhases = [8]string{
	"New Moon", "Waxing Crescent", "First Quarter", "Waxing Gibbous",
	"Full Moon", "Waning Gibbous", "Last Quarter", "Waning Crescent",
}

// MoonPhase names the phase from the Sun-Moon elongation. Each phase spans 45°
// centred on its exact angle, so New Moon covers [337.5, 22.5).
func MoonPhase(sun, moon float64) string {
	elong := models.NormalizeDegrees(moon - sun)
	idx := int(models.NormalizeDegrees(elong+22.5) / 45)
	if idx > 7 {
		idx = 7
	}
	return moonPhases[idx]
}
