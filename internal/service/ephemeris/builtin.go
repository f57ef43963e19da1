package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"AstroTransit/internal/domain/models"
	drepo "AstroTransit/internal/domain/repository"
)

// ErrUnsupportedBody is wrapped into PositionUnavailable for bodies without a model.
var ErrUnsupportedBody = errors.New("body not supported by built-in ephemeris")

// ErrOutOfRange is wrapped into PositionUnavailable for instants outside the
// span the orbital elements are fitted to.
var ErrOutOfRange = errors.New("instant outside built-in ephemeris range")

var (
	validFrom = time.Date(1800, 1, 1, 0, 0, 0, 0, time.UTC)
	validTo   = time.Date(2051, 1, 1, 0, 0, 0, 0, time.UTC)
)

const (
	j2000          = 2451545.0
	unixEpochJD    = 2440587.5
	daysPerCentury = 36525.0
	// general precession in longitude, degrees per Julian century
	precessionRate = 1.396971
)

// keplerElements are the JPL approximate elements (J2000 ecliptic, 1800-2050)
// with their per-century rates.
type keplerElements struct {
	a, e, incl, meanLong, longPeri, longNode       float64
	da, de, dIncl, dMeanLong, dLongPeri, dLongNode float64
}

var earthMoonBary = keplerElements{
	1.00000261, 0.01671123, -0.00001531, 100.46457166, 102.93768193, 0.0,
	0.00000562, -0.00004392, -0.01294668, 35999.37244981, 0.32327364, 0.0,
}

var planets = map[string]keplerElements{
	models.Mercury: {
		0.38709927, 0.20563593, 7.00497902, 252.25032350, 77.45779628, 48.33076593,
		0.00000037, 0.00001906, -0.00594749, 149472.67411175, 0.16047689, -0.12534081,
	},
	models.Venus: {
		0.72333566, 0.00677672, 3.39467605, 181.97909950, 131.60246718, 76.67984255,
		0.00000390, -0.00004107, -0.00078890, 58517.81538729, 0.00268329, -0.27769418,
	},
	models.Mars: {
		1.52371034, 0.09339410, 1.84969142, -4.55343205, -23.94362959, 49.55953891,
		0.00001847, 0.00007882, -0.00813131, 19140.30268499, 0.44441088, -0.29257343,
	},
	models.Jupiter: {
		5.20288700, 0.04838624, 1.30439695, 34.39644051, 14.72847983, 100.47390909,
		-0.00011607, -0.00013253, -0.00183714, 3034.74612775, 0.21252668, 0.20469106,
	},
	models.Saturn: {
		9.53667594, 0.05386179, 2.48599187, 49.95424423, 92.59887831, 113.66242448,
		-0.00125060, -0.00050991, 0.00193609, 1222.49362201, -0.41897216, -0.28867794,
	},
	models.Uranus: {
		19.18916464, 0.04725744, 0.77263783, 313.23810451, 170.95427630, 74.01692503,
		-0.00196176, -0.00004397, -0.00242939, 428.48202785, 0.40805281, 0.04240589,
	},
	models.Neptune: {
		30.06992276, 0.00859048, 1.77004347, -55.12002969, 44.96476227, 131.78422574,
		0.00026291, 0.00005105, 0.00035372, 218.45945325, -0.32241464, -0.00508664,
	},
	models.Pluto: {
		39.48211675, 0.24882730, 17.14001206, 238.92903833, 224.06891629, 110.30393684,
		-0.00031596, 0.00005170, 0.00004818, 145.20780515, -0.04062942, -0.01183482,
	},
}

// BuiltinResolver is an offline ephemeris good to a fraction of a degree for
// the planets and about a quarter degree for the Moon.
type BuiltinResolver struct {
	houseSystem string
}

// NewBuiltinResolver creates the offline resolver. houseSystem is "equal" or "whole".
func NewBuiltinResolver(houseSystem string) *BuiltinResolver {
	if houseSystem != "whole" {
		houseSystem = "equal"
	}
	return &BuiltinResolver{houseSystem: houseSystem}
}

// Supports reports whether the built-in models cover body.
func (r *BuiltinResolver) Supports(body string) bool {
	_, ok := longitudeAt(body, 0)
	return ok
}

// Resolve returns the tropical geocentric longitude of body at the instant.
// Retrograde comes from the sign of the longitude change across one day.
func (r *BuiltinResolver) Resolve(ctx context.Context, at time.Time, body string) (models.Position, error) {
	if err := ctx.Err(); err != nil {
		return models.Position{}, err
	}
	if at.Before(validFrom) || !at.Before(validTo) {
		return models.Position{}, models.Unavailable(body, at, fmt.Errorf("%w: %s", ErrOutOfRange, at.UTC().Format(time.RFC3339)))
	}
	T := julianCenturies(at)
	lon, ok := longitudeAt(body, T)
	if !ok {
		return models.Position{}, models.Unavailable(body, at, fmt.Errorf("%w: %s", ErrUnsupportedBody, body))
	}
	half := 0.5 / daysPerCentury
	before, _ := longitudeAt(body, T-half)
	after, _ := longitudeAt(body, T+half)
	speed := angleDiff(after, before)

	return models.Position{
		Body:       body,
		Longitude:  lon,
		Speed:      &speed,
		Retrograde: models.RetrogradeFromSpeed(speed),
	}, nil
}

// Houses computes ascendant and midheaven from local sidereal time and builds
// equal or whole-sign cusps from the ascendant.
func (r *BuiltinResolver) Houses(ctx context.Context, at time.Time, latitude, longitude float64) (models.Houses, error) {
	if err := ctx.Err(); err != nil {
		return models.Houses{}, err
	}
	if latitude <= -90 || latitude >= 90 {
		return models.Houses{}, fmt.Errorf("latitude %.4f out of range", latitude)
	}
	asc, mc := AscendantMidheaven(at, latitude, longitude)
	h := models.Houses{Ascendant: asc, Midheaven: mc}
	if r.houseSystem == "whole" {
		h.Cusps = models.EqualHouses(math.Floor(asc/30) * 30)
	} else {
		h.Cusps = models.EqualHouses(asc)
	}
	return h, nil
}

// AscendantMidheaven returns the ecliptic longitudes of the ascendant and MC.
func AscendantMidheaven(at time.Time, latitude, longitude float64) (float64, float64) {
	jd := julianDay(at)
	T := (jd - j2000) / daysPerCentury
	gmst := 280.46061837 + 360.98564736629*(jd-j2000) + 0.000387933*T*T - T*T*T/38710000
	ramc := rad(models.NormalizeDegrees(gmst + longitude))
	eps := rad(23.439291 - 0.0130042*T)
	phi := rad(latitude)

	mc := deg(math.Atan2(math.Sin(ramc), math.Cos(ramc)*math.Cos(eps)))
	asc := deg(math.Atan2(math.Cos(ramc), -(math.Sin(ramc)*math.Cos(eps) + math.Tan(phi)*math.Sin(eps))))
	return models.NormalizeDegrees(asc), models.NormalizeDegrees(mc)
}

func longitudeAt(body string, T float64) (float64, bool) {
	switch body {
	case models.Sun:
		ex, ey, _ := heliocentric(earthMoonBary, T)
		return models.NormalizeDegrees(deg(math.Atan2(-ey, -ex)) + precessionRate*T), true
	case models.Moon:
		return moonLongitude(T), true
	case models.NorthNode:
		// mean node, already referred to the equinox of date
		return models.NormalizeDegrees(125.0445479 - 1934.1362891*T + 0.0020754*T*T), true
	}
	el, ok := planets[body]
	if !ok {
		return 0, false
	}
	px, py, _ := heliocentric(el, T)
	ex, ey, _ := heliocentric(earthMoonBary, T)
	return models.NormalizeDegrees(deg(math.Atan2(py-ey, px-ex)) + precessionRate*T), true
}

func heliocentric(el keplerElements, T float64) (x, y, z float64) {
	a := el.a + el.da*T
	e := el.e + el.de*T
	incl := rad(el.incl + el.dIncl*T)
	L := el.meanLong + el.dMeanLong*T
	peri := el.longPeri + el.dLongPeri*T
	node := el.longNode + el.dLongNode*T

	argPeri := rad(peri - node)
	M := models.NormalizeDegrees(L - peri)
	if M > 180 {
		M -= 360
	}
	E := solveKepler(rad(M), e)

	xp := a * (math.Cos(E) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(E)

	cw, sw := math.Cos(argPeri), math.Sin(argPeri)
	cn, sn := math.Cos(rad(node)), math.Sin(rad(node))
	ci, si := math.Cos(incl), math.Sin(incl)

	x = (cw*cn-sw*sn*ci)*xp + (-sw*cn-cw*sn*ci)*yp
	y = (cw*sn+sw*cn*ci)*xp + (-sw*sn+cw*cn*ci)*yp
	z = (sw*si)*xp + (cw*si)*yp
	return x, y, z
}

func solveKepler(M, e float64) float64 {
	E := M + e*math.Sin(M)
	for i := 0; i < 30; i++ {
		dE := (E - e*math.Sin(E) - M) / (1 - e*math.Cos(E))
		E -= dE
		if math.Abs(dE) < 1e-12 {
			break
		}
	}
	return E
}

func julianDay(t time.Time) float64 {
	return float64(t.UnixNano())/86400e9 + unixEpochJD
}

func julianCenturies(t time.Time) float64 {
	return (julianDay(t) - j2000) / daysPerCentury
}

// angleDiff returns a-b folded into (-180, 180].
func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }

var _ drepo.Ephemeris = (*BuiltinResolver)(nil)
