package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Body names understood by the resolvers.
const (
	Sun       = "Sun"
	Moon      = "Moon"
	Mercury   = "Mercury"
	Venus     = "Venus"
	Mars      = "Mars"
	Jupiter   = "Jupiter"
	Saturn    = "Saturn"
	Uranus    = "Uranus"
	Neptune   = "Neptune"
	Pluto     = "Pluto"
	NorthNode = "North Node"
	Chiron    = "Chiron"
)

// DefaultBodies is the classical plus modern planet set tracked when no list is configured.
var DefaultBodies = []string{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto}

var knownBodies = map[string]struct{}{
	Sun: {}, Moon: {}, Mercury: {}, Venus: {}, Mars: {}, Jupiter: {}, Saturn: {},
	Uranus: {}, Neptune: {}, Pluto: {}, NorthNode: {}, Chiron: {},
}

// IsKnownBody reports whether name is one of the body constants above.
func IsKnownBody(name string) bool {
	_, ok := knownBodies[name]
	return ok
}

// CheckBodies returns ErrUnknownBody naming the first unrecognised entry.
func CheckBodies(bodies []string) error {
	for _, b := range bodies {
		if !IsKnownBody(b) {
			return fmt.Errorf("%w: %q", ErrUnknownBody, b)
		}
	}
	return nil
}

// Retrograde is a tri-state: resolvers without a velocity signal report Unknown.
type Retrograde int8

const (
	RetrogradeUnknown Retrograde = iota
	Direct
	Retro
)

// RetrogradeFromSpeed maps a longitude speed in deg/day to Direct or Retro.
func RetrogradeFromSpeed(speed float64) Retrograde {
	if speed < 0 {
		return Retro
	}
	return Direct
}

// RetrogradeFromBool is used by sources that only expose a boolean flag.
func RetrogradeFromBool(r bool) Retrograde {
	if r {
		return Retro
	}
	return Direct
}

func (r Retrograde) IsRetrograde() bool { return r == Retro }

func (r Retrograde) String() string {
	switch r {
	case Direct:
		return "direct"
	case Retro:
		return "retrograde"
	default:
		return "unknown"
	}
}

// Marker is the suffix printed after a body name in reports.
func (r Retrograde) Marker() string {
	switch r {
	case Retro:
		return " (R)"
	case RetrogradeUnknown:
		return " (R?)"
	default:
		return ""
	}
}

func (r Retrograde) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Retrograde) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return r.parse(s)
	}
	var flag bool
	if err := json.Unmarshal(b, &flag); err != nil {
		return fmt.Errorf("retrograde: %w", err)
	}
	*r = RetrogradeFromBool(flag)
	return nil
}

func (r *Retrograde) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return r.parse(s)
}

func (r *Retrograde) parse(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "retrograde", "r", "true", "yes":
		*r = Retro
	case "direct", "d", "false", "no":
		*r = Direct
	case "", "unknown":
		*r = RetrogradeUnknown
	default:
		return fmt.Errorf("retrograde: unknown value %q", s)
	}
	return nil
}

// Position is one body's ecliptic placement at an instant.
type Position struct {
	Body       string     `json:"body" yaml:"body"`
	Longitude  float64    `json:"longitude" yaml:"longitude"`
	Speed      *float64   `json:"speed,omitempty" yaml:"speed,omitempty"`
	Retrograde Retrograde `json:"retrograde" yaml:"retrograde"`
}

// clone copies p without sharing Speed.
func (p Position) clone() Position {
	if p.Speed != nil {
		v := *p.Speed
		p.Speed = &v
	}
	return p
}

// Sign returns the zodiac sign of the position.
func (p Position) Sign() string { return SignOf(p.Longitude) }

// NormalizeDegrees maps any angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}

// Signs in zodiac order starting at 0° Aries.
var Signs = [12]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// SignOf returns the sign name for floor(longitude/30).
func SignOf(longitude float64) string {
	idx := int(math.Floor(NormalizeDegrees(longitude) / 30))
	if idx > 11 {
		idx = 11
	}
	return Signs[idx]
}

// DegreeInSign is the offset of the longitude within its sign, [0, 30).
func DegreeInSign(longitude float64) float64 {
	return math.Mod(NormalizeDegrees(longitude), 30)
}

// FormatLongitude renders e.g. "10.52° Aries".
func FormatLongitude(longitude float64) string {
	return fmt.Sprintf("%.2f° %s", DegreeInSign(longitude), SignOf(longitude))
}

// Date truncates t to the calendar date in loc.
func Date(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
