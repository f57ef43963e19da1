package models

import (
	"fmt"
	"time"
)

// HouseCusps are the twelve cusp longitudes, house 1 first.
type HouseCusps [12]float64

// Houses is a house-system result.
type Houses struct {
	Cusps     HouseCusps `json:"cusps"`
	Ascendant float64    `json:"ascendant"`
	Midheaven float64    `json:"midheaven"`
}

// BirthData is the input to chart construction.
type BirthData struct {
	Time      time.Time `json:"time" yaml:"time"`
	Latitude  float64   `json:"latitude" yaml:"latitude"`
	Longitude float64   `json:"longitude" yaml:"longitude"`
}

// NatalChart is an immutable snapshot; construct with NewNatalChart.
type NatalChart struct {
	planets       []Position
	ascendant     float64
	midheaven     float64
	houses        HouseCusps
	referenceDate time.Time
	latitude      float64
	longitude     float64
}

// NewNatalChart copies and normalizes its inputs.
func NewNatalChart(planets []Position, houses Houses, birth BirthData) (*NatalChart, error) {
	if len(planets) == 0 {
		return nil, fmt.Errorf("%w: no planets", ErrInvalidChart)
	}
	seen := make(map[string]struct{}, len(planets))
	ps := make([]Position, len(planets))
	for i, p := range planets {
		if p.Body == "" {
			return nil, fmt.Errorf("%w: planet %d has no name", ErrInvalidChart, i)
		}
		if _, dup := seen[p.Body]; dup {
			return nil, fmt.Errorf("%w: duplicate planet %s", ErrInvalidChart, p.Body)
		}
		seen[p.Body] = struct{}{}
		p.Longitude = NormalizeDegrees(p.Longitude)
		ps[i] = p.clone()
	}
	var cusps HouseCusps
	for i, c := range houses.Cusps {
		cusps[i] = NormalizeDegrees(c)
	}
	if birth.Latitude < -90 || birth.Latitude > 90 {
		return nil, fmt.Errorf("%w: latitude %.4f out of range", ErrInvalidChart, birth.Latitude)
	}
	return &NatalChart{
		planets:       ps,
		ascendant:     NormalizeDegrees(houses.Ascendant),
		midheaven:     NormalizeDegrees(houses.Midheaven),
		houses:        cusps,
		referenceDate: birth.Time,
		latitude:      birth.Latitude,
		longitude:     birth.Longitude,
	}, nil
}

// Planets returns a copy of the natal positions.
func (c *NatalChart) Planets() []Position {
	out := make([]Position, len(c.planets))
	for i, p := range c.planets {
		out[i] = p.clone()
	}
	return out
}

func (c *NatalChart) Ascendant() float64       { return c.ascendant }
func (c *NatalChart) Midheaven() float64       { return c.midheaven }
func (c *NatalChart) Houses() HouseCusps       { return c.houses }
func (c *NatalChart) ReferenceDate() time.Time { return c.referenceDate }
func (c *NatalChart) Latitude() float64        { return c.latitude }
func (c *NatalChart) Longitude() float64       { return c.longitude }

// ChartDTO is the transport form of a chart (JSON bodies, YAML files, Kafka jobs).
type ChartDTO struct {
	Planets   []Position `json:"planets" yaml:"planets" validate:"required,min=1,dive"`
	Houses    []float64  `json:"houses" yaml:"houses" validate:"omitempty,len=12"`
	Ascendant float64    `json:"ascendant" yaml:"ascendant"`
	Midheaven float64    `json:"midheaven" yaml:"midheaven"`
	Date      time.Time  `json:"reference_date" yaml:"reference_date"`
	Latitude  float64    `json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64    `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
}

// Chart converts the DTO. Missing houses default to equal houses from the ascendant.
func (d ChartDTO) Chart() (*NatalChart, error) {
	var h Houses
	h.Ascendant = d.Ascendant
	h.Midheaven = d.Midheaven
	switch len(d.Houses) {
	case 0:
		h.Cusps = EqualHouses(d.Ascendant)
	case 12:
		copy(h.Cusps[:], d.Houses)
	default:
		return nil, fmt.Errorf("%w: need 12 house cusps, got %d", ErrInvalidChart, len(d.Houses))
	}
	return NewNatalChart(d.Planets, h, BirthData{Time: d.Date, Latitude: d.Latitude, Longitude: d.Longitude})
}

// DTO converts a chart back to its transport form.
func (c *NatalChart) DTO() ChartDTO {
	return ChartDTO{
		Planets:   c.Planets(),
		Houses:    append([]float64(nil), c.houses[:]...),
		Ascendant: c.ascendant,
		Midheaven: c.midheaven,
		Date:      c.referenceDate,
		Latitude:  c.latitude,
		Longitude: c.longitude,
	}
}

// EqualHouses returns 30° houses starting at the ascendant.
func EqualHouses(ascendant float64) HouseCusps {
	var h HouseCusps
	for i := range h {
		h[i] = NormalizeDegrees(ascendant + float64(i)*30)
	}
	return h
}
