package models

// AspectDef is one entry of an aspect table. Tables are ordered; order decides ties.
type AspectDef struct {
	Name       string  `json:"name" yaml:"name"`
	ExactAngle float64 `json:"angle" yaml:"angle"`
	Orb        float64 `json:"orb" yaml:"orb"`
}

// AspectMatch is the result of a successful match.
type AspectMatch struct {
	Aspect     string  `json:"aspect"`
	ExactAngle float64 `json:"exact_angle"`
	Separation float64 `json:"separation"`
	Orb        float64 `json:"orb"` // actual deviation from ExactAngle
}

const (
	Conjunction = "Conjunction"
	Sextile     = "Sextile"
	Square      = "Square"
	Trine       = "Trine"
	Opposition  = "Opposition"
	Quincunx    = "Quincunx"
)
