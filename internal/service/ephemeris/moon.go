package ephemeris

import (
	"math"

	"AstroTransit/internal/domain/models"
)

// lunarTerm is one periodic term of the longitude series: coefficient in
// degrees and the multipliers of D, M, M', F.
type lunarTerm struct {
	d, m, mp, f int
	coeff       float64
}

// Largest terms of the ELP-2000/82 longitude series.
var lunarTerms = []lunarTerm{
	{0, 0, 1, 0, 6.288774},
	{2, 0, -1, 0, 1.274027},
	{2, 0, 0, 0, 0.658314},
	{0, 0, 2, 0, 0.213618},
	{0, 1, 0, 0, -0.185116},
	{0, 0, 0, 2, -0.114332},
	{2, 0, -2, 0, 0.058793},
	{2, -1, -1, 0, 0.057066},
	{2, 0, 1, 0, 0.053322},
	{2, -1, 0, 0, 0.045758},
	{0, 1, -1, 0, -0.040923},
	{1, 0, 0, 0, -0.034720},
	{0, 1, 1, 0, -0.030383},
	{2, 0, 0, -2, 0.015327},
	{0, 0, 1, 2, -0.012528},
	{0, 0, 1, -2, 0.010980},
	{4, 0, -1, 0, 0.010675},
	{0, 0, 3, 0, 0.010034},
	{4, 0, -2, 0, 0.008548},
}

func moonLongitude(T float64) float64 {
	Lp := 218.3164477 + 481267.88123421*T
	D := rad(297.8501921 + 445267.1114034*T)
	M := rad(357.5291092 + 35999.0502909*T)
	Mp := rad(134.9633964 + 477198.8675055*T)
	F := rad(93.2720950 + 483202.0175233*T)
	E := 1 - 0.002516*T

	sum := 0.0
	for _, t := range lunarTerms {
		arg := float64(t.d)*D + float64(t.m)*M + float64(t.mp)*Mp + float64(t.f)*F
		c := t.coeff
		switch t.m {
		case 1, -1:
			c *= E
		case 2, -2:
			c *= E * E
		}
		sum += c * math.Sin(arg)
	}
	return models.NormalizeDegrees(Lp + sum)
}
