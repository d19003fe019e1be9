package weather

import (
	"math"
	"time"
)

// MoonPhase is one of the eight named phases, 0 (new) through 7 (waning crescent).
type MoonPhase int

const (
	MoonNew MoonPhase = iota
	MoonWaxingCrescent
	MoonFirstQuarter
	MoonWaxingGibbous
	MoonFull
	MoonWaningGibbous
	MoonLastQuarter
	MoonWaningCrescent
)

var moonPhaseNames = [...]string{
	"new",
	"waxing-crescent",
	"first-quarter",
	"waxing-gibbous",
	"full",
	"waning-gibbous",
	"last-quarter",
	"waning-crescent",
}

func (p MoonPhase) String() string {
	if p < MoonNew || p > MoonWaningCrescent {
		return "unknown"
	}
	return moonPhaseNames[p]
}

// Octants are 0.125 wide and centered on k/8, so each phase ends at an
// inclusive upper bound of k/8 + 1/16. Anything past the last bound wraps to new.
var moonPhaseUpperBounds = [...]float64{0.0625, 0.1875, 0.3125, 0.4375, 0.5625, 0.6875, 0.8125, 0.9375}

const synodicMonthDays = 29.530588853

// J2000 reference new moon, 2000-01-06 18:14 UTC.
var referenceNewMoon = time.Date(2000, time.January, 6, 18, 14, 0, 0, time.UTC)

// BucketMoonPhase maps a phase fraction in [0,1] to its named phase.
func BucketMoonPhase(fraction float64) MoonPhase {
	fraction = normalizeFraction(fraction)
	for i, upper := range moonPhaseUpperBounds {
		if fraction <= upper {
			return MoonPhase(i)
		}
	}
	return MoonNew
}

// NewMoon builds the Moon section for a raw phase fraction.
func NewMoon(fraction float64) Moon {
	fraction = normalizeFraction(fraction)
	phase := BucketMoonPhase(fraction)
	return Moon{Phase: phase, Name: phase.String(), Fraction: fraction}
}

// MoonFractionAt approximates the lunar phase fraction at t from the mean synodic month.
func MoonFractionAt(t time.Time) float64 {
	days := t.UTC().Sub(referenceNewMoon).Hours() / 24
	return normalizeFraction(days / synodicMonthDays)
}

func normalizeFraction(f float64) float64 {
	if f == 1 {
		return 1
	}
	f = math.Mod(f, 1)
	if f < 0 {
		f++
	}
	return f
}
