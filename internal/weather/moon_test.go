package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBucketMoonPhase(t *testing.T) {
	tests := []struct {
		fraction float64
		want     MoonPhase
	}{
		{0, MoonNew},
		{0.0625, MoonNew},
		{0.0626, MoonWaxingCrescent},
		{0.125, MoonWaxingCrescent},
		{0.1875, MoonWaxingCrescent},
		{0.25, MoonFirstQuarter},
		{0.3125, MoonFirstQuarter},
		{0.4, MoonWaxingGibbous},
		{0.5, MoonFull},
		{0.5625, MoonFull},
		{0.6, MoonWaningGibbous},
		{0.75, MoonLastQuarter},
		{0.8125, MoonLastQuarter},
		{0.9, MoonWaningCrescent},
		{0.9375, MoonWaningCrescent},
		{0.97, MoonNew},
		{1, MoonNew},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, BucketMoonPhase(tc.fraction), "fraction %v", tc.fraction)
	}
}

func TestNewMoonNames(t *testing.T) {
	m := NewMoon(0.5)
	require.Equal(t, MoonFull, m.Phase)
	require.Equal(t, "full", m.Name)
	require.Equal(t, 0.5, m.Fraction)

	require.Equal(t, "waning-crescent", NewMoon(0.9).Name)
	require.Equal(t, "unknown", MoonPhase(9).String())
}

func TestMoonFractionAt(t *testing.T) {
	require.InDelta(t, 0, MoonFractionAt(referenceNewMoon), 1e-9)

	// 2024-04-08 total solar eclipse happened at new moon.
	f := MoonFractionAt(time.Date(2024, time.April, 8, 18, 0, 0, 0, time.UTC))
	require.Equal(t, MoonNew, BucketMoonPhase(f))

	// 2024-04-23 23:49 UTC was a full moon.
	f = MoonFractionAt(time.Date(2024, time.April, 23, 23, 49, 0, 0, time.UTC))
	require.Equal(t, MoonFull, BucketMoonPhase(f))
}
