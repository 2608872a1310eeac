package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckInvalidationVWAPBreakdown(t *testing.T) {
	bar := barAt(t0, 10.1, 10.2, 9.8, 9.85, 50_000, 20)
	// VWAP 10.00, close 9.85 is 1.5% below.
	require.Equal(t, InvalidVWAPBreakdown, CheckInvalidation(bar, 10.0, 40_000))
}

func TestCheckInvalidationHoldsNearVWAP(t *testing.T) {
	// 0.5% below VWAP is inside the tolerance band.
	bar := barAt(t0, 10.0, 10.1, 9.9, 9.95, 50_000, 20)
	require.Empty(t, CheckInvalidation(bar, 10.0, 40_000))
}

func TestCheckInvalidationVolumeExhaustion(t *testing.T) {
	bar := barAt(t0, 10.0, 10.1, 9.99, 10.05, 10_000, 20)
	require.Equal(t, InvalidVolumeExhaustion, CheckInvalidation(bar, 10.0, 40_000))

	// Exactly 30% of the previous bar survives.
	bar.Volume = 12_000
	require.Empty(t, CheckInvalidation(bar, 10.0, 40_000))
}

func TestCheckInvalidationNoHistory(t *testing.T) {
	// With no previous bar only the VWAP rule applies.
	bar := barAt(t0, 10.0, 10.1, 9.99, 10.05, 100, 20)
	require.Empty(t, CheckInvalidation(bar, 10.0, 0))
}

func TestCheckInvalidationBreakdownWinsOverExhaustion(t *testing.T) {
	bar := barAt(t0, 10.0, 10.1, 9.7, 9.75, 1000, 20)
	require.Equal(t, InvalidVWAPBreakdown, CheckInvalidation(bar, 10.0, 40_000))
}
