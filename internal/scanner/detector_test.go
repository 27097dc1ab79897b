package scanner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVolumeChangePct(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		avg      float64
		expected float64
	}{
		{"thirty percent increase", 130, 100, 30.0},
		{"decrease", 70, 100, -30.0},
		{"no change", 100, 100, 0.0},
		{"zero average guard", 100, 0, 0.0},
		{"doubled", 500, 250, 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.expected, VolumeChangePct(tt.current, tt.avg), 1e-9)
		})
	}
}

func TestShouldAlertInclusiveBoundary(t *testing.T) {
	changePct := VolumeChangePct(130, 100)
	require.Equal(t, 30.0, changePct)

	require.True(t, ShouldAlert(changePct, 30.0), "threshold boundary is inclusive")
	require.False(t, ShouldAlert(changePct, 30.01))
}

func TestZeroAverageNeverAlerts(t *testing.T) {
	// whatever the current volume, a zero average yields a zero change
	require.False(t, ShouldAlert(VolumeChangePct(1e12, 0), 30.0))
}
