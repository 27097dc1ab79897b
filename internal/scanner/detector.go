package scanner

// VolumeChangePct returns the percentage change of current over avg
// (30.5 means +30.5%). A zero average yields 0 so that symbols without a
// usable baseline never alert.
func VolumeChangePct(current, avg float64) float64 {
	if avg == 0 {
		return 0
	}

	return (current - avg) / avg * 100
}

// ShouldAlert reports whether the change crosses the threshold.
// The boundary is inclusive.
func ShouldAlert(changePct, threshold float64) bool {
	return changePct >= threshold
}
