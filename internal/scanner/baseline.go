package scanner

import "bybit-volume-scanner/internal/domain"

// Baseline derives the average volume from a symbol's history, excluding the
// most recently appended sample: that sample is the value under test and must
// not be averaged with itself. Returns ok=false when fewer than two samples
// exist, so callers can distinguish "no data" from a legitimately zero average.
func Baseline(history []domain.Sample) (float64, bool) {
	if len(history) < 2 {
		return 0, false
	}

	prior := history[:len(history)-1]

	var sum float64
	for _, sample := range prior {
		sum += sample.Volume
	}

	return sum / float64(len(prior)), true
}
