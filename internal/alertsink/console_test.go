package alertsink

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bybit-volume-scanner/internal/domain"
)

func TestConsoleNotifyRendersAlert(t *testing.T) {
	var buf bytes.Buffer
	sink := &Console{out: &buf}

	sink.Notify(domain.Alert{
		Symbol:          "BTCUSDT",
		CurrentVolume:   1300,
		AvgVolume:       1000,
		VolumeChangePct: 30,
		LastPrice:       "50000",
		PriceChange24h:  "0.0123",
		Timestamp:       time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	})

	out := buf.String()
	assert.Contains(t, out, "VOLUME SPIKE ALERT")
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "1300.00")
	assert.Contains(t, out, "1000.00")
	assert.Contains(t, out, "30.00%")
	assert.Contains(t, out, "50000")
	assert.Contains(t, out, "2026-08-25 12:00:00")
}

func TestWALSinkSwallowsSaveFailure(t *testing.T) {
	// a nil store makes Save fail; the sink must not panic or bubble it up
	sink := NewWAL(nil, nil)

	assert.NotPanics(t, func() {
		sink.Notify(domain.Alert{Symbol: "BTCUSDT"})
	})
}
