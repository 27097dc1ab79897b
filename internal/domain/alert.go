package domain

import "time"

// Alert describes a detected volume spike for a single symbol.
type Alert struct {
	Symbol          string    `json:"symbol"`
	CurrentVolume   float64   `json:"current_volume"`
	AvgVolume       float64   `json:"avg_volume"`
	VolumeChangePct float64   `json:"volume_change_pct"`
	LastPrice       string    `json:"last_price"`
	PriceChange24h  string    `json:"price_change_24h"`
	Timestamp       time.Time `json:"timestamp"`
}

// AlertRecord pairs an alert with its durable log index so readers can
// resume streaming from where they left off.
type AlertRecord struct {
	Index uint64
	Alert Alert
}
