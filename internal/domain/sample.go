package domain

import "time"

// Sample is one time-stamped volume reading for a symbol. Immutable once
// recorded. The JSON form matches the on-disk snapshot schema.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Volume    float64   `json:"volume"`
}
