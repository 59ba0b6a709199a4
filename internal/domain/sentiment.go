package domain

import "time"

// Sentiment is the per-arena crowd-bias signal derived from bet flow. Bias
// 0.5 is neutral; above 0.5 the crowd favors side A. It is mutated only by
// bet execution and read by pricing; volatility is informational only.
type Sentiment struct {
	ArenaID    string    `json:"arena_id"`
	Bias       float64   `json:"bias"` // [0,1]
	Intensity  float64   `json:"intensity"`
	Volatility float64   `json:"volatility"`
	Samples    int       `json:"samples"`
	UpdatedAt  time.Time `json:"updated_at"`
}
