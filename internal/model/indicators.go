package model

// MACD holds the three aligned MACD arrays.
type MACD struct {
	Line      []float64 `json:"line"`
	Signal    []float64 `json:"signal"`
	Histogram []float64 `json:"histogram"`
}

// IndicatorSet holds indicator arrays aligned with the source series.
// SMA and Std entries before their window fills are NaN.
type IndicatorSet struct {
	SMA  []float64
	Std  []float64
	MACD MACD
}
