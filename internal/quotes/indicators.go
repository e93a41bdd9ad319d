package quotes

import (
	talib "github.com/markcheno/go-talib"

	"github.com/clarafin/clara/internal/domain"
)

// Indicators holds technical indicator values derived from a daily series.
type Indicators struct {
	RSI14      float64 `json:"rsi_14"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`
	SMA20      float64 `json:"sma_20"`
	SMA50      float64 `json:"sma_50,omitempty"`
}

// ComputeIndicators derives RSI, MACD and moving averages from daily bars.
// Returns nil when the series is too short for the slowest indicator.
func ComputeIndicators(bars []domain.Bar) *Indicators {
	// MACD(12,26,9) needs at least 34 observations.
	if len(bars) < 35 {
		return nil
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	rsi := talib.Rsi(closes, 14)
	macd, signal, hist := talib.Macd(closes, 12, 26, 9)
	sma20 := talib.Sma(closes, 20)

	ind := &Indicators{
		RSI14:      last(rsi),
		MACD:       last(macd),
		MACDSignal: last(signal),
		MACDHist:   last(hist),
		SMA20:      last(sma20),
	}
	if len(closes) >= 50 {
		ind.SMA50 = last(talib.Sma(closes, 50))
	}
	return ind
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}
