package indicator

import (
	"math"

	"alphafusion/pkg/model"
)

// Series functions are causal: element t reads only inputs at positions <= t.
// Positions without enough history hold NaN.

// Returns calculates simple period returns
func Returns(closes []float64) []float64 {
	out := nanSlice(len(closes))
	for i := 1; i < len(closes); i++ {
		out[i] = closes[i]/closes[i-1] - 1
	}
	return out
}

// LogReturns calculates natural log returns
func LogReturns(closes []float64) []float64 {
	out := nanSlice(len(closes))
	for i := 1; i < len(closes); i++ {
		out[i] = math.Log(closes[i] / closes[i-1])
	}
	return out
}

// EMA calculates the exponential moving average with alpha = 2/(span+1),
// seeded with the first value
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RollingMean calculates the trailing simple mean over window samples
func RollingMean(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	for i := window - 1; i < len(values); i++ {
		var sum float64
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				ok = false
				break
			}
			sum += values[j]
		}
		if ok {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// RollingStd calculates the trailing sample standard deviation (n-1)
func RollingStd(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window < 2 {
		return out
	}
	means := RollingMean(values, window)
	for i := window - 1; i < len(values); i++ {
		if math.IsNaN(means[i]) {
			continue
		}
		var sumSquares float64
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - means[i]
			sumSquares += d * d
		}
		out[i] = math.Sqrt(sumSquares / float64(window-1))
	}
	return out
}

// RSI calculates the relative strength index using simple moving averages
// of gains and losses over period deltas. A window with no losses is 100.
func RSI(closes []float64, period int) []float64 {
	gains := nanSlice(len(closes))
	losses := nanSlice(len(closes))
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gains[i], losses[i] = 0, 0
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	avgGain := RollingMean(gains, period)
	avgLoss := RollingMean(losses, period)

	out := nanSlice(len(closes))
	for i := range closes {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - (100 / (1 + rs))
	}
	return out
}

// TrueRange calculates max(high-low, |high-prev_close|, |low-prev_close|)
func TrueRange(bars []model.PriceBar) []float64 {
	out := nanSlice(len(bars))
	for i := 1; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - prevClose)
		lc := math.Abs(bars[i].Low - prevClose)
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR calculates the trailing mean of true range
func ATR(bars []model.PriceBar, period int) []float64 {
	return RollingMean(TrueRange(bars), period)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
