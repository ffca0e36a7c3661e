package analysis

import (
	"gonum.org/v1/gonum/stat"
)

// MeanEPR averages each iteration's EPR over the chains.
func MeanEPR(eprs [][]float64) []float64 {
	out := make([]float64, len(eprs))
	for i, row := range eprs {
		if len(row) > 0 {
			out[i] = stat.Mean(row, nil)
		}
	}
	return out
}

// ChainEPR extracts the EPR series of chain k.
func ChainEPR(eprs [][]float64, k int) []float64 {
	out := make([]float64, 0, len(eprs))
	for _, row := range eprs {
		if k < len(row) {
			out = append(out, row[k])
		}
	}
	return out
}

// EPRTrend fits series ≈ intercept + slope·i by least squares.
func EPRTrend(series []float64) (slope, intercept float64) {
	if len(series) < 2 {
		return 0, 0
	}
	x := make([]float64, len(series))
	for i := range x {
		x[i] = float64(i)
	}
	intercept, slope = stat.LinearRegression(x, series, nil, false)
	return slope, intercept
}

// MonotoneFraction is the share of consecutive pairs where the series did not
// increase by more than 1e-12. An empty or single-point series scores 1.
func MonotoneFraction(series []float64) float64 {
	if len(series) < 2 {
		return 1
	}
	ok := 0
	for i := 1; i < len(series); i++ {
		if series[i] <= series[i-1]+1e-12 {
			ok++
		}
	}
	return float64(ok) / float64(len(series)-1)
}
