// Package analysis summarises solver output.
//
// The package includes tools for characterising MEPS runs:
//
//   - [MeanEPR]: chain-averaged EPR per iteration
//   - [EPRTrend]: least-squares slope of an EPR series
//   - [MonotoneFraction]: share of iterations where EPR did not rise
//   - [Relaxation]: KL divergence of every trajectory state to a target
//   - [RelaxationRate]: exponential rate at which a divergence series decays
//
// # Trend Detection
//
// MEPS should move EPR downhill, so a negative trend is expected:
//
//	slope, _ := analysis.EPRTrend(analysis.MeanEPR(res.EPR))
//	if slope < 0 {
//	    // entropy production fell over the run
//	}
package analysis
