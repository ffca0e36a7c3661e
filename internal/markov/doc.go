// Package markov models continuous-time Markov chains over a finite state
// space and computes their dynamics and thermodynamics.
//
// The package is built around [Chain], which owns a validated and rescaled
// rate matrix (or a batch of independent ones):
//
//   - [Chain.TimeDerivative], [Chain.EvolveState]: generator action and Euler stepping
//   - [Chain.Activity], [Chain.ProbCurrent]: flux diagnostics
//   - [Chain.EPR], [Chain.StatewiseEPR]: entropy production rate
//   - [Chain.NESS]: non-equilibrium steady state (analytic or relaxed)
//   - [Chain.MEPS]: minimum entropy production path toward steady state
//
// A single chain is a batch of one. Every state argument is a [Batch] with
// one [State] per chain, and every per-chain scalar is a []float64.
//
// # Example
//
//	ch, _ := markov.NewMatrix([][]float64{
//	    {0, 2},
//	    {1, 0},
//	})
//	ness, _ := ch.NESS(markov.DefaultNESSOptions())
//	fmt.Println(ness.State[0]) // [0.333 0.667]
//
// # Thread Safety
//
// Chain instances are NOT thread-safe. NESS and MEPS results are cached on
// the instance; guard a shared Chain with external synchronization.
package markov
