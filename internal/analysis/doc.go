// Package analysis post-processes logged signals.
//
//   - [PowerSpectrum] and [DominantFrequency]: spectral content of a signal
//   - [Summarize] and [SettlingTime]: step-response statistics
//   - [NewPhasePortrait]: one signal plotted against another
//   - [Crossings]: upward threshold crossings
//
// All functions take plain sample slices, as returned by sim.Log.Scalars
// or sim.Log.Element, and treat NaN as a missing sample.
package analysis
