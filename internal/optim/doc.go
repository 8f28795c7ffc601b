// Package optim tunes block parameters by exhaustive search over a grid,
// scoring each run with one of the project's metrics.
package optim
