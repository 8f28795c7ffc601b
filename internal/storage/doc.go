// Package storage persists simulation runs: one directory per run holding
// metadata.json and the flattened signals in signals.csv.
package storage
