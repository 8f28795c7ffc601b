// Package sources contains blocks that produce signals without inputs.
//
// Every source emits column vectors on a single output port "out". Vector
// parameters broadcast: a scalar parameter is repeated to the length of the
// longest vector parameter of the same block.
package sources
