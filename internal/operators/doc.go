// Package operators holds blocks that transform their inputs: static maps
// (Gain, Sum, Mux, Saturation) and the discrete-time memory elements
// (DiscreteIntegrator, DiscreteDerivator, Delay).
package operators
