// Package metrics observes a running scene: energy histories with drift
// tracking and a step stability ratio.
package metrics

// Metric is a named scalar summary that can be cleared.
type Metric interface {
	Name() string
	Value() float64
	Reset()
}
