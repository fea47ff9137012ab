// Package neural provides the feedforward driving policy evolved by the
// genetic engine.
package neural

import (
	"math"
	"math/rand"
)

// Network dimensions (compile-time constants for shape checks).
// NumInputs must match the number of configured sensor rays.
const (
	NumInputs  = 9 // one normalized reading per sensor ray
	NumHidden  = 5
	NumOutputs = 2 // rotation, throttle
)

// Layer is one dense layer: Out×In weights in row-major order plus Out biases.
type Layer struct {
	In, Out int
	W       []float32
	B       []float32
}

// Policy is a fixed-topology feedforward network mapping sensor readings to
// steering outputs. Layer shapes never change after construction; mutation
// and import preserve them.
type Policy struct {
	layers []Layer
}

// NewPolicy creates a randomly initialized policy.
func NewPolicy(rng *rand.Rand) *Policy {
	p := NewZeroPolicy()

	// Xavier initialization, biases start at zero.
	for li := range p.layers {
		layer := &p.layers[li]
		scale := float32(math.Sqrt(2.0 / float64(layer.In)))
		for i := range layer.W {
			layer.W[i] = float32(rng.NormFloat64()) * scale
		}
	}

	return p
}

// NewZeroPolicy creates a policy of the standard topology with every weight
// and bias at zero. It draws no randomness, which makes it the right Import
// target when the values come from elsewhere.
func NewZeroPolicy() *Policy {
	return &Policy{
		layers: []Layer{
			newLayer(NumInputs, NumHidden),
			newLayer(NumHidden, NumOutputs),
		},
	}
}

func newLayer(in, out int) Layer {
	return Layer{
		In:  in,
		Out: out,
		W:   make([]float32, out*in),
		B:   make([]float32, out),
	}
}

// Infer computes the steering outputs for one set of normalized sensor
// readings. Both outputs are in [-1, 1] via tanh. Pure function of the
// current weights; no state is retained between calls. inputs must hold
// NumInputs values.
func (p *Policy) Infer(inputs []float32) (rotation, throttle float32) {
	out := p.forward(inputs)
	return out[0], out[1]
}

// forward runs the full network, applying tanh at every layer.
func (p *Policy) forward(inputs []float32) []float32 {
	act := inputs
	for li := range p.layers {
		layer := &p.layers[li]
		next := make([]float32, layer.Out)
		for i := 0; i < layer.Out; i++ {
			sum := layer.B[i]
			row := layer.W[i*layer.In : (i+1)*layer.In]
			for j, w := range row {
				sum += w * act[j]
			}
			next[i] = tanh(sum)
		}
		act = next
	}
	return act
}

// Clone creates a deep copy of the policy. Mutating the clone never affects
// the original.
func (p *Policy) Clone() *Policy {
	clone := &Policy{layers: make([]Layer, len(p.layers))}
	for i, layer := range p.layers {
		cl := newLayer(layer.In, layer.Out)
		copy(cl.W, layer.W)
		copy(cl.B, layer.B)
		clone.layers[i] = cl
	}
	return clone
}

// Mutate perturbs each weight and bias independently with probability rate,
// adding zero-mean Gaussian noise with the given standard deviation. Applied
// in place on the receiver.
func (p *Policy) Mutate(rng *rand.Rand, rate, sigma float32) {
	if rate <= 0 {
		return
	}
	for li := range p.layers {
		layer := &p.layers[li]
		for i := range layer.W {
			if rng.Float32() < rate {
				layer.W[i] += float32(rng.NormFloat64()) * sigma
			}
		}
		for i := range layer.B {
			if rng.Float32() < rate {
				layer.B[i] += float32(rng.NormFloat64()) * sigma
			}
		}
	}
}

// tanh applies the exact hyperbolic tangent. The float64 round trip keeps
// outputs strictly inside [-1, 1].
func tanh(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}
