package neural

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch marks an imported parameter set whose shapes disagree with
// the current topology. Import rejects it before mutating any live state.
var ErrShapeMismatch = errors.New("parameter shape mismatch")

// Parameters is the serialized form of a policy: one shape tuple and one flat
// value slice per tensor, ordered W then B per layer, input side first.
type Parameters struct {
	Shapes [][]int     `json:"shapes"`
	Values [][]float32 `json:"values"`
}

// Export flattens the policy's weights into a Parameters record.
// Import(Export()) reproduces the policy exactly.
func (p *Policy) Export() Parameters {
	params := Parameters{
		Shapes: make([][]int, 0, len(p.layers)*2),
		Values: make([][]float32, 0, len(p.layers)*2),
	}
	for _, layer := range p.layers {
		w := make([]float32, len(layer.W))
		copy(w, layer.W)
		b := make([]float32, len(layer.B))
		copy(b, layer.B)
		params.Shapes = append(params.Shapes, []int{layer.Out, layer.In}, []int{layer.Out})
		params.Values = append(params.Values, w, b)
	}
	return params
}

// Import replaces the policy's weights with the given parameter set. The
// shapes must exactly match the current topology; on any mismatch the policy
// is left untouched and ErrShapeMismatch is returned.
func (p *Policy) Import(params Parameters) error {
	if len(params.Shapes) != len(p.layers)*2 || len(params.Values) != len(p.layers)*2 {
		return fmt.Errorf("%w: got %d tensors, want %d", ErrShapeMismatch, len(params.Shapes), len(p.layers)*2)
	}

	// Validate every tensor before touching the receiver.
	for li, layer := range p.layers {
		wShape := params.Shapes[li*2]
		bShape := params.Shapes[li*2+1]
		if len(wShape) != 2 || wShape[0] != layer.Out || wShape[1] != layer.In {
			return fmt.Errorf("%w: layer %d weights %v, want [%d %d]", ErrShapeMismatch, li, wShape, layer.Out, layer.In)
		}
		if len(bShape) != 1 || bShape[0] != layer.Out {
			return fmt.Errorf("%w: layer %d biases %v, want [%d]", ErrShapeMismatch, li, bShape, layer.Out)
		}
		if len(params.Values[li*2]) != layer.Out*layer.In {
			return fmt.Errorf("%w: layer %d has %d weight values, want %d", ErrShapeMismatch, li, len(params.Values[li*2]), layer.Out*layer.In)
		}
		if len(params.Values[li*2+1]) != layer.Out {
			return fmt.Errorf("%w: layer %d has %d bias values, want %d", ErrShapeMismatch, li, len(params.Values[li*2+1]), layer.Out)
		}
	}

	for li := range p.layers {
		layer := &p.layers[li]
		copy(layer.W, params.Values[li*2])
		copy(layer.B, params.Values[li*2+1])
	}
	return nil
}
