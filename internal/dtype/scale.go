package dtype

import (
	"fmt"

	"github.com/robert-malhotra/go-pds3/internal/label"
)

// Scaling is a linear transform applied after decode.
type Scaling struct {
	Factor float64
	Offset float64
}

// Identity reports whether the scaling leaves values unchanged.
func (s Scaling) Identity() bool {
	return s.Factor == 1 && s.Offset == 0
}

// ScalingFrom reads SCALING_FACTOR and OFFSET, or the qube CORE_MULTIPLIER
// and CORE_BASE, from a block. Either keyword may carry units. The identity
// scaling is returned when neither is declared.
func ScalingFrom(block *label.Node) Scaling {
	s := Scaling{Factor: 1}
	if block == nil {
		return s
	}
	for _, k := range []string{"SCALING_FACTOR", "CORE_MULTIPLIER"} {
		if f, ok := block.Float(k); ok {
			s.Factor = f
			break
		}
	}
	for _, k := range []string{"OFFSET", "CORE_BASE"} {
		if f, ok := block.Float(k); ok {
			s.Offset = f
			break
		}
	}
	return s
}

// Scale returns data*factor + offset as float64.
func Scale(data any, factor, offset float64) ([]float64, error) {
	vals, err := ToFloat64s(data)
	if err != nil {
		return nil, fmt.Errorf("scaling: %w", err)
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = v*factor + offset
	}
	return out, nil
}

// Apply scales data with s. Identity scaling still converts to float64.
func (s Scaling) Apply(data any) ([]float64, error) {
	return Scale(data, s.Factor, s.Offset)
}
