package dtype

import (
	"fmt"
	"math"
	"strings"

	"github.com/robert-malhotra/go-pds3/internal/label"
)

// Constant is a named special value.
type Constant struct {
	Name  string
	Value float64
}

// InvalidsName is reported when float data holds NaN or infinities.
const InvalidsName = "INVALIDS"

// ConstantNames lists the keywords that declare special constants in an
// object block.
var ConstantNames = func() []string {
	var names []string
	for _, category := range []string{"CORE_", "BAND_SUFFIX_", "SAMPLE_SUFFIX", "LINE_SUFFIX", ""} {
		for _, direction := range []string{"HIGH_", "LOW_"} {
			for _, entity := range []string{"INST_", "REPR_"} {
				for _, prop := range []string{"NULL", "SATURATION", "SAT"} {
					names = append(names, category+direction+entity+prop)
				}
			}
		}
	}
	return append(names,
		"INVALID_CONSTANT",
		"MISSING_CONSTANT",
		"INFINITY_CONSTANT",
		"NOT_APPLICABLE_CONSTANT",
		"NULL_CONSTANT",
		"UNKNOWN_CONSTANT",
		"SATURATION_CONSTANT",
	)
}()

// ExplicitConstants reads declared special constants from an object block.
// A radix literal declared for 4-byte real data is taken as the float's bit
// pattern.
func ExplicitConstants(block *label.Node, t Type) []Constant {
	if block == nil {
		return nil
	}
	var out []Constant
	for _, name := range ConstantNames {
		v, ok := block.Get(name)
		if !ok {
			continue
		}
		if v.IsAggregate() {
			if len(v.Items) == 0 {
				continue
			}
			v = v.Items[0]
		}
		if strings.EqualFold(strings.TrimSpace(v.Raw), "N/A") {
			continue
		}
		if v.Kind == label.KindInt && strings.Contains(v.Raw, "#") && t.Family == FamilyIEEE && t.Width == 4 {
			out = append(out, Constant{Name: name, Value: float64(math.Float32frombits(uint32(v.Int)))})
			continue
		}
		f, ok := v.AsFloat()
		if !ok {
			continue
		}
		out = append(out, Constant{Name: name, Value: f})
	}
	return out
}

func hexFloat32(bits uint32) float64 {
	return float64(math.Float32frombits(bits))
}

var implicitConstants = map[string][]Constant{
	"int16": {
		{"N/A", -32768},
		{"UNK", 32767},
		{"ISIS_LOW_INST_SAT", -32766},
		{"ISIS_LOW_REPR_SAT", -32767},
		{"ISIS_HIGH_INST_SAT", -32765},
		{"ISIS_HIGH_REPR_SAT", -32764},
	},
	"uint16": {
		{"NULL", 0},
		{"N/A", 65533},
		{"UNK", 65534},
		{"ISIS_LOW_INST_SAT", 2},
		{"ISIS_LOW_REPR_SAT", 1},
		{"ISIS_HIGH_INST_SAT", 65534},
		{"ISIS_HIGH_REPR_SAT", 65535},
	},
	"int32": {
		{"N/A", -214743648},
		{"UNK", 2147483647},
	},
	"int64": {
		{"N/A", -214743648},
		{"UNK", 2147483647},
	},
	"uint32": {
		{"N/A", 4294967293},
		{"UNK", 4294967294},
		{"ISIS_NULL", 0xFF7FFFFB},
		{"ISIS_LOW_INST_SAT", 0xFF7FFFFD},
		{"ISIS_LOW_REPR_SAT", 0xFF7FFFFC},
		{"ISIS_HIGH_INST_SAT", 0xFF7FFFFE},
		{"ISIS_HIGH_REPR_SAT", 0xFF7FFFFF},
	},
	"float32": {
		{"NULL", -3.4028226550889044521e38},
		{"N/A", -1e32},
		{"UNK", 1e32},
		{"ISIS_LOW_INST_SAT", hexFloat32(0xFF7FFFFD)},
		{"ISIS_LOW_REPR_SAT", hexFloat32(0xFF7FFFFC)},
		{"ISIS_HIGH_INST_SAT", hexFloat32(0xFF7FFFFE)},
		{"ISIS_HIGH_REPR_SAT", hexFloat32(0xFF7FFFFF)},
	},
	"float64": {
		{"NULL", -3.4028226550889044521e38},
	},
}

func elementKind(data any) string {
	switch data.(type) {
	case []uint8:
		return "uint8"
	case []int16:
		return "int16"
	case []uint16:
		return "uint16"
	case []int32:
		return "int32"
	case []int64:
		return "int64"
	case []uint32:
		return "uint32"
	case []float32:
		return "float32"
	case []float64:
		return "float64"
	}
	return ""
}

// ImplicitConstants returns the conventional special values for the
// element type of data that actually occur in it. Byte data is never
// checked. When float data holds NaN or infinities an InvalidsName entry
// with a NaN value is included.
func ImplicitConstants(data any) []Constant {
	kind := elementKind(data)
	if kind == "" || kind == "uint8" {
		return nil
	}
	vals, err := ToFloat64s(data)
	if err != nil {
		return nil
	}
	key := func(v float64) float64 {
		if kind == "float32" {
			return float64(float32(v))
		}
		return v
	}
	present := make(map[float64]bool, len(implicitConstants[kind]))
	for _, c := range implicitConstants[kind] {
		present[key(c.Value)] = false
	}
	invalid := false
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			invalid = true
			continue
		}
		if _, ok := present[v]; ok {
			present[v] = true
		}
	}
	var out []Constant
	if invalid {
		out = append(out, Constant{Name: InvalidsName, Value: math.NaN()})
	}
	for _, c := range implicitConstants[kind] {
		if present[key(c.Value)] {
			out = append(out, c)
		}
	}
	return out
}

// Mask reports which elements of data equal one of the constants or are
// NaN or infinite. Constants are compared at the precision of data.
func Mask(data any, constants []Constant) ([]bool, error) {
	vals, err := ToFloat64s(data)
	if err != nil {
		return nil, err
	}
	_, single := data.([]float32)
	set := make(map[float64]struct{}, len(constants))
	for _, c := range constants {
		v := c.Value
		if math.IsNaN(v) {
			continue
		}
		if single {
			v = float64(float32(v))
		}
		set[v] = struct{}{}
	}
	mask := make([]bool, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			mask[i] = true
			continue
		}
		_, mask[i] = set[v]
	}
	return mask, nil
}

// ToFloat64s converts any numeric slice returned by Decode to float64.
func ToFloat64s(data any) ([]float64, error) {
	switch d := data.(type) {
	case []float64:
		return d, nil
	case []float32:
		return convertSlice(d), nil
	case []int8:
		return convertSlice(d), nil
	case []int16:
		return convertSlice(d), nil
	case []int32:
		return convertSlice(d), nil
	case []int64:
		return convertSlice(d), nil
	case []uint8:
		return convertSlice(d), nil
	case []uint16:
		return convertSlice(d), nil
	case []uint32:
		return convertSlice(d), nil
	case []uint64:
		return convertSlice(d), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrNotNumeric, data)
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func convertSlice[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
