package label

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ValueKind identifies the variant held by a Value.
type ValueKind uint8

// Value kinds
const (
	KindEmpty ValueKind = iota
	KindInt
	KindReal
	KindText   // double-quoted string
	KindSymbol // single-quoted symbol
	KindIdent  // bare word
	KindDate
	KindSequence
	KindSet
)

func (k ValueKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindInt:
		return "integer"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindSymbol:
		return "symbol"
	case KindIdent:
		return "identifier"
	case KindDate:
		return "date"
	case KindSequence:
		return "sequence"
	case KindSet:
		return "set"
	default:
		return "unknown"
	}
}

// Value is a statement value. Scalars keep their source text in Raw; numbers
// additionally carry the parsed Int or Real. Any value may carry Units, which
// makes it a unit-annotated quantity.
type Value struct {
	Kind  ValueKind
	Raw   string
	Int   int64
	Real  float64
	Items []Value
	Units string
}

// IntValue returns an integer value.
func IntValue(n int64) Value {
	return Value{Kind: KindInt, Int: n, Raw: strconv.FormatInt(n, 10)}
}

// RealValue returns a real value.
func RealValue(f float64) Value {
	return Value{Kind: KindReal, Real: f, Raw: formatReal(f)}
}

// TextValue returns a double-quoted string value.
func TextValue(s string) Value {
	return Value{Kind: KindText, Raw: s}
}

// IdentValue returns a bare-word value.
func IdentValue(s string) Value {
	return Value{Kind: KindIdent, Raw: s}
}

// SequenceValue returns a parenthesized sequence.
func SequenceValue(items ...Value) Value {
	return Value{Kind: KindSequence, Items: items}
}

// WithUnits returns a copy of v annotated with units.
func (v Value) WithUnits(units string) Value {
	v.Units = units
	return v
}

// IsQuantity reports whether the value carries units.
func (v Value) IsQuantity() bool {
	return v.Units != ""
}

// IsAggregate reports whether the value is a sequence or set.
func (v Value) IsAggregate() bool {
	return v.Kind == KindSequence || v.Kind == KindSet
}

// AsInt returns the value as an integer. Reals with no fractional part and
// quoted numeric strings are accepted because producers often write them.
func (v Value) AsInt() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindReal:
		if v.Real == math.Trunc(v.Real) && math.Abs(v.Real) < 1<<62 {
			return int64(v.Real), true
		}
	case KindText, KindSymbol, KindIdent:
		c := classify(strings.TrimSpace(v.Raw))
		if c.Kind == KindInt || c.Kind == KindReal {
			return c.AsInt()
		}
	}
	return 0, false
}

// AsFloat returns the value as a float.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindReal:
		return v.Real, true
	case KindText, KindSymbol, KindIdent:
		c := classify(strings.TrimSpace(v.Raw))
		if c.Kind == KindInt || c.Kind == KindReal {
			return c.AsFloat()
		}
	}
	return 0, false
}

// Text returns the unquoted text of a scalar. Sequences and sets return the
// text of their first item.
func (v Value) Text() string {
	switch v.Kind {
	case KindSequence, KindSet:
		if len(v.Items) == 0 {
			return ""
		}
		return v.Items[0].Text()
	case KindInt:
		if v.Raw == "" {
			return strconv.FormatInt(v.Int, 10)
		}
	case KindReal:
		if v.Raw == "" {
			return formatReal(v.Real)
		}
	}
	return v.Raw
}

// Time parses a date or date-time value. Day-of-year forms are accepted.
func (v Value) Time() (time.Time, bool) {
	s := strings.TrimSuffix(strings.TrimSpace(v.Raw), "Z")
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var timeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-002T15:04:05.999999999",
	"2006-002",
	"15:04:05.999999999",
}

// Interface returns the value as a plain Go value: int64, float64, string,
// or []any for aggregates.
func (v Value) Interface() any {
	switch v.Kind {
	case KindEmpty:
		return nil
	case KindInt:
		return v.Int
	case KindReal:
		return v.Real
	case KindSequence, KindSet:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = item.Interface()
		}
		return out
	default:
		return v.Raw
	}
}

// Equal reports whether two values are semantically identical.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Units != o.Units {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.Int == o.Int
	case KindReal:
		return v.Real == o.Real || (math.IsNaN(v.Real) && math.IsNaN(o.Real))
	case KindSequence, KindSet:
		if len(v.Items) != len(o.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	default:
		return v.Raw == o.Raw
	}
}

var (
	radixPattern = regexp.MustCompile(`^([+-]?)(\d{1,2})#([0-9A-Za-z]+)#$`)
	intPattern   = regexp.MustCompile(`^[+-]?\d+$`)
	realPattern  = regexp.MustCompile(`^[+-]?(\d+\.\d*|\.\d+|\d+)([eE][+-]?\d+)?$`)
	datePattern  = regexp.MustCompile(`^(\d{4}-(\d{2}-\d{2}|\d{3})(T\d{2}(:\d{2}(:\d{2}(\.\d*)?)?)?Z?)?|\d{2}:\d{2}(:\d{2}(\.\d*)?)?Z?)$`)
)

// classify turns a bare word into a typed value.
func classify(word string) Value {
	if m := radixPattern.FindStringSubmatch(word); m != nil {
		base, _ := strconv.Atoi(m[2])
		if base >= 2 && base <= 16 {
			if n, err := strconv.ParseUint(m[3], base, 64); err == nil && n <= math.MaxInt64 {
				val := int64(n)
				if m[1] == "-" {
					val = -val
				}
				return Value{Kind: KindInt, Int: val, Raw: word}
			}
		}
		return Value{Kind: KindIdent, Raw: word}
	}
	if intPattern.MatchString(word) {
		if n, err := strconv.ParseInt(word, 10, 64); err == nil {
			return Value{Kind: KindInt, Int: n, Raw: word}
		}
		if f, err := strconv.ParseFloat(word, 64); err == nil {
			return Value{Kind: KindReal, Real: f, Raw: word}
		}
	}
	if realPattern.MatchString(word) {
		if f, err := strconv.ParseFloat(word, 64); err == nil {
			return Value{Kind: KindReal, Real: f, Raw: word}
		}
	}
	if datePattern.MatchString(word) {
		return Value{Kind: KindDate, Raw: word}
	}
	return Value{Kind: KindIdent, Raw: word}
}

func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eENI") {
		s += ".0"
	}
	return s
}
