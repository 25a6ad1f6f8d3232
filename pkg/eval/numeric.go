package eval

import (
	"fmt"
	"math"
)

// NumKind orders the ten numeric widths. The constant order is also the
// promotion rank: a binary operation runs at the higher-ranked operand kind.
type NumKind uint8

const (
	NumInt8 NumKind = iota
	NumUInt8
	NumInt16
	NumUInt16
	NumInt32
	NumUInt32
	NumInt64
	NumUInt64
	NumFloat32
	NumFloat64
)

var numKindNames = [...]string{
	"int8", "uint8", "int16", "uint16", "int32", "uint32",
	"int64", "uint64", "float32", "float64",
}

func (k NumKind) String() string { return numKindNames[k] }

func (k NumKind) isFloat() bool { return k == NumFloat32 || k == NumFloat64 }

func (k NumKind) isSigned() bool {
	switch k {
	case NumInt8, NumInt16, NumInt32, NumInt64:
		return true
	}
	return false
}

// numKindByName resolves declared type names; the bare aliases widen to the
// 64-bit kinds.
var numKindByName = map[string]NumKind{
	"int8": NumInt8, "uint8": NumUInt8,
	"int16": NumInt16, "uint16": NumUInt16,
	"int32": NumInt32, "uint32": NumUInt32,
	"int64": NumInt64, "uint64": NumUInt64,
	"float32": NumFloat32, "float64": NumFloat64,
	"int": NumInt64, "uint": NumUInt64, "float": NumFloat64,
}

// promoteKinds picks the common kind for a binary operation. Two caveats on
// top of the plain rank comparison:
//   - uint64 mixed with any signed kind promotes both to float64 rather than
//     risking a silent two's-complement wraparound; this is deliberately
//     lossy for values above 2^53 and must stay this way.
//   - the small unsigned kinds fold into the next signed width when they win
//     a mixed-sign comparison: uint8 to int16, uint16 to int32.
func promoteKinds(a, b NumKind) NumKind {
	if a == b {
		return a
	}
	if a == NumFloat64 || b == NumFloat64 {
		return NumFloat64
	}
	if a == NumFloat32 || b == NumFloat32 {
		return NumFloat32
	}
	if a == NumUInt64 || b == NumUInt64 {
		other := a
		if a == NumUInt64 {
			other = b
		}
		if other.isSigned() {
			return NumFloat64
		}
		return NumUInt64
	}
	hi := a
	if b > a {
		hi = b
	}
	switch hi {
	case NumUInt8:
		return NumInt16
	case NumUInt16:
		return NumInt32
	}
	return hi
}

func IsNumeric(o Object) bool {
	switch o.Kind() {
	case KindInt, KindUint, KindFloat:
		return true
	}
	return false
}

func IsInteger(o Object) bool {
	switch o.Kind() {
	case KindInt, KindUint:
		return true
	}
	return false
}

func IsFloatingPoint(o Object) bool { return o.Kind() == KindFloat }

func numKindOf(o Object) NumKind {
	switch v := o.(type) {
	case *Int:
		return v.NK
	case *Uint:
		return v.NK
	case *Float:
		return v.NK
	}
	return NumInt64
}

// Truthy: null is false, bool is itself, numerics compare against zero,
// strings are true when non-empty, everything else is true.
func Truthy(o Object) bool {
	switch v := o.(type) {
	case *Null:
		return false
	case *Bool:
		return v.Value
	case *Int:
		return v.Value != 0
	case *Uint:
		return v.Value != 0
	case *Float:
		return v.Value != 0
	case *String:
		return v.Value != ""
	default:
		return true
	}
}

func toFloat64(o Object) float64 {
	switch v := o.(type) {
	case *Int:
		return float64(v.Value)
	case *Uint:
		return float64(v.Value)
	case *Float:
		return v.Value
	}
	return 0
}

func toInt64(o Object) int64 {
	switch v := o.(type) {
	case *Int:
		return v.Value
	case *Uint:
		return int64(v.Value)
	case *Float:
		return int64(v.Value)
	}
	return 0
}

func toUint64(o Object) uint64 {
	switch v := o.(type) {
	case *Int:
		return uint64(v.Value)
	case *Uint:
		return v.Value
	case *Float:
		return uint64(v.Value)
	}
	return 0
}

// signWrap reduces an int64 result to the two's-complement value of the
// target width.
func signWrap(v int64, k NumKind) int64 {
	switch k {
	case NumInt8:
		return int64(int8(v))
	case NumInt16:
		return int64(int16(v))
	case NumInt32:
		return int64(int32(v))
	}
	return v
}

func uintWrap(v uint64, k NumKind) uint64 {
	switch k {
	case NumUInt8:
		return uint64(uint8(v))
	case NumUInt16:
		return uint64(uint16(v))
	case NumUInt32:
		return uint64(uint32(v))
	}
	return v
}

func makeNumber(k NumKind, i int64, u uint64, f float64) Object {
	switch {
	case k.isFloat():
		if k == NumFloat32 {
			f = float64(float32(f))
		}
		return &Float{Value: f, NK: k}
	case k.isSigned():
		return &Int{Value: signWrap(i, k), NK: k}
	default:
		return &Uint{Value: uintWrap(u, k), NK: k}
	}
}

// opError lets the pure numeric helpers report failures without knowing
// about source positions; the evaluator attaches those.
type opError struct {
	kind ErrorKind
	msg  string
}

func opErrorf(kind ErrorKind, format string, args ...interface{}) *opError {
	return &opError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// binaryNumeric runs + - * / % on two numeric operands at their promoted
// kind. Results wrap at the promoted width; division and modulo by zero are
// arithmetic errors for every kind, floats included.
func binaryNumeric(op string, left, right Object) (Object, *opError) {
	k := promoteKinds(numKindOf(left), numKindOf(right))

	if k.isFloat() {
		lf, rf := toFloat64(left), toFloat64(right)
		var out float64
		switch op {
		case "+":
			out = lf + rf
		case "-":
			out = lf - rf
		case "*":
			out = lf * rf
		case "/":
			if rf == 0 {
				return nil, opErrorf(ErrArithmetic, "division by zero")
			}
			out = lf / rf
		case "%":
			if rf == 0 {
				return nil, opErrorf(ErrArithmetic, "modulo by zero")
			}
			out = math.Mod(lf, rf)
		default:
			return nil, opErrorf(ErrTypeMismatch, "unknown operator %q", op)
		}
		return makeNumber(k, 0, 0, out), nil
	}

	if k.isSigned() {
		li, ri := toInt64(left), toInt64(right)
		var out int64
		switch op {
		case "+":
			out = li + ri
		case "-":
			out = li - ri
		case "*":
			out = li * ri
		case "/":
			if ri == 0 {
				return nil, opErrorf(ErrArithmetic, "division by zero")
			}
			out = li / ri
		case "%":
			if ri == 0 {
				return nil, opErrorf(ErrArithmetic, "modulo by zero")
			}
			out = li % ri
		default:
			return nil, opErrorf(ErrTypeMismatch, "unknown operator %q", op)
		}
		return makeNumber(k, out, 0, 0), nil
	}

	lu, ru := uintWrap(toUint64(left), k), uintWrap(toUint64(right), k)
	var out uint64
	switch op {
	case "+":
		out = lu + ru
	case "-":
		out = lu - ru
	case "*":
		out = lu * ru
	case "/":
		if ru == 0 {
			return nil, opErrorf(ErrArithmetic, "division by zero")
		}
		out = lu / ru
	case "%":
		if ru == 0 {
			return nil, opErrorf(ErrArithmetic, "modulo by zero")
		}
		out = lu % ru
	default:
		return nil, opErrorf(ErrTypeMismatch, "unknown operator %q", op)
	}
	return makeNumber(k, 0, out, 0), nil
}

// floatEpsilon is the tolerance for floating == and !=; exact bit equality
// is never used.
const floatEpsilon = 1e-6

// compareNumeric runs == != < > <= >= on two numeric operands.
func compareNumeric(op string, left, right Object) (Object, *opError) {
	k := promoteKinds(numKindOf(left), numKindOf(right))

	if k.isFloat() {
		lf, rf := toFloat64(left), toFloat64(right)
		switch op {
		case "==":
			return nativeBool(math.Abs(lf-rf) <= floatEpsilon), nil
		case "!=":
			return nativeBool(math.Abs(lf-rf) > floatEpsilon), nil
		case "<":
			return nativeBool(lf < rf), nil
		case ">":
			return nativeBool(lf > rf), nil
		case "<=":
			return nativeBool(lf <= rf), nil
		case ">=":
			return nativeBool(lf >= rf), nil
		}
		return nil, opErrorf(ErrTypeMismatch, "unknown comparison %q", op)
	}

	if k.isSigned() {
		li, ri := toInt64(left), toInt64(right)
		switch op {
		case "==":
			return nativeBool(li == ri), nil
		case "!=":
			return nativeBool(li != ri), nil
		case "<":
			return nativeBool(li < ri), nil
		case ">":
			return nativeBool(li > ri), nil
		case "<=":
			return nativeBool(li <= ri), nil
		case ">=":
			return nativeBool(li >= ri), nil
		}
		return nil, opErrorf(ErrTypeMismatch, "unknown comparison %q", op)
	}

	lu, ru := uintWrap(toUint64(left), k), uintWrap(toUint64(right), k)
	switch op {
	case "==":
		return nativeBool(lu == ru), nil
	case "!=":
		return nativeBool(lu != ru), nil
	case "<":
		return nativeBool(lu < ru), nil
	case ">":
		return nativeBool(lu > ru), nil
	case "<=":
		return nativeBool(lu <= ru), nil
	case ">=":
		return nativeBool(lu >= ru), nil
	}
	return nil, opErrorf(ErrTypeMismatch, "unknown comparison %q", op)
}

var numKindRange = map[NumKind][2]float64{
	NumInt8:    {math.MinInt8, math.MaxInt8},
	NumUInt8:   {0, math.MaxUint8},
	NumInt16:   {math.MinInt16, math.MaxInt16},
	NumUInt16:  {0, math.MaxUint16},
	NumInt32:   {math.MinInt32, math.MaxInt32},
	NumUInt32:  {0, math.MaxUint32},
	NumInt64:   {math.MinInt64, math.MaxInt64},
	NumUInt64:  {0, math.MaxUint64},
	NumFloat32: {-math.MaxFloat32, math.MaxFloat32},
	NumFloat64: {-math.MaxFloat64, math.MaxFloat64},
}

// Cast performs a checked conversion to a named target type. Numeric casts
// that do not fit the target's range fail instead of wrapping.
func Cast(value Object, target string) (Object, *opError) {
	switch target {
	case "bool":
		return nativeBool(Truthy(value)), nil
	case "string":
		return &String{Value: value.Inspect()}, nil
	}

	k, ok := numKindByName[target]
	if !ok {
		return nil, opErrorf(ErrTypeMismatch, "cannot cast to %q", target)
	}

	var src float64
	switch v := value.(type) {
	case *Int:
		src = float64(v.Value)
	case *Uint:
		src = float64(v.Value)
	case *Float:
		src = v.Value
	case *Bool:
		if v.Value {
			src = 1
		}
	default:
		return nil, opErrorf(ErrTypeMismatch, "cannot cast %s to %s", typeName(value), target)
	}

	r := numKindRange[k]
	if src < r[0] || src > r[1] {
		return nil, opErrorf(ErrCastOverflow, "value %s does not fit in %s", value.Inspect(), target)
	}

	if k.isFloat() {
		return makeNumber(k, 0, 0, src), nil
	}
	// exact integral conversions avoid the float path to keep 64-bit
	// precision; floats truncate toward zero
	switch v := value.(type) {
	case *Int:
		if k.isSigned() {
			if signWrap(v.Value, k) != v.Value {
				return nil, opErrorf(ErrCastOverflow, "value %s does not fit in %s", value.Inspect(), target)
			}
			return &Int{Value: v.Value, NK: k}, nil
		}
		if v.Value < 0 {
			return nil, opErrorf(ErrCastOverflow, "value %s does not fit in %s", value.Inspect(), target)
		}
		u := uint64(v.Value)
		if uintWrap(u, k) != u {
			return nil, opErrorf(ErrCastOverflow, "value %s does not fit in %s", value.Inspect(), target)
		}
		return &Uint{Value: u, NK: k}, nil
	case *Uint:
		if k.isSigned() {
			i := int64(v.Value)
			if v.Value > math.MaxInt64 || signWrap(i, k) != i {
				return nil, opErrorf(ErrCastOverflow, "value %s does not fit in %s", value.Inspect(), target)
			}
			return &Int{Value: i, NK: k}, nil
		}
		if uintWrap(v.Value, k) != v.Value {
			return nil, opErrorf(ErrCastOverflow, "value %s does not fit in %s", value.Inspect(), target)
		}
		return &Uint{Value: v.Value, NK: k}, nil
	default:
		t := math.Trunc(src)
		if k.isSigned() {
			return &Int{Value: signWrap(int64(t), k), NK: k}, nil
		}
		if t < 0 {
			return nil, opErrorf(ErrCastOverflow, "value %s does not fit in %s", value.Inspect(), target)
		}
		return &Uint{Value: uintWrap(uint64(t), k), NK: k}, nil
	}
}
