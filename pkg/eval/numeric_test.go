package eval

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

var allNumKinds = []NumKind{
	NumInt8, NumUInt8, NumInt16, NumUInt16, NumInt32, NumUInt32,
	NumInt64, NumUInt64, NumFloat32, NumFloat64,
}

func numberOfKind(k NumKind, magnitude int64) Object {
	switch {
	case k.isFloat():
		return &Float{Value: float64(magnitude), NK: k}
	case k.isSigned():
		return &Int{Value: magnitude, NK: k}
	default:
		return &Uint{Value: uint64(magnitude), NK: k}
	}
}

// Every kind pair and arithmetic operator must land on the promoted kind,
// and promotion must be symmetric.
func TestPromotionIsDeterministicAndSymmetric(t *testing.T) {
	ops := []string{"+", "-", "*", "/", "%"}
	for _, a := range allNumKinds {
		for _, b := range allNumKinds {
			want := promoteKinds(a, b)
			if got := promoteKinds(b, a); got != want {
				t.Fatalf("promoteKinds(%s, %s) = %s but reversed = %s", a, b, want, got)
			}
			for _, op := range ops {
				out, oe := binaryNumeric(op, numberOfKind(a, 7), numberOfKind(b, 3))
				if oe != nil {
					t.Fatalf("%s %s %s: unexpected error %s", a, op, b, oe.msg)
				}
				if got := numKindOf(out); got != want {
					t.Errorf("%s %s %s: result kind = %s, want %s", a, op, b, got, want)
				}
			}
		}
	}
}

func TestPromotionOrdering(t *testing.T) {
	got := map[string]string{
		"int8+int64":      promoteKinds(NumInt8, NumInt64).String(),
		"int32+uint32":    promoteKinds(NumInt32, NumUInt32).String(),
		"float32+int64":   promoteKinds(NumFloat32, NumInt64).String(),
		"float32+float64": promoteKinds(NumFloat32, NumFloat64).String(),
		"uint16+int16":    promoteKinds(NumUInt16, NumInt16).String(),
		"uint8+int8":      promoteKinds(NumUInt8, NumInt8).String(),
		"uint64+uint8":    promoteKinds(NumUInt64, NumUInt8).String(),
		"uint64+int64":    promoteKinds(NumUInt64, NumInt64).String(),
		"uint64+int8":     promoteKinds(NumUInt64, NumInt8).String(),
	}
	want := map[string]string{
		"int8+int64":      "int64",
		"int32+uint32":    "uint32",
		"float32+int64":   "float32",
		"float32+float64": "float64",
		"uint16+int16":    "int32",   // uint16 folds to the int32 level
		"uint8+int8":      "int16",   // uint8 folds to the int16 level
		"uint64+uint8":    "uint64",  // all-unsigned stays unsigned
		"uint64+int64":    "float64", // uint64 with signed goes lossy-safe
		"uint64+int8":     "float64",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("promotion table mismatch (-want +got):\n%s", diff)
	}
}

func TestArithmeticWrapsAtPromotedWidth(t *testing.T) {
	out, oe := binaryNumeric("+", &Uint{Value: 200, NK: NumUInt8}, &Uint{Value: 100, NK: NumUInt8})
	if oe != nil {
		t.Fatal(oe.msg)
	}
	u, ok := out.(*Uint)
	if !ok || u.NK != NumUInt8 {
		t.Fatalf("expected uint8 result, got %s", typeName(out))
	}
	if u.Value != 44 {
		t.Errorf("200 + 100 at uint8 = %d, want 44", u.Value)
	}

	out, oe = binaryNumeric("+", &Int{Value: 127, NK: NumInt8}, &Int{Value: 1, NK: NumInt8})
	if oe != nil {
		t.Fatal(oe.msg)
	}
	i := out.(*Int)
	if i.Value != -128 {
		t.Errorf("127 + 1 at int8 = %d, want -128", i.Value)
	}
}

func TestDivideAndModuloByZero(t *testing.T) {
	cases := []struct {
		op    string
		left  Object
		right Object
	}{
		{"/", &Int{Value: 1, NK: NumInt64}, &Int{Value: 0, NK: NumInt64}},
		{"%", &Int{Value: 1, NK: NumInt64}, &Int{Value: 0, NK: NumInt64}},
		{"/", &Uint{Value: 1, NK: NumUInt32}, &Uint{Value: 0, NK: NumUInt32}},
		{"/", &Float{Value: 1, NK: NumFloat64}, &Float{Value: 0, NK: NumFloat64}},
		{"%", &Float{Value: 1, NK: NumFloat64}, &Float{Value: 0, NK: NumFloat64}},
	}
	for _, tc := range cases {
		_, oe := binaryNumeric(tc.op, tc.left, tc.right)
		if oe == nil {
			t.Fatalf("%s by zero produced no error", tc.op)
		}
		if oe.kind != ErrArithmetic {
			t.Errorf("%s by zero: kind = %s, want ArithmeticError", tc.op, oe.kind)
		}
	}
}

func TestFloatEqualityUsesEpsilon(t *testing.T) {
	sum, oe := binaryNumeric("+", &Float{Value: 0.1, NK: NumFloat64}, &Float{Value: 0.2, NK: NumFloat64})
	if oe != nil {
		t.Fatal(oe.msg)
	}
	eq, oe := compareNumeric("==", sum, &Float{Value: 0.3, NK: NumFloat64})
	if oe != nil {
		t.Fatal(oe.msg)
	}
	if eq != TRUE {
		t.Error("0.1 + 0.2 should compare equal to 0.3 under the epsilon rule")
	}

	neq, _ := compareNumeric("!=", &Float{Value: 1.0, NK: NumFloat64}, &Float{Value: 1.1, NK: NumFloat64})
	if neq != TRUE {
		t.Error("1.0 != 1.1 should hold")
	}
}

func TestCast(t *testing.T) {
	out, oe := Cast(&Int{Value: 100, NK: NumInt64}, "int8")
	if oe != nil {
		t.Fatal(oe.msg)
	}
	if i := out.(*Int); i.Value != 100 || i.NK != NumInt8 {
		t.Errorf("cast 100 to int8 = %v", out.Inspect())
	}

	out, oe = Cast(&Float{Value: 1.9, NK: NumFloat64}, "int32")
	if oe != nil {
		t.Fatal(oe.msg)
	}
	if i := out.(*Int); i.Value != 1 {
		t.Errorf("cast 1.9 to int32 = %d, want truncation to 1", i.Value)
	}

	if _, oe = Cast(&Int{Value: 300, NK: NumInt64}, "int8"); oe == nil || oe.kind != ErrCastOverflow {
		t.Error("cast 300 to int8 should overflow")
	}
	if _, oe = Cast(&Int{Value: -1, NK: NumInt64}, "uint32"); oe == nil || oe.kind != ErrCastOverflow {
		t.Error("cast -1 to uint32 should overflow")
	}

	out, oe = Cast(&Int{Value: 0, NK: NumInt64}, "bool")
	if oe != nil || out != FALSE {
		t.Error("cast 0 to bool should be false")
	}
	out, oe = Cast(&Float{Value: 2.5, NK: NumFloat64}, "string")
	if oe != nil || out.(*String).Value != "2.5" {
		t.Errorf("cast 2.5 to string = %q", out.Inspect())
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		value Object
		want  bool
	}{
		{NULL, false},
		{TRUE, true},
		{FALSE, false},
		{&Int{Value: 0, NK: NumInt64}, false},
		{&Int{Value: -3, NK: NumInt64}, true},
		{&Uint{Value: 1, NK: NumUInt8}, true},
		{&Float{Value: 0, NK: NumFloat64}, false},
		{&String{Value: ""}, false},
		{&String{Value: "x"}, true},
		{&List{}, true},
		{&Map{Pairs: map[string]Object{}}, true},
	}
	for _, tc := range cases {
		if got := Truthy(tc.value); got != tc.want {
			t.Errorf("Truthy(%s) = %v, want %v", tc.value.Inspect(), got, tc.want)
		}
	}
}
