package eval

import "testing"

func TestDefineRejectsRedeclarationInSameScope(t *testing.T) {
	env := NewEnvironment()
	if !env.Define("x", &Int{Value: 1, NK: NumInt64}, false, "int64", false) {
		t.Fatal("first definition should succeed")
	}
	if env.Define("x", &Int{Value: 2, NK: NumInt64}, false, "int64", false) {
		t.Fatal("second definition in the same scope should fail")
	}
}

func TestChildScopeShadowing(t *testing.T) {
	outer := NewEnvironment()
	outer.Define("x", &Int{Value: 1, NK: NumInt64}, false, "int64", false)

	inner := NewEnclosedEnvironment(outer)
	if !inner.Define("x", &Int{Value: 2, NK: NumInt64}, false, "int64", false) {
		t.Fatal("shadowing in a child scope should always be permitted")
	}

	v, _ := inner.Get("x")
	if v.(*Int).Value != 2 {
		t.Error("inner lookup should see the shadowing binding")
	}
	v, _ = outer.Get("x")
	if v.(*Int).Value != 1 {
		t.Error("outer binding should be untouched")
	}
}

func TestAssignWalksChain(t *testing.T) {
	outer := NewEnvironment()
	outer.Define("x", &Int{Value: 1, NK: NumInt64}, false, "int64", false)
	inner := NewEnclosedEnvironment(outer)

	if r := inner.Assign("x", &Int{Value: 9, NK: NumInt64}); r != assignOK {
		t.Fatalf("assign through child = %v, want assignOK", r)
	}
	v, _ := outer.Get("x")
	if v.(*Int).Value != 9 {
		t.Error("assignment should mutate the outer slot")
	}

	if r := inner.Assign("missing", NULL); r != assignUndefined {
		t.Errorf("assign to unknown name = %v, want assignUndefined", r)
	}
}

func TestConstSlots(t *testing.T) {
	env := NewEnvironment()
	env.Define("PI", &Float{Value: 3.14, NK: NumFloat64}, true, "float64", false)
	if r := env.Assign("PI", &Float{Value: 3, NK: NumFloat64}); r != assignConst {
		t.Fatalf("assign to const = %v, want assignConst", r)
	}
}

func TestLookupExposesTypeTag(t *testing.T) {
	env := NewEnvironment()
	env.Define("xs", &List{}, false, "int32", true)
	s, ok := env.Lookup("xs")
	if !ok {
		t.Fatal("lookup should find the slot")
	}
	if s.typeName != "int32" || !s.isArray {
		t.Errorf("slot tag = (%s, array=%v), want (int32, array=true)", s.typeName, s.isArray)
	}
}
