package asl

import "testing"

func TestValueConstructorsAndKind(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		kind Kind
	}{
		{"null", Null(), KindNull},
		{"missing", Missing(), KindMissing},
		{"bool", Bool(true), KindBool},
		{"string", String("x"), KindString},
		{"int", Int(3), KindNumber},
		{"float", Float(3.5), KindNumber},
		{"array", Array(Int(1), Int(2)), KindArray},
		{"object", EmptyObject(), KindObject},
	}
	for _, c := range cases {
		if got := c.v.Kind(); got != c.kind {
			t.Errorf("%s: Kind() = %v, want %v", c.name, got, c.kind)
		}
	}
}

func TestValueGetSetDelete(t *testing.T) {
	obj := EmptyObject().Set("a", Int(1)).Set("b", Int(2))

	v, ok := obj.Get("a")
	if !ok || v.Int64() != 1 {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}
	if _, ok := obj.Get("missing"); ok {
		t.Fatal("expected missing key to report ok=false")
	}

	updated := obj.Set("a", Int(99))
	if v, _ := updated.Get("a"); v.Int64() != 99 {
		t.Errorf("Set did not overwrite existing key")
	}
	if v, _ := obj.Get("a"); v.Int64() != 1 {
		t.Errorf("Set mutated the original value; obj.a = %v", v)
	}
	if got := updated.Keys(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Set on existing key changed order: %v", got)
	}

	appended := obj.Set("c", Int(3))
	if got := appended.Keys(); len(got) != 3 || got[2] != "c" {
		t.Errorf("new key not appended in order: %v", got)
	}

	deleted := obj.Delete("a")
	if _, ok := deleted.Get("a"); ok {
		t.Error("expected a removed")
	}
	if _, ok := obj.Get("a"); !ok {
		t.Error("Delete mutated the original value")
	}
}

func TestValueArrayOps(t *testing.T) {
	arr := Array(Int(1), Int(2), Int(3))

	replaced := arr.WithItem(1, Int(20))
	if replaced.Items()[1].Int64() != 20 {
		t.Errorf("WithItem did not replace index 1")
	}
	if arr.Items()[1].Int64() != 2 {
		t.Error("WithItem mutated the original array")
	}

	appended := arr.Append(Int(4))
	if appended.Len() != 4 {
		t.Errorf("Append: Len() = %d, want 4", appended.Len())
	}
	if arr.Len() != 3 {
		t.Error("Append mutated the original array")
	}
}

func TestValueAsObject(t *testing.T) {
	scalar := String("hi").AsObject()
	if !scalar.IsObject() {
		t.Fatal("AsObject on a scalar must yield an object")
	}
	if v, ok := scalar.Get("value"); !ok || v.Str() != "hi" {
		t.Errorf("AsObject wrapped value = %v, %v", v, ok)
	}

	obj := EmptyObject().Set("k", Int(1))
	if obj.AsObject().String() != obj.String() {
		t.Error("AsObject must pass an already-object value through unchanged")
	}
}

func TestValueIntegerVsFloat(t *testing.T) {
	if !Int(3).IsInteger() {
		t.Error("Int(3) should be integral")
	}
	if Float(3.5).IsInteger() {
		t.Error("Float(3.5) should not be integral")
	}
	if NumberFromString("3e1").IsInteger() {
		t.Error("exponent notation should not be considered integral")
	}
}

func TestDeepEqual(t *testing.T) {
	a := EmptyObject().Set("x", Int(1)).Set("y", Array(String("a"), Null()))
	b := EmptyObject().Set("y", Array(String("a"), Null())).Set("x", Float(1))

	if !DeepEqual(a, b) {
		t.Error("expected structurally equal objects (differing key order, int vs float) to compare equal")
	}
	if DeepEqual(a, EmptyObject().Set("x", Int(2)).Set("y", Array(String("a"), Null()))) {
		t.Error("expected differing values to compare unequal")
	}
	if DeepEqual(Array(Int(1)), Array(Int(1), Int(2))) {
		t.Error("arrays of different length must not be equal")
	}
}

func TestDeepCopyIsIndependent(t *testing.T) {
	inner := Array(Int(1))
	orig := EmptyObject().Set("items", inner)
	cp := DeepCopy(orig)

	mutated := orig.Set("items", inner.Append(Int(2)))
	if cpItems, _ := cp.Get("items"); cpItems.Len() != 1 {
		t.Errorf("DeepCopy was affected by a later mutation of the original: %v", cpItems)
	}
	_ = mutated
}

func TestValueJSONRoundTripPreservesKeyOrderAndNumberLiterals(t *testing.T) {
	src := `{"z":1,"a":2.50,"m":[1,2,3],"s":"hi","n":null,"t":true}`
	v, err := ParseJSON([]byte(src))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}

	if got := v.Keys(); got[0] != "z" || got[1] != "a" || got[2] != "m" {
		t.Errorf("key order not preserved: %v", got)
	}

	a, _ := v.Get("a")
	if a.NumberLiteral() != "2.50" {
		t.Errorf("expected original numeric literal text 2.50, got %q", a.NumberLiteral())
	}

	out, err := v.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	roundTripped, err := ParseJSON(out)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if !DeepEqual(v, roundTripped) {
		t.Error("round trip through Marshal/Unmarshal changed the value")
	}
}

func TestValueUnmarshalInvalidJSON(t *testing.T) {
	if _, err := ParseJSON([]byte("{not json")); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestValueString(t *testing.T) {
	v := EmptyObject().Set("a", Int(1))
	if got := v.String(); got != `{"a":1}` {
		t.Errorf("String() = %q, want %q", got, `{"a":1}`)
	}
}
