package asl

import "testing"

func TestParsePathRejectsBadRoot(t *testing.T) {
	if _, _, err := parsePath("foo.bar"); err == nil {
		t.Fatal("expected error for a path not starting with $ or $$")
	}
}

func TestParsePathFieldAndIndex(t *testing.T) {
	root, segs, err := parsePath("$.a.b[2].c")
	if err != nil {
		t.Fatalf("parsePath: %v", err)
	}
	if root != "$" {
		t.Errorf("root = %q, want $", root)
	}
	want := []pathSeg{{field: "a"}, {field: "b"}, {index: 2, isIdx: true}, {field: "c"}}
	if len(segs) != len(want) {
		t.Fatalf("segs = %v", segs)
	}
	for i, w := range want {
		if segs[i] != w {
			t.Errorf("segs[%d] = %+v, want %+v", i, segs[i], w)
		}
	}
}

func TestParsePathRejectsNegativeIndex(t *testing.T) {
	if _, _, err := parsePath("$.items[-1]"); err == nil {
		t.Fatal("expected error for a negative index")
	}
}

func TestParsePathRejectsUnterminatedIndex(t *testing.T) {
	if _, _, err := parsePath("$.items[1"); err == nil {
		t.Fatal("expected error for an unterminated index")
	}
}

func TestPathReadWholeRootAndContext(t *testing.T) {
	root := EmptyObject().Set("a", Int(1))
	ctx := EmptyObject().Set("Execution", String("exec-1"))

	v, err := pathRead("$", root, ctx)
	if err != nil || !DeepEqual(v, root) {
		t.Errorf("pathRead($) = %v, %v", v, err)
	}
	v, err = pathRead("$$", root, ctx)
	if err != nil || !DeepEqual(v, ctx) {
		t.Errorf("pathRead($$) = %v, %v", v, err)
	}
}

func TestPathReadMissingYieldsMissingNotError(t *testing.T) {
	root := EmptyObject().Set("a", Int(1))
	v, err := pathRead("$.b.c", root, Value{})
	if err != nil {
		t.Fatalf("pathRead: %v", err)
	}
	if !v.IsMissing() {
		t.Errorf("expected Missing() for an unresolved path, got %v", v)
	}
}

func TestPathReadIndexOutOfRangeYieldsMissing(t *testing.T) {
	root := EmptyObject().Set("items", Array(Int(1)))
	v, err := pathRead("$.items[5]", root, Value{})
	if err != nil || !v.IsMissing() {
		t.Errorf("pathRead out-of-range index = %v, %v", v, err)
	}
}

func TestMustPathReadFailsOnMissing(t *testing.T) {
	root := EmptyObject()
	if _, err := mustPathRead("$.absent", root, Value{}); err == nil {
		t.Fatal("expected CodeParameterPathFailure for an unresolved required path")
	}
}

func TestPathWriteReplaceRoot(t *testing.T) {
	got, err := pathWrite("$", EmptyObject().Set("a", Int(1)), String("replaced"))
	if err != nil {
		t.Fatalf("pathWrite: %v", err)
	}
	if !got.IsString() || got.Str() != "replaced" {
		t.Errorf("pathWrite($) = %v", got)
	}
}

func TestPathWriteCreatesIntermediateStructure(t *testing.T) {
	got, err := pathWrite("$.a.b", EmptyObject(), Int(42))
	if err != nil {
		t.Fatalf("pathWrite: %v", err)
	}
	a, ok := got.Get("a")
	if !ok || !a.IsObject() {
		t.Fatalf("expected intermediate object at a, got %v", got)
	}
	b, ok := a.Get("b")
	if !ok || b.Int64() != 42 {
		t.Errorf("expected a.b = 42, got %v", b)
	}
}

func TestPathWriteExtendsArray(t *testing.T) {
	got, err := pathWrite("$.items[2]", EmptyObject(), String("x"))
	if err != nil {
		t.Fatalf("pathWrite: %v", err)
	}
	items, _ := got.Get("items")
	if items.Len() != 3 {
		t.Fatalf("expected items padded to length 3, got %d", items.Len())
	}
	if items.Items()[2].Str() != "x" {
		t.Errorf("items[2] = %v", items.Items()[2])
	}
	if !items.Items()[0].IsNull() || !items.Items()[1].IsNull() {
		t.Errorf("expected padding slots to be null, got %v", items)
	}
}

func TestPathWriteRejectsNonObjectBlocking(t *testing.T) {
	root := EmptyObject().Set("a", Int(1))
	if _, err := pathWrite("$.a.b", root, Int(2)); err == nil {
		t.Fatal("expected CodeResultPathMatchFailure when a scalar blocks a required descent")
	}
}

func TestPathWriteRejectsNonDollarRoot(t *testing.T) {
	if _, err := pathWrite("$$.a", EmptyObject(), Int(1)); err == nil {
		t.Fatal("expected an error: ResultPath must address the state document")
	}
}
