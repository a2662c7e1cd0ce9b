package asl

import "testing"

func TestResolveParametersMixesLiteralsPathsAndIntrinsics(t *testing.T) {
	input := EmptyObject().Set("name", String("ada")).Set("age", Int(30))
	ctx := EmptyObject().Set("Execution", EmptyObject().Set("Id", String("exec-1")))

	tmpl := EmptyObject().
		Set("greeting.$", String("States.Format('hi {}', $.name)")).
		Set("literal", String("unchanged")).
		Set("nested", EmptyObject().Set("age.$", String("$.age"))).
		Set("list", Array(String("a"), EmptyObject().Set("exec.$", String("$$.Execution.Id"))))

	out, err := resolveParameters(tmpl, input, ctx)
	if err != nil {
		t.Fatalf("resolveParameters: %v", err)
	}

	if g, _ := out.Get("greeting"); g.Str() != "hi ada" {
		t.Errorf("greeting = %v", g)
	}
	if l, _ := out.Get("literal"); l.Str() != "unchanged" {
		t.Errorf("literal = %v", l)
	}
	nested, _ := out.Get("nested")
	if age, _ := nested.Get("age"); age.Int64() != 30 {
		t.Errorf("nested.age = %v", age)
	}
	list, _ := out.Get("list")
	if list.Items()[0].Str() != "a" {
		t.Errorf("list[0] = %v", list.Items()[0])
	}
	if exec, _ := list.Items()[1].Get("exec"); exec.Str() != "exec-1" {
		t.Errorf("list[1].exec = %v", exec)
	}
}

func TestResolveParametersRejectsNonStringDotDollarValue(t *testing.T) {
	tmpl := EmptyObject().Set("bad.$", Int(1))
	if _, err := resolveParameters(tmpl, EmptyObject(), Value{}); err == nil {
		t.Fatal("expected an error when a .$ key's value is not a string expression")
	}
}

func TestApplyInputPathDefaultsToWholeDocument(t *testing.T) {
	raw := EmptyObject().Set("a", Int(1))
	out, err := applyInputPath(nil, raw, Value{})
	if err != nil || !DeepEqual(out, raw) {
		t.Errorf("applyInputPath(nil) = %v, %v", out, err)
	}

	path := "$"
	out, err = applyInputPath(&path, raw, Value{})
	if err != nil || !DeepEqual(out, raw) {
		t.Errorf(`applyInputPath("$") = %v, %v`, out, err)
	}
}

func TestApplyInputPathNarrows(t *testing.T) {
	raw := EmptyObject().Set("payload", EmptyObject().Set("x", Int(5)))
	path := "$.payload"
	out, err := applyInputPath(&path, raw, Value{})
	if err != nil {
		t.Fatalf("applyInputPath: %v", err)
	}
	if x, _ := out.Get("x"); x.Int64() != 5 {
		t.Errorf("narrowed input = %v", out)
	}
}

func TestApplyOutputPathFiltersResult(t *testing.T) {
	raw := EmptyObject().Set("keep", Int(1)).Set("drop", Int(2))
	path := "$.keep"
	out, err := applyOutputPath(&path, raw, Value{})
	if err != nil || out.Int64() != 1 {
		t.Errorf("applyOutputPath = %v, %v", out, err)
	}
}

func TestApplyResultPathDefaultsToReplaceWholeDocument(t *testing.T) {
	input := EmptyObject().Set("old", Int(1))
	result := EmptyObject().Set("new", Int(2))

	out, err := applyResultPath(nil, input, result)
	if err != nil || !DeepEqual(out, result) {
		t.Errorf("applyResultPath(nil) = %v, %v", out, err)
	}
}

func TestApplyResultPathNullDiscardsResult(t *testing.T) {
	input := EmptyObject().Set("old", Int(1))
	rp := &PathField{IsNull: true}

	out, err := applyResultPath(rp, input, EmptyObject().Set("new", Int(2)))
	if err != nil || !DeepEqual(out, input) {
		t.Errorf("applyResultPath(null) = %v, %v, want original input passed through", out, err)
	}
}

func TestApplyResultPathWritesAtPath(t *testing.T) {
	input := EmptyObject().Set("old", Int(1))
	rp := &PathField{Path: "$.result"}

	out, err := applyResultPath(rp, input, Int(42))
	if err != nil {
		t.Fatalf("applyResultPath: %v", err)
	}
	if v, _ := out.Get("result"); v.Int64() != 42 {
		t.Errorf("expected result written at $.result: %v", out)
	}
	if v, _ := out.Get("old"); v.Int64() != 1 {
		t.Errorf("expected original document preserved alongside the result: %v", out)
	}
}
