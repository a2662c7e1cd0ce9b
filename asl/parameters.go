package asl

import "strings"

// resolveParameters builds the Parameters template against input and
// context (§4.1 step 2, component C). Keys ending in ".$" are stripped of
// that suffix and their string value is evaluated as a path or intrinsic
// expression (§3.1, §4.12); every other key is copied as a literal,
// recursing into nested objects and arrays so literals and expressions can
// be mixed at any depth.
func resolveParameters(tmpl, input, context Value) (Value, error) {
	return resolveTemplate(tmpl, input, context)
}

func resolveTemplate(tmpl, input, context Value) (Value, error) {
	switch tmpl.Kind() {
	case KindObject:
		out := EmptyObject()
		for _, key := range tmpl.Keys() {
			val, _ := tmpl.Get(key)
			if strings.HasSuffix(key, ".$") {
				if !val.IsString() {
					return Value{}, &EngineError{Code: CodeParameterPathFailure, Message: "value for " + key + " must be a string expression"}
				}
				resolved, err := evalExpression(val.Str(), input, context)
				if err != nil {
					return Value{}, err
				}
				out = out.Set(strings.TrimSuffix(key, ".$"), resolved)
				continue
			}
			resolved, err := resolveTemplate(val, input, context)
			if err != nil {
				return Value{}, err
			}
			out = out.Set(key, resolved)
		}
		return out, nil
	case KindArray:
		items := tmpl.Items()
		out := make([]Value, len(items))
		for i, it := range items {
			resolved, err := resolveTemplate(it, input, context)
			if err != nil {
				return Value{}, err
			}
			out[i] = resolved
		}
		return Array(out...), nil
	default:
		return tmpl, nil
	}
}

// resolveResultSelector applies a ResultSelector template (§4.1 step 4)
// against result, available at "$" (the Task state passes the effective
// input with the agent result's keys overlaid), with the shared context
// object available at "$$".
func resolveResultSelector(tmpl, result, context Value) (Value, error) {
	return resolveTemplate(tmpl, result, context)
}

// applyInputPath extracts the effective input to a state from its raw input
// document per InputPath (§4.1 step 1). A nil or "$" path means "use the
// whole document".
func applyInputPath(inputPath *string, raw, context Value) (Value, error) {
	if inputPath == nil || *inputPath == "" || *inputPath == "$" {
		return raw, nil
	}
	return mustPathRead(*inputPath, raw, context)
}

// applyOutputPath filters a state's effective output per OutputPath (§4.1
// step 5). A nil or "$" path passes everything through unchanged.
func applyOutputPath(outputPath *string, raw, context Value) (Value, error) {
	if outputPath == nil || *outputPath == "" || *outputPath == "$" {
		return raw, nil
	}
	return mustPathRead(*outputPath, raw, context)
}

// applyResultPath combines a state's original input document with its
// result per ResultPath (§4.1 step 7): omitted defaults to "$" (replace the
// whole document); an explicit JSON null discards the result and passes the
// original input through unchanged; any other string is a write path.
func applyResultPath(rp *PathField, originalInput, result Value) (Value, error) {
	if rp == nil {
		return pathWrite("$", originalInput, result)
	}
	if rp.IsNull {
		return originalInput, nil
	}
	return pathWrite(rp.Path, originalInput, result)
}
