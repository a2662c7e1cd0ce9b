package asl

import (
	"crypto/md5"  //nolint:gosec // States.Hash exposes md5 as a selectable digest, not for security use
	"crypto/sha1" //nolint:gosec // same as above
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// intrinsicCall is a parsed States.* invocation: a name plus a list of
// argument expressions, each itself either a path, a nested intrinsic call,
// or a string literal (§4.12).
type intrinsicCall struct {
	name string
	args []string
}

// isIntrinsic reports whether a `.$` value is an intrinsic call rather than
// a bare path expression.
func isIntrinsic(expr string) bool {
	return strings.HasPrefix(strings.TrimSpace(expr), "States.")
}

// evalExpression evaluates a `.$`-flagged value: a path read, or an
// intrinsic call which may itself take paths or nested calls as arguments.
func evalExpression(expr string, input, context Value) (Value, error) {
	expr = strings.TrimSpace(expr)
	if isIntrinsic(expr) {
		return evalIntrinsicExpr(expr, input, context)
	}
	return mustPathRead(expr, input, context)
}

func evalIntrinsicExpr(expr string, input, context Value) (Value, error) {
	call, err := parseIntrinsicCall(expr)
	if err != nil {
		return Value{}, err
	}
	args := make([]Value, len(call.args))
	for i, a := range call.args {
		v, err := evalArg(a, input, context)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	return callIntrinsic(call.name, args)
}

// evalArg evaluates one already-split argument token: a string literal
// ('...'), a nested States.* call, or a path expression.
func evalArg(tok string, input, context Value) (Value, error) {
	tok = strings.TrimSpace(tok)
	if len(tok) >= 2 && tok[0] == '\'' && tok[len(tok)-1] == '\'' {
		return String(unescapeLiteral(tok[1 : len(tok)-1])), nil
	}
	if isIntrinsic(tok) {
		return evalIntrinsicExpr(tok, input, context)
	}
	if strings.HasPrefix(tok, "$") {
		return mustPathRead(tok, input, context)
	}
	// Bare literal number/bool/null inside an intrinsic argument list.
	switch tok {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	case "null":
		return Null(), nil
	}
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		return NumberFromString(tok), nil
	}
	return Value{}, &EngineError{Code: CodeIntrinsicFailure, Message: "cannot evaluate argument: " + tok}
}

func unescapeLiteral(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// parseIntrinsicCall parses "States.Name(arg1, arg2, ...)" into its name and
// raw (unevaluated) argument tokens, honoring nested parens and quoted
// string literals so commas inside them don't split arguments.
func parseIntrinsicCall(expr string) (intrinsicCall, error) {
	open := strings.IndexByte(expr, '(')
	if open < 0 || !strings.HasSuffix(expr, ")") {
		return intrinsicCall{}, &EngineError{Code: CodeIntrinsicFailure, Message: "malformed intrinsic call: " + expr}
	}
	name := expr[:open]
	inner := expr[open+1 : len(expr)-1]
	args := splitArgs(inner)
	return intrinsicCall{name: name, args: args}, nil
}

func splitArgs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var args []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' && (i == 0 || s[i-1] != '\\'):
			inQuote = !inQuote
		case inQuote:
			// skip
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			args = append(args, s[start:i])
			start = i + 1
		}
	}
	args = append(args, s[start:])
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}
	return args
}

// callIntrinsic dispatches to the named States.* function (§4.12).
func callIntrinsic(name string, args []Value) (Value, error) {
	fail := func(msg string) (Value, error) {
		return Value{}, &EngineError{Code: CodeIntrinsicFailure, Message: name + ": " + msg}
	}

	switch name {
	case "States.Format":
		if len(args) == 0 {
			return fail("requires at least a format string")
		}
		tmpl := args[0].Str()
		rest := args[1:]
		var b strings.Builder
		ai := 0
		for i := 0; i < len(tmpl); i++ {
			if tmpl[i] == '{' && i+1 < len(tmpl) && tmpl[i+1] == '}' {
				if ai >= len(rest) {
					return fail("not enough arguments for format placeholders")
				}
				b.WriteString(scalarString(rest[ai]))
				ai++
				i++
				continue
			}
			b.WriteByte(tmpl[i])
		}
		return String(b.String()), nil

	case "States.StringToJson":
		if len(args) != 1 {
			return fail("requires exactly one argument")
		}
		v, err := ParseJSON([]byte(args[0].Str()))
		if err != nil {
			return fail("invalid JSON string: " + err.Error())
		}
		return v, nil

	case "States.JsonToString":
		if len(args) != 1 {
			return fail("requires exactly one argument")
		}
		return String(args[0].String()), nil

	case "States.StringSplit":
		if len(args) != 2 {
			return fail("requires (string, separator)")
		}
		parts := strings.Split(args[0].Str(), args[1].Str())
		out := make([]Value, 0, len(parts))
		for _, p := range parts {
			if p != "" {
				out = append(out, String(p))
			}
		}
		return Array(out...), nil

	case "States.Array":
		return Array(args...), nil

	case "States.ArrayPartition":
		if len(args) != 2 {
			return fail("requires (array, chunkSize)")
		}
		n := int(args[1].Int64())
		if n <= 0 {
			return fail("chunk size must be positive")
		}
		items := args[0].Items()
		var out []Value
		for i := 0; i < len(items); i += n {
			end := i + n
			if end > len(items) {
				end = len(items)
			}
			out = append(out, Array(items[i:end]...))
		}
		return Array(out...), nil

	case "States.ArrayContains":
		if len(args) != 2 {
			return fail("requires (array, value)")
		}
		for _, it := range args[0].Items() {
			if DeepEqual(it, args[1]) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil

	case "States.ArrayRange":
		if len(args) < 2 || len(args) > 3 {
			return fail("requires (lo, hi[, step])")
		}
		lo, hi := args[0].Int64(), args[1].Int64()
		step := int64(1)
		if len(args) == 3 {
			step = args[2].Int64()
		}
		if step == 0 {
			return fail("step must not be zero")
		}
		var out []Value
		if step > 0 {
			for i := lo; i <= hi; i += step {
				out = append(out, Int(i))
			}
		} else {
			for i := lo; i >= hi; i += step {
				out = append(out, Int(i))
			}
		}
		return Array(out...), nil

	case "States.ArrayGetItem":
		if len(args) != 2 {
			return fail("requires (array, index)")
		}
		idx := int(args[1].Int64())
		items := args[0].Items()
		if idx < 0 || idx >= len(items) {
			return fail("index out of range")
		}
		return items[idx], nil

	case "States.ArrayLength":
		if len(args) != 1 {
			return fail("requires exactly one argument")
		}
		return Int(int64(len(args[0].Items()))), nil

	case "States.ArrayUnique":
		if len(args) != 1 {
			return fail("requires exactly one argument")
		}
		var out []Value
		for _, it := range args[0].Items() {
			dup := false
			for _, seen := range out {
				if DeepEqual(seen, it) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, it)
			}
		}
		return Array(out...), nil

	case "States.MathAdd":
		return mathFold(args, func(a, b float64) float64 { return a + b }, fail)
	case "States.MathSubtract":
		if len(args) != 2 {
			return fail("requires exactly two arguments")
		}
		return Float(args[0].Float64() - args[1].Float64()), nil
	case "States.MathMultiply":
		return mathFold(args, func(a, b float64) float64 { return a * b }, fail)
	case "States.MathDivide":
		if len(args) != 2 {
			return fail("requires exactly two arguments")
		}
		if args[1].Float64() == 0 {
			return fail("division by zero")
		}
		return Float(args[0].Float64() / args[1].Float64()), nil

	case "States.MathRandom":
		if len(args) < 2 || len(args) > 3 {
			return fail("requires (lo, hi[, seed])")
		}
		lo, hi := args[0].Int64(), args[1].Int64()
		if hi < lo {
			return fail("hi must be >= lo")
		}
		var rng *rand.Rand
		if len(args) == 3 {
			rng = rand.New(rand.NewSource(args[2].Int64())) //nolint:gosec // deterministic by design when seeded
		} else {
			rng = rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // not used for security
		}
		return Int(lo + rng.Int63n(hi-lo+1)), nil

	case "States.Hash":
		if len(args) != 2 {
			return fail("requires (string, algorithm)")
		}
		data := []byte(args[0].Str())
		var sum []byte
		switch args[1].Str() {
		case "sha256":
			s := sha256.Sum256(data)
			sum = s[:]
		case "sha1":
			s := sha1.Sum(data) //nolint:gosec // algorithm selectable by the workflow author, not our choice
			sum = s[:]
		case "md5":
			s := md5.Sum(data) //nolint:gosec // same as above
			sum = s[:]
		default:
			return fail("unsupported algorithm: " + args[1].Str())
		}
		return String(hex.EncodeToString(sum)), nil

	case "States.Base64Encode":
		if len(args) != 1 {
			return fail("requires exactly one argument")
		}
		return String(base64.StdEncoding.EncodeToString([]byte(args[0].Str()))), nil

	case "States.Base64Decode":
		if len(args) != 1 {
			return fail("requires exactly one argument")
		}
		b, err := base64.StdEncoding.DecodeString(args[0].Str())
		if err != nil {
			return fail("invalid base64 input")
		}
		return String(string(b)), nil

	case "States.UUID":
		if len(args) != 0 {
			return fail("takes no arguments")
		}
		return String(uuid.New().String()), nil

	case "States.JsonMerge":
		if len(args) != 2 {
			return fail("requires (a, b)")
		}
		return jsonMerge(args[0], args[1]), nil

	case "States.IsString":
		return Bool(len(args) == 1 && args[0].IsString()), nil
	case "States.IsNumber":
		return Bool(len(args) == 1 && args[0].IsNumber()), nil
	case "States.IsBoolean":
		return Bool(len(args) == 1 && args[0].IsBool()), nil
	case "States.IsNull":
		return Bool(len(args) == 1 && args[0].IsNull()), nil
	case "States.IsArray":
		return Bool(len(args) == 1 && args[0].IsArray()), nil
	case "States.IsObject":
		return Bool(len(args) == 1 && args[0].IsObject()), nil

	case "States.Coalesce":
		for _, a := range args {
			if !a.IsMissing() && !a.IsNull() {
				return a, nil
			}
		}
		return Null(), nil

	default:
		return fail("unknown intrinsic function")
	}
}

func mathFold(args []Value, op func(a, b float64) float64, fail func(string) (Value, error)) (Value, error) {
	if len(args) < 2 {
		return fail("requires at least two arguments")
	}
	acc := args[0].Float64()
	for _, a := range args[1:] {
		acc = op(acc, a.Float64())
	}
	if isAllIntegers(args) {
		return Int(int64(acc)), nil
	}
	return Float(acc), nil
}

func isAllIntegers(args []Value) bool {
	for _, a := range args {
		if !a.IsInteger() {
			return false
		}
	}
	return true
}

func scalarString(v Value) string {
	switch v.Kind() {
	case KindString:
		return v.Str()
	case KindNumber:
		return v.NumberLiteral()
	case KindBool:
		return strconv.FormatBool(v.BoolValue())
	case KindNull, KindMissing:
		return "null"
	default:
		return v.String()
	}
}

// jsonMerge shallow-merges b over a; b's keys win, order follows a then any
// new keys from b in b's order (States.JsonMerge, §4.12).
func jsonMerge(a, b Value) Value {
	if !a.IsObject() || !b.IsObject() {
		return b
	}
	out := a
	for _, k := range sortedKeepOrder(b.Keys()) {
		v, _ := b.Get(k)
		out = out.Set(k, v)
	}
	return out
}

// sortedKeepOrder is an identity helper retained for readability at call
// sites; States.JsonMerge applies b's keys in b's own insertion order.
func sortedKeepOrder(keys []string) []string { return keys }
