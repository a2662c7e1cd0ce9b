// Package asl implements the state-dispatcher and data-plumbing pipeline for
// the agent workflow language: loading a JSON state-machine definition,
// validating it, and stepping an execution through it.
package asl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates the concrete type held by a Value.
type Kind int

// The seven kinds a Value can hold. KindMissing never appears inside a
// document; it is the sentinel returned by a path read that did not resolve.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
	KindMissing
)

// member is one key/value pair of an Object, in insertion order.
type member struct {
	key string
	val Value
}

// Value is the dynamically typed JSON document the engine passes between
// states: null | bool | number | string | ordered object | array.
//
// Object key order is preserved through decode, mutation, and re-encode
// (invariant 3.2.1). Numbers keep their original source text so integers and
// floats round-trip exactly, while Float()/Int() give the numeric value for
// comparisons.
type Value struct {
	kind Kind
	b    bool
	num  string // canonical textual form, e.g. "3", "3.5", "-2e10"
	str  string
	arr  []Value
	obj  []member
}

// Null returns the JSON null value.
func Null() Value { return Value{kind: KindNull} }

// Missing reports the out-of-band marker for an unresolved path read.
// It is never part of a document; IsPresent(false) and IsNull(true) are the
// only comparators that observe it directly (§4.2).
func Missing() Value { return Value{kind: KindMissing} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int wraps an integer number.
func Int(i int64) Value { return Value{kind: KindNumber, num: strconv.FormatInt(i, 10)} }

// Float wraps a floating point number.
func Float(f float64) Value {
	return Value{kind: KindNumber, num: strconv.FormatFloat(f, 'g', -1, 64)}
}

// NumberFromString wraps a pre-formatted numeric literal verbatim, preserving
// whether the source was integral or fractional.
func NumberFromString(s string) Value { return Value{kind: KindNumber, num: s} }

// Array builds an array Value from its elements.
func Array(items ...Value) Value {
	return Value{kind: KindArray, arr: append([]Value(nil), items...)}
}

// EmptyObject returns an object with no members.
func EmptyObject() Value { return Value{kind: KindObject} }

// Kind reports the Value's discriminant.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) IsMissing() bool { return v.kind == KindMissing }
func (v Value) IsBool() bool    { return v.kind == KindBool }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }
func (v Value) IsString() bool  { return v.kind == KindString }
func (v Value) IsObject() bool  { return v.kind == KindObject }
func (v Value) IsArray() bool   { return v.kind == KindArray }

// BoolValue returns the boolean payload (false if not a bool).
func (v Value) BoolValue() bool { return v.b }

// Str returns the string payload ("" if not a string).
func (v Value) Str() string { return v.str }

// Float64 parses the numeric payload as a float64.
func (v Value) Float64() float64 {
	f, _ := strconv.ParseFloat(v.num, 64)
	return f
}

// IsInteger reports whether the number's canonical text has no fractional
// or exponent part.
func (v Value) IsInteger() bool {
	if v.kind != KindNumber {
		return false
	}
	for _, r := range v.num {
		if r == '.' || r == 'e' || r == 'E' {
			return false
		}
	}
	return true
}

// Int64 parses the numeric payload as an int64, truncating any fraction.
func (v Value) Int64() int64 {
	if i, err := strconv.ParseInt(v.num, 10, 64); err == nil {
		return i
	}
	return int64(v.Float64())
}

// NumberLiteral returns the number's original textual form.
func (v Value) NumberLiteral() string { return v.num }

// Items returns the array's elements (nil if not an array).
func (v Value) Items() []Value { return v.arr }

// Len returns the array length or object member count; 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

// Get returns the member named key and whether it was present. Absent keys
// return (Missing(), false), distinct from a member explicitly set to null.
func (v Value) Get(key string) (Value, bool) {
	for _, m := range v.obj {
		if m.key == key {
			return m.val, true
		}
	}
	return Missing(), false
}

// Keys returns the object's member names in insertion order.
func (v Value) Keys() []string {
	keys := make([]string, len(v.obj))
	for i, m := range v.obj {
		keys[i] = m.key
	}
	return keys
}

// Set returns a copy of v with key bound to val, preserving the position of
// an existing key or appending a new one. v is never mutated in place.
func (v Value) Set(key string, val Value) Value {
	if v.kind != KindObject {
		v = Value{kind: KindObject}
	}
	out := make([]member, len(v.obj))
	copy(out, v.obj)
	for i, m := range out {
		if m.key == key {
			out[i].val = val
			return Value{kind: KindObject, obj: out}
		}
	}
	out = append(out, member{key: key, val: val})
	return Value{kind: KindObject, obj: out}
}

// Delete returns a copy of v with key removed, if present.
func (v Value) Delete(key string) Value {
	if v.kind != KindObject {
		return v
	}
	out := make([]member, 0, len(v.obj))
	for _, m := range v.obj {
		if m.key != key {
			out = append(out, m)
		}
	}
	return Value{kind: KindObject, obj: out}
}

// WithItem returns a copy of v (an array) with element i replaced.
func (v Value) WithItem(i int, val Value) Value {
	out := make([]Value, len(v.arr))
	copy(out, v.arr)
	out[i] = val
	return Value{kind: KindArray, arr: out}
}

// Append returns a copy of v (an array) with val appended.
func (v Value) Append(val Value) Value {
	out := make([]Value, len(v.arr), len(v.arr)+1)
	copy(out, v.arr)
	out = append(out, val)
	return Value{kind: KindArray, arr: out}
}

// AsObject wraps a scalar as {"value": v}, per invariant 3.2.4 (state input
// must be object-typed). Objects and arrays pass through unchanged.
func (v Value) AsObject() Value {
	if v.kind == KindObject {
		return v
	}
	return EmptyObject().Set("value", v)
}

// DeepEqual reports structural equality, used by intrinsics such as
// States.ArrayContains and States.ArrayUnique.
func DeepEqual(a, b Value) bool {
	if a.kind != b.kind {
		// Integers and floats compare numerically even across representations.
		if a.kind == KindNumber && b.kind == KindNumber {
			return a.Float64() == b.Float64()
		}
		return false
	}
	switch a.kind {
	case KindNull, KindMissing:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.Float64() == b.Float64()
	case KindString:
		return a.str == b.str
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !DeepEqual(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for _, m := range a.obj {
			bv, ok := b.Get(m.key)
			if !ok || !DeepEqual(m.val, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// DeepCopy returns an independent copy of v. Values are immutable by
// convention (Set/Append/WithItem all return copies), but DeepCopy exists for
// the cases (Map/Parallel branch isolation, §5.3) where callers want an
// explicit, unaliased snapshot to hand to a sub-execution.
func DeepCopy(v Value) Value {
	switch v.kind {
	case KindArray:
		out := make([]Value, len(v.arr))
		for i, e := range v.arr {
			out[i] = DeepCopy(e)
		}
		return Value{kind: KindArray, arr: out}
	case KindObject:
		out := make([]member, len(v.obj))
		for i, m := range v.obj {
			out[i] = member{key: m.key, val: DeepCopy(m.val)}
		}
		return Value{kind: KindObject, obj: out}
	default:
		return v
	}
}

// MarshalJSON encodes the Value, preserving object key order and the
// original numeric literal text.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull, KindMissing:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		if v.num == "" {
			buf.WriteString("0")
		} else {
			buf.WriteString(v.num)
		}
	case KindString:
		enc, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(enc)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, m := range v.obj {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyEnc, err := json.Marshal(m.key)
			if err != nil {
				return err
			}
			buf.Write(keyEnc)
			buf.WriteByte(':')
			if err := encodeValue(buf, m.val); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("asl: unknown value kind %d", v.kind)
	}
	return nil
}

// UnmarshalJSON decodes into v, preserving object key order and numeric
// literal text using a streaming token decoder (json.Decoder.Token), since
// decoding through map[string]interface{} would discard both.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	val, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			v := Value{kind: KindObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("asl: expected object key, got %v", keyTok)
				}
				elem, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				v.obj = append(v.obj, member{key: key, val: elem})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return v, nil
		case '[':
			v := Value{kind: KindArray}
			for dec.More() {
				elem, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				v.arr = append(v.arr, elem)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return v, nil
		}
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return NumberFromString(t.String()), nil
	case string:
		return String(t), nil
	}
	return Value{}, fmt.Errorf("asl: unexpected token %v", tok)
}

// ParseJSON decodes a JSON document into a Value.
func ParseJSON(data []byte) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Value{}, err
	}
	return v, nil
}

// String renders the Value as compact JSON text (best-effort; used for
// logging and for the States.Format/JsonToString intrinsics).
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}
