// Package jsondoc is an immutable JSON document tree.
//
// A Value is one of null, bool, number, string, array or object. Objects keep
// member order as parsed or built. All updates return a new Value and leave the
// receiver untouched, so a Value can be shared freely between goroutines.
package jsondoc

import (
	"encoding/json"
	"strconv"
)

// Kind is the JSON type tag of a Value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a JSON document node. The zero Value is null.
type Value struct {
	kind    Kind
	b       bool
	s       string // string contents, or the literal of a number
	items   []Value
	members []Member
}

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

func NullValue() Value { return Value{} }

func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

func StringValue(s string) Value { return Value{kind: String, s: s} }

// NumberValue keeps the literal as written.
func NumberValue(n json.Number) Value { return Value{kind: Number, s: n.String()} }

func IntValue(i int64) Value { return Value{kind: Number, s: strconv.FormatInt(i, 10)} }

// ArrayOf builds an array from a copy of items.
func ArrayOf(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: Array, items: out}
}

// ObjectOf builds an object. A repeated key replaces the earlier value in place.
func ObjectOf(members ...Member) Value {
	v := Value{kind: Object, members: make([]Member, 0, len(members))}
	for _, m := range members {
		if i := v.indexOf(m.Key); i >= 0 {
			v.members[i].Value = m.Value
			continue
		}
		v.members = append(v.members, m)
	}
	return v
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == Null }

func (v Value) IsObject() bool { return v.kind == Object }

// AsString returns the contents of a string value.
func (v Value) AsString() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.s, true
}

func (v Value) AsNumber() (json.Number, bool) {
	if v.kind != Number {
		return "", false
	}
	return json.Number(v.s), true
}

func (v Value) AsFloat() (float64, bool) {
	if v.kind != Number {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	return f, err == nil
}

// Len is the number of array items or object members, zero otherwise.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.items)
	case Object:
		return len(v.members)
	}
	return 0
}

// Items returns a copy of the array items.
func (v Value) Items() []Value {
	if v.kind != Array {
		return nil
	}
	out := make([]Value, len(v.items))
	copy(out, v.items)
	return out
}

func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, len(v.members))
	for i, m := range v.members {
		keys[i] = m.Key
	}
	return keys
}

// Get looks up an object member.
func (v Value) Get(key string) (Value, bool) {
	if i := v.indexOf(key); i >= 0 {
		return v.members[i].Value, true
	}
	return Value{}, false
}

// Set returns a copy of the object with key bound to val. Existing keys keep
// their position; new keys are appended. Non-objects are returned unchanged.
func (v Value) Set(key string, val Value) Value {
	if v.kind != Object {
		return v
	}
	out := Value{kind: Object, members: make([]Member, len(v.members), len(v.members)+1)}
	copy(out.members, v.members)
	if i := v.indexOf(key); i >= 0 {
		out.members[i].Value = val
		return out
	}
	out.members = append(out.members, Member{Key: key, Value: val})
	return out
}

func (v Value) indexOf(key string) int {
	if v.kind != Object {
		return -1
	}
	for i, m := range v.members {
		if m.Key == key {
			return i
		}
	}
	return -1
}

// Equal reports deep equality. Numbers compare by literal, object members by
// key and order.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Null:
		return true
	case Bool:
		return a.b == b.b
	case Number, String:
		return a.s == b.s
	case Array:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(a.members) != len(b.members) {
			return false
		}
		for i := range a.members {
			if a.members[i].Key != b.members[i].Key || !Equal(a.members[i].Value, b.members[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// Equal makes Value comparable with go-cmp.
func (v Value) Equal(other Value) bool { return Equal(v, other) }

// Interface converts the tree to plain Go values: map[string]any, []any,
// string, bool, nil, int for integral numbers and float64 otherwise. A
// literal outside the float64 range stays a json.Number.
func (v Value) Interface() any {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		if i, err := strconv.ParseInt(v.s, 10, 0); err == nil {
			return int(i)
		}
		if f, err := strconv.ParseFloat(v.s, 64); err == nil {
			return f
		}
		return json.Number(v.s)
	case String:
		return v.s
	case Array:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.members))
		for _, m := range v.members {
			out[m.Key] = m.Value.Interface()
		}
		return out
	}
	return nil
}
