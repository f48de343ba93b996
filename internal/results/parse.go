package results

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/tidwall/gjson"
)

const (
	keyPassed      = "passed"
	keyTestResults = "test_results"
)

// FromJSON detects the shape of a JSON results payload. Object values keep
// their document order, integer-like keys included. Text that is not valid
// JSON carries no results.
func FromJSON(data []byte) Raw {
	if !gjson.ValidBytes(data) {
		return Empty()
	}
	return fromResult(gjson.ParseBytes(data))
}

func fromResult(v gjson.Result) Raw {
	if !truthy(v) {
		return Empty()
	}

	switch {
	case v.IsArray():
		return Raw{kind: KindSequence, values: truthsOf(v.Array())}
	case v.IsObject():
		return fromObject(objectFields(v))
	default:
		return Raw{kind: KindScalar, values: []bool{true}}
	}
}

func fromObject(fields []field) Raw {
	if f, ok := lookup(fields, keyPassed); ok {
		return PassedFlag(truthy(f))
	}
	if f, ok := lookup(fields, keyTestResults); ok && f.IsArray() {
		return Raw{kind: KindTestResults, values: truthsOf(f.Array())}
	}

	values := make([]bool, len(fields))
	for i, f := range fields {
		values[i] = truthy(f.value)
	}
	return Raw{kind: KindObject, values: values}
}

type field struct {
	key   string
	value gjson.Result
}

// objectFields lists the members of a JSON object in document order. A
// repeated key keeps its first position and its last value.
func objectFields(v gjson.Result) []field {
	var fields []field
	index := make(map[string]int)

	v.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if i, ok := index[k]; ok {
			fields[i].value = value
			return true
		}
		index[k] = len(fields)
		fields = append(fields, field{key: k, value: value})
		return true
	})
	return fields
}

func lookup(fields []field, key string) (gjson.Result, bool) {
	for _, f := range fields {
		if f.key == key {
			return f.value, true
		}
	}
	return gjson.Result{}, false
}

func truthsOf(items []gjson.Result) []bool {
	out := make([]bool, len(items))
	for i, item := range items {
		out[i] = truthy(item)
	}
	return out
}

// truthy applies JSON truthiness: null, false, 0 and "" are false; arrays and
// objects are true even when empty.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return v.Num != 0 && !math.IsNaN(v.Num)
	case gjson.String:
		return v.Str != ""
	default:
		return true
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Decoded Go values
// ────────────────────────────────────────────────────────────────────────────

var (
	rawType        = reflect.TypeOf(Raw{})
	rawMessageType = reflect.TypeOf(json.RawMessage(nil))
)

// FromValue detects the shape of an already-decoded value such as the result
// of json.Unmarshal into an interface{}. Go maps have no order, so object
// values are taken in sorted key order. Structs are encoded with
// encoding/json first so their json tags and field order apply.
func FromValue(v any) Raw {
	switch t := v.(type) {
	case nil:
		return Empty()
	case Raw:
		return t
	case *Raw:
		if t == nil {
			return Empty()
		}
		return *t
	case json.RawMessage:
		return FromJSON(t)
	case gjson.Result:
		return fromResult(t)
	}

	rv := deref(reflect.ValueOf(v))
	if !truthyValue(rv) {
		return Empty()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return Raw{kind: KindSequence, values: truthsOfValue(rv)}
	case reflect.Map:
		return fromMap(rv)
	case reflect.Struct:
		data, err := json.Marshal(rv.Interface())
		if err != nil {
			return Raw{kind: KindScalar, values: []bool{true}}
		}
		return FromJSON(data)
	default:
		return Raw{kind: KindScalar, values: []bool{true}}
	}
}

func fromMap(rv reflect.Value) Raw {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})

	if rv.Type().Key().Kind() == reflect.String {
		if passed := rv.MapIndex(reflect.ValueOf(keyPassed).Convert(rv.Type().Key())); passed.IsValid() {
			return PassedFlag(truthyValue(passed))
		}
		if tr := rv.MapIndex(reflect.ValueOf(keyTestResults).Convert(rv.Type().Key())); tr.IsValid() {
			inner := deref(tr)
			switch {
			case inner.IsValid() && inner.Type() == rawMessageType:
				if nested := FromJSON(inner.Bytes()); nested.kind == KindSequence {
					return Raw{kind: KindTestResults, values: nested.values}
				}
			case inner.Kind() == reflect.Array, inner.Kind() == reflect.Slice && !inner.IsNil():
				return Raw{kind: KindTestResults, values: truthsOfValue(inner)}
			}
		}
	}

	values := make([]bool, len(keys))
	for i, k := range keys {
		values[i] = truthyValue(rv.MapIndex(k))
	}
	return Raw{kind: KindObject, values: values}
}

func truthsOfValue(rv reflect.Value) []bool {
	if rv.Type() == rawMessageType {
		return FromJSON(rv.Bytes()).values
	}
	out := make([]bool, rv.Len())
	for i := range out {
		out[i] = truthyValue(rv.Index(i))
	}
	return out
}

// deref follows non-nil pointers and interfaces.
func deref(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return rv
		}
		rv = rv.Elem()
	}
	return rv
}

func truthyValue(rv reflect.Value) bool {
	rv = deref(rv)
	if !rv.IsValid() {
		return false
	}

	switch rv.Type() {
	case rawType:
		return rv.Interface().(Raw).kind != KindEmpty
	case rawMessageType:
		return FromJSON(rv.Bytes()).kind != KindEmpty
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Complex64, reflect.Complex128:
		return rv.Complex() != 0
	case reflect.String:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return !rv.IsNil()
	default:
		return true
	}
}
