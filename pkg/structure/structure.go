// Package structure contains type-related operations shared by the wire
// layers: converting user values into plain documents honoring `mango` tags,
// and rendering values as canonical JSON with a stable key order.
package structure

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-reflect"
)

var (
	// ErrNilObj may be returned by [ToMap] when a nil value is passed as
	// argument.
	ErrNilObj = errors.New("nil object")
)

// ErrNonObject is returned by [ToMap] when a value that is neither a struct
// nor a map is passed as argument.
type ErrNonObject struct {
	Type reflect.Type
}

func (e ErrNonObject) Error() string {
	return "cannot treat " + e.Type.String() + " as an object"
}

// TagName is the struct tag read for wire field names.
const TagName = "mango"

// ToMap converts a struct or map into a plain document. Struct fields use
// the `mango` tag value as key when present; untagged exported fields keep
// their Go name. Tag options ",omitempty" skips nil values and ",omitzero"
// skips uninitialized fields. Nested structs, maps and slices are converted
// recursively.
func ToMap(obj any) (map[string]any, error) {
	if obj == nil {
		return nil, ErrNilObj
	}
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, ErrNilObj
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		res := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			res[iter.Key().String()] = convert(reflect.ValueOf(iter.Value().Interface()))
		}
		return res, nil
	case reflect.Struct:
		res := make(map[string]any)
		if err := structFields(v, res); err != nil {
			return nil, err
		}
		return res, nil
	default:
		return nil, ErrNonObject{Type: v.Type()}
	}
}

func structFields(v reflect.Value, res map[string]any) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" && !f.Anonymous {
			continue
		}
		fv := v.Field(i)
		if f.Anonymous && f.Tag.Get(TagName) == "" {
			// embedded carrier types flatten into the document
			for fv.Kind() == reflect.Ptr && !fv.IsNil() {
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				if err := structFields(fv, res); err != nil {
					return err
				}
				continue
			}
		}
		if f.PkgPath != "" {
			continue
		}
		name, opts, skip := fieldName(f)
		if skip {
			continue
		}
		if strings.Contains(opts, "omitempty") && isNilValue(fv) {
			continue
		}
		if strings.Contains(opts, "omitzero") && fv.IsZero() {
			continue
		}
		res[name] = convert(fv)
	}
	return nil
}

func fieldName(f reflect.StructField) (name, opts string, skip bool) {
	tag := f.Tag.Get(TagName)
	if tag == "-" {
		return "", "", true
	}
	name = f.Name
	if tag != "" {
		parts := strings.SplitN(tag, ",", 2)
		if parts[0] != "" {
			name = parts[0]
		}
		if len(parts) == 2 {
			opts = parts[1]
		}
	}
	return name, opts, false
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return v.IsNil()
	}
	return false
}

func convert(v reflect.Value) any {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.Kind() == reflect.Ptr && v.IsNil() {
			return nil
		}
		if v.Kind() == reflect.Interface && v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		if t, ok := v.Interface().(time.Time); ok {
			return t
		}
		res := make(map[string]any)
		_ = structFields(v, res)
		return res
	case reflect.Map:
		res := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			res[iter.Key().String()] = convert(reflect.ValueOf(iter.Value().Interface()))
		}
		return res
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		res := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			res[i] = convert(v.Index(i))
		}
		return res
	default:
		if !v.IsValid() {
			return nil
		}
		return v.Interface()
	}
}

// Marshal renders v as canonical JSON: object keys are emitted in lexical
// order and structs are converted through [ToMap] first. Scalar encoding is
// delegated to encoding/json, whose output is stable for a given value.
func Marshal(v any) ([]byte, error) {
	c, err := canonicalize(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(c)
}

func canonicalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		time.Time, json.RawMessage:
		return v, nil
	case map[string]any:
		pairs := make(object, 0, len(t))
		for k, val := range t {
			c, err := canonicalize(val)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, keyValuePair{key: k, val: c})
		}
		return pairs, nil
	case []any:
		res := make([]any, len(t))
		for n, val := range t {
			c, err := canonicalize(val)
			if err != nil {
				return nil, err
			}
			res[n] = c
		}
		return res, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, nil
		}
		return canonicalize(rv.Elem().Interface())
	case reflect.Struct, reflect.Map:
		m, err := ToMap(v)
		if err != nil {
			return nil, err
		}
		return canonicalize(m)
	case reflect.Slice, reflect.Array:
		res := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			c, err := canonicalize(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			res[i] = c
		}
		return res, nil
	}
	return v, nil
}

type keyValuePair struct {
	key string
	val any
}

type object []keyValuePair

// MarshalJSON writes the pairs in lexical key order.
func (o object) MarshalJSON() ([]byte, error) {
	buf := bytes.NewBuffer(append(make([]byte, 0, 256), '{'))

	slices.SortFunc(o, func(a, b keyValuePair) int {
		return strings.Compare(a.key, b.key)
	})

	for n, item := range o {
		b, _ := json.Marshal(item.key)
		_, _ = buf.Write(b)
		_ = buf.WriteByte(':')
		v, err := json.Marshal(item.val)
		if err != nil {
			return nil, err
		}
		_, _ = buf.Write(v)

		if n < len(o)-1 {
			_ = buf.WriteByte(',')
		}
	}
	_ = buf.WriteByte('}')

	return buf.Bytes(), nil
}
