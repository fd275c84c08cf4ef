package storemodel

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Equal compares attribute values by value. Nested instances compare with
// Instance.Equal; slices and maps compare element-wise.
func Equal(a, b any) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	switch av := a.(type) {
	case *Instance:
		bv, ok := b.(*Instance)
		return ok && av.Equal(bv)
	case []*Instance:
		bv, ok := b.([]*Instance)
		if !ok || len(av) != len(bv) {
			return false
		}
		for n := range av {
			if !Equal(av[n], bv[n]) {
				return false
			}
		}
		return true
	case map[string]*Instance:
		bv, ok := b.(map[string]*Instance)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, present := bv[k]
			if !present || !Equal(v, w) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for n := range av {
			if !Equal(av[n], bv[n]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, present := bv[k]
			if !present || !Equal(v, w) {
				return false
			}
		}
		return true
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}
	return reflect.DeepEqual(a, b)
}

// Hash returns a structural hash derived from the same attribute tuple Equal
// compares, so equal instances hash equally.
func (i *Instance) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(i.schema.name)
	for _, a := range i.schema.attrs {
		_, _ = d.WriteString("\x00" + a.name + "\x00")
		hashValue(d, i.values[a.name])
	}
	return d.Sum64()
}

func hashValue(d *xxhash.Digest, v any) {
	if isNil(v) {
		_, _ = d.WriteString("nil")
		return
	}
	var buf [8]byte
	switch val := v.(type) {
	case *Instance:
		binary.LittleEndian.PutUint64(buf[:], val.Hash())
		_, _ = d.Write(buf[:])
	case []*Instance:
		_, _ = d.WriteString("[")
		for _, c := range val {
			hashValue(d, c)
		}
		_, _ = d.WriteString("]")
	case map[string]*Instance:
		_, _ = d.WriteString("{")
		for _, k := range sortedKeys(val) {
			_, _ = d.WriteString(k + ":")
			hashValue(d, val[k])
		}
		_, _ = d.WriteString("}")
	case []any:
		_, _ = d.WriteString("[")
		for _, c := range val {
			hashValue(d, c)
			_, _ = d.WriteString(",")
		}
		_, _ = d.WriteString("]")
	case map[string]any:
		_, _ = d.WriteString("{")
		for _, k := range sortedKeys(val) {
			_, _ = d.WriteString(k + ":")
			hashValue(d, val[k])
			_, _ = d.WriteString(",")
		}
		_, _ = d.WriteString("}")
	case time.Time:
		_, _ = d.WriteString(val.UTC().Format(time.RFC3339Nano))
	default:
		b, err := getJSONDriver().Marshal(val)
		if err != nil {
			_, _ = fmt.Fprintf(d, "%#v", val)
			return
		}
		_, _ = d.Write(b)
	}
}

// IsBlank reports whether v is nil, false, whitespace-only text, an empty
// collection, or a blank instance. Values implementing Blank() bool decide
// for themselves.
func IsBlank(v any) bool {
	if isNil(v) {
		return true
	}
	switch val := v.(type) {
	case interface{ Blank() bool }:
		return val.Blank()
	case string:
		return strings.TrimSpace(val) == ""
	case bool:
		return !val
	}
	return isEmptyCollection(v)
}

// isEmpty reports nil, empty text and empty collections; unlike IsBlank it
// keeps false and zero.
func isEmpty(v any) bool {
	if isNil(v) {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return isEmptyCollection(v)
}

func isEmptyCollection(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}
