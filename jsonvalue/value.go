// Package jsonvalue implements the JSON value model shared by the emulator.
//
// A value is one of nil, bool, json.Number, string, *Array or *Object. Objects
// keep their keys in insertion order so a request payload can be written back
// out exactly the way the caller sent it, which API Gateway does for
// $input.json('$').
package jsonvalue

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Object is a JSON object that remembers key insertion order.
type Object struct {
	keys   []string
	values map[string]interface{}
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{values: map[string]interface{}{}}
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns a copy of the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	return keys
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (interface{}, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Set stores v under key. An existing key keeps its position.
func (o *Object) Set(key string, v interface{}) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Delete removes key and returns the value it held.
func (o *Object) Delete(key string) (interface{}, bool) {
	v, ok := o.values[key]
	if !ok {
		return nil, false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Values returns the values in key order.
func (o *Object) Values() []interface{} {
	if o == nil {
		return nil
	}
	values := make([]interface{}, 0, len(o.keys))
	for _, k := range o.keys {
		values = append(values, o.values[k])
	}
	return values
}

// MarshalJSON writes the object with its keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	s, err := Stringify(o)
	return []byte(s), err
}

// String returns the compact JSON form.
func (o *Object) String() string {
	s, _ := Stringify(o)
	return s
}

// Valuer is implemented by types that serialize as another value, usually
// an *Object built on demand.
type Valuer interface {
	JSONValue() interface{}
}

// Array is a mutable JSON array.
type Array struct {
	Items []interface{}
}

// NewArray returns an array holding items.
func NewArray(items ...interface{}) *Array {
	if items == nil {
		items = []interface{}{}
	}
	return &Array{Items: items}
}

// Len returns the number of items.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Items)
}

// Get returns the item at index i.
func (a *Array) Get(i int) (interface{}, bool) {
	if a == nil || i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}

// Append adds v to the end of the array.
func (a *Array) Append(v interface{}) {
	a.Items = append(a.Items, v)
}

// MarshalJSON writes the array as compact JSON.
func (a *Array) MarshalJSON() ([]byte, error) {
	s, err := Stringify(a)
	return []byte(s), err
}

// String returns the compact JSON form.
func (a *Array) String() string {
	s, _ := Stringify(a)
	return s
}

// FromNative converts Go values (maps, slices, numbers) into the value model.
// Plain maps have no order so their keys are sorted.
func FromNative(v interface{}) interface{} {
	switch t := v.(type) {
	case nil, bool, string, json.Number, *Object, *Array:
		return t
	case map[string]interface{}:
		obj := NewObject()
		for _, k := range sortedKeys(t) {
			obj.Set(k, FromNative(t[k]))
		}
		return obj
	case map[string]string:
		obj := NewObject()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			obj.Set(k, t[k])
		}
		return obj
	case []interface{}:
		arr := &Array{Items: make([]interface{}, len(t))}
		for i, item := range t {
			arr.Items[i] = FromNative(item)
		}
		return arr
	case []string:
		arr := &Array{Items: make([]interface{}, len(t))}
		for i, item := range t {
			arr.Items[i] = item
		}
		return arr
	case int:
		return json.Number(strconv.FormatInt(int64(t), 10))
	case int32:
		return json.Number(strconv.FormatInt(int64(t), 10))
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	case float32:
		return json.Number(FormatFloat(float64(t)))
	case float64:
		return json.Number(FormatFloat(t))
	}
	return v
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
