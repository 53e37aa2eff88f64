package record

import (
	"fmt"
	"math"
	"reflect"
	"time"
)

// TimeFormat is the layout of stored timestamps.
//
// The fixed width keeps string order equal to time order.
const TimeFormat = "2006-01-02T15:04:05.000000Z07:00"

// FromMap converts the given go map into a Record.
func FromMap(data map[string]any) (Record, error) {
	out := make(Record, len(data))
	for k, v := range data {
		val, err := ValueOf(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}

// ValueOf converts the given go value into a Value.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t.Clone(), nil
	case Record:
		return Map(t.Clone()), nil
	case *Sentinel:
		return Tag(t), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return uintValue(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return uintValue(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case time.Time:
		return String(t.UTC().Format(TimeFormat)), nil
	case map[string]any:
		r, err := FromMap(t)
		if err != nil {
			return Value{}, err
		}
		return Map(r), nil
	case []any:
		list := make([]Value, len(t))
		for i, e := range t {
			val, err := ValueOf(e)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			list[i] = val
		}
		return List(list...), nil
	}
	return reflectValue(reflect.ValueOf(v))
}

func reflectValue(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return ValueOf(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return List(), nil
		}
		list := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			val, err := ValueOf(rv.Index(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			list[i] = val
		}
		return List(list...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		out := make(Record, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			val, err := ValueOf(iter.Value().Interface())
			if err != nil {
				return Value{}, fmt.Errorf("field %s: %w", iter.Key().String(), err)
			}
			out[iter.Key().String()] = val
		}
		return Map(out), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uintValue(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %s", rv.Type())
	}
}

// uintValue returns an integer value or an error if n does not fit in an int64.
func uintValue(n uint64) (Value, error) {
	if n > math.MaxInt64 {
		return Value{}, fmt.Errorf("integer %d overflows int64", n)
	}
	return Int(int64(n)), nil
}
