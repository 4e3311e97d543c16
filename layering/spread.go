package layering

import "reflect"

// Spread overlays values ordered from strongest to weakest, one level deep.
//
// For structs, each exported field is taken whole from the strongest layer
// where it is non-zero, map-typed fields included. For top-level maps, keys
// are unioned with stronger layers winning. Any other kind resolves to the
// strongest non-zero layer. Nested values are shared, not copied.
func Spread[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}

	out := reflect.ValueOf(layers[len(layers)-1])
	for i := len(layers) - 2; i >= 0; i-- {
		out = spreadValue(reflect.ValueOf(layers[i]), out)
	}
	return asType[T](out)
}

func spreadValue(strong, weak reflect.Value) reflect.Value {
	if !strong.IsValid() || strong.IsZero() {
		return weak
	}
	if !weak.IsValid() || weak.Type() != strong.Type() {
		return strong
	}

	switch strong.Kind() {
	case reflect.Struct:
		out := reflect.New(strong.Type()).Elem()
		out.Set(weak)
		for i := 0; i < strong.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			if value := strong.Field(i); !value.IsZero() {
				field.Set(value)
			}
		}
		return out
	case reflect.Map:
		return unionMaps(strong, weak)
	default:
		return strong
	}
}

func unionMaps(strong, weak reflect.Value) reflect.Value {
	if weak.IsNil() || weak.Len() == 0 {
		return strong
	}
	out := reflect.MakeMapWithSize(strong.Type(), strong.Len()+weak.Len())
	for _, src := range []reflect.Value{weak, strong} {
		iter := src.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
	}
	return out
}
