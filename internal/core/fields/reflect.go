package fields

import (
	"fmt"
	"reflect"

	"github.com/zeusync/eventscope/internal/core/models"
)

var signalType = reflect.TypeOf((*models.Signal)(nil)).Elem()

// IsEventType reports whether a declared field type holds an event: *models.Event,
// a pointer to a type embedding it, or an interface satisfying models.Signal.
func IsEventType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	return t.Implements(signalType)
}

type level struct {
	t     reflect.Type
	index []int
}

// Reflect builds descriptors for the exported event typed fields of a struct type,
// including fields promoted from embedded structs. Promotion follows the Go
// selector rules: any field declared at a shallower depth shadows deeper fields of
// the same name whatever its type, and a name declared twice at the same depth is
// ambiguous and reported at no depth below it.
func Reflect(t reflect.Type) []Descriptor {
	if t == nil {
		return nil
	}
	root := t
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	shadowed := make(map[string]struct{})
	visited := map[reflect.Type]struct{}{t: {}}
	var out []Descriptor

	current := []level{{t: t}}
	for len(current) > 0 {
		var (
			next       []level
			declared   = make(map[string]int)
			candidates []Descriptor
		)
		for _, lv := range current {
			for i := 0; i < lv.t.NumField(); i++ {
				f := lv.t.Field(i)
				_, hidden := shadowed[f.Name]
				if !hidden {
					declared[f.Name]++
				}
				index := append(append([]int(nil), lv.index...), i)

				if f.Anonymous {
					if IsEventType(f.Type) || !f.IsExported() {
						// an embedded event makes the unit an event itself; unexported
						// embeddings are read-only through reflect
						continue
					}
					// fields of a shadowed embedding are still promoted
					et := f.Type
					if et.Kind() == reflect.Pointer {
						et = et.Elem()
					}
					if _, ok := visited[et]; !ok && et.Kind() == reflect.Struct {
						next = append(next, level{t: et, index: index})
					}
					continue
				}
				if hidden || !f.IsExported() || !IsEventType(f.Type) {
					continue
				}
				candidates = append(candidates, structField(root, f, index))
			}
		}
		for _, d := range candidates {
			if declared[d.Name] == 1 {
				out = append(out, d)
			}
		}
		// every name declared at this depth hides the same name deeper down
		for name := range declared {
			shadowed[name] = struct{}{}
		}
		// a type reached twice at one depth is walked twice, making its fields
		// ambiguous; a type seen at a shallower depth is not walked again
		for _, lv := range next {
			visited[lv.t] = struct{}{}
		}
		current = next
	}
	return out
}

func structField(owner reflect.Type, f reflect.StructField, index []int) Descriptor {
	return Descriptor{
		Name:     f.Name,
		Declared: f.Type,
		Get: func(unit any) (*models.Event, bool) {
			if reflect.TypeOf(unit) != owner {
				return nil, false
			}
			v, ok := fieldByIndex(reflect.ValueOf(unit), index, false)
			if !ok {
				// nil embedded pointer: the field exists but holds nothing
				return nil, true
			}
			return signalValue(v), true
		},
		Set: func(unit any, event *models.Event) error {
			if reflect.TypeOf(unit) != owner {
				return fmt.Errorf("%w: %s", ErrFieldNotFound, f.Name)
			}
			rv := reflect.ValueOf(unit)
			if rv.Kind() != reflect.Pointer || rv.IsNil() {
				return ErrNotAddressable
			}
			v, ok := fieldByIndex(rv, index, true)
			if !ok || !v.CanSet() {
				return ErrNotAddressable
			}
			if event == nil {
				v.Set(reflect.Zero(v.Type()))
				return nil
			}
			ev := reflect.ValueOf(event)
			if !ev.Type().AssignableTo(v.Type()) {
				return fmt.Errorf("%w: %s is %s", ErrNotAssignable, f.Name, v.Type())
			}
			v.Set(ev)
			return nil
		},
	}
}

// fieldByIndex walks an index path through embedded pointers. With alloc false a
// nil embedded pointer ends the walk unsuccessfully.
func fieldByIndex(v reflect.Value, index []int, alloc bool) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !alloc || !v.CanSet() {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

func signalValue(v reflect.Value) *models.Event {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		// a typed nil pointer inside the interface has no Base to promote
		if e := v.Elem(); e.Kind() == reflect.Pointer && e.IsNil() {
			return nil
		}
	}
	s, ok := v.Interface().(models.Signal)
	if !ok {
		return nil
	}
	return s.Base()
}
