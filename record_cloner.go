package indexedtable

import (
	"sync"

	"github.com/goccy/go-reflect"
)

// RecordCloner is an interface for cloning records.
// The table clones records on the way in and on the way out so that the
// stored copy can only be reached through the table's own operations.
// The CloneRecord method should return a deep copy of the input record.
type RecordCloner[R any] interface {
	CloneRecord(R) R
}

// RecordClonerFunc is a function type that implements the RecordCloner interface.
type RecordClonerFunc[R any] func(R) R

// CloneRecord calls the function.
func (f RecordClonerFunc[R]) CloneRecord(r R) R {
	return f(r)
}

// NopRecordCloner is a record cloner that does not clone records.
// It is used when record values copy cleanly by assignment, i.e. when the
// record type contains no references. (e.g. flat structs of primitive fields)
type NopRecordCloner[R any] struct{}

// CloneRecord returns the input record.
func (NopRecordCloner[R]) CloneRecord(r R) R {
	return r
}

// DefaultRecordCloner returns a default cloner for the given record type.
// It uses the record type's Clone or DeepCopy method when one exists.
// Without such a method, it returns a NopRecordCloner when the record type
// is a flat value type (no pointers, slices, maps, channels or functions
// anywhere in the type), because assignment already copies such values
// completely. Any other record type must implement Clone or DeepCopy, or
// the table must be given an explicit cloner via WithRecordCloner.
func DefaultRecordCloner[R any]() RecordCloner[R] {
	var zero R
	return defaultRecordClonerAny[R](zero)
}

func defaultRecordClonerAny[R any](r any) RecordCloner[R] {
	type cloner interface {
		Clone() R
	}
	type deepCopier interface {
		DeepCopy() R
	}

	switch r.(type) {
	case cloner:
		return RecordClonerFunc[R](func(r R) R {
			var a any = r
			return a.(cloner).Clone()
		})

	case deepCopier:
		return RecordClonerFunc[R](func(r R) R {
			var a any = r
			return a.(deepCopier).DeepCopy()
		})

	default:
		typ := reflect.TypeOf(r)
		if typ == nil || !isFlatType(typ) {
			panic("record type does not have Clone or DeepCopy method and is not a flat value type")
		}
		return NopRecordCloner[R]{}
	}
}

var (
	// flatTypeCacheMutex is a mutex for the flatTypeCache.
	flatTypeCacheMutex = sync.RWMutex{}

	// flatTypeCache memoizes the flatness answer per record type.
	// Keyed by the type itself: distinct types can share a printed name.
	flatTypeCache = map[reflect.Type]bool{}
)

// isFlatType reports whether values of the type copy completely by assignment.
func isFlatType(typ reflect.Type) bool {
	flatTypeCacheMutex.RLock()
	if flat, ok := flatTypeCache[typ]; ok {
		flatTypeCacheMutex.RUnlock()
		return flat
	}

	flatTypeCacheMutex.RUnlock()
	flatTypeCacheMutex.Lock()
	defer flatTypeCacheMutex.Unlock()
	if flat, ok := flatTypeCache[typ]; ok {
		return flat
	}

	flat := checkFlatType(typ)
	flatTypeCache[typ] = flat
	return flat
}

// checkFlatType walks the type graph. A flat type cannot be recursive
// (recursion requires a pointer), so no visited set is needed.
func checkFlatType(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	case reflect.Array:
		return checkFlatType(typ.Elem())
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			if !checkFlatType(typ.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
