// Package codec serializes indexed tables as unordered sequences of their
// records and reconstructs tables by replaying each record through Insert.
//
// A codec only sees record values: the category index is derived state and
// is rebuilt, never persisted. Reconstruction fails with
// indexedtable.ErrKeyCollision if the serialized sequence contains two
// records with the same key.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the default codec used by Dump and Load when nil is given.
var Default Codec = GoJSON{}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}
