package indexedtable

// KeyConstraint is an interface for record key constraints.
type KeyConstraint interface {
	comparable
}

// CategoryConstraint is an interface for record category constraints.
type CategoryConstraint interface {
	comparable
}

// Record is the capability contract for storable types.
// A table is generic over this contract and places no other constraint
// on record shape.
type Record[K KeyConstraint, C CategoryConstraint] interface {
	// Key returns the record's identity within a table.
	// It must be stable unless explicitly changed by a caller-supplied mutation.
	Key() K

	// Categories returns every category the record currently belongs to.
	// The result is treated as a set: order is irrelevant and duplicates are immaterial.
	// It is re-derived after every mutation and never cached by the table.
	Categories() []C
}
