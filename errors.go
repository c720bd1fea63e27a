package indexedtable

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyCollision is returned when an insert, rename, or batch update
	// would make two distinct records share one key.
	ErrKeyCollision = errors.New("key collision")

	// ErrKeyNotFound is returned when an update targets a key that is
	// absent from the table.
	ErrKeyNotFound = errors.New("key not found")
)

// KeyCollisionError reports the key that two distinct records would share.
//
// It matches ErrKeyCollision for errors.Is.
type KeyCollisionError[K KeyConstraint] struct {
	Key K
}

func (e *KeyCollisionError[K]) Error() string {
	return fmt.Sprintf("key collision: %v", e.Key)
}

// Is reports whether the target is ErrKeyCollision.
func (e *KeyCollisionError[K]) Is(target error) bool {
	return target == ErrKeyCollision
}

// KeyNotFoundError reports the key an update targeted but did not find.
//
// It matches ErrKeyNotFound for errors.Is.
type KeyNotFoundError[K KeyConstraint] struct {
	Key K
}

func (e *KeyNotFoundError[K]) Error() string {
	return fmt.Sprintf("key not found: %v", e.Key)
}

// Is reports whether the target is ErrKeyNotFound.
func (e *KeyNotFoundError[K]) Is(target error) bool {
	return target == ErrKeyNotFound
}
