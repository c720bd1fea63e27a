package synced

import (
	"slices"
	"sync"

	indexedtable "github.com/karupanerura/indexed-table"
	"github.com/karupanerura/indexed-table/internal/panicutil"
)

// Table wraps an indexedtable.Table with a read-write mutex.
//
// Callbacks passed to Update and UpdateByCategory run while the lock is
// held and must not call back into the same table. A panic inside a
// callback is recovered and returned as a *panics.ErrRecovered error.
type Table[K indexedtable.KeyConstraint, C indexedtable.CategoryConstraint, R indexedtable.Record[K, C]] struct {
	mu    sync.RWMutex
	table *indexedtable.Table[K, C, R]
}

// New creates a synchronized empty table.
func New[K indexedtable.KeyConstraint, C indexedtable.CategoryConstraint, R indexedtable.Record[K, C]](opts ...indexedtable.Option[K, C, R]) *Table[K, C, R] {
	return Wrap(indexedtable.New[K, C, R](opts...))
}

// Wrap returns a synchronized view of the given table.
// The underlying table must not be used directly afterwards.
func Wrap[K indexedtable.KeyConstraint, C indexedtable.CategoryConstraint, R indexedtable.Record[K, C]](table *indexedtable.Table[K, C, R]) *Table[K, C, R] {
	return &Table[K, C, R]{table: table}
}

// Len returns the number of stored records.
func (t *Table[K, C, R]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.Len()
}

// ContainsKey reports whether a record is stored under the key.
func (t *Table[K, C, R]) ContainsKey(key K) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ContainsKey(key)
}

// ContainsValue reports whether a record is stored under the record's own key.
func (t *Table[K, C, R]) ContainsValue(record R) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ContainsValue(record)
}

// ContainsCategory reports whether any stored record belongs to the category.
func (t *Table[K, C, R]) ContainsCategory(cat C) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.ContainsCategory(cat)
}

// Get returns a copy of the record stored under the key.
func (t *Table[K, C, R]) Get(key K) (R, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.Get(key)
}

// Clear removes every record and category bucket.
func (t *Table[K, C, R]) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.table.Clear()
}

// Insert stores the record under its own key.
func (t *Table[K, C, R]) Insert(record R) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.table.Insert(record)
}

// Update applies mutate to a copy of the record stored under the key and
// commits the result. A panic raised by mutate is returned as an error;
// the table is unchanged in that case.
func (t *Table[K, C, R]) Update(key K, mutate func(*R)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return panicutil.Invoke(func() error {
		return t.table.Update(key, mutate)
	})
}

// Upsert replaces the record stored under the key, or inserts it if the
// key is absent.
func (t *Table[K, C, R]) Upsert(key K, record R) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.table.Upsert(key, record)
}

// UpdateByCategory applies mutate to every record indexed under the
// category. A panic raised by mutate is returned as an error; no record
// is modified in that case because panics can only occur before the batch
// commits.
func (t *Table[K, C, R]) UpdateByCategory(cat C, mutate func(*R)) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var updated int
	err := panicutil.Invoke(func() error {
		var err error
		updated, err = t.table.UpdateByCategory(cat, mutate)
		return err
	})
	return updated, err
}

// Remove deletes the record stored under the key and returns it.
func (t *Table[K, C, R]) Remove(key K) (R, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.table.Remove(key)
}

// RemoveCategory deletes every record indexed under the category and
// returns the number of records deleted.
func (t *Table[K, C, R]) RemoveCategory(cat C) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.table.RemoveCategory(cat)
}

// Find returns a copy of every record currently indexed under the category.
func (t *Table[K, C, R]) Find(cat C) []R {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.Find(cat)
}

// FindAny returns a copy of every record that belongs to at least one of
// the categories, de-duplicated by key.
func (t *Table[K, C, R]) FindAny(cats ...C) []R {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.FindAny(cats...)
}

// FindAll returns a copy of every record that belongs to every one of the
// categories.
func (t *Table[K, C, R]) FindAll(cats ...C) []R {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table.FindAll(cats...)
}

// Records returns a snapshot of the stored records, in unspecified order.
// Unlike the root table it returns a slice, because a lazily-consumed
// iterator cannot be produced while holding the lock.
func (t *Table[K, C, R]) Records() []R {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Collect(t.table.Records())
}

// Keys returns a snapshot of the stored keys, in unspecified order.
func (t *Table[K, C, R]) Keys() []K {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Collect(t.table.Keys())
}

// Categories returns a snapshot of the categories that currently have at
// least one record, in unspecified order.
func (t *Table[K, C, R]) Categories() []C {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Collect(t.table.Categories())
}
