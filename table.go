package indexedtable

import (
	"iter"
	"maps"

	"github.com/karupanerura/indexed-table/internal/iterutil"
)

// Table is an in-memory record store with a secondary index derived from
// record contents: a primary key to record mapping, plus a category to
// key-set mapping kept exactly consistent with the stored records.
//
// A table is single-threaded: it performs no internal locking, and shared
// use requires external synchronization (see the synced package).
//
// The table is the sole owner of every stored record. Records are cloned
// on the way in and on the way out, and all mutation goes through
// callback-based update operations. See RecordCloner for the cloning
// contract.
type Table[K KeyConstraint, C CategoryConstraint, R Record[K, C]] struct {
	data   map[K]R
	index  map[C]map[K]struct{}
	cloner RecordCloner[R]
}

// Option is the interface for the options of a table.
type Option[K KeyConstraint, C CategoryConstraint, R Record[K, C]] interface {
	apply(*Table[K, C, R])
}

type optionFunc[K KeyConstraint, C CategoryConstraint, R Record[K, C]] func(*Table[K, C, R])

func (f optionFunc[K, C, R]) apply(t *Table[K, C, R]) {
	f(t)
}

// WithRecordCloner sets the record cloner of the table.
func WithRecordCloner[K KeyConstraint, C CategoryConstraint, R Record[K, C]](cloner RecordCloner[R]) Option[K, C, R] {
	return optionFunc[K, C, R](func(t *Table[K, C, R]) {
		t.cloner = cloner
	})
}

// New creates an empty table.
func New[K KeyConstraint, C CategoryConstraint, R Record[K, C]](opts ...Option[K, C, R]) *Table[K, C, R] {
	t := &Table[K, C, R]{
		data:  map[K]R{},
		index: map[C]map[K]struct{}{},
	}
	for _, opt := range opts {
		opt.apply(t)
	}
	if t.cloner == nil {
		t.cloner = DefaultRecordCloner[R]()
	}
	return t
}

// Len returns the number of stored records.
func (t *Table[K, C, R]) Len() int {
	return len(t.data)
}

// ContainsKey reports whether a record is stored under the key.
func (t *Table[K, C, R]) ContainsKey(key K) bool {
	_, ok := t.data[key]
	return ok
}

// ContainsValue reports whether a record is stored under the record's own key.
func (t *Table[K, C, R]) ContainsValue(record R) bool {
	_, ok := t.data[record.Key()]
	return ok
}

// ContainsCategory reports whether any stored record belongs to the category.
func (t *Table[K, C, R]) ContainsCategory(cat C) bool {
	_, ok := t.index[cat]
	return ok
}

// Get returns a copy of the record stored under the key.
func (t *Table[K, C, R]) Get(key K) (R, bool) {
	record, ok := t.data[key]
	if !ok {
		var zero R
		return zero, false
	}
	return t.cloner.CloneRecord(record), true
}

// Clear removes every record and category bucket.
func (t *Table[K, C, R]) Clear() {
	clear(t.data)
	clear(t.index)
}

// Insert stores the record under its own key and indexes it under every
// category it belongs to, creating category buckets as needed.
// If the key is already occupied, it fails with a KeyCollisionError and
// the table is unchanged.
func (t *Table[K, C, R]) Insert(record R) error {
	return t.insert(t.cloner.CloneRecord(record))
}

// insert stores an already-owned record copy without cloning it again.
func (t *Table[K, C, R]) insert(record R) error {
	key := record.Key()
	if _, ok := t.data[key]; ok {
		return &KeyCollisionError[K]{Key: key}
	}
	for _, cat := range record.Categories() {
		t.addToBucket(cat, key)
	}
	t.data[key] = record
	return nil
}

// Update applies mutate to a copy of the record stored under the key and
// commits the result, keeping the index in sync with the record's
// categories. The stored record is never exposed to the callback.
//
// If mutate changes the record's key, the rename is committed as an atomic
// remove-and-reinsert: the record is inserted under the new key first, and
// only on success is the old entry removed. A rename onto an occupied key
// fails with a KeyCollisionError and leaves the old entry untouched.
//
// Update fails with a KeyNotFoundError if the key is absent. On any
// failure the table is unchanged.
func (t *Table[K, C, R]) Update(key K, mutate func(*R)) error {
	record, ok := t.data[key]
	if !ok {
		return &KeyNotFoundError[K]{Key: key}
	}

	before := categorySet(record.Categories())
	clone := t.cloner.CloneRecord(record)
	mutate(&clone)

	if newKey := clone.Key(); newKey != key {
		// Rename: insert under the new key first so a collision leaves the
		// old entry untouched.
		if err := t.insert(clone); err != nil {
			return err
		}
		t.removeStored(key, record)
		return nil
	}

	after := categorySet(clone.Categories())
	for cat := range before {
		if _, ok := after[cat]; !ok {
			t.dropFromBucket(cat, key)
		}
	}
	for cat := range after {
		if _, ok := before[cat]; !ok {
			t.addToBucket(cat, key)
		}
	}
	t.data[key] = clone
	return nil
}

// Upsert replaces the record stored under the key with the given record,
// or inserts the record if the key is absent. The record's own key governs
// where it is stored: if it differs from the given key, the replacement is
// a rename as in Update.
//
// If the record's key differs from the given key and is already occupied,
// Upsert fails with a KeyCollisionError and the table is unchanged.
func (t *Table[K, C, R]) Upsert(key K, record R) error {
	if newKey := record.Key(); newKey != key {
		if _, ok := t.data[newKey]; ok {
			return &KeyCollisionError[K]{Key: newKey}
		}
	}
	if _, ok := t.data[key]; ok {
		owned := t.cloner.CloneRecord(record)
		return t.Update(key, func(r *R) { *r = owned })
	}
	return t.Insert(record)
}

// UpdateByCategory applies mutate to a copy of every record indexed under
// the category and commits the results via Upsert, returning the number of
// records updated. Bucket membership is snapshotted before the first
// callback runs, so membership changes produced by the updates themselves
// cannot make the iteration skip or repeat records.
//
// Every candidate is first simulated against the pre-batch table state; if
// any resulting record would collide with an existing different record,
// the whole batch fails with a KeyCollisionError and no record is
// modified. The simulation does not compare candidates in the same batch
// against each other: two updates that both rename to the same new key are
// only caught at commit time. In that case the batch is left partially
// committed and the count of records already updated is returned together
// with the error.
func (t *Table[K, C, R]) UpdateByCategory(cat C, mutate func(*R)) (int, error) {
	bucket, ok := t.index[cat]
	if !ok {
		return 0, nil
	}

	keys := make([]K, 0, len(bucket))
	for key := range bucket {
		keys = append(keys, key)
	}

	updated := make([]R, len(keys))
	for i, key := range keys {
		clone := t.cloner.CloneRecord(t.data[key])
		mutate(&clone)
		if newKey := clone.Key(); newKey != key {
			if _, occupied := t.data[newKey]; occupied {
				return 0, &KeyCollisionError[K]{Key: newKey}
			}
		}
		updated[i] = clone
	}

	for i, key := range keys {
		if err := t.Upsert(key, updated[i]); err != nil {
			return i, err
		}
	}
	return len(keys), nil
}

// Remove deletes the record stored under the key and prunes the key from
// every category bucket it belonged to. It returns the removed record,
// whose ownership transfers to the caller.
func (t *Table[K, C, R]) Remove(key K) (R, bool) {
	record, ok := t.data[key]
	if !ok {
		var zero R
		return zero, false
	}
	t.removeStored(key, record)
	return record, true
}

// RemoveCategory deletes every record indexed under the category, along
// with the category's bucket, and returns the number of records deleted.
// Deleted records are also pruned from every other category bucket they
// belonged to, so the index never references a deleted record.
func (t *Table[K, C, R]) RemoveCategory(cat C) int {
	bucket, ok := t.index[cat]
	if !ok {
		return 0
	}
	delete(t.index, cat)

	for key := range bucket {
		record := t.data[key]
		delete(t.data, key)
		for _, other := range record.Categories() {
			if other != cat {
				t.dropFromBucket(other, key)
			}
		}
	}
	return len(bucket)
}

// Find returns a copy of every record currently indexed under the
// category, in unspecified order. It returns nil if the category is
// unknown.
func (t *Table[K, C, R]) Find(cat C) []R {
	bucket, ok := t.index[cat]
	if !ok {
		return nil
	}
	records := make([]R, 0, len(bucket))
	for key := range bucket {
		records = append(records, t.cloner.CloneRecord(t.data[key]))
	}
	return records
}

// FindAny returns a copy of every record that belongs to at least one of
// the categories, de-duplicated by key, in unspecified order.
func (t *Table[K, C, R]) FindAny(cats ...C) []R {
	return t.collect(iterutil.Union(t.bucketSeqs(cats)...))
}

// FindAll returns a copy of every record that belongs to every one of the
// categories, in unspecified order. It returns nil if no categories are
// given.
func (t *Table[K, C, R]) FindAll(cats ...C) []R {
	if len(cats) == 0 {
		return nil
	}
	return t.collect(iterutil.Intersection(t.bucketSeqs(cats)...))
}

// All returns an iterator over key and record pairs, in unspecified order.
// Records are copies.
func (t *Table[K, C, R]) All() iter.Seq2[K, R] {
	return func(yield func(K, R) bool) {
		for key, record := range t.data {
			if !yield(key, t.cloner.CloneRecord(record)) {
				return
			}
		}
	}
}

// Records returns an iterator over copies of the stored records, in
// unspecified order.
func (t *Table[K, C, R]) Records() iter.Seq[R] {
	return iterutil.Map(t.Keys(), func(key K) R {
		return t.cloner.CloneRecord(t.data[key])
	})
}

// Keys returns an iterator over the stored keys, in unspecified order.
func (t *Table[K, C, R]) Keys() iter.Seq[K] {
	return maps.Keys(t.data)
}

// Categories returns an iterator over the categories that currently have
// at least one record, in unspecified order.
func (t *Table[K, C, R]) Categories() iter.Seq[C] {
	return maps.Keys(t.index)
}

func (t *Table[K, C, R]) bucketSeqs(cats []C) []iter.Seq[K] {
	seqs := make([]iter.Seq[K], len(cats))
	for i, cat := range cats {
		seqs[i] = maps.Keys(t.index[cat])
	}
	return seqs
}

func (t *Table[K, C, R]) collect(keys iter.Seq[K]) []R {
	var records []R
	for key := range keys {
		records = append(records, t.cloner.CloneRecord(t.data[key]))
	}
	return records
}

func (t *Table[K, C, R]) addToBucket(cat C, key K) {
	bucket, ok := t.index[cat]
	if !ok {
		bucket = map[K]struct{}{}
		t.index[cat] = bucket
	}
	bucket[key] = struct{}{}
}

// dropFromBucket removes the key from the category's bucket and prunes the
// bucket if it becomes empty.
func (t *Table[K, C, R]) dropFromBucket(cat C, key K) {
	bucket, ok := t.index[cat]
	if !ok {
		return
	}
	delete(bucket, key)
	if len(bucket) == 0 {
		delete(t.index, cat)
	}
}

func (t *Table[K, C, R]) removeStored(key K, record R) {
	delete(t.data, key)
	for _, cat := range record.Categories() {
		t.dropFromBucket(cat, key)
	}
}

func categorySet[C CategoryConstraint](cats []C) map[C]struct{} {
	set := make(map[C]struct{}, len(cats))
	for _, cat := range cats {
		set[cat] = struct{}{}
	}
	return set
}
