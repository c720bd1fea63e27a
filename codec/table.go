package codec

import (
	"slices"

	indexedtable "github.com/karupanerura/indexed-table"
)

// Dump serializes the table as an unordered sequence of its records.
// If c is nil, the Default codec is used.
func Dump[K indexedtable.KeyConstraint, C indexedtable.CategoryConstraint, R indexedtable.Record[K, C]](c Codec, table *indexedtable.Table[K, C, R]) ([]byte, error) {
	if c == nil {
		c = Default
	}
	records := slices.Collect(table.Records())
	if records == nil {
		records = []R{}
	}
	return c.Marshal(records)
}

// Load reconstructs a table by decoding a record sequence produced by Dump
// and inserting each record in turn. If two decoded records share a key,
// Load fails with a *indexedtable.KeyCollisionError.
// If c is nil, the Default codec is used.
func Load[K indexedtable.KeyConstraint, C indexedtable.CategoryConstraint, R indexedtable.Record[K, C]](c Codec, data []byte, opts ...indexedtable.Option[K, C, R]) (*indexedtable.Table[K, C, R], error) {
	if c == nil {
		c = Default
	}

	var records []R
	if err := c.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	table := indexedtable.New[K, C, R](opts...)
	for _, record := range records {
		if err := table.Insert(record); err != nil {
			return nil, err
		}
	}
	return table, nil
}
