package indexedtable_test

import (
	"errors"
	"maps"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	indexedtable "github.com/karupanerura/indexed-table"
	"github.com/karupanerura/indexed-table/tabletest"
)

func newBookTable() tabletest.BookStore {
	return indexedtable.New[int, tabletest.BookCategory, tabletest.Book]()
}

func TestTable(t *testing.T) {
	t.Parallel()

	tabletest.TestBasicOperations(t, newBookTable)
	tabletest.TestInsertCollision(t, newBookTable)
	tabletest.TestUpdate(t, newBookTable)
	tabletest.TestRename(t, newBookTable)
	tabletest.TestUpsert(t, newBookTable)
	tabletest.TestUpdateByCategory(t, newBookTable)
	tabletest.TestRemoveCategory(t, newBookTable)
	tabletest.TestFindQueries(t, newBookTable)
	tabletest.TestIndexConsistency(t, newBookTable)
}

func TestTable_Iterators(t *testing.T) {
	t.Parallel()

	table := indexedtable.New[int, tabletest.BookCategory, tabletest.Book]()
	books := tabletest.Books()
	for _, book := range books {
		if err := table.Insert(book); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	expected := map[int]tabletest.Book{}
	expectedCats := map[tabletest.BookCategory]struct{}{}
	for _, book := range books {
		expected[book.ID] = book
		for _, cat := range book.Categories() {
			expectedCats[cat] = struct{}{}
		}
	}

	if diff := cmp.Diff(expected, maps.Collect(table.All())); diff != "" {
		t.Errorf("unexpected All result (-want +got):\n%s", diff)
	}

	sortBooks := cmpopts.SortSlices(func(a, b tabletest.Book) bool { return a.ID < b.ID })
	if diff := cmp.Diff(books, slices.Collect(table.Records()), sortBooks); diff != "" {
		t.Errorf("unexpected Records result (-want +got):\n%s", diff)
	}

	keys := slices.Collect(table.Keys())
	slices.Sort(keys)
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5, 6, 7}, keys); diff != "" {
		t.Errorf("unexpected Keys result (-want +got):\n%s", diff)
	}

	cats := map[tabletest.BookCategory]struct{}{}
	for cat := range table.Categories() {
		cats[cat] = struct{}{}
	}
	if diff := cmp.Diff(expectedCats, cats); diff != "" {
		t.Errorf("unexpected Categories result (-want +got):\n%s", diff)
	}
}

func TestTable_IteratorEarlyBreak(t *testing.T) {
	t.Parallel()

	table := indexedtable.New[int, tabletest.BookCategory, tabletest.Book]()
	for _, book := range tabletest.Books() {
		if err := table.Insert(book); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	var seen int
	for range table.All() {
		seen++
		break
	}
	if seen != 1 {
		t.Errorf("expected a single yielded pair, got %d", seen)
	}
	for range table.Records() {
		break
	}
	for range table.Keys() {
		break
	}
	for range table.Categories() {
		break
	}
}

func TestTable_ErrorValues(t *testing.T) {
	t.Parallel()

	table := indexedtable.New[int, tabletest.BookCategory, tabletest.Book]()
	books := tabletest.Books()
	for _, book := range books {
		if err := table.Insert(book); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	t.Run("KeyCollision", func(t *testing.T) {
		err := table.Insert(books[0])
		if !errors.Is(err, indexedtable.ErrKeyCollision) {
			t.Fatalf("expected ErrKeyCollision, got %v", err)
		}

		var collision *indexedtable.KeyCollisionError[int]
		if !errors.As(err, &collision) {
			t.Fatalf("expected KeyCollisionError, got %T", err)
		}
		if collision.Key != 1 {
			t.Errorf("expected colliding key 1, got %d", collision.Key)
		}
		if expected := "key collision: 1"; err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	})

	t.Run("KeyNotFound", func(t *testing.T) {
		err := table.Update(1000, func(b *tabletest.Book) {})
		if !errors.Is(err, indexedtable.ErrKeyNotFound) {
			t.Fatalf("expected ErrKeyNotFound, got %v", err)
		}

		var notFound *indexedtable.KeyNotFoundError[int]
		if !errors.As(err, &notFound) {
			t.Fatalf("expected KeyNotFoundError, got %T", err)
		}
		if notFound.Key != 1000 {
			t.Errorf("expected missing key 1000, got %d", notFound.Key)
		}
		if expected := "key not found: 1000"; err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	})
}

// taggedRecord reports the same category twice, which the index must
// treat as one membership.
type taggedRecord struct {
	ID   int
	Tags [2]string
}

func (r taggedRecord) Key() int {
	return r.ID
}

func (r taggedRecord) Categories() []string {
	return r.Tags[:]
}

func TestTable_DuplicateCategories(t *testing.T) {
	t.Parallel()

	table := indexedtable.New[int, string, taggedRecord]()
	if err := table.Insert(taggedRecord{ID: 1, Tags: [2]string{"go", "go"}}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if got := table.Find("go"); len(got) != 1 {
		t.Errorf("expected a single record under the duplicated category, got %d", len(got))
	}

	if _, ok := table.Remove(1); !ok {
		t.Fatal("remove failed")
	}
	if table.ContainsCategory("go") {
		t.Error("expected the bucket to be pruned after removal")
	}
}

// mutableRecord carries a reference field to verify that the table's clone
// discipline isolates stored records from the caller.
type mutableRecord struct {
	ID   int
	Tags []string
}

func (r *mutableRecord) Key() int {
	return r.ID
}

func (r *mutableRecord) Categories() []string {
	return r.Tags
}

func (r *mutableRecord) Clone() *mutableRecord {
	tags := make([]string, len(r.Tags))
	copy(tags, r.Tags)
	return &mutableRecord{ID: r.ID, Tags: tags}
}

func TestTable_StoredCopyIsolation(t *testing.T) {
	t.Parallel()

	table := indexedtable.New[int, string, *mutableRecord]()
	original := &mutableRecord{ID: 1, Tags: []string{"draft"}}
	if err := table.Insert(original); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// mutating the caller's record must not affect the stored copy
	original.Tags[0] = "hacked"
	got, ok := table.Get(1)
	if !ok {
		t.Fatal("expected record under key 1")
	}
	if got.Tags[0] != "draft" {
		t.Errorf("expected stored copy to be isolated, got tag %q", got.Tags[0])
	}

	// mutating a query result must not affect the stored copy either
	got.Tags[0] = "hacked"
	if again, _ := table.Get(1); again.Tags[0] != "draft" {
		t.Errorf("expected query results to be copies, got tag %q", again.Tags[0])
	}
}

func TestTable_WithRecordCloner(t *testing.T) {
	t.Parallel()

	var clones int
	cloner := indexedtable.RecordClonerFunc[tabletest.Book](func(b tabletest.Book) tabletest.Book {
		clones++
		return b
	})

	table := indexedtable.New(indexedtable.WithRecordCloner[int, tabletest.BookCategory, tabletest.Book](cloner))
	if err := table.Insert(tabletest.Books()[0]); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, ok := table.Get(1); !ok {
		t.Fatal("expected record under key 1")
	}
	if clones != 2 {
		t.Errorf("expected the custom cloner to run on insert and get, got %d calls", clones)
	}
}
