package synced_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	indexedtable "github.com/karupanerura/indexed-table"
	"github.com/karupanerura/indexed-table/synced"
	"github.com/karupanerura/indexed-table/tabletest"
)

func newBookTable() tabletest.BookStore {
	return synced.New[int, tabletest.BookCategory, tabletest.Book]()
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
	tabletest.TestConcurrentAccess(t, newBookTable)
}

func TestTable_Snapshots(t *testing.T) {
	t.Parallel()

	table := synced.New[int, tabletest.BookCategory, tabletest.Book]()
	books := tabletest.Books()
	for _, book := range books {
		if err := table.Insert(book); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	sortBooks := cmpopts.SortSlices(func(a, b tabletest.Book) bool { return a.ID < b.ID })
	if diff := cmp.Diff(books, table.Records(), sortBooks); diff != "" {
		t.Errorf("unexpected Records result (-want +got):\n%s", diff)
	}

	keys := table.Keys()
	slices.Sort(keys)
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5, 6, 7}, keys); diff != "" {
		t.Errorf("unexpected Keys result (-want +got):\n%s", diff)
	}

	expectedCats := map[tabletest.BookCategory]struct{}{}
	for _, book := range books {
		for _, cat := range book.Categories() {
			expectedCats[cat] = struct{}{}
		}
	}
	cats := map[tabletest.BookCategory]struct{}{}
	for _, cat := range table.Categories() {
		cats[cat] = struct{}{}
	}
	if diff := cmp.Diff(expectedCats, cats); diff != "" {
		t.Errorf("unexpected Categories result (-want +got):\n%s", diff)
	}
}

func TestTable_CallbackPanic(t *testing.T) {
	t.Parallel()

	t.Run("Update", func(t *testing.T) {
		t.Parallel()

		table := synced.New[int, tabletest.BookCategory, tabletest.Book]()
		books := tabletest.Books()
		for _, book := range books {
			if err := table.Insert(book); err != nil {
				t.Fatalf("insert failed: %v", err)
			}
		}

		err := table.Update(1, func(b *tabletest.Book) { panic("mutation exploded") })
		if err == nil {
			t.Fatal("expected an error from a panicking callback")
		}

		// the table is unchanged and usable afterwards
		if got, ok := table.Get(1); !ok || got != books[0] {
			t.Errorf("expected record 1 to be untouched, got %+v", got)
		}
		if err := table.Update(1, func(b *tabletest.Book) { b.Title = "Recovered" }); err != nil {
			t.Fatalf("unexpected error after recovery: %v", err)
		}
	})

	t.Run("UpdateByCategory", func(t *testing.T) {
		t.Parallel()

		table := synced.New[int, tabletest.BookCategory, tabletest.Book]()
		books := tabletest.Books()
		for _, book := range books {
			if err := table.Insert(book); err != nil {
				t.Fatalf("insert failed: %v", err)
			}
		}

		updated, err := table.UpdateByCategory(tabletest.Science(2), func(b *tabletest.Book) { panic("mutation exploded") })
		if err == nil {
			t.Fatal("expected an error from a panicking callback")
		}
		if updated != 0 {
			t.Errorf("expected no updated records, got %d", updated)
		}
		if got := len(table.Find(tabletest.Science(2))); got != 3 {
			t.Errorf("expected science 2 to keep its 3 records, got %d", got)
		}
	})

	t.Run("ErrorPassthrough", func(t *testing.T) {
		t.Parallel()

		table := synced.New[int, tabletest.BookCategory, tabletest.Book]()
		err := table.Update(1000, func(b *tabletest.Book) {})
		if !errors.Is(err, indexedtable.ErrKeyNotFound) {
			t.Fatalf("expected key not found, got %v", err)
		}
	})
}
