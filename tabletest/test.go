// Package tabletest provides generic test cases for indexed table implementations.
package tabletest

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	indexedtable "github.com/karupanerura/indexed-table"
	"golang.org/x/sync/errgroup"
)

// Store is the operation surface shared by indexedtable.Table and synced.Table.
type Store[K indexedtable.KeyConstraint, C indexedtable.CategoryConstraint, R indexedtable.Record[K, C]] interface {
	Len() int
	ContainsKey(key K) bool
	ContainsValue(record R) bool
	ContainsCategory(cat C) bool
	Get(key K) (R, bool)
	Clear()
	Insert(record R) error
	Update(key K, mutate func(*R)) error
	Upsert(key K, record R) error
	UpdateByCategory(cat C, mutate func(*R)) (int, error)
	Remove(key K) (R, bool)
	RemoveCategory(cat C) int
	Find(cat C) []R
	FindAny(cats ...C) []R
	FindAll(cats ...C) []R
}

// BookCategory is the category type used by the shared test cases.
// A book belongs to exactly one science category and one author category.
type BookCategory struct {
	Kind string
	ID   int
}

// Science returns the category of books in the science field id.
func Science(id int) BookCategory {
	return BookCategory{Kind: "science", ID: id}
}

// Author returns the category of books written by the author id.
func Author(id int) BookCategory {
	return BookCategory{Kind: "author", ID: id}
}

// Book is the record type used by the shared test cases.
type Book struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Science int    `json:"science"`
	Author  int    `json:"author"`
}

// Key returns the book's identity.
func (b Book) Key() int {
	return b.ID
}

// Categories returns the book's science and author categories.
func (b Book) Categories() []BookCategory {
	return []BookCategory{Science(b.Science), Author(b.Author)}
}

// BookStore is a Store of Book records.
type BookStore = Store[int, BookCategory, Book]

// Books returns the shared fixture: seven books across three science
// fields, with each of the authors 10-12 contributing one book per science
// field 2 and 3, and book 7 alone in both of its categories.
func Books() []Book {
	return []Book{
		{ID: 1, Title: "Book #1", Science: 2, Author: 10},
		{ID: 2, Title: "Book #2", Science: 2, Author: 11},
		{ID: 3, Title: "Book #3", Science: 2, Author: 12},
		{ID: 4, Title: "Book #4", Science: 3, Author: 10},
		{ID: 5, Title: "Book #5", Science: 3, Author: 11},
		{ID: 6, Title: "Book #6", Science: 3, Author: 12},
		{ID: 7, Title: "Book #7", Science: 4, Author: 13},
	}
}

var sortBooks = cmpopts.SortSlices(func(a, b Book) bool { return a.ID < b.ID })

func fill(t *testing.T, store BookStore) []Book {
	t.Helper()

	books := Books()
	for _, book := range books {
		if err := store.Insert(book); err != nil {
			t.Fatalf("failed to insert fixture book %d: %v", book.ID, err)
		}
	}
	return books
}

// checkConsistency verifies that every query surface of the store agrees
// with the given set of expected live records: Find must return exactly the
// records whose categories include the queried category, and no category
// without records may exist.
func checkConsistency(t *testing.T, store BookStore, live []Book) {
	t.Helper()

	if store.Len() != len(live) {
		t.Errorf("expected %d records, got %d", len(live), store.Len())
	}

	expected := map[BookCategory][]Book{}
	for _, book := range live {
		if !store.ContainsKey(book.ID) {
			t.Errorf("expected key %d to be present", book.ID)
		}
		if got, ok := store.Get(book.ID); !ok {
			t.Errorf("expected record under key %d", book.ID)
		} else if diff := cmp.Diff(book, got); diff != "" {
			t.Errorf("unexpected record under key %d (-want +got):\n%s", book.ID, diff)
		}
		for _, cat := range book.Categories() {
			expected[cat] = append(expected[cat], book)
		}
	}

	for cat, books := range expected {
		if !store.ContainsCategory(cat) {
			t.Errorf("expected category %v to be present", cat)
		}
		if diff := cmp.Diff(books, store.Find(cat), sortBooks); diff != "" {
			t.Errorf("unexpected records in category %v (-want +got):\n%s", cat, diff)
		}
	}
}

// TestBasicOperations covers construction, insertion, lookup, removal and clearing.
func TestBasicOperations(t *testing.T, provider func() BookStore) {
	t.Run("InsertAndGet", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)
		checkConsistency(t, store, books)

		if _, ok := store.Get(1000); ok {
			t.Error("expected no record under key 1000")
		}
		if store.ContainsKey(1000) {
			t.Error("expected key 1000 to be absent")
		}
		for _, book := range books {
			if !store.ContainsValue(book) {
				t.Errorf("expected book %d to be contained", book.ID)
			}
		}
		if store.ContainsCategory(Science(5)) {
			t.Error("expected science 5 to be absent")
		}
	})

	t.Run("Remove", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		removed, ok := store.Remove(1)
		if !ok {
			t.Fatal("expected removal of key 1 to succeed")
		}
		if diff := cmp.Diff(books[0], removed); diff != "" {
			t.Errorf("unexpected removed record (-want +got):\n%s", diff)
		}
		if store.ContainsKey(1) {
			t.Error("expected key 1 to be absent after removal")
		}
		for _, cat := range removed.Categories() {
			for _, book := range store.Find(cat) {
				if book.ID == 1 {
					t.Errorf("expected key 1 to be pruned from category %v", cat)
				}
			}
		}
		// author 10 still has book 4
		if !store.ContainsCategory(Author(10)) {
			t.Error("expected author 10 to remain present")
		}
		checkConsistency(t, store, books[1:])

		if _, ok := store.Remove(1); ok {
			t.Error("expected removal of an absent key to fail")
		}
	})

	t.Run("RemoveLastOfCategory", func(t *testing.T) {
		t.Parallel()

		store := provider()
		fill(t, store)

		// book 7 is alone in science 4 and author 13
		if _, ok := store.Remove(7); !ok {
			t.Fatal("expected removal of key 7 to succeed")
		}
		if store.ContainsCategory(Science(4)) {
			t.Error("expected empty science 4 bucket to be pruned")
		}
		if store.ContainsCategory(Author(13)) {
			t.Error("expected empty author 13 bucket to be pruned")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		t.Parallel()

		store := provider()
		fill(t, store)

		store.Clear()
		if store.Len() != 0 {
			t.Errorf("expected empty store, got %d records", store.Len())
		}
		if store.ContainsCategory(Science(2)) {
			t.Error("expected no categories after clear")
		}
		checkConsistency(t, store, nil)
	})
}

// TestInsertCollision covers the duplicate-key insertion failure.
func TestInsertCollision(t *testing.T, provider func() BookStore) {
	t.Run("InsertCollision", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		err := store.Insert(Book{ID: 1, Title: "Impostor", Science: 9, Author: 99})
		if !errors.Is(err, indexedtable.ErrKeyCollision) {
			t.Fatalf("expected key collision, got %v", err)
		}

		// the first record stays, the impostor's categories never appear
		if got, _ := store.Get(1); got.Title != books[0].Title {
			t.Errorf("expected original record to survive, got %+v", got)
		}
		if store.ContainsCategory(Science(9)) {
			t.Error("expected no bucket for the rejected record's category")
		}
		checkConsistency(t, store, books)
	})
}

// TestUpdate covers in-place updates, category moves and the not-found failure.
func TestUpdate(t *testing.T, provider func() BookStore) {
	t.Run("UpdateInPlace", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		if err := store.Update(2, func(b *Book) { b.Science = 3 }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		books[1].Science = 3
		checkConsistency(t, store, books)
	})

	t.Run("UpdateTitleOnly", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		if err := store.Update(5, func(b *Book) { b.Title = "Renamed" }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		books[4].Title = "Renamed"
		checkConsistency(t, store, books)
	})

	t.Run("UpdateNotFound", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		err := store.Update(123456, func(b *Book) { b.Author = 2 })
		if !errors.Is(err, indexedtable.ErrKeyNotFound) {
			t.Fatalf("expected key not found, got %v", err)
		}
		checkConsistency(t, store, books)
	})
}

// TestRename covers key-changing updates and their collision atomicity.
func TestRename(t *testing.T, provider func() BookStore) {
	t.Run("RenameViaUpdate", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		if err := store.Update(6, func(b *Book) { b.ID = 60 }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if store.ContainsKey(6) {
			t.Error("expected key 6 to be absent after rename")
		}
		books[5].ID = 60
		checkConsistency(t, store, books)
	})

	t.Run("RenameCollision", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		err := store.Update(6, func(b *Book) {
			b.ID = 7
			b.Title = "Clobber"
		})
		if !errors.Is(err, indexedtable.ErrKeyCollision) {
			t.Fatalf("expected key collision, got %v", err)
		}

		// nothing changed: record 6 is intact under its old key
		if got, ok := store.Get(6); !ok || got.Title != books[5].Title {
			t.Errorf("expected original record under key 6, got %+v", got)
		}
		checkConsistency(t, store, books)
	})
}

// TestUpsert covers replace, insert-if-absent and the rename scenario.
func TestUpsert(t *testing.T, provider func() BookStore) {
	t.Run("UpsertReplace", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		// rewrite book 2 with a different science and author
		replacement := Book{ID: 2, Title: "Book #5", Science: 3, Author: 10}
		prevByAuthor := len(store.Find(Author(11)))
		if err := store.Upsert(2, replacement); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := len(store.Find(Author(11))); got != prevByAuthor-1 {
			t.Errorf("expected %d books by author 11, got %d", prevByAuthor-1, got)
		}

		books[1] = replacement
		checkConsistency(t, store, books)
	})

	t.Run("UpsertInsert", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		added := Book{ID: 10, Title: "Book #10", Science: 100, Author: 11}
		if err := store.Upsert(10, added); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkConsistency(t, store, append(books, added))
	})

	t.Run("UpsertRename", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		renamed := books[1]
		renamed.ID = 365
		if err := store.Upsert(2, renamed); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if store.ContainsKey(2) {
			t.Error("expected key 2 to be absent after rename")
		}
		if !store.ContainsKey(365) {
			t.Error("expected key 365 to be present after rename")
		}
		for _, book := range store.Find(Author(renamed.Author)) {
			if book.ID == 2 {
				t.Error("expected author bucket to hold 365 instead of 2")
			}
		}
		books[1] = renamed
		checkConsistency(t, store, books)

		// a second rename onto the same key must collide and change nothing
		conflicting := books[2]
		conflicting.ID = 365
		err := store.Upsert(3, conflicting)
		if !errors.Is(err, indexedtable.ErrKeyCollision) {
			t.Fatalf("expected key collision, got %v", err)
		}
		if !store.ContainsKey(3) {
			t.Error("expected record 3 to stay at key 3")
		}
		checkConsistency(t, store, books)
	})
}

// TestUpdateByCategory covers bulk updates, their snapshot semantics,
// simulation-time collision aborts and the partial commit produced by two
// renames in one batch targeting the same key.
func TestUpdateByCategory(t *testing.T, provider func() BookStore) {
	t.Run("BulkCategoryMove", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		// move science 3 into science 4; the snapshot keeps the iteration
		// from revisiting records that land in the bucket being iterated
		updated, err := store.UpdateByCategory(Science(3), func(b *Book) { b.Science = 4 })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated != 3 {
			t.Errorf("expected 3 updated records, got %d", updated)
		}

		for i := range books {
			if books[i].Science == 3 {
				books[i].Science = 4
			}
		}
		if store.ContainsCategory(Science(3)) {
			t.Error("expected science 3 bucket to be pruned")
		}
		checkConsistency(t, store, books)
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		updated, err := store.UpdateByCategory(Science(1000), func(b *Book) { b.Science = 1 })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated != 0 {
			t.Errorf("expected 0 updated records, got %d", updated)
		}
		checkConsistency(t, store, books)
	})

	t.Run("BatchCollisionAborts", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		// every rename in the batch collides with record 7
		updated, err := store.UpdateByCategory(Science(2), func(b *Book) { b.ID = 7 })
		if !errors.Is(err, indexedtable.ErrKeyCollision) {
			t.Fatalf("expected key collision, got %v", err)
		}
		if updated != 0 {
			t.Errorf("expected no updated records, got %d", updated)
		}
		checkConsistency(t, store, books)
	})

	t.Run("IntraBatchRenameCollision", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		// author 10 holds books 1 and 4; both rename to the free key 100.
		// The simulation only checks candidates against the pre-batch state,
		// so the first commit succeeds and the second collides, leaving the
		// batch partially applied with the partial count
		updated, err := store.UpdateByCategory(Author(10), func(b *Book) { b.ID = 100 })
		if !errors.Is(err, indexedtable.ErrKeyCollision) {
			t.Fatalf("expected key collision, got %v", err)
		}
		if updated != 1 {
			t.Errorf("expected 1 committed record, got %d", updated)
		}
		if !store.ContainsKey(100) {
			t.Error("expected key 100 to be present")
		}

		// exactly one of the two candidates was renamed (commit order is
		// unspecified); the index must be consistent with whichever it was
		for i := range books {
			if (books[i].ID == 1 || books[i].ID == 4) && !store.ContainsKey(books[i].ID) {
				books[i].ID = 100
			}
		}
		checkConsistency(t, store, books)
	})
}

// TestRemoveCategory covers bulk removal with cascading index cleanup.
func TestRemoveCategory(t *testing.T, provider func() BookStore) {
	t.Run("RemoveCategory", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		removed := store.RemoveCategory(Science(2))
		if removed != 3 {
			t.Errorf("expected 3 removed records, got %d", removed)
		}
		if store.ContainsCategory(Science(2)) {
			t.Error("expected science 2 bucket to be gone")
		}

		// the deleted books are pruned from their author buckets too:
		// authors 10-12 each keep exactly their one science-3 book
		for author, want := range map[int]int{10: 4, 11: 5, 12: 6} {
			byAuthor := store.Find(Author(author))
			if len(byAuthor) != 1 || byAuthor[0].ID != want {
				t.Errorf("expected author %d to hold only book %d, got %+v", author, want, byAuthor)
			}
		}
		checkConsistency(t, store, books[3:])
	})

	t.Run("RemoveUnknownCategory", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		if removed := store.RemoveCategory(Science(1000)); removed != 0 {
			t.Errorf("expected 0 removed records, got %d", removed)
		}
		checkConsistency(t, store, books)
	})
}

// TestFindQueries covers the single-category, union and intersection queries.
func TestFindQueries(t *testing.T, provider func() BookStore) {
	t.Run("Find", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		if diff := cmp.Diff([]Book{books[0], books[3]}, store.Find(Author(10)), sortBooks); diff != "" {
			t.Errorf("unexpected books by author 10 (-want +got):\n%s", diff)
		}
		if got := store.Find(Science(1000)); got != nil {
			t.Errorf("expected nil for an unknown category, got %+v", got)
		}
	})

	t.Run("FindAny", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		// science 2 holds books 1-3, author 10 holds 1 and 4: the union
		// de-duplicates book 1
		got := store.FindAny(Science(2), Author(10))
		expected := []Book{books[0], books[1], books[2], books[3]}
		if diff := cmp.Diff(expected, got, sortBooks); diff != "" {
			t.Errorf("unexpected union result (-want +got):\n%s", diff)
		}
	})

	t.Run("FindAll", func(t *testing.T) {
		t.Parallel()

		store := provider()
		books := fill(t, store)

		got := store.FindAll(Science(2), Author(10))
		if diff := cmp.Diff([]Book{books[0]}, got, sortBooks); diff != "" {
			t.Errorf("unexpected intersection result (-want +got):\n%s", diff)
		}
		if got := store.FindAll(Science(2), Author(13)); got != nil {
			t.Errorf("expected empty intersection, got %+v", got)
		}
	})
}

// TestIndexConsistency drives a scripted sequence of mutations and verifies
// the index against the record contents after every step.
func TestIndexConsistency(t *testing.T, provider func() BookStore) {
	t.Run("OperationSequence", func(t *testing.T) {
		t.Parallel()

		store := provider()
		live := map[int]Book{}
		verify := func(step string) {
			t.Helper()
			books := make([]Book, 0, len(live))
			for _, book := range live {
				books = append(books, book)
			}
			checkConsistency(t, store, books)
			if t.Failed() {
				t.Fatalf("index inconsistent after %s", step)
			}
		}

		for _, book := range Books() {
			if err := store.Insert(book); err != nil {
				t.Fatalf("insert failed: %v", err)
			}
			live[book.ID] = book
			verify(fmt.Sprintf("insert %d", book.ID))
		}

		if err := store.Update(3, func(b *Book) { b.Author = 10 }); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		book := live[3]
		book.Author = 10
		live[3] = book
		verify("update 3")

		if err := store.Update(4, func(b *Book) { b.ID = 40; b.Science = 2 }); err != nil {
			t.Fatalf("rename failed: %v", err)
		}
		book = live[4]
		delete(live, 4)
		book.ID = 40
		book.Science = 2
		live[40] = book
		verify("rename 4 to 40")

		if _, ok := store.Remove(7); !ok {
			t.Fatal("remove failed")
		}
		delete(live, 7)
		verify("remove 7")

		if _, err := store.UpdateByCategory(Science(2), func(b *Book) { b.Science = 8 }); err != nil {
			t.Fatalf("bulk update failed: %v", err)
		}
		for id, book := range live {
			if book.Science == 2 {
				book.Science = 8
				live[id] = book
			}
		}
		verify("bulk move science 2 to 8")

		if removed := store.RemoveCategory(Author(11)); removed != 2 {
			t.Fatalf("expected 2 removals, got %d", removed)
		}
		for id, book := range live {
			if book.Author == 11 {
				delete(live, id)
			}
		}
		verify("remove author 11")
	})
}

// TestConcurrentAccess hammers a store from multiple goroutines. It is only
// meaningful for synchronized implementations.
func TestConcurrentAccess(t *testing.T, provider func() BookStore) {
	t.Run("ConcurrentAccess", func(t *testing.T) {
		t.Parallel()

		store := provider()

		const writers = 4
		const perWriter = 64

		var eg errgroup.Group
		for w := 0; w < writers; w++ {
			w := w
			eg.Go(func() error {
				for i := 0; i < perWriter; i++ {
					id := w*perWriter + i + 1
					book := Book{ID: id, Title: fmt.Sprintf("Book #%d", id), Science: id % 5, Author: id % 7}
					if err := store.Insert(book); err != nil {
						return err
					}
					if err := store.Update(id, func(b *Book) { b.Title += "!" }); err != nil {
						return err
					}
				}
				return nil
			})
		}
		for r := 0; r < 2; r++ {
			eg.Go(func() error {
				for i := 0; i < writers*perWriter; i++ {
					store.Find(Science(i % 5))
					store.Get(i + 1)
					store.Len()
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			t.Fatalf("concurrent access failed: %v", err)
		}

		if got := store.Len(); got != writers*perWriter {
			t.Errorf("expected %d records, got %d", writers*perWriter, got)
		}
		var total int
		for s := 0; s < 5; s++ {
			total += len(store.Find(Science(s)))
		}
		if total != writers*perWriter {
			t.Errorf("expected science buckets to cover %d records, got %d", writers*perWriter, total)
		}
	})
}
