package panicutil_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/karupanerura/indexed-table/internal/panicutil"
)

func TestInvoke(t *testing.T) {
	t.Parallel()

	t.Run("NormalReturn", func(t *testing.T) {
		t.Parallel()

		if err := panicutil.Invoke(func() error { return nil }); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("ErrorReturn", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("boom")
		if err := panicutil.Invoke(func() error { return expected }); !errors.Is(err, expected) {
			t.Errorf("expected %v, got %v", expected, err)
		}
	})

	t.Run("Panic", func(t *testing.T) {
		t.Parallel()

		err := panicutil.Invoke(func() error { panic("callback exploded") })
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "callback exploded") {
			t.Errorf("unexpected error message: %v", err)
		}
	})
}
