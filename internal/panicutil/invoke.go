package panicutil

import (
	"github.com/sourcegraph/conc/panics"
)

// Invoke runs the function and recovers from panics, returning them as errors.
// If the function returns normally, Invoke returns the error value returned
// from the given function. If the function panics, the recovered panic value
// is returned as a *panics.ErrRecovered.
func Invoke(f func() error) error {
	var err error
	if recovered := panics.Try(func() { err = f() }); recovered != nil {
		return recovered.AsError()
	}
	return err
}
