package core

import (
	"reflect"

	"github.com/motemesh/motemesh/state"
)

// Get fetches a registered module by type.
func Get[T state.Module](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}
