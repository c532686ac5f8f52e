package registry

import (
	"fmt"
	"sort"

	"github.com/edgecomet/loadstats/pkg/types"
)

// KeyFunc derives a statistics key from a sample. It must return the same key
// for logically identical samples.
type KeyFunc func(sample *types.Sample) string

// Key mode names accepted in configuration.
const (
	KeyModeLabel      = "label"
	KeyModeGroupLabel = "group_label"
)

var keyFuncs = map[string]KeyFunc{
	KeyModeLabel: func(s *types.Sample) string {
		return s.Label
	},
	KeyModeGroupLabel: func(s *types.Sample) string {
		return s.QualifiedLabel()
	},
}

// LookupKeyFunc returns the key function registered under name.
func LookupKeyFunc(name string) (KeyFunc, error) {
	fn, ok := keyFuncs[name]
	if !ok {
		return nil, fmt.Errorf("unknown key mode %q (available: %v)", name, KeyModes())
	}
	return fn, nil
}

// KeyModes lists the registered key mode names.
func KeyModes() []string {
	names := make([]string, 0, len(keyFuncs))
	for name := range keyFuncs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
